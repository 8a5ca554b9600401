package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"script2vid/internal/app"
	"script2vid/internal/app/model"
)

var (
	onceTitle   string
	onceContent string
	onceFile    string
	onceVoice   string
	onceOwner   string
	onceImages  bool
)

var (
	labelStyle = lipgloss.NewStyle().Bold(true).Width(12)
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Generate a single video",
	Long:  `Run one generation pipeline synchronously and print the published artifact URLs.`,
	RunE:  runOnce,
}

func init() {
	onceCmd.Flags().StringVarP(&onceTitle, "title", "t", "", "Video title")
	onceCmd.Flags().StringVarP(&onceContent, "content", "c", "", "Script text")
	onceCmd.Flags().StringVarP(&onceFile, "file", "f", "", "Read the script from a file")
	onceCmd.Flags().StringVar(&onceVoice, "voice", "", "Voice id used for narration")
	onceCmd.Flags().StringVar(&onceOwner, "owner", "local", "Owner id used in artifact paths")
	onceCmd.Flags().BoolVar(&onceImages, "images", false, "Render slides from the script")
	onceCmd.MarkFlagsMutuallyExclusive("content", "file")
	rootCmd.AddCommand(onceCmd)
}

func runOnce(cmd *cobra.Command, args []string) error {
	content, err := scriptContent()
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	cfg, logger, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	built, err := app.BuildService(ctx, cfg, logger, prometheus.NewRegistry())
	if err != nil {
		return err
	}
	defer func() {
		_ = built.Service.Shutdown(ctx)
		if err := built.Close(); err != nil {
			logger.Warn("Failed to close resources", zap.Error(err))
		}
	}()

	input := model.SubmitInput{
		Title:              onceTitle,
		Content:            content,
		VoiceID:            onceVoice,
		AutoGenerateImages: onceImages,
		OwnerID:            onceOwner,
	}

	var rec *model.VideoRecord
	var runErr error
	_ = spinner.New().
		Title("Generating video...").
		Action(func() { rec, runErr = built.Service.Generate(ctx, input) }).
		Run()

	if rec != nil {
		printSummary(rec)
	}
	return runErr
}

func scriptContent() (string, error) {
	if onceFile != "" {
		data, err := os.ReadFile(onceFile)
		if err != nil {
			return "", fmt.Errorf("read script: %w", err)
		}
		return string(data), nil
	}
	if strings.TrimSpace(onceContent) == "" {
		return "", errors.New("please provide --content or --file")
	}
	return onceContent, nil
}

func printSummary(rec *model.VideoRecord) {
	if rec.Status == model.StatusFailed {
		fmt.Println(failStyle.Render("✗ " + rec.Title + " failed"))
		fmt.Println(labelStyle.Render("Error") + rec.Metadata.ErrorDetail)
		return
	}

	fmt.Println(successStyle.Render("✓ " + rec.Title))
	rows := [][2]string{
		{"ID", rec.ID},
		{"Duration", rec.Duration},
		{"Slides", fmt.Sprint(rec.Metadata.ImageCount)},
		{"Video", rec.URLs.Video},
		{"Audio", rec.URLs.Audio},
		{"Subtitles", rec.URLs.Subtitle},
		{"Thumbnail", rec.URLs.Thumbnail},
	}
	for _, row := range rows {
		fmt.Println(labelStyle.Render(row[0]) + infoStyle.Render(row[1]))
	}
}
