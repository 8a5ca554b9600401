package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/huh/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"script2vid/pkg/config"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")).MarginBottom(1)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
)

// envOrder fixes the key order of the generated .env file.
var envOrder = []string{
	"SYNTHESIZER",
	"ELEVENLABS_API_KEY",
	"GOOGLE_CLOUD_PROJECT",
	"STORAGE_BACKEND",
	"AWS_ACCESS_KEY_ID",
	"AWS_SECRET_ACCESS_KEY",
	"MINIO_ACCESS_KEY",
	"MINIO_SECRET_KEY",
	"STORE_BACKEND",
	"REDIS_ADDR",
	"REDIS_PASSWORD",
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard",
	Long:  `Check required tools, create working directories and write a .env file.`,
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	fmt.Println(titleStyle.Render("🎬 script2vid Setup"))

	steps := []struct {
		name string
		fn   func() error
	}{
		{"Checking tools", checkTools},
		{"Creating directories", createDirectories},
		{"Configuring environment", configureEnv},
	}

	for _, step := range steps {
		if err := step.fn(); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}

	return nil
}

func checkTools() error {
	for _, tool := range []string{"ffmpeg", "ffprobe"} {
		if !commandExists(tool) {
			fmt.Println(warnStyle.Render(tool + " not found on PATH - install it before running pipelines"))
			continue
		}
		fmt.Println(successStyle.Render("✓ Found " + tool))
	}
	return nil
}

func createDirectories() error {
	return runWithSpinner("Created directories", func() error {
		for _, dir := range []string{"tmp", "published"} {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("create %s: %w", dir, err)
			}
		}
		return nil
	})
}

func configureEnv() error {
	if _, err := os.Stat(".env"); err == nil {
		var overwrite bool
		if err := huh.NewConfirm().
			Title("Found existing .env file").
			Description("Overwrite?").
			Value(&overwrite).
			Run(); err != nil {
			return err
		}
		if !overwrite {
			fmt.Println(infoStyle.Render("Kept existing .env"))
			return nil
		}
	}

	env := make(map[string]string)

	for _, configure := range []func(map[string]string) error{
		configureVoice,
		configureObjectStorage,
		configureRecordStore,
	} {
		if err := configure(env); err != nil {
			return err
		}
	}

	return writeEnvFile(env)
}

func configureVoice(env map[string]string) error {
	synth := config.SynthesizerElevenLabs
	if err := huh.NewSelect[string]().
		Title("Narration voice").
		Options(
			huh.NewOption("ElevenLabs", config.SynthesizerElevenLabs),
			huh.NewOption("Silent stub (offline testing)", config.SynthesizerStub),
		).
		Value(&synth).
		Run(); err != nil {
		return err
	}
	env["SYNTHESIZER"] = synth

	if synth != config.SynthesizerElevenLabs {
		return nil
	}

	var key, project string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("ElevenLabs API Key").
				Description("https://elevenlabs.io/app/settings/api-keys - leave empty to read it from Secret Manager").
				EchoMode(huh.EchoModePassword).
				Value(&key),
			huh.NewInput().
				Title("Google Cloud Project").
				Description("Optional. Secrets missing from .env are read from Secret Manager").
				Value(&project),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	key = strings.TrimSpace(key)
	project = strings.TrimSpace(project)
	if key == "" && project == "" {
		return fmt.Errorf("ElevenLabs API Key or Google Cloud Project is required")
	}
	env["ELEVENLABS_API_KEY"] = key
	env["GOOGLE_CLOUD_PROJECT"] = project
	return nil
}

func configureObjectStorage(env map[string]string) error {
	backend := config.StorageLocal
	if err := huh.NewSelect[string]().
		Title("Artifact storage").
		Options(
			huh.NewOption("Local directory (served under /files)", config.StorageLocal),
			huh.NewOption("Google Cloud Storage", config.StorageGCS),
			huh.NewOption("Amazon S3", config.StorageS3),
			huh.NewOption("MinIO", config.StorageMinIO),
		).
		Value(&backend).
		Run(); err != nil {
		return err
	}
	env["STORAGE_BACKEND"] = backend

	switch backend {
	case config.StorageS3:
		return promptCredentials(env, "AWS Access Key ID", "AWS_ACCESS_KEY_ID", "AWS Secret Access Key", "AWS_SECRET_ACCESS_KEY")
	case config.StorageMinIO:
		fmt.Println(infoStyle.Render("Set storage.minio.endpoint in config.yaml"))
		return promptCredentials(env, "MinIO Access Key", "MINIO_ACCESS_KEY", "MinIO Secret Key", "MINIO_SECRET_KEY")
	case config.StorageGCS:
		fmt.Println(infoStyle.Render("GCS uses application default credentials unless storage.gcs.credentials_file is set"))
	}
	return nil
}

func configureRecordStore(env map[string]string) error {
	var useRedis bool
	if err := huh.NewConfirm().
		Title("Persist video records in Redis?").
		Description("Records are kept in memory otherwise and lost on restart").
		Value(&useRedis).
		Run(); err != nil {
		return err
	}

	if !useRedis {
		env["STORE_BACKEND"] = config.StoreMemory
		return nil
	}
	env["STORE_BACKEND"] = config.StoreRedis

	addr := "localhost:6379"
	var password string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Redis address").
				Value(&addr).
				Validate(required("Redis address")),
			huh.NewInput().
				Title("Redis password").
				EchoMode(huh.EchoModePassword).
				Value(&password),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	env["REDIS_ADDR"] = strings.TrimSpace(addr)
	env["REDIS_PASSWORD"] = strings.TrimSpace(password)
	return nil
}

func promptCredentials(env map[string]string, idTitle, idKey, secretTitle, secretKey string) error {
	var id, secret string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(idTitle).
				Value(&id).
				Validate(required(idTitle)),
			huh.NewInput().
				Title(secretTitle).
				EchoMode(huh.EchoModePassword).
				Value(&secret),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	env[idKey] = strings.TrimSpace(id)
	env[secretKey] = strings.TrimSpace(secret)
	return nil
}

func writeEnvFile(env map[string]string) error {
	f, err := os.Create(".env")
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	for _, key := range envOrder {
		if val, ok := env[key]; ok && val != "" {
			_, _ = fmt.Fprintf(f, "%s=%s\n", key, val)
		}
	}

	fmt.Println(successStyle.Render("✓ Created .env file"))
	printNextSteps()
	return nil
}

func printNextSteps() {
	fmt.Println()
	fmt.Println(titleStyle.Render("Next steps:"))
	fmt.Println("  1. Adjust config.yaml (buckets, slide size, workers) if needed")
	fmt.Println(`  2. Try it: script2vid once -t "Hello" -c "Hello world." --voice <voice-id>`)
	fmt.Println("  3. Run the API: script2vid serve")
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func commandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func runWithSpinner(title string, fn func() error) error {
	var err error
	_ = spinner.New().
		Title(title).
		Action(func() { err = fn() }).
		Run()
	if err != nil {
		return err
	}
	fmt.Println(successStyle.Render("✓ " + title))
	return nil
}
