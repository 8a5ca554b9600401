package video

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"
	"go.uber.org/zap"

	"script2vid/internal/app/model"
	"script2vid/internal/visuals"
)

const (
	defaultFFmpegPath      = "ffmpeg"
	defaultFrameRate       = 25
	defaultPreset          = "veryfast"
	defaultAudioBitrate    = "192k"
	DefaultProbeFallback   = 120.0
	maxErrorOutputBytes    = 2048
	defaultResolutionWidth = visuals.DefaultWidth
)

type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

type Compiler struct {
	ffmpegPath       string
	scratch          *Scratch
	width            int
	height           int
	frameRate        int
	preset           string
	fallbackDuration float64
	thumbWidth       int
	thumbQuality     int
	prober           DurationProber
	run              runFunc
	logger           *zap.Logger
}

type CompilerOptions struct {
	FFmpegPath       string
	Scratch          *Scratch
	Resolution       string
	FrameRate        int
	Preset           string
	ProbeFallback    float64
	ThumbnailWidth   int
	ThumbnailQuality int
	Prober           DurationProber
	Logger           *zap.Logger
}

type CompileRequest struct {
	RequestID string
	Audio     []byte
	Slides    []visuals.Slide
}

type CompileResult struct {
	Data     []byte
	Duration float64
	// DurationProbed is false when the fallback duration was substituted.
	DurationProbed bool
}

type slideInput struct {
	path     string
	duration time.Duration
}

type compilerOption func(*Compiler)

func withRunner(run runFunc) compilerOption {
	return func(c *Compiler) {
		c.run = run
	}
}

func NewCompiler(opts CompilerOptions) *Compiler {
	return newCompiler(opts)
}

func newCompiler(opts CompilerOptions, extra ...compilerOption) *Compiler {
	width, height := parseResolution(opts.Resolution)

	c := &Compiler{
		ffmpegPath:       opts.FFmpegPath,
		scratch:          opts.Scratch,
		width:            width,
		height:           height,
		frameRate:        opts.FrameRate,
		preset:           opts.Preset,
		fallbackDuration: opts.ProbeFallback,
		thumbWidth:       opts.ThumbnailWidth,
		thumbQuality:     opts.ThumbnailQuality,
		prober:           opts.Prober,
		run:              execRun,
		logger:           opts.Logger,
	}
	if c.ffmpegPath == "" {
		c.ffmpegPath = defaultFFmpegPath
	}
	if c.scratch == nil {
		c.scratch = NewScratch("")
	}
	if c.frameRate <= 0 {
		c.frameRate = defaultFrameRate
	}
	if c.preset == "" {
		c.preset = defaultPreset
	}
	if c.fallbackDuration <= 0 {
		c.fallbackDuration = DefaultProbeFallback
	}
	if c.thumbWidth <= 0 {
		c.thumbWidth = defaultThumbnailWidth
	}
	if c.thumbQuality <= 0 || c.thumbQuality > 100 {
		c.thumbQuality = defaultThumbnailQuality
	}
	if c.prober == nil {
		c.prober = FFprobe{}
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}

	for _, opt := range extra {
		opt(c)
	}
	return c
}

func parseResolution(res string) (int, int) {
	parts := strings.Split(res, "x")
	if len(parts) != 2 {
		return defaultResolutionWidth, visuals.DefaultHeight
	}
	w, err1 := strconv.Atoi(parts[0])
	h, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || w <= 0 || h <= 0 {
		return defaultResolutionWidth, visuals.DefaultHeight
	}
	// libx264 with yuv420p needs even dimensions.
	return w &^ 1, h &^ 1
}

func (c *Compiler) Compile(ctx context.Context, req CompileRequest) (*CompileResult, error) {
	if len(req.Audio) == 0 {
		return nil, errors.New("no audio to compile")
	}
	if len(req.Slides) == 0 {
		return nil, errors.New("no slides to compile")
	}

	audioPath, err := c.scratch.Write(req.RequestID, "audio.mp3", req.Audio)
	if err != nil {
		return nil, err
	}

	inputs := make([]slideInput, len(req.Slides))
	for i, slide := range req.Slides {
		path, err := c.scratch.Write(req.RequestID, fmt.Sprintf("slide_%d.png", i), slide.Image)
		if err != nil {
			return nil, err
		}
		inputs[i] = slideInput{path: path, duration: slide.Duration}
	}

	outputPath := c.scratch.Path(req.RequestID, "video.mp4")
	args := c.buildArgs(audioPath, inputs, outputPath)

	c.logger.Debug("Running ffmpeg", zap.String("request_id", req.RequestID), zap.Strings("args", args))
	if output, err := c.run(ctx, c.ffmpegPath, args...); err != nil {
		return nil, fmt.Errorf("ffmpeg failed: %w, output: %s", err, tail(output, maxErrorOutputBytes))
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, fmt.Errorf("read compiled video: %w", err)
	}

	duration, probed := c.measure(ctx, req.RequestID, outputPath)

	return &CompileResult{
		Data:           data,
		Duration:       duration,
		DurationProbed: probed,
	}, nil
}

func (c *Compiler) buildArgs(audioPath string, slides []slideInput, outputPath string) []string {
	size := fmt.Sprintf("%d:%d", c.width, c.height)

	frames := make([]*ffmpeg.Stream, 0, len(slides))
	for _, slide := range slides {
		seconds := slide.duration.Seconds()
		if seconds <= 0 {
			seconds = visuals.DefaultSlideSeconds
		}
		input := ffmpeg.Input(slide.path, ffmpeg.KwArgs{
			"loop": "1",
			"t":    strconv.FormatFloat(seconds, 'f', -1, 64),
		})
		frames = append(frames, input.
			Filter("scale", ffmpeg.Args{size}).
			Filter("setsar", ffmpeg.Args{"1"}).
			Filter("fps", ffmpeg.Args{strconv.Itoa(c.frameRate)}))
	}

	visual := ffmpeg.Concat(frames).Filter("format", ffmpeg.Args{"yuv420p"})
	audio := ffmpeg.Input(audioPath).Audio()

	return ffmpeg.Output([]*ffmpeg.Stream{visual, audio}, outputPath, ffmpeg.KwArgs{
		"c:v":      "libx264",
		"preset":   c.preset,
		"pix_fmt":  "yuv420p",
		"c:a":      "aac",
		"b:a":      defaultAudioBitrate,
		"movflags": "+faststart",
		"shortest": "",
	}).OverWriteOutput().GetArgs()
}

// measure reads the real duration back from the artifact, substituting the
// fallback when probing fails.
func (c *Compiler) measure(ctx context.Context, requestID, path string) (float64, bool) {
	duration, err := c.prober.Duration(ctx, path)
	if err == nil && duration > 0 && !math.IsInf(duration, 0) {
		return duration, true
	}
	if err == nil {
		err = fmt.Errorf("unusable duration %v", duration)
	}

	c.logger.Warn("Using fallback video duration",
		zap.String("request_id", requestID),
		zap.Float64("fallback_seconds", c.fallbackDuration),
		zap.Error(fmt.Errorf("%w: %w", model.ErrDurationProbe, err)),
	)
	return c.fallbackDuration, false
}

// FFprobe reads container duration through ffprobe's JSON output.
type FFprobe struct{}

func (FFprobe) Duration(_ context.Context, path string) (float64, error) {
	out, err := ffmpeg.Probe(path)
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}
	return parseProbeDuration(out)
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func parseProbeDuration(raw string) (float64, error) {
	var out probeOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return 0, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if out.Format.Duration == "" {
		return 0, errors.New("ffprobe output has no duration")
	}
	duration, err := strconv.ParseFloat(strings.TrimSpace(out.Format.Duration), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", out.Format.Duration, err)
	}
	return duration, nil
}

func execRun(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

func tail(output []byte, n int) string {
	if len(output) <= n {
		return string(output)
	}
	return "..." + string(output[len(output)-n:])
}
