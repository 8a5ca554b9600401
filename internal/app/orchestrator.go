package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"script2vid/internal/app/model"
	"script2vid/internal/metrics"
	"script2vid/internal/publish"
	"script2vid/internal/record"
	"script2vid/internal/speech"
	"script2vid/internal/video"
	"script2vid/internal/visuals"
	"script2vid/pkg/retry"
)

const (
	stageSynthesis = "synthesis"
	stageImages    = "images"
	stageSubtitles = "subtitles"
	stageCompile   = "compile"
	stageThumbnail = "thumbnail"
	stagePublish   = "publish"
)

type SlideRenderer interface {
	Generate(content string, autoGenerate bool) (*visuals.SlideSet, error)
}

type VideoCompiler interface {
	Compile(ctx context.Context, req video.CompileRequest) (*video.CompileResult, error)
	Thumbnail(slide []byte) ([]byte, error)
}

type ArtifactPublisher interface {
	Publish(ctx context.Context, req publish.PublishRequest) (model.ArtifactURLs, error)
}

type TransientStore interface {
	Cleanup(requestID string) (int, error)
}

type Dependencies struct {
	Store       record.Store
	Synthesizer speech.Synthesizer
	Slides      SlideRenderer
	Aligner     *video.SubtitleAligner
	Compiler    VideoCompiler
	Publisher   ArtifactPublisher
	Scratch     TransientStore
	Metrics     *metrics.Metrics
	Logger      *zap.Logger
	// SynthesisRetry with MaxRetries zero makes a single attempt.
	SynthesisRetry retry.Config
	Clock          func() time.Time
	NewID          func() string
}

type Orchestrator struct {
	store     record.Store
	synth     speech.Synthesizer
	slides    SlideRenderer
	aligner   *video.SubtitleAligner
	compiler  VideoCompiler
	publisher ArtifactPublisher
	scratch   TransientStore
	metrics   *metrics.Metrics
	logger    *zap.Logger
	retry     retry.Config
	clock     func() time.Time
	newID     func() string
}

type runResult struct {
	urls     model.ArtifactURLs
	duration float64
	slides   int
	synced   bool
}

func NewOrchestrator(deps Dependencies) (*Orchestrator, error) {
	var missing []string
	if deps.Store == nil {
		missing = append(missing, "store")
	}
	if deps.Synthesizer == nil {
		missing = append(missing, "synthesizer")
	}
	if deps.Slides == nil {
		missing = append(missing, "slides")
	}
	if deps.Compiler == nil {
		missing = append(missing, "compiler")
	}
	if deps.Publisher == nil {
		missing = append(missing, "publisher")
	}
	if deps.Scratch == nil {
		missing = append(missing, "scratch")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("orchestrator: missing dependencies %v", missing)
	}

	o := &Orchestrator{
		store:     deps.Store,
		synth:     deps.Synthesizer,
		slides:    deps.Slides,
		aligner:   deps.Aligner,
		compiler:  deps.Compiler,
		publisher: deps.Publisher,
		scratch:   deps.Scratch,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		retry:     deps.SynthesisRetry,
		clock:     deps.Clock,
		newID:     deps.NewID,
	}
	if o.aligner == nil {
		o.aligner = video.NewSubtitleAligner(video.SubtitleOptions{})
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.clock == nil {
		o.clock = func() time.Time { return time.Now().UTC() }
	}
	if o.newID == nil {
		o.newID = uuid.NewString
	}
	return o, nil
}

// Submit inserts the processing record for an accepted request.
func (o *Orchestrator) Submit(ctx context.Context, req model.GenerationRequest) (*model.VideoRecord, error) {
	now := o.clock()
	words := speech.WordCount(req.Content)

	rec := &model.VideoRecord{
		ID:      o.newID(),
		OwnerID: req.OwnerID,
		Title:   req.Title,
		Status:  model.StatusProcessing,
		Metadata: model.Metadata{
			WordCount:                words,
			EstimatedDurationSeconds: estimateSeconds(words),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := o.store.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("create record: %w", err)
	}
	return rec.Clone(), nil
}

// Run executes every stage for rec and writes its single terminal update.
// Transient files are removed on every path.
func (o *Orchestrator) Run(ctx context.Context, rec *model.VideoRecord, req model.GenerationRequest) (*model.VideoRecord, error) {
	o.metrics.RunStarted()
	defer o.metrics.RunDone()
	defer o.cleanup(rec.ID)

	logger := o.logger.With(zap.String("request_id", rec.ID))
	logger.Info("Pipeline started", zap.String("owner_id", req.OwnerID), zap.Int("words", rec.Metadata.WordCount))

	result, err := o.execute(ctx, logger, rec.ID, req)
	return o.finish(ctx, logger, rec, result, err)
}

// Abort marks a record that will never run as failed.
func (o *Orchestrator) Abort(ctx context.Context, rec *model.VideoRecord, cause error) (*model.VideoRecord, error) {
	logger := o.logger.With(zap.String("request_id", rec.ID))
	return o.finish(ctx, logger, rec, nil, cause)
}

func (o *Orchestrator) execute(ctx context.Context, logger *zap.Logger, requestID string, req model.GenerationRequest) (*runResult, error) {
	var speechResult *speech.SpeechResult
	err := o.stage(logger, stageSynthesis, func() error {
		var err error
		speechResult, err = retry.Do(ctx, o.retry, func(ctx context.Context) (*speech.SpeechResult, error) {
			return o.synth.Synthesize(ctx, req.Content, req.VoiceID)
		}, nil)
		if err == nil && (speechResult == nil || len(speechResult.Audio) == 0) {
			err = errors.New("synthesizer returned no audio")
		}
		return err
	})
	if err != nil {
		return nil, classify(model.ErrSynthesis, err)
	}

	var slides *visuals.SlideSet
	err = o.stage(logger, stageImages, func() error {
		var err error
		slides, err = o.slides.Generate(req.Content, req.AutoGenerateImages)
		if err == nil && slides.Len() == 0 {
			err = errors.New("no slides rendered")
		}
		return err
	})
	if err != nil {
		return nil, classify(model.ErrRender, err)
	}

	var srt []byte
	synced := len(speechResult.Timings) > 0
	err = o.stage(logger, stageSubtitles, func() error {
		var cues []video.Cue
		if synced {
			cues = o.aligner.AlignFromTimings(speechResult.Timings)
		} else {
			cues = o.aligner.Align(req.Content)
		}
		if len(cues) == 0 {
			return errors.New("no subtitle cues")
		}
		srt = []byte(video.FormatSRT(cues))
		return nil
	})
	if err != nil {
		return nil, classify(model.ErrRender, err)
	}

	var compiled *video.CompileResult
	err = o.stage(logger, stageCompile, func() error {
		var err error
		compiled, err = o.compiler.Compile(ctx, video.CompileRequest{
			RequestID: requestID,
			Audio:     speechResult.Audio,
			Slides:    slides.Slides,
		})
		return err
	})
	if err != nil {
		return nil, classify(model.ErrCompile, err)
	}

	var thumbnail []byte
	err = o.stage(logger, stageThumbnail, func() error {
		var err error
		thumbnail, err = o.compiler.Thumbnail(slides.Slides[0].Image)
		return err
	})
	if err != nil {
		return nil, classify(model.ErrRender, err)
	}

	var urls model.ArtifactURLs
	err = o.stage(logger, stagePublish, func() error {
		var err error
		urls, err = o.publisher.Publish(ctx, publish.PublishRequest{
			OwnerID:   req.OwnerID,
			RequestID: requestID,
			Video:     compiled.Data,
			Audio:     speechResult.Audio,
			Subtitle:  srt,
			Thumbnail: thumbnail,
		})
		return err
	})
	if err != nil {
		return nil, classify(model.ErrPublish, err)
	}

	return &runResult{
		urls:     urls,
		duration: compiled.Duration,
		slides:   slides.Len(),
		synced:   synced,
	}, nil
}

func (o *Orchestrator) stage(logger *zap.Logger, name string, fn func() error) error {
	started := time.Now()
	logger.Debug("Stage started", zap.String("stage", name))

	err := fn()
	o.metrics.ObserveStage(name, started, err)
	if err == nil {
		logger.Debug("Stage finished", zap.String("stage", name), zap.Duration("elapsed", time.Since(started)))
	}
	return err
}

func (o *Orchestrator) finish(ctx context.Context, logger *zap.Logger, rec *model.VideoRecord, result *runResult, runErr error) (*model.VideoRecord, error) {
	final := rec.Clone()
	now := o.clock()
	final.UpdatedAt = now

	if runErr != nil {
		final.Status = model.StatusFailed
		final.Duration = ""
		final.URLs = model.ArtifactURLs{}
		final.CompletedAt = nil
		final.Metadata.ErrorDetail = runErr.Error()
		logger.Error("Pipeline failed", zap.Error(runErr))
	} else {
		final.Status = model.StatusCompleted
		final.Duration = formatDuration(result.duration)
		final.URLs = result.urls
		final.CompletedAt = &now
		final.Metadata.ImageCount = result.slides
		final.Metadata.SyncedSubtitles = result.synced
		final.Metadata.ErrorDetail = ""
		logger.Info("Pipeline completed", zap.String("duration", final.Duration), zap.Int("slides", result.slides))
	}

	if err := o.store.Update(ctx, final); err != nil {
		logger.Error("Failed to persist terminal record", zap.String("status", string(final.Status)), zap.Error(err))
		return final, errors.Join(runErr, fmt.Errorf("update record: %w", err))
	}
	o.metrics.RunFinished(string(final.Status))
	return final, runErr
}

func (o *Orchestrator) cleanup(requestID string) {
	removed, err := o.scratch.Cleanup(requestID)
	if err != nil {
		o.logger.Warn("Transient cleanup incomplete", zap.String("request_id", requestID), zap.Error(err))
		return
	}
	o.logger.Debug("Transient files removed", zap.String("request_id", requestID), zap.Int("files", removed))
}

// classify tags err with its pipeline failure kind unless it already carries it.
func classify(kind, err error) error {
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}
