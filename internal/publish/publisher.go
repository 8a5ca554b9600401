package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"

	"go.uber.org/zap"

	"script2vid/internal/app/model"
	"script2vid/internal/storage"
)

type Kind string

const (
	KindVideo     Kind = "video"
	KindAudio     Kind = "audio"
	KindSubtitle  Kind = "subtitle"
	KindThumbnail Kind = "thumbnail"
)

type Buckets struct {
	Video     string
	Audio     string
	Subtitle  string
	Thumbnail string
}

func DefaultBuckets() Buckets {
	return Buckets{
		Video:     "videos",
		Audio:     "audio",
		Subtitle:  "subtitles",
		Thumbnail: "thumbnails",
	}
}

func (b Buckets) withDefaults() Buckets {
	d := DefaultBuckets()
	if b.Video == "" {
		b.Video = d.Video
	}
	if b.Audio == "" {
		b.Audio = d.Audio
	}
	if b.Subtitle == "" {
		b.Subtitle = d.Subtitle
	}
	if b.Thumbnail == "" {
		b.Thumbnail = d.Thumbnail
	}
	return b
}

func (b Buckets) All() []string {
	return []string{b.Video, b.Audio, b.Subtitle, b.Thumbnail}
}

type PublishRequest struct {
	OwnerID   string
	RequestID string
	Video     []byte
	Audio     []byte
	Subtitle  []byte
	Thumbnail []byte
}

type artifact struct {
	kind        Kind
	bucket      string
	file        string
	contentType string
	data        []byte
}

type Publisher struct {
	store   storage.ObjectStore
	buckets Buckets
	logger  *zap.Logger
}

func NewPublisher(store storage.ObjectStore, buckets Buckets, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		store:   store,
		buckets: buckets.withDefaults(),
		logger:  logger,
	}
}

// Publish uploads artifacts in a fixed order and stops at the first failure.
// On error the returned URLs are always empty.
func (p *Publisher) Publish(ctx context.Context, req PublishRequest) (model.ArtifactURLs, error) {
	if req.OwnerID == "" || req.RequestID == "" {
		return model.ArtifactURLs{}, fmt.Errorf("%w: owner and request id are required", model.ErrPublish)
	}

	var urls model.ArtifactURLs
	for _, a := range p.artifacts(req) {
		if len(a.data) == 0 {
			continue
		}

		key := ObjectKey(req.OwnerID, req.RequestID, a.file)
		if err := p.store.Put(ctx, a.bucket, key, bytes.NewReader(a.data), int64(len(a.data)), a.contentType); err != nil {
			return model.ArtifactURLs{}, fmt.Errorf("%w: %s: %w", model.ErrPublish, a.kind, err)
		}

		url := p.store.PublicURL(a.bucket, key)
		p.logger.Debug("Published artifact",
			zap.String("request_id", req.RequestID),
			zap.String("kind", string(a.kind)),
			zap.String("url", url),
		)

		switch a.kind {
		case KindVideo:
			urls.Video = url
		case KindAudio:
			urls.Audio = url
		case KindSubtitle:
			urls.Subtitle = url
		case KindThumbnail:
			urls.Thumbnail = url
		}
	}

	if urls == (model.ArtifactURLs{}) {
		return model.ArtifactURLs{}, fmt.Errorf("%w: %w", model.ErrPublish, errors.New("no artifacts to publish"))
	}
	return urls, nil
}

func (p *Publisher) artifacts(req PublishRequest) []artifact {
	return []artifact{
		{kind: KindVideo, bucket: p.buckets.Video, file: "video.mp4", contentType: "video/mp4", data: req.Video},
		{kind: KindAudio, bucket: p.buckets.Audio, file: "audio.mp3", contentType: "audio/mpeg", data: req.Audio},
		{kind: KindSubtitle, bucket: p.buckets.Subtitle, file: "subtitles.srt", contentType: "application/x-subrip", data: req.Subtitle},
		{kind: KindThumbnail, bucket: p.buckets.Thumbnail, file: "thumbnail.jpg", contentType: "image/jpeg", data: req.Thumbnail},
	}
}

func ObjectKey(ownerID, requestID, file string) string {
	return path.Join(ownerID, requestID, file)
}
