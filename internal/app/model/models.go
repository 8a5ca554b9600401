package model

import (
	"fmt"
	"strings"
	"time"
)

const (
	StatusProcessing VideoStatus = "processing"
	StatusCompleted  VideoStatus = "completed"
	StatusFailed     VideoStatus = "failed"
)

type VideoStatus string

func (s VideoStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// SubmitInput is the wire shape of a generation submission. UserID is the
// legacy name for OwnerID and is only consulted when OwnerID is empty.
type SubmitInput struct {
	Title              string `json:"title"`
	Content            string `json:"content"`
	VoiceID            string `json:"voiceId"`
	AutoGenerateImages bool   `json:"autoGenerateImages"`
	OwnerID            string `json:"ownerId"`
	UserID             string `json:"userId,omitempty"`
}

// GenerationRequest is a validated submission. It is passed by value and never
// modified once the pipeline has accepted it.
type GenerationRequest struct {
	Title              string
	Content            string
	VoiceID            string
	AutoGenerateImages bool
	OwnerID            string
}

func (in SubmitInput) Validate() (GenerationRequest, error) {
	owner := in.OwnerID
	if strings.TrimSpace(owner) == "" {
		owner = in.UserID
	}

	required := []struct {
		field string
		value string
	}{
		{"title", in.Title},
		{"content", in.Content},
		{"voiceId", in.VoiceID},
		{"ownerId", owner},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return GenerationRequest{}, fmt.Errorf("%w: %s is required", ErrValidation, r.field)
		}
	}

	return GenerationRequest{
		Title:              strings.TrimSpace(in.Title),
		Content:            in.Content,
		VoiceID:            strings.TrimSpace(in.VoiceID),
		AutoGenerateImages: in.AutoGenerateImages,
		OwnerID:            strings.TrimSpace(owner),
	}, nil
}

type ArtifactURLs struct {
	Video     string `json:"video"`
	Audio     string `json:"audio"`
	Subtitle  string `json:"subtitle"`
	Thumbnail string `json:"thumbnail"`
}

func (u ArtifactURLs) Complete() bool {
	return u.Video != "" && u.Audio != "" && u.Subtitle != "" && u.Thumbnail != ""
}

type Metadata struct {
	WordCount                int     `json:"wordCount"`
	EstimatedDurationSeconds float64 `json:"estimatedDurationSeconds"`
	ImageCount               int     `json:"imageCount"`
	SyncedSubtitles          bool    `json:"syncedSubtitles"`
	ErrorDetail              string  `json:"errorDetail,omitempty"`
}

type VideoRecord struct {
	ID          string       `json:"id"`
	OwnerID     string       `json:"ownerId"`
	Title       string       `json:"title"`
	Status      VideoStatus  `json:"status"`
	Duration    string       `json:"duration"`
	URLs        ArtifactURLs `json:"artifactUrls"`
	Metadata    Metadata     `json:"metadata"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	CompletedAt *time.Time   `json:"completedAt,omitempty"`
}

// Clone returns a deep copy so callers cannot alias stored records.
func (r *VideoRecord) Clone() *VideoRecord {
	if r == nil {
		return nil
	}
	c := *r
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
