package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitInputValidate(t *testing.T) {
	valid := SubmitInput{
		Title:   "Demo",
		Content: "Hello world. This is a test.",
		VoiceID: "v1",
		OwnerID: "owner-1",
	}

	tests := []struct {
		name      string
		mutate    func(in *SubmitInput)
		wantErr   bool
		wantField string
		wantOwner string
	}{
		{
			name:      "validInput",
			mutate:    func(in *SubmitInput) {},
			wantOwner: "owner-1",
		},
		{
			name:      "missingTitle",
			mutate:    func(in *SubmitInput) { in.Title = "" },
			wantErr:   true,
			wantField: "title",
		},
		{
			name:      "whitespaceContent",
			mutate:    func(in *SubmitInput) { in.Content = "   \n" },
			wantErr:   true,
			wantField: "content",
		},
		{
			name:      "missingVoice",
			mutate:    func(in *SubmitInput) { in.VoiceID = "" },
			wantErr:   true,
			wantField: "voiceId",
		},
		{
			name:      "missingOwner",
			mutate:    func(in *SubmitInput) { in.OwnerID = "" },
			wantErr:   true,
			wantField: "ownerId",
		},
		{
			name: "legacyUserID",
			mutate: func(in *SubmitInput) {
				in.OwnerID = ""
				in.UserID = "user-9"
			},
			wantOwner: "user-9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)

			req, err := in.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrValidation))
				assert.Contains(t, err.Error(), tt.wantField)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOwner, req.OwnerID)
			assert.Equal(t, in.Content, req.Content)
		})
	}
}

func TestVideoRecordClone(t *testing.T) {
	done := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rec := &VideoRecord{ID: "a", Status: StatusCompleted, CompletedAt: &done}

	c := rec.Clone()
	c.Status = StatusFailed
	*c.CompletedAt = done.Add(time.Hour)

	assert.Equal(t, StatusCompleted, rec.Status)
	assert.Equal(t, done, *rec.CompletedAt)
	assert.Nil(t, (*VideoRecord)(nil).Clone())
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusProcessing.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
}
