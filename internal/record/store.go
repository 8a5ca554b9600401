package record

import (
	"context"
	"errors"

	"script2vid/internal/app/model"
)

var ErrDuplicate = errors.New("record already exists")

// Store persists video status records. Get and Update return
// model.ErrNotFound for unknown ids.
type Store interface {
	Create(ctx context.Context, rec *model.VideoRecord) error
	Get(ctx context.Context, id string) (*model.VideoRecord, error)
	Update(ctx context.Context, rec *model.VideoRecord) error
}

func checkRecord(rec *model.VideoRecord) error {
	if rec == nil || rec.ID == "" {
		return errors.New("record id is required")
	}
	return nil
}
