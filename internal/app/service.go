package app

import (
	"context"
	"fmt"

	"script2vid/internal/app/model"
	"script2vid/internal/record"
)

type Service struct {
	orch  *Orchestrator
	pool  *WorkerPool
	store record.Store
}

type ServiceOptions struct {
	Orchestrator *Orchestrator
	Pool         *WorkerPool
	Store        record.Store
}

func NewService(opts ServiceOptions) *Service {
	return &Service{
		orch:  opts.Orchestrator,
		pool:  opts.Pool,
		store: opts.Store,
	}
}

// Submit validates input and queues a pipeline. The returned record is in
// processing state unless the pool rejected it.
func (s *Service) Submit(ctx context.Context, in model.SubmitInput) (*model.VideoRecord, error) {
	req, err := in.Validate()
	if err != nil {
		return nil, err
	}
	return s.pool.Submit(ctx, req)
}

// Generate runs one pipeline in the calling goroutine.
func (s *Service) Generate(ctx context.Context, in model.SubmitInput) (*model.VideoRecord, error) {
	req, err := in.Validate()
	if err != nil {
		return nil, err
	}

	rec, err := s.orch.Submit(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.orch.Run(ctx, rec, req)
}

func (s *Service) Get(ctx context.Context, id string) (*model.VideoRecord, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

func (s *Service) Shutdown(ctx context.Context) error {
	return s.pool.Shutdown(ctx)
}
