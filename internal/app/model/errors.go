package model

import "errors"

var (
	ErrValidation    = errors.New("validation error")
	ErrSynthesis     = errors.New("synthesis failure")
	ErrRender        = errors.New("render failure")
	ErrCompile       = errors.New("compile failure")
	ErrPublish       = errors.New("publish failure")
	ErrDurationProbe = errors.New("duration probe failure")
	ErrNotFound      = errors.New("record not found")
	ErrQueueFull     = errors.New("pipeline queue is full")
)
