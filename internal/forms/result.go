package forms

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/2beens/whole2swole/internal/gymlog"
	"github.com/2beens/whole2swole/internal/telemetry/metrics"
)

type Status string

const (
	StatusIdle     Status = ""
	StatusSaved    Status = "saved"
	StatusRejected Status = "rejected"
	StatusFailed   Status = "failed"
	StatusBusy     Status = "busy"
)

const MessageBusy = "A save is already in progress."

// Result is the outcome of a single submit, rendered next to the form.
type Result struct {
	Status  Status
	Message string
}

func (r Result) IsError() bool {
	return r.Status == StatusRejected || r.Status == StatusFailed || r.Status == StatusBusy
}

// ValidationError is a local rejection: the store is never contacted.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=forms_test

type WorkoutSaver interface {
	CreateWorkout(ctx context.Context, data gymlog.WorkoutData) error
	UpdateWorkout(ctx context.Context, id string, data gymlog.WorkoutData) error
}

type BodyStatSaver interface {
	CreateBodyStat(ctx context.Context, data gymlog.BodyStatData) error
	UpdateBodyStat(ctx context.Context, id string, data gymlog.BodyStatData) error
}

// busyGuard admits one in-flight save at a time.
type busyGuard struct {
	busy atomic.Bool
}

func (g *busyGuard) acquire() bool {
	return g.busy.CompareAndSwap(false, true)
}

func (g *busyGuard) release() {
	g.busy.Store(false)
}

func (g *busyGuard) Busy() bool {
	return g.busy.Load()
}

func countSave(m *metrics.Manager, kind string, status Status) {
	if m == nil {
		return
	}
	m.CounterSaves.WithLabelValues(kind, string(status)).Inc()
}
