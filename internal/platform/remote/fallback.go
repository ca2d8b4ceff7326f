package remote

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// FallbackRecorder counts fallbacks; telemetry.Metrics implements it.
type FallbackRecorder interface {
	RecordFallback(resource, operation string)
}

// Fallback is the policy shared by every remote-first repository: try
// primary, and only when it reports ErrUnreachable run secondary instead.
type Fallback struct {
	Resource string
	Logger   zerolog.Logger
	Recorder FallbackRecorder
}

// Do runs the policy for one operation.
func Do[T any](ctx context.Context, f Fallback, op string, primary, secondary func(context.Context) (T, error)) (T, error) {
	v, err := primary(ctx)
	if err == nil || !errors.Is(err, ErrUnreachable) {
		return v, err
	}
	f.Logger.Warn().
		Err(err).
		Str("resource", f.Resource).
		Str("op", op).
		Msg("remote unreachable, using local state")
	if f.Recorder != nil {
		f.Recorder.RecordFallback(f.Resource, op)
	}
	return secondary(ctx)
}
