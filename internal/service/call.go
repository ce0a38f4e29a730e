package service

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/lms-go-api/internal/apperror"
)

// op names a wrapped call, the fields logged with it and the database error messages to use.
type op struct {
	name      string
	fields    map[string]interface{}
	overrides apperror.Overrides
}

// invoke runs fn, logs its outcome and translates known database failures into *apperror.Error.
// Mapped failures are logged at warn level, anything else at error level; unmapped errors
// are returned unchanged.
func invoke[T any](ctx context.Context, logger zerolog.Logger, o op, fn func(context.Context) (T, error)) (T, error) {
	start := time.Now()
	result, err := fn(ctx)
	elapsed := time.Since(start)

	if err == nil {
		logger.Debug().Str("op", o.name).Fields(o.fields).Dur("duration", elapsed).Msg("call completed")
		return result, nil
	}

	translated := apperror.FromDatabase(err, o.overrides)
	if appErr, ok := apperror.As(translated); ok {
		logger.Warn().Str("op", o.name).Fields(o.fields).Int("status", appErr.Status).Err(err).Msg("call failed")
	} else {
		logger.Error().Str("op", o.name).Fields(o.fields).Err(err).Msg("call failed")
	}

	return result, translated
}

// invokeErr is invoke for calls without a result.
func invokeErr(ctx context.Context, logger zerolog.Logger, o op, fn func(context.Context) error) error {
	_, err := invoke(ctx, logger, o, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

func fields(kv ...interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		if key, ok := kv[i].(string); ok {
			out[key] = kv[i+1]
		}
	}
	return out
}

func isNotFound(err error) bool {
	if kind, ok := apperror.Classify(err); ok {
		return kind == apperror.KindNotFound
	}
	return apperror.StatusOf(err) == http.StatusNotFound
}
