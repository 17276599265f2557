package middleware

import (
	"context"
	"log/slog"
	"time"

	"shutterbook/internal/app/commands"
	"shutterbook/internal/app/queries"
	"shutterbook/internal/domain/shared/apperr"
)

// Logging records one line per command. Business rejections log at Info with
// their kind and code; anything else logs at Error.
func Logging(logger *slog.Logger) CommandMiddleware {
	if logger == nil {
		return nil
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			start := time.Now()
			res, err := next.Dispatch(ctx, cmd)
			logResult(ctx, logger, "command", cmd.Key(), time.Since(start), err)
			return res, err
		})
	}
}

func QueryLogging(logger *slog.Logger) QueryMiddleware {
	if logger == nil {
		return nil
	}
	return func(next queries.Bus) queries.Bus {
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			start := time.Now()
			res, err := next.Ask(ctx, q)
			logResult(ctx, logger, "query", q.Key(), time.Since(start), err)
			return res, err
		})
	}
}

func logResult(ctx context.Context, logger *slog.Logger, kind, key string, took time.Duration, err error) {
	attrs := []any{kind, key, "duration_ms", took.Milliseconds()}
	switch {
	case err == nil:
		logger.DebugContext(ctx, kind+" handled", attrs...)
	case apperr.CodeOf(err) != "":
		k, _ := apperr.KindOf(err)
		logger.InfoContext(ctx, kind+" rejected", append(attrs, "kind", k, "code", apperr.CodeOf(err), "error", err)...)
	default:
		logger.ErrorContext(ctx, kind+" failed", append(attrs, "error", err)...)
	}
}
