package middleware

import (
	"context"

	"shutterbook/internal/app/aftercommit"
	"shutterbook/internal/app/commands"
)

// AfterCommit collects hooks registered by handlers and runs them once the
// inner chain, Transaction included, returned without error. It must sit
// outside Transaction.
func AfterCommit() CommandMiddleware {
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if _, ok := aftercommit.FromContext(ctx); ok {
				return next.Dispatch(ctx, cmd)
			}
			execCtx, queue := aftercommit.WithQueue(ctx)
			res, err := next.Dispatch(execCtx, cmd)
			if err != nil {
				queue.Discard()
				return nil, err
			}
			queue.Run(context.WithoutCancel(ctx))
			return res, nil
		})
	}
}
