package middleware

import (
	"context"
	"errors"

	"shutterbook/internal/app/commands"
)

var ErrForbidden = errors.New("middleware: operation requires an administrator")

// AdminCommand marks commands reserved for studio staff.
type AdminCommand interface {
	commands.Command
	AdminOnly()
}

// Actor is the caller identity placed in context by the transport.
type Actor struct {
	ID    string
	Admin bool
}

type actorKey struct{}

func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func ActorFrom(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}

type Authorizer interface {
	Authorize(ctx context.Context, cmd commands.Command) error
}

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(ctx context.Context, cmd commands.Command) error

func (f AuthorizerFunc) Authorize(ctx context.Context, cmd commands.Command) error {
	return f(ctx, cmd)
}

// AdminAuthorizer rejects AdminCommand dispatches whose actor is not an
// administrator. Other commands pass.
var AdminAuthorizer = AuthorizerFunc(func(ctx context.Context, cmd commands.Command) error {
	if _, restricted := cmd.(AdminCommand); !restricted {
		return nil
	}
	if actor, ok := ActorFrom(ctx); ok && actor.Admin {
		return nil
	}
	return ErrForbidden
})

func Authorization(a Authorizer) CommandMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if err := a.Authorize(ctx, cmd); err != nil {
				return nil, err
			}
			return next.Dispatch(ctx, cmd)
		})
	}
}
