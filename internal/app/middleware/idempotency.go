package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"shutterbook/internal/app/commands"
	"shutterbook/internal/domain/shared/apperr"
)

// IdempotentCommand is implemented by commands that replay their first
// outcome when retried with the same key.
type IdempotentCommand interface {
	commands.Command
	IdempotencyKey() string
	ResultPrototype() any // pointer to a value of the handler result type
}

// ReservationLease bounds how long a reserved key blocks retries when the
// process holding it dies before saving an outcome.
const ReservationLease = time.Minute

// ErrRequestInFlight rejects a retry that arrives while the first request
// with the same key is still running.
var ErrRequestInFlight = apperr.Conflict("RequestInProgress", "a request with this idempotency key is still being processed")

// IdempotencyRecord is the stored outcome. Business rejections are kept with
// their kind and code so a replay is classified like the original. A pending
// record is a reservation without an outcome yet.
type IdempotencyRecord struct {
	Key        string    `json:"key" bson:"_id"`
	Pending    bool      `json:"pending,omitempty" bson:"pending,omitempty"`
	Payload    []byte    `json:"payload,omitempty" bson:"payload,omitempty"`
	ErrorKind  string    `json:"error_kind,omitempty" bson:"error_kind,omitempty"`
	ErrorCode  string    `json:"error_code,omitempty" bson:"error_code,omitempty"`
	Error      string    `json:"error,omitempty" bson:"error,omitempty"`
	OccurredAt time.Time `json:"occurred_at" bson:"occurred_at"`
}

func (r IdempotencyRecord) Failed() bool { return r.Error != "" }

// Err rebuilds the business error stored in the record.
func (r IdempotencyRecord) Err() error {
	if !r.Failed() {
		return nil
	}
	return apperr.New(apperr.Kind(r.ErrorKind), r.ErrorCode, r.Error)
}

// Stale reports whether a pending reservation outlived its lease.
func (r IdempotencyRecord) Stale(now time.Time) bool {
	return r.Pending && now.Sub(r.OccurredAt) > ReservationLease
}

// IdempotencyStore persists outcomes. Reserve claims a key atomically: it
// succeeds when the key is absent or holds a stale reservation, and reports
// false otherwise. Release drops the caller's own reservation.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (IdempotencyRecord, bool, error)
	Reserve(ctx context.Context, key string, now time.Time) (bool, error)
	Save(ctx context.Context, rec IdempotencyRecord) error
	Release(ctx context.Context, key string) error
}

type ResultCodec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, out any) error
}

type JSONResultCodec struct{}

func (JSONResultCodec) Encode(v any) ([]byte, error) { return json.Marshal(v) }

func (JSONResultCodec) Decode(data []byte, out any) error { return json.Unmarshal(data, out) }

var errMissingPrototype = errors.New("middleware: idempotent command requires result prototype")

// Idempotency replays stored outcomes keyed by command key and idempotency
// key. Infrastructure failures are not stored so the caller can retry them.
func Idempotency(store IdempotencyStore, codec ResultCodec) CommandMiddleware {
	if store == nil {
		panic("middleware: idempotency store required")
	}
	if codec == nil {
		codec = JSONResultCodec{}
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			idCmd, ok := cmd.(IdempotentCommand)
			if !ok || idCmd.IdempotencyKey() == "" {
				return next.Dispatch(ctx, cmd)
			}
			key := cmd.Key() + ":" + idCmd.IdempotencyKey()
			now := time.Now().UTC()
			rec, found, err := store.Get(ctx, key)
			if err != nil {
				return nil, fmt.Errorf("idempotency lookup: %w", err)
			}
			if found && !rec.Pending {
				return replay(rec, idCmd, codec)
			}
			if found && !rec.Stale(now) {
				return nil, ErrRequestInFlight
			}
			reserved, err := store.Reserve(ctx, key, now)
			if err != nil {
				return nil, fmt.Errorf("idempotency reserve: %w", err)
			}
			if !reserved {
				// Lost the race: replay the winner if it already finished.
				rec, found, err := store.Get(ctx, key)
				if err != nil {
					return nil, fmt.Errorf("idempotency lookup: %w", err)
				}
				if found && !rec.Pending {
					return replay(rec, idCmd, codec)
				}
				return nil, ErrRequestInFlight
			}

			result, err := next.Dispatch(ctx, cmd)
			record := IdempotencyRecord{Key: key, OccurredAt: time.Now().UTC()}
			if err != nil {
				appErr, business := apperr.As(err)
				if !business {
					if relErr := store.Release(ctx, key); relErr != nil {
						return nil, errors.Join(err, relErr)
					}
					return nil, err
				}
				record.ErrorKind = string(appErr.Kind)
				record.ErrorCode = appErr.Code
				record.Error = appErr.Error()
				if saveErr := store.Save(ctx, record); saveErr != nil {
					return nil, errors.Join(err, saveErr)
				}
				return nil, err
			}
			if result != nil {
				payload, encErr := codec.Encode(result)
				if encErr != nil {
					return nil, encErr
				}
				record.Payload = payload
			}
			if saveErr := store.Save(ctx, record); saveErr != nil {
				return nil, fmt.Errorf("idempotency save: %w", saveErr)
			}
			return result, nil
		})
	}
}

func replay(rec IdempotencyRecord, cmd IdempotentCommand, codec ResultCodec) (any, error) {
	if rec.Failed() {
		return nil, rec.Err()
	}
	proto := cmd.ResultPrototype()
	if proto == nil {
		return nil, errMissingPrototype
	}
	if len(rec.Payload) == 0 {
		return nil, nil
	}
	if err := codec.Decode(rec.Payload, proto); err != nil {
		return nil, fmt.Errorf("idempotency decode: %w", err)
	}
	return normalizePrototype(proto), nil
}

func normalizePrototype(proto any) any {
	rv := reflect.ValueOf(proto)
	if rv.Kind() == reflect.Ptr && !rv.IsNil() {
		return rv.Interface()
	}
	return proto
}
