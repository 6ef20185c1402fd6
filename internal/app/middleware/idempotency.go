package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"staybook/internal/app/commands"
)

// IdempotentCommand is a command whose result may be replayed for a repeated key.
// ResultPrototype returns a fresh pointer of the handler's result type to decode into.
type IdempotentCommand interface {
	commands.Command
	IdempotencyKey() string
	ResultPrototype() any
}

// FingerprintedCommand lets an idempotent command describe its request. A key
// replayed with a different fingerprint is rejected instead of answered with the
// stored result.
type FingerprintedCommand interface {
	RequestFingerprint() string
}

// IdempotencyRecord is the encoded result of a successful command. Failures are
// never recorded, so a retry with the same key runs the command again.
type IdempotencyRecord struct {
	Key         string
	Command     string
	Fingerprint string
	Payload     []byte
	OccurredAt  time.Time
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string) (IdempotencyRecord, bool, error)
	Save(ctx context.Context, rec IdempotencyRecord) error
}

type ResultCodec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, out any) error
}

type JSONResultCodec struct{}

func (JSONResultCodec) Encode(v any) ([]byte, error)      { return json.Marshal(v) }
func (JSONResultCodec) Decode(data []byte, out any) error { return json.Unmarshal(data, out) }

var (
	errMissingPrototype     = errors.New("middleware: idempotent command requires result prototype")
	ErrIdempotencyKeyReused = errors.New("middleware: idempotency key already used by another command")
)

type idempotency struct {
	store  IdempotencyStore
	codec  ResultCodec
	ttl    time.Duration
	logger *slog.Logger
}

// Idempotency replays the stored result of a command already seen with the same
// key within ttl. A zero ttl keeps records forever.
func Idempotency(store IdempotencyStore, codec ResultCodec, ttl time.Duration, logger *slog.Logger) CommandMiddleware {
	if store == nil {
		panic("middleware: idempotency store required")
	}
	if codec == nil {
		codec = JSONResultCodec{}
	}
	guard := idempotency{store: store, codec: codec, ttl: ttl, logger: logger}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			idCmd, ok := cmd.(IdempotentCommand)
			if !ok || idCmd.IdempotencyKey() == "" {
				return next.Dispatch(ctx, cmd)
			}
			if res, replayed, err := guard.replay(ctx, idCmd); err != nil || replayed {
				return res, err
			}
			res, err := next.Dispatch(ctx, cmd)
			if err != nil {
				return nil, err
			}
			guard.remember(ctx, idCmd, res)
			return res, nil
		})
	}
}

func (g idempotency) replay(ctx context.Context, cmd IdempotentCommand) (any, bool, error) {
	rec, found, err := g.store.Get(ctx, cmd.IdempotencyKey())
	if err != nil || !found {
		return nil, false, err
	}
	if g.ttl > 0 && time.Since(rec.OccurredAt) > g.ttl {
		return nil, false, nil
	}
	if rec.Command != "" && rec.Command != cmd.Key() {
		return nil, false, ErrIdempotencyKeyReused
	}
	if rec.Fingerprint != fingerprint(cmd) {
		return nil, false, ErrIdempotencyKeyReused
	}
	proto := cmd.ResultPrototype()
	if proto == nil {
		return nil, false, errMissingPrototype
	}
	if len(rec.Payload) > 0 {
		if err := g.codec.Decode(rec.Payload, proto); err != nil {
			return nil, false, err
		}
	}
	return proto, true, nil
}

// remember runs after commit. A lost record only weakens replay, so it is logged
// rather than returned.
func (g idempotency) remember(ctx context.Context, cmd IdempotentCommand, res any) {
	rec := IdempotencyRecord{
		Key:         cmd.IdempotencyKey(),
		Command:     cmd.Key(),
		Fingerprint: fingerprint(cmd),
		OccurredAt:  time.Now().UTC(),
	}
	if res != nil {
		payload, err := g.codec.Encode(res)
		if err != nil {
			g.warn("idempotency result not encoded", cmd, err)
			return
		}
		rec.Payload = payload
	}
	if err := g.store.Save(ctx, rec); err != nil {
		g.warn("idempotency record not saved", cmd, err)
	}
}

func (g idempotency) warn(msg string, cmd IdempotentCommand, err error) {
	if g.logger != nil {
		g.logger.Warn(msg, "command", cmd.Key(), "key", cmd.IdempotencyKey(), "error", err)
	}
}

func fingerprint(cmd IdempotentCommand) string {
	if fp, ok := cmd.(FingerprintedCommand); ok {
		return fp.RequestFingerprint()
	}
	return ""
}
