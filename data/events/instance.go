package events

import (
	"context"

	"github.com/devmesh/chat/internal/svc/redis"
	"go.uber.org/zap"
)

// Dispatch is one outbound event addressed to a single connection handle, or
// to every connection when Conn is empty.
type Dispatch struct {
	Conn string           `json:"conn,omitempty"`
	Msg  Message[RawData] `json:"msg"`
}

// Instance fans dispatches out across server processes. Publishers never loop
// a dispatch back in-process; every process, the publisher included, receives
// it over pub/sub and delivers to whichever connection handles it owns, so
// each connection sees exactly one copy.
type Instance interface {
	Publish(ctx context.Context, d Dispatch) error
	Subscribe(ctx context.Context) <-chan Dispatch
}

type Options struct {
	Redis redis.Instance
}

func NewPublisher(ctx context.Context, opt Options) Instance {
	return &eventsInst{
		ctx:   ctx,
		redis: opt.Redis,
	}
}

type eventsInst struct {
	ctx   context.Context
	redis redis.Instance
}

func (e *eventsInst) key() redis.Key {
	return e.redis.ComposeKey("events", "dispatch")
}

func (e *eventsInst) Publish(ctx context.Context, d Dispatch) error {
	j, err := json.Marshal(d)
	if err != nil {
		return err
	}

	return e.redis.RawClient().Publish(ctx, e.key().String(), j).Err()
}

func (e *eventsInst) Subscribe(ctx context.Context) <-chan Dispatch {
	raw := make(chan string, 128)
	e.redis.Subscribe(ctx, raw, e.key())

	out := make(chan Dispatch, 128)

	go func() {
		defer close(out)

		for {
			select {
			case <-ctx.Done():
				return
			case payload, ok := <-raw:
				if !ok {
					return
				}

				var d Dispatch
				if err := json.Unmarshal([]byte(payload), &d); err != nil {
					zap.S().Errorw("bad dispatch payload",
						"error", err,
					)

					continue
				}

				out <- d
			}
		}
	}()

	return out
}
