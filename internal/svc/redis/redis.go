package redis

import (
	"context"
	"fmt"
	"sync"

	goredis "github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Nil is returned by Get when the key does not exist.
const Nil = goredis.Nil

type Key string

func (k Key) String() string {
	return string(k)
}

type Instance interface {
	Ping(ctx context.Context) error
	Get(ctx context.Context, key Key) (string, error)
	Set(ctx context.Context, key Key, value string) error
	Del(ctx context.Context, key Key) (int64, error)
	Keys(ctx context.Context, pattern Key) ([]string, error)
	ComposeKey(namespace string, parts ...string) Key
	RawClient() goredis.UniversalClient
	Subscribe(ctx context.Context, ch chan string, subscribeTo ...Key)
}

type SetupOptions struct {
	Username   string
	Password   string
	Database   int
	Sentinel   bool
	MasterName string
	Addresses  []string
}

func Setup(ctx context.Context, opt SetupOptions) (Instance, error) {
	if len(opt.Addresses) == 0 {
		return nil, fmt.Errorf("no redis addresses provided")
	}

	var client goredis.UniversalClient
	if opt.Sentinel {
		client = goredis.NewFailoverClient(&goredis.FailoverOptions{
			MasterName:    opt.MasterName,
			SentinelAddrs: opt.Addresses,
			Username:      opt.Username,
			Password:      opt.Password,
			DB:            opt.Database,
		})
	} else {
		client = goredis.NewClient(&goredis.Options{
			Addr:     opt.Addresses[0],
			Username: opt.Username,
			Password: opt.Password,
			DB:       opt.Database,
		})
	}

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	inst := &redisInst{
		client: client,
		sub:    client.Subscribe(ctx),
		subs:   map[Key][]chan string{},
	}

	// The forwarding loop lives as long as the client; Channel closes when the
	// pubsub is torn down.
	go func() {
		defer func() {
			if err := recover(); err != nil {
				zap.S().Errorw("panic in redis subscriber",
					"panic", err,
				)
			}
		}()

		for msg := range inst.sub.Channel() {
			inst.mtx.Lock()
			for _, out := range inst.subs[Key(msg.Channel)] {
				select {
				case out <- msg.Payload:
				default:
					zap.S().Warnw("dropped subscription payload",
						"channel", msg.Channel,
					)
				}
			}
			inst.mtx.Unlock()
		}
	}()

	return inst, nil
}

type redisInst struct {
	client goredis.UniversalClient
	sub    *goredis.PubSub

	mtx  sync.Mutex
	subs map[Key][]chan string
}

func (i *redisInst) Ping(ctx context.Context) error {
	return i.client.Ping(ctx).Err()
}

func (i *redisInst) Get(ctx context.Context, key Key) (string, error) {
	return i.client.Get(ctx, key.String()).Result()
}

func (i *redisInst) Set(ctx context.Context, key Key, value string) error {
	return i.client.Set(ctx, key.String(), value, 0).Err()
}

func (i *redisInst) Del(ctx context.Context, key Key) (int64, error) {
	return i.client.Del(ctx, key.String()).Result()
}

func (i *redisInst) Keys(ctx context.Context, pattern Key) ([]string, error) {
	return i.client.Keys(ctx, pattern.String()).Result()
}

func (i *redisInst) ComposeKey(namespace string, parts ...string) Key {
	k := namespace
	for _, p := range parts {
		k += ":" + p
	}

	return Key(k)
}

func (i *redisInst) RawClient() goredis.UniversalClient {
	return i.client
}

// Subscribe forwards payloads published on the given keys into ch for as long
// as ctx remains open.
func (i *redisInst) Subscribe(ctx context.Context, ch chan string, subscribeTo ...Key) {
	i.mtx.Lock()
	defer i.mtx.Unlock()

	channels := make([]string, len(subscribeTo))
	for n, key := range subscribeTo {
		i.subs[key] = append(i.subs[key], ch)
		channels[n] = key.String()
	}

	if err := i.sub.Subscribe(ctx, channels...); err != nil {
		zap.S().Errorw("failed to subscribe",
			"error", err,
			"channels", channels,
		)
	}
}
