package presence

import (
	"context"
	"errors"
	"strings"

	"github.com/devmesh/chat/internal/svc/redis"
)

// ErrNoRecord is returned by Get when the user has no presence record.
var ErrNoRecord = errors.New("presence: no record")

// Instance is the shared presence store: user id mapped to the opaque handle
// of the connection that user is reachable on. Records are overwritten on
// reconnect (last writer wins) and removed on disconnect.
type Instance interface {
	Get(ctx context.Context, userID string) (string, error)
	Set(ctx context.Context, userID string, handle string) error
	Delete(ctx context.Context, userID string) error
	List(ctx context.Context) ([]string, error)
}

type Options struct {
	Redis redis.Instance
}

func New(opt Options) Instance {
	return &inst{
		redis: opt.Redis,
	}
}

type inst struct {
	redis redis.Instance
}

func (p *inst) key(userID string) redis.Key {
	return p.redis.ComposeKey("presence", "user", userID)
}

func (p *inst) Get(ctx context.Context, userID string) (string, error) {
	v, err := p.redis.Get(ctx, p.key(userID))
	if err != nil {
		if err == redis.Nil {
			return "", ErrNoRecord
		}

		return "", err
	}

	return v, nil
}

func (p *inst) Set(ctx context.Context, userID string, handle string) error {
	return p.redis.Set(ctx, p.key(userID), handle)
}

func (p *inst) Delete(ctx context.Context, userID string) error {
	_, err := p.redis.Del(ctx, p.key(userID))

	return err
}

func (p *inst) List(ctx context.Context) ([]string, error) {
	keys, err := p.redis.Keys(ctx, p.redis.ComposeKey("presence", "user", "*"))
	if err != nil {
		return nil, err
	}

	prefix := p.redis.ComposeKey("presence", "user", "").String()

	users := make([]string, 0, len(keys))
	for _, k := range keys {
		users = append(users, strings.TrimPrefix(k, prefix))
	}

	return users, nil
}
