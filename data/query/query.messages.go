package query

import (
	"context"
	"fmt"

	"github.com/devmesh/chat/data/model"
	"github.com/devmesh/chat/internal/svc/mongo"
	"go.mongodb.org/mongo-driver/bson"
)

// UndeliveredMessages returns every message addressed to receiver that has not
// been delivered yet, in store order. The replay path depends on that order
// being stable, so no sort stage is added here.
func (q *Query) UndeliveredMessages(ctx context.Context, receiver string) ([]model.Message, error) {
	cur, err := q.mongo.Collection(mongo.CollectionNameMessages).Find(ctx, bson.M{
		"receiver":  receiver,
		"delivered": false,
	})
	if err != nil {
		return nil, err
	}

	messages := []model.Message{}
	if err = cur.All(ctx, &messages); err != nil {
		return nil, err
	}

	return messages, nil
}

// DistinctSenders returns the set of users who have ever messaged receiver.
// Results are memcached briefly; the only consumer is the best-effort
// reconnect notification loop, which tolerates slightly stale answers.
func (q *Query) DistinctSenders(ctx context.Context, receiver string) ([]string, error) {
	key := fmt.Sprintf("distinct-senders:%s", receiver)

	if v, ok := q.c.Get(key); ok {
		return v.([]string), nil
	}

	values, err := q.mongo.Collection(mongo.CollectionNameMessages).Distinct(ctx, "sender", bson.M{
		"receiver": receiver,
	})
	if err != nil {
		return nil, err
	}

	senders := make([]string, 0, len(values))

	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}

		senders = append(senders, s)
	}

	q.c.SetDefault(key, senders)

	return senders, nil
}
