package instance

import (
	"github.com/devmesh/chat/data/events"
	"github.com/devmesh/chat/data/mutate"
	"github.com/devmesh/chat/data/query"
	"github.com/devmesh/chat/internal/svc/delivery"
	"github.com/devmesh/chat/internal/svc/mongo"
	"github.com/devmesh/chat/internal/svc/presence"
	"github.com/devmesh/chat/internal/svc/prometheus"
	"github.com/devmesh/chat/internal/svc/redis"
)

type Instances struct {
	Mongo      mongo.Instance
	Redis      redis.Instance
	Events     events.Instance
	Presence   presence.Instance
	Delivery   delivery.Instance
	Prometheus prometheus.Instance

	Query  *query.Query
	Mutate *mutate.Mutate
}
