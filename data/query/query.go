package query

import (
	"time"

	"github.com/devmesh/chat/internal/svc/mongo"
	"github.com/patrickmn/go-cache"
)

type Query struct {
	mongo mongo.Instance
	c     *cache.Cache
}

func New(mongoInst mongo.Instance) *Query {
	return &Query{
		mongo: mongoInst,
		c:     cache.New(time.Second*30, time.Minute*5),
	}
}
