package mutate

import (
	"github.com/devmesh/chat/internal/svc/mongo"
)

type Mutate struct {
	mongo mongo.Instance
}

func New(mongoInst mongo.Instance) *Mutate {
	return &Mutate{
		mongo: mongoInst,
	}
}
