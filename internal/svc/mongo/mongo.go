package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type CollectionName string

const (
	CollectionNameMessages CollectionName = "messages"
)

type Instance interface {
	Ping(ctx context.Context) error
	Collection(name CollectionName) *mongo.Collection
	RawClient() *mongo.Client
}

type SetupOptions struct {
	URI    string
	DB     string
	Direct bool
}

func Setup(ctx context.Context, opt SetupOptions) (Instance, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opt.URI).SetDirect(opt.Direct))
	if err != nil {
		return nil, err
	}

	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, err
	}

	return &inst{
		client: client,
		db:     client.Database(opt.DB),
	}, nil
}

type inst struct {
	client *mongo.Client
	db     *mongo.Database
}

func (i *inst) Ping(ctx context.Context) error {
	return i.client.Ping(ctx, readpref.Primary())
}

func (i *inst) Collection(name CollectionName) *mongo.Collection {
	return i.db.Collection(string(name))
}

func (i *inst) RawClient() *mongo.Client {
	return i.client
}
