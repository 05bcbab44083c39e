package mutate

import (
	"context"

	"github.com/devmesh/chat/internal/svc/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MarkDelivered flips the delivered flag on a single message. The flag never
// transitions back; setting it redundantly is harmless.
func (m *Mutate) MarkDelivered(ctx context.Context, id primitive.ObjectID) error {
	_, err := m.mongo.Collection(mongo.CollectionNameMessages).UpdateByID(ctx, id, bson.M{
		"$set": bson.M{"delivered": true},
	})

	return err
}

// MarkReceiverDelivered marks every undelivered message addressed to receiver
// as delivered in one batch, returning the number of records modified.
func (m *Mutate) MarkReceiverDelivered(ctx context.Context, receiver string) (int64, error) {
	result, err := m.mongo.Collection(mongo.CollectionNameMessages).UpdateMany(ctx, bson.M{
		"receiver":  receiver,
		"delivered": false,
	}, bson.M{
		"$set": bson.M{"delivered": true},
	})
	if err != nil {
		return 0, err
	}

	return result.ModifiedCount, nil
}
