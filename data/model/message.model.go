package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message is one persisted chat message. The record itself is created by the
// CRUD layer; this service only reads it back and flips the delivered flag.
type Message struct {
	ID          primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Sender      string             `json:"sender" bson:"sender"`
	Receiver    string             `json:"receiver" bson:"receiver"`
	Content     string             `json:"content" bson:"content"`
	MessageType string             `json:"messageType" bson:"message_type"`
	Delivered   bool               `json:"delivered" bson:"delivered"`
	Read        bool               `json:"read" bson:"read"`
	CreatedAt   time.Time          `json:"createdAt" bson:"created_at"`

	// ConnectionID echoes the sender id on direct deliveries so clients can
	// key the conversation without another lookup. Never persisted.
	ConnectionID string `json:"connectionId,omitempty" bson:"-"`
}
