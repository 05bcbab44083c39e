package delivery

import (
	"context"
	"fmt"

	"github.com/devmesh/chat/data/events"
	"github.com/devmesh/chat/data/model"
	"github.com/devmesh/chat/internal/svc/presence"
	"github.com/devmesh/chat/internal/svc/prometheus"
	"github.com/hashicorp/go-multierror"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Instance is the presence & delivery engine. One inbound transport event maps
// to one method call; no method surfaces an error back to the transport, every
// failure is absorbed and logged so one user's trouble cannot stall another's
// traffic.
type Instance interface {
	Connect(ctx context.Context, conn string, userID string)
	SendMessage(ctx context.Context, msg model.Message)
	Typing(ctx context.Context, payload events.TypingPayload)
	OnlineUsers(ctx context.Context, conn string)
	Disconnect(ctx context.Context, conn string)
}

// MessageQuery is the read side of the message store, satisfied by
// *query.Query.
type MessageQuery interface {
	UndeliveredMessages(ctx context.Context, receiver string) ([]model.Message, error)
	DistinctSenders(ctx context.Context, receiver string) ([]string, error)
}

// MessageMutator is the write side of the message store, satisfied by
// *mutate.Mutate.
type MessageMutator interface {
	MarkDelivered(ctx context.Context, id primitive.ObjectID) error
	MarkReceiverDelivered(ctx context.Context, receiver string) (int64, error)
}

// Emitter dispatches outbound events. An empty Conn addresses every connected
// client. Emission is fire-and-forget: dispatches to handles that died in the
// meantime are dropped by the transport.
type Emitter interface {
	Publish(ctx context.Context, d events.Dispatch) error
}

type Options struct {
	Presence   presence.Instance
	Query      MessageQuery
	Mutate     MessageMutator
	Events     Emitter
	Prometheus prometheus.Instance
}

func New(opt Options) Instance {
	return &inst{
		presence: opt.Presence,
		query:    opt.Query,
		mutate:   opt.Mutate,
		events:   opt.Events,
		prom:     opt.Prometheus,
		registry: newRegistry(),
	}
}

type inst struct {
	presence presence.Instance
	query    MessageQuery
	mutate   MessageMutator
	events   Emitter
	prom     prometheus.Instance
	registry *registry
}

func (d *inst) emit(ctx context.Context, conn string, msg events.Message[events.RawData]) {
	if err := d.events.Publish(ctx, events.Dispatch{Conn: conn, Msg: msg}); err != nil {
		zap.S().Errorw("failed to publish dispatch",
			"error", err,
			"op", msg.Op,
		)
	}
}

// Connect registers the user as online, replays messages that were persisted
// while they were away and pings the people who were trying to reach them.
func (d *inst) Connect(ctx context.Context, conn string, userID string) {
	if conn == "" || userID == "" {
		return
	}

	// Last writer wins: a reconnect simply overwrites the previous handle and
	// orphans the old connection.
	if err := d.presence.Set(ctx, userID, conn); err != nil {
		zap.S().Errorw("failed to write presence record",
			"error", err,
			"user_id", userID,
		)

		return
	}

	d.registry.Bind(conn, userID)

	d.emit(ctx, "", events.NewMessage(events.OpcodeUserOnlineStatus, events.UserOnlineStatusPayload{
		UserID:   userID,
		IsOnline: true,
	}).ToRaw())

	d.replayUndelivered(ctx, conn, userID)
	d.notifyRecentSenders(ctx, userID)
}

func (d *inst) replayUndelivered(ctx context.Context, conn string, userID string) {
	messages, err := d.query.UndeliveredMessages(ctx, userID)
	if err != nil {
		zap.S().Errorw("failed to fetch undelivered messages",
			"error", err,
			"user_id", userID,
		)

		return
	}

	if len(messages) == 0 {
		return
	}

	// Emit in store order, then flip the flags in one batch. A crash between
	// the two re-replays on the next connect; delivery is at-least-once.
	for _, msg := range messages {
		d.emit(ctx, conn, events.NewMessage(events.OpcodeReceiveMessage, msg).ToRaw())
	}

	n, err := d.mutate.MarkReceiverDelivered(ctx, userID)
	if err != nil {
		zap.S().Errorw("failed to mark replayed messages delivered",
			"error", err,
			"user_id", userID,
		)

		return
	}

	d.prom.MessagesReplayed().Add(float64(n))
}

func (d *inst) notifyRecentSenders(ctx context.Context, userID string) {
	senders, err := d.query.DistinctSenders(ctx, userID)
	if err != nil {
		zap.S().Errorw("failed to fetch recent senders",
			"error", err,
			"user_id", userID,
		)

		return
	}

	var errs *multierror.Error

	for _, sender := range senders {
		if sender == userID {
			continue
		}

		handle, err := d.presence.Get(ctx, sender)
		if err != nil {
			if err != presence.ErrNoRecord {
				errs = multierror.Append(errs, fmt.Errorf("sender %s: %w", sender, err))
			}

			continue
		}

		d.emit(ctx, handle, events.NewMessage(events.OpcodeNowOnline, events.NowOnlinePayload{
			UserID: userID,
		}).ToRaw())
	}

	if err := errs.ErrorOrNil(); err != nil {
		zap.S().Errorw("failed to notify recent senders",
			"error", err,
			"user_id", userID,
		)
	}
}

// SendMessage attempts direct delivery to an online receiver. The record is
// already persisted by the caller; an offline receiver leaves it untouched for
// replay on their next connect.
func (d *inst) SendMessage(ctx context.Context, msg model.Message) {
	if msg.Sender == "" || msg.Receiver == "" {
		return
	}

	receiverHandle, err := d.presence.Get(ctx, msg.Receiver)
	if err != nil {
		if err != presence.ErrNoRecord {
			zap.S().Errorw("failed to look up receiver presence",
				"error", err,
				"receiver", msg.Receiver,
			)
		}

		d.prom.MessagesQueued().Inc()

		return
	}

	out := msg
	out.Delivered = true
	out.Read = true
	out.ConnectionID = msg.Sender

	d.emit(ctx, receiverHandle, events.NewMessage(events.OpcodeReceiveMessage, out).ToRaw())

	// Best effort: a failed flag write leaves the message eligible for replay,
	// which the receiver tolerates as a duplicate.
	if err := d.mutate.MarkDelivered(ctx, msg.ID); err != nil {
		zap.S().Errorw("failed to persist delivered flag",
			"error", err,
			"message_id", msg.ID.Hex(),
		)
	}

	d.prom.MessagesDelivered().Inc()

	senderHandle, err := d.presence.Get(ctx, msg.Sender)
	if err != nil {
		if err != presence.ErrNoRecord {
			zap.S().Errorw("failed to look up sender presence",
				"error", err,
				"sender", msg.Sender,
			)
		}

		return
	}

	// Acked only on immediate delivery; queued messages get no receipt.
	d.emit(ctx, senderHandle, events.NewMessage(events.OpcodeMessageDelivered, events.MessageDeliveredPayload{
		MessageID:  msg.ID.Hex(),
		ReceiverID: msg.Receiver,
	}).ToRaw())
}

// Typing forwards a typing indicator to the receiver if they are online.
// Fire-and-forget, nothing is persisted.
func (d *inst) Typing(ctx context.Context, payload events.TypingPayload) {
	handle, err := d.presence.Get(ctx, payload.ReceiverID)
	if err != nil {
		if err != presence.ErrNoRecord {
			zap.S().Errorw("failed to look up receiver presence",
				"error", err,
				"receiver", payload.ReceiverID,
			)
		}

		return
	}

	d.emit(ctx, handle, events.NewMessage(events.OpcodeTyping, events.TypingPayload{
		SenderID: payload.SenderID,
		IsTyping: payload.IsTyping,
	}).ToRaw())
}

// OnlineUsers answers a connection's request for the full online id list.
func (d *inst) OnlineUsers(ctx context.Context, conn string) {
	users, err := d.presence.List(ctx)
	if err != nil {
		zap.S().Errorw("failed to list presence records",
			"error", err,
		)

		return
	}

	d.emit(ctx, conn, events.NewMessage(events.OpcodeUserOnlineStatus, events.OnlineListPayload(users)).ToRaw())
}

// Disconnect clears the user's presence record, unless a newer connection has
// already overwritten it, in which case this handle was orphaned and the
// operation is a no-op.
func (d *inst) Disconnect(ctx context.Context, conn string) {
	userID, ok := d.registry.Resolve(conn)
	if !ok {
		return
	}

	d.registry.Unbind(conn)

	handle, err := d.presence.Get(ctx, userID)
	if err != nil {
		if err != presence.ErrNoRecord {
			zap.S().Errorw("failed to look up presence on disconnect",
				"error", err,
				"user_id", userID,
			)
		}

		return
	}

	if handle != conn {
		return
	}

	if err := d.presence.Delete(ctx, userID); err != nil {
		zap.S().Errorw("failed to delete presence record",
			"error", err,
			"user_id", userID,
		)

		return
	}

	d.emit(ctx, "", events.NewMessage(events.OpcodeUserOnlineStatus, events.UserOnlineStatusPayload{
		UserID:   userID,
		IsOnline: false,
	}).ToRaw())
}
