package events

// UserOnlineStatusPayload announces one user's presence transition to every
// connected client.
type UserOnlineStatusPayload struct {
	UserID   string `json:"userId"`
	IsOnline bool   `json:"isOnline"`
}

// OnlineListPayload answers a getOnlineUsers request. It rides the same
// userOnlineStatus opcode as the single-user variant; clients tell the two
// apart by payload shape.
type OnlineListPayload []string

type TypingPayload struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId,omitempty"`
	IsTyping   bool   `json:"isTyping"`
}

type MessageDeliveredPayload struct {
	MessageID  string `json:"messageId"`
	ReceiverID string `json:"receiverId"`
}

type NowOnlinePayload struct {
	UserID string `json:"userId"`
}

// UserOnlinePayload is the client's identify event.
type UserOnlinePayload string
