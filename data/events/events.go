package events

import (
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RawData is an undecoded event payload.
type RawData = jsoniter.RawMessage

// Opcode is the wire name of an event. The names predate this service; they
// are what deployed clients already speak.
type Opcode string

const (
	// Client -> server
	OpcodeUserOnline     Opcode = "userOnline"
	OpcodeSendMessage    Opcode = "send_message"
	OpcodeTyping         Opcode = "typing"
	OpcodeGetOnlineUsers Opcode = "getOnlineUsers"

	// Server -> client
	OpcodeUserOnlineStatus Opcode = "userOnlineStatus"
	OpcodeReceiveMessage   Opcode = "receive_message"
	OpcodeMessageDelivered Opcode = "message_delivered"
	OpcodeNowOnline        Opcode = "user_now_online_notification"
)

type AnyPayload interface{}

type Message[D AnyPayload] struct {
	Op   Opcode `json:"op"`
	Data D      `json:"d"`
}

func NewMessage[D AnyPayload](op Opcode, data D) Message[D] {
	return Message[D]{
		Op:   op,
		Data: data,
	}
}

func (e Message[D]) ToRaw() Message[RawData] {
	switch x := interface{}(e.Data).(type) {
	case RawData:
		return Message[RawData]{
			Op:   e.Op,
			Data: x,
		}
	}

	raw, _ := json.Marshal(e.Data)

	return Message[RawData]{
		Op:   e.Op,
		Data: raw,
	}
}

func ConvertMessage[D AnyPayload](c Message[RawData]) (Message[D], error) {
	var d D
	err := json.Unmarshal(c.Data, &d)

	return Message[D]{
		Op:   c.Op,
		Data: d,
	}, err
}

func (e Message[D]) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

func Unmarshal(b []byte) (Message[RawData], error) {
	var msg Message[RawData]
	err := json.Unmarshal(b, &msg)

	return msg, err
}
