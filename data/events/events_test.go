package events

import (
	"testing"

	"github.com/devmesh/chat/internal/testutil"
)

func TestMessageRoundTrip(t *testing.T) {
	t.Parallel()

	msg := NewMessage(OpcodeUserOnlineStatus, UserOnlineStatusPayload{
		UserID:   "a",
		IsOnline: true,
	})

	b, err := msg.ToRaw().Marshal()
	testutil.IsNil(t, err, "marshals")

	raw, err := Unmarshal(b)
	testutil.IsNil(t, err, "unmarshals")
	testutil.Assert(t, OpcodeUserOnlineStatus, raw.Op, "opcode survives")

	decoded, err := ConvertMessage[UserOnlineStatusPayload](raw)
	testutil.IsNil(t, err, "payload converts")
	testutil.Assert(t, "a", decoded.Data.UserID, "user id survives")
	testutil.Assert(t, true, decoded.Data.IsOnline, "online flag survives")
}

func TestUnmarshalRejectsMalformedFrame(t *testing.T) {
	t.Parallel()

	_, err := Unmarshal([]byte("not an envelope"))
	testutil.IsNotNil(t, err, "malformed frame rejected")

	_, err = ConvertMessage[UserOnlineStatusPayload](Message[RawData]{
		Op:   OpcodeUserOnlineStatus,
		Data: RawData(`[]`),
	})
	testutil.IsNotNil(t, err, "mismatched payload shape rejected")
}

func TestWireNames(t *testing.T) {
	t.Parallel()

	// The opcodes are a wire contract with deployed clients.
	testutil.Assert(t, "userOnline", string(OpcodeUserOnline), "identify op")
	testutil.Assert(t, "send_message", string(OpcodeSendMessage), "send op")
	testutil.Assert(t, "getOnlineUsers", string(OpcodeGetOnlineUsers), "query op")
	testutil.Assert(t, "userOnlineStatus", string(OpcodeUserOnlineStatus), "status op")
	testutil.Assert(t, "receive_message", string(OpcodeReceiveMessage), "receive op")
	testutil.Assert(t, "message_delivered", string(OpcodeMessageDelivered), "ack op")
	testutil.Assert(t, "user_now_online_notification", string(OpcodeNowOnline), "notify op")
}

func TestDispatchEnvelope(t *testing.T) {
	t.Parallel()

	d := Dispatch{
		Conn: "conn-1",
		Msg:  NewMessage(OpcodeNowOnline, NowOnlinePayload{UserID: "a"}).ToRaw(),
	}

	b, err := json.Marshal(d)
	testutil.IsNil(t, err, "dispatch marshals")

	var got Dispatch
	testutil.IsNil(t, json.Unmarshal(b, &got), "dispatch unmarshals")
	testutil.Assert(t, "conn-1", got.Conn, "handle survives")
	testutil.Assert(t, OpcodeNowOnline, got.Msg.Op, "opcode survives")

	p, err := ConvertMessage[NowOnlinePayload](got.Msg)
	testutil.IsNil(t, err, "payload converts")
	testutil.Assert(t, "a", p.Data.UserID, "payload survives")
}
