package router

import (
	"fmt"

	"github.com/lunarisgames/netsession/engine/common"
)

// Message is an addressed, typed payload routed between peers and the host.
// Channels are opaque strings: misspelling a channel name silently reaches
// no one, so callers own channel-name consistency.
type Message struct {
	Channel string        `msgpack:"C"`
	Event   string        `msgpack:"E"`
	Sender  common.PeerID `msgpack:"S"`

	HasTarget bool          `msgpack:"HT,omitempty"`
	Target    common.PeerID `msgpack:"T,omitempty"`

	HasOrigin bool           `msgpack:"HO,omitempty"`
	Origin    common.Vector3 `msgpack:"O,omitempty"`
	Radius    float32        `msgpack:"R,omitempty"`

	// the fixed typed payload fields
	Str   string         `msgpack:"S1,omitempty"`
	Str2  string         `msgpack:"S2,omitempty"`
	Int   int64          `msgpack:"I,omitempty"`
	Float float64        `msgpack:"F,omitempty"`
	Flag  bool           `msgpack:"B,omitempty"`
	Vec   common.Vector3 `msgpack:"V,omitempty"`
}

func (m *Message) String() string {
	return fmt.Sprintf("Message<%s.%s from %d>", m.Channel, m.Event, m.Sender)
}
