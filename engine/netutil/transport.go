package netutil

import (
	"sync"

	"github.com/lunarisgames/netsession/engine/common"
)

// EventHandler receives transport events drained by Transport.Poll
type EventHandler interface {
	OnPeerConnected(peer common.PeerID)
	OnPeerDisconnected(peer common.PeerID)
	OnReceive(from common.PeerID, data []byte)
}

// Transport is the delivery collaborator of a session. Connection
// establishment, reliability and framing belong to the implementation; the
// session only sends payloads and drains delivered events once per tick.
type Transport interface {
	// Start begins accepting / delivering
	Start() error
	// Close shuts the transport down
	Close() error
	// SendToServer sends a payload to the host (peer side)
	SendToServer(data []byte) error
	// SendToPeer sends a payload to one remote peer (host side)
	SendToPeer(peer common.PeerID, data []byte) error
	// Broadcast sends a payload to all remote peers (host side)
	Broadcast(data []byte) error
	// Peers returns the currently connected remote peers (host side)
	Peers() []common.PeerID
	// Poll drains queued connect/disconnect/receive events into the handler.
	// Called once per session tick on the session goroutine.
	Poll(h EventHandler)
}

type eventKind int

const (
	evConnected eventKind = iota
	evDisconnected
	evReceive
)

type transportEvent struct {
	kind eventKind
	peer common.PeerID
	data []byte
}

// eventQueue buffers transport events until the session drains them, so
// transport goroutines never run session logic themselves
type eventQueue struct {
	lock   sync.Mutex
	events []transportEvent
}

func (q *eventQueue) push(ev transportEvent) {
	q.lock.Lock()
	q.events = append(q.events, ev)
	q.lock.Unlock()
}

func (q *eventQueue) drain(h EventHandler) {
	q.lock.Lock()
	events := q.events
	q.events = nil
	q.lock.Unlock()

	for _, ev := range events {
		switch ev.kind {
		case evConnected:
			h.OnPeerConnected(ev.peer)
		case evDisconnected:
			h.OnPeerDisconnected(ev.peer)
		case evReceive:
			h.OnReceive(ev.peer, ev.data)
		}
	}
}
