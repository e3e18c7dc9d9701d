package router

import (
	"github.com/pkg/errors"
	trie_tst "github.com/xiaonanln/go-trie-tst"

	"github.com/lunarisgames/netsession/engine/common"
	"github.com/lunarisgames/netsession/engine/entity"
	"github.com/lunarisgames/netsession/engine/netutil"
	"github.com/lunarisgames/netsession/engine/nslog"
	"github.com/lunarisgames/netsession/engine/nsutils"
	"github.com/lunarisgames/netsession/engine/proto"
	"github.com/lunarisgames/netsession/engine/stats"
)

// Handler handles a message on a channel. At most one handler is registered
// per channel.
type Handler func(msg *Message)

// Listener observes messages on a channel; any number can be registered
type Listener func(msg *Message)

// ListenerID identifies a registered listener for removal
type ListenerID int

type listenerEntry struct {
	id ListenerID
	l  Listener
}

type channelListeners struct {
	entries []listenerEntry
}

// Router is channel-addressed messaging between peers and the host,
// independent of any specific gameplay feature. It provides no ordering
// across channels and no deduplication; per-channel delivery order is
// whatever the transport provides.
type Router struct {
	role      common.Role
	localPeer common.PeerID
	transport netutil.Transport
	entities  *entity.Manager

	handlers       map[string]Handler
	listeners      trie_tst.TST
	nextListenerID ListenerID

	observers     []Listener
	sentObservers []Listener

	broadcastValidator func(msg *Message) bool
}

// NewRouter creates a Router. transport may be nil for offline sessions;
// entities is used for proximity delivery and may be nil when the session
// has no entity layer.
func NewRouter(role common.Role, localPeer common.PeerID, transport netutil.Transport, entities *entity.Manager) *Router {
	return &Router{
		role:      role,
		localPeer: localPeer,
		transport: transport,
		entities:  entities,
		handlers:  map[string]Handler{},
	}
}

// SetLocalPeer updates the local peer ID once the transport assigns it
func (r *Router) SetLocalPeer(peer common.PeerID) {
	r.localPeer = peer
}

// RegisterHandler sets the single handler of a channel, replacing any prior
// registration. A nil handler unregisters.
func (r *Router) RegisterHandler(channel string, h Handler) {
	if h == nil {
		delete(r.handlers, channel)
		return
	}
	if _, ok := r.handlers[channel]; ok {
		nslog.Debugf("router: replacing handler on channel %s", channel)
	}
	r.handlers[channel] = h
}

// AddListener adds a fan-out listener on a channel and returns its ID
func (r *Router) AddListener(channel string, l Listener) ListenerID {
	r.nextListenerID++
	id := r.nextListenerID
	node := r.listeners.Sub(channel)
	cl, _ := node.Val.(*channelListeners)
	if cl == nil {
		cl = &channelListeners{}
		node.Val = cl
	}
	cl.entries = append(cl.entries, listenerEntry{id: id, l: l})
	return id
}

// RemoveListener removes a listener by ID
func (r *Router) RemoveListener(channel string, id ListenerID) {
	node := r.listeners.Sub(channel)
	cl, _ := node.Val.(*channelListeners)
	if cl == nil {
		return
	}
	for i, entry := range cl.entries {
		if entry.id == id {
			cl.entries = append(cl.entries[:i], cl.entries[i+1:]...)
			return
		}
	}
}

// ObserveAll registers a listener for every inbound message on any channel
func (r *Router) ObserveAll(l Listener) {
	r.observers = append(r.observers, l)
}

// ObserveSent registers a listener for every outbound message
func (r *Router) ObserveSent(l Listener) {
	r.sentObservers = append(r.sentObservers, l)
}

// SetBroadcastValidator installs the host-side check run on broadcast
// requests before they are re-broadcast. Returning false drops the request.
func (r *Router) SetBroadcastValidator(v func(msg *Message) bool) {
	r.broadcastValidator = v
}

// Dispatch delivers an inbound message locally: global observers first, then
// the channel handler, then every listener in registration order. A panic in
// any subscriber is logged and does not stop the others.
func (r *Router) Dispatch(msg *Message) {
	stats.MessagesReceived.Inc()

	for _, ob := range r.observers {
		ob := ob
		nsutils.RunPanicless(func() { ob(msg) })
	}

	if h, ok := r.handlers[msg.Channel]; ok {
		nsutils.RunPanicless(func() { h(msg) })
	}

	node := r.listeners.Sub(msg.Channel)
	if cl, _ := node.Val.(*channelListeners); cl != nil {
		entries := append([]listenerEntry(nil), cl.entries...)
		for _, entry := range entries {
			entry := entry
			nsutils.RunPanicless(func() { entry.l(msg) })
		}
	}
}

// SendToServer sends a message to the host. On the host itself the message
// is dispatched locally.
func (r *Router) SendToServer(msg *Message) error {
	msg.Sender = r.localPeer
	r.notifySent(msg)

	if r.role == common.RoleHost {
		r.Dispatch(msg)
		return nil
	}
	return r.send(proto.MT_CHANNEL_MESSAGE, msg, func(data []byte) error {
		return r.transport.SendToServer(data)
	})
}

// SendToAllClients broadcasts a message to every peer. Host-only. The host
// dispatches locally before broadcasting, so it observes its own events
// before any remote peer does.
func (r *Router) SendToAllClients(msg *Message) error {
	if r.role != common.RoleHost {
		return errors.New("router: SendToAllClients is host-only")
	}
	msg.Sender = r.localPeer
	r.notifySent(msg)

	r.Dispatch(msg)
	if r.transport == nil {
		return nil
	}
	return r.send(proto.MT_CHANNEL_MESSAGE, msg, r.transport.Broadcast)
}

// SendToClient sends a message to one peer. Host-only.
func (r *Router) SendToClient(peer common.PeerID, msg *Message) error {
	if r.role != common.RoleHost {
		return errors.New("router: SendToClient is host-only")
	}
	msg.Sender = r.localPeer
	msg.HasTarget = true
	msg.Target = peer
	r.notifySent(msg)

	if peer == r.localPeer {
		r.Dispatch(msg)
		return nil
	}
	return r.send(proto.MT_CHANNEL_MESSAGE, msg, func(data []byte) error {
		return r.transport.SendToPeer(peer, data)
	})
}

// SendToNearby unicasts a message to every peer whose player entity is
// within radius of pos. Host-only.
func (r *Router) SendToNearby(pos common.Vector3, radius float32, msg *Message) error {
	if r.role != common.RoleHost {
		return errors.New("router: SendToNearby is host-only")
	}
	if r.entities == nil {
		return errors.New("router: no entity layer for proximity delivery")
	}
	msg.Sender = r.localPeer
	msg.HasOrigin = true
	msg.Origin = pos
	msg.Radius = radius
	r.notifySent(msg)

	var firstErr error
	for _, e := range r.entities.PlayersWithin(pos, radius) {
		if e.Owner == r.localPeer {
			r.Dispatch(msg)
			continue
		}
		err := r.send(proto.MT_CHANNEL_MESSAGE, msg, func(data []byte) error {
			return r.transport.SendToPeer(e.Owner, data)
		})
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// RequestBroadcast asks for a global event. Any role may call it: the host
// validates, processes locally, then re-broadcasts; a peer forwards the
// request to the host.
func (r *Router) RequestBroadcast(msg *Message) error {
	msg.Sender = r.localPeer
	if r.role == common.RoleHost {
		return r.hostBroadcast(msg)
	}
	r.notifySent(msg)
	return r.send(proto.MT_CHANNEL_BROADCAST_REQUEST, msg, func(data []byte) error {
		return r.transport.SendToServer(data)
	})
}

// HandleBroadcastRequest validates and re-broadcasts a peer's request.
// Called on the host when a MT_CHANNEL_BROADCAST_REQUEST arrives.
func (r *Router) HandleBroadcastRequest(from common.PeerID, msg *Message) {
	// never trust the sender field supplied by the peer
	msg.Sender = from
	if err := r.hostBroadcast(msg); err != nil {
		nslog.Warnf("router: broadcast request from peer %d: %v", from, err)
	}
}

func (r *Router) hostBroadcast(msg *Message) error {
	if r.broadcastValidator != nil && !r.broadcastValidator(msg) {
		nslog.Debugf("router: broadcast of %s rejected by validator", msg)
		return nil
	}
	r.Dispatch(msg)
	if r.transport == nil {
		return nil
	}
	return r.send(proto.MT_CHANNEL_MESSAGE, msg, r.transport.Broadcast)
}

func (r *Router) send(mt proto.MsgType, msg *Message, sendFunc func(data []byte) error) error {
	if r.transport == nil {
		return errors.New("router: no transport")
	}
	data, err := proto.Pack(mt, msg)
	if err != nil {
		return err
	}
	if err := sendFunc(data); err != nil {
		return err
	}
	stats.MessagesSent.Inc()
	return nil
}

func (r *Router) notifySent(msg *Message) {
	for _, ob := range r.sentObservers {
		ob := ob
		nsutils.RunPanicless(func() { ob(msg) })
	}
}
