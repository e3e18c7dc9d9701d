package netutil

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/lunarisgames/netsession/engine/common"
)

// LoopbackNetwork connects a host endpoint and any number of peer endpoints
// inside one process. Delivery is in-order and reliable; payloads still cross
// an event queue so each endpoint only observes traffic when it polls, same
// as a real transport.
type LoopbackNetwork struct {
	lock       sync.Mutex
	nextPeerID common.PeerID
	host       *LoopbackEndpoint
	peers      map[common.PeerID]*LoopbackEndpoint
}

// NewLoopbackNetwork creates an empty loopback network
func NewLoopbackNetwork() *LoopbackNetwork {
	return &LoopbackNetwork{
		nextPeerID: common.HostPeerID + 1,
		peers:      map[common.PeerID]*LoopbackEndpoint{},
	}
}

// HostEndpoint returns the host-side endpoint, creating it on first call
func (ln *LoopbackNetwork) HostEndpoint() *LoopbackEndpoint {
	ln.lock.Lock()
	defer ln.lock.Unlock()
	if ln.host == nil {
		ln.host = &LoopbackEndpoint{network: ln, localID: common.HostPeerID}
	}
	return ln.host
}

// Join creates a new peer endpoint and announces the connect to the host
func (ln *LoopbackNetwork) Join() *LoopbackEndpoint {
	ln.lock.Lock()
	peerID := ln.nextPeerID
	ln.nextPeerID++
	ep := &LoopbackEndpoint{network: ln, localID: peerID}
	ln.peers[peerID] = ep
	host := ln.host
	ln.lock.Unlock()

	if host != nil {
		host.queue.push(transportEvent{kind: evConnected, peer: peerID})
	}
	ep.queue.push(transportEvent{kind: evConnected, peer: common.HostPeerID})
	return ep
}

// Leave removes a peer endpoint and announces the disconnect to the host
func (ln *LoopbackNetwork) Leave(ep *LoopbackEndpoint) {
	ln.lock.Lock()
	delete(ln.peers, ep.localID)
	host := ln.host
	ln.lock.Unlock()

	if host != nil && ep.localID != common.HostPeerID {
		host.queue.push(transportEvent{kind: evDisconnected, peer: ep.localID})
	}
}

func (ln *LoopbackNetwork) peer(id common.PeerID) *LoopbackEndpoint {
	ln.lock.Lock()
	defer ln.lock.Unlock()
	return ln.peers[id]
}

// LoopbackEndpoint is one node's view of a LoopbackNetwork
type LoopbackEndpoint struct {
	network *LoopbackNetwork
	localID common.PeerID
	queue   eventQueue
}

// LocalID returns the peer ID of this endpoint
func (ep *LoopbackEndpoint) LocalID() common.PeerID {
	return ep.localID
}

// Start implements Transport
func (ep *LoopbackEndpoint) Start() error {
	return nil
}

// Close implements Transport
func (ep *LoopbackEndpoint) Close() error {
	if ep.localID != common.HostPeerID {
		ep.network.Leave(ep)
	}
	return nil
}

// SendToServer delivers a payload to the host endpoint
func (ep *LoopbackEndpoint) SendToServer(data []byte) error {
	host := ep.network.HostEndpoint()
	host.queue.push(transportEvent{kind: evReceive, peer: ep.localID, data: data})
	return nil
}

// SendToPeer delivers a payload to one peer endpoint
func (ep *LoopbackEndpoint) SendToPeer(peer common.PeerID, data []byte) error {
	target := ep.network.peer(peer)
	if target == nil {
		return errors.Errorf("loopback: no such peer: %d", peer)
	}
	target.queue.push(transportEvent{kind: evReceive, peer: ep.localID, data: data})
	return nil
}

// Broadcast delivers a payload to every peer endpoint
func (ep *LoopbackEndpoint) Broadcast(data []byte) error {
	ep.network.lock.Lock()
	targets := make([]*LoopbackEndpoint, 0, len(ep.network.peers))
	for _, t := range ep.network.peers {
		targets = append(targets, t)
	}
	ep.network.lock.Unlock()

	for _, t := range targets {
		t.queue.push(transportEvent{kind: evReceive, peer: ep.localID, data: data})
	}
	return nil
}

// Peers returns connected peer IDs
func (ep *LoopbackEndpoint) Peers() []common.PeerID {
	ep.network.lock.Lock()
	defer ep.network.lock.Unlock()
	peers := make([]common.PeerID, 0, len(ep.network.peers))
	for id := range ep.network.peers {
		peers = append(peers, id)
	}
	return peers
}

// Poll implements Transport
func (ep *LoopbackEndpoint) Poll(h EventHandler) {
	ep.queue.drain(h)
}
