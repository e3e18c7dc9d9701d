package netutil

import (
	"testing"

	"github.com/lunarisgames/netsession/engine/common"
)

type recordingHandler struct {
	connected    []common.PeerID
	disconnected []common.PeerID
	received     []string
	receivedFrom []common.PeerID
}

func (h *recordingHandler) OnPeerConnected(peer common.PeerID) {
	h.connected = append(h.connected, peer)
}

func (h *recordingHandler) OnPeerDisconnected(peer common.PeerID) {
	h.disconnected = append(h.disconnected, peer)
}

func (h *recordingHandler) OnReceive(from common.PeerID, data []byte) {
	h.receivedFrom = append(h.receivedFrom, from)
	h.received = append(h.received, string(data))
}

func TestLoopbackJoin(t *testing.T) {
	ln := NewLoopbackNetwork()
	host := ln.HostEndpoint()
	peer := ln.Join()

	if peer.LocalID() == common.HostPeerID {
		t.Errorf("peer got the host ID")
	}

	hostEvents := &recordingHandler{}
	host.Poll(hostEvents)
	if len(hostEvents.connected) != 1 || hostEvents.connected[0] != peer.LocalID() {
		t.Errorf("host should see the peer connect, saw %v", hostEvents.connected)
	}

	peerEvents := &recordingHandler{}
	peer.Poll(peerEvents)
	if len(peerEvents.connected) != 1 || peerEvents.connected[0] != common.HostPeerID {
		t.Errorf("peer should see the host connect, saw %v", peerEvents.connected)
	}
}

func TestLoopbackDelivery(t *testing.T) {
	ln := NewLoopbackNetwork()
	host := ln.HostEndpoint()
	p1 := ln.Join()
	p2 := ln.Join()

	p1.SendToServer([]byte("hello"))
	hostEvents := &recordingHandler{}
	host.Poll(hostEvents)
	if len(hostEvents.received) != 1 || hostEvents.received[0] != "hello" {
		t.Errorf("host received %v", hostEvents.received)
	}
	if hostEvents.receivedFrom[0] != p1.LocalID() {
		t.Errorf("wrong sender: %v", hostEvents.receivedFrom)
	}

	host.Broadcast([]byte("all"))
	for _, p := range []*LoopbackEndpoint{p1, p2} {
		ev := &recordingHandler{}
		p.Poll(ev)
		if len(ev.received) != 1 || ev.received[0] != "all" {
			t.Errorf("peer %d received %v", p.LocalID(), ev.received)
		}
	}

	if err := host.SendToPeer(p2.LocalID(), []byte("just you")); err != nil {
		t.Error(err)
	}
	if err := host.SendToPeer(999, []byte("nobody")); err == nil {
		t.Errorf("send to unknown peer should fail")
	}
}

func TestLoopbackLeave(t *testing.T) {
	ln := NewLoopbackNetwork()
	host := ln.HostEndpoint()
	peer := ln.Join()
	host.Poll(&recordingHandler{})

	peer.Close()
	hostEvents := &recordingHandler{}
	host.Poll(hostEvents)
	if len(hostEvents.disconnected) != 1 || hostEvents.disconnected[0] != peer.LocalID() {
		t.Errorf("host should see the disconnect, saw %v", hostEvents.disconnected)
	}
	if len(host.Peers()) != 0 {
		t.Errorf("peer list should be empty")
	}
}
