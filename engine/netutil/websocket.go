package netutil

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/lunarisgames/netsession/engine/common"
	"github.com/lunarisgames/netsession/engine/nslog"
)

// WebsocketServerTransport is the host side of a websocket transport.
// Each payload travels as one binary frame; the websocket layer owns framing
// and reliability.
type WebsocketServerTransport struct {
	addr     string
	path     string
	upgrader websocket.Upgrader
	server   *http.Server

	lock       sync.Mutex
	nextPeerID common.PeerID
	conns      map[common.PeerID]*wsConn
	queue      eventQueue
}

type wsConn struct {
	conn      *websocket.Conn
	writeLock sync.Mutex
}

func (wc *wsConn) write(data []byte) error {
	wc.writeLock.Lock()
	defer wc.writeLock.Unlock()
	return wc.conn.WriteMessage(websocket.BinaryMessage, data)
}

// NewWebsocketServerTransport creates the host transport listening on addr
func NewWebsocketServerTransport(addr string, path string) *WebsocketServerTransport {
	return &WebsocketServerTransport{
		addr:       addr,
		path:       path,
		upgrader:   websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		nextPeerID: common.HostPeerID + 1,
		conns:      map[common.PeerID]*wsConn{},
	}
}

// Start implements Transport
func (t *WebsocketServerTransport) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc(t.path, t.handleConnect)
	t.server = &http.Server{Addr: t.addr, Handler: mux}
	go func() {
		if err := t.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			nslog.Errorf("websocket transport: listen on %s: %v", t.addr, err)
		}
	}()
	return nil
}

func (t *WebsocketServerTransport) handleConnect(w http.ResponseWriter, r *http.Request) {
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		nslog.Warnf("websocket transport: upgrade failed: %v", err)
		return
	}

	t.lock.Lock()
	peerID := t.nextPeerID
	t.nextPeerID++
	wc := &wsConn{conn: conn}
	t.conns[peerID] = wc
	t.lock.Unlock()

	t.queue.push(transportEvent{kind: evConnected, peer: peerID})
	go t.readLoop(peerID, wc)
}

func (t *WebsocketServerTransport) readLoop(peerID common.PeerID, wc *wsConn) {
	for {
		_, data, err := wc.conn.ReadMessage()
		if err != nil {
			break
		}
		t.queue.push(transportEvent{kind: evReceive, peer: peerID, data: data})
	}

	t.lock.Lock()
	delete(t.conns, peerID)
	t.lock.Unlock()
	wc.conn.Close()
	t.queue.push(transportEvent{kind: evDisconnected, peer: peerID})
}

// Close implements Transport
func (t *WebsocketServerTransport) Close() error {
	t.lock.Lock()
	for _, wc := range t.conns {
		wc.conn.Close()
	}
	t.lock.Unlock()
	if t.server != nil {
		return t.server.Close()
	}
	return nil
}

// SendToServer is invalid on the host side
func (t *WebsocketServerTransport) SendToServer(data []byte) error {
	return errors.New("websocket transport: host has no server to send to")
}

// SendToPeer sends a payload to one connected peer
func (t *WebsocketServerTransport) SendToPeer(peer common.PeerID, data []byte) error {
	t.lock.Lock()
	wc := t.conns[peer]
	t.lock.Unlock()
	if wc == nil {
		return errors.Errorf("websocket transport: no such peer: %d", peer)
	}
	return wc.write(data)
}

// Broadcast sends a payload to all connected peers
func (t *WebsocketServerTransport) Broadcast(data []byte) error {
	t.lock.Lock()
	conns := make([]*wsConn, 0, len(t.conns))
	for _, wc := range t.conns {
		conns = append(conns, wc)
	}
	t.lock.Unlock()

	for _, wc := range conns {
		if err := wc.write(data); err != nil {
			nslog.Warnf("websocket transport: broadcast write failed: %v", err)
		}
	}
	return nil
}

// Peers returns connected peer IDs
func (t *WebsocketServerTransport) Peers() []common.PeerID {
	t.lock.Lock()
	defer t.lock.Unlock()
	peers := make([]common.PeerID, 0, len(t.conns))
	for id := range t.conns {
		peers = append(peers, id)
	}
	return peers
}

// Poll implements Transport
func (t *WebsocketServerTransport) Poll(h EventHandler) {
	t.queue.drain(h)
}

// WebsocketClientTransport is the peer side of a websocket transport
type WebsocketClientTransport struct {
	url string

	writeLock sync.Mutex
	conn      *websocket.Conn
	queue     eventQueue
}

// NewWebsocketClientTransport creates a peer transport dialing url
func NewWebsocketClientTransport(url string) *WebsocketClientTransport {
	return &WebsocketClientTransport{url: url}
}

// Start dials the host and begins reading
func (t *WebsocketClientTransport) Start() error {
	conn, _, err := websocket.DefaultDialer.Dial(t.url, nil)
	if err != nil {
		return errors.Wrapf(err, "websocket transport: dial %s", t.url)
	}
	t.conn = conn
	t.queue.push(transportEvent{kind: evConnected, peer: common.HostPeerID})
	go t.readLoop()
	return nil
}

func (t *WebsocketClientTransport) readLoop() {
	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			break
		}
		t.queue.push(transportEvent{kind: evReceive, peer: common.HostPeerID, data: data})
	}
	t.queue.push(transportEvent{kind: evDisconnected, peer: common.HostPeerID})
}

// Close implements Transport
func (t *WebsocketClientTransport) Close() error {
	if t.conn != nil {
		return t.conn.Close()
	}
	return nil
}

// SendToServer sends a payload to the host
func (t *WebsocketClientTransport) SendToServer(data []byte) error {
	if t.conn == nil {
		return errors.New("websocket transport: not connected")
	}
	t.writeLock.Lock()
	defer t.writeLock.Unlock()
	return t.conn.WriteMessage(websocket.BinaryMessage, data)
}

// SendToPeer is invalid on the peer side
func (t *WebsocketClientTransport) SendToPeer(peer common.PeerID, data []byte) error {
	return errors.New("websocket transport: peers cannot send to peers")
}

// Broadcast is invalid on the peer side
func (t *WebsocketClientTransport) Broadcast(data []byte) error {
	return errors.New("websocket transport: peers cannot broadcast")
}

// Peers returns nothing on the peer side
func (t *WebsocketClientTransport) Peers() []common.PeerID {
	return nil
}

// Poll implements Transport
func (t *WebsocketClientTransport) Poll(h EventHandler) {
	t.queue.drain(h)
}
