package vars

import (
	"github.com/lunarisgames/netsession/engine/common"
	"github.com/lunarisgames/netsession/engine/netutil"
	"github.com/lunarisgames/netsession/engine/nslog"
	"github.com/lunarisgames/netsession/engine/proto"
)

// Manager tracks the variable stores of all live entities and routes wire
// traffic to the right store
type Manager struct {
	role        common.Role
	localPeer   common.PeerID
	transport   netutil.Transport
	defaultRate float64

	stores map[common.EntityID]*Store
}

// NewManager creates a vars Manager
func NewManager(role common.Role, localPeer common.PeerID, transport netutil.Transport) *Manager {
	return &Manager{
		role:      role,
		localPeer: localPeer,
		transport: transport,
		stores:    map[common.EntityID]*Store{},
	}
}

// SetDefaultSyncRate sets the fallback update rate for slots defined
// without an explicit one
func (m *Manager) SetDefaultSyncRate(rate float64) {
	m.defaultRate = rate
	for _, s := range m.stores {
		s.defaultRate = rate
	}
}

// SetLocalPeer updates the local peer ID once the transport assigns it
func (m *Manager) SetLocalPeer(peer common.PeerID) {
	m.localPeer = peer
	for _, s := range m.stores {
		s.localPeer = peer
	}
}

// StoreFor returns the store of the entity, creating it on first use
func (m *Manager) StoreFor(entityID common.EntityID, owner common.PeerID) *Store {
	if s, ok := m.stores[entityID]; ok {
		return s
	}
	s := NewStore(m.role, m.localPeer, entityID, owner, m.transport)
	s.defaultRate = m.defaultRate
	m.stores[entityID] = s
	return s
}

// Get returns the store of the entity, nil if none exists
func (m *Manager) Get(entityID common.EntityID) *Store {
	return m.stores[entityID]
}

// Drop removes the store of a destroyed entity
func (m *Manager) Drop(entityID common.EntityID) {
	delete(m.stores, entityID)
}

// SetOwner updates the owning peer of an entity's store after an ownership
// transfer
func (m *Manager) SetOwner(entityID common.EntityID, owner common.PeerID) {
	if s, ok := m.stores[entityID]; ok {
		s.SetOwner(owner)
	}
}

// HandleWriteRequest routes a forwarded peer write to its store. Host side.
func (m *Manager) HandleWriteRequest(from common.PeerID, req *proto.VarWriteRequest) {
	s := m.stores[req.Entity]
	if s == nil {
		nslog.Warnf("vars: write request from peer %d for unknown entity %s", from, req.Entity)
		return
	}
	s.HandleWriteRequest(from, req)
}

// HandleUpdate routes a host-origin update to its store. Peer side.
func (m *Manager) HandleUpdate(upd *proto.VarUpdate) {
	s := m.stores[upd.Entity]
	if s == nil {
		nslog.Debugf("vars: update for unknown entity %s", upd.Entity)
		return
	}
	s.HandleUpdate(upd)
}
