package entity

import (
	"reflect"

	"github.com/pkg/errors"

	"github.com/lunarisgames/netsession/engine/common"
	"github.com/lunarisgames/netsession/engine/nslog"
	"github.com/lunarisgames/netsession/engine/nsutils"
)

// Manager owns all live entities of one session. It is the instantiation
// primitive of the spawn coordinator and knows nothing about queuing or
// spawn points.
type Manager struct {
	localPeer common.PeerID

	entities       EntityMap
	entitiesByType map[string]EntityMap
}

// NewManager creates an entity Manager for the local peer
func NewManager(localPeer common.PeerID) *Manager {
	return &Manager{
		localPeer:      localPeer,
		entities:       EntityMap{},
		entitiesByType: map[string]EntityMap{},
	}
}

// SetLocalPeer updates the local peer ID once the transport assigns it
func (m *Manager) SetLocalPeer(peer common.PeerID) {
	m.localPeer = peer
}

// CreateEntity instantiates a registered entity type with a fresh ID
func (m *Manager) CreateEntity(typeName string, kind Kind, owner common.PeerID, pos common.Vector3, yaw common.Yaw, data map[string]interface{}) (*Entity, error) {
	return m.CreateEntityWithID(common.GenEntityID(), typeName, kind, owner, pos, yaw, data)
}

// CreateEntityWithID instantiates a registered entity type under a fixed ID,
// used when applying a replicated spawn
func (m *Manager) CreateEntityWithID(id common.EntityID, typeName string, kind Kind, owner common.PeerID, pos common.Vector3, yaw common.Yaw, data map[string]interface{}) (*Entity, error) {
	desc := getEntityTypeDesc(typeName)
	if desc == nil {
		return nil, errors.Errorf("entity: type %s is not registered", typeName)
	}
	if m.entities.Get(id) != nil {
		return nil, errors.Errorf("entity: %s already exists", id)
	}

	entityPtr := reflect.New(desc.rtype)
	i := entityPtr.Interface().(IEntity)
	e := i.(interface{ AsEntity() *Entity }).AsEntity()
	e.init(id, typeName, i)
	e.Kind = kind
	e.Owner = owner
	e.Position = pos
	e.Yaw = yaw
	e.manager = m
	if data != nil {
		e.Attrs.AssignMap(data)
	}

	nsutils.RunPanicless(i.OnInit)

	m.put(e)

	nsutils.RunPanicless(i.OnCreated)
	nslog.Debugf("entity: created %s kind=%s owner=%d", e, kind, owner)
	return e, nil
}

// Destroy removes the entity and runs its OnDestroy callback
func (m *Manager) Destroy(e *Entity) {
	if e.destroyed {
		return
	}
	e.destroyed = true
	nsutils.RunPanicless(e.I.OnDestroy)
	m.del(e)
	nslog.Debugf("entity: destroyed %s", e)
}

// Get returns the entity of the specified ID, nil if not found
func (m *Manager) Get(id common.EntityID) *Entity {
	return m.entities.Get(id)
}

// Count returns the number of live entities
func (m *Manager) Count() int {
	return len(m.entities)
}

// EachEntity visits every live entity until cb returns false
func (m *Manager) EachEntity(cb func(e *Entity) bool) {
	for _, e := range m.entities {
		if !cb(e) {
			break
		}
	}
}

// EachPlayer visits every live player entity until cb returns false
func (m *Manager) EachPlayer(cb func(e *Entity) bool) {
	for _, e := range m.entities {
		if e.Kind != KindPlayer {
			continue
		}
		if !cb(e) {
			break
		}
	}
}

// PlayersWithin returns the player entities within radius of pos
func (m *Manager) PlayersWithin(pos common.Vector3, radius float32) []*Entity {
	var players []*Entity
	m.EachPlayer(func(e *Entity) bool {
		if e.Position.DistanceTo(pos) <= radius {
			players = append(players, e)
		}
		return true
	})
	return players
}

// OwnedBy returns all entities whose owner is peer
func (m *Manager) OwnedBy(peer common.PeerID) []*Entity {
	var owned []*Entity
	for _, e := range m.entities {
		if e.Owner == peer {
			owned = append(owned, e)
		}
	}
	return owned
}

// IsLocal returns if the entity is driven by the local process
func (m *Manager) IsLocal(e *Entity) bool {
	return e.Owner == m.localPeer
}

// TransferOwnership reassigns the owning peer of an entity. Only the host is
// allowed to authorize the transfer; callers enforce that before getting here.
func (m *Manager) TransferOwnership(e *Entity, newOwner common.PeerID) {
	if e.destroyed {
		nslog.Warnf("entity: ownership transfer on destroyed %s", e)
		return
	}
	old := e.Owner
	e.Owner = newOwner
	nslog.Infof("entity: %s owner %d -> %d", e, old, newOwner)
}

func (m *Manager) put(e *Entity) {
	m.entities.Add(e)
	if entities, ok := m.entitiesByType[e.TypeName]; ok {
		entities.Add(e)
	} else {
		m.entitiesByType[e.TypeName] = EntityMap{e.ID: e}
	}
}

func (m *Manager) del(e *Entity) {
	m.entities.Del(e.ID)
	if entities, ok := m.entitiesByType[e.TypeName]; ok {
		entities.Del(e.ID)
	}
}
