package entity

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/lunarisgames/netsession/engine/common"
	"github.com/lunarisgames/netsession/engine/nslog"
)

// Kind is the spawn classification of an entity
type Kind int

const (
	// KindNonPlayer is any simulated object not driven by a peer
	KindNonPlayer Kind = iota
	// KindPlayer is the entity representing a connected peer
	KindPlayer
)

func (k Kind) String() string {
	if k == KindPlayer {
		return "player"
	}
	return "nonplayer"
}

// IEntity declares lifecycle functions that are defined in Entity and can be
// overridden by user entity types
type IEntity interface {
	// OnInit is called when initializing the entity struct, override to
	// initialize custom fields
	OnInit()
	// OnCreated is called when the entity is just created
	OnCreated()
	// OnDestroy is called just before the entity is destroyed
	OnDestroy()
}

// Entity is the base of all replicated objects. User entity types embed
// Entity and may override the IEntity callbacks.
type Entity struct {
	ID       common.EntityID
	TypeName string
	Kind     Kind
	Owner    common.PeerID
	Position common.Vector3
	Yaw      common.Yaw
	Attrs    *MapAttr

	I         IEntity
	destroyed bool
	manager   *Manager
}

func (e *Entity) String() string {
	return fmt.Sprintf("%s<%s>", e.TypeName, e.ID)
}

// IsDestroyed returns if the entity has been destroyed
func (e *Entity) IsDestroyed() bool {
	return e.destroyed
}

// IsOwnedBy returns if the entity's authoritative input is driven by peer
func (e *Entity) IsOwnedBy(peer common.PeerID) bool {
	return e.Owner == peer
}

// AsEntity returns the embedded Entity
func (e *Entity) AsEntity() *Entity {
	return e
}

// OnInit is the default IEntity implementation, overridable
func (e *Entity) OnInit() {}

// OnCreated is the default IEntity implementation, overridable
func (e *Entity) OnCreated() {}

// OnDestroy is the default IEntity implementation, overridable
func (e *Entity) OnDestroy() {}

func (e *Entity) init(id common.EntityID, typeName string, i IEntity) {
	e.ID = id
	e.TypeName = typeName
	e.I = i
	e.Attrs = NewMapAttr()
}

var entityType = reflect.TypeOf(Entity{})

type entityTypeDesc struct {
	name    string
	rtype   reflect.Type
	isValid bool
}

var (
	registerLock          sync.RWMutex
	registeredEntityTypes = map[string]*entityTypeDesc{}
)

// RegisterEntity registers a user entity type by name. The prototype must be
// a pointer to a struct embedding Entity; anything else is a configuration
// error and the type is not registered.
func RegisterEntity(typeName string, prototype IEntity) bool {
	registerLock.Lock()
	defer registerLock.Unlock()

	if _, ok := registeredEntityTypes[typeName]; ok {
		nslog.Errorf("RegisterEntity: entity type %s already registered", typeName)
		return false
	}

	v := reflect.ValueOf(prototype)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		nslog.Errorf("RegisterEntity: %s prototype must be a pointer to struct, got %T", typeName, prototype)
		return false
	}
	rtype := v.Elem().Type()
	embedded, ok := rtype.FieldByName("Entity")
	if !ok || embedded.Type != entityType || !embedded.Anonymous {
		nslog.Errorf("RegisterEntity: %s (%s) does not embed entity.Entity", typeName, rtype.Name())
		return false
	}

	registeredEntityTypes[typeName] = &entityTypeDesc{name: typeName, rtype: rtype, isValid: true}
	nslog.Debugf("RegisterEntity: registered %s = %s", typeName, rtype.Name())
	return true
}

func getEntityTypeDesc(typeName string) *entityTypeDesc {
	registerLock.RLock()
	defer registerLock.RUnlock()
	return registeredEntityTypes[typeName]
}

// IsRegistered returns if the entity type name is registered
func IsRegistered(typeName string) bool {
	return getEntityTypeDesc(typeName) != nil
}
