package entity

import "github.com/lunarisgames/netsession/engine/common"

// EntityMap is the data structure for maintaining entities by ID
type EntityMap map[common.EntityID]*Entity

// Add adds a new entity to EntityMap
func (em EntityMap) Add(entity *Entity) {
	em[entity.ID] = entity
}

// Del deletes an entity from EntityMap
func (em EntityMap) Del(id common.EntityID) {
	delete(em, id)
}

// Get returns the entity of specified entity ID in EntityMap
func (em EntityMap) Get(id common.EntityID) *Entity {
	return em[id]
}

// Keys returns the IDs in EntityMap
func (em EntityMap) Keys() (keys []common.EntityID) {
	for eid := range em {
		keys = append(keys, eid)
	}
	return
}
