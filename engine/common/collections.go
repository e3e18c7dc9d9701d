package common

// PeerIDSet is the data structure for a set of peer IDs
type PeerIDSet map[PeerID]struct{}

// Add adds a peer ID to PeerIDSet
func (ps PeerIDSet) Add(id PeerID) {
	ps[id] = struct{}{}
}

// Del removes a peer ID from PeerIDSet
func (ps PeerIDSet) Del(id PeerID) {
	delete(ps, id)
}

// Contains checks if peer ID is in PeerIDSet
func (ps PeerIDSet) Contains(id PeerID) bool {
	_, ok := ps[id]
	return ok
}

// Clear removes all peer IDs from PeerIDSet
func (ps PeerIDSet) Clear() {
	for id := range ps {
		delete(ps, id)
	}
}

// ToList convert PeerIDSet to a slice of peer IDs
func (ps PeerIDSet) ToList() []PeerID {
	list := make([]PeerID, 0, len(ps))
	for id := range ps {
		list = append(list, id)
	}
	return list
}

// EntityIDSet is the data structure for a set of entity IDs
type EntityIDSet map[EntityID]struct{}

// Add adds an entity ID to EntityIDSet
func (es EntityIDSet) Add(id EntityID) {
	es[id] = struct{}{}
}

// Del removes an entity ID from EntityIDSet
func (es EntityIDSet) Del(id EntityID) {
	delete(es, id)
}

// Contains checks if entity ID is in EntityIDSet
func (es EntityIDSet) Contains(id EntityID) bool {
	_, ok := es[id]
	return ok
}

// ToList convert EntityIDSet to a slice of entity IDs
func (es EntityIDSet) ToList() []EntityID {
	list := make([]EntityID, 0, len(es))
	for eid := range es {
		list = append(list, eid)
	}
	return list
}

// StringSet is a set of strings
type StringSet map[string]struct{}

// Contains checks if StringSet contains the string
func (ss StringSet) Contains(elem string) bool {
	_, ok := ss[elem]
	return ok
}

// Add adds the string to StringSet
func (ss StringSet) Add(elem string) {
	ss[elem] = struct{}{}
}

// Remove removes the string from StringSet
func (ss StringSet) Remove(elem string) {
	delete(ss, elem)
}

// ToList convert StringSet to string slice
func (ss StringSet) ToList() []string {
	keys := make([]string, 0, len(ss))
	for s := range ss {
		keys = append(keys, s)
	}
	return keys
}
