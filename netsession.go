// Package netsession coordinates a multiplayer session between one
// authoritative host and its connected peers: phased startup, entity
// spawning, world transition barriers, channel-addressed messaging and
// permissioned replicated variables, all on a cooperative tick loop.
package netsession

import (
	"github.com/lunarisgames/netsession/engine/common"
	"github.com/lunarisgames/netsession/engine/entity"
	"github.com/lunarisgames/netsession/engine/session"
)

// Role aliases for callers that only import the root package
const (
	RoleHost = common.RoleHost
	RolePeer = common.RolePeer
)

// Options configures the session, see session.Options
type Options = session.Options

// Bootstrap creates the process-wide session on first call, see
// session.Bootstrap
func Bootstrap(opts Options) *session.Session {
	return session.Bootstrap(opts)
}

// Current returns the bootstrapped session, nil before Bootstrap
func Current() *session.Session {
	return session.Current()
}

// RegisterEntity registers a user entity type by name
//
// The prototype must be a pointer to a struct embedding entity.Entity
func RegisterEntity(typeName string, prototype entity.IEntity) bool {
	return entity.RegisterEntity(typeName, prototype)
}
