package entity

import (
	"testing"

	"github.com/lunarisgames/netsession/engine/common"
)

type testAvatar struct {
	Entity
	inited    bool
	created   bool
	destroyed bool
}

func (a *testAvatar) OnInit()    { a.inited = true }
func (a *testAvatar) OnCreated() { a.created = true }
func (a *testAvatar) OnDestroy() { a.destroyed = true }

type notAnEntity struct {
	inited bool
}

func (n *notAnEntity) OnInit()    {}
func (n *notAnEntity) OnCreated() {}
func (n *notAnEntity) OnDestroy() {}

func init() {
	RegisterEntity("testAvatar", &testAvatar{})
}

func TestRegisterEntity(t *testing.T) {
	if !IsRegistered("testAvatar") {
		t.Fail()
	}
	if IsRegistered("Unknown") {
		t.Fail()
	}
	if RegisterEntity("testAvatar", &testAvatar{}) {
		t.Errorf("duplicate registration should fail")
	}
	if RegisterEntity("notAnEntity", &notAnEntity{}) {
		t.Errorf("prototype without embedded Entity should fail")
	}
}

func TestCreateEntity(t *testing.T) {
	m := NewManager(common.HostPeerID)
	e, err := m.CreateEntity("testAvatar", KindPlayer, 1, common.Vector3{X: 5}, 90, nil)
	if err != nil {
		t.Fatal(err)
	}
	a := e.I.(*testAvatar)
	if !a.inited || !a.created {
		t.Errorf("lifecycle callbacks not run: %+v", a)
	}
	if e.Position.X != 5 || e.Yaw != 90 || e.Owner != 1 {
		t.Errorf("wrong entity state: %+v", e)
	}
	if m.Get(e.ID) != e || m.Count() != 1 {
		t.Errorf("entity not indexed")
	}
	if !e.IsOwnedBy(1) || e.IsOwnedBy(2) {
		t.Fail()
	}

	if _, err := m.CreateEntityWithID(e.ID, "testAvatar", KindPlayer, 1, common.Vector3{}, 0, nil); err == nil {
		t.Errorf("duplicate ID should fail")
	}
	if _, err := m.CreateEntity("Unknown", KindNonPlayer, 0, common.Vector3{}, 0, nil); err == nil {
		t.Errorf("unregistered type should fail")
	}

	m.Destroy(e)
	if !a.destroyed || !e.IsDestroyed() {
		t.Errorf("OnDestroy not run")
	}
	if m.Get(e.ID) != nil || m.Count() != 0 {
		t.Errorf("destroyed entity still indexed")
	}
	m.Destroy(e) // second destroy is a no-op
}

func TestCreateEntityWithData(t *testing.T) {
	m := NewManager(common.HostPeerID)
	e, err := m.CreateEntity("testAvatar", KindNonPlayer, common.HostPeerID, common.Vector3{}, 0, map[string]interface{}{
		"name": "bob",
		"hp":   int8(42),
	})
	if err != nil {
		t.Fatal(err)
	}
	if e.Attrs.GetStr("name") != "bob" {
		t.Errorf("string attr lost")
	}
	if e.Attrs.GetInt("hp") != 42 {
		t.Errorf("int attr lost: %v", e.Attrs.GetInt("hp"))
	}
}

func TestPlayersWithin(t *testing.T) {
	m := NewManager(common.HostPeerID)
	near, _ := m.CreateEntity("testAvatar", KindPlayer, 1, common.Vector3{X: 1}, 0, nil)
	far, _ := m.CreateEntity("testAvatar", KindPlayer, 2, common.Vector3{X: 100}, 0, nil)
	m.CreateEntity("testAvatar", KindNonPlayer, 3, common.Vector3{X: 2}, 0, nil)

	players := m.PlayersWithin(common.Vector3{}, 10)
	if len(players) != 1 || players[0] != near {
		t.Errorf("should find only the near player, found %v", players)
	}
	_ = far
}

func TestOwnershipTransfer(t *testing.T) {
	m := NewManager(common.HostPeerID)
	e, _ := m.CreateEntity("testAvatar", KindNonPlayer, 1, common.Vector3{}, 0, nil)
	m.TransferOwnership(e, 2)
	if e.Owner != 2 {
		t.Errorf("owner should be 2")
	}
	owned := m.OwnedBy(2)
	if len(owned) != 1 || owned[0] != e {
		t.Errorf("OwnedBy wrong: %v", owned)
	}
}
