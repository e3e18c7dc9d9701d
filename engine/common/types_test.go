package common

import "testing"

func TestEntityID(t *testing.T) {
	eid := GenEntityID()
	if len(eid) != ENTITYID_LENGTH {
		t.Fail()
	}

	if eid.IsNil() {
		t.Fail()
	}

	if !EntityID("").IsNil() {
		t.Fail()
	}
}

func TestPeerID(t *testing.T) {
	if !HostPeerID.IsHost() {
		t.Fail()
	}
	if PeerID(1).IsHost() {
		t.Fail()
	}
}

func TestVector3DistanceTo(t *testing.T) {
	a := Vector3{X: 0, Y: 0, Z: 0}
	b := Vector3{X: 3, Y: 4, Z: 0}
	if d := a.DistanceTo(b); d != 5 {
		t.Errorf("distance should be 5, not %v", d)
	}
	if d := a.DistanceTo(a); d != 0 {
		t.Errorf("distance to self should be 0, not %v", d)
	}
}

func TestPeerIDSet(t *testing.T) {
	ps := PeerIDSet{}
	ps.Add(1)
	ps.Add(2)
	ps.Add(2)
	if len(ps) != 2 {
		t.Errorf("set should have 2 peers, has %d", len(ps))
	}
	if !ps.Contains(1) || !ps.Contains(2) {
		t.Fail()
	}
	ps.Del(1)
	if ps.Contains(1) {
		t.Fail()
	}
	ps.Clear()
	if len(ps) != 0 {
		t.Fail()
	}
}
