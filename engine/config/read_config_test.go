package config

import (
	"testing"

	"github.com/bmizerany/assert"

	"github.com/lunarisgames/netsession/engine/nslog"
)

func init() {
	SetConfigFile("../../netsession.ini.sample")
}

func TestLoad(t *testing.T) {
	config := Get()
	nslog.Debugf("netsession config: \n%s", config)
	if config == nil {
		t.FailNow()
	}
	if config.TickInterval <= 0 {
		t.Errorf("tick interval not read")
	}
	assert.Equal(t, config.Spawn.PlayerEntity, "Avatar")
	assert.Equal(t, len(config.Spawn.Points), 3)
	if config.Spawn.Points[1].Pos.X != 10 || config.Spawn.Points[1].Yaw != 90 {
		t.Errorf("wrong spawn point: %+v", config.Spawn.Points[1])
	}
	if config.Vars.DefaultSyncRate != 10 {
		t.Errorf("wrong sync rate: %v", config.Vars.DefaultSyncRate)
	}
}

func TestReload(t *testing.T) {
	Get()
	config := Reload()
	nslog.Debugf("netsession config: \n%s", config)
}

func TestMissingFileUsesDefaults(t *testing.T) {
	defer SetConfigFile("../../netsession.ini.sample")

	SetConfigFile("no_such_file.ini")
	config := Get()
	if config.TickInterval != _DEFAULT_TICK_INTERVAL {
		t.Errorf("should fall back to default tick interval")
	}
	if config.Spawn.MaxPerTick != _DEFAULT_MAX_PER_TICK {
		t.Errorf("should fall back to default max per tick")
	}
}

func TestParseSpawnPoints(t *testing.T) {
	points := parseSpawnPoints("1,2,3; 4,5,6,45; bogus; 7,8")
	if len(points) != 2 {
		t.Fatalf("should parse 2 points, got %d", len(points))
	}
	if points[0].Pos.Z != 3 || points[0].Yaw != 0 {
		t.Errorf("wrong first point: %+v", points[0])
	}
	if points[1].Yaw != 45 {
		t.Errorf("wrong second point: %+v", points[1])
	}
}

func TestParseSelection(t *testing.T) {
	if parseSelection("random") != SelectRandom {
		t.Fail()
	}
	if parseSelection("by_peer_id") != SelectByPeerID {
		t.Fail()
	}
	if parseSelection("garbage") != SelectRoundRobin {
		t.Fail()
	}
}
