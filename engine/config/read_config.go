package config

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/go-ini/ini"
	"github.com/pkg/errors"

	"github.com/lunarisgames/netsession/engine/common"
	"github.com/lunarisgames/netsession/engine/nslog"
)

const (
	_DEFAULT_CONFIG_FILE = "netsession.ini"

	_DEFAULT_TICK_INTERVAL    = time.Millisecond * 100
	_DEFAULT_LOG_LEVEL        = "debug"
	_DEFAULT_SETTLE_DELAY     = time.Millisecond * 500
	_DEFAULT_MAX_PER_TICK     = 4
	_DEFAULT_SPAWN_INTERVAL   = time.Millisecond * 50
	_DEFAULT_MIN_LOADING_TIME = time.Second
	_DEFAULT_PHASE_HOLD_TICKS = 2
)

var (
	configFilePath = _DEFAULT_CONFIG_FILE
	sessionConfig  *SessionConfig
	configLock     sync.Mutex
)

// SpawnSelection determines how a spawn point is picked for a player
type SpawnSelection int

const (
	// SelectRoundRobin walks the spawn point list in order
	SelectRoundRobin SpawnSelection = iota
	// SelectRandom picks a random spawn point
	SelectRandom
	// SelectByPeerID derives the spawn point index from the peer ID
	SelectByPeerID
)

// SessionConfig defines fields of the [session] section
type SessionConfig struct {
	TickInterval   time.Duration
	LogLevel       string
	LogFile        string
	HTTPIp         string
	HTTPPort       int
	PhaseHoldTicks int
	Spawn          SpawnConfig
	Scene          SceneConfig
	Vars           VarsConfig
}

// SpawnConfig defines fields of the [spawn] section
type SpawnConfig struct {
	PlayerEntity     string
	AutoSpawn        bool
	SettleDelay      time.Duration
	MaxPerTick       int
	MinSpawnInterval time.Duration
	Selection        SpawnSelection
	Points           []SpawnPointConfig
	NotifyAllSpawned bool
}

// SpawnPointConfig is one entry of the spawn point list
type SpawnPointConfig struct {
	Pos common.Vector3
	Yaw common.Yaw
}

// SceneConfig defines fields of the [scene] section
type SceneConfig struct {
	MinLoadingTime time.Duration
}

// VarsConfig defines fields of the [vars] section
type VarsConfig struct {
	DefaultSyncRate float64
}

func (cfg *SessionConfig) String() string {
	return DumpPretty(cfg)
}

// SetConfigFile sets the config file path
func SetConfigFile(f string) {
	configLock.Lock()
	defer configLock.Unlock()
	configFilePath = f
	sessionConfig = nil
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	configLock.Lock()
	defer configLock.Unlock()
	return configFilePath
}

// Get returns the total session config, reading the config file on first use
func Get() *SessionConfig {
	configLock.Lock()
	defer configLock.Unlock()
	if sessionConfig == nil {
		sessionConfig = readConfigFile()
	}
	return sessionConfig
}

// Reload forces rereading the config file
func Reload() *SessionConfig {
	configLock.Lock()
	sessionConfig = nil
	configLock.Unlock()
	return Get()
}

// DumpPretty format config to string of pretty json
func DumpPretty(cfg interface{}) string {
	s, err := json.MarshalIndent(cfg, "", "    ")
	if err != nil {
		return err.Error()
	}
	return string(s)
}

func newDefaultConfig() *SessionConfig {
	return &SessionConfig{
		TickInterval:   _DEFAULT_TICK_INTERVAL,
		LogLevel:       _DEFAULT_LOG_LEVEL,
		PhaseHoldTicks: _DEFAULT_PHASE_HOLD_TICKS,
		Spawn: SpawnConfig{
			AutoSpawn:        true,
			SettleDelay:      _DEFAULT_SETTLE_DELAY,
			MaxPerTick:       _DEFAULT_MAX_PER_TICK,
			MinSpawnInterval: _DEFAULT_SPAWN_INTERVAL,
			Selection:        SelectRoundRobin,
			NotifyAllSpawned: true,
		},
		Scene: SceneConfig{
			MinLoadingTime: _DEFAULT_MIN_LOADING_TIME,
		},
		Vars: VarsConfig{
			DefaultSyncRate: 10,
		},
	}
}

func readConfigFile() *SessionConfig {
	cfg := newDefaultConfig()

	iniFile, err := ini.Load(configFilePath)
	if err != nil {
		nslog.Warnf("config: cannot read %s, using defaults: %v", configFilePath, err)
		return cfg
	}

	for _, sec := range iniFile.Sections() {
		name := strings.ToLower(sec.Name())
		switch name {
		case "session":
			readSessionSection(sec, cfg)
		case "spawn":
			readSpawnSection(sec, &cfg.Spawn)
		case "scene":
			readSceneSection(sec, &cfg.Scene)
		case "vars":
			readVarsSection(sec, &cfg.Vars)
		case "default":
			// ini root section, ignored
		default:
			nslog.Warnf("config: unknown section [%s]", sec.Name())
		}
	}

	if err := validateConfig(cfg); err != nil {
		nslog.Panicf("config: %+v", errors.Wrap(err, configFilePath))
	}
	return cfg
}

func readSessionSection(sec *ini.Section, cfg *SessionConfig) {
	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		switch name {
		case "tick_interval_ms":
			cfg.TickInterval = time.Millisecond * time.Duration(key.MustInt(100))
		case "log_level":
			cfg.LogLevel = key.MustString(_DEFAULT_LOG_LEVEL)
		case "log_file":
			cfg.LogFile = key.MustString("")
		case "http_ip":
			cfg.HTTPIp = key.MustString("")
		case "http_port":
			cfg.HTTPPort = key.MustInt(0)
		case "phase_hold_ticks":
			cfg.PhaseHoldTicks = key.MustInt(_DEFAULT_PHASE_HOLD_TICKS)
		default:
			nslog.Warnf("config: unknown [session] key: %s", key.Name())
		}
	}
}

func readSpawnSection(sec *ini.Section, cfg *SpawnConfig) {
	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		switch name {
		case "player_entity":
			cfg.PlayerEntity = key.MustString("")
		case "auto_spawn":
			cfg.AutoSpawn = key.MustBool(true)
		case "settle_delay_ms":
			cfg.SettleDelay = time.Millisecond * time.Duration(key.MustInt(500))
		case "max_per_tick":
			cfg.MaxPerTick = key.MustInt(_DEFAULT_MAX_PER_TICK)
		case "min_spawn_interval_ms":
			cfg.MinSpawnInterval = time.Millisecond * time.Duration(key.MustInt(50))
		case "selection":
			cfg.Selection = parseSelection(key.MustString("roundrobin"))
		case "points":
			cfg.Points = parseSpawnPoints(key.MustString(""))
		case "notify_all_spawned":
			cfg.NotifyAllSpawned = key.MustBool(true)
		default:
			nslog.Warnf("config: unknown [spawn] key: %s", key.Name())
		}
	}
}

func readSceneSection(sec *ini.Section, cfg *SceneConfig) {
	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		switch name {
		case "min_loading_time_ms":
			cfg.MinLoadingTime = time.Millisecond * time.Duration(key.MustInt(1000))
		default:
			nslog.Warnf("config: unknown [scene] key: %s", key.Name())
		}
	}
}

func readVarsSection(sec *ini.Section, cfg *VarsConfig) {
	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		switch name {
		case "default_sync_rate":
			cfg.DefaultSyncRate = key.MustFloat64(10)
		default:
			nslog.Warnf("config: unknown [vars] key: %s", key.Name())
		}
	}
}

func parseSelection(s string) SpawnSelection {
	switch strings.ToLower(s) {
	case "roundrobin", "round_robin":
		return SelectRoundRobin
	case "random":
		return SelectRandom
	case "byid", "by_peer_id":
		return SelectByPeerID
	}
	nslog.Warnf("config: unknown spawn selection %q, using roundrobin", s)
	return SelectRoundRobin
}

// parseSpawnPoints parses "x,y,z[,yaw]; x,y,z[,yaw]; ..."
func parseSpawnPoints(s string) []SpawnPointConfig {
	var points []SpawnPointConfig
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.Split(part, ",")
		if len(fields) != 3 && len(fields) != 4 {
			nslog.Warnf("config: invalid spawn point %q", part)
			continue
		}
		var vals [4]float64
		ok := true
		for i, f := range fields {
			v, err := parseFloat(strings.TrimSpace(f))
			if err != nil {
				nslog.Warnf("config: invalid spawn point %q: %v", part, err)
				ok = false
				break
			}
			vals[i] = v
		}
		if !ok {
			continue
		}
		points = append(points, SpawnPointConfig{
			Pos: common.Vector3{X: float32(vals[0]), Y: float32(vals[1]), Z: float32(vals[2])},
			Yaw: common.Yaw(vals[3]),
		})
	}
	return points
}

func parseFloat(s string) (float64, error) {
	var v float64
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return 0, errors.Wrapf(err, "parse float %q", s)
	}
	return v, nil
}

func validateConfig(cfg *SessionConfig) error {
	if cfg.TickInterval <= 0 {
		return errors.New("tick_interval_ms must be positive")
	}
	if cfg.Spawn.MaxPerTick <= 0 {
		return errors.New("max_per_tick must be positive")
	}
	if cfg.Spawn.MinSpawnInterval < 0 {
		return errors.New("min_spawn_interval_ms must not be negative")
	}
	if cfg.Spawn.AutoSpawn && cfg.Spawn.PlayerEntity == "" {
		nslog.Warnf("config: auto_spawn enabled but player_entity is not set; player spawns will fail")
	}
	if cfg.Vars.DefaultSyncRate <= 0 {
		return errors.New("default_sync_rate must be positive")
	}
	return nil
}
