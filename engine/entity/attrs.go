package entity

import (
	"github.com/xiaonanln/typeconv"
)

// MapAttr holds spawn-time data of an entity. Values decoded from the wire
// arrive with whatever numeric width the codec chose, so the typed getters
// coerce instead of asserting.
type MapAttr struct {
	attrs map[string]interface{}
}

// NewMapAttr creates an empty MapAttr
func NewMapAttr() *MapAttr {
	return &MapAttr{attrs: map[string]interface{}{}}
}

// Size returns the number of attrs
func (ma *MapAttr) Size() int {
	return len(ma.attrs)
}

// HasKey returns if the key exists
func (ma *MapAttr) HasKey(key string) bool {
	_, ok := ma.attrs[key]
	return ok
}

// Set sets the attr
func (ma *MapAttr) Set(key string, val interface{}) {
	ma.attrs[key] = val
}

// Get returns the raw attr value, nil if missing
func (ma *MapAttr) Get(key string) interface{} {
	return ma.attrs[key]
}

// GetInt returns the attr as int
func (ma *MapAttr) GetInt(key string) int {
	return int(typeconv.Int(ma.attrs[key]))
}

// GetInt64 returns the attr as int64
func (ma *MapAttr) GetInt64(key string) int64 {
	return typeconv.Int(ma.attrs[key])
}

// GetStr returns the attr as string
func (ma *MapAttr) GetStr(key string) string {
	val, _ := ma.attrs[key].(string)
	return val
}

// GetFloat returns the attr as float64
func (ma *MapAttr) GetFloat(key string) float64 {
	switch v := ma.attrs[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	default:
		return float64(typeconv.Int(ma.attrs[key]))
	}
}

// GetBool returns the attr as bool
func (ma *MapAttr) GetBool(key string) bool {
	val, _ := ma.attrs[key].(bool)
	return val
}

// GetKeys returns all attr keys
func (ma *MapAttr) GetKeys() []string {
	keys := make([]string, 0, len(ma.attrs))
	for k := range ma.attrs {
		keys = append(keys, k)
	}
	return keys
}

// ToMap copies the attrs to a plain map
func (ma *MapAttr) ToMap() map[string]interface{} {
	m := make(map[string]interface{}, len(ma.attrs))
	for k, v := range ma.attrs {
		m[k] = v
	}
	return m
}

// AssignMap sets all attrs from a plain map
func (ma *MapAttr) AssignMap(m map[string]interface{}) {
	for k, v := range m {
		ma.attrs[k] = v
	}
}
