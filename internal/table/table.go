// Package table implements the cross-plugin state table registry and
// the vtable bridge that makes host-native and plugin-owned tables
// interchangeable (spec.md §4.7, §4.8).
package table

import (
	"sync"

	"github.com/streamspace/pluginhost/internal/apperr"
	"github.com/streamspace/pluginhost/internal/pluginhost"
)

// ValueType is the same scalar enumeration that fields and table keys
// share (spec.md §3, "the same state-type set across
// fields and tables").
type ValueType = pluginhost.ValueType

// Value is a typed, decoded field value, shared with pluginhost so a
// single Value crosses both the field-extraction and table-row paths
// without conversion.
type Value = pluginhost.Value

// Field is one named, typed column of a Table (§4.8 "fields vtable").
type Field struct {
	Name string
	Type ValueType
}

// RowVisitor is called once per row during Iterate; returning false
// stops iteration early, mirroring the source's "callback pattern with
// an opaque visitor cookie" (§4.8) — the cookie itself is just the
// closure's captured state in idiomatic Go.
type RowVisitor func(key Value) (cont bool)

// Reader is the read half of a table's vtable (§4.8 "reader vtable"):
// look up a row by key, read one of its fields, iterate all rows.
type Reader interface {
	HasRow(key Value) bool
	GetField(key Value, field string) (Value, bool)
	Iterate(visit RowVisitor)
	Size() int
}

// Writer is the write half of a table's vtable (§4.8 "writer vtable"):
// create or erase a row, set one of its fields, clear the whole table.
type Writer interface {
	CreateRow(key Value) error
	EraseRow(key Value) error
	SetField(key Value, field string, value Value) error
	Clear()
}

// Table is the full per-table interface a registry entry satisfies:
// field discovery plus the reader and writer halves (§4.8). Both
// host-native tables and bridged plugin-owned tables implement it
// identically, so a consumer cannot distinguish the two (§4.8,
// "interchangeable from a consumer's point of view").
type Table interface {
	Name() string
	KeyType() ValueType
	Fields() []Field
	FieldByName(name string) (Field, bool)
	AddField(field Field) error
	Reader
	Writer
}

// memTable is the host-native in-memory Table implementation: a single
// mutex-guarded map of key -> row. Rows are plain maps from field name
// to Value; there is no schema enforcement beyond Field declarations
// (a row may be sparse).
type memTable struct {
	name    string
	keyType ValueType

	mu     sync.RWMutex
	fields []Field
	byName map[string]int
	rows   map[any]map[string]Value
}

// NewTable constructs a host-native, in-memory table. Use this for
// tables the host itself publishes; tables a plugin publishes via
// add_table are wrapped with NewPluginTable instead.
func NewTable(name string, keyType ValueType) Table {
	return &memTable{
		name:    name,
		keyType: keyType,
		byName:  make(map[string]int),
		rows:    make(map[any]map[string]Value),
	}
}

func (t *memTable) Name() string       { return t.name }
func (t *memTable) KeyType() ValueType { return t.keyType }

func (t *memTable) Fields() []Field {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Field, len(t.fields))
	copy(out, t.fields)
	return out
}

func (t *memTable) FieldByName(name string) (Field, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	idx, ok := t.byName[name]
	if !ok {
		return Field{}, false
	}
	return t.fields[idx], true
}

// AddField looks up a field by name, creating it if absent; it never
// fails on re-declaration of the same (name, type) pair, mirroring the
// source's "look up or create a field" fields-vtable semantics (§4.8).
func (t *memTable) AddField(field Field) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if idx, ok := t.byName[field.Name]; ok {
		if t.fields[idx].Type != field.Type {
			return apperr.New(apperr.CompatibilityError, t.name,
				"field \""+field.Name+"\" already exists with a different type")
		}
		return nil
	}
	t.byName[field.Name] = len(t.fields)
	t.fields = append(t.fields, field)
	return nil
}

func (t *memTable) rowKey(key Value) any {
	switch key.Type {
	case pluginhost.TypeString:
		return key.Str
	case pluginhost.TypeBool:
		return key.Bool
	case pluginhost.TypeIPv4Net, pluginhost.TypeIPv6Addr, pluginhost.TypeIPv6Net, pluginhost.TypeIPNet:
		// Bytes-represented types (types.go's Value doc comment, §3/§4.4):
		// U64 is never populated for these, so keying on it would collapse
		// every distinct key into one row.
		return string(key.Bytes)
	default:
		return key.U64
	}
}

func (t *memTable) HasRow(key Value) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.rows[t.rowKey(key)]
	return ok
}

func (t *memTable) GetField(key Value, field string) (Value, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	row, ok := t.rows[t.rowKey(key)]
	if !ok {
		return Value{}, false
	}
	v, ok := row[field]
	return v, ok
}

func (t *memTable) Iterate(visit RowVisitor) {
	t.mu.RLock()
	keys := make([]Value, 0, len(t.rows))
	for _, row := range t.rows {
		if v, ok := row["__key__"]; ok {
			keys = append(keys, v)
		}
	}
	t.mu.RUnlock()

	for _, k := range keys {
		if !visit(k) {
			return
		}
	}
}

func (t *memTable) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

func (t *memTable) CreateRow(key Value) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	rk := t.rowKey(key)
	if _, ok := t.rows[rk]; ok {
		return nil
	}
	t.rows[rk] = map[string]Value{"__key__": key}
	return nil
}

func (t *memTable) EraseRow(key Value) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.rows, t.rowKey(key))
	return nil
}

func (t *memTable) SetField(key Value, field string, value Value) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	rk := t.rowKey(key)
	row, ok := t.rows[rk]
	if !ok {
		return apperr.New(apperr.CompatibilityError, t.name, "set_field on unknown row")
	}
	row[field] = value
	return nil
}

func (t *memTable) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = make(map[any]map[string]Value)
}
