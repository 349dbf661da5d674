package table

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/streamspace/pluginhost/internal/apperr"
	"github.com/streamspace/pluginhost/internal/pluginhost"
)

// Registry is the process-scoped directory of published tables
// (§4.7). Names are unique and a table's key type is immutable after
// registration (invariants 5 and 6 in §8). The registry is the
// subsystem's other piece of shared mutable state besides the
// library registry (§5); both are protected by a mutex rather than
// documented single-threaded use, since the plugin host has no
// dedicated dispatcher goroutine of its own.
type Registry struct {
	mu     sync.RWMutex
	tables map[string]Table

	// owners tracks which plugin published each table ("" for tables
	// the host itself published via Publish), so ReleaseOwner can drop
	// everything a destroyed plugin owns (§4.8 ownership).
	owners map[string]string

	// descriptors tracks each consumer's live access descriptor per
	// table (§4.8 ownership: "a plugin holds at most one live access
	// descriptor per table-name it consumes"), keyed by consumer+name.
	descriptors map[accessKey]AccessDescriptor
}

type accessKey struct {
	consumer string
	table    string
}

// AccessDescriptor identifies one consumer's live handle onto a
// table, minted the first time that consumer looks the table up and
// reused on every subsequent lookup of the same (consumer, table)
// pair — it is not a fresh id per call.
type AccessDescriptor struct {
	ID    uuid.UUID
	Table string
}

// NewRegistry returns an empty table registry.
func NewRegistry() *Registry {
	return &Registry{
		tables:      make(map[string]Table),
		owners:      make(map[string]string),
		descriptors: make(map[accessKey]AccessDescriptor),
	}
}

var _ pluginhost.OwnerAwareTableAccessor = (*Registry)(nil)

// ListTables satisfies pluginhost.TableAccessor.
func (r *Registry) ListTables() []pluginhost.TableInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]pluginhost.TableInfo, 0, len(r.tables))
	for name, t := range r.tables {
		out = append(out, pluginhost.TableInfo{Name: name, KeyType: t.KeyType()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// GetTable satisfies pluginhost.TableAccessor. It fails with
// CompatibilityError if name is unknown or if expectedKeyType disagrees
// with the registered key type (invariant 5, scenario 6 in §8).
func (r *Registry) GetTable(name string, expectedKeyType pluginhost.ValueType) (pluginhost.Table, error) {
	t, ok := r.Get(name)
	if !ok {
		return nil, apperr.New(apperr.CompatibilityError, name, "no such table")
	}
	if t.KeyType() != expectedKeyType {
		return nil, apperr.New(apperr.CompatibilityError, name,
			fmt.Sprintf("table key type is %s, requested %s", t.KeyType(), expectedKeyType))
	}
	return t, nil
}

// AddTable satisfies pluginhost.TableAccessor. It registers the table
// unattributed (no owning plugin); callers that need owner-scoped
// teardown should go through AddTableOwned instead. owner is the
// concrete Table implementation backing this entry — a *memTable for
// host-published tables, or a *pluginTable wrapping a publishing
// plugin's vtable (bridge.go). AddTable fails if name already exists
// (invariant 6 in §8).
func (r *Registry) AddTable(info pluginhost.TableInfo, owner pluginhost.Table) error {
	return r.addTable("", info, owner)
}

// AddTableOwned satisfies pluginhost.OwnerAwareTableAccessor: it is the
// same as AddTable but records which plugin published the table, so
// ReleaseOwner can drop it once that plugin is destroyed (§4.8).
func (r *Registry) AddTableOwned(owner string, info pluginhost.TableInfo, t pluginhost.Table) error {
	return r.addTable(owner, info, t)
}

func (r *Registry) addTable(owner string, info pluginhost.TableInfo, ownerTable pluginhost.Table) error {
	t, ok := ownerTable.(Table)
	if !ok {
		return apperr.New(apperr.CompatibilityError, info.Name, "owner does not implement the full table interface")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tables[info.Name]; exists {
		return apperr.New(apperr.CompatibilityError, info.Name, "table already registered")
	}
	r.tables[info.Name] = t
	r.owners[info.Name] = owner
	return nil
}

// ReleaseOwner satisfies pluginhost.OwnerAwareTableAccessor: it drops
// every table published by owner, called from Plugin.Destroy (§4.8
// "the registry must refuse further access after that"). Tables
// published with an empty owner (host-native, via Publish) are never
// released this way.
func (r *Registry) ReleaseOwner(owner string) {
	if owner == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, o := range r.owners {
		if o == owner {
			delete(r.tables, name)
			delete(r.owners, name)
		}
	}
}

// GetTableForConsumer is GetTable plus access-descriptor bookkeeping:
// consumer's first lookup of name mints an AccessDescriptor; every
// later lookup of the same pair returns the same descriptor rather
// than minting a new one (§4.8). Descriptors are released via
// ReleaseConsumer when the consuming plugin is destroyed.
func (r *Registry) GetTableForConsumer(consumer, name string, expectedKeyType pluginhost.ValueType) (pluginhost.Table, AccessDescriptor, error) {
	t, err := r.GetTable(name, expectedKeyType)
	if err != nil {
		return nil, AccessDescriptor{}, err
	}

	key := accessKey{consumer: consumer, table: name}
	r.mu.Lock()
	defer r.mu.Unlock()
	desc, ok := r.descriptors[key]
	if !ok {
		desc = AccessDescriptor{ID: uuid.New(), Table: name}
		r.descriptors[key] = desc
	}
	return t, desc, nil
}

// ReleaseConsumer drops every access descriptor held by consumer,
// called when that plugin is destroyed (§5 "destroying the plugin
// releases all of them in reverse order of acquisition").
func (r *Registry) ReleaseConsumer(consumer string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.descriptors {
		if key.consumer == consumer {
			delete(r.descriptors, key)
		}
	}
}

// Get returns the full Table (fields + reader + writer) for name, for
// callers inside the host process rather than across the
// pluginhost.TableAccessor boundary.
func (r *Registry) Get(name string) (Table, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tables[name]
	return t, ok
}

// Publish registers a host-native table directly, equivalent to
// AddTable but without the TableAccessor indirection, for use by the
// embedding event pipeline rather than by a plugin.
func (r *Registry) Publish(t Table) error {
	return r.AddTable(pluginhost.TableInfo{Name: t.Name(), KeyType: t.KeyType()}, t)
}

// Remove drops name from the registry directly, regardless of owner.
// ReleaseOwner is the owner-scoped equivalent called automatically from
// Plugin.Destroy; Remove exists for callers that manage a table's
// lifecycle outside the plugin-ownership model entirely.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tables, name)
	delete(r.owners, name)
}
