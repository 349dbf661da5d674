package pluginhost

// This file is the subsystem's single audited FFI boundary (design note
// §9, "C vtable across FFI → explicit boundary module"). Every value
// that crosses from untrusted plugin code into the host is named and
// typed here; apart from the loader's symbol binding (loader.go),
// nothing outside this file deals in raw symbols.
//
// A real C plugin exports symbols like `plugin_get_name` returning
// `const char *`. A Go plugin built with `-buildmode=plugin` cannot
// export C symbols, so the boundary is expressed the idiomatic-Go way:
// each required or optional ABI entry point is a top-level exported Go
// function with a fixed name and signature, resolved by the loader via
// plugin.Lookup (see loader.go), and copied into a VTable of typed
// function values. This is the same technique the teacher's
// discovery.go uses for its single "NewPlugin" symbol, generalized to
// the full required/optional symbol set spec.md §6 names.

// PluginState is the opaque handle a plugin's Init returns and every
// later call receives back. The host never inspects it; it only holds
// and forwards the pointer, mirroring the C ABI's unsafe.Pointer state.
type PluginState any

// SourceHandle is the opaque handle returned by a sourcing plugin's
// Open and passed back into Close/NextBatch/GetProgress.
type SourceHandle any

// BatchStatus is the result of a sourcing NextBatch call.
type BatchStatus int

const (
	BatchOK BatchStatus = iota
	BatchTimeout
	BatchEOF
	BatchFailure
)

// OpenParam is one entry of a sourcing plugin's list_open_params JSON array.
type OpenParam struct {
	Value     string `json:"value"`
	Desc      string `json:"desc"`
	Separator string `json:"separator"`
}

// FieldRequest is what the host hands the plugin's ExtractFields call
// for a single requested field (§4.4): enough information for the
// plugin to know which field, and whether/how it is parameterized.
type FieldRequest struct {
	ID         int
	Name       string
	Type       ValueType
	IsList     bool
	ArgPresent bool
	ArgIndex   uint64
	ArgKey     string
}

// FieldResult is the typed result a plugin fills in for one
// FieldRequest (§4.4's type-to-representation table, decoded into Go
// values instead of raw little-endian buffers — the buffer layout
// itself is an ABI concern the VTable absorbs so the rest of the host
// only ever sees typed Values).
type FieldResult struct {
	Present bool
	Values  []Value // len > 1 only when the field is IS_LIST
}

// VTable is the full set of C-ABI entry points a plugin may export,
// bound to typed Go function values by the loader. LoadPath refuses a
// library that lacks a required entry point; LoadVTable does not check,
// so a hand-built VTable may leave one nil. Optional entry points are
// nil when the plugin does not export them, and the adapters check for
// nil before calling one.
type VTable struct {
	// Required, all plugins (spec.md §6).
	GetRequiredAPIVersion func() string
	GetVersion            func() string
	GetName               func() string
	GetDescription        func() string
	GetContact            func() string
	GetLastError          func(state PluginState) string
	Init                  func(config string, tables TableAccessor) (PluginState, error)
	Destroy               func(state PluginState)
	GetCapabilities       func() CapabilitySet

	// Optional, any capability.
	GetInitSchema func() string

	// Sourcing, required when CapSourcing is declared.
	GetID          func() uint32
	GetEventSource func() string
	Open           func(state PluginState, params string) (SourceHandle, error)
	Close          func(state PluginState, h SourceHandle)
	NextBatch      func(state PluginState, h SourceHandle) ([]Event, BatchStatus, error)

	// Sourcing, optional.
	GetProgress    func(state PluginState, h SourceHandle) (text string, percent int)
	EventToString  func(state PluginState, e Event) string
	ListOpenParams func(state PluginState) (json string, err error)

	// Extraction, required when CapExtraction is declared.
	GetFields     func() (string, error)
	ExtractFields func(state PluginState, e Event, reqs []FieldRequest) ([]FieldResult, error)

	// Extraction, optional.
	GetExtractEventSources func() []string
	GetExtractEventTypes   func() []SourceEventCode

	// Parsing, required when CapParsing is declared.
	ParseEvent func(state PluginState, e Event, tables TableAccessor) error

	// Parsing, optional.
	GetParseEventSources func() []string
	GetParseEventTypes   func() []SourceEventCode
}

// TableAccessor is the tables-access vtable handed to a plugin's Init
// (when it declares EXTRACTION or PARSING) and to ParseEvent (§4.2,
// §4.6). It is the plugin-facing half of the table bridge in
// internal/table; pluginhost only depends on this interface so the two
// packages stay decoupled the way the source keeps sinsp_plugin and the
// table bridge in separate translation units.
type TableAccessor interface {
	ListTables() []TableInfo
	GetTable(name string, keyType ValueType) (Table, error)
	AddTable(info TableInfo, owner Table) error
}

// TableInfo names a registered table and its key type.
type TableInfo struct {
	Name    string
	KeyType ValueType
}

// OwnerAwareTableAccessor is an optional extension of TableAccessor: a
// registry that implements it remembers which plugin published each
// table, so Plugin.Destroy can release every table that plugin
// published (§4.8 "the registry must refuse further access after
// that"). A bare TableAccessor used in tests need not implement this —
// Plugin.Destroy simply skips the release step when it doesn't.
type OwnerAwareTableAccessor interface {
	TableAccessor
	AddTableOwned(owner string, info TableInfo, t Table) error
	ReleaseOwner(owner string)
}

// Table is the minimal shape pluginhost needs from internal/table.Table
// to drive parsing and extraction; the concrete implementation lives in
// internal/table to keep the FFI boundary module free of storage
// details.
type Table interface {
	Name() string
	KeyType() ValueType
}
