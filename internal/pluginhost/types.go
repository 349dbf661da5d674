// Package pluginhost loads external dynamic libraries ("plugins") and
// exposes their sourcing, extraction, parsing and table-exchange
// capabilities behind a uniform, strongly-typed contract.
package pluginhost

import "fmt"

// ValueType is the scalar type carried by a field value or a table
// column. The same enumeration doubles as a table's key type, mirroring
// the source's reuse of one state-type set across fields and tables.
type ValueType uint8

const (
	TypeString ValueType = iota
	TypeUint64
	TypeBool
	TypeRelTime
	TypeAbsTime
	TypeIPv4Addr
	TypeIPv4Net
	TypeIPv6Addr
	TypeIPv6Net
	TypeIPNet
)

func (t ValueType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeUint64:
		return "uint64"
	case TypeBool:
		return "bool"
	case TypeRelTime:
		return "reltime"
	case TypeAbsTime:
		return "abstime"
	case TypeIPv4Addr:
		return "ipv4addr"
	case TypeIPv4Net:
		return "ipv4net"
	case TypeIPv6Addr:
		return "ipv6addr"
	case TypeIPv6Net:
		return "ipv6net"
	case TypeIPNet:
		return "ipnet"
	default:
		return fmt.Sprintf("valuetype(%d)", uint8(t))
	}
}

// ValueTypeFromString parses the field-JSON "type" string (§4.5). It
// returns false for anything outside the enumerated set.
func ValueTypeFromString(s string) (ValueType, bool) {
	switch s {
	case "string":
		return TypeString, true
	case "uint64":
		return TypeUint64, true
	case "bool":
		return TypeBool, true
	case "reltime":
		return TypeRelTime, true
	case "abstime":
		return TypeAbsTime, true
	case "ipv4addr":
		return TypeIPv4Addr, true
	case "ipv4net":
		return TypeIPv4Net, true
	case "ipv6addr":
		return TypeIPv6Addr, true
	case "ipv6net":
		return TypeIPv6Net, true
	case "ipnet":
		return TypeIPNet, true
	default:
		return 0, false
	}
}

// Value is a typed, decoded field or table value. Exactly one field is
// populated, selected by Type.
type Value struct {
	Type  ValueType
	Str   string
	U64   uint64
	Bool  bool
	Bytes []byte // ipv4net, ipv6addr, ipv6net, ipnet opaque encodings
}

// Capability is a declared facet of a plugin's ABI.
type Capability uint8

const (
	CapSourcing Capability = 1 << iota
	CapExtraction
	CapParsing
)

// CapabilitySet is the bitset of capabilities a plugin declares via
// plugin_get_capabilities.
type CapabilitySet uint8

func (c CapabilitySet) Has(cap Capability) bool { return c&CapabilitySet(cap) != 0 }

func (c CapabilitySet) String() string {
	s := ""
	if c.Has(CapSourcing) {
		s += "sourcing,"
	}
	if c.Has(CapExtraction) {
		s += "extraction,"
	}
	if c.Has(CapParsing) {
		s += "parsing,"
	}
	if s == "" {
		return "none"
	}
	return s[:len(s)-1]
}

// FieldFlag is one bit of a field descriptor's flag set (§3).
type FieldFlag uint16

const (
	FlagIsList FieldFlag = 1 << iota
	FlagArgAllowed
	FlagArgRequired
	FlagArgIndex
	FlagArgKey
	FlagTableOnly
	FlagInfo
	FlagConversation
)

// FieldFlagSet is the bitset attached to a FieldDescriptor.
type FieldFlagSet uint16

func (f FieldFlagSet) Has(flag FieldFlag) bool { return f&FieldFlagSet(flag) != 0 }

// State is the lifecycle of a loaded plugin.
type State uint8

const (
	StateLoaded State = iota
	StateInitialized
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateInitialized:
		return "initialized"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// SourceEventCode is the numeric event-type code carried by an Event.
type SourceEventCode uint16

// PluginEventCode is the reserved event-type code used for "generic
// plugin events" emitted by a sourcing plugin with no numeric id (§4.3).
const PluginEventCode SourceEventCode = 322

// Event is the minimal event shape the plugin host operates on. The
// surrounding event pipeline (out of scope, §6) owns the richer event
// representation; the host only needs a source index, a type code and
// an opaque payload to drive extraction and parsing.
type Event struct {
	// SourceIdx resolves to an event-source name via a host-provided
	// lookup; -1 means unset (§4.5 "if the event's source index is unset, reject").
	SourceIdx int32
	TypeCode  SourceEventCode
	Num       uint64 // monotonic event number; the adapters in this package do not read it
	Payload   []byte
}

// SourceIndexName resolves a numeric source index to the name the host
// knows it by. Supplied by the embedding event pipeline; plugin adapters
// never compute this themselves (§4.5(c)).
type SourceIndexName func(idx int32) (name string, ok bool)

const unsetSourceIdx int32 = -1
