package pluginhost

import (
	"fmt"
	"plugin"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/streamspace/pluginhost/internal/apperr"
	"github.com/streamspace/pluginhost/internal/logger"
)

// LibraryRegistry is the process-scoped table of opened library paths
// (design note §9, "process-global open libraries -> explicit
// registry"). It answers IsLoaded; it never refuses a second load of
// the same path — spec.md §4.1 explicitly requires that loading a path
// twice succeed and yield independent descriptors.
type LibraryRegistry struct {
	mu     sync.Mutex
	opened map[string]int
}

// NewLibraryRegistry returns an empty registry.
func NewLibraryRegistry() *LibraryRegistry {
	return &LibraryRegistry{opened: make(map[string]int)}
}

func (r *LibraryRegistry) mark(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opened[path]++
}

// IsLoaded reports whether path has been opened at least once.
func (r *LibraryRegistry) IsLoaded(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opened[path] > 0
}

// OpenCount returns how many times path has been loaded.
func (r *LibraryRegistry) OpenCount(path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opened[path]
}

// Loader opens plugin shared libraries, or accepts a pre-built
// in-process vtable for tests (spec.md §4.1), and produces bound
// Plugin descriptors with API version negotiation against a supported
// semver range.
type Loader struct {
	libs *LibraryRegistry

	minAPIVersion *semver.Version
	maxAPIVersion *semver.Version
}

// NewLoader builds a Loader that accepts plugins whose required API
// version falls within [minAPIVersion, maxAPIVersion] inclusive.
func NewLoader(minAPIVersion, maxAPIVersion string) (*Loader, error) {
	min, err := semver.NewVersion(minAPIVersion)
	if err != nil {
		return nil, fmt.Errorf("invalid minimum API version %q: %w", minAPIVersion, err)
	}
	max, err := semver.NewVersion(maxAPIVersion)
	if err != nil {
		return nil, fmt.Errorf("invalid maximum API version %q: %w", maxAPIVersion, err)
	}
	return &Loader{libs: NewLibraryRegistry(), minAPIVersion: min, maxAPIVersion: max}, nil
}

// Libraries returns the loader's open-libraries registry.
func (l *Loader) Libraries() *LibraryRegistry { return l.libs }

// IsLoaded reports whether path has already been opened by this loader.
func (l *Loader) IsLoaded(path string) bool { return l.libs.IsLoaded(path) }

// LoadPath opens the shared library at path, binds its exported
// symbols into a VTable by name via plugin.Lookup, and builds a Plugin
// descriptor. This is the loader's only FFI entry point; everything
// downstream operates on the typed VTable (vtable.go).
func (l *Loader) LoadPath(path string) (*Plugin, error) {
	lib, err := plugin.Open(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.LoadError, path, "failed to open plugin library", err)
	}
	l.libs.mark(path)

	vt, err := bindCoreVTable(path, lib)
	if err != nil {
		return nil, err
	}

	caps := vt.GetCapabilities()
	if caps.Has(CapSourcing) {
		if err := bindSourcingVTable(path, lib, vt); err != nil {
			return nil, err
		}
	}
	if caps.Has(CapExtraction) {
		if err := bindExtractionVTable(path, lib, vt); err != nil {
			return nil, err
		}
	}
	if caps.Has(CapParsing) {
		if err := bindParsingVTable(path, lib, vt); err != nil {
			return nil, err
		}
	}

	return l.build(path, vt)
}

// LoadVTable builds a Plugin descriptor directly from a pre-built
// vtable, bypassing dlopen and symbol resolution entirely. This is the
// "pre-built capability vtable in-process for tests" path spec.md
// §4.1 calls out explicitly.
func (l *Loader) LoadVTable(vt *VTable) (*Plugin, error) {
	return l.build("<in-process>", vt)
}

// build extracts descriptor metadata, checks the API version range,
// and wires capability adapters for whichever bits the plugin declared
// (design note §9, "tagged capability set").
func (l *Loader) build(path string, vt *VTable) (*Plugin, error) {
	name := vt.GetName()
	if name == "" {
		return nil, apperr.New(apperr.LoadError, path, "plugin_get_name returned empty string")
	}
	version := vt.GetVersion()
	requiredAPI := vt.GetRequiredAPIVersion()
	caps := vt.GetCapabilities()

	if err := l.checkAPIVersion(name, requiredAPI); err != nil {
		return nil, err
	}

	p := &Plugin{
		vt:                 vt,
		path:               path,
		name:               name,
		description:        vt.GetDescription(),
		contact:            vt.GetContact(),
		version:            version,
		requiredAPIVersion: requiredAPI,
		capabilities:       caps,
		state:              StateLoaded,
	}

	if caps.Has(CapSourcing) {
		p.Sourcing = newSourcingAdapter(p, vt.GetID(), vt.GetEventSource())
	}

	if caps.Has(CapExtraction) {
		fieldsJSON, err := vt.GetFields()
		if err != nil {
			return nil, apperr.Wrap(apperr.DescriptorError, name, "get_fields failed", err)
		}
		fields, err := ParseFieldJSON(name, fieldsJSON)
		if err != nil {
			return nil, err
		}
		var sources []string
		if vt.GetExtractEventSources != nil {
			sources = vt.GetExtractEventSources()
		}
		var codes []SourceEventCode
		if vt.GetExtractEventTypes != nil {
			codes = vt.GetExtractEventTypes()
		}
		p.Extraction = newExtractionAdapter(p, fields, newEventSourceCompat(sources, codes))
	}

	if caps.Has(CapParsing) {
		var sources []string
		if vt.GetParseEventSources != nil {
			sources = vt.GetParseEventSources()
		}
		var codes []SourceEventCode
		if vt.GetParseEventTypes != nil {
			codes = vt.GetParseEventTypes()
		}
		p.Parsing = newParsingAdapter(p, newEventSourceCompat(sources, codes))
	}

	logger.Component("loader").Info().
		Str("plugin", name).
		Str("version", version).
		Str("capabilities", caps.String()).
		Str("path", path).
		Msg("plugin loaded")

	return p, nil
}

func (l *Loader) checkAPIVersion(pluginName, required string) error {
	v, err := semver.NewVersion(required)
	if err != nil {
		return apperr.Wrap(apperr.LoadError, pluginName, fmt.Sprintf("invalid required API version %q", required), err)
	}
	if v.LessThan(l.minAPIVersion) || v.GreaterThan(l.maxAPIVersion) {
		return apperr.New(apperr.LoadError, pluginName,
			fmt.Sprintf("required API version %s is outside supported range [%s, %s]", v, l.minAPIVersion, l.maxAPIVersion))
	}
	return nil
}

// lookupRequired resolves name to a symbol of exactly type T, failing
// with a LoadError naming both the plugin path and the symbol.
func lookupRequired[T any](lib *plugin.Plugin, path, name string) (T, error) {
	fn, ok := lookupOptional[T](lib, name)
	if !ok {
		var zero T
		return zero, apperr.New(apperr.LoadError, path, fmt.Sprintf("missing or malformed required symbol %s", name))
	}
	return fn, nil
}

// lookupOptional resolves name to a symbol of exactly type T, or
// reports ok=false if the symbol is absent or has the wrong signature.
func lookupOptional[T any](lib *plugin.Plugin, name string) (T, bool) {
	var zero T
	sym, err := lib.Lookup(name)
	if err != nil {
		return zero, false
	}
	fn, ok := sym.(T)
	if !ok {
		return zero, false
	}
	return fn, true
}

func bindCoreVTable(path string, lib *plugin.Plugin) (*VTable, error) {
	vt := &VTable{}
	var err error
	if vt.GetRequiredAPIVersion, err = lookupRequired[func() string](lib, path, "PluginGetRequiredAPIVersion"); err != nil {
		return nil, err
	}
	if vt.GetVersion, err = lookupRequired[func() string](lib, path, "PluginGetVersion"); err != nil {
		return nil, err
	}
	if vt.GetName, err = lookupRequired[func() string](lib, path, "PluginGetName"); err != nil {
		return nil, err
	}
	if vt.GetDescription, err = lookupRequired[func() string](lib, path, "PluginGetDescription"); err != nil {
		return nil, err
	}
	if vt.GetContact, err = lookupRequired[func() string](lib, path, "PluginGetContact"); err != nil {
		return nil, err
	}
	if vt.GetLastError, err = lookupRequired[func(PluginState) string](lib, path, "PluginGetLastError"); err != nil {
		return nil, err
	}
	if vt.Init, err = lookupRequired[func(string, TableAccessor) (PluginState, error)](lib, path, "PluginInit"); err != nil {
		return nil, err
	}
	if vt.Destroy, err = lookupRequired[func(PluginState)](lib, path, "PluginDestroy"); err != nil {
		return nil, err
	}
	if vt.GetCapabilities, err = lookupRequired[func() CapabilitySet](lib, path, "PluginGetCapabilities"); err != nil {
		return nil, err
	}

	vt.GetInitSchema, _ = lookupOptional[func() string](lib, "PluginGetInitSchema")
	return vt, nil
}

func bindSourcingVTable(path string, lib *plugin.Plugin, vt *VTable) error {
	var err error
	if vt.GetID, err = lookupRequired[func() uint32](lib, path, "PluginGetID"); err != nil {
		return err
	}
	if vt.GetEventSource, err = lookupRequired[func() string](lib, path, "PluginGetEventSource"); err != nil {
		return err
	}
	if vt.Open, err = lookupRequired[func(PluginState, string) (SourceHandle, error)](lib, path, "PluginOpen"); err != nil {
		return err
	}
	if vt.Close, err = lookupRequired[func(PluginState, SourceHandle)](lib, path, "PluginClose"); err != nil {
		return err
	}
	if vt.NextBatch, err = lookupRequired[func(PluginState, SourceHandle) ([]Event, BatchStatus, error)](lib, path, "PluginNextBatch"); err != nil {
		return err
	}

	vt.GetProgress, _ = lookupOptional[func(PluginState, SourceHandle) (string, int)](lib, "PluginGetProgress")
	vt.EventToString, _ = lookupOptional[func(PluginState, Event) string](lib, "PluginEventToString")
	vt.ListOpenParams, _ = lookupOptional[func(PluginState) (string, error)](lib, "PluginListOpenParams")
	return nil
}

func bindExtractionVTable(path string, lib *plugin.Plugin, vt *VTable) error {
	var err error
	if vt.GetFields, err = lookupRequired[func() (string, error)](lib, path, "PluginGetFields"); err != nil {
		return err
	}
	if vt.ExtractFields, err = lookupRequired[func(PluginState, Event, []FieldRequest) ([]FieldResult, error)](lib, path, "PluginExtractFields"); err != nil {
		return err
	}

	vt.GetExtractEventSources, _ = lookupOptional[func() []string](lib, "PluginGetExtractEventSources")
	vt.GetExtractEventTypes, _ = lookupOptional[func() []SourceEventCode](lib, "PluginGetExtractEventTypes")
	return nil
}

func bindParsingVTable(path string, lib *plugin.Plugin, vt *VTable) error {
	var err error
	if vt.ParseEvent, err = lookupRequired[func(PluginState, Event, TableAccessor) error](lib, path, "PluginParseEvent"); err != nil {
		return err
	}

	vt.GetParseEventSources, _ = lookupOptional[func() []string](lib, "PluginGetParseEventSources")
	vt.GetParseEventTypes, _ = lookupOptional[func() []SourceEventCode](lib, "PluginGetParseEventTypes")
	return nil
}
