package pluginhost

import (
	"sync"

	"github.com/streamspace/pluginhost/internal/apperr"
	"github.com/streamspace/pluginhost/internal/logger"
)

// Plugin is a loaded plugin's descriptor together with whichever
// capability adapters its declared CapabilitySet enables (design note
// §9, "tagged capability set" — a struct containing optional adapters,
// not an inheritance hierarchy). An adapter field is nil when its
// capability bit is not declared. The adapters' methods do not check for
// a nil receiver, so calling one through a nil field panics;
// CompileFieldCheck reports a plugin without EXTRACTION as
// CompatibilityError.
type Plugin struct {
	vt   *VTable
	path string

	name               string
	description        string
	contact            string
	version            string
	requiredAPIVersion string
	capabilities       CapabilitySet

	Sourcing   *SourcingAdapter
	Extraction *ExtractionAdapter
	Parsing    *ParsingAdapter
	Tables     *TableAccess

	mu          sync.Mutex
	state       State
	pluginState PluginState
	tables      TableAccessor
	initOnce    bool
}

// Name, Description, Contact, Version and RequiredAPIVersion return the
// immutable metadata extracted at load time (§3).
func (p *Plugin) Name() string               { return p.name }
func (p *Plugin) Description() string        { return p.description }
func (p *Plugin) Contact() string            { return p.contact }
func (p *Plugin) Version() string            { return p.version }
func (p *Plugin) RequiredAPIVersion() string { return p.requiredAPIVersion }
func (p *Plugin) Capabilities() CapabilitySet { return p.capabilities }
func (p *Plugin) Path() string               { return p.path }

// State returns the plugin's current lifecycle state.
func (p *Plugin) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Init validates config against the plugin's schema (if any) and calls
// plugin_init. It must be called at most once (§3); a second call
// returns StateError.
func (p *Plugin) Init(config string, tables TableAccessor) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initOnce {
		return apperr.New(apperr.StateError, p.name, "plugin initialized twice")
	}
	p.initOnce = true

	if config == "" {
		config = "{}"
	}

	if p.vt.GetInitSchema != nil {
		if schema := p.vt.GetInitSchema(); schema != "" {
			if err := ValidateConfig(p.name, schema, config); err != nil {
				return err
			}
		}
	}

	access := newTableAccess(p, tables)
	// plugin_init receives the tables-access vtable only when the plugin
	// declares EXTRACTION or PARSING (§4.2).
	var initAccess TableAccessor
	if p.capabilities.Has(CapExtraction) || p.capabilities.Has(CapParsing) {
		initAccess = access
	}
	state, err := p.vt.Init(config, initAccess)
	if err != nil {
		if state != nil {
			// Retain the handle only long enough to pull get_last_error,
			// then let it go — the open question in spec.md §9 resolved
			// in favor of never using a failed-init handle again.
			msg := p.lastErrorFor(state)
			return apperr.NewWithDetails(apperr.InitError, p.name, "plugin init failed", msg)
		}
		return apperr.Wrap(apperr.InitError, p.name, "plugin init failed", err)
	}

	p.pluginState = state
	p.tables = tables
	p.Tables = access
	p.state = StateInitialized
	logger.Component("loader").Info().Str("plugin", p.name).Msg("plugin initialized")
	return nil
}

// Destroy tears the plugin down. It is idempotent (§4.2).
func (p *Plugin) Destroy() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StateDestroyed {
		return nil
	}
	if p.pluginState != nil {
		p.vt.Destroy(p.pluginState)
	}
	// Drop every table this plugin published, per §4.8's ownership
	// invariant: the registry must refuse further access once the
	// publishing plugin is gone.
	if oa, ok := p.tables.(OwnerAwareTableAccessor); ok {
		oa.ReleaseOwner(p.name)
	}
	p.pluginState = nil
	p.state = StateDestroyed
	logger.Component("loader").Info().Str("plugin", p.name).Msg("plugin destroyed")
	return nil
}

// LastError retrieves the plugin's get_last_error text for its current
// state handle. Returns "" before init or after destroy.
func (p *Plugin) LastError() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pluginState == nil {
		return ""
	}
	return p.lastErrorFor(p.pluginState)
}

func (p *Plugin) lastErrorFor(state PluginState) string {
	if p.vt.GetLastError == nil {
		return ""
	}
	return p.vt.GetLastError(state)
}

// runtimeError wraps an underlying plugin call failure as a
// PluginRuntimeError carrying the plugin's get_last_error text, per
// spec.md §7.
func (p *Plugin) runtimeError(message string, err error) error {
	last := p.LastError()
	if last == "" {
		return apperr.Wrap(apperr.PluginRuntimeError, p.name, message, err)
	}
	return apperr.NewWithDetails(apperr.PluginRuntimeError, p.name, message, last)
}
