package pluginhost

import (
	"sync"

	"github.com/streamspace/pluginhost/internal/apperr"
)

// ParsingAdapter exposes a plugin's table-mutation capability (§4.6).
// It exists only on plugins that declare CapParsing.
type ParsingAdapter struct {
	plugin *Plugin
	compat eventSourceCompat

	mu          sync.Mutex
	sourceCache map[int32]bool // memoized source-index -> compatible
}

func newParsingAdapter(p *Plugin, compat eventSourceCompat) *ParsingAdapter {
	return &ParsingAdapter{plugin: p, compat: compat, sourceCache: make(map[int32]bool)}
}

// ParseEvent calls the plugin's parse_event, which may mutate the tables
// it can reach, for the given event if (and only if) the event is
// source/code-compatible with this plugin. Per
// spec.md §7, incompatibility here is silent rejection (returns
// ok=false, err=nil), not a failure — this runs on the hot path.
func (a *ParsingAdapter) ParseEvent(e Event, resolve SourceIndexName, tables TableAccessor) (ok bool, err error) {
	p := a.plugin
	if p.State() != StateInitialized {
		return false, apperr.New(apperr.StateError, p.Name(), "parse_event called before init")
	}
	if p.vt.ParseEvent == nil {
		return false, apperr.New(apperr.CompatibilityError, p.Name(), "plugin does not export parse_event")
	}

	if e.SourceIdx == unsetSourceIdx {
		return false, nil
	}
	if !a.compat.codeOK(e.TypeCode) {
		return false, nil
	}
	if !a.sourceCompatible(e.SourceIdx, resolve) {
		return false, nil
	}

	access := tables
	if p.Tables != nil {
		access = p.Tables
	}
	if err := p.vt.ParseEvent(p.pluginState, e, access); err != nil {
		return false, p.runtimeError("parse_event failed", err)
	}
	return true, nil
}

func (a *ParsingAdapter) sourceCompatible(idx int32, resolve SourceIndexName) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if v, ok := a.sourceCache[idx]; ok {
		return v
	}
	name, ok := resolve(idx)
	compatible := ok && a.compat.sourceOK(name)
	a.sourceCache[idx] = compatible
	return compatible
}
