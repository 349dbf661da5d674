package pluginhost

import "github.com/streamspace/pluginhost/internal/apperr"

// ExtractionAdapter exposes a plugin's field extraction capability
// (§4.4). It exists only on plugins that declare CapExtraction.
type ExtractionAdapter struct {
	plugin *Plugin
	fields []FieldDescriptor
	compat eventSourceCompat
}

func newExtractionAdapter(p *Plugin, fields []FieldDescriptor, compat eventSourceCompat) *ExtractionAdapter {
	return &ExtractionAdapter{plugin: p, fields: fields, compat: compat}
}

// Fields returns the plugin's field catalog.
func (a *ExtractionAdapter) Fields() []FieldDescriptor { return a.fields }

// FieldByName looks up a field by name, as the field-check adapter does
// when binding a filter-engine token to a plugin field.
func (a *ExtractionAdapter) FieldByName(name string) (FieldDescriptor, bool) {
	for _, f := range a.fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDescriptor{}, false
}

// SourceCompatible reports whether the given event-source name is one
// this plugin extracts from (empty declared set = all sources).
func (a *ExtractionAdapter) SourceCompatible(name string) bool { return a.compat.sourceOK(name) }

// CodeCompatible reports whether the given event-type code is one this
// plugin extracts from.
func (a *ExtractionAdapter) CodeCompatible(code SourceEventCode) bool { return a.compat.codeOK(code) }

// ExtractFields issues a single extraction call to the plugin for the
// given event and field requests. The adapter does not interpret the
// per-request results beyond what FieldResult already carries — it is
// the field-check adapter's job to apply per-event compatibility
// filtering before calling this (§4.5).
func (a *ExtractionAdapter) ExtractFields(e Event, reqs []FieldRequest) ([]FieldResult, error) {
	p := a.plugin
	if p.State() != StateInitialized {
		return nil, apperr.New(apperr.StateError, p.Name(), "extract_fields called before init")
	}
	if p.vt.ExtractFields == nil {
		return nil, apperr.New(apperr.CompatibilityError, p.Name(), "plugin does not export extract_fields")
	}
	res, err := p.vt.ExtractFields(p.pluginState, e, reqs)
	if err != nil {
		return nil, p.runtimeError("extract_fields failed", err)
	}
	return res, nil
}
