package pluginhost

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/streamspace/pluginhost/internal/apperr"
	"github.com/streamspace/pluginhost/internal/logger"
)

// SourcingAdapter exposes a plugin's event-producing capability (§4.3).
// It exists only on plugins that declare CapSourcing.
type SourcingAdapter struct {
	plugin          *Plugin
	id              uint32
	eventSourceName string
}

func newSourcingAdapter(p *Plugin, id uint32, eventSourceName string) *SourcingAdapter {
	return &SourcingAdapter{plugin: p, id: id, eventSourceName: eventSourceName}
}

// ID is the plugin's numeric source id; 0 means "generic/no id" and
// emitted events carry PluginEventCode instead of a plugin-specific code.
func (a *SourcingAdapter) ID() uint32 { return a.id }

// EventSourceName is the named stream this plugin produces events for.
func (a *SourcingAdapter) EventSourceName() string { return a.eventSourceName }

// Open starts a new event stream for the given open params string. The
// returned handle is the plugin's own opaque value; the adapter only
// tags the call with a correlation id for diagnostics, since the
// handle itself carries no identity a log line can usefully print.
func (a *SourcingAdapter) Open(params string) (SourceHandle, error) {
	p := a.plugin
	if p.State() != StateInitialized {
		return nil, apperr.New(apperr.StateError, p.Name(), "open called before init")
	}
	correlationID := uuid.New()
	h, err := p.vt.Open(p.pluginState, params)
	if err != nil {
		return nil, p.runtimeError("open failed", err)
	}
	logger.Plugin("sourcing", p.Name()).Debug().
		Str("correlation_id", correlationID.String()).
		Str("params", params).
		Msg("source opened")
	return h, nil
}

// Close releases a source handle previously returned by Open.
func (a *SourcingAdapter) Close(h SourceHandle) {
	p := a.plugin
	p.vt.Close(p.pluginState, h)
}

// NextBatch pulls the next batch of events from an open source handle.
func (a *SourcingAdapter) NextBatch(h SourceHandle) ([]Event, BatchStatus, error) {
	p := a.plugin
	if p.State() != StateInitialized {
		return nil, BatchFailure, apperr.New(apperr.StateError, p.Name(), "next_batch called before init")
	}
	events, status, err := p.vt.NextBatch(p.pluginState, h)
	if err != nil {
		return nil, BatchFailure, p.runtimeError("next_batch failed", err)
	}
	return events, status, nil
}

// GetProgress reports source-read progress, if the plugin exports it.
// Returns ("", -1) when the plugin does not implement get_progress.
func (a *SourcingAdapter) GetProgress(h SourceHandle) (string, int) {
	p := a.plugin
	if p.vt.GetProgress == nil {
		return "", -1
	}
	return p.vt.GetProgress(p.pluginState, h)
}

// EventToString renders a single event as text, if the plugin exports
// it; otherwise returns false.
func (a *SourcingAdapter) EventToString(e Event) (string, bool) {
	p := a.plugin
	if p.vt.EventToString == nil {
		return "", false
	}
	return p.vt.EventToString(p.pluginState, e), true
}

// ListOpenParams parses the plugin's list_open_params JSON array (§4.3).
// Entries with an empty Value are rejected.
func (a *SourcingAdapter) ListOpenParams() ([]OpenParam, error) {
	p := a.plugin
	if p.vt.ListOpenParams == nil {
		return nil, nil
	}
	raw, err := p.vt.ListOpenParams(p.pluginState)
	if err != nil {
		return nil, p.runtimeError("list_open_params failed", err)
	}
	var params []OpenParam
	if err := json.Unmarshal([]byte(raw), &params); err != nil {
		return nil, apperr.Wrap(apperr.DescriptorError, p.Name(), "list_open_params did not return a JSON array", err)
	}
	for _, op := range params {
		if op.Value == "" {
			return nil, apperr.New(apperr.DescriptorError, p.Name(), "list_open_params entry has empty value")
		}
	}
	return params, nil
}
