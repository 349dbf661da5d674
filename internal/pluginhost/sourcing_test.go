package pluginhost

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSourcingPlugin(t *testing.T) (*Plugin, *SourcingAdapter) {
	t.Helper()
	l := newTestLoader(t)
	vt := fakeVTable("sourcer", "1.0.0")
	vt.GetCapabilities = func() CapabilitySet { return CapabilitySet(CapSourcing) }
	vt.GetID = func() uint32 { return 0 }
	vt.GetEventSource = func() string { return "demo" }
	vt.Open = func(PluginState, string) (SourceHandle, error) { return "handle", nil }
	vt.Close = func(PluginState, SourceHandle) {}
	vt.NextBatch = func(PluginState, SourceHandle) ([]Event, BatchStatus, error) {
		return []Event{{SourceIdx: 0, TypeCode: PluginEventCode}}, BatchOK, nil
	}
	vt.ListOpenParams = func(PluginState) (string, error) {
		return `[{"value":"file.txt","desc":"read from a file","separator":""}]`, nil
	}

	p, err := l.LoadVTable(vt)
	require.NoError(t, err)
	require.NoError(t, p.Init("{}", nil))
	return p, p.Sourcing
}

func TestSourcingAdapter_OpenCloseNextBatch(t *testing.T) {
	_, s := newSourcingPlugin(t)

	h, err := s.Open("file.txt")
	require.NoError(t, err)

	events, status, err := s.NextBatch(h)
	require.NoError(t, err)
	assert.Equal(t, BatchOK, status)
	require.Len(t, events, 1)

	s.Close(h)
}

func TestSourcingAdapter_ListOpenParamsParsesJSON(t *testing.T) {
	_, s := newSourcingPlugin(t)

	params, err := s.ListOpenParams()
	require.NoError(t, err)
	require.Len(t, params, 1)
	assert.Equal(t, "file.txt", params[0].Value)
}

func TestSourcingAdapter_ListOpenParamsRejectsEmptyValue(t *testing.T) {
	l := newTestLoader(t)
	vt := fakeVTable("sourcer2", "1.0.0")
	vt.GetCapabilities = func() CapabilitySet { return CapabilitySet(CapSourcing) }
	vt.GetID = func() uint32 { return 0 }
	vt.GetEventSource = func() string { return "demo" }
	vt.Open = func(PluginState, string) (SourceHandle, error) { return nil, nil }
	vt.Close = func(PluginState, SourceHandle) {}
	vt.NextBatch = func(PluginState, SourceHandle) ([]Event, BatchStatus, error) { return nil, BatchEOF, nil }
	vt.ListOpenParams = func(PluginState) (string, error) {
		return `[{"value":"","desc":"broken"}]`, nil
	}

	p, err := l.LoadVTable(vt)
	require.NoError(t, err)
	require.NoError(t, p.Init("{}", nil))

	_, err = p.Sourcing.ListOpenParams()
	require.Error(t, err)
}
