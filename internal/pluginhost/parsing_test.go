package pluginhost

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newParsingPlugin(t *testing.T, parse func(Event, TableAccessor) error) *Plugin {
	t.Helper()
	l := newTestLoader(t)
	vt := fakeVTable("parser", "1.0.0")
	vt.GetCapabilities = func() CapabilitySet { return CapabilitySet(CapParsing) }
	vt.ParseEvent = parse

	p, err := l.LoadVTable(vt)
	require.NoError(t, err)
	require.NoError(t, p.Init("{}", nil))
	return p
}

func TestParsingAdapter_CallsPluginOnCompatibleEvent(t *testing.T) {
	called := false
	p := newParsingPlugin(t, func(Event, TableAccessor) error {
		called = true
		return nil
	})

	resolve := func(idx int32) (string, bool) { return "syscall", true }
	ok, err := p.Parsing.ParseEvent(Event{SourceIdx: 0, TypeCode: PluginEventCode}, resolve, nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, called)
}

func TestParsingAdapter_SilentlyRejectsUnsetSourceIndex(t *testing.T) {
	p := newParsingPlugin(t, func(Event, TableAccessor) error {
		t.Fatal("parse_event must not be called")
		return nil
	})

	resolve := func(idx int32) (string, bool) { return "", false }
	ok, err := p.Parsing.ParseEvent(Event{SourceIdx: unsetSourceIdx}, resolve, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestParsingAdapter_MemoizesSourceCompatibility(t *testing.T) {
	p := newParsingPlugin(t, func(Event, TableAccessor) error { return nil })

	calls := 0
	resolve := func(idx int32) (string, bool) {
		calls++
		return "syscall", true
	}

	for i := 0; i < 3; i++ {
		_, err := p.Parsing.ParseEvent(Event{SourceIdx: 42, TypeCode: PluginEventCode}, resolve, nil)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, calls)
}
