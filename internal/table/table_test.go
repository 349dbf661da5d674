package table

import (
	"testing"

	"github.com/streamspace/pluginhost/internal/pluginhost"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemTable_CreateSetGetRow(t *testing.T) {
	tbl := NewTable("procs", pluginhost.TypeUint64)
	require.NoError(t, tbl.AddField(Field{Name: "comm", Type: pluginhost.TypeString}))

	key := Value{Type: pluginhost.TypeUint64, U64: 42}
	require.NoError(t, tbl.CreateRow(key))
	require.NoError(t, tbl.SetField(key, "comm", Value{Type: pluginhost.TypeString, Str: "bash"}))

	assert.True(t, tbl.HasRow(key))
	v, ok := tbl.GetField(key, "comm")
	require.True(t, ok)
	assert.Equal(t, "bash", v.Str)
}

func TestMemTable_EraseRowAndClear(t *testing.T) {
	tbl := NewTable("procs", pluginhost.TypeUint64)
	key := Value{Type: pluginhost.TypeUint64, U64: 1}
	require.NoError(t, tbl.CreateRow(key))
	assert.Equal(t, 1, tbl.Size())

	require.NoError(t, tbl.EraseRow(key))
	assert.Equal(t, 0, tbl.Size())

	require.NoError(t, tbl.CreateRow(key))
	tbl.Clear()
	assert.Equal(t, 0, tbl.Size())
}

func TestMemTable_SetFieldOnUnknownRowFails(t *testing.T) {
	tbl := NewTable("procs", pluginhost.TypeUint64)
	key := Value{Type: pluginhost.TypeUint64, U64: 1}
	err := tbl.SetField(key, "comm", Value{Type: pluginhost.TypeString, Str: "x"})
	assert.Error(t, err)
}

func TestMemTable_BytesRepresentedKeysDoNotCollapse(t *testing.T) {
	tbl := NewTable("nets", pluginhost.TypeIPv4Net)
	a := Value{Type: pluginhost.TypeIPv4Net, Bytes: []byte{10, 0, 0, 0, 8}}
	b := Value{Type: pluginhost.TypeIPv4Net, Bytes: []byte{192, 168, 0, 0, 16}}

	require.NoError(t, tbl.CreateRow(a))
	require.NoError(t, tbl.CreateRow(b))
	assert.Equal(t, 2, tbl.Size())

	require.NoError(t, tbl.SetField(a, "label", Value{Type: pluginhost.TypeString, Str: "a"}))
	require.NoError(t, tbl.SetField(b, "label", Value{Type: pluginhost.TypeString, Str: "b"}))

	va, ok := tbl.GetField(a, "label")
	require.True(t, ok)
	assert.Equal(t, "a", va.Str)

	vb, ok := tbl.GetField(b, "label")
	require.True(t, ok)
	assert.Equal(t, "b", vb.Str)
}

func TestMemTable_Iterate(t *testing.T) {
	tbl := NewTable("procs", pluginhost.TypeUint64)
	require.NoError(t, tbl.CreateRow(Value{Type: pluginhost.TypeUint64, U64: 1}))
	require.NoError(t, tbl.CreateRow(Value{Type: pluginhost.TypeUint64, U64: 2}))

	seen := 0
	tbl.Iterate(func(key Value) bool {
		seen++
		return true
	})
	assert.Equal(t, 2, seen)
}
