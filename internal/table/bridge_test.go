package table

import (
	"testing"

	"github.com/streamspace/pluginhost/internal/pluginhost"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPluginTable_DelegatesToVTable(t *testing.T) {
	rows := map[uint64]string{}
	vt := PluginTableVTable{
		CreateRow: func(key Value) error { rows[key.U64] = ""; return nil },
		SetField: func(key Value, field string, value Value) error {
			rows[key.U64] = value.Str
			return nil
		},
		GetField: func(key Value, field string) (Value, bool) {
			v, ok := rows[key.U64]
			return Value{Type: pluginhost.TypeString, Str: v}, ok
		},
		HasRow: func(key Value) bool { _, ok := rows[key.U64]; return ok },
		Size:   func() int { return len(rows) },
	}
	destroyed := false
	tbl := NewPluginTable("plugin-proc", pluginhost.TypeUint64, "demo-plugin", vt, &destroyed)

	key := Value{Type: pluginhost.TypeUint64, U64: 1}
	require.NoError(t, tbl.CreateRow(key))
	require.NoError(t, tbl.SetField(key, "comm", Value{Type: pluginhost.TypeString, Str: "bash"}))

	v, ok := tbl.GetField(key, "comm")
	require.True(t, ok)
	assert.Equal(t, "bash", v.Str)
}

func TestPluginTable_RefusesAccessAfterOwnerDestroyed(t *testing.T) {
	destroyed := false
	calls := 0
	vt := PluginTableVTable{
		HasRow: func(key Value) bool { calls++; return true },
	}
	tbl := NewPluginTable("plugin-proc", pluginhost.TypeUint64, "demo-plugin", vt, &destroyed)

	key := Value{Type: pluginhost.TypeUint64, U64: 1}
	assert.True(t, tbl.HasRow(key))

	destroyed = true
	assert.False(t, tbl.HasRow(key))
	assert.Equal(t, 1, calls)

	err := tbl.CreateRow(key)
	assert.Error(t, err)
}
