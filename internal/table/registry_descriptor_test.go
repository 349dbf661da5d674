package table

import (
	"testing"

	"github.com/streamspace/pluginhost/internal/pluginhost"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_GetTableForConsumerReusesDescriptor(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Publish(NewTable("proc", pluginhost.TypeUint64)))

	_, d1, err := r.GetTableForConsumer("plugin-a", "proc", pluginhost.TypeUint64)
	require.NoError(t, err)
	_, d2, err := r.GetTableForConsumer("plugin-a", "proc", pluginhost.TypeUint64)
	require.NoError(t, err)

	assert.Equal(t, d1.ID, d2.ID)
}

func TestRegistry_GetTableForConsumerIsolatesByConsumer(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Publish(NewTable("proc", pluginhost.TypeUint64)))

	_, d1, err := r.GetTableForConsumer("plugin-a", "proc", pluginhost.TypeUint64)
	require.NoError(t, err)
	_, d2, err := r.GetTableForConsumer("plugin-b", "proc", pluginhost.TypeUint64)
	require.NoError(t, err)

	assert.NotEqual(t, d1.ID, d2.ID)
}

func TestRegistry_ReleaseOwnerDropsOnlyThatOwnersTables(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.AddTableOwned("plugin-a", pluginhost.TableInfo{Name: "a-table", KeyType: pluginhost.TypeUint64}, NewTable("a-table", pluginhost.TypeUint64)))
	require.NoError(t, r.Publish(NewTable("host-table", pluginhost.TypeUint64)))

	r.ReleaseOwner("plugin-a")

	_, err := r.GetTable("a-table", pluginhost.TypeUint64)
	assert.Error(t, err)

	_, err = r.GetTable("host-table", pluginhost.TypeUint64)
	assert.NoError(t, err)
}

func TestRegistry_ReleaseConsumerDropsDescriptors(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Publish(NewTable("proc", pluginhost.TypeUint64)))

	_, before, err := r.GetTableForConsumer("plugin-a", "proc", pluginhost.TypeUint64)
	require.NoError(t, err)

	r.ReleaseConsumer("plugin-a")

	_, after, err := r.GetTableForConsumer("plugin-a", "proc", pluginhost.TypeUint64)
	require.NoError(t, err)
	assert.NotEqual(t, before.ID, after.ID)
}
