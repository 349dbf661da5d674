package pluginhost

import (
	"testing"

	"github.com/streamspace/pluginhost/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlugin_InitTwiceYieldsStateError(t *testing.T) {
	l := newTestLoader(t)
	p, err := l.LoadVTable(fakeVTable("twice", "1.0.0"))
	require.NoError(t, err)

	require.NoError(t, p.Init("{}", nil))
	err = p.Init("{}", nil)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.StateError))
	assert.Contains(t, err.Error(), "initialized twice")
}

func TestPlugin_InitFailureRetainsLastErrorOnly(t *testing.T) {
	l := newTestLoader(t)
	vt := fakeVTable("fails-init", "1.0.0")
	vt.Init = func(config string, tables TableAccessor) (PluginState, error) {
		return "half-baked-state", assert.AnError
	}
	vt.GetLastError = func(state PluginState) string {
		if state == "half-baked-state" {
			return "bad config field"
		}
		return ""
	}
	p, err := l.LoadVTable(vt)
	require.NoError(t, err)

	err = p.Init("{}", nil)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.InitError))
	assert.Contains(t, err.Error(), "bad config field")
	assert.Equal(t, StateLoaded, p.State())
}

func TestPlugin_SchemaFailureNamesMissingProperty(t *testing.T) {
	l := newTestLoader(t)
	vt := fakeVTable("schema-checked", "1.0.0")
	vt.GetInitSchema = func() string { return `{"type":"object","required":["k"]}` }
	p, err := l.LoadVTable(vt)
	require.NoError(t, err)

	err = p.Init("{}", nil)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.SchemaError))
	assert.Contains(t, err.Error(), "k")
}

// fakeOwnerAwareTables is a minimal OwnerAwareTableAccessor for testing
// that Plugin.Destroy releases owned tables without needing the real
// internal/table.Registry (which would import this package).
type fakeOwnerAwareTables struct {
	owners map[string]string
}

func (f *fakeOwnerAwareTables) ListTables() []TableInfo { return nil }
func (f *fakeOwnerAwareTables) GetTable(name string, keyType ValueType) (Table, error) {
	if _, ok := f.owners[name]; !ok {
		return nil, apperr.New(apperr.CompatibilityError, name, "no such table")
	}
	return nil, nil
}
func (f *fakeOwnerAwareTables) AddTable(info TableInfo, t Table) error {
	return f.AddTableOwned("", info, t)
}
func (f *fakeOwnerAwareTables) AddTableOwned(owner string, info TableInfo, t Table) error {
	if f.owners == nil {
		f.owners = make(map[string]string)
	}
	f.owners[info.Name] = owner
	return nil
}
func (f *fakeOwnerAwareTables) ReleaseOwner(owner string) {
	for name, o := range f.owners {
		if o == owner {
			delete(f.owners, name)
		}
	}
}

func TestPlugin_DestroyReleasesTablesItPublished(t *testing.T) {
	l := newTestLoader(t)
	p, err := l.LoadVTable(fakeVTable("table-owner", "1.0.0"))
	require.NoError(t, err)

	tables := &fakeOwnerAwareTables{}
	require.NoError(t, p.Init("{}", tables))
	require.NoError(t, p.Tables.AddTable(TableInfo{Name: "proc", KeyType: TypeUint64}, nil))

	_, err = tables.GetTable("proc", TypeUint64)
	require.NoError(t, err)

	require.NoError(t, p.Destroy())

	_, err = tables.GetTable("proc", TypeUint64)
	assert.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CompatibilityError))
}

func TestPlugin_DestroyIsIdempotent(t *testing.T) {
	l := newTestLoader(t)
	destroyCalls := 0
	vt := fakeVTable("destroy-me", "1.0.0")
	vt.Destroy = func(PluginState) { destroyCalls++ }
	p, err := l.LoadVTable(vt)
	require.NoError(t, err)
	require.NoError(t, p.Init("{}", nil))

	require.NoError(t, p.Destroy())
	require.NoError(t, p.Destroy())
	assert.Equal(t, 1, destroyCalls)
	assert.Equal(t, StateDestroyed, p.State())
}
