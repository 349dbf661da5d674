package table

import "github.com/streamspace/pluginhost/internal/apperr"

// PluginTableVTable is the set of callbacks a plugin supplies when it
// publishes a table via add_table (§4.8). It is the plugin-owned half
// of the table bridge: the host never touches the plugin's storage
// directly, only through these functions, mirroring the C ABI's
// plugin-supplied field/reader/writer vtables.
type PluginTableVTable struct {
	Fields      func() []Field
	AddField    func(field Field) error
	HasRow      func(key Value) bool
	GetField    func(key Value, field string) (Value, bool)
	Iterate     func(visit RowVisitor)
	Size        func() int
	CreateRow   func(key Value) error
	EraseRow    func(key Value) error
	SetField    func(key Value, field string, value Value) error
	Clear       func()
}

// pluginTable wraps a plugin-published table's vtable so it satisfies
// the same Table interface as a host-native memTable (§4.8, "so they
// are indistinguishable from native ones"). Once the owning plugin is
// destroyed, no method invokes a vtable function pointer into freed
// plugin memory: AddField, CreateRow, EraseRow and SetField return
// CompatibilityError, while the read methods return zero values and
// Clear does nothing.
type pluginTable struct {
	name    string
	keyType ValueType
	owner   string
	vt      PluginTableVTable

	destroyed *bool // shared with the publishing Plugin's lifecycle
}

// NewPluginTable wraps a plugin's table vtable as a Table. ownerPlugin
// names the publishing plugin (for error messages); destroyed is a
// pointer the caller flips to true when that plugin is destroyed, so
// every subsequent call here is refused (§4.8 ownership: "the registry
// must refuse further access after that").
func NewPluginTable(name string, keyType ValueType, ownerPlugin string, vt PluginTableVTable, destroyed *bool) Table {
	return &pluginTable{name: name, keyType: keyType, owner: ownerPlugin, vt: vt, destroyed: destroyed}
}

func (t *pluginTable) Name() string       { return t.name }
func (t *pluginTable) KeyType() ValueType { return t.keyType }

func (t *pluginTable) checkLive() error {
	if t.destroyed != nil && *t.destroyed {
		return apperr.New(apperr.CompatibilityError, t.owner,
			"table \""+t.name+"\" is no longer accessible: owning plugin destroyed")
	}
	return nil
}

func (t *pluginTable) Fields() []Field {
	if t.checkLive() != nil || t.vt.Fields == nil {
		return nil
	}
	return t.vt.Fields()
}

func (t *pluginTable) FieldByName(name string) (Field, bool) {
	for _, f := range t.Fields() {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func (t *pluginTable) AddField(field Field) error {
	if err := t.checkLive(); err != nil {
		return err
	}
	if t.vt.AddField == nil {
		return apperr.New(apperr.CompatibilityError, t.owner, "table does not support adding fields")
	}
	return t.vt.AddField(field)
}

func (t *pluginTable) HasRow(key Value) bool {
	if t.checkLive() != nil || t.vt.HasRow == nil {
		return false
	}
	return t.vt.HasRow(key)
}

func (t *pluginTable) GetField(key Value, field string) (Value, bool) {
	if t.checkLive() != nil || t.vt.GetField == nil {
		return Value{}, false
	}
	return t.vt.GetField(key, field)
}

func (t *pluginTable) Iterate(visit RowVisitor) {
	if t.checkLive() != nil || t.vt.Iterate == nil {
		return
	}
	t.vt.Iterate(visit)
}

func (t *pluginTable) Size() int {
	if t.checkLive() != nil || t.vt.Size == nil {
		return 0
	}
	return t.vt.Size()
}

func (t *pluginTable) CreateRow(key Value) error {
	if err := t.checkLive(); err != nil {
		return err
	}
	if t.vt.CreateRow == nil {
		return apperr.New(apperr.CompatibilityError, t.owner, "table is read-only")
	}
	return t.vt.CreateRow(key)
}

func (t *pluginTable) EraseRow(key Value) error {
	if err := t.checkLive(); err != nil {
		return err
	}
	if t.vt.EraseRow == nil {
		return apperr.New(apperr.CompatibilityError, t.owner, "table is read-only")
	}
	return t.vt.EraseRow(key)
}

func (t *pluginTable) SetField(key Value, field string, value Value) error {
	if err := t.checkLive(); err != nil {
		return err
	}
	if t.vt.SetField == nil {
		return apperr.New(apperr.CompatibilityError, t.owner, "table is read-only")
	}
	return t.vt.SetField(key, field, value)
}

func (t *pluginTable) Clear() {
	if t.checkLive() != nil || t.vt.Clear == nil {
		return
	}
	t.vt.Clear()
}
