package pluginhost

// TableAccess exposes a plugin's access to the shared table registry,
// scoped under the plugin's own identity so tables it publishes can be
// attributed to — and released with — it (§4.7, §4.8 ownership).
// Unlike Sourcing/Extraction/Parsing it has no capability bit of its
// own: Init builds it for every plugin regardless of declared
// capabilities, so it is nil only before Init. plugin_init itself
// receives it only when the plugin declares EXTRACTION or PARSING.
type TableAccess struct {
	plugin *Plugin
	tables TableAccessor
}

func newTableAccess(p *Plugin, tables TableAccessor) *TableAccess {
	return &TableAccess{plugin: p, tables: tables}
}

// ListTables satisfies TableAccessor, passed straight through.
func (a *TableAccess) ListTables() []TableInfo { return a.tables.ListTables() }

// GetTable satisfies TableAccessor, passed straight through.
func (a *TableAccess) GetTable(name string, keyType ValueType) (Table, error) {
	return a.tables.GetTable(name, keyType)
}

// AddTable publishes t under the calling plugin's own name as owner,
// when the underlying registry tracks ownership (OwnerAwareTableAccessor);
// otherwise it falls back to an unattributed add, which means the
// table will outlive the plugin's destruction.
func (a *TableAccess) AddTable(info TableInfo, t Table) error {
	if oa, ok := a.tables.(OwnerAwareTableAccessor); ok {
		return oa.AddTableOwned(a.plugin.Name(), info, t)
	}
	return a.tables.AddTable(info, t)
}
