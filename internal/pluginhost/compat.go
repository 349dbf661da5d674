package pluginhost

// SyscallSourceName is the host's built-in syscall event source, used
// only to resolve the defaulting rule in §3.
const SyscallSourceName = "syscall"

// eventSourceCompat is a plugin's advertised (sources, codes)
// compatibility set for one capability (extraction or parsing), with
// the §3 defaulting rule already applied.
type eventSourceCompat struct {
	sources  map[string]struct{} // empty/nil = all sources
	allCodes bool                // true = "all syscall events"
	codes    map[SourceEventCode]struct{}
}

func newEventSourceCompat(sources []string, codes []SourceEventCode) eventSourceCompat {
	c := eventSourceCompat{}
	if len(sources) > 0 {
		c.sources = make(map[string]struct{}, len(sources))
		for _, s := range sources {
			c.sources[s] = struct{}{}
		}
	}

	if len(codes) == 0 {
		if c.syscallCompatible() {
			c.allCodes = true
		} else {
			c.codes = map[SourceEventCode]struct{}{PluginEventCode: {}}
		}
		return c
	}

	c.codes = make(map[SourceEventCode]struct{}, len(codes))
	for _, code := range codes {
		c.codes[code] = struct{}{}
	}
	return c
}

// syscallCompatible reports whether this compat set's source set
// includes the built-in syscall source — true when the set is empty
// ("all sources") or explicitly names it.
func (c eventSourceCompat) syscallCompatible() bool {
	if len(c.sources) == 0 {
		return true
	}
	_, ok := c.sources[SyscallSourceName]
	return ok
}

func (c eventSourceCompat) sourceOK(name string) bool {
	if len(c.sources) == 0 {
		return true
	}
	_, ok := c.sources[name]
	return ok
}

func (c eventSourceCompat) codeOK(code SourceEventCode) bool {
	if c.allCodes {
		return true
	}
	_, ok := c.codes[code]
	return ok
}
