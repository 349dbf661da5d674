package pluginhost

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/streamspace/pluginhost/internal/apperr"
)

// FieldCheckAdapter is a per-expression-node object binding a plugin's
// field to the filter/expression engine (§3, §4.5): the plugin, a
// selected field, a parsed argument, and a lazily-populated bitmap of
// event-source compatibility. One adapter exists per compiled field
// reference, not per field declaration — two references to the same
// field with different arguments get distinct adapters.
type FieldCheckAdapter struct {
	plugin *Plugin
	field  FieldDescriptor

	argPresent bool
	argIndex   uint64
	argKey     string

	mu          sync.Mutex
	sourceCache map[int32]bool
}

// CompileFieldCheck parses a textual field reference like
// "plugin.foo[42]" or "plugin.bar[my-key]" against one of the
// extraction plugin's declared fields and returns a bound adapter.
// fieldName is the part before the bracket (already resolved to a
// known field by the caller); arg is everything between the brackets,
// or ("", false) when no bracket was present.
func CompileFieldCheck(p *Plugin, fieldName, arg string, argPresent bool) (*FieldCheckAdapter, error) {
	if p.Extraction == nil {
		return nil, apperr.New(apperr.CompatibilityError, p.Name(), "plugin does not declare EXTRACTION")
	}
	field, ok := p.Extraction.FieldByName(fieldName)
	if !ok {
		return nil, apperr.New(apperr.DescriptorError, p.Name(), fmt.Sprintf("unknown field %q", fieldName))
	}

	a := &FieldCheckAdapter{plugin: p, field: field, sourceCache: make(map[int32]bool)}

	if !argPresent {
		if field.Flags.Has(FlagArgRequired) {
			return nil, apperr.New(apperr.ArgumentError, p.Name(),
				fmt.Sprintf("field %q requires an argument", fieldName))
		}
		return a, nil
	}

	if !field.Flags.Has(FlagArgAllowed) {
		return nil, apperr.New(apperr.ArgumentError, p.Name(),
			fmt.Sprintf("field %q does not accept an argument", fieldName))
	}

	if field.Flags.Has(FlagArgIndex) {
		idx, err := parseArgIndex(arg)
		if err != nil {
			return nil, apperr.New(apperr.ArgumentError, p.Name(),
				fmt.Sprintf("field %q: %s", fieldName, err))
		}
		a.argIndex = idx
		a.argPresent = true
	}
	if field.Flags.Has(FlagArgKey) {
		a.argKey = arg
		a.argPresent = true
	}
	return a, nil
}

// parseArgIndex enforces §4.5's ARG_INDEX grammar: ASCII digits only,
// no leading zero unless the whole string is "0", and must fit in 64
// bits.
func parseArgIndex(arg string) (uint64, error) {
	if arg == "" {
		return 0, fmt.Errorf("empty index argument")
	}
	for _, r := range arg {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("index argument %q is not all digits", arg)
		}
	}
	if len(arg) > 1 && arg[0] == '0' {
		return 0, fmt.Errorf("index argument %q starts with 0", arg)
	}
	n, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("index argument %q does not fit in 64 bits", arg)
	}
	return n, nil
}

// SplitFieldToken splits a filter-engine token like "foo[42]" into its
// field name and bracketed argument. The token is taken up to
// end-of-string or the first space, matching §4.5's "terminated by
// end-of-string or a space" rule. ok is false if a '[' is present with
// no matching ']'.
func SplitFieldToken(token string) (name, arg string, argPresent, ok bool) {
	if sp := strings.IndexByte(token, ' '); sp >= 0 {
		token = token[:sp]
	}
	open := strings.IndexByte(token, '[')
	if open < 0 {
		return token, "", false, true
	}
	if !strings.HasSuffix(token, "]") {
		return "", "", false, false
	}
	return token[:open], token[open+1 : len(token)-1], true, true
}

// Extract evaluates this adapter's field against one event, applying
// the full §4.5(a)-(e) compatibility gate before delegating to the
// plugin. A false ok with nil err means "no value" per §7's
// silent-rejection rule — callers must not treat this as failure.
func (a *FieldCheckAdapter) Extract(e Event, resolve SourceIndexName) (value Value, ok bool, err error) {
	ext := a.plugin.Extraction

	if e.SourceIdx == unsetSourceIdx {
		return Value{}, false, nil
	}
	if !ext.CodeCompatible(e.TypeCode) {
		return Value{}, false, nil
	}
	if !a.sourceCompatible(e.SourceIdx, resolve) {
		return Value{}, false, nil
	}

	req := FieldRequest{
		ID:         a.field.ID,
		Name:       a.field.Name,
		Type:       a.field.Type,
		IsList:     a.field.Flags.Has(FlagIsList),
		ArgPresent: a.argPresent,
		ArgIndex:   a.argIndex,
		ArgKey:     a.argKey,
	}

	results, err := ext.ExtractFields(e, []FieldRequest{req})
	if err != nil {
		return Value{}, false, err
	}
	if len(results) == 0 || !results[0].Present || len(results[0].Values) == 0 {
		return Value{}, false, nil
	}
	return results[0].Values[0], true, nil
}

func (a *FieldCheckAdapter) sourceCompatible(idx int32, resolve SourceIndexName) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if v, cached := a.sourceCache[idx]; cached {
		return v
	}
	name, ok := resolve(idx)
	compatible := ok && a.plugin.Extraction.SourceCompatible(name)
	a.sourceCache[idx] = compatible
	return compatible
}
