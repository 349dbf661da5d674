package pluginhost

import (
	"encoding/json"
	"fmt"

	"github.com/streamspace/pluginhost/internal/apperr"
)

// FieldDescriptor is a typed, flagged field a plugin exposes for the
// filter/expression engine (§3, §4.5). ID is the field's position in
// the plugin's field-JSON array, used as the stable identifier passed
// back to the plugin's ExtractFields call.
type FieldDescriptor struct {
	ID          int
	Name        string
	Display     string
	Description string
	Type        ValueType
	Flags       FieldFlagSet
}

func (f FieldDescriptor) validate(pluginName string) error {
	if f.Name == "" {
		return apperr.New(apperr.DescriptorError, pluginName, "field has empty name")
	}
	if f.Description == "" {
		return apperr.New(apperr.DescriptorError, pluginName, fmt.Sprintf("field %q has empty description", f.Name))
	}
	if f.Flags.Has(FlagArgRequired) && !(f.Flags.Has(FlagArgIndex) || f.Flags.Has(FlagArgKey)) {
		return apperr.New(apperr.DescriptorError, pluginName,
			fmt.Sprintf("field %q: ARG_REQUIRED requires ARG_INDEX or ARG_KEY", f.Name))
	}
	if (f.Flags.Has(FlagArgIndex) || f.Flags.Has(FlagArgKey)) && !f.Flags.Has(FlagArgAllowed) {
		return apperr.New(apperr.DescriptorError, pluginName,
			fmt.Sprintf("field %q: ARG_INDEX or ARG_KEY requires ARG_ALLOWED", f.Name))
	}
	return nil
}

// rawField is the JSON shape of one element of the plugin's field
// array (§4.5).
type rawField struct {
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	Desc       string   `json:"desc"`
	Display    string   `json:"display"`
	IsList     bool     `json:"isList"`
	Properties []string `json:"properties"`
	Arg        *struct {
		IsRequired bool `json:"isRequired"`
		IsIndex    bool `json:"isIndex"`
		IsKey      bool `json:"isKey"`
	} `json:"arg"`
}

// ParseFieldJSON parses a plugin's get_fields() output into a catalog
// of FieldDescriptors, enforcing the invariants of §3/§4.5. Violations
// are DescriptorErrors naming both the plugin and the offending field.
func ParseFieldJSON(pluginName, raw string) ([]FieldDescriptor, error) {
	var rawFields []rawField
	if err := json.Unmarshal([]byte(raw), &rawFields); err != nil {
		return nil, apperr.Wrap(apperr.DescriptorError, pluginName, "field JSON is not a valid array", err)
	}

	out := make([]FieldDescriptor, 0, len(rawFields))
	for i, rf := range rawFields {
		if rf.Name == "" {
			return nil, apperr.New(apperr.DescriptorError, pluginName, fmt.Sprintf("field %d: empty name", i))
		}
		if rf.Desc == "" {
			return nil, apperr.New(apperr.DescriptorError, pluginName, fmt.Sprintf("field %q: empty desc", rf.Name))
		}
		vt, ok := ValueTypeFromString(rf.Type)
		if !ok {
			return nil, apperr.New(apperr.DescriptorError, pluginName,
				fmt.Sprintf("field %q: unknown type %q", rf.Name, rf.Type))
		}

		var flags FieldFlagSet
		if rf.IsList {
			flags |= FieldFlagSet(FlagIsList)
		}
		for _, p := range rf.Properties {
			switch p {
			case "hidden":
				flags |= FieldFlagSet(FlagTableOnly)
			case "info":
				flags |= FieldFlagSet(FlagInfo)
			case "conversation":
				flags |= FieldFlagSet(FlagConversation)
			default:
				// unrecognized property values are ignored (§4.5)
			}
		}
		if rf.Arg != nil {
			flags |= FieldFlagSet(FlagArgAllowed)
			if rf.Arg.IsRequired {
				flags |= FieldFlagSet(FlagArgRequired)
			}
			if rf.Arg.IsIndex {
				flags |= FieldFlagSet(FlagArgIndex)
			}
			if rf.Arg.IsKey {
				flags |= FieldFlagSet(FlagArgKey)
			}
		}

		fd := FieldDescriptor{
			ID:          i,
			Name:        rf.Name,
			Display:     rf.Display,
			Description: rf.Desc,
			Type:        vt,
			Flags:       flags,
		}
		if err := fd.validate(pluginName); err != nil {
			return nil, err
		}
		out = append(out, fd)
	}
	return out, nil
}

// CanonicalJSON re-emits a field catalog in the same shape ParseFieldJSON
// consumes, used by the field JSON round-trip law in spec.md §8.
func CanonicalJSON(fields []FieldDescriptor) ([]byte, error) {
	rawFields := make([]rawField, 0, len(fields))
	for _, f := range fields {
		rf := rawField{
			Name:    f.Name,
			Type:    f.Type.String(),
			Desc:    f.Description,
			Display: f.Display,
			IsList:  f.Flags.Has(FlagIsList),
		}
		if f.Flags.Has(FlagTableOnly) {
			rf.Properties = append(rf.Properties, "hidden")
		}
		if f.Flags.Has(FlagInfo) {
			rf.Properties = append(rf.Properties, "info")
		}
		if f.Flags.Has(FlagConversation) {
			rf.Properties = append(rf.Properties, "conversation")
		}
		if f.Flags.Has(FlagArgAllowed) {
			rf.Arg = &struct {
				IsRequired bool `json:"isRequired"`
				IsIndex    bool `json:"isIndex"`
				IsKey      bool `json:"isKey"`
			}{
				IsRequired: f.Flags.Has(FlagArgRequired),
				IsIndex:    f.Flags.Has(FlagArgIndex),
				IsKey:      f.Flags.Has(FlagArgKey),
			}
		}
		rawFields = append(rawFields, rf)
	}
	return json.Marshal(rawFields)
}
