package pluginhost

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/streamspace/pluginhost/internal/apperr"
)

// ValidateConfig validates a plugin's init config against its
// self-declared JSON Schema (§4.2, §6 "Init schema"). An empty config
// is treated as "{}". On failure it returns a SchemaError naming the
// first violation by path, per spec.md §8 scenario 5.
func ValidateConfig(pluginName, schemaJSON, configJSON string) error {
	if configJSON == "" {
		configJSON = "{}"
	}

	schemaDoc, err := jsonschema.UnmarshalJSON(strings.NewReader(schemaJSON))
	if err != nil {
		return apperr.Wrap(apperr.SchemaError, pluginName, "get_init_schema did not return valid JSON", err)
	}

	const resourceURL = "pluginhost://init-schema.json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(resourceURL, schemaDoc); err != nil {
		return apperr.Wrap(apperr.SchemaError, pluginName, "invalid init schema", err)
	}
	schema, err := compiler.Compile(resourceURL)
	if err != nil {
		return apperr.Wrap(apperr.SchemaError, pluginName, "failed to compile init schema", err)
	}

	instance, err := jsonschema.UnmarshalJSON(strings.NewReader(configJSON))
	if err != nil {
		return apperr.Wrap(apperr.SchemaError, pluginName, "init config is not valid JSON", err)
	}

	if err := schema.Validate(instance); err != nil {
		path, msg := firstValidationError(err)
		return apperr.New(apperr.SchemaError, pluginName, fmt.Sprintf("config invalid at %s: %s", path, msg))
	}
	return nil
}

// firstValidationError descends a jsonschema.ValidationError's Causes
// tree to the most specific (leaf) failure, so callers report one
// precise path alongside the library's rendered message instead of the
// whole validation tree.
func firstValidationError(err error) (path, message string) {
	message = err.Error()
	path = "/"

	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return path, message
	}
	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	if len(leaf.InstanceLocation) > 0 {
		path = "/" + strings.Join(leaf.InstanceLocation, "/")
	}
	return path, message
}
