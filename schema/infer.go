package schema

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"
)

// Infer derives a JSON Schema from the Go type T, for actions that declare no
// explicit schema. Interface types (including any) yield nil: they accept
// everything, so no schema is attached.
func Infer[T any]() (json.RawMessage, error) {
	t := reflect.TypeFor[T]()
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() == reflect.Interface {
		return nil, nil
	}

	r := jsonschema.Reflector{
		DoNotReference: true,
		// Inferred schemas validate round trips of the same Go type, so
		// unknown properties are a caller mistake worth reporting.
	}
	s := r.ReflectFromType(t)
	s.Version = "" // keep inferred documents free of $schema noise
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal inferred schema for %s: %w", t, err)
	}
	return b, nil
}
