// Copyright (c) FlowKit Authors.
// Licensed under the MIT License.

/*
Package schema validates action inputs and outputs.

Two schema sources are supported with identical validation semantics:

  - a structural *Schema value built in Go (a closed set of variants:
    primitives, objects, arrays, enums), checked by a single recursive
    validator in this package;
  - a raw JSON Schema document, compiled with
    github.com/santhosh-tekuri/jsonschema/v6.

Validation failures are reported as FieldError values with dotted paths
("foo.0.bar"); structural violations such as a missing required property or
an unexpected property are reported at the enclosing object's path, or the
literal token "(root)" at the top level.

A structural *Schema serializes to JSON Schema via (*Schema).JSONSchema, and
Infer derives a JSON Schema from a Go type for actions that declare none.
*/
package schema
