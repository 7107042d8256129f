package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// RootPath is the path token reported for structural violations at the top
// level of the validated value.
const RootPath = "(root)"

// FieldError is one violated constraint.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Result is the outcome of a validation run.
type Result struct {
	Valid  bool         `json:"valid"`
	Errors []FieldError `json:"errors,omitempty"`
}

// ValidationError carries the structured field errors of a failed Parse.
type ValidationError struct {
	Errors []FieldError
}

// Error renders each violation as "path: message", joined with "; ".
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fmt.Sprintf("%s: %s", fe.Path, fe.Message)
	}
	return strings.Join(parts, "; ")
}

// Options selects the schema to validate against. At most one of Schema and
// JSONSchema should be set; with neither set, validation always passes.
type Options struct {
	Schema     *Schema
	JSONSchema json.RawMessage
}

// Empty reports whether no schema is configured.
func (o Options) Empty() bool {
	return o.Schema == nil && len(o.JSONSchema) == 0
}

// Validate checks data against the configured schema. It is a pure function:
// data is never mutated or coerced. The returned error reports only
// infrastructure problems (unmarshalable data, uncompilable schema);
// constraint violations land in Result.Errors.
func Validate(data any, opts Options) (*Result, error) {
	doc, err := normalize(data)
	if err != nil {
		return nil, err
	}
	switch {
	case opts.Schema != nil:
		var errs []FieldError
		opts.Schema.check("", doc, &errs)
		return resultFrom(errs), nil
	case len(opts.JSONSchema) > 0:
		return validateCompiled(doc, opts.JSONSchema)
	default:
		return &Result{Valid: true}, nil
	}
}

// ValidateRaw validates a raw JSON value against the configured schema.
func ValidateRaw(raw json.RawMessage, opts Options) (*Result, error) {
	if len(raw) == 0 {
		raw = json.RawMessage("null")
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("invalid JSON value: %w", err)
	}
	return Validate(doc, opts)
}

// Parse validates data and returns a *ValidationError when any constraint is
// violated. A nil return means data conforms to the schema.
func Parse(data any, opts Options) error {
	res, err := Validate(data, opts)
	if err != nil {
		return err
	}
	if !res.Valid {
		return &ValidationError{Errors: res.Errors}
	}
	return nil
}

// ParseRaw is Parse over a raw JSON value.
func ParseRaw(raw json.RawMessage, opts Options) error {
	res, err := ValidateRaw(raw, opts)
	if err != nil {
		return err
	}
	if !res.Valid {
		return &ValidationError{Errors: res.Errors}
	}
	return nil
}

func resultFrom(errs []FieldError) *Result {
	if len(errs) == 0 {
		return &Result{Valid: true}
	}
	return &Result{Valid: false, Errors: errs}
}

// normalize round-trips a Go value through JSON so the validator sees only
// the JSON data model (map[string]any, []any, float64, string, bool, nil).
func normalize(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("serialize value for validation: %w", err)
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("deserialize value for validation: %w", err)
	}
	return doc, nil
}

func displayPath(path string) string {
	if path == "" {
		return RootPath
	}
	return path
}

func childPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

// check is the single recursive validator over the schema variants.
func (s *Schema) check(path string, v any, errs *[]FieldError) {
	if len(s.Enum) > 0 {
		s.checkEnum(path, v, errs)
		return
	}

	switch s.Type {
	case TypeString:
		str, ok := v.(string)
		if !ok {
			s.typeError(path, errs)
			return
		}
		s.checkString(path, str, errs)
	case TypeNumber:
		n, ok := v.(float64)
		if !ok {
			s.typeError(path, errs)
			return
		}
		s.checkNumeric(path, n, errs)
	case TypeInteger:
		n, ok := v.(float64)
		if !ok || n != math.Trunc(n) {
			s.typeError(path, errs)
			return
		}
		s.checkNumeric(path, n, errs)
	case TypeBoolean:
		if _, ok := v.(bool); !ok {
			s.typeError(path, errs)
		}
	case TypeNull:
		if v != nil {
			s.typeError(path, errs)
		}
	case TypeObject:
		obj, ok := v.(map[string]any)
		if !ok {
			s.typeError(path, errs)
			return
		}
		s.checkObject(path, obj, errs)
	case TypeArray:
		arr, ok := v.([]any)
		if !ok {
			s.typeError(path, errs)
			return
		}
		s.checkArray(path, arr, errs)
	}
}

func (s *Schema) typeError(path string, errs *[]FieldError) {
	*errs = append(*errs, FieldError{
		Path:    displayPath(path),
		Message: fmt.Sprintf("must be %s", s.Type),
	})
}

func (s *Schema) checkEnum(path string, v any, errs *[]FieldError) {
	for _, allowed := range s.Enum {
		norm, err := normalize(allowed)
		if err != nil {
			continue
		}
		if reflect.DeepEqual(norm, v) {
			return
		}
	}
	labels := make([]string, len(s.Enum))
	for i, allowed := range s.Enum {
		labels[i] = fmt.Sprintf("%v", allowed)
	}
	*errs = append(*errs, FieldError{
		Path:    displayPath(path),
		Message: fmt.Sprintf("must be one of: %s", strings.Join(labels, ", ")),
	})
}

func (s *Schema) checkString(path, str string, errs *[]FieldError) {
	n := len([]rune(str))
	if s.MinLength != nil && n < *s.MinLength {
		*errs = append(*errs, FieldError{
			Path:    displayPath(path),
			Message: fmt.Sprintf("must have at least %d characters", *s.MinLength),
		})
	}
	if s.MaxLength != nil && n > *s.MaxLength {
		*errs = append(*errs, FieldError{
			Path:    displayPath(path),
			Message: fmt.Sprintf("must have at most %d characters", *s.MaxLength),
		})
	}
	if s.Pattern != "" {
		re, err := regexp.Compile(s.Pattern)
		if err != nil {
			*errs = append(*errs, FieldError{
				Path:    displayPath(path),
				Message: fmt.Sprintf("schema pattern %q is invalid", s.Pattern),
			})
			return
		}
		if !re.MatchString(str) {
			*errs = append(*errs, FieldError{
				Path:    displayPath(path),
				Message: fmt.Sprintf("must match pattern %q", s.Pattern),
			})
		}
	}
}

func (s *Schema) checkNumeric(path string, n float64, errs *[]FieldError) {
	if s.Minimum != nil && n < *s.Minimum {
		*errs = append(*errs, FieldError{
			Path:    displayPath(path),
			Message: fmt.Sprintf("must be at least %v", *s.Minimum),
		})
	}
	if s.Maximum != nil && n > *s.Maximum {
		*errs = append(*errs, FieldError{
			Path:    displayPath(path),
			Message: fmt.Sprintf("must be at most %v", *s.Maximum),
		})
	}
}

func (s *Schema) checkObject(path string, obj map[string]any, errs *[]FieldError) {
	for _, name := range s.Required {
		if _, ok := obj[name]; !ok {
			*errs = append(*errs, FieldError{
				Path:    displayPath(path),
				Message: fmt.Sprintf("missing required property %q", name),
			})
		}
	}
	if s.AdditionalProperties != nil && !*s.AdditionalProperties {
		extras := make([]string, 0)
		for key := range obj {
			if _, declared := s.Properties[key]; !declared {
				extras = append(extras, key)
			}
		}
		sort.Strings(extras)
		for _, key := range extras {
			*errs = append(*errs, FieldError{
				Path:    displayPath(path),
				Message: fmt.Sprintf("unexpected property %q", key),
			})
		}
	}
	keys := make([]string, 0, len(s.Properties))
	for key := range s.Properties {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if value, ok := obj[key]; ok {
			s.Properties[key].check(childPath(path, key), value, errs)
		}
	}
}

func (s *Schema) checkArray(path string, arr []any, errs *[]FieldError) {
	if s.MinItems != nil && len(arr) < *s.MinItems {
		*errs = append(*errs, FieldError{
			Path:    displayPath(path),
			Message: fmt.Sprintf("must have at least %d items", *s.MinItems),
		})
	}
	if s.MaxItems != nil && len(arr) > *s.MaxItems {
		*errs = append(*errs, FieldError{
			Path:    displayPath(path),
			Message: fmt.Sprintf("must have at most %d items", *s.MaxItems),
		})
	}
	if s.Items != nil {
		for i, item := range arr {
			s.Items.check(childPath(path, strconv.Itoa(i)), item, errs)
		}
	}
}
