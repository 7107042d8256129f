package schema

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Compiled raw schemas are memoized by their source text; compiling on every
// invocation would dominate action latency for hot actions.
var compiled = struct {
	sync.RWMutex
	schemas map[string]*jsonschema.Schema
}{schemas: make(map[string]*jsonschema.Schema)}

var errPrinter = message.NewPrinter(language.English)

func validateCompiled(doc any, raw []byte) (*Result, error) {
	sch, err := getOrCompile(raw)
	if err != nil {
		return nil, err
	}

	// The compiler requires json.Number for numerics, so round-trip the
	// already-normalized document through the library's own decoder.
	libDoc, err := jsonschema.UnmarshalJSON(strings.NewReader(mustJSON(doc)))
	if err != nil {
		return nil, fmt.Errorf("serialize value for validation: %w", err)
	}

	if err := sch.Validate(libDoc); err != nil {
		verr, ok := err.(*jsonschema.ValidationError)
		if !ok {
			return nil, err
		}
		return resultFrom(collectLeaves(verr, nil)), nil
	}
	return &Result{Valid: true}, nil
}

func getOrCompile(raw []byte) (*jsonschema.Schema, error) {
	key := string(raw)

	compiled.RLock()
	sch, ok := compiled.schemas[key]
	compiled.RUnlock()
	if ok {
		return sch, nil
	}

	compiled.Lock()
	defer compiled.Unlock()
	if sch, ok := compiled.schemas[key]; ok {
		return sch, nil
	}

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(key))
	if err != nil {
		return nil, fmt.Errorf("unmarshal JSON schema: %w", err)
	}

	// Each schema gets a unique resource URL to avoid compiler collisions.
	url := fmt.Sprintf("flowkit://schemas/%d", len(compiled.schemas))
	c := jsonschema.NewCompiler()
	c.AssertFormat()
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	sch, err = c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile JSON schema: %w", err)
	}

	compiled.schemas[key] = sch
	return sch, nil
}

// collectLeaves flattens a ValidationError tree into FieldErrors, translating
// instance locations into the dotted-path convention used by the structural
// validator.
func collectLeaves(verr *jsonschema.ValidationError, acc []FieldError) []FieldError {
	if len(verr.Causes) == 0 {
		acc = append(acc, FieldError{
			Path:    displayPath(strings.Join(verr.InstanceLocation, ".")),
			Message: verr.ErrorKind.LocalizedString(errPrinter),
		})
		return acc
	}
	for _, cause := range verr.Causes {
		acc = collectLeaves(cause, acc)
	}
	return acc
}

func mustJSON(doc any) string {
	b, err := json.Marshal(doc)
	if err != nil {
		// doc already survived one JSON round trip; a second cannot fail.
		panic(err)
	}
	return string(b)
}
