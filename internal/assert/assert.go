// Package assert converts a step's expect block into a pass/fail verdict.
// Failures are typed so the runner can tell "the API behaved unexpectedly"
// apart from transport or templating errors.
package assert

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"apiprobe/internal/httpclient"
	"apiprobe/internal/suite"
)

// Failure is the checked assertion error. It carries a human-readable
// message and, for schema failures, the underlying validation error.
type Failure struct {
	Message string
	cause   error
}

func (f *Failure) Error() string {
	return f.Message
}

func (f *Failure) Unwrap() error {
	return f.cause
}

// Status fails when the response status does not match the expectation.
func Status(resp *httpclient.Response, expected int) error {
	if resp.StatusCode != expected {
		return &Failure{Message: fmt.Sprintf("Status %d != %d", resp.StatusCode, expected)}
	}
	return nil
}

// JSONSchema validates the response body against a JSON-schema document.
// Validation problems are wrapped into a Failure preserving the cause.
func JSONSchema(body []byte, schema map[string]interface{}) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewBytesLoader(body),
	)
	if err != nil {
		return &Failure{
			Message: fmt.Sprintf("schema validation failed: %v", err),
			cause:   err,
		}
	}

	if !result.Valid() {
		var details []string
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return &Failure{Message: fmt.Sprintf("schema validation failed: %s", strings.Join(details, "; "))}
	}

	return nil
}

// Run checks the full expect block. Status is checked first and
// short-circuits: a status mismatch must surface before any attempt to
// parse a body that may not even be JSON. Schema validation only runs when
// a schema is present.
func Run(resp *httpclient.Response, expect suite.Expectation) error {
	if err := Status(resp, expect.Status); err != nil {
		return err
	}
	if expect.Schema != nil {
		return JSONSchema(resp.Body, expect.Schema)
	}
	return nil
}
