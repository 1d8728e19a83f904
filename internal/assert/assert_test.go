package assert

import (
	"errors"
	"net/http"
	"testing"

	tassert "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apiprobe/internal/httpclient"
	"apiprobe/internal/suite"
)

var userSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"id", "username"},
	"properties": map[string]interface{}{
		"id":       map[string]interface{}{"type": "number"},
		"username": map[string]interface{}{"type": "string"},
	},
}

func response(status int, body string) *httpclient.Response {
	return &httpclient.Response{
		StatusCode: status,
		Header:     http.Header{},
		Body:       []byte(body),
	}
}

func TestStatusMatch(t *testing.T) {
	tassert.NoError(t, Status(response(200, ""), 200))
}

func TestStatusMismatch(t *testing.T) {
	err := Status(response(404, ""), 200)
	require.Error(t, err)
	tassert.Equal(t, "Status 404 != 200", err.Error())

	var failure *Failure
	tassert.True(t, errors.As(err, &failure))
}

func TestJSONSchemaValid(t *testing.T) {
	err := JSONSchema([]byte(`{"id": 1, "username": "alice"}`), userSchema)
	tassert.NoError(t, err)
}

func TestJSONSchemaInvalid(t *testing.T) {
	err := JSONSchema([]byte(`{"id": "not-a-number"}`), userSchema)
	require.Error(t, err)

	var failure *Failure
	require.True(t, errors.As(err, &failure))
	tassert.Contains(t, failure.Message, "schema validation failed")
}

func TestJSONSchemaNonJSONBody(t *testing.T) {
	err := JSONSchema([]byte("<html>oops</html>"), userSchema)
	require.Error(t, err)

	var failure *Failure
	tassert.True(t, errors.As(err, &failure))
}

func TestRunStatusShortCircuitsSchema(t *testing.T) {
	// Wrong status with a non-JSON body: only the status failure may
	// surface, never a JSON parse error from schema validation.
	expect := suite.Expectation{Status: 200, Schema: userSchema}

	err := Run(response(500, "<html>internal error</html>"), expect)
	require.Error(t, err)
	tassert.Equal(t, "Status 500 != 200", err.Error())
}

func TestRunSchemaOnlyWhenPresent(t *testing.T) {
	expect := suite.Expectation{Status: 200}
	tassert.NoError(t, Run(response(200, "<html>not json</html>"), expect))
}

func TestRunStatusAndSchemaPass(t *testing.T) {
	expect := suite.Expectation{Status: 200, Schema: userSchema}
	tassert.NoError(t, Run(response(200, `{"id": 7, "username": "bob"}`), expect))
}

func TestRunSchemaFailureAfterStatusPass(t *testing.T) {
	expect := suite.Expectation{Status: 200, Schema: userSchema}

	err := Run(response(200, `{"id": 7}`), expect)
	require.Error(t, err)
	tassert.Contains(t, err.Error(), "schema validation failed")
}
