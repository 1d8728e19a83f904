package suite

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/jmespath/go-jmespath"

	"apiprobe/internal/template"
	"apiprobe/pkg/logging"
)

// jsonPathPrefix marks an extractor expression as a query over the parsed
// response body rather than a header name.
const jsonPathPrefix = "$."

var engine = template.New()

// RenderRequest substitutes {variable} tokens in every string field of the
// step's request using the current contents of the variable context. Method
// is normalized to upper case; non-string body values pass through unchanged.
// A reference to a variable no step has saved yet yields a
// template.MissingVariableError.
func RenderRequest(step Step, ctx *Context) (RenderedRequest, error) {
	vars := ctx.Snapshot()

	url, err := engine.Replace(step.Request.URL, vars)
	if err != nil {
		return RenderedRequest{}, err
	}

	headers, err := engine.ReplaceStringMap(step.Request.Headers, vars)
	if err != nil {
		return RenderedRequest{}, err
	}

	var body map[string]interface{}
	if step.Request.JSON != nil {
		replaced, err := engine.Replace(step.Request.JSON, vars)
		if err != nil {
			return RenderedRequest{}, err
		}
		body = replaced.(map[string]interface{})
	}

	return RenderedRequest{
		Method:  strings.ToUpper(step.Request.Method),
		URL:     url.(string),
		Headers: headers,
		JSON:    body,
	}, nil
}

// SaveFromResponse evaluates the step's save extractors against a response
// and writes the results into the variable context. Expressions starting
// with "$." query the parsed JSON body; a path that does not resolve stores
// nil rather than failing. Any other expression is a case-insensitive
// response header lookup. Existing variables are overwritten.
func SaveFromResponse(step Step, header http.Header, body []byte, ctx *Context) error {
	if len(step.Expect.Save) == 0 {
		return nil
	}

	var parsed interface{}
	bodyParsed := false

	for name, expr := range step.Expect.Save {
		if !strings.HasPrefix(expr, jsonPathPrefix) {
			ctx.Set(name, header.Get(expr))
			continue
		}

		if !bodyParsed {
			if err := json.Unmarshal(body, &parsed); err != nil {
				logging.Debug("Suite", "Response body for step '%s' is not JSON, saving nil for body extractors", step.Name)
				parsed = nil
			}
			bodyParsed = true
		}

		value, err := jmespath.Search(strings.TrimPrefix(expr, jsonPathPrefix), parsed)
		if err != nil {
			// A malformed expression is a suite-authoring error; a path that
			// merely resolves to nothing is not.
			return err
		}
		ctx.Set(name, value)
	}

	return nil
}
