package suite

// Step defines a single declarative test step: one HTTP request and the
// expectations to validate against its response.
type Step struct {
	// Name is the human-readable label for the step. Not required to be unique.
	Name string `yaml:"name"`
	// Request describes the HTTP call to perform. String fields may contain
	// {variable} placeholders resolved against the suite's variable context.
	Request RequestSpec `yaml:"request"`
	// Expect defines the expected outcome and optional response captures.
	Expect Expectation `yaml:"expect"`
}

// RequestSpec describes the request template of a step.
type RequestSpec struct {
	// Method is the HTTP method (GET, POST, PUT, DELETE, PATCH).
	Method string `yaml:"method"`
	// URL is either absolute or relative to the configured base URL.
	URL string `yaml:"url"`
	// Headers are additional request headers; values may be templated.
	Headers map[string]string `yaml:"headers,omitempty"`
	// JSON is an optional JSON request body; string leaves may be templated.
	JSON map[string]interface{} `yaml:"json,omitempty"`
}

// Expectation defines what a step expects from the response.
type Expectation struct {
	// Status is the expected HTTP status code.
	Status int `yaml:"status"`
	// Schema is an optional JSON-schema document the response body must match.
	Schema map[string]interface{} `yaml:"schema,omitempty"`
	// Save maps variable names to extractor expressions. An expression
	// starting with "$." is applied as a JMESPath query over the parsed JSON
	// body; any other string is looked up as a response header name.
	Save map[string]string `yaml:"save,omitempty"`
}

// RenderedRequest is a request template after variable substitution.
// All placeholder tokens have been replaced; it is ready for execution.
type RenderedRequest struct {
	Method  string
	URL     string
	Headers map[string]string
	JSON    map[string]interface{}
}

// Document is one loaded test file and its parsed steps.
type Document struct {
	// Path is the file the steps were loaded from.
	Path string
	// Steps are the parsed steps in declaration order.
	Steps []Step
}
