package suite

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSuite = `
- name: "Get health"
  request:
    method: GET
    url: /health
  expect:
    status: 200
- name: "Create user"
  request:
    method: POST
    url: /users
    headers:
      Content-Type: application/json
    json:
      username: alice
  expect:
    status: 201
    save:
      user_id: "$.data.id"
`

func writeSuiteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := writeSuiteFile(t, dir, "users.yaml", sampleSuite)

	docs, err := Load(path)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	assert.Equal(t, path, docs[0].Path)
	require.Len(t, docs[0].Steps, 2)

	step := docs[0].Steps[1]
	assert.Equal(t, "Create user", step.Name)
	assert.Equal(t, "POST", step.Request.Method)
	assert.Equal(t, "application/json", step.Request.Headers["Content-Type"])
	assert.Equal(t, "alice", step.Request.JSON["username"])
	assert.Equal(t, 201, step.Expect.Status)
	assert.Equal(t, "$.data.id", step.Expect.Save["user_id"])
}

func TestLoadDirectoryRecursive(t *testing.T) {
	dir := t.TempDir()
	writeSuiteFile(t, dir, "b.yaml", sampleSuite)
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(sub, 0755))
	writeSuiteFile(t, sub, "a.yml", sampleSuite)
	writeSuiteFile(t, dir, "notes.txt", "not a suite")

	docs, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, 4, CountSteps(docs))

	// Document order is deterministic by path.
	assert.Less(t, docs[0].Path, docs[1].Path)
}

func TestLoadMissingPath(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestLoadMalformedYAMLIsFatal(t *testing.T) {
	dir := t.TempDir()
	writeSuiteFile(t, dir, "good.yaml", sampleSuite)
	writeSuiteFile(t, dir, "broken.yaml", "- name: [unterminated")

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.yaml")
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{
			name:    "empty suite",
			content: "[]",
			errMsg:  "at least one step",
		},
		{
			name: "missing name",
			content: `
- request:
    method: GET
    url: /health
  expect:
    status: 200
`,
			errMsg: "name is required",
		},
		{
			name: "bad method",
			content: `
- name: "Trace"
  request:
    method: TRACE
    url: /health
  expect:
    status: 200
`,
			errMsg: "unsupported method",
		},
		{
			name: "missing url",
			content: `
- name: "No url"
  request:
    method: GET
  expect:
    status: 200
`,
			errMsg: "url is required",
		},
		{
			name: "bad status",
			content: `
- name: "Weird status"
  request:
    method: GET
    url: /health
  expect:
    status: 7
`,
			errMsg: "not a valid HTTP status",
		},
		{
			name: "empty save expression",
			content: `
- name: "Empty save"
  request:
    method: GET
    url: /health
  expect:
    status: 200
    save:
      token: ""
`,
			errMsg: "save expression",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			dir := t.TempDir()
			path := writeSuiteFile(t, dir, "suite.yaml", test.content)

			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), test.errMsg)
		})
	}
}

func TestLowercaseMethodAccepted(t *testing.T) {
	dir := t.TempDir()
	path := writeSuiteFile(t, dir, "suite.yaml", `
- name: "lowercase get"
  request:
    method: get
    url: /health
  expect:
    status: 200
`)

	docs, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "get", docs[0].Steps[0].Request.Method)
}
