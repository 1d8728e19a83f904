package suite

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"apiprobe/pkg/logging"
)

var allowedMethods = map[string]bool{
	"GET":    true,
	"POST":   true,
	"PUT":    true,
	"DELETE": true,
	"PATCH":  true,
}

// Load reads test documents from the given path. A file is parsed as a
// single suite (a YAML list of steps); a directory is walked recursively and
// every .yaml/.yml file in it is loaded. Any unreadable, malformed, or
// invalid document is a fatal load error: nothing executes from a suite that
// did not load completely.
func Load(path string) ([]Document, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("suite path does not exist: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat suite path: %w", err)
	}

	if info.IsDir() {
		return loadFromDirectory(path)
	}

	doc, err := loadFromFile(path)
	if err != nil {
		return nil, err
	}
	return []Document{doc}, nil
}

// loadFromDirectory loads all YAML suite files under a directory tree.
func loadFromDirectory(dirPath string) ([]Document, error) {
	var docs []Document

	err := filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !isYAMLFile(path) {
			return nil
		}

		logging.Debug("Loader", "Loading suite file: %s", path)

		doc, err := loadFromFile(path)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory %s: %w", dirPath, err)
	}

	// Deterministic document order regardless of filesystem iteration.
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].Path < docs[j].Path
	})

	return docs, nil
}

// loadFromFile loads and validates a single suite file.
func loadFromFile(filePath string) (Document, error) {
	doc := Document{Path: filePath}

	content, err := os.ReadFile(filePath)
	if err != nil {
		return doc, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	if err := yaml.Unmarshal(content, &doc.Steps); err != nil {
		return doc, fmt.Errorf("failed to parse YAML in %s: %w", filePath, err)
	}

	if err := validateDocument(doc); err != nil {
		return doc, fmt.Errorf("invalid suite in %s: %w", filePath, err)
	}

	logging.Debug("Loader", "Loaded %d steps from %s", len(doc.Steps), filePath)

	return doc, nil
}

// validateDocument validates that a document and its steps have required fields.
func validateDocument(doc Document) error {
	if len(doc.Steps) == 0 {
		return fmt.Errorf("suite must have at least one step")
	}

	for i, step := range doc.Steps {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
	}

	return nil
}

// validateStep validates that a step has required fields.
func validateStep(step Step) error {
	if step.Name == "" {
		return fmt.Errorf("step name is required")
	}

	method := strings.ToUpper(step.Request.Method)
	if !allowedMethods[method] {
		return fmt.Errorf("unsupported method %q", step.Request.Method)
	}

	if step.Request.URL == "" {
		return fmt.Errorf("request url is required")
	}

	if step.Expect.Status < 100 || step.Expect.Status > 599 {
		return fmt.Errorf("expected status %d is not a valid HTTP status", step.Expect.Status)
	}

	for name, expr := range step.Expect.Save {
		if expr == "" {
			return fmt.Errorf("save expression for variable %q is empty", name)
		}
	}

	return nil
}

// isYAMLFile checks if a file has a YAML extension
func isYAMLFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// CountSteps returns the total number of steps across all documents.
func CountSteps(docs []Document) int {
	total := 0
	for _, doc := range docs {
		total += len(doc.Steps)
	}
	return total
}
