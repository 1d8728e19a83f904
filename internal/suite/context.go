package suite

import (
	"sync"

	"apiprobe/pkg/logging"
)

// Context holds the variables captured during one suite invocation. It is
// shared across all steps of all loaded files so a value saved by one step
// can be referenced by any later-executed step, including steps in other
// files.
//
// Writes are last-writer-wins. Under parallel execution there is no ordering
// guarantee between a step that saves a variable and a step that reads it;
// suites with save/use chains should run in sequential mode.
type Context struct {
	values map[string]interface{}
	mu     sync.RWMutex
}

// NewContext creates an empty variable context for one suite invocation.
func NewContext() *Context {
	return &Context{
		values: make(map[string]interface{}),
	}
}

// Set stores a value under the given variable name, overwriting any prior value.
func (c *Context) Set(name string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[name] = value
	logging.Debug("Suite", "Stored variable '%s': %v", name, value)
}

// Get retrieves a stored value by variable name.
func (c *Context) Get(name string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, exists := c.values[name]
	return value, exists
}

// Snapshot returns a copy of all stored variables for template resolution.
func (c *Context) Snapshot() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snapshot := make(map[string]interface{}, len(c.values))
	for k, v := range c.values {
		snapshot[k] = v
	}
	return snapshot
}
