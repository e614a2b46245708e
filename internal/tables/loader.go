package tables

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// yamlTableFile is the top-level YAML structure for roll-table files.
type yamlTableFile struct {
	Table Table `yaml:"table"`
}

// LoadTableFromBytes parses and validates a roll table from YAML bytes.
//
// Precondition: data must be valid YAML conforming to the table schema.
// Postcondition: Returns a validated Table or a non-nil error.
func LoadTableFromBytes(data []byte) (*Table, error) {
	var file yamlTableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing table YAML: %w", err)
	}

	table := file.Table
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("validating table: %w", err)
	}
	return &table, nil
}

// LoadTableFromFile reads and validates a single roll-table YAML file.
//
// Precondition: path must point to a valid YAML table file.
// Postcondition: Returns a validated Table or a non-nil error.
func LoadTableFromFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading table file %s: %w", path, err)
	}
	return LoadTableFromBytes(data)
}

// LoadTablesFromDir loads all YAML files in a directory as roll tables.
// An empty directory yields an empty slice, not an error: a table with no
// wound tables configured is valid (the applier reports misconfiguration at
// draw time instead).
//
// Precondition: dir must be a valid directory path.
// Postcondition: Returns all validated tables or the first error encountered.
func LoadTablesFromDir(dir string) ([]*Table, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading tables directory %s: %w", dir, err)
	}

	var loaded []*Table
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		table, err := LoadTableFromFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("loading table from %s: %w", name, err)
		}
		loaded = append(loaded, table)
	}
	return loaded, nil
}

// Registry holds roll tables indexed by name. Safe for concurrent reads
// after registration completes.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*Table
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Table)}
}

// Register adds a table to the registry.
//
// Precondition: table must have passed Validate().
// Postcondition: Returns an error if a table with the same name exists.
func (r *Registry) Register(table *Table) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[table.Name]; exists {
		return fmt.Errorf("roll table %q already registered", table.Name)
	}
	r.byName[table.Name] = table
	return nil
}

// GetName returns the table with the given name, or false if not registered.
func (r *Registry) GetName(name string) (*Table, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byName[name]
	return t, ok
}

// Len returns the number of registered tables.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}

// NewRegistryFromDir loads every table in dir into a fresh Registry.
//
// Postcondition: Returns a Registry or the first load/registration error.
func NewRegistryFromDir(dir string) (*Registry, error) {
	loaded, err := LoadTablesFromDir(dir)
	if err != nil {
		return nil, err
	}
	registry := NewRegistry()
	for _, t := range loaded {
		if err := registry.Register(t); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
