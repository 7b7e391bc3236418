package querytemplate

import (
	"os"
	"sync"

	"github.com/nexustables/managedtable/internal/apperrors"
)

// Producer returns a query template's raw text on demand, so a Registry can
// hold file-backed templates without reading them until needed.
type Producer func() (string, error)

// Registry is a named collection of template text producers: most
// production registries are populated once at startup from a directory of
// template files.
type Registry struct {
	mu       sync.RWMutex
	producer map[string]Producer
}

func NewRegistry() *Registry {
	return &Registry{producer: make(map[string]Producer)}
}

// Register adds a producer under name, overwriting any existing
// registration.
func (r *Registry) Register(name string, producer Producer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.producer[name] = producer
}

// RegisterFile registers name to read its template text from path, lazily,
// on each GetTemplate call.
func (r *Registry) RegisterFile(name, path string) {
	r.Register(name, func() (string, error) {
		b, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(b), nil
	})
}

// GetTemplate returns the raw text registered under name.
func (r *Registry) GetTemplate(name string) (string, error) {
	r.mu.RLock()
	producer, ok := r.producer[name]
	r.mu.RUnlock()
	if !ok {
		return "", apperrors.NewNotFound("template", name)
	}
	return producer()
}

// FromRegistry looks up name's text in registry and constructs a validated
// Template from it, layering envFields over userFields exactly as New
// does.
func FromRegistry(registry *Registry, name string, envFields, userFields map[string]any) (*Template, error) {
	text, err := registry.GetTemplate(name)
	if err != nil {
		return nil, err
	}
	return New(text, envFields, userFields)
}
