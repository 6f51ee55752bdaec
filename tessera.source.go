package tessera

import (
	"context"
	"path"
	"sort"
	"strings"
	"sync"
)

// TemplateSource loads template text by name. Parsers read templates
// through it; implementations must be safe for concurrent use.
type TemplateSource interface {
	Load(ctx context.Context, name string) (string, error)
	Close() error
}

// WatchableSource reports template changes so cached templates can be
// invalidated. onChange is called with the template name.
type WatchableSource interface {
	TemplateSource
	Watch(onChange func(name string)) error
}

// NewTemplateNotFoundError creates the parse error returned when a source
// has no template under name.
func NewTemplateNotFoundError(name string) error {
	return newEngineError(KindParse, ErrMsgTemplateNotFound, nil).
		WithMetadata(MetaKeyTemplate, name)
}

// newSourceError reports an unavailable backing store.
func newSourceError(msg, name string, cause error) error {
	return newEngineError(KindCache, msg, cause).
		WithMetadata(MetaKeyTemplate, name)
}

// ValidateTemplateName rejects empty names and names escaping a source
// root. Names use forward slashes for nesting.
func ValidateTemplateName(name string) error {
	if name == "" {
		return newEngineError(KindParse, ErrMsgEmptyTemplateName, nil)
	}
	if strings.ContainsAny(name, "\\:*?\"<>|") || strings.HasPrefix(name, "/") {
		return NewParseError(ErrMsgInvalidTemplateName, Location{Template: name}, name, nil)
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return NewParseError(ErrMsgPathTraversal, Location{Template: name}, name, nil)
		}
	}
	if path.Clean(name) != name {
		return NewParseError(ErrMsgInvalidTemplateName, Location{Template: name}, name, nil)
	}
	return nil
}

// MemorySource holds template text in memory.
type MemorySource struct {
	mu        sync.RWMutex
	templates map[string]string
	listeners []func(name string)
	closed    bool
}

// NewMemorySource creates a source seeded with templates.
func NewMemorySource(templates map[string]string) *MemorySource {
	s := &MemorySource{templates: make(map[string]string, len(templates))}
	for name, text := range templates {
		s.templates[name] = text
	}
	return s
}

// Load returns the text stored under name.
func (s *MemorySource) Load(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", newSourceError(ErrMsgSourceClosed, name, nil)
	}
	text, ok := s.templates[name]
	if !ok {
		return "", NewTemplateNotFoundError(name)
	}
	return text, nil
}

// Set stores text under name and notifies watchers.
func (s *MemorySource) Set(name, text string) error {
	if err := ValidateTemplateName(name); err != nil {
		return err
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return newSourceError(ErrMsgSourceClosed, name, nil)
	}
	s.templates[name] = text
	listeners := s.listeners
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(name)
	}
	return nil
}

// Delete removes name and notifies watchers. It reports whether the
// template existed.
func (s *MemorySource) Delete(name string) bool {
	s.mu.Lock()
	_, ok := s.templates[name]
	delete(s.templates, name)
	listeners := s.listeners
	s.mu.Unlock()

	if ok {
		for _, fn := range listeners {
			fn(name)
		}
	}
	return ok
}

// Names returns the stored template names, sorted.
func (s *MemorySource) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.templates))
	for name := range s.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Watch registers a change listener.
func (s *MemorySource) Watch(onChange func(name string)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, onChange)
	return nil
}

// Close drops all templates.
func (s *MemorySource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.templates = make(map[string]string)
	s.listeners = nil
	return nil
}
