package topicmgr

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
)

// Entry is a registered topic with bookkeeping.
type Entry struct {
	Topic        Topic
	RegisteredAt time.Time
}

// Catalog is a concurrency-safe set of topics keyed by name.
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewCatalog returns an empty catalogue.
func NewCatalog() *Catalog {
	return &Catalog{entries: make(map[string]Entry)}
}

var defaultCatalog = NewCatalog()

// Default returns the process-wide catalogue that package-level topic
// definitions register into.
func Default() *Catalog { return defaultCatalog }

// Register validates and adds a topic. Registering the same name twice fails.
func (c *Catalog) Register(t Topic) error {
	if err := Validate(t); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[t.name]; exists {
		return &TopicError{Type: ErrorDuplicateRegistration, Topic: t.name, Message: "topic already registered"}
	}
	c.entries[t.name] = Entry{Topic: t, RegisteredAt: time.Now()}
	return nil
}

// MustRegister registers t and panics on error. Meant for package-level vars.
func (c *Catalog) MustRegister(t Topic) Topic {
	if err := c.Register(t); err != nil {
		panic(err)
	}
	return t
}

// Get looks a topic up by name.
func (c *Catalog) Get(name string) (Topic, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[name]
	if !ok {
		return Topic{}, &TopicError{Type: ErrorTopicNotFound, Topic: name, Message: "no such topic"}
	}
	return e.Topic, nil
}

// List returns every topic sorted by name.
func (c *Catalog) List() []Topic {
	c.mu.RLock()
	defer c.mu.RUnlock()
	topics := lo.MapToSlice(c.entries, func(_ string, e Entry) Topic { return e.Topic })
	sort.Slice(topics, func(i, j int) bool { return topics[i].name < topics[j].name })
	return topics
}

// Filter returns topics matching module and scope; empty arguments match all.
func (c *Catalog) Filter(module string, scope Scope) []Topic {
	return lo.Filter(c.List(), func(t Topic, _ int) bool {
		return (module == "" || t.module == module) && (scope == "" || t.scope == scope)
	})
}

// WithPrefix returns topics whose name starts with prefix.
func (c *Catalog) WithPrefix(prefix string) []Topic {
	return lo.Filter(c.List(), func(t Topic, _ int) bool {
		return strings.HasPrefix(t.name, prefix)
	})
}

// Modules lists the distinct owning modules, sorted.
func (c *Catalog) Modules() []string {
	mods := lo.Uniq(lo.FilterMap(c.List(), func(t Topic, _ int) (string, bool) {
		return t.module, t.module != ""
	}))
	sort.Strings(mods)
	return mods
}

// Count returns the number of registered topics.
func (c *Catalog) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
