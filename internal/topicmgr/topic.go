// Package topicmgr keeps a catalogue of every bus topic the service publishes
// or consumes, so modules reference typed definitions instead of raw strings
// and the CLI can list them.
package topicmgr

import "fmt"

// Scope tells whether a topic belongs to the framework or to a module.
type Scope string

const (
	ScopeFramework Scope = "framework" // transport and presence plumbing
	ScopeModule    Scope = "module"    // feature modules (messaging, announcements, audit)
)

// Config describes a topic before it is defined.
type Config struct {
	Name        string `json:"name"`
	Module      string `json:"module,omitempty"`
	Description string `json:"description"`
	Example     string `json:"example,omitempty"`
}

// Topic is an immutable topic definition.
type Topic struct {
	name        string
	module      string
	description string
	example     string
	scope       Scope
}

// DefineFramework creates a framework-scoped topic.
func DefineFramework(cfg Config) Topic {
	return Topic{
		name:        cfg.Name,
		module:      cfg.Module,
		description: cfg.Description,
		example:     cfg.Example,
		scope:       ScopeFramework,
	}
}

// DefineModule creates a module-scoped topic.
func DefineModule(cfg Config) Topic {
	t := DefineFramework(cfg)
	t.scope = ScopeModule
	return t
}

func (t Topic) Name() string        { return t.name }
func (t Topic) Module() string      { return t.module }
func (t Topic) Description() string { return t.description }
func (t Topic) Example() string     { return t.example }
func (t Topic) Scope() Scope        { return t.scope }
func (t Topic) String() string      { return t.name }

// ErrorType classifies catalogue failures.
type ErrorType string

const (
	ErrorTopicNotFound         ErrorType = "topic_not_found"
	ErrorDuplicateRegistration ErrorType = "duplicate_registration"
	ErrorValidationFailed      ErrorType = "validation_failed"
)

// TopicError is returned by catalogue operations.
type TopicError struct {
	Type    ErrorType `json:"type"`
	Topic   string    `json:"topic"`
	Message string    `json:"message"`
}

func (e *TopicError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Topic)
}
