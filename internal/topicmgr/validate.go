package topicmgr

import (
	"regexp"
	"strings"
)

// Topic names are lowercase dot-separated segments, e.g. "chat.message.sent".
var namePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*(\.[a-z][a-z0-9_]*)+$`)

// Validate checks a topic definition. Module topics must be prefixed with
// their module name.
func Validate(t Topic) error {
	if !namePattern.MatchString(t.name) {
		return &TopicError{Type: ErrorValidationFailed, Topic: t.name, Message: "name must be lowercase dot-separated segments"}
	}
	if t.description == "" {
		return &TopicError{Type: ErrorValidationFailed, Topic: t.name, Message: "description is required"}
	}
	switch t.scope {
	case ScopeModule:
		if t.module == "" {
			return &TopicError{Type: ErrorValidationFailed, Topic: t.name, Message: "module topics need an owning module"}
		}
		if !strings.HasPrefix(t.name, t.module+".") {
			return &TopicError{Type: ErrorValidationFailed, Topic: t.name, Message: "module topic must start with " + t.module + "."}
		}
	case ScopeFramework:
	default:
		return &TopicError{Type: ErrorValidationFailed, Topic: t.name, Message: "unknown scope"}
	}
	return nil
}
