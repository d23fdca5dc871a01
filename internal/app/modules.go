package app

import (
	"github.com/nfrund/gymhub/internal/module"
	"github.com/nfrund/gymhub/internal/modules/chat"
	"github.com/nfrund/gymhub/internal/modules/events"
	"github.com/nfrund/gymhub/internal/modules/gyms"
)

// NewModules creates and returns the list of all active modules for the application.
// This is the single source of truth for which features are enabled.
func NewModules() []module.Module {
	return []module.Module{
		chat.New(),
		gyms.New(),
		events.New(),
	}
}
