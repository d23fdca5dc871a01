// Package realtime implements the gym-scoped channel: resolving which room a
// caller belongs to, tracking live connections per room, relaying direct
// messages and broadcasting announcements.
//
// Nothing here is global. A Registry is created by the application and
// handed to every component that needs it.
package realtime
