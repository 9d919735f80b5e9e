// Package activity emits audit events for dashboard changes to pluggable hooks.
package activity

import (
	"strings"
	"time"
)

// DefaultChannel tags events that do not name a channel.
const DefaultChannel = "dashboard"

// Event describes a user-visible change worth recording.
type Event struct {
	Verb           string
	ActorID        string
	UserID         string
	OrgID          string
	ObjectType     string
	ObjectID       string
	Channel        string
	DefinitionCode string
	Recipients     []string
	Metadata       map[string]any
	OccurredAt     time.Time
}

// NormalizeEvent trims identifiers, clones the metadata map and recipients
// slice, and stamps OccurredAt when unset.
func NormalizeEvent(evt Event) Event {
	evt.Verb = strings.TrimSpace(evt.Verb)
	evt.ActorID = strings.TrimSpace(evt.ActorID)
	evt.UserID = strings.TrimSpace(evt.UserID)
	evt.OrgID = strings.TrimSpace(evt.OrgID)
	evt.ObjectType = strings.TrimSpace(evt.ObjectType)
	evt.ObjectID = strings.TrimSpace(evt.ObjectID)
	evt.Channel = strings.TrimSpace(evt.Channel)
	evt.DefinitionCode = strings.TrimSpace(evt.DefinitionCode)
	if evt.Metadata != nil {
		meta := make(map[string]any, len(evt.Metadata))
		for k, v := range evt.Metadata {
			meta[k] = v
		}
		evt.Metadata = meta
	}
	if evt.Recipients != nil {
		evt.Recipients = append([]string(nil), evt.Recipients...)
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}
	return evt
}

// Valid reports whether the event carries the fields every hook relies on.
func (evt Event) Valid() bool {
	return evt.Verb != "" && evt.ObjectType != ""
}
