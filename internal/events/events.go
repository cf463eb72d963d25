// Package events carries document lifecycle notifications from the catalog
// to subscribers such as the search cache. Delivery goes through Kafka when
// it is enabled and through an in-process bus otherwise.
package events

import (
	"context"
	"strconv"
	"time"
)

type Type string

const (
	DocumentCreated       Type = "document.created"
	DocumentUpdated       Type = "document.updated"
	DocumentDeleted       Type = "document.deleted"
	DocumentStatusChanged Type = "document.status_changed"
	TagDeleted            Type = "tag.deleted"
	IndexRebuilt          Type = "index.rebuilt"
)

// Event is the payload published after a catalog change commits.
type Event struct {
	Type       Type      `json:"type"`
	DocumentID int64     `json:"document_id,omitempty"`
	Status     string    `json:"status,omitempty"`
	Actor      string    `json:"actor,omitempty"`
	At         time.Time `json:"at"`
}

// Key keeps the events of one document on one partition.
func (e Event) Key() string {
	if e.DocumentID == 0 {
		return string(e.Type)
	}
	return strconv.FormatInt(e.DocumentID, 10)
}

// Publisher delivers events. Publishing happens after the write committed,
// so implementations log failures instead of returning them.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Handler reacts to one event.
type Handler func(ctx context.Context, e Event) error

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, Event) {}
