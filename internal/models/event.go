package models

import "time"

// ChangeType is the kind of row change carried by a ChangeEvent.
type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// ChangeEvent is one notification on the owner-scoped change feed.
// Insert and update carry the post-event Record; delete carries OldRecord,
// of which only the identifier is guaranteed.
type ChangeEvent struct {
	Type            ChangeType `json:"type"`
	Record          *Task      `json:"record,omitempty"`
	OldRecord       *Task      `json:"old_record,omitempty"`
	CommitTimestamp time.Time  `json:"commit_timestamp"`
}

// TaskID returns the identifier the event refers to.
func (e ChangeEvent) TaskID() string {
	switch {
	case e.Type == ChangeDelete && e.OldRecord != nil:
		return e.OldRecord.ID
	case e.Record != nil:
		return e.Record.ID
	case e.OldRecord != nil:
		return e.OldRecord.ID
	}
	return ""
}

// OwnerID returns the owner of the affected row.
func (e ChangeEvent) OwnerID() string {
	if e.Record != nil {
		return e.Record.UserID
	}
	if e.OldRecord != nil {
		return e.OldRecord.UserID
	}
	return ""
}
