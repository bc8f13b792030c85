package domain

import (
	"sort"
	"time"
)

type Action string

const (
	ActionRegistered     Action = "account.registered"
	ActionLogin          Action = "session.login"
	ActionProfileUpdated Action = "account.profile_updated"
	ActionUpdated        Action = "account.updated"
	ActionRoleToggled    Action = "account.role_toggled"
	ActionDeleted        Action = "account.deleted"
	ActionPrediction     Action = "prediction.recorded"
)

func (a Action) Valid() bool {
	switch a {
	case ActionRegistered, ActionLogin, ActionProfileUpdated, ActionUpdated,
		ActionRoleToggled, ActionDeleted, ActionPrediction:
		return true
	}
	return false
}

// AuditEntry is an immutable record of something an account did. Entries are
// only ever appended.
type AuditEntry struct {
	ID         string         `json:"id"`
	ActorID    string         `json:"actor_id"`
	ActorEmail string         `json:"actor_email"`
	Action     Action         `json:"action"`
	SubjectID  string         `json:"subject_id,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload,omitempty"`
}

func (e *AuditEntry) Clone() *AuditEntry {
	if e == nil {
		return nil
	}
	cp := *e
	if e.Payload != nil {
		cp.Payload = make(map[string]any, len(e.Payload))
		for k, v := range e.Payload {
			cp.Payload[k] = v
		}
	}
	return &cp
}

// AuditFilter narrows a history listing. Zero values match everything.
type AuditFilter struct {
	ActorID string
	Action  Action
	Limit   int
}

func (f AuditFilter) Matches(e *AuditEntry) bool {
	if f.ActorID != "" && e.ActorID != f.ActorID {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	return true
}

// SortNewestFirst orders entries by OccurredAt descending, ties broken by ID
// descending.
func SortNewestFirst(entries []*AuditEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.OccurredAt.Equal(b.OccurredAt) {
			return a.OccurredAt.After(b.OccurredAt)
		}
		return a.ID > b.ID
	})
}
