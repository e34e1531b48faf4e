package reaction

import "time"

// Reaction is one row of the multiset. The same (message, user, emoji) triple
// may appear any number of times; each row is one "add" action.
type Reaction struct {
	ID        string    `json:"id"`
	MessageID string    `json:"messageId"`
	UserID    string    `json:"userId"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"createdAt"`

	Username string `json:"username"`
}

// UserRef identifies a distinct reactor in aggregate payloads.
type UserRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Aggregate is the per-emoji summary shape every operation returns: total row
// count, the requesting user's own count, and the de-duplicated reactor list.
type Aggregate struct {
	Emoji     string    `json:"emoji"`
	Count     int       `json:"count"`
	UserCount int       `json:"userCount"`
	Users     []UserRef `json:"users"`
}

// AddResult mirrors the add-reaction response payload.
type AddResult struct {
	Aggregate
	Action string `json:"action"`
}

// RemoveResult reports whether a row was actually deleted.
type RemoveResult struct {
	Aggregate
	Removed bool `json:"removed"`
}
