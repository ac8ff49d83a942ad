package models

// Snapshot is the view of the store pushed back to the view layer after every
// mutating call.
type Snapshot struct {
	Sequence uint64   `json:"sequence"`
	Session  *Session `json:"session"`
	Posts    []*Post  `json:"posts"`
	// Query is set when Posts was filtered by a search.
	Query string `json:"query,omitempty"`
}
