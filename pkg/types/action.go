package types

import "time"

// Action is an entry in the append-only remediation log.
type Action struct {
	ID          int64     `json:"id"`
	Description string    `json:"description"`
	Source      string    `json:"source"`
	Reference   *string   `json:"reference"`
	Project     *string   `json:"project"`
	CreatedAt   time.Time `json:"created_at"`
}

// ActionWithLinks is an action together with the observations it addresses.
type ActionWithLinks struct {
	Action
	ObservationIDs []int64 `json:"observation_ids"`
}

// NewAction holds the input for creating an action and its links.
type NewAction struct {
	Description    string  `json:"description"`
	ObservationIDs []int64 `json:"observation_ids"`
	Source         string  `json:"source,omitempty"`
	Reference      string  `json:"reference,omitempty"`
	Project        string  `json:"project,omitempty"`
}

// Validate checks the shape of the input. Existence of the referenced
// observations is checked by the store.
func (a NewAction) Validate() error {
	if a.Description == "" {
		return ErrEmptyDescription
	}
	if len(a.ObservationIDs) == 0 {
		return ErrNoObservations
	}
	seen := make(map[int64]bool, len(a.ObservationIDs))
	for _, id := range a.ObservationIDs {
		if seen[id] {
			return ErrDuplicateLink
		}
		seen[id] = true
	}
	return nil
}

// ActionFilter selects actions. Zero-valued fields are not applied.
type ActionFilter struct {
	Project       string
	ObservationID int64
}
