package types

import "time"

// Observation dispositions. Every observation starts as DispositionOpen.
const (
	DispositionOpen      = "open"
	DispositionAddressed = "addressed"
	DispositionWontFix   = "wont_fix"
	DispositionDeferred  = "deferred"
)

// DefaultSource is the source recorded when the caller supplies none.
const DefaultSource = "human"

// validDispositions is the set of recognized disposition values.
var validDispositions = map[string]bool{
	DispositionOpen:      true,
	DispositionAddressed: true,
	DispositionWontFix:   true,
	DispositionDeferred:  true,
}

// Dispositions lists the disposition values in report order.
var Dispositions = []string{
	DispositionOpen,
	DispositionDeferred,
	DispositionAddressed,
	DispositionWontFix,
}

// ValidDisposition reports whether d is one of the fixed disposition values.
func ValidDisposition(d string) bool {
	return validDispositions[d]
}

// Observation is a short free-text note about engineering friction.
type Observation struct {
	ID          int64     `json:"id"`
	Text        string    `json:"text"`
	Tags        *string   `json:"tags"` // Reserved; always null.
	Source      string    `json:"source"`
	Disposition string    `json:"disposition"`
	Project     *string   `json:"project"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProjectName returns the project name or "" when the observation has none.
func (o *Observation) ProjectName() string {
	if o.Project == nil {
		return ""
	}
	return *o.Project
}

// ObservationFilter selects observations. Empty fields are not applied;
// the remaining ones are combined with AND.
type ObservationFilter struct {
	Disposition string
	Source      string
	Project     string
}

// ObservationUpdate is a partial update. Nil fields are left unchanged.
// A non-nil empty Project clears the project.
type ObservationUpdate struct {
	Text        *string `json:"text,omitempty"`
	Source      *string `json:"source,omitempty"`
	Disposition *string `json:"disposition,omitempty"`
	Project     *string `json:"project,omitempty"`
}

// Empty reports whether no field was provided.
func (u ObservationUpdate) Empty() bool {
	return u.Text == nil && u.Source == nil && u.Disposition == nil && u.Project == nil
}

// Validate checks the provided fields. It does not check for emptiness of
// the update as a whole; see Empty.
func (u ObservationUpdate) Validate() error {
	if u.Text != nil && *u.Text == "" {
		return ErrEmptyText
	}
	if u.Disposition != nil && !ValidDisposition(*u.Disposition) {
		return ErrInvalidDisposition
	}
	return nil
}
