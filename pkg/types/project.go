package types

import "time"

// Project is an entry in the project registry, usually an owner/repo name.
type Project struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
