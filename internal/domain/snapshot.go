package domain

import "time"

// ProductSnapshot is the durable copy of the fully transformed catalog.
type ProductSnapshot struct {
	Products []Product `json:"products"`
	SavedAt  time.Time `json:"saved_at"`
}

// Fresh reports whether the snapshot is younger than ttl at now.
func (s *ProductSnapshot) Fresh(now time.Time, ttl time.Duration) bool {
	if s == nil || s.SavedAt.IsZero() {
		return false
	}
	return now.Sub(s.SavedAt) < ttl
}
