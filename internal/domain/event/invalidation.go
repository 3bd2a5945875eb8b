package event

import (
	"fmt"
	"time"
)

type Scope string

const (
	ScopeCategories Scope = "categories"
	ScopeProducts   Scope = "products"
	ScopeAll        Scope = "all"
)

func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case ScopeCategories, ScopeProducts, ScopeAll:
		return Scope(s), nil
	case "":
		return ScopeAll, nil
	default:
		return "", fmt.Errorf("unknown invalidation scope %q", s)
	}
}

func (s Scope) Categories() bool { return s == ScopeCategories || s == ScopeAll }
func (s Scope) Products() bool   { return s == ScopeProducts || s == ScopeAll }

// CacheInvalidation tells every catalog instance to drop cached data.
type CacheInvalidation struct {
	Scope    Scope     `json:"scope"`
	Reason   string    `json:"reason,omitempty"`
	Origin   string    `json:"origin"`    // Instance that published the event
	IssuedAt time.Time `json:"issued_at"`
}

func (e *CacheInvalidation) EventType() string {
	return "CacheInvalidation"
}

func (e *CacheInvalidation) EventValue() ([]byte, error) {
	return Encode(e)
}
