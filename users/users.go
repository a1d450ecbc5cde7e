package users

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RoleType is the closed set of role identifiers the platform assigns to a user.
type RoleType string

const (
	RoleAdmin  RoleType = "admin"  // Can manage users and read the audit log
	RoleDevops RoleType = "devops" // Can manage projects and their resources
	RoleViewer RoleType = "viewer" // Read-only access, default for new accounts
)

// Roles lists every recognised role.
var Roles = []RoleType{RoleAdmin, RoleDevops, RoleViewer}

// Valid reports whether r is one of the recognised roles.
func (r RoleType) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// Profile is the caller's user record as returned by GET /users/me.
// Fields not listed here are kept in Extra so a persisted profile round-trips unchanged.
type Profile struct {
	ID        uuid.UUID      `json:"id"`                   // Unique identifier for the user
	Email     string         `json:"email"`                // User's email address
	RoleID    RoleType       `json:"role_id"`              // One of Roles
	CreatedAt time.Time      `json:"created_at,omitempty"` // When the account was created
	Extra     map[string]any `json:"-"`                    // Opaque profile fields
}

var knownProfileFields = map[string]struct{}{
	"id":         {},
	"email":      {},
	"role_id":    {},
	"created_at": {},
}

type profileFields struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	RoleID    RoleType  `json:"role_id"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// UnmarshalJSON decodes the known fields and keeps the rest in Extra.
func (p *Profile) UnmarshalJSON(data []byte) error {
	var known profileFields
	if err := json.Unmarshal(data, &known); err != nil {
		return fmt.Errorf("[Profile UnmarshalJSON] decoding profile: %w", err)
	}

	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return fmt.Errorf("[Profile UnmarshalJSON] decoding profile fields: %w", err)
	}

	p.ID = known.ID
	p.Email = known.Email
	p.RoleID = known.RoleID
	p.CreatedAt = known.CreatedAt
	p.Extra = nil
	for k, v := range all {
		if _, ok := knownProfileFields[k]; ok {
			continue
		}
		if p.Extra == nil {
			p.Extra = make(map[string]any)
		}
		p.Extra[k] = v
	}
	return nil
}

// MarshalJSON writes the known fields and merges Extra back in.
func (p Profile) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Extra)+4)
	for k, v := range p.Extra {
		out[k] = v
	}
	out["id"] = p.ID
	out["email"] = p.Email
	out["role_id"] = p.RoleID
	if !p.CreatedAt.IsZero() {
		out["created_at"] = p.CreatedAt
	}
	return json.Marshal(out)
}

// HasRole reports whether the profile carries the given role. A nil profile has no role.
func (p *Profile) HasRole(role RoleType) bool {
	return p != nil && p.RoleID == role
}

func (p *Profile) IsAdmin() bool {
	return p.HasRole(RoleAdmin)
}

func (p *Profile) IsDevops() bool {
	return p.HasRole(RoleDevops)
}

func (p *Profile) IsViewer() bool {
	return p.HasRole(RoleViewer)
}

// Clone returns a deep enough copy that callers can't mutate the original's Extra map.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	c := *p
	if p.Extra != nil {
		c.Extra = make(map[string]any, len(p.Extra))
		for k, v := range p.Extra {
			c.Extra[k] = v
		}
	}
	return &c
}
