// Package comments provides the Postgres-backed comment store and the
// moderation triage that gates what reaches the public site.
package comments

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Status is the moderation state of a comment.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusSpam     Status = "spam"
)

// ValidStatus reports whether s is a known moderation state.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusSpam:
		return true
	}
	return false
}

// Comment is a reader comment on a post.
type Comment struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	Author    string    `json:"author"`
	Email     string    `json:"email,omitempty"`
	Body      string    `json:"body"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

const (
	maxAuthorLen = 120
	maxBodyLen   = 4000
)

// Validate checks submission fields. Status and timestamps are set by
// the store, not the submitter.
func (c *Comment) Validate() error {
	if strings.TrimSpace(c.Slug) == "" {
		return fmt.Errorf("comment slug is required")
	}
	if strings.TrimSpace(c.Author) == "" {
		return fmt.Errorf("comment author is required")
	}
	if len(c.Author) > maxAuthorLen {
		return fmt.Errorf("comment author exceeds %d characters", maxAuthorLen)
	}
	if strings.TrimSpace(c.Body) == "" {
		return fmt.Errorf("comment body is required")
	}
	if len(c.Body) > maxBodyLen {
		return fmt.Errorf("comment body exceeds %d characters", maxBodyLen)
	}
	if c.Email != "" && !strings.Contains(c.Email, "@") {
		return fmt.Errorf("comment email is malformed")
	}
	return nil
}

// newID returns a random 32-hex-character comment identifier.
func newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		// Fall back to a time-derived id; collisions are caught by the
		// primary key.
		return fmt.Sprintf("%032x", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}
