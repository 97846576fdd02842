package models

import (
	"time"

	"github.com/google/uuid"
)

// Client represents an organization that owns leads and staff users
type Client struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`

	// Users is populated only by lookups that include the client's staff accounts
	Users []*User `json:"users,omitempty" db:"-"`
}

// NewClient creates a new Client instance
func NewClient(name string) *Client {
	now := time.Now()
	return &Client{
		ID:        uuid.New(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NotificationEmails returns the non-empty, de-duplicated email addresses of the
// client's users in the order they were loaded
func (c *Client) NotificationEmails() []string {
	seen := make(map[string]struct{}, len(c.Users))
	emails := make([]string, 0, len(c.Users))
	for _, u := range c.Users {
		if u == nil || u.Email == "" {
			continue
		}
		if _, ok := seen[u.Email]; ok {
			continue
		}
		seen[u.Email] = struct{}{}
		emails = append(emails, u.Email)
	}
	return emails
}
