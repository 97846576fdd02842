package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JSONMap is a free-form JSON object stored in a JSONB column
type JSONMap map[string]interface{}

// Value implements driver.Valuer. A nil map is stored as an empty object.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(map[string]interface{}(m))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal json map: %w", err)
	}
	return b, nil
}

// Scan implements sql.Scanner
func (m *JSONMap) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*m = JSONMap{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for json map: %T", src)
	}

	out := JSONMap{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &out); err != nil {
			return fmt.Errorf("failed to unmarshal json map: %w", err)
		}
	}
	*m = out
	return nil
}

// Lead represents an inbound contact submission owned by a client
type Lead struct {
	ID               uuid.UUID `json:"id" db:"id"`
	Name             string    `json:"name" db:"name"`
	Email            string    `json:"email" db:"email"`
	Message          *string   `json:"message" db:"message"`
	ClientID         uuid.UUID `json:"clientId" db:"client_id"`
	Meta             JSONMap   `json:"meta" db:"meta"`
	AdditionalFields JSONMap   `json:"additionalFields" db:"additional_fields"`
	CreatedAt        time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time `json:"updatedAt" db:"updated_at"`
}

// NewLead creates a new Lead instance. Nil maps are replaced with empty ones.
func NewLead(clientID uuid.UUID, name, email string, message *string, meta, additional JSONMap) *Lead {
	if meta == nil {
		meta = JSONMap{}
	}
	if additional == nil {
		additional = JSONMap{}
	}
	now := time.Now().UTC()
	return &Lead{
		ID:               uuid.New(),
		Name:             name,
		Email:            email,
		Message:          message,
		ClientID:         clientID,
		Meta:             meta,
		AdditionalFields: additional,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// MessageText returns the lead message or an empty string
func (l *Lead) MessageText() string {
	if l.Message == nil {
		return ""
	}
	return *l.Message
}
