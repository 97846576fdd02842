package intake

import (
	"encoding/json"
	"strings"

	"github.com/upb/leaddesk/services"
)

// Wire names of the recognized intake fields
const (
	FieldName     = "name"
	FieldEmail    = "email"
	FieldClientID = "clientId"
	FieldMessage  = "message"
	FieldMeta     = "meta"
	FieldToken    = "cf-turnstile-response"
)

// recognizedFields is the allow-list of keys that are not copied into additionalFields
var recognizedFields = map[string]struct{}{
	FieldName:     {},
	FieldEmail:    {},
	FieldClientID: {},
	FieldMessage:  {},
	FieldMeta:     {},
	FieldToken:    {},
}

// IsRecognizedField reports whether key belongs to the intake schema
func IsRecognizedField(key string) bool {
	_, ok := recognizedFields[key]
	return ok
}

// Submission is one decoded form submission
type Submission struct {
	// Fields holds every submitted key with a single value per key
	Fields map[string]string

	// Meta is the decoded meta value, nil when meta was not submitted.
	// It may be any JSON value; only objects pass validation.
	Meta interface{}

	// HasMeta reports whether meta was submitted at all, so a JSON null
	// can be told apart from an absent field
	HasMeta bool

	// RemoteIP is the end-user address forwarded to verification
	RemoteIP string
}

// NewSubmission decodes the meta field and returns a Submission. A meta value
// that is present but not valid JSON yields a malformed input error.
func NewSubmission(fields map[string]string, remoteIP string) (*Submission, error) {
	if fields == nil {
		fields = map[string]string{}
	}
	sub := &Submission{Fields: fields, RemoteIP: remoteIP}

	raw, ok := fields[FieldMeta]
	if !ok {
		return sub, nil
	}

	var meta interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &meta); err != nil {
		return nil, services.NewDomainError(services.ErrorTypeMalformedInput, "Invalid meta", err).
			WithDetail(FieldMeta, "Meta must be valid JSON")
	}
	sub.Meta = meta
	sub.HasMeta = true
	return sub, nil
}

// value returns a field and whether it was submitted
func (s *Submission) value(key string) (string, bool) {
	v, ok := s.Fields[key]
	return v, ok
}

// additionalFields returns every submitted key outside the recognized schema
func (s *Submission) additionalFields() map[string]interface{} {
	extra := make(map[string]interface{})
	for k, v := range s.Fields {
		if !IsRecognizedField(k) {
			extra[k] = v
		}
	}
	return extra
}
