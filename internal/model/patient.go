package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// PatientRecord is a single patient entry as served by the upstream API.
// Optional fields that are absent stay nil so they are omitted on encode.
type PatientRecord struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Website     *string `json:"website,omitempty"`
	Avatar      Avatar  `json:"avatar,omitzero"`
	CreatedAt   string  `json:"createdAt"`
}

// NewPatientRecord is a record that has not been assigned an id yet.
type NewPatientRecord struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Website     *string `json:"website,omitempty"`
	Avatar      Avatar  `json:"avatar,omitzero"`
	CreatedAt   string  `json:"createdAt"`
}

// WithID returns the record carrying the given id.
func (n NewPatientRecord) WithID(id string) PatientRecord {
	return PatientRecord{
		ID:          id,
		Name:        n.Name,
		Description: n.Description,
		Website:     n.Website,
		Avatar:      n.Avatar,
		CreatedAt:   n.CreatedAt,
	}
}

// PatientForm is the payload accepted by the create and edit forms.
type PatientForm struct {
	Name        string `json:"name" validate:"required,min=1,max=70"`
	Description string `json:"description" validate:"required,min=1,max=1000"`
	Website     string `json:"website" validate:"omitempty,url"`
	Avatar      string `json:"avatar"`
}

type AvatarKind int

const (
	AvatarNone AvatarKind = iota
	AvatarURL
	// AvatarPlaceholder is the legacy non-string shape (usually `{}`).
	// It is carried through untouched and never rendered as an image.
	AvatarPlaceholder
)

// Avatar is either absent, a URL string, or an opaque placeholder value.
type Avatar struct {
	kind AvatarKind
	url  string
	raw  json.RawMessage
}

func NewAvatarURL(url string) Avatar {
	return Avatar{kind: AvatarURL, url: url}
}

func NewAvatarPlaceholder(raw json.RawMessage) Avatar {
	return Avatar{kind: AvatarPlaceholder, raw: append(json.RawMessage(nil), raw...)}
}

func (a Avatar) Kind() AvatarKind { return a.kind }

// URL returns the avatar URL and whether the avatar is a URL at all.
func (a Avatar) URL() (string, bool) {
	return a.url, a.kind == AvatarURL
}

func (a Avatar) IsZero() bool { return a.kind == AvatarNone }

func (a Avatar) Equal(b Avatar) bool {
	return a.kind == b.kind && a.url == b.url && bytes.Equal(a.raw, b.raw)
}

func (a Avatar) MarshalJSON() ([]byte, error) {
	switch a.kind {
	case AvatarURL:
		return json.Marshal(a.url)
	case AvatarPlaceholder:
		return a.raw, nil
	default:
		return []byte("null"), nil
	}
}

func (a *Avatar) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		*a = Avatar{}
	case trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return fmt.Errorf("invalid avatar: %w", err)
		}
		*a = NewAvatarURL(s)
	default:
		if !json.Valid(trimmed) {
			return fmt.Errorf("invalid avatar value")
		}
		*a = NewAvatarPlaceholder(trimmed)
	}
	return nil
}

// StringPtr is a helper for populating optional record fields.
func StringPtr(s string) *string {
	return &s
}
