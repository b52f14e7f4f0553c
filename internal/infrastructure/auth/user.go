// Package auth keeps the storefront's login session: the signed-in user and
// the API token, persisted in client-side storage.
package auth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// User is the account returned by the remote API on login.
// Upstream field names are Spanish (nombre, telefono, rol).
type User struct {
	ID    string
	Email string
	Name  string
	Phone string
	Role  string
}

type userJSON struct {
	ID    json.RawMessage `json:"id,omitempty"`
	Email string          `json:"email"`
	Name  string          `json:"nombre,omitempty"`
	Phone string          `json:"telefono,omitempty"`
	Role  string          `json:"rol,omitempty"`
}

// IsAdmin reports whether the user may manage the catalog
func (u User) IsAdmin() bool {
	switch strings.ToLower(u.Role) {
	case "admin", "administrador":
		return true
	}
	return false
}

// MarshalJSON implements json.Marshaler
func (u User) MarshalJSON() ([]byte, error) {
	out := userJSON{Email: u.Email, Name: u.Name, Phone: u.Phone, Role: u.Role}
	if u.ID != "" {
		id, err := json.Marshal(u.ID)
		if err != nil {
			return nil, err
		}
		out.ID = id
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler. The id may be a number or a string.
func (u *User) UnmarshalJSON(data []byte) error {
	var in userJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	var id string
	raw := bytes.TrimSpace(in.ID)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
	case raw[0] == '"':
		if err := json.Unmarshal(raw, &id); err != nil {
			return err
		}
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return fmt.Errorf("user id must be a string or a number: %w", err)
		}
		id = n.String()
	}

	*u = User{ID: id, Email: in.Email, Name: in.Name, Phone: in.Phone, Role: in.Role}
	return nil
}
