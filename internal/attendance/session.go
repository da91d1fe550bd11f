// Package attendance holds the kiosk's domain types: the session identity,
// captured frames, verification outcomes and the resulting attendance record.
package attendance

import (
	"errors"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultDisplayName is shown when the navigation layer supplies no name.
const DefaultDisplayName = "Guest"

// Session is the identity a check-in runs under. It is fixed for the lifetime
// of a controller.
type Session struct {
	userID      string
	displayName string
}

// NewSession validates and normalizes the identity handed over by the caller.
func NewSession(userID, displayName string) (Session, error) {
	id := strings.TrimSpace(userID)
	if id == "" {
		return Session{}, errors.New("session: user id is required")
	}
	return Session{userID: id, displayName: normalizeName(displayName)}, nil
}

// UserID returns the identifier sent to the verification service.
func (s Session) UserID() string { return s.userID }

// DisplayName returns the name shown in the kiosk header.
func (s Session) DisplayName() string { return s.displayName }

// IsZero reports whether the session was never constructed.
func (s Session) IsZero() bool { return s.userID == "" }

// normalizeName collapses whitespace and title-cases names that arrive in a
// single case (directory exports are often ALL CAPS). Mixed-case names are kept.
func normalizeName(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return DefaultDisplayName
	}
	if singleCase(name) {
		return cases.Title(language.Und).String(strings.ToLower(name))
	}
	return name
}

func singleCase(s string) bool {
	var upper, lower bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		}
	}
	return upper != lower
}
