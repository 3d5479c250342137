package csom

import (
	"fmt"
	"slices"
	"strings"
)

// IdentityField is the payload field carrying an object's identity token.
const IdentityField = "_ObjectIdentity_"

// IdentityToken is an opaque server capability for one object.
//
// The token is held in the form it must take inside an Identity node's
// Name attribute. It is escaped once, at capture, and replayed exactly.
// Tokens compare with ==; there is deliberately no way to concatenate or
// inspect their parts.
type IdentityToken struct {
	attr string
}

var identityEscaper = strings.NewReplacer(
	`&`, "&amp;",
	`<`, "&lt;",
	`>`, "&gt;",
	`"`, "&quot;",
	"\n", "&#xA;",
	"\r", "&#xD;",
	"\t", "&#x9;",
)

// CaptureIdentity wraps a raw _ObjectIdentity_ value taken from a response
// payload.
func CaptureIdentity(raw string) IdentityToken {
	return IdentityToken{attr: identityEscaper.Replace(raw)}
}

// IsZero reports whether t was never captured.
func (t IdentityToken) IsZero() bool {
	return t.attr == ""
}

// Attr returns the token exactly as it is written into the Name attribute.
func (t IdentityToken) Attr() string {
	return t.attr
}

// String implements fmt.Stringer. Tokens are capabilities; only a short
// prefix is shown.
func (t IdentityToken) String() string {
	if len(t.attr) <= 8 {
		return fmt.Sprintf("IdentityToken(%s)", t.attr)
	}
	return fmt.Sprintf("IdentityToken(%s...)", t.attr[:8])
}

// Session remembers identity tokens under symbolic names for the duration
// of one logical operation, so a later graph can resume at an object the
// earlier graph created.
//
// A Session is owned by one operation and is not safe for concurrent use.
type Session struct {
	tokens map[string]IdentityToken
}

// NewSession creates an empty session.
func NewSession() *Session {
	return &Session{tokens: make(map[string]IdentityToken)}
}

// Remember stores tok under name, replacing any earlier token.
func (s *Session) Remember(name string, tok IdentityToken) {
	s.tokens[name] = tok
}

// Recall returns the token remembered under name.
// An unknown name is an orchestration bug and yields *UnknownIdentityError.
func (s *Session) Recall(name string) (IdentityToken, error) {
	tok, ok := s.tokens[name]
	if !ok {
		return IdentityToken{}, &UnknownIdentityError{Name: name, Known: s.Names()}
	}
	return tok, nil
}

// MustRecall is Recall that panics on an unknown name.
func (s *Session) MustRecall(name string) IdentityToken {
	tok, err := s.Recall(name)
	if err != nil {
		panic(err)
	}
	return tok
}

// Has reports whether name was remembered.
func (s *Session) Has(name string) bool {
	_, ok := s.tokens[name]
	return ok
}

// Names returns the remembered names in sorted order.
func (s *Session) Names() []string {
	names := make([]string, 0, len(s.tokens))
	for name := range s.tokens {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
