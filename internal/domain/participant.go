// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"unicode/utf8"
)

// Length limits count runes, matching how the transport validates payloads.
const (
	MaxTokenLen = 64
	MaxNameLen  = 36
)

var (
	ErrNameEmpty    = errors.New("display name empty")
	ErrNameTooLong  = errors.New("display name too long")
	ErrTokenEmpty   = errors.New("identity token empty")
	ErrTokenTooLong = errors.New("identity token too long")
)

// Participant is one durable identity inside a room. ConnID is refreshed
// on every (re)connect and is only used to resolve ungraceful disconnects.
type Participant struct {
	Name   string `json:"name"`
	Token  Token  `json:"id"`
	ConnID ConnID `json:"-"`
}

// NewParticipant is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewParticipant(name string, token Token, cid ConnID) (*Participant, error) {
	if len(name) == 0 {
		return nil, ErrNameEmpty
	}
	if utf8.RuneCountInString(name) > MaxNameLen {
		return nil, ErrNameTooLong
	}
	if len(token) == 0 {
		return nil, ErrTokenEmpty
	}
	// never truncate an identity: a mangled token would orphan every later
	// seat and vote request carrying the full one
	if utf8.RuneCountInString(string(token)) > MaxTokenLen {
		return nil, ErrTokenTooLong
	}
	return &Participant{Name: name, Token: token, ConnID: cid}, nil
}
