package review

import (
	"errors"
	"fmt"

	"github.com/andreaswittus/emas/internal/drafter"
)

var (
	// ErrInvalidVerdict marks a verdict outside the permitted set for the
	// pending action, or a malformed payload. The ticket stays pending.
	ErrInvalidVerdict = errors.New("invalid verdict")
	// ErrAlreadyResolved marks a second resolution attempt on the same ticket.
	ErrAlreadyResolved = errors.New("review already resolved")
	// ErrNotFound marks an unknown ticket id.
	ErrNotFound = errors.New("review not found")
)

// VerdictType is the human reviewer's disposition.
type VerdictType string

const (
	VerdictAccept  VerdictType = "accept"
	VerdictIgnore  VerdictType = "ignore"
	VerdictRespond VerdictType = "respond"
	VerdictEdit    VerdictType = "edit"
)

// Verdict resolves one suspended review. Exactly one per ticket.
type Verdict struct {
	Type VerdictType `json:"type"`
	// Feedback carries the free-text correction for respond verdicts.
	Feedback string `json:"feedback,omitempty"`
	// Edited carries the human-corrected action for edit verdicts.
	Edited *drafter.Action `json:"edited,omitempty"`
}

// AllowedVerdicts returns the verdict set offered for an action kind.
// Questions cannot be accepted or edited; ignore actions are never reviewed.
func AllowedVerdicts(kind drafter.Kind) []VerdictType {
	switch kind {
	case drafter.KindQuestion:
		return []VerdictType{VerdictIgnore, VerdictRespond}
	case drafter.KindNewDraft, drafter.KindResponseDraft:
		return []VerdictType{VerdictIgnore, VerdictRespond, VerdictEdit, VerdictAccept}
	}
	return nil
}

// Validate checks the verdict against an allowed set and its own payload shape.
func (v Verdict) Validate(allowed []VerdictType) error {
	ok := false
	for _, a := range allowed {
		if v.Type == a {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("%w: %q not permitted for this action", ErrInvalidVerdict, v.Type)
	}

	switch v.Type {
	case VerdictRespond:
		if v.Feedback == "" {
			return fmt.Errorf("%w: respond requires feedback text", ErrInvalidVerdict)
		}
	case VerdictEdit:
		if v.Edited == nil || v.Edited.Content == "" {
			return fmt.Errorf("%w: edit requires a corrected draft", ErrInvalidVerdict)
		}
		if v.Edited.Kind != drafter.KindNewDraft && v.Edited.Kind != drafter.KindResponseDraft {
			return fmt.Errorf("%w: edited action must be a draft", ErrInvalidVerdict)
		}
	case VerdictAccept, VerdictIgnore:
		if v.Feedback != "" || v.Edited != nil {
			return fmt.Errorf("%w: %s carries no arguments", ErrInvalidVerdict, v.Type)
		}
	default:
		return fmt.Errorf("%w: unknown verdict type %q", ErrInvalidVerdict, v.Type)
	}
	return nil
}
