package types

import (
	"errors"
	"fmt"
	"math"
)

// MarkMetadata is the declarative marking data attached to a check definition
type MarkMetadata struct {
	Mark               float64
	Name               string
	ManualRequired     bool
	ManualInstructions string // only set when ManualRequired
}

// Validate checks that the metadata is internally consistent
func (m MarkMetadata) Validate() error {
	if math.IsNaN(m.Mark) || math.IsInf(m.Mark, 0) {
		return fmt.Errorf("mark must be a finite number, got %v", m.Mark)
	}
	if m.Mark < 0 {
		return fmt.Errorf("mark cannot be negative, got %v", m.Mark)
	}
	if !m.ManualRequired && m.ManualInstructions != "" {
		return errors.New("manual marking instructions given but manual marking is not required")
	}
	return nil
}

// Attachment is a piece of evidence captured while a check ran.
// Path refers to a file the record does not own.
type Attachment struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	MediaType string `json:"mediaType"`
}

// Status labels used by reporters
const (
	LabelOK   = "ok"
	LabelFail = "fail"
	LabelTodo = "todo"
)

// ResultRecord is the immutable combination of a check's outcome, its marking
// metadata and the evidence captured for it.
type ResultRecord struct {
	ID          CheckID
	Status      CheckStatus
	Marking     *MarkMetadata
	Failure     string
	Attachments []Attachment
}

// MaxMark returns the mark available for the check
func (r ResultRecord) MaxMark() float64 {
	if r.Marking == nil {
		return 0
	}
	return r.Marking.Mark
}

// Mark returns the mark awarded automatically: the full mark on success, zero otherwise
func (r ResultRecord) Mark() float64 {
	if r.Status != CheckStatusSuccess {
		return 0
	}
	return r.MaxMark()
}

// Name returns the display name, falling back to the method name
func (r ResultRecord) Name() string {
	if r.Marking != nil && r.Marking.Name != "" {
		return r.Marking.Name
	}
	return r.ID.Method()
}

// IsUnmarked reports whether no marking metadata was found for the check
func (r ResultRecord) IsUnmarked() bool {
	return r.Marking == nil
}

// NeedsReview reports whether a human has to look at the check before the mark is final
func (r ResultRecord) NeedsReview() bool {
	return r.Status == CheckStatusAborted || r.IsUnmarked() || r.Marking.ManualRequired
}

// Label returns ok, fail or todo
func (r ResultRecord) Label() string {
	switch {
	case r.NeedsReview():
		return LabelTodo
	case r.Status == CheckStatusSuccess:
		return LabelOK
	default:
		return LabelFail
	}
}

// Notes returns the manual marking instructions, or the abort reason
func (r ResultRecord) Notes() string {
	if r.Marking != nil && r.Marking.ManualRequired {
		return r.Marking.ManualInstructions
	}
	if r.Status == CheckStatusAborted {
		return r.Failure
	}
	return ""
}
