// Package types contains shared types used across the marking framework
package types

import (
	"fmt"
	"strings"
)

// IDSeparator separates the class and method parts of a check identity
const IDSeparator = "::"

// CheckID is the qualified name of a check, formatted as <class>::<method>
type CheckID string

// NewCheckID builds a CheckID from its class and method parts
func NewCheckID(class, method string) CheckID {
	return CheckID(class + IDSeparator + method)
}

// String implements the Stringer interface for CheckID
func (id CheckID) String() string {
	return string(id)
}

// Class returns the class part of the identity, or the whole identity if it has no method part
func (id CheckID) Class() string {
	class, _, _ := strings.Cut(string(id), IDSeparator)
	return class
}

// Method returns the method part of the identity, empty if there is none
func (id CheckID) Method() string {
	_, method, _ := strings.Cut(string(id), IDSeparator)
	return method
}

// Validate checks that the identity names a method on a class
func (id CheckID) Validate() error {
	class, method, ok := strings.Cut(string(id), IDSeparator)
	if !ok {
		return fmt.Errorf("check id %q has no method part", string(id))
	}
	if class == "" {
		return fmt.Errorf("check id %q has an empty class", string(id))
	}
	if method == "" {
		return fmt.Errorf("check id %q has an empty method", string(id))
	}
	return nil
}

// CheckStatus represents the outcome of a finished check
type CheckStatus string

const (
	CheckStatusSuccess CheckStatus = "SUCCESS"
	CheckStatusFailure CheckStatus = "FAILURE"
	CheckStatusAborted CheckStatus = "ABORTED"
)

// StatusFromRunner maps the runner's result vocabulary onto CheckStatus.
// Unknown values are treated as aborted so they are never silently counted as passes.
func StatusFromRunner(status string) CheckStatus {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "SUCCESSFUL", "SUCCESS", "PASS", "PASSED":
		return CheckStatusSuccess
	case "FAILED", "FAILURE", "FAIL", "ERROR":
		return CheckStatusFailure
	default:
		return CheckStatusAborted
	}
}

// Dialect identifies one of the supported check frameworks
type Dialect string

const (
	DialectJupiter Dialect = "jupiter"
	DialectVintage Dialect = "vintage"
)

// Reserved report file names, one per dialect
const (
	JupiterReportName = "TEST-junit-jupiter.xml"
	VintageReportName = "TEST-junit-vintage.xml"
)

// ReportName returns the reserved result file name for the dialect
func (d Dialect) ReportName() string {
	switch d {
	case DialectVintage:
		return VintageReportName
	default:
		return JupiterReportName
	}
}

// IsValid reports whether d is a supported dialect
func (d Dialect) IsValid() bool {
	return d == DialectJupiter || d == DialectVintage
}

func (d Dialect) String() string {
	return string(d)
}

// ParseDialect accepts the dialect names and the framework versions they stand for
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jupiter", "junit5", "5":
		return DialectJupiter, nil
	case "vintage", "junit4", "4":
		return DialectVintage, nil
	}
	return "", fmt.Errorf("unknown check dialect %q, must be one of: %s, %s", s, DialectJupiter, DialectVintage)
}
