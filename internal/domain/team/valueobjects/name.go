package valueobjects

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English, cases.NoLower)

// Name represents a team's display name value object
type Name struct {
	value string
}

// NewName creates a new Name value object with validation
func NewName(value string) (*Name, error) {
	normalized := strings.Join(strings.Fields(value), " ")

	if normalized == "" {
		return nil, fmt.Errorf("team name cannot be empty")
	}
	if len(normalized) < 2 {
		return nil, fmt.Errorf("team name must be at least 2 characters long")
	}
	if len(normalized) > 100 {
		return nil, fmt.Errorf("team name cannot exceed 100 characters")
	}

	return &Name{value: normalized}, nil
}

// String returns the string representation of the name
func (n *Name) String() string {
	return n.value
}

// Display returns the name title-cased for presentation
func (n *Name) Display() string {
	return titleCaser.String(n.value)
}

// Equals checks if two name objects are equal
func (n *Name) Equals(other *Name) bool {
	if n == nil || other == nil {
		return n == other
	}
	return strings.EqualFold(n.value, other.value)
}
