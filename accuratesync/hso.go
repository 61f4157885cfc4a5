package accuratesync

import (
	"regexp"
	"strings"
)

// HSO correlation codes ("HSO/2024/V/123") ride inside free-text item notes
// and tie Sales Orders to the Purchase and Delivery Orders raised for them.

var hsoPattern = regexp.MustCompile(`(?i)HSO/[\w/]+`)

// ExtractHSONumber returns the first HSO code found in the notes, verbatim,
// or nil when there is none.
func ExtractHSONumber(notes string) *string {
	if notes == "" {
		return nil
	}
	m := hsoPattern.FindString(notes)
	if m == "" {
		return nil
	}
	return &m
}

// ContainsHSORef reports whether the notes reference the given HSO code,
// case-insensitively. Besides direct containment it accepts notes that carry
// the numeric part of the code together with the literal "HSO" somewhere
// else, since operators often retype codes without the prefix.
func ContainsHSORef(notes, hsoNumber string) bool {
	if notes == "" || hsoNumber == "" {
		return false
	}
	notesUpper := strings.ToUpper(notes)
	hsoUpper := strings.ToUpper(hsoNumber)
	if strings.Contains(notesUpper, hsoUpper) {
		return true
	}
	numberPart := strings.TrimPrefix(hsoUpper, "HSO/")
	return numberPart != "" &&
		strings.Contains(notesUpper, numberPart) &&
		strings.Contains(notesUpper, "HSO")
}
