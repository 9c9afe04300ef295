// Package skills detects known skills in free text by case-insensitive substring matching
package skills

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Detector matches text against a fixed vocabulary
type Detector struct {
	vocabulary []string // lower-case terms, in output order
}

// NewDetector makes a detector for the vocabulary. Terms are trimmed and lower-cased,
// empty and repeated terms dropped.
func NewDetector(vocabulary []string) *Detector {
	res := &Detector{vocabulary: make([]string, 0, len(vocabulary))}
	seen := make(map[string]bool, len(vocabulary))
	for _, v := range vocabulary {
		term := strings.ToLower(strings.TrimSpace(v))
		if term == "" || seen[term] {
			continue
		}
		seen[term] = true
		res.vocabulary = append(res.vocabulary, term)
	}
	return res
}

// Detect returns capitalized skills found in text, in vocabulary order, each at most once
func (d *Detector) Detect(text string) []string {
	res := []string{}
	if strings.TrimSpace(text) == "" {
		return res
	}
	lower := strings.ToLower(text)
	for _, term := range d.vocabulary {
		if strings.Contains(lower, term) {
			res = append(res, Capitalize(term))
		}
	}
	return res
}

// Vocabulary returns a copy of the normalized vocabulary
func (d *Detector) Vocabulary() []string {
	res := make([]string, len(d.vocabulary))
	copy(res, d.vocabulary)
	return res
}

// Capitalize upper-cases the first letter and lower-cases the rest, "patient CARE" -> "Patient care"
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
