package skills

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/umputun/jobbridge/app/catalog"
)

func TestDetector_Detect(t *testing.T) {
	d := NewDetector(catalog.DefaultSkills())

	tests := []struct {
		name string
		text string
		want []string
	}{
		{"empty text", "", []string{}},
		{"blank text", "  \n\t", []string{}},
		{"no skills", "I like football", []string{}},
		{"single skill", "worked as a MASON for years", []string{"Mason"}},
		{"repeated skill reported once", "mason, mason and more mason work", []string{"Mason"}},
		{"vocabulary order", "helper in a warehouse doing packing", []string{"Packing", "Warehouse", "Helper"}},
		{"multi-word term", "Patient Care and nursing", []string{"Nursing", "Patient care"}},
		{"substring match", "electricians and constructions", []string{"Construction", "Electrician"}},
		{"fallback demo text", catalog.DefaultFallbackText, []string{"Mason", "Construction", "Logistics", "Helper"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, d.Detect(tt.text))
		})
	}
}

func TestNewDetector_Normalizes(t *testing.T) {
	d := NewDetector([]string{" Mason ", "mason", "", "Patient Care"})
	assert.Equal(t, []string{"mason", "patient care"}, d.Vocabulary())
	assert.Equal(t, []string{"Patient care"}, d.Detect("PATIENT CARE"))
}

func TestCapitalize(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", ""},
		{"mason", "Mason"},
		{"patient care", "Patient care"},
		{"ELECTRICIAN", "Electrician"},
		{"école", "École"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Capitalize(tt.in))
	}
}
