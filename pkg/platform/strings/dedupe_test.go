package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{"nil slice", nil, nil},
		{"empty slice", []string{}, []string{}},
		{"study IDs keep first-seen order", []string{"study-b", "study-a", "study-b"}, []string{"study-b", "study-a"}},
		{"whitespace variants collapse", []string{" study-a", "study-a ", "\tstudy-a\n"}, []string{"study-a"}},
		{"only blanks", []string{"", "  ", "\t"}, []string{}},
		{"case is significant", []string{"Study-A", "study-a"}, []string{"Study-A", "study-a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}
