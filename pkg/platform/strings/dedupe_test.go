package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHostList(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{"nil slice", nil, nil},
		{"empty slice", []string{}, []string{}},
		{
			name:     "trims and lowercases",
			input:    []string{"  NS1.SedoParking.com ", "ns2.sedoparking.com"},
			expected: []string{"ns1.sedoparking.com", "ns2.sedoparking.com"},
		},
		{
			name:     "drops repeats and blanks in order",
			input:    []string{"ns2.sedoparking.com", "", "NS2.sedoparking.com", "  ", "ns1.sedoparking.com"},
			expected: []string{"ns2.sedoparking.com", "ns1.sedoparking.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HostList(tt.input))
		})
	}
}

func TestSuffixList(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{"nil slice", nil, nil},
		{"adds missing dot", []string{"shop", ".click"}, []string{".shop", ".click"}},
		{"collapses case and dots", []string{".SHOP", "shop", "..shop"}, []string{".shop"}},
		{"drops bare dots", []string{".", " ", ".click"}, []string{".click"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SuffixList(tt.input))
		})
	}
}
