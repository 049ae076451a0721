package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValid(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"0712345678", true},
		{"0112345678", true},
		{"+254712345678", true},
		{"+254112345678", true},
		{" 0712345678 ", true},
		{"0812345678", false},
		{"071234567", false},
		{"07123456789", false},
		{"254712345678", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Valid(tt.in))
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "+254712345678", Normalize("0712345678"))
	assert.Equal(t, "+254112345678", Normalize(" 0112345678"))
	assert.Equal(t, "+254712345678", Normalize("+254712345678"))
}
