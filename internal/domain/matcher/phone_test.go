package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"+234 803 123 4567", "08031234567"},
		{"2348031234567", "08031234567"},
		{"0803-123-4567", "08031234567"},
		{"8031234567", "08031234567"},
		{"08031234567", "08031234567"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizePhone(tt.input), "input %q", tt.input)
	}
}

func TestMatchByPhone_NoNumbersInNarration(t *testing.T) {
	m := newTestMatcher(nil)

	hits := m.matchByPhone("TRF FROM JOHN DOE")

	assert.Empty(t, hits)
}

func TestMatchByPhone_UnknownNumberIsNoHit(t *testing.T) {
	m := newTestMatcher(nil)

	hits := m.matchByPhone("TRF 0805 555 1234")

	assert.Empty(t, hits)
}

func TestMatchByPhone_DuplicateFormatsCollapse(t *testing.T) {
	// The same number in two formats must not produce duplicate hits.
	m := newTestMatcher(nil)

	hits := m.matchByPhone("0803 123 4567 / +2348031234567")

	assert.Len(t, hits, 1)
	assert.Equal(t, "r1", hits[0].ResidentID)
}
