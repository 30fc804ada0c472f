package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiff(t *testing.T) {
	oldState := map[string]any{"notes": "a", "payment_method": "cash", "gone": 1}
	newState := map[string]any{"notes": "b", "payment_method": "cash", "added": true}

	got := Diff(oldState, newState)

	assert.Equal(t, map[string]any{
		"notes": map[string]any{"old": "a", "new": "b"},
		"gone":  map[string]any{"old": 1, "new": nil},
		"added": map[string]any{"old": nil, "new": true},
	}, got)
}

func TestDiff_NoChange(t *testing.T) {
	state := map[string]any{"total_amount": "12.50"}
	assert.Empty(t, Diff(state, map[string]any{"total_amount": "12.50"}))
}
