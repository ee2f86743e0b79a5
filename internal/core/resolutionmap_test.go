package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolutionMapFindExactMatch(t *testing.T) {
	m := NewResolutionMap(map[string]string{"pkg-a/pkg-c": "1.0.0"})
	target, globPath, ok := m.Find("pkg-c", []string{"pkg-a"})
	assert.True(t, ok)
	assert.Equal(t, "1.0.0", target)
	assert.Equal(t, "pkg-a/pkg-c", globPath)
}

func TestResolutionMapFindGlobStar(t *testing.T) {
	m := NewResolutionMap(map[string]string{"**/pkg-c": "1.0.0"})
	_, _, ok := m.Find("pkg-c", []string{"pkg-a", "pkg-b"})
	assert.True(t, ok)

	_, _, okRoot := m.Find("pkg-c", nil)
	assert.True(t, okRoot)
}

func TestResolutionMapFindNoMatch(t *testing.T) {
	m := NewResolutionMap(map[string]string{"pkg-a/pkg-c": "1.0.0"})
	_, _, ok := m.Find("pkg-c", []string{"pkg-b"})
	assert.False(t, ok)
}

func TestResolutionMapSpecificityPrefersNarrowestMatch(t *testing.T) {
	m := NewResolutionMap(map[string]string{
		"**/pkg-c":    "1.0.0",
		"pkg-a/pkg-c": "2.0.0",
	})
	target, _, ok := m.Find("pkg-c", []string{"pkg-a"})
	assert.True(t, ok)
	assert.Equal(t, "2.0.0", target)
}

func TestResolutionMapDelayQueue(t *testing.T) {
	m := NewResolutionMap(nil)
	m.QueueDelayed(DelayedPin{Pattern: "a@^1.0.0", Target: "1.0.0"})
	m.QueueDelayed(DelayedPin{Pattern: "b@^1.0.0", Target: "1.0.0"})
	pending := m.DrainDelayed()
	assert.Len(t, pending, 2)
	assert.Empty(t, m.DrainDelayed())
}
