package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReduceHighestSatisfying(t *testing.T) {
	versions := []string{"1.0.0", "1.1.0", "2.0.0"}
	got, ok := Reduce(versions, "^1.0.0", false)
	assert.True(t, ok)
	assert.Equal(t, "1.1.0", got)
}

func TestReduceLatestAlias(t *testing.T) {
	versions := []string{"1.0.0", "1.1.0", "2.0.0"}
	got, ok := Reduce(versions, "latest", false)
	assert.True(t, ok)
	assert.Equal(t, "2.0.0", got)
}

func TestReduceNoneSatisfies(t *testing.T) {
	versions := []string{"1.0.0", "1.1.0"}
	_, ok := Reduce(versions, "^3.0.0", false)
	assert.False(t, ok)
}

func TestReduceEmptyVersionList(t *testing.T) {
	_, ok := Reduce(nil, "^1.0.0", false)
	assert.False(t, ok)
}

func TestSatisfies(t *testing.T) {
	assert.True(t, Satisfies("1.0.0", "^1.0.0", false))
	assert.False(t, Satisfies("1.1.0", "^1.2.0", false))
}

func TestLooseSemverAcceptsLenientForms(t *testing.T) {
	assert.True(t, ValidVersion("1.2", true))
	assert.True(t, ValidVersion("01.2.3", true))
	assert.False(t, ValidVersion("1.2", false))
}

func TestSortVersionsAscending(t *testing.T) {
	versions := []string{"2.0.0", "1.0.0", "1.5.0"}
	SortVersionsAscending(versions, false)
	assert.Equal(t, []string{"1.0.0", "1.5.0", "2.0.0"}, versions)
}

func TestValidRange(t *testing.T) {
	assert.True(t, ValidRange("^1.0.0"))
	assert.False(t, ValidRange("not-a-range!!"))
}
