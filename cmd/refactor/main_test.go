package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	refactorerrors "github.com/standardbeagle/lci-refactor/internal/errors"
)

func TestExitCodeFor(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"io error exits 2", refactorerrors.New(refactorerrors.KindIO, "op", "disk full"), 2},
		{"commit failed exits 2", refactorerrors.New(refactorerrors.KindCommitFailed, "op", "stale"), 2},
		{"symbol not found exits 1", refactorerrors.New(refactorerrors.KindSymbolNotFound, "op", "missing"), 1},
		{"invalid name exits 1", refactorerrors.New(refactorerrors.KindInvalidName, "op", "bad"), 1},
		{"unrecognized error exits 2", errors.New("boom"), 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, exitCodeFor(tc.err))
		})
	}
}
