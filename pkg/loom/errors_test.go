package loom

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunError_MessageCarriesNodeFailures(t *testing.T) {
	err := &RunError{
		RunID: "r1",
		Failed: []*NodeError{
			{NodeID: "fetch", Kind: KindCustomCode, Attempts: 3, Err: errors.New("connection refused")},
			{NodeID: "rank", Kind: KindLLM, Attempts: 1, Err: errors.New("model overloaded")},
		},
	}

	msg := err.Error()
	assert.Contains(t, msg, "r1")
	assert.Contains(t, msg, "fetch")
	assert.Contains(t, msg, "connection refused")
	assert.Contains(t, msg, "rank")
	assert.Contains(t, msg, "model overloaded")
}

func TestRunError_UnwrapReachesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := &RunError{
		RunID:  "r2",
		Failed: []*NodeError{{NodeID: "save", Kind: KindStorage, Attempts: 1, Err: cause}},
	}
	assert.ErrorIs(t, err, cause)

	var ne *NodeError
	assert.ErrorAs(t, err, &ne)
	assert.Equal(t, "save", ne.NodeID)
}
