package mcpclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStderrRing_BoundedAndOrdered(t *testing.T) {
	ring := newStderrRing(3)
	ring.Add("one")
	ring.Add("two")
	ring.Add("three")
	ring.Add("four")

	assert.Equal(t, "two | three | four", ring.String())
}

func TestStderrRing_EmptyIsEmptyString(t *testing.T) {
	ring := newStderrRing(3)
	assert.Equal(t, "", ring.String())
}

func TestAddStderrLine_NilTailIsNoop(t *testing.T) {
	assert.NotPanics(t, func() { AddStderrLine(nil, "line") })
}

func TestNewStderrTail_AccumulatesViaExportedHelper(t *testing.T) {
	tail := NewStderrTail()
	AddStderrLine(tail, "boom: connection refused")
	assert.Contains(t, tail.String(), "connection refused")
}
