package cmd

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_ConnectionRefusedIsOffline(t *testing.T) {
	ce := classify(errors.New("contacting supervisord: dial tcp: connection refused"))
	assert.Equal(t, errorKindOffline, ce.kind)
	assert.NotEmpty(t, ce.hint)
}

func TestClassify_NoSuchServerIsNotFound(t *testing.T) {
	ce := classify(errors.New("supervisord returned 400 Bad Request: not_found: web-search: no such server"))
	assert.Equal(t, errorKindNotFound, ce.kind)
}

func TestClassify_UnrecognizedMessageIsOther(t *testing.T) {
	ce := classify(errors.New("something unexpected happened"))
	assert.Equal(t, errorKindOther, ce.kind)
	assert.Empty(t, ce.hint)
}

func TestClassify_NilIsZeroValue(t *testing.T) {
	ce := classify(nil)
	assert.Equal(t, classifiedError{}, ce)
}
