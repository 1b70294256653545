//go:build !windows

package orphan

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLookup_SelfPIDResolvesExeArgsAndEnv(t *testing.T) {
	// /proc/<pid>/environ is a snapshot of the environment block the
	// process was exec'd with; it does not reliably reflect os.Setenv
	// calls made afterward, so this asserts against a variable the test
	// binary was already started with rather than one set mid-test.
	cand, ok := DefaultLookup(os.Getpid())
	require.True(t, ok)

	assert.NotEmpty(t, cand.Exe)
	assert.NotEmpty(t, cand.Args)
	if _, present := os.LookupEnv("PATH"); present {
		assert.Equal(t, os.Getenv("PATH"), cand.Env["PATH"])
	}
}

func TestDefaultLookup_NonexistentPIDIsNotOK(t *testing.T) {
	_, ok := DefaultLookup(999999999)
	assert.False(t, ok)
}

func TestReadProcEnviron_ParsesNULSeparatedPairs(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/environ"
	require.NoError(t, os.WriteFile(path, []byte("FOO=bar\x00BAZ=qux\x00"), 0o644))

	env := readProcEnviron(path)
	assert.Equal(t, "bar", env["FOO"])
	assert.Equal(t, "qux", env["BAZ"])
}

func TestReadProcList_ParsesNULSeparatedArgs(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/cmdline"
	require.NoError(t, os.WriteFile(path, []byte("/usr/bin/foo\x00--flag\x00value\x00"), 0o644))

	args := readProcList(path)
	assert.Equal(t, []string{"/usr/bin/foo", "--flag", "value"}, args)
}

func TestDefaultLookup_SelfExeIsAbsolutePath(t *testing.T) {
	cand, ok := DefaultLookup(os.Getpid())
	require.True(t, ok)
	assert.True(t, strings.Contains(cand.Exe, "/"), "expected an absolute path from /proc/<pid>/exe, got %q", cand.Exe)
}
