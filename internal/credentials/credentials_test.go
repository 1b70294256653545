package credentials

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	values map[string]string
}

func (f *fakeStore) Resolve(key string) (string, error) {
	v, ok := f.values[key]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}
func (f *fakeStore) Set(key, value string) error {
	f.values[key] = value
	return nil
}
func (f *fakeStore) Remove(key string) error {
	delete(f.values, key)
	return nil
}

func TestIsIndirection(t *testing.T) {
	assert.True(t, IsIndirection("keychain:api-key"))
	assert.False(t, IsIndirection("plain-value"))
}

func TestResolveValue_LiteralPassesThrough(t *testing.T) {
	v, err := ResolveValue(&fakeStore{}, "plain-value")
	require.NoError(t, err)
	assert.Equal(t, "plain-value", v)
}

func TestResolveValue_IndirectionLooksUpStore(t *testing.T) {
	store := &fakeStore{values: map[string]string{"api-key": "secret123"}}
	v, err := ResolveValue(store, "keychain:api-key")
	require.NoError(t, err)
	assert.Equal(t, "secret123", v)
}

func TestResolveValue_EmptyKeyErrors(t *testing.T) {
	_, err := ResolveValue(&fakeStore{}, "keychain:")
	assert.Error(t, err)
}

func TestResolveValue_MissingKeyErrors(t *testing.T) {
	_, err := ResolveValue(&fakeStore{values: map[string]string{}}, "keychain:missing")
	assert.Error(t, err)
}

func TestResolveMap_MixesLiteralsAndIndirections(t *testing.T) {
	store := &fakeStore{values: map[string]string{"token": "abc"}}
	out, err := ResolveMap(store, map[string]string{
		"Authorization": "keychain:token",
		"X-Plain":       "value",
	})
	require.NoError(t, err)
	assert.Equal(t, "abc", out["Authorization"])
	assert.Equal(t, "value", out["X-Plain"])
}

func TestResolveMap_NilIsNil(t *testing.T) {
	out, err := ResolveMap(&fakeStore{}, nil)
	require.NoError(t, err)
	assert.Nil(t, out)
}
