// Package credentials resolves `keychain:<key>` indirections in server
// config (headers, env) against the OS credential store, so secrets never
// need to sit in mcp_config.json in plaintext.
package credentials

import (
	"fmt"
	"strings"
)

const keychainPrefix = "keychain:"

// Store is the credential-store capability the rest of the supervisor
// depends on. Resolve fetches a named secret; Set stores one and Remove
// deletes one.
type Store interface {
	Resolve(key string) (string, error)
	Set(key, value string) error
	Remove(key string) error
}

// IsIndirection reports whether value is a `keychain:<key>` reference
// rather than a literal value.
func IsIndirection(value string) bool {
	return strings.HasPrefix(value, keychainPrefix)
}

// keyOf extracts <key> from a `keychain:<key>` reference.
func keyOf(value string) string {
	return strings.TrimPrefix(value, keychainPrefix)
}

// ResolveValue returns value unchanged unless it is a keychain indirection,
// in which case it looks the key up in store. Used by the Transport
// Launcher and the OAuth2 token injector when materializing headers/env
// for a server about to start.
func ResolveValue(store Store, value string) (string, error) {
	if !IsIndirection(value) {
		return value, nil
	}
	key := keyOf(value)
	if key == "" {
		return "", fmt.Errorf("credentials: empty key in %q", value)
	}
	secret, err := store.Resolve(key)
	if err != nil {
		return "", fmt.Errorf("credentials: resolving %q: %w", value, err)
	}
	return secret, nil
}

// ResolveMap resolves every value in m that is a keychain indirection,
// returning a new map; entries that are plain literals are copied as-is.
func ResolveMap(store Store, m map[string]string) (map[string]string, error) {
	if m == nil {
		return nil, nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		resolved, err := ResolveValue(store, v)
		if err != nil {
			return nil, err
		}
		out[k] = resolved
	}
	return out, nil
}
