//go:build windows

package credentials

import (
	"fmt"

	"github.com/danieljoos/wincred"
)

// WinCredStore backs Store with the Windows Credential Manager, prefixing
// every key so the supervisor's entries are easy to find and do not
// collide with unrelated applications' credentials.
type WinCredStore struct {
	Prefix string
}

func (w WinCredStore) targetName(key string) string {
	prefix := w.Prefix
	if prefix == "" {
		prefix = "mcp-supervisor"
	}
	return prefix + ":" + key
}

// Resolve implements Store.
func (w WinCredStore) Resolve(key string) (string, error) {
	cred, err := wincred.GetGenericCredential(w.targetName(key))
	if err != nil {
		return "", fmt.Errorf("credential %q not found in Windows Credential Manager: %w", key, err)
	}
	return string(cred.CredentialBlob), nil
}

// Set implements Store.
func (w WinCredStore) Set(key, value string) error {
	cred := wincred.NewGenericCredential(w.targetName(key))
	cred.CredentialBlob = []byte(value)
	cred.Persist = wincred.PersistLocalMachine
	return cred.Write()
}

// Remove implements Store.
func (w WinCredStore) Remove(key string) error {
	cred, err := wincred.GetGenericCredential(w.targetName(key))
	if err != nil {
		return nil
	}
	return cred.Delete()
}

// NewPlatformStore constructs the Store appropriate for the current OS.
func NewPlatformStore(prefix string) Store { return WinCredStore{Prefix: prefix} }
