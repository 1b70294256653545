//go:build !windows

package credentials

import "errors"

// ErrUnsupportedPlatform is returned by UnsupportedStore's methods. The OS
// credential store this supervisor integrates with (Windows Credential
// Manager, via github.com/danieljoos/wincred) has no equivalent wired on
// other platforms; `keychain:` indirections configured here fail closed
// rather than silently falling back to a plaintext store.
var ErrUnsupportedPlatform = errors.New("credentials: keychain indirection is not supported on this platform")

// UnsupportedStore is the Store used on platforms without a wired
// credential-manager integration.
type UnsupportedStore struct{}

func (UnsupportedStore) Resolve(key string) (string, error) { return "", ErrUnsupportedPlatform }
func (UnsupportedStore) Set(key, value string) error        { return ErrUnsupportedPlatform }
func (UnsupportedStore) Remove(key string) error             { return ErrUnsupportedPlatform }

// NewPlatformStore constructs the Store appropriate for the current OS.
func NewPlatformStore(prefix string) Store { return UnsupportedStore{} }
