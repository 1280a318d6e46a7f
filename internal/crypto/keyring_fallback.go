//go:build !darwin

package crypto

import (
	"errors"
	"fmt"
)

// fallbackKeyring is used where no system keychain is wired up. The key
// can only come from EnvKey, which envKeyring checks first.
type fallbackKeyring struct{}

func newPlatformKeyring() Keyring {
	return &fallbackKeyring{}
}

func (k *fallbackKeyring) GetKey() (string, error) {
	return "", fmt.Errorf("%s environment variable not set", EnvKey)
}

// SetKey tells the user where the key has to live on this platform
func (k *fallbackKeyring) SetKey(password string) error {
	if password == "" {
		return errors.New("password cannot be empty")
	}

	return fmt.Errorf("keyring not available on this platform: add %s=<password> to your environment or a .env file", EnvKey)
}

func (k *fallbackKeyring) DeleteKey() error {
	return fmt.Errorf("keyring not available on this platform: remove %s from your environment manually", EnvKey)
}

func (k *fallbackKeyring) IsAvailable() bool {
	return false
}
