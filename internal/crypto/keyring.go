package crypto

import "os"

// Keyring provides secure key storage abstraction
type Keyring interface {
	GetKey() (string, error)
	SetKey(password string) error
	DeleteKey() error
	IsAvailable() bool
}

const (
	ServiceName = "invoicedesk"
	KeyName     = "db-encryption-key"

	// EnvKey overrides whatever the platform keyring holds. A .env file in
	// the working directory is loaded into the environment at startup.
	EnvKey = "INVOICEDESK_DB_KEY"
)

// NewKeyring returns the platform keyring behind an environment override
func NewKeyring() Keyring {
	return &envKeyring{next: newPlatformKeyring()}
}

type envKeyring struct {
	next Keyring
}

func (k *envKeyring) GetKey() (string, error) {
	if key := os.Getenv(EnvKey); key != "" {
		return key, nil
	}
	return k.next.GetKey()
}

func (k *envKeyring) SetKey(password string) error {
	return k.next.SetKey(password)
}

func (k *envKeyring) DeleteKey() error {
	return k.next.DeleteKey()
}

func (k *envKeyring) IsAvailable() bool {
	return os.Getenv(EnvKey) != "" || k.next.IsAvailable()
}
