package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/andy/invoicedesk/internal/draft"
	"github.com/andy/invoicedesk/internal/pricing"
)

type Config struct {
	// Database settings
	Database DatabaseConfig `yaml:"database"`

	// Invoice defaults
	Invoice InvoiceConfig `yaml:"invoice"`

	// Seller details printed on invoices
	Seller SellerConfig `yaml:"seller"`

	Log LogConfig `yaml:"log"`
}

type DatabaseConfig struct {
	Path string `yaml:"path" validate:"required"` // Path to SQLite database
}

type InvoiceConfig struct {
	DefaultDueDays           int             `yaml:"default_due_days" validate:"gte=0"`
	DefaultTaxRate           decimal.Decimal `yaml:"default_tax_rate"`                         // Percent (8.25 = 8.25%), range checked in Validate
	DefaultServiceChargeRate decimal.Decimal `yaml:"default_service_charge_rate"`              // Percent
	NumberPrefix             string          `yaml:"number_prefix" validate:"required,max=16"` // e.g. "INV"
	LowStockThreshold        int             `yaml:"low_stock_threshold" validate:"gte=0"`
}

type SellerConfig struct {
	Name    string `yaml:"name"`
	Email   string `yaml:"email" validate:"omitempty,email"`
	Address string `yaml:"address"`
	Phone   string `yaml:"phone"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=trace debug info warn error disabled"`
	Format string `yaml:"format" validate:"omitempty,oneof=console text json"`
}

// DefaultConfigPath returns ~/.config/invoicedesk/config.yaml
func DefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home dir unavailable
		return filepath.Join(".", ".config", "invoicedesk", "config.yaml")
	}
	return filepath.Join(homeDir, ".config", "invoicedesk", "config.yaml")
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	return &Config{
		Database: DatabaseConfig{
			Path: filepath.Join(homeDir, ".config", "invoicedesk", "invoicedesk.db"),
		},
		Invoice: InvoiceConfig{
			DefaultDueDays:           30,
			DefaultTaxRate:           decimal.Zero,
			DefaultServiceChargeRate: decimal.Zero,
			NumberPrefix:             "INV",
			LowStockThreshold:        5,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

// Load loads config from the given path, or returns defaults if file doesn't exist
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// LoadDefault loads from the default config path
func LoadDefault() (*Config, error) {
	return Load(DefaultConfigPath())
}

// Validate checks field ranges declared in the struct tags, plus the
// default rates, which must lie in [0,100]
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if err := pricing.ValidateRate("default_tax_rate", c.Invoice.DefaultTaxRate); err != nil {
		return err
	}
	return pricing.ValidateRate("default_service_charge_rate", c.Invoice.DefaultServiceChargeRate)
}

// Save writes the config to the given path
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// EnsureDirectories creates the database directory
func (c *Config) EnsureDirectories() error {
	return os.MkdirAll(filepath.Dir(c.Database.Path), 0755)
}

// DraftConfig converts the invoice defaults into draft manager settings
func (c *Config) DraftConfig() draft.Config {
	return draft.Config{
		DefaultTaxRate:           c.Invoice.DefaultTaxRate,
		DefaultServiceChargeRate: c.Invoice.DefaultServiceChargeRate,
		DueDays:                  c.Invoice.DefaultDueDays,
		NumberPrefix:             c.Invoice.NumberPrefix,
	}
}
