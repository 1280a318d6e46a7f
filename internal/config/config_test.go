package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Invoice.DefaultDueDays)
	assert.Equal(t, "INV", cfg.Invoice.NumberPrefix)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Invoice.DefaultTaxRate = decimal.RequireFromString("8.25")
	cfg.Invoice.DefaultServiceChargeRate = decimal.NewFromInt(5)
	cfg.Seller.Name = "Parts & Co"
	cfg.Seller.Email = "billing@parts.example"

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Invoice.DefaultTaxRate.Equal(loaded.Invoice.DefaultTaxRate), "tax rate %s", loaded.Invoice.DefaultTaxRate)
	assert.True(t, cfg.Invoice.DefaultServiceChargeRate.Equal(loaded.Invoice.DefaultServiceChargeRate))

	// decimals compare by value above; the rest must match exactly
	loaded.Invoice.DefaultTaxRate = cfg.Invoice.DefaultTaxRate
	loaded.Invoice.DefaultServiceChargeRate = cfg.Invoice.DefaultServiceChargeRate
	assert.Equal(t, cfg, loaded)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("invoice:\n  default_tax_rate: 10\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "10", cfg.Invoice.DefaultTaxRate.String())
	assert.Equal(t, "INV", cfg.Invoice.NumberPrefix)
	assert.Equal(t, 5, cfg.Invoice.LowStockThreshold)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"tax above 100", func(c *Config) { c.Invoice.DefaultTaxRate = decimal.NewFromInt(101) }},
		{"negative service charge", func(c *Config) { c.Invoice.DefaultServiceChargeRate = decimal.NewFromInt(-1) }},
		{"negative due days", func(c *Config) { c.Invoice.DefaultDueDays = -3 }},
		{"empty prefix", func(c *Config) { c.Invoice.NumberPrefix = "" }},
		{"bad seller email", func(c *Config) { c.Seller.Email = "not-an-email" }},
		{"unknown log level", func(c *Config) { c.Log.Level = "loud" }},
	}

	require.NoError(t, DefaultConfig().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDraftConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Invoice.DefaultTaxRate = decimal.RequireFromString("8.25")
	cfg.Invoice.NumberPrefix = "SO"

	dc := cfg.DraftConfig()
	assert.Equal(t, "8.25", dc.DefaultTaxRate.String())
	assert.True(t, dc.DefaultServiceChargeRate.IsZero())
	assert.Equal(t, 30, dc.DueDays)
	assert.Equal(t, "SO", dc.NumberPrefix)
}

func TestLoad_PreciseRatesFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "invoice:\n  default_tax_rate: 7.15\n  default_service_charge_rate: \"0.1\"\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "7.15", cfg.Invoice.DefaultTaxRate.String())
	assert.Equal(t, "0.1", cfg.DraftConfig().DefaultServiceChargeRate.String())
}

func TestLoad_RejectsOutOfRangeRate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("invoice:\n  default_tax_rate: 150\n"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}
