package app

import (
	"context"
	"fmt"
	"os"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/andy/invoicedesk/internal/config"
	"github.com/andy/invoicedesk/internal/crypto"
	"github.com/andy/invoicedesk/internal/db"
	"github.com/andy/invoicedesk/internal/obs"
	"github.com/andy/invoicedesk/internal/repository"
	"github.com/andy/invoicedesk/internal/service"
)

// App is the dependency injection container for all application components
type App struct {
	Config *config.Config
	DB     *db.DB
	Log    zerolog.Logger

	// Repositories
	CustomerRepo  repository.CustomerRepository
	ProjectRepo   repository.ProjectRepository
	QuotationRepo repository.QuotationRepository
	ProductRepo   repository.ProductRepository
	InvoiceRepo   repository.InvoiceRepository
	DraftRepo     repository.DraftRepository

	// Services
	DraftService   service.DraftService
	InvoiceService service.InvoiceService
	ReportService  service.ReportService
}

// New creates a new App instance, initializing all dependencies
// It handles:
// 1. Loading .env and config
// 2. Getting encryption key from keyring
// 3. Opening database
// 4. Running migrations
// 5. Creating repositories
// 6. Creating services
func New(ctx context.Context) (*App, error) {
	// A missing .env file is fine
	_ = godotenv.Load()

	cfg, err := config.LoadDefault()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return NewWithConfig(ctx, cfg)
}

// NewWithConfig creates an App with a provided config (useful for testing)
func NewWithConfig(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	logger := obs.NewLogger(os.Stderr, cfg.Log.Format, cfg.Log.Level)

	keyring := crypto.NewKeyring()

	password, err := keyring.GetKey()
	if err != nil {
		// No key exists, prompt user to set one
		fmt.Println("Setting up database encryption for the first time...")
		password, err = promptForPassword()
		if err != nil {
			return nil, fmt.Errorf("failed to set password: %w", err)
		}

		if err := keyring.SetKey(password); err != nil {
			return nil, fmt.Errorf("failed to store encryption key: %w", err)
		}
	}

	database, err := db.Open(cfg.Database.Path, password)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := database.RunMigrations(); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Debug().Str("path", cfg.Database.Path).Msg("database ready")

	customerRepo := repository.NewCustomerRepo(database)
	projectRepo := repository.NewProjectRepo(database)
	quotationRepo := repository.NewQuotationRepo(database)
	productRepo := repository.NewProductRepo(database)
	invoiceRepo := repository.NewInvoiceRepo(database)
	draftRepo := repository.NewDraftRepo(database)

	draftCfg := cfg.DraftConfig()
	draftService := service.NewDraftService(draftRepo, productRepo, customerRepo, projectRepo, quotationRepo, invoiceRepo, draftCfg, logger)
	invoiceService := service.NewInvoiceService(invoiceRepo, productRepo, customerRepo, projectRepo, quotationRepo, draftCfg, logger)
	reportService := service.NewReportService(invoiceRepo, productRepo, cfg.Invoice.LowStockThreshold)

	return &App{
		Config:         cfg,
		DB:             database,
		Log:            logger,
		CustomerRepo:   customerRepo,
		ProjectRepo:    projectRepo,
		QuotationRepo:  quotationRepo,
		ProductRepo:    productRepo,
		InvoiceRepo:    invoiceRepo,
		DraftRepo:      draftRepo,
		DraftService:   draftService,
		InvoiceService: invoiceService,
		ReportService:  reportService,
	}, nil
}

// Close cleanly shuts down the application
func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}

// promptForPassword prompts user for a new database password (first run)
// This should be called when keyring has no stored key
func promptForPassword() (string, error) {
	fmt.Println()
	fmt.Println("Your customers, stock and invoices will be encrypted with a password.")
	fmt.Println("This password will be stored securely in your system keyring.")
	fmt.Printf("(Without a keyring, set %s in the environment or a .env file.)\n", crypto.EnvKey)
	fmt.Println()
	fmt.Print("Enter a password for database encryption: ")

	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	if len(password) == 0 {
		return "", fmt.Errorf("password cannot be empty")
	}

	fmt.Print("Confirm password: ")
	confirm, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read confirmation: %w", err)
	}

	if string(password) != string(confirm) {
		return "", fmt.Errorf("passwords do not match")
	}

	fmt.Println()
	fmt.Println("✓ Database encryption configured successfully")
	fmt.Println()

	return string(password), nil
}

// MarkOverdue flags overdue invoices on startup so listings are current
func (a *App) MarkOverdue(ctx context.Context) error {
	_, err := a.InvoiceService.CheckOverdue(ctx)
	return err
}

// SaveConfig saves the current configuration to disk
func (a *App) SaveConfig() error {
	return a.Config.Save(config.DefaultConfigPath())
}
