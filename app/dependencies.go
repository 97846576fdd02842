package app

import (
	"context"
	"fmt"

	"github.com/upb/leaddesk/config"
	"github.com/upb/leaddesk/repositories"
	"github.com/upb/leaddesk/repositories/postgres"
	"github.com/upb/leaddesk/services/intake"
	"github.com/upb/leaddesk/services/notification"
	"github.com/upb/leaddesk/services/verification"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Clients   repositories.ClientRepository
	Users     repositories.UserRepository
	Leads     repositories.LeadRepository
	TxManager repositories.TransactionManager

	// External services
	Verifier verification.Verifier
	Notifier notification.Sender

	// Domain services
	Intake *intake.Service
}

// NewDependencies opens the database and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	factory, err := postgres.NewRepositoryFactory(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps, err := NewDependenciesFromFactory(ctx, cfg, factory, logger)
	if err != nil {
		_ = factory.Close()
		return nil, err
	}
	return deps, nil
}

// NewDependenciesFromFactory wires dependencies over an existing repository factory
func NewDependenciesFromFactory(ctx context.Context, cfg *config.Config, factory *postgres.RepositoryFactory, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:      cfg,
		Logger:      logger,
		RepoFactory: factory,
		DB:          factory.GetDB(),
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps.initRepositories()
	deps.initVerification(cfg)

	if err := deps.initNotification(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize notification: %w", err)
	}

	deps.initServices()

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase checks connectivity and applies migrations when enabled
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	if err := d.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if cfg.Database.AutoMigrate {
		if err := d.RepoFactory.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
	}

	d.Logger.Info("database connection established",
		zap.String("connection", cfg.Database.LogString()),
		zap.Bool("auto_migrate", cfg.Database.AutoMigrate))

	return nil
}

// initRepositories initializes all repository instances
func (d *Dependencies) initRepositories() {
	repos := d.RepoFactory.NewRepositories()

	d.Clients = repos.Clients
	d.Users = repos.Users
	d.Leads = repos.Leads
	d.TxManager = d.RepoFactory.GetTransactionManager()

	d.Logger.Info("repositories initialized")
}

func (d *Dependencies) initVerification(cfg *config.Config) {
	d.Verifier = verification.NewTurnstileVerifier(verification.Config{
		SecretKey:   cfg.Turnstile.SecretKey,
		VerifyURL:   cfg.Turnstile.VerifyURL,
		HTTPTimeout: cfg.Turnstile.Timeout,
	})
}

// initNotification selects the mail provider
func (d *Dependencies) initNotification(ctx context.Context, cfg *config.Config) error {
	renderer := notification.NewRenderer(cfg.Mail.SubjectPrefix)

	switch cfg.Mail.Provider {
	case config.MailProviderSES:
		client, err := notification.NewSESClient(ctx, cfg.Mail.Region)
		if err != nil {
			return err
		}
		d.Notifier = notification.NewSESSender(client, cfg.Mail.From, renderer, d.Logger)
		d.Logger.Info("notification provider configured",
			zap.String("provider", cfg.Mail.Provider),
			zap.String("region", cfg.Mail.Region))
	case config.MailProviderLog:
		d.Notifier = notification.NewLogSender(renderer, d.Logger)
		d.Logger.Warn("notification provider is log only, emails will not be delivered")
	default:
		return fmt.Errorf("unknown mail provider %q", cfg.Mail.Provider)
	}
	return nil
}

func (d *Dependencies) initServices() {
	d.Intake = intake.NewService(
		&repositories.Repositories{Clients: d.Clients, Users: d.Users, Leads: d.Leads},
		d.TxManager,
		d.Verifier,
		d.Notifier,
		d.Logger.Named("intake"),
	)
}

// VerificationConfigured reports whether human verification can run
func (d *Dependencies) VerificationConfigured(ctx context.Context) error {
	if d.Config.Turnstile.SecretKey == "" {
		return verification.ErrMissingSecret
	}
	return nil
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
