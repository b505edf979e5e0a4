package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/moimpay/moim-backend/auth"
	"github.com/moimpay/moim-backend/config"
	"github.com/moimpay/moim-backend/handlers"
	"github.com/moimpay/moim-backend/middleware"
	"github.com/moimpay/moim-backend/oauth"
	"github.com/moimpay/moim-backend/repositories"
	"github.com/moimpay/moim-backend/repositories/postgres"
	"github.com/moimpay/moim-backend/services"
	"github.com/moimpay/moim-backend/token"
)

// Dependencies holds all application dependencies. This is the central
// wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Users         repositories.UserRepository
	RefreshTokens repositories.RefreshTokenRepository
	TxManager     repositories.TransactionManager

	// Domain services
	Codec           *token.Codec
	UserService     *services.UserService
	SessionService  *services.SessionService
	RefreshService  *services.RefreshService
	IdentityService *services.IdentityService

	// HTTP boundary
	AuthMiddleware *middleware.AuthMiddleware
	AuthHandler    *handlers.AuthHandler
	TokenHandler   *handlers.TokenHandler
	HealthHandler  *handlers.HealthHandler
	OAuthHandler   *auth.Handler
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := deps.initServices(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	deps.initHTTP(cfg)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase initializes the PostgreSQL connection and repositories
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	factory, err := postgres.NewRepositoryFactory(cfg, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}

	d.RepoFactory = factory
	d.DB = factory.GetDB()

	if err := d.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if err := d.DB.InitSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	repos := factory.NewRepositories()
	d.Users = repos.Users
	d.RefreshTokens = repos.RefreshTokens
	d.TxManager = factory.GetTransactionManager()

	d.Logger.Info("database connection established",
		zap.String("connection", cfg.Database.LogString()))

	return nil
}

// initServices wires the token codec and the domain services
func (d *Dependencies) initServices(cfg *config.Config) error {
	codec, err := token.NewCodec(cfg.JWT.Secret)
	if err != nil {
		return fmt.Errorf("failed to create token codec: %w", err)
	}
	d.Codec = codec

	d.UserService = services.NewUserService(d.Users, d.TxManager, d.Logger)
	d.SessionService = services.NewSessionService(codec, d.RefreshTokens, cfg.JWT, d.Logger)
	d.RefreshService = services.NewRefreshService(codec, d.Users, d.RefreshTokens, d.SessionService, d.Logger)
	d.IdentityService = services.NewIdentityService(d.Users, d.Logger)

	d.Logger.Info("services initialized")
	return nil
}

// initHTTP wires middleware and handlers
func (d *Dependencies) initHTTP(cfg *config.Config) {
	d.AuthMiddleware = middleware.NewAuthMiddleware(d.Codec, d.Logger)
	d.AuthHandler = handlers.NewAuthHandler(d.UserService, d.SessionService, d.Logger)
	d.TokenHandler = handlers.NewTokenHandler(d.RefreshService, d.Logger)
	d.HealthHandler = handlers.NewHealthHandler(d.DB.DB, d.Logger)

	if cfg.OAuthConfigured() {
		d.OAuthHandler = auth.NewHandler(
			cfg,
			oauth.NewCodeExchanger(cfg.OAuth),
			oauth.NewValidator(cfg.OAuth),
			d.IdentityService,
			d.SessionService,
			d.Logger,
		)
		d.Logger.Info("oauth login enabled",
			zap.String("provider", cfg.OAuth.Provider))
	} else {
		d.Logger.Warn("oauth not configured, social login disabled")
	}
}

// Close releases all held resources
func (d *Dependencies) Close() error {
	if d.RepoFactory != nil {
		return d.RepoFactory.Close()
	}
	return nil
}
