package app

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/fileward/fileward/internal/auth"
	"github.com/fileward/fileward/internal/config"
	"github.com/fileward/fileward/internal/db"
	"github.com/fileward/fileward/internal/repository"
	"github.com/fileward/fileward/internal/service"
	"github.com/fileward/fileward/internal/storage"
	"github.com/fileward/fileward/internal/webauthn"
)

type App struct {
	Cfg             *config.Config
	DB              *sqlx.DB
	Storage         storage.Storage
	AuthProvider    auth.Provider
	JWTProvider     *auth.JWTProvider
	UserRepo        repository.UserRepository
	TokenService    *service.TokenService
	ShareService    *service.ShareService
	AccessService   *service.AccessService
	DownloadService *service.DownloadService
	QuotaService    *service.QuotaService
	FileService     *service.FileService
	AuditService    *service.AuditService
}

func New(cfg *config.Config) (*App, error) {
	// Initialize database
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %v", err)
	}

	// Run database migrations
	err = db.RunMigrations(database.DB, cfg.DBDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %v", err)
	}

	// Repositories
	userRepository := repository.NewUserRepository(database)
	fileRepository := repository.NewFileRepository(database)
	shareRepository := repository.NewShareRepository(database)
	deviceRepository := repository.NewDeviceRepository(database)
	challengeRepository := repository.NewChallengeRepository(database)
	downloadTokenRepository := repository.NewDownloadTokenRepository(database)
	uploadValidationRepository := repository.NewUploadValidationRepository(database)
	usageRepository := repository.NewUsageRepository(database)
	accessLogRepository := repository.NewAccessLogRepository(database)

	// Storage
	objectStorage, err := storage.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %v", err)
	}

	// Collaborators
	authProvider := auth.NewJWTProvider(cfg.JWTSecret, cfg.AuthTokenExpiry)
	webauthnVerifier := webauthn.NewVerifier()

	// Services
	tokenService := service.NewTokenService(cfg.JWTSecret)
	auditService := service.NewAuditService(accessLogRepository)
	shareService := service.NewShareService(shareRepository, fileRepository, usageRepository, auditService)
	accessService := service.NewAccessService(
		shareService,
		shareRepository,
		deviceRepository,
		challengeRepository,
		tokenService,
		webauthnVerifier,
		auditService,
		cfg.WebAuthnOrigin,
		cfg.PinSessionExpiry,
		cfg.DeviceSessionExpiry,
	)
	downloadService := service.NewDownloadService(accessService, downloadTokenRepository, fileRepository, tokenService, auditService)
	quotaService := service.NewQuotaService(fileRepository, uploadValidationRepository, usageRepository, objectStorage, tokenService, cfg.StorageQuotaBytes)
	fileService := service.NewFileService(fileRepository, objectStorage)

	return &App{
		Cfg:             cfg,
		DB:              database,
		Storage:         objectStorage,
		AuthProvider:    authProvider,
		JWTProvider:     authProvider,
		UserRepo:        userRepository,
		TokenService:    tokenService,
		ShareService:    shareService,
		AccessService:   accessService,
		DownloadService: downloadService,
		QuotaService:    quotaService,
		FileService:     fileService,
		AuditService:    auditService,
	}, nil
}

func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
