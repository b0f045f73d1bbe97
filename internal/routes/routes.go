package routes

import (
	"net/http"

	"github.com/fileward/fileward/internal/app"
	"github.com/fileward/fileward/internal/handler"
	"github.com/fileward/fileward/internal/middleware"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	share := handler.NewShareHandler(app.ShareService, app.AccessService, app.DownloadService, app.TokenService)
	webauthn := handler.NewWebAuthnHandler(app.AccessService)
	download := handler.NewDownloadHandler(app.DownloadService, app.Storage)
	upload := handler.NewUploadHandler(app.QuotaService)
	file := handler.NewFileHandler(app.FileService)

	mux := http.NewServeMux()

	// ============================================================================
	// PUBLIC ROUTES
	// ============================================================================

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Self-contained token minting for deployments without an external
	// identity provider. Development only.
	if app.Cfg.IsDevelopment() {
		authHandler := handler.NewAuthHandler(app.JWTProvider, app.UserRepo)
		mux.HandleFunc("POST /api/auth/token", authHandler.MintToken)
	}

	// Share resolution and access ceremonies. Credential-proving endpoints
	// sit behind per-IP rate limiting.
	rateLimiter := middleware.RateLimitCredentials()

	mux.HandleFunc("POST /api/shares/{id}/info", share.Info)
	mux.HandleFunc("POST /api/shares/{id}/verify-pin", rateLimiter(share.VerifyPin))
	mux.HandleFunc("POST /api/shares/{id}/webauthn/start-registration", webauthn.StartRegistration)
	mux.HandleFunc("POST /api/shares/{id}/webauthn/finish-registration", middleware.RequireAuth(webauthn.FinishRegistration))
	mux.HandleFunc("POST /api/shares/{id}/webauthn/start-assertion", webauthn.StartAssertion)
	mux.HandleFunc("POST /api/shares/{id}/webauthn/finish-assertion", rateLimiter(middleware.RequireAuth(webauthn.FinishAssertion)))
	mux.HandleFunc("POST /api/shares/{id}/bind-account", middleware.RequireAuth(share.BindAccount))
	mux.HandleFunc("POST /api/shares/{id}/download-url", share.IssueDownloadURL)

	// Token redemption; the token itself is the credential
	mux.HandleFunc("GET /api/download", download.Stream)

	// ============================================================================
	// OWNER ROUTES (bearer auth)
	// ============================================================================

	mux.HandleFunc("POST /api/shares", middleware.RequireAuth(share.Create))
	mux.HandleFunc("GET /api/shares", middleware.RequireAuth(share.List))
	mux.HandleFunc("DELETE /api/shares/{id}", middleware.RequireAuth(share.Revoke))

	mux.HandleFunc("POST /api/files", middleware.RequireAuth(file.Create))
	mux.HandleFunc("GET /api/files", middleware.RequireAuth(file.List))
	mux.HandleFunc("DELETE /api/files/{id}", middleware.RequireAuth(file.Revoke))

	mux.HandleFunc("POST /api/uploads/validate", middleware.RequireAuth(upload.Validate))
	mux.HandleFunc("POST /api/uploads/confirm", middleware.RequireAuth(upload.Confirm))
	mux.HandleFunc("GET /api/usage", middleware.RequireAuth(upload.Usage))

	mux.HandleFunc("GET /api/received", middleware.RequireAuth(share.Received))

	// Global middleware - executed in order (top to bottom)
	handler := middleware.Chain(
		mux,
		middleware.RequestLogging,
		middleware.AuthMiddleware(app.AuthProvider),
	)

	return handler
}
