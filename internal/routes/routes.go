package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/bookbucks/internal/catalog"
	"github.com/example/bookbucks/internal/config"
	"github.com/example/bookbucks/internal/fingerprint"
	"github.com/example/bookbucks/internal/handlers"
	"github.com/example/bookbucks/internal/identity"
	"github.com/example/bookbucks/internal/middleware"
	"github.com/example/bookbucks/internal/payments"
	"github.com/example/bookbucks/internal/services"
	"github.com/example/bookbucks/internal/store/postgres"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config) (*services.SessionManager, error) {
	st := postgres.New(db)
	library := catalog.NewLibrary()
	collector := fingerprint.NewCollector()
	identities := identity.NewBcryptStore(st)

	challenges := services.NewChallengeService(st, cfg.OTPTTL, cfg.OTPMaxAttempts, nil)
	sessions := services.NewSessionManager(st, cfg.SessionTTL, cfg.DeviceTrustTTL, nil)
	ledger := services.NewLedgerService(st, nil)
	auth := services.NewAuthService(challenges, sessions, st, identities, ledger, nil, cfg.SignupBonus, cfg.ReferralBonus)
	stepUp := services.NewStepUpService(challenges)
	reading := services.NewReadingService(library, ledger, services.ReadingPolicy{
		Timer:           cfg.ReadingTimer,
		PageReward:      cfg.PageReward,
		MinPointerMoves: cfg.MinPointerMoves,
		MinFocusSeconds: cfg.MinFocusSeconds,
		MaxActivityGap:  cfg.MaxActivityGap,
	}, nil)

	payout := payments.NewClient(payments.Config{
		BaseURL:  cfg.PayoutBaseURL,
		Username: cfg.PayoutUsername,
		Password: cfg.PayoutPassword,
		Enabled:  cfg.PayoutEnabled,
	})

	authHandler := handlers.NewAuthHandler(auth, collector, cfg)
	profileHandler := handlers.NewProfileHandler(st, ledger)
	readingHandler := handlers.NewReadingHandler(reading, library)
	walletHandler := handlers.NewWalletHandler(st, ledger, stepUp, payout, cfg)

	api := app.Group("/api")

	// Auth routes
	authGroup := api.Group("/auth")
	authGroup.Post("/signup", authHandler.Signup)
	authGroup.Post("/login", authHandler.Login)

	// Catalog (read-only, public)
	api.Get("/books", readingHandler.ListBooks)
	api.Get("/books/:bookID/pages/:page", readingHandler.GetPage)

	// Protected routes
	protected := api.Group("", middleware.AuthMiddleware(cfg.JWTSecret, sessions))

	protected.Post("/auth/logout", authHandler.Logout)

	protected.Get("/profile", profileHandler.GetProfile)
	protected.Put("/profile", profileHandler.UpdateProfile)
	protected.Get("/profile/transactions", profileHandler.ListTransactions)
	protected.Get("/profile/referrals", profileHandler.GetReferrals)

	readingGroup := protected.Group("/reading")
	readingGroup.Post("/:bookID/open", readingHandler.Open)
	readingGroup.Post("/start", readingHandler.Start)
	readingGroup.Post("/activity", readingHandler.RecordActivity)
	readingGroup.Get("/state", readingHandler.Tick)
	readingGroup.Post("/tick", readingHandler.Tick)
	readingGroup.Post("/claim", readingHandler.Claim)
	readingGroup.Post("/advance", readingHandler.Advance)
	readingGroup.Post("/previous", readingHandler.Previous)

	wallet := protected.Group("/wallet")
	wallet.Post("/withdraw/initiate", walletHandler.InitiateWithdrawal)
	wallet.Post("/withdraw", walletHandler.Withdraw)

	return sessions, nil
}
