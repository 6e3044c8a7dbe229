package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/wager_bank/internal/asset"
	"github.com/congo-pay/wager_bank/internal/auth"
	"github.com/congo-pay/wager_bank/internal/bank"
	"github.com/congo-pay/wager_bank/internal/config"
	"github.com/congo-pay/wager_bank/internal/funding"
	"github.com/congo-pay/wager_bank/internal/identity"
	"github.com/congo-pay/wager_bank/internal/ledger"
	"github.com/congo-pay/wager_bank/internal/lock"
	"github.com/congo-pay/wager_bank/internal/metrics"
	"github.com/congo-pay/wager_bank/internal/middleware"
	"github.com/congo-pay/wager_bank/internal/notification"
	"github.com/congo-pay/wager_bank/internal/payments"
	"github.com/congo-pay/wager_bank/internal/wager"
	"github.com/congo-pay/wager_bank/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes. DB and Cache
// may be nil in development, in which case in-memory backends are used.
type Deps struct {
	Cfg     config.Config
	DB      *pgxpool.Pool
	Cache   *redis.Client
	Events  notification.MessageWriter
	Metrics *metrics.Metrics
	Source  wager.RandomBit
	Logger  *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.Env)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.Env)
		}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New(nil)
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	app.Use(d.Metrics.Middleware())

	RegisterHealthRoutes(app, d)

	ctx := context.Background()
	var (
		ledgerBackend ledger.Ledger
		walletRepo    wallet.Repository
		identityRepo  identity.Repository
		assetRepo     asset.Repository
		bankRepo      bank.Repository
		roundRepo     wager.RoundRepository
	)
	if d.DB != nil {
		ledgerBackend = ledger.NewPostgresLedger(d.DB)
		walletRepo = wallet.NewPostgresRepository(d.DB)
		identityRepo = identity.NewPostgresRepository(d.DB)
		assetRepo = asset.NewPostgresRepository(d.DB)
		bankRepo = bank.NewPostgresRepository(d.DB)
		roundRepo = wager.NewPostgresRoundRepository(d.DB)
	} else {
		ledgerBackend = ledger.NewInMemory()
		walletRepo = wallet.NewMemoryRepository()
		identityRepo = identity.NewMemoryRepository()
		assetRepo = asset.NewMemoryRepository()
		bankRepo = bank.NewMemoryRepository()
		roundRepo = wager.NewMemoryRoundRepository()
	}

	notifiers := notification.Multi{notification.NewLoggerNotifier(d.Logger)}
	if d.Events != nil {
		notifiers = append(notifiers, notification.NewKafkaNotifier(d.Events))
	}

	// One locker guards banks and wallets for settlement, payments and funding.
	var locker lock.Locker = lock.NewKeyedMutex()
	if d.Cache != nil {
		locker = lock.NewRedisLocker(d.Cache, d.Cfg.BankLockTTL)
	}

	walletSvc := wallet.NewService(walletRepo, ledgerBackend)
	identitySvc := identity.NewService(identityRepo)
	authSvc := auth.NewService(d.Cfg, identityRepo)
	assetSvc := asset.NewService(assetRepo)
	bankSvc := bank.NewService(bankRepo, ledgerBackend, assetSvc, walletSvc, notifiers, d.Logger)
	wagerSvc := wager.NewService(wager.Dependencies{
		Banks:    bankSvc,
		Assets:   assetSvc,
		Wallets:  walletSvc,
		Ledger:   ledgerBackend,
		Rounds:   roundRepo,
		Locker:   locker,
		Source:   d.Source,
		Metrics:  d.Metrics,
		Notifier: notifiers,
		Logger:   d.Logger,
	})
	paymentSvc := payments.NewService(ledgerBackend, walletSvc, locker, notifiers, d.Logger)
	fundingSvc, err := funding.NewService(ctx, ledgerBackend, walletSvc, nil, locker, d.Cfg.FaucetEnabled, d.Logger)
	if err != nil {
		return err
	}

	provision := func(ctx context.Context, userID string) (string, error) {
		w, err := walletSvc.Create(ctx, userID)
		if err != nil {
			return "", err
		}
		return w.ID, nil
	}
	walletOf := func(ctx context.Context, ownerID string) (string, error) {
		w, err := walletSvc.GetByOwner(ctx, ownerID)
		if err != nil {
			return "", err
		}
		return w.ID, nil
	}

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterIdentityRoutes(api, identity.NewHandler(identitySvc, provision, d.Logger))

	requireAuth := middleware.JWTAuth(authSvc)
	RegisterAuthRoutes(api, auth.NewHandler(identitySvc, authSvc, walletOf), middleware.LoginRateLimit(d.Cache, 5), requireAuth)

	// Everything registered below requires a bearer token.
	protected := api.Group("", requireAuth, middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	RegisterProfileRoutes(protected, identitySvc, walletSvc)
	RegisterWalletRoutes(protected, wallet.NewHandler(walletSvc))
	RegisterFundingRoutes(protected, funding.NewHandler(fundingSvc))
	RegisterPaymentRoutes(protected, payments.NewHandler(paymentSvc))
	RegisterAssetRoutes(protected, asset.NewHandler(assetSvc))
	RegisterWagerRoutes(protected, bank.NewHandler(bankSvc), wager.NewHandler(wagerSvc))

	return nil
}
