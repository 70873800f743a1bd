package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/mkowalcze/creditledger/internal/handlers/middleware"
	"github.com/mkowalcze/creditledger/internal/handlers/render"
	"github.com/mkowalcze/creditledger/internal/logger"
	"github.com/mkowalcze/creditledger/internal/models"
	"github.com/mkowalcze/creditledger/internal/service/ledger"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func NewRouter(
	ledgerService ledgerService,
	activationService activationService,
	analyticsService analyticsService,
	catalog packageCatalog,
	metricsHandler http.Handler,
	logger logger.Logger,
) http.Handler {
	users := http.NewServeMux()

	users.Handle("GET /{userID}/balance", handleGetBalance(ledgerService, logger))
	users.Handle("GET /{userID}/balance/check", handleCheckSufficient(ledgerService, logger))
	users.Handle("POST /{userID}/credit", handleCredit(ledgerService, logger))
	users.Handle("POST /{userID}/debit", handleDebit(ledgerService, logger))
	users.Handle("GET /{userID}/stats", handleStats(ledgerService, logger))

	users.Handle("POST /{userID}/purchase", handlePurchase(ledgerService, logger))
	users.Handle("POST /{userID}/subscription", handleSubscription(ledgerService, logger))
	users.Handle("POST /{userID}/stars", handleStarsTopUp(ledgerService, logger))
	users.Handle("POST /{userID}/redeem", handleRedeem(activationService, logger))

	users.Handle("GET /{userID}/analytics/forecast", handleForecast(analyticsService, logger))
	users.Handle("GET /{userID}/analytics/breakdown", handleBreakdown(analyticsService, logger))
	users.Handle("GET /{userID}/analytics/charts/usage", handleUsageChart(analyticsService, logger))
	users.Handle("GET /{userID}/analytics/charts/breakdown", handleBreakdownChart(analyticsService, logger))

	root := http.NewServeMux()
	root.Handle("/api/users/", http.StripPrefix("/api/users", users))

	root.Handle("GET /api/packages", handleListPackages(catalog, logger))
	root.Handle("POST /api/packages", handleAddPackage(catalog, logger))
	root.Handle("POST /api/packages/{packageID}/active", handleSetPackageActive(catalog, logger))
	root.Handle("POST /api/codes/generate", handleGenerateCodes(activationService, logger))
	root.Handle("GET /api/codes/{code}", handleCodeInfo(activationService, logger))

	root.Handle("GET /metrics", metricsHandler)

	handler := chain(root,
		middleware.RequestIDMiddleware(),
		middleware.LoggerMiddleware(logger),
	)

	return handler
}

// pathID extracts a positive integer path segment.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

type ledgerService interface {
	// Balance reads lazily create the account with zero credits.
	GetBalance(ctx context.Context, userID int64) (int64, error)

	// Pure read; funds are not reserved, a later Debit may still fail
	CheckSufficient(ctx context.Context, userID int64, amountNeeded int64) (bool, error)

	Credit(ctx context.Context, p ledger.CreditParams) (ledger.Result, error)

	// Has to return apperrors.ErrInsufficientFunds when the balance can't cover the amount
	Debit(ctx context.Context, p ledger.DebitParams) (ledger.Result, error)

	// Has to return apperrors.ErrPackageNotFound for unknown or inactive packages
	Purchase(ctx context.Context, userID int64, packageID int64) (ledger.Result, models.CreditPackage, error)

	ApplySubscription(ctx context.Context, userID int64, credits int64, price decimal.Decimal, renewal bool) (ledger.Result, error)

	Stats(ctx context.Context, userID int64) (models.CreditStats, error)
}

type activationService interface {
	// Has to return apperrors.ErrCodeInvalidOrUsed for unknown or spent codes
	Redeem(ctx context.Context, userID int64, code string) (int64, error)

	Generate(ctx context.Context, credits int64, count int) ([]string, error)

	CodeInfo(ctx context.Context, code string) (models.ActivationCode, error)
}

type analyticsService interface {
	// ok is false when the window holds no usage to project from
	PredictDepletion(ctx context.Context, userID int64, windowDays int) (models.DepletionForecast, bool, error)

	UsageBreakdown(ctx context.Context, userID int64, windowDays int) ([]models.CategoryUsage, error)

	BalanceHistory(ctx context.Context, userID int64, windowDays int) ([]models.BalancePoint, error)
}

type packageCatalog interface {
	ListActive(ctx context.Context) ([]models.CreditPackage, error)
	Add(ctx context.Context, name string, credits int64, price decimal.Decimal) (models.CreditPackage, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

// badUserID is the shared reply for malformed user ids.
func badUserID(w http.ResponseWriter) {
	render.ServiceError(w, "Invalid user id", http.StatusUnprocessableEntity)
}
