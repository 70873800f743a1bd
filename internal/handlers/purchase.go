package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/mkowalcze/creditledger/internal/apperrors"
	"github.com/mkowalcze/creditledger/internal/handlers/render"
	"github.com/mkowalcze/creditledger/internal/logger"
	"github.com/mkowalcze/creditledger/internal/service/ledger"
)

// Telegram-stars conversion: stars bought -> credits granted. Larger
// bundles carry a bonus.
var starsConversion = map[int64]int64{
	1:  10,
	5:  55,
	10: 120,
	25: 325,
	50: 700,
}

func handlePurchase(ledgerService ledgerService, l logger.Logger) http.Handler {
	type request struct {
		PackageID int64 `json:"package_id" validate:"required,gt=0"`
	}

	type response struct {
		Balance        int64   `json:"balance"`
		PackageName    string  `json:"package_name"`
		PackageCredits int64   `json:"package_credits"`
		PackagePrice   float64 `json:"package_price"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := pathID(r, "userID")
		if !ok {
			badUserID(w)
			return
		}

		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		result, pkg, err := ledgerService.Purchase(r.Context(), userID, req.PackageID)

		switch {
		case err == nil:
			price, _ := pkg.Price.Float64()
			render.JSON(w, response{
				Balance:        result.Balance,
				PackageName:    pkg.Name,
				PackageCredits: pkg.Credits,
				PackagePrice:   price,
			})
		case errors.Is(err, apperrors.ErrPackageNotFound):
			render.ServiceError(w, "Package not found", http.StatusNotFound)
		default:
			l.Error("Failed to purchase package", "user_id", userID, "package_id", req.PackageID, "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleSubscription(ledgerService ledgerService, l logger.Logger) http.Handler {
	type request struct {
		Credits int64           `json:"credits" validate:"required,gt=0"`
		Price   decimal.Decimal `json:"price"`
		Renewal bool            `json:"renewal"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := pathID(r, "userID")
		if !ok {
			badUserID(w)
			return
		}

		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		result, err := ledgerService.ApplySubscription(r.Context(), userID, req.Credits, req.Price, req.Renewal)
		if err != nil {
			l.Error("Failed to apply subscription", "user_id", userID, "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, toMutationResponse(result))
	})
}

func handleStarsTopUp(ledgerService ledgerService, l logger.Logger) http.Handler {
	type request struct {
		Stars int64 `json:"stars" validate:"required,gt=0"`
	}

	type response struct {
		Balance int64 `json:"balance"`
		Credits int64 `json:"credits"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := pathID(r, "userID")
		if !ok {
			badUserID(w)
			return
		}

		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		credits, ok := starsConversion[req.Stars]
		if !ok {
			render.ServiceError(w, "Unsupported stars amount", http.StatusUnprocessableEntity)
			return
		}

		result, err := ledgerService.Credit(r.Context(), ledger.CreditParams{
			UserID:      userID,
			Amount:      credits,
			Description: fmt.Sprintf("Top-up with %d Telegram stars", req.Stars),
		})
		if err != nil {
			l.Error("Failed to credit stars top-up", "user_id", userID, "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, response{Balance: result.Balance, Credits: credits})
	})
}
