package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/mkowalcze/creditledger/internal/apperrors"
	"github.com/mkowalcze/creditledger/internal/handlers/render"
	"github.com/mkowalcze/creditledger/internal/logger"
	"github.com/mkowalcze/creditledger/internal/service/ledger"
)

func handleGetBalance(ledgerService ledgerService, l logger.Logger) http.Handler {
	type response struct {
		UserID  int64 `json:"user_id"`
		Balance int64 `json:"balance"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := pathID(r, "userID")
		if !ok {
			badUserID(w)
			return
		}

		balance, err := ledgerService.GetBalance(r.Context(), userID)
		if err != nil {
			l.Error("Failed to get balance", "user_id", userID, "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, response{UserID: userID, Balance: balance})
	})
}

func handleCheckSufficient(ledgerService ledgerService, l logger.Logger) http.Handler {
	type response struct {
		Sufficient bool `json:"sufficient"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := pathID(r, "userID")
		if !ok {
			badUserID(w)
			return
		}

		needed, err := strconv.ParseInt(r.URL.Query().Get("amount"), 10, 64)
		if err != nil || needed < 0 {
			render.ServiceError(w, "Invalid amount", http.StatusUnprocessableEntity)
			return
		}

		sufficient, err := ledgerService.CheckSufficient(r.Context(), userID, needed)
		if err != nil {
			l.Error("Failed to check balance", "user_id", userID, "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, response{Sufficient: sufficient})
	})
}

type mutationResponse struct {
	Balance       int64  `json:"balance"`
	TransactionID int64  `json:"transaction_id,omitempty"`
	Kind          string `json:"kind,omitempty"`
	Replayed      bool   `json:"replayed,omitempty"`
}

func toMutationResponse(result ledger.Result) mutationResponse {
	return mutationResponse{
		Balance:       result.Balance,
		TransactionID: result.Transaction.ID,
		Kind:          result.Transaction.Kind,
		Replayed:      result.Replayed,
	}
}

func handleCredit(ledgerService ledgerService, l logger.Logger) http.Handler {
	type request struct {
		Amount         int64  `json:"amount" validate:"gte=0"`
		Description    string `json:"description"`
		IdempotencyKey string `json:"idempotency_key"`
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

		result, err := ledgerService.Credit(r.Context(), ledger.CreditParams{
			UserID:         userID,
			Amount:         req.Amount,
			Description:    req.Description,
			IdempotencyKey: req.IdempotencyKey,
		})
		if err != nil {
			l.Error("Failed to credit user", "user_id", userID, "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, toMutationResponse(result))
	})
}

func handleDebit(ledgerService ledgerService, l logger.Logger) http.Handler {
	type request struct {
		Amount         int64  `json:"amount" validate:"required,gt=0"`
		Description    string `json:"description"`
		Category       string `json:"category"`
		IdempotencyKey string `json:"idempotency_key"`
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

		result, err := ledgerService.Debit(r.Context(), ledger.DebitParams{
			UserID:         userID,
			Amount:         req.Amount,
			Description:    req.Description,
			Category:       req.Category,
			IdempotencyKey: req.IdempotencyKey,
		})

		switch {
		case err == nil:
			render.JSON(w, toMutationResponse(result))
		case errors.Is(err, apperrors.ErrInsufficientFunds):
			render.ServiceError(w, "Insufficient credits", http.StatusPaymentRequired)
		default:
			l.Error("Failed to debit user", "user_id", userID, "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleStats(ledgerService ledgerService, l logger.Logger) http.Handler {
	type transaction struct {
		Kind        string    `json:"kind"`
		Category    string    `json:"category,omitempty"`
		Amount      int64     `json:"amount"`
		Balance     int64     `json:"balance"`
		Description string    `json:"description"`
		CreatedAt   time.Time `json:"created_at"`
	}

	type response struct {
		Balance        int64         `json:"balance"`
		TotalPurchased int64         `json:"total_purchased"`
		TotalSpent     float64       `json:"total_spent"`
		LastPurchaseAt *time.Time    `json:"last_purchase_at,omitempty"`
		History        []transaction `json:"history"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := pathID(r, "userID")
		if !ok {
			badUserID(w)
			return
		}

		stats, err := ledgerService.Stats(r.Context(), userID)
		if err != nil {
			l.Error("Failed to get stats", "user_id", userID, "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		totalSpent, _ := stats.Account.TotalSpent.Float64()
		resp := response{
			Balance:        stats.Account.Balance,
			TotalPurchased: stats.Account.TotalPurchased,
			TotalSpent:     totalSpent,
			LastPurchaseAt: stats.Account.LastPurchaseAt,
			History:        make([]transaction, 0, len(stats.History)),
		}
		for _, t := range stats.History {
			resp.History = append(resp.History, transaction{
				Kind:        t.Kind,
				Category:    t.Category,
				Amount:      t.Amount,
				Balance:     t.BalanceAfter,
				Description: t.Description,
				CreatedAt:   t.CreatedAt,
			})
		}

		render.JSON(w, resp)
	})
}
