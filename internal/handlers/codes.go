package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/mkowalcze/creditledger/internal/apperrors"
	"github.com/mkowalcze/creditledger/internal/handlers/render"
	"github.com/mkowalcze/creditledger/internal/logger"
)

func handleRedeem(activationService activationService, l logger.Logger) http.Handler {
	type request struct {
		Code string `json:"code" validate:"required"`
	}

	type response struct {
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

		credits, err := activationService.Redeem(r.Context(), userID, req.Code)

		switch {
		case err == nil:
			render.JSON(w, response{Credits: credits})
		case errors.Is(err, apperrors.ErrCodeInvalidOrUsed):
			render.ServiceError(w, "Code invalid or already used", http.StatusNotFound)
		default:
			l.Error("Failed to redeem code", "user_id", userID, "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}

func handleGenerateCodes(activationService activationService, l logger.Logger) http.Handler {
	type request struct {
		Credits int64 `json:"credits" validate:"required,gt=0"`
		Count   int   `json:"count" validate:"required,gt=0"`
	}

	type response struct {
		Codes []string `json:"codes"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		codes, err := activationService.Generate(r.Context(), req.Credits, req.Count)
		if err != nil {
			l.Error("Failed to generate codes", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, response{Codes: codes})
	})
}

func handleCodeInfo(activationService activationService, l logger.Logger) http.Handler {
	type response struct {
		Code      string     `json:"code"`
		Credits   int64      `json:"credits"`
		IsUsed    bool       `json:"is_used"`
		UsedBy    *int64     `json:"used_by,omitempty"`
		UsedAt    *time.Time `json:"used_at,omitempty"`
		CreatedAt time.Time  `json:"created_at"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		code := r.PathValue("code")
		if code == "" {
			render.ServiceError(w, "Invalid code", http.StatusUnprocessableEntity)
			return
		}

		info, err := activationService.CodeInfo(r.Context(), code)

		switch {
		case err == nil:
			render.JSON(w, response{
				Code:      info.Code,
				Credits:   info.Credits,
				IsUsed:    info.IsUsed,
				UsedBy:    info.UsedBy,
				UsedAt:    info.UsedAt,
				CreatedAt: info.CreatedAt,
			})
		case errors.Is(err, apperrors.ErrCodeInvalidOrUsed):
			render.ServiceError(w, "Code not found", http.StatusNotFound)
		default:
			l.Error("Failed to get code info", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}
