package handlers

import (
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/mkowalcze/creditledger/internal/apperrors"
	"github.com/mkowalcze/creditledger/internal/handlers/render"
	"github.com/mkowalcze/creditledger/internal/logger"
	"github.com/mkowalcze/creditledger/internal/models"
)

type packageResponse struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Credits  int64   `json:"credits"`
	Price    float64 `json:"price"`
	IsActive bool    `json:"is_active"`
}

func toPackageResponse(p models.CreditPackage) packageResponse {
	price, _ := p.Price.Float64()
	return packageResponse{
		ID:       p.ID,
		Name:     p.Name,
		Credits:  p.Credits,
		Price:    price,
		IsActive: p.IsActive,
	}
}

func handleListPackages(catalog packageCatalog, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		packages, err := catalog.ListActive(r.Context())
		if err != nil {
			l.Error("Failed to list packages", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		resp := make([]packageResponse, 0, len(packages))
		for _, p := range packages {
			resp = append(resp, toPackageResponse(p))
		}

		render.JSON(w, resp)
	})
}

func handleAddPackage(catalog packageCatalog, l logger.Logger) http.Handler {
	type request struct {
		Name    string          `json:"name" validate:"required"`
		Credits int64           `json:"credits" validate:"required,gt=0"`
		Price   decimal.Decimal `json:"price" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		if !req.Price.IsPositive() {
			render.ServiceError(w, "Price must be positive", http.StatusUnprocessableEntity)
			return
		}

		pkg, err := catalog.Add(r.Context(), req.Name, req.Credits, req.Price)
		if err != nil {
			l.Error("Failed to add package", "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, toPackageResponse(pkg))
	})
}

func handleSetPackageActive(catalog packageCatalog, l logger.Logger) http.Handler {
	type request struct {
		Active *bool `json:"active" validate:"required"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		packageID, ok := pathID(r, "packageID")
		if !ok {
			render.ServiceError(w, "Invalid package id", http.StatusUnprocessableEntity)
			return
		}

		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		err = catalog.SetActive(r.Context(), packageID, *req.Active)

		switch {
		case err == nil:
			render.JSON(w, map[string]bool{"active": *req.Active})
		case errors.Is(err, apperrors.ErrPackageNotFound):
			render.ServiceError(w, "Package not found", http.StatusNotFound)
		default:
			l.Error("Failed to toggle package", "package_id", packageID, "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}
