package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/mkowalcze/creditledger/internal/charts"
	"github.com/mkowalcze/creditledger/internal/handlers/render"
	"github.com/mkowalcze/creditledger/internal/logger"
)

// Forecast and breakdown windows default to the last 30 days, like the
// chat-bot UI does.
const defaultWindowDays = 30

func windowDays(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("days")
	if raw == "" {
		return defaultWindowDays, true
	}

	days, err := strconv.Atoi(raw)
	if err != nil || days <= 0 {
		return 0, false
	}
	return days, true
}

func handleForecast(analyticsService analyticsService, l logger.Logger) http.Handler {
	type response struct {
		CurrentBalance int64      `json:"current_balance"`
		AvgDailyUsage  float64    `json:"avg_daily_usage"`
		DaysLeft       *int       `json:"days_left,omitempty"`
		DepletionDate  *time.Time `json:"depletion_date,omitempty"`
		Empty          bool       `json:"empty,omitempty"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := pathID(r, "userID")
		if !ok {
			badUserID(w)
			return
		}

		days, ok := windowDays(r)
		if !ok {
			render.ServiceError(w, "Invalid window", http.StatusUnprocessableEntity)
			return
		}

		forecast, hasData, err := analyticsService.PredictDepletion(r.Context(), userID, days)

		switch {
		case err != nil:
			l.Error("Failed to predict depletion", "user_id", userID, "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		case !hasData:
			render.JSON(w, response{Empty: true})
		default:
			render.JSON(w, response{
				CurrentBalance: forecast.CurrentBalance,
				AvgDailyUsage:  forecast.AvgDailyUsage,
				DaysLeft:       forecast.DaysLeft,
				DepletionDate:  forecast.DepletionDate,
			})
		}
	})
}

func handleBreakdown(analyticsService analyticsService, l logger.Logger) http.Handler {
	type category struct {
		Category string `json:"category"`
		Label    string `json:"label"`
		Amount   int64  `json:"amount"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := pathID(r, "userID")
		if !ok {
			badUserID(w)
			return
		}

		days, ok := windowDays(r)
		if !ok {
			render.ServiceError(w, "Invalid window", http.StatusUnprocessableEntity)
			return
		}

		usage, err := analyticsService.UsageBreakdown(r.Context(), userID, days)
		if err != nil {
			l.Error("Failed to get usage breakdown", "user_id", userID, "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		resp := make([]category, 0, len(usage))
		for _, u := range usage {
			resp = append(resp, category{Category: u.Category, Label: u.Label, Amount: u.Amount})
		}

		render.JSON(w, resp)
	})
}

func handleUsageChart(analyticsService analyticsService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := pathID(r, "userID")
		if !ok {
			badUserID(w)
			return
		}

		days, ok := windowDays(r)
		if !ok {
			render.ServiceError(w, "Invalid window", http.StatusUnprocessableEntity)
			return
		}

		points, err := analyticsService.BalanceHistory(r.Context(), userID, days)
		if err != nil {
			l.Error("Failed to get balance history", "user_id", userID, "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		image, err := charts.BalanceHistoryPNG(points)
		if err != nil {
			l.Error("Failed to render usage chart", "user_id", userID, "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if image == nil {
			render.ServiceError(w, "Not enough data", http.StatusNotFound)
			return
		}

		render.PNG(w, image)
	})
}

func handleBreakdownChart(analyticsService analyticsService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := pathID(r, "userID")
		if !ok {
			badUserID(w)
			return
		}

		days, ok := windowDays(r)
		if !ok {
			render.ServiceError(w, "Invalid window", http.StatusUnprocessableEntity)
			return
		}

		usage, err := analyticsService.UsageBreakdown(r.Context(), userID, days)
		if err != nil {
			l.Error("Failed to get usage breakdown", "user_id", userID, "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		image, err := charts.UsageBreakdownPNG(usage)
		if err != nil {
			l.Error("Failed to render breakdown chart", "user_id", userID, "error", err)
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if image == nil {
			render.ServiceError(w, "Not enough data", http.StatusNotFound)
			return
		}

		render.PNG(w, image)
	})
}
