package api

import (
	"database/sql"
	"net/http"

	"github.com/Sankethhn/Farmlink/internal/store"
)

// AnalyticsHandler handles the farmer dashboard endpoint.
type AnalyticsHandler struct {
	DB *sql.DB
}

// Dashboard handles GET /analytics/dashboard (farmer only).
func (h *AnalyticsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	dashboard, err := store.GetDashboard(r.Context(), h.DB, claims.UserID)
	if err != nil {
		storeError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, dashboard)
}
