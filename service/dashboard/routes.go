package dashboard

import (
	"encoding/json"
	"net/http"

	"github.com/clinicore/hmis-server/cmd/models"
	"github.com/clinicore/hmis-server/cmd/utils"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type DashboardHandler struct {
	db *gorm.DB
}

func NewDashboardHandler(db *gorm.DB) *DashboardHandler {
	return &DashboardHandler{db: db}
}

type DashboardStats struct {
	TotalDoctors      int64   `json:"totalDoctors"`
	TotalPatients     int64   `json:"totalPatients"`
	TotalAppointments int64   `json:"totalAppointments"`
	BookedCount       int64   `json:"bookedCount"`
	CompletedCount    int64   `json:"completedCount"`
	CancelledCount    int64   `json:"cancelledCount"`
	PaidRevenue       float64 `json:"paidRevenue"`
	OutstandingAmount float64 `json:"outstandingAmount"`
}

func (h *DashboardHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/stats",
		utils.RequireRole(h.GetDashboardStats, models.RoleAdmin)).Methods("GET")
}

func (h *DashboardHandler) GetDashboardStats(w http.ResponseWriter, r *http.Request) {
	var stats DashboardStats

	h.db.Model(&models.User{}).Where("role = ?", models.RoleDoctor).Count(&stats.TotalDoctors)
	h.db.Model(&models.User{}).Where("role = ?", models.RolePatient).Count(&stats.TotalPatients)
	h.db.Model(&models.Appointment{}).Count(&stats.TotalAppointments)
	h.db.Model(&models.Appointment{}).Where("status = ?", models.StatusBooked).Count(&stats.BookedCount)
	h.db.Model(&models.Appointment{}).Where("status = ?", models.StatusCompleted).Count(&stats.CompletedCount)
	h.db.Model(&models.Appointment{}).Where("status = ?", models.StatusCancelled).Count(&stats.CancelledCount)

	h.db.Model(&models.Appointment{}).
		Where("billing_status = ?", models.BillingPaid).
		Select("COALESCE(SUM(billing_amount), 0)").Scan(&stats.PaidRevenue)
	h.db.Model(&models.Appointment{}).
		Where("billing_status = ? AND status <> ?", models.BillingUnpaid, models.StatusCancelled).
		Select("COALESCE(SUM(billing_amount), 0)").Scan(&stats.OutstandingAmount)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}
