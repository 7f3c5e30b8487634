package appointment

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/clinicore/hmis-server/cmd/models"
	"github.com/clinicore/hmis-server/cmd/utils"
	"github.com/clinicore/hmis-server/service/mailer"
	"github.com/clinicore/hmis-server/service/user"
	"github.com/gorilla/mux"
)

// Notifier receives one event per mutation and fans it out to connected
// dashboards. Implemented by the websocket hub.
type Notifier interface {
	AppointmentBooked(*models.Appointment)
	AppointmentUpdated(*models.Appointment)
	AppointmentCancelled(*models.Appointment)
}

// Pusher delivers mobile push notifications. Optional.
type Pusher interface {
	PushToUser(userID uint, title, body string, data map[string]interface{})
}

type Handler struct {
	store     Store
	directory user.Directory
	notifier  Notifier
	pusher    Pusher
}

func NewHandler(store Store, directory user.Directory, notifier Notifier, pusher Pusher) *Handler {
	return &Handler{
		store:     store,
		directory: directory,
		notifier:  notifier,
		pusher:    pusher,
	}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/book", h.BookAppointment).Methods("POST")
	router.HandleFunc("/appointments", h.GetAllAppointments).Methods("GET")
	router.HandleFunc("/appointments/{id}", h.GetAppointment).Methods("GET")
	router.HandleFunc("/appointments/{id}/clinical",
		utils.RequireRole(h.UpdateClinical, models.RoleDoctor, models.RoleAdmin)).Methods("PUT")
	router.HandleFunc("/appointments/{id}/billing",
		utils.RequireRole(h.UpdateBilling, models.RoleAdmin)).Methods("PUT")
	router.HandleFunc("/appointments/{id}/cancel", h.CancelAppointment).Methods("POST")
	router.HandleFunc("/seed",
		utils.RequireRole(h.ResetAppointments, models.RoleAdmin)).Methods("POST")
}

func (h *Handler) BookAppointment(w http.ResponseWriter, r *http.Request) {
	var bookingRequest struct {
		PatientName  string `json:"patientName"`
		PatientPhone string `json:"patientPhone"`
		DoctorID     uint   `json:"doctorId"`
		Date         string `json:"date"`
		Time         string `json:"time"`
	}

	if err := json.NewDecoder(r.Body).Decode(&bookingRequest); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if bookingRequest.PatientName == "" || bookingRequest.DoctorID == 0 || bookingRequest.Time == "" {
		http.Error(w, "Missing required booking fields", http.StatusBadRequest)
		return
	}

	date, err := parseDate(bookingRequest.Date)
	if err != nil {
		http.Error(w, "Invalid date", http.StatusBadRequest)
		return
	}

	doctor, err := h.directory.FindByID(bookingRequest.DoctorID)
	if err != nil || !doctor.IsDoctor() {
		http.Error(w, "Doctor not found", http.StatusNotFound)
		return
	}

	appt, err := h.store.Book(BookingRequest{
		PatientName:  bookingRequest.PatientName,
		PatientPhone: bookingRequest.PatientPhone,
		DoctorID:     bookingRequest.DoctorID,
		Date:         date,
		Time:         bookingRequest.Time,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrDoctorNotFound), errors.Is(err, ErrSlotUnavailable):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, ErrSlotTaken):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			log.Printf("error booking appointment: %v", err)
			http.Error(w, "Error creating appointment", http.StatusInternalServerError)
		}
		return
	}

	h.notifier.AppointmentBooked(appt)
	h.notifyDoctor(doctor, appt)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":     true,
		"appointment": appt,
	})
}

func (h *Handler) GetAllAppointments(w http.ResponseWriter, r *http.Request) {
	appointments, err := h.store.ListAll()
	if err != nil {
		http.Error(w, "Error retrieving appointments", http.StatusInternalServerError)
		return
	}
	if appointments == nil {
		appointments = []models.Appointment{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(appointments)
}

func (h *Handler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid appointment ID", http.StatusBadRequest)
		return
	}

	appt, err := h.store.FindByID(id)
	if err != nil {
		http.Error(w, "Appointment not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(appt)
}

func (h *Handler) UpdateClinical(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid appointment ID", http.StatusBadRequest)
		return
	}

	var payload struct {
		ConsultationNotes *string                `json:"consultationNotes"`
		Diagnosis         *string                `json:"diagnosis"`
		Vitals            *models.Vitals         `json:"vitals"`
		Prescriptions     *[]models.Prescription `json:"prescriptions"`
		Labs              *[]models.Lab          `json:"labs"`
		Status            *string                `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	appt, err := h.store.UpdateClinical(id, ClinicalUpdate{
		ConsultationNotes: payload.ConsultationNotes,
		Diagnosis:         payload.Diagnosis,
		Vitals:            payload.Vitals,
		Prescriptions:     payload.Prescriptions,
		Labs:              payload.Labs,
		Status:            payload.Status,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			http.Error(w, "Appointment not found", http.StatusNotFound)
		case errors.Is(err, ErrInvalidStatus):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			log.Printf("error updating clinical record %d: %v", id, err)
			http.Error(w, "Error updating appointment", http.StatusInternalServerError)
		}
		return
	}

	h.notifier.AppointmentUpdated(appt)
	h.notifyPatient(appt, "Appointment updated", "Your clinical record has been updated.")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":     true,
		"appointment": appt,
	})
}

func (h *Handler) UpdateBilling(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid appointment ID", http.StatusBadRequest)
		return
	}

	var payload struct {
		Amount *float64 `json:"amount"`
		Status *string  `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	appt, err := h.store.UpdateBilling(id, BillingUpdate{
		Amount: payload.Amount,
		Status: payload.Status,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			http.Error(w, "Appointment not found", http.StatusNotFound)
		case errors.Is(err, ErrBillingReverted), errors.Is(err, ErrInvalidStatus):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			log.Printf("error updating billing for %d: %v", id, err)
			http.Error(w, "Error updating billing", http.StatusInternalServerError)
		}
		return
	}

	// The event carries the full record so observers need not guess what
	// changed before re-fetching.
	h.notifier.AppointmentUpdated(appt)
	h.notifyPatient(appt, "Billing updated",
		fmt.Sprintf("Your invoice is now %s.", appt.Billing.Status))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
	})
}

func (h *Handler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.Error(w, "Invalid appointment ID", http.StatusBadRequest)
		return
	}

	appt, err := h.store.Cancel(id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			http.Error(w, "Appointment not found", http.StatusNotFound)
		case errors.Is(err, ErrNotCancellable):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			log.Printf("error cancelling appointment %d: %v", id, err)
			http.Error(w, "Error cancelling appointment", http.StatusInternalServerError)
		}
		return
	}

	h.notifier.AppointmentCancelled(appt)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":     true,
		"appointment": appt,
	})
}

// ResetAppointments clears the appointment collection. Accounts and their
// consumed slots are left alone.
func (h *Handler) ResetAppointments(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Reset(); err != nil {
		http.Error(w, "Error resetting appointments", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Data reset",
	})
}

func (h *Handler) notifyDoctor(doctor *models.User, appt *models.Appointment) {
	if h.pusher != nil {
		h.pusher.PushToUser(doctor.ID, "New appointment",
			fmt.Sprintf("%s booked %s at %s.", appt.PatientName, appt.Time, appt.Date.Format("2006-01-02")),
			map[string]interface{}{"appointmentId": appt.ID})
	}
	go func() {
		if err := mailer.SendBookingNotice(doctor.Email, appt); err != nil {
			log.Printf("error sending booking notice to %s: %v", doctor.Email, err)
		}
	}()
}

// notifyPatient resolves the patient account by phone; walk-in patients
// without an account are skipped.
func (h *Handler) notifyPatient(appt *models.Appointment, title, body string) {
	if h.pusher == nil || appt.PatientPhone == "" {
		return
	}
	patient, err := h.directory.FindByPhone(appt.PatientPhone)
	if err != nil {
		return
	}
	h.pusher.PushToUser(patient.ID, title, body,
		map[string]interface{}{"appointmentId": appt.ID})
}

func pathID(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	return uint(id), err
}

func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Now(), nil
	}
	if date, err := time.Parse(time.RFC3339, value); err == nil {
		return date, nil
	}
	return time.Parse("2006-01-02", value)
}
