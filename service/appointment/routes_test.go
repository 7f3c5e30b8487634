package appointment

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/clinicore/hmis-server/cmd/models"
	"github.com/clinicore/hmis-server/cmd/utils"
	"github.com/clinicore/hmis-server/service/user"
	"github.com/gorilla/mux"
)

// fakeNotifier records every event the handlers emit.
type fakeNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	kind string
	appt *models.Appointment
}

func (f *fakeNotifier) AppointmentBooked(a *models.Appointment) { f.record("booked", a) }

func (f *fakeNotifier) AppointmentUpdated(a *models.Appointment) { f.record("updated", a) }

func (f *fakeNotifier) AppointmentCancelled(a *models.Appointment) { f.record("cancelled", a) }

func (f *fakeNotifier) record(kind string, a *models.Appointment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{kind: kind, appt: a})
}

func (f *fakeNotifier) last(t *testing.T) recordedEvent {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.events) == 0 {
		t.Fatal("expected at least one event")
	}
	return f.events[len(f.events)-1]
}

type testEnv struct {
	router   *mux.Router
	store    *MemoryStore
	notifier *fakeNotifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("SECRET_KEY", "test-secret")

	doctor := &models.User{
		ID:        2,
		FullName:  "Dr. Jane",
		Email:     "drjane@clinic.com",
		Role:      models.RoleDoctor,
		Specialty: "Dermatology",
		Slots: []models.Slot{
			{Date: time.Now(), Time: "09:00 AM"},
			{Date: time.Now(), Time: "11:30 AM"},
		},
	}

	directory := user.NewMemoryDirectory()
	if err := directory.Create(doctor); err != nil {
		t.Fatalf("seeding directory: %v", err)
	}

	store := NewMemoryStore()
	store.AddDoctor(doctor)

	notifier := &fakeNotifier{}
	router := mux.NewRouter()
	NewHandler(store, directory, notifier, nil).RegisterRoutes(router)

	return &testEnv{router: router, store: store, notifier: notifier}
}

func (e *testEnv) do(t *testing.T, method, target, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) book(t *testing.T, slotTime string) models.Appointment {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/book", "", map[string]interface{}{
		"patientName":  "John Doe",
		"patientPhone": "+256 700 000 001",
		"doctorId":     2,
		"date":         "2026-03-01",
		"time":         slotTime,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 booking, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Success     bool               `json:"success"`
		Appointment models.Appointment `json:"appointment"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding booking response: %v", err)
	}
	if !resp.Success {
		t.Fatal("expected success flag")
	}
	return resp.Appointment
}

func mintToken(t *testing.T, role string) string {
	t.Helper()
	token, err := utils.GenerateToken(99, role, time.Hour)
	if err != nil {
		t.Fatalf("minting token: %v", err)
	}
	return token
}

func TestBookEndpoint(t *testing.T) {
	env := newTestEnv(t)

	appt := env.book(t, "09:00 AM")

	if appt.Status != models.StatusBooked {
		t.Errorf("expected status booked, got %s", appt.Status)
	}
	if appt.Billing.Amount != models.ConsultationFee || appt.Billing.Status != models.BillingUnpaid {
		t.Errorf("expected default billing, got %+v", appt.Billing)
	}
	if appt.DoctorName != "Dr. Jane" {
		t.Errorf("expected doctor name resolved, got %q", appt.DoctorName)
	}

	event := env.notifier.last(t)
	if event.kind != "booked" {
		t.Errorf("expected booked event, got %s", event.kind)
	}
	if event.appt == nil || event.appt.ID != appt.ID {
		t.Error("expected the event to carry the created record")
	}
}

func TestBookEndpoint_SlotTaken(t *testing.T) {
	env := newTestEnv(t)
	env.book(t, "09:00 AM")

	rec := env.do(t, http.MethodPost, "/book", "", map[string]interface{}{
		"patientName": "Sarah Connor",
		"doctorId":    2,
		"time":        "09:00 AM",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestBookEndpoint_UnknownDoctor(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/book", "", map[string]interface{}{
		"patientName": "John Doe",
		"doctorId":    42,
		"time":        "09:00 AM",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestBookEndpoint_MissingFields(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/book", "", map[string]interface{}{
		"doctorId": 2,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestClinicalEndpoint_MergesAcrossRequests(t *testing.T) {
	env := newTestEnv(t)
	appt := env.book(t, "09:00 AM")
	token := mintToken(t, models.RoleDoctor)
	target := "/appointments/" + itoa(appt.ID) + "/clinical"

	rec := env.do(t, http.MethodPut, target, token, map[string]interface{}{
		"consultationNotes": "Recurring rash on both arms.",
		"vitals":            map[string]string{"bp": "120/80", "temp": "37.2"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPut, target, token, map[string]interface{}{
		"diagnosis": "Atopic Dermatitis",
		"status":    models.StatusCompleted,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Appointment models.Appointment `json:"appointment"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Appointment.ConsultationNotes != "Recurring rash on both arms." {
		t.Errorf("expected notes preserved, got %q", resp.Appointment.ConsultationNotes)
	}
	if resp.Appointment.Vitals.BP != "120/80" {
		t.Errorf("expected vitals preserved, got %+v", resp.Appointment.Vitals)
	}
	if resp.Appointment.Diagnosis != "Atopic Dermatitis" {
		t.Errorf("expected diagnosis set, got %q", resp.Appointment.Diagnosis)
	}
	if resp.Appointment.Status != models.StatusCompleted {
		t.Errorf("expected status completed, got %s", resp.Appointment.Status)
	}

	event := env.notifier.last(t)
	if event.kind != "updated" || event.appt == nil || event.appt.Diagnosis != "Atopic Dermatitis" {
		t.Error("expected an updated event carrying the full record")
	}
}

func TestClinicalEndpoint_InvalidStatus(t *testing.T) {
	env := newTestEnv(t)
	appt := env.book(t, "09:00 AM")
	token := mintToken(t, models.RoleDoctor)

	rec := env.do(t, http.MethodPut, "/appointments/"+itoa(appt.ID)+"/clinical", token,
		map[string]interface{}{"status": "confirmed"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestClinicalEndpoint_AuthRequired(t *testing.T) {
	env := newTestEnv(t)
	appt := env.book(t, "09:00 AM")
	target := "/appointments/" + itoa(appt.ID) + "/clinical"

	rec := env.do(t, http.MethodPut, target, "", map[string]interface{}{"diagnosis": "Flu"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPut, target, mintToken(t, models.RolePatient),
		map[string]interface{}{"diagnosis": "Flu"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for patient token, got %d", rec.Code)
	}
}

func TestBillingEndpoint_MarkPaid(t *testing.T) {
	env := newTestEnv(t)
	appt := env.book(t, "09:00 AM")
	token := mintToken(t, models.RoleAdmin)
	target := "/appointments/" + itoa(appt.ID) + "/billing"

	rec := env.do(t, http.MethodPut, target, token, map[string]interface{}{"status": models.BillingPaid})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp["success"] != true {
		t.Errorf("expected success body, got %v", resp)
	}

	event := env.notifier.last(t)
	if event.kind != "updated" {
		t.Errorf("expected updated event, got %s", event.kind)
	}
	if event.appt == nil || event.appt.Billing.Status != models.BillingPaid {
		t.Error("expected the event to carry the updated billing state")
	}
}

func TestBillingEndpoint_PaidToUnpaidRejected(t *testing.T) {
	env := newTestEnv(t)
	appt := env.book(t, "09:00 AM")
	token := mintToken(t, models.RoleAdmin)
	target := "/appointments/" + itoa(appt.ID) + "/billing"

	if rec := env.do(t, http.MethodPut, target, token,
		map[string]interface{}{"status": models.BillingPaid}); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 marking paid, got %d", rec.Code)
	}

	rec := env.do(t, http.MethodPut, target, token, map[string]interface{}{"status": models.BillingUnpaid})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 reverting to unpaid, got %d", rec.Code)
	}
}

func TestBillingEndpoint_AdminOnly(t *testing.T) {
	env := newTestEnv(t)
	appt := env.book(t, "09:00 AM")

	rec := env.do(t, http.MethodPut, "/appointments/"+itoa(appt.ID)+"/billing",
		mintToken(t, models.RoleDoctor), map[string]interface{}{"status": models.BillingPaid})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for doctor token, got %d", rec.Code)
	}
}

func TestCancelEndpoint_ReleasesSlot(t *testing.T) {
	env := newTestEnv(t)
	appt := env.book(t, "09:00 AM")

	rec := env.do(t, http.MethodPost, "/appointments/"+itoa(appt.ID)+"/cancel", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	event := env.notifier.last(t)
	if event.kind != "cancelled" || event.appt == nil || event.appt.Status != models.StatusCancelled {
		t.Error("expected a cancelled event carrying the record")
	}

	// Slot is free again.
	env.book(t, "09:00 AM")
}

func TestCancelEndpoint_CompletedRejected(t *testing.T) {
	env := newTestEnv(t)
	appt := env.book(t, "09:00 AM")

	status := models.StatusCompleted
	if _, err := env.store.UpdateClinical(appt.ID, ClinicalUpdate{Status: &status}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec := env.do(t, http.MethodPost, "/appointments/"+itoa(appt.ID)+"/cancel", "", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestGetAppointments(t *testing.T) {
	env := newTestEnv(t)
	env.book(t, "09:00 AM")
	env.book(t, "11:30 AM")

	rec := env.do(t, http.MethodGet, "/appointments", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var all []models.Appointment
	if err := json.NewDecoder(rec.Body).Decode(&all); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 appointments, got %d", len(all))
	}
}

func TestGetAppointment_NotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/appointments/99", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestSeedEndpoint_ResetsAppointments(t *testing.T) {
	env := newTestEnv(t)
	env.book(t, "09:00 AM")

	rec := env.do(t, http.MethodPost, "/seed", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/seed", mintToken(t, models.RoleAdmin), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp["message"] != "Data reset" {
		t.Errorf("unexpected reset message: %q", resp["message"])
	}

	rec = env.do(t, http.MethodGet, "/appointments", "", nil)
	var all []models.Appointment
	if err := json.NewDecoder(rec.Body).Decode(&all); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("expected no appointments after reset, got %d", len(all))
	}
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
