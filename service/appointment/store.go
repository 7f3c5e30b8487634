package appointment

import (
	"errors"
	"time"

	"github.com/clinicore/hmis-server/cmd/models"
)

var (
	ErrNotFound        = errors.New("appointment not found")
	ErrDoctorNotFound  = errors.New("doctor not found")
	ErrSlotUnavailable = errors.New("no such time slot")
	ErrSlotTaken       = errors.New("time slot already booked")
	ErrBillingReverted = errors.New("paid invoices cannot be reverted to unpaid")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrNotCancellable  = errors.New("only booked appointments can be cancelled")
)

type BookingRequest struct {
	PatientName  string
	PatientPhone string
	DoctorID     uint
	Date         time.Time
	Time         string
}

// ClinicalUpdate carries the merge payload for one encounter. Nil fields are
// omitted and leave the stored value untouched; set fields replace the stored
// value wholesale, including the list and vitals sub-records.
type ClinicalUpdate struct {
	ConsultationNotes *string
	Diagnosis         *string
	Vitals            *models.Vitals
	Prescriptions     *[]models.Prescription
	Labs              *[]models.Lab
	Status            *string
}

type BillingUpdate struct {
	Amount *float64
	Status *string
}

// Store owns the appointment collection. Book claims the doctor's slot and
// inserts the appointment as one atomic unit, so a slot can be consumed by at
// most one live appointment.
type Store interface {
	Book(req BookingRequest) (*models.Appointment, error)
	FindByID(id uint) (*models.Appointment, error)
	UpdateClinical(id uint, upd ClinicalUpdate) (*models.Appointment, error)
	UpdateBilling(id uint, upd BillingUpdate) (*models.Appointment, error)
	Cancel(id uint) (*models.Appointment, error)
	ListAll() ([]models.Appointment, error)
	Reset() error
}

func validStatus(status string) bool {
	switch status {
	case models.StatusBooked, models.StatusCompleted:
		return true
	}
	return false
}

func applyClinical(appt *models.Appointment, upd ClinicalUpdate) error {
	if upd.Status != nil && !validStatus(*upd.Status) {
		return ErrInvalidStatus
	}
	if upd.ConsultationNotes != nil {
		appt.ConsultationNotes = *upd.ConsultationNotes
	}
	if upd.Diagnosis != nil {
		appt.Diagnosis = *upd.Diagnosis
	}
	if upd.Vitals != nil {
		appt.Vitals = *upd.Vitals
	}
	if upd.Prescriptions != nil {
		appt.Prescriptions = *upd.Prescriptions
	}
	if upd.Labs != nil {
		appt.Labs = *upd.Labs
	}
	if upd.Status != nil {
		appt.Status = *upd.Status
	}
	return nil
}

func applyBilling(appt *models.Appointment, upd BillingUpdate) error {
	if upd.Status != nil {
		switch *upd.Status {
		case models.BillingPaid:
		case models.BillingUnpaid:
			if appt.Billing.Status == models.BillingPaid {
				return ErrBillingReverted
			}
		default:
			return ErrInvalidStatus
		}
	}
	if upd.Amount != nil {
		appt.Billing.Amount = *upd.Amount
	}
	if upd.Status != nil {
		appt.Billing.Status = *upd.Status
	}
	return nil
}
