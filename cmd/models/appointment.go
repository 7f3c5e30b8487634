package models

import "time"

const (
	StatusBooked    = "booked"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"

	BillingUnpaid = "unpaid"
	BillingPaid   = "paid"

	// ConsultationFee is the base fee attached to every new appointment.
	ConsultationFee = 20000
)

type Vitals struct {
	BP     string `gorm:"column:bp;size:20" json:"bp,omitempty"`
	Temp   string `gorm:"column:temp;size:20" json:"temp,omitempty"`
	Pulse  string `gorm:"column:pulse;size:20" json:"pulse,omitempty"`
	Weight string `gorm:"column:weight;size:20" json:"weight,omitempty"`
}

type Billing struct {
	Amount float64 `gorm:"column:amount;not null" json:"amount"`
	Status string  `gorm:"column:status;size:20;not null;default:unpaid" json:"status"`
}

type Prescription struct {
	ID            uint   `gorm:"primaryKey" json:"-"`
	AppointmentID uint   `gorm:"column:appointment_id;not null;index" json:"-"`
	Drug          string `gorm:"column:drug;size:255;not null" json:"drug"`
	Dosage        string `gorm:"column:dosage;size:100" json:"dosage"`
	Frequency     string `gorm:"column:frequency;size:100" json:"frequency"`
}

type Lab struct {
	ID            uint   `gorm:"primaryKey" json:"-"`
	AppointmentID uint   `gorm:"column:appointment_id;not null;index" json:"-"`
	OrderID       string `gorm:"column:order_id;size:64;not null" json:"id"`
	Test          string `gorm:"column:test;size:255;not null" json:"test"`
	Result        string `gorm:"column:result;type:text" json:"result,omitempty"`
	Status        string `gorm:"column:status;size:20" json:"status"`
}

// Appointment is one patient-doctor encounter, from booking through clinical
// completion and billing settlement.
type Appointment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`

	Reference    string    `gorm:"column:reference;size:64;uniqueIndex;not null" json:"reference"`
	PatientName  string    `gorm:"column:patient_name;size:255;not null" json:"patientName"`
	PatientPhone string    `gorm:"column:patient_phone;size:20" json:"patientPhone"`
	DoctorID     uint      `gorm:"column:doctor_id;not null;index" json:"doctorId"`
	SlotID       uint      `gorm:"column:slot_id" json:"-"`
	Date         time.Time `gorm:"column:date;not null" json:"date"`
	Time         string    `gorm:"column:time;size:20;not null" json:"time"`
	Status       string    `gorm:"column:status;size:20;not null;default:booked" json:"status"`

	ConsultationNotes string `gorm:"column:consultation_notes;type:text" json:"consultationNotes,omitempty"`
	Diagnosis         string `gorm:"column:diagnosis;type:text" json:"diagnosis,omitempty"`

	Vitals        Vitals         `gorm:"embedded;embeddedPrefix:vitals_" json:"vitals"`
	Prescriptions []Prescription `gorm:"foreignKey:AppointmentID" json:"prescriptions"`
	Labs          []Lab          `gorm:"foreignKey:AppointmentID" json:"labs"`
	Billing       Billing        `gorm:"embedded;embeddedPrefix:billing_" json:"billing"`

	// Resolved from the user registry at read time, never persisted.
	DoctorName string `gorm:"-" json:"doctorName,omitempty"`
}
