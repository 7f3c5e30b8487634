package models

import (
	"time"

	"github.com/lib/pq"
)

const (
	RoleAdmin   = "admin"
	RolePatient = "patient"
	RoleDoctor  = "doctor"
)

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"-"`
	FullName     string    `gorm:"column:full_name;size:255;not null" json:"name"`
	Email        string    `gorm:"column:email;size:255;not null;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"column:password_hash;size:255;not null" json:"-"`
	Role         string    `gorm:"column:role;size:50;not null" json:"role"`
	Phone        string    `gorm:"column:phone;size:20" json:"phone,omitempty"`

	// Doctor-only fields. Empty for admins and patients.
	Specialty      string         `gorm:"column:specialty;size:255" json:"specialty,omitempty"`
	Bio            string         `gorm:"column:bio;type:text" json:"bio,omitempty"`
	Qualifications pq.StringArray `gorm:"column:qualifications;type:text[]" json:"qualifications,omitempty"`

	Slots []Slot `gorm:"foreignKey:DoctorID" json:"availableSlots,omitempty"`
}

// Slot is one bookable unit of a doctor's calendar. It is consumed when an
// appointment claims it and released only if that appointment is cancelled.
type Slot struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
	DoctorID  uint      `gorm:"column:doctor_id;not null;index" json:"doctorId"`
	Date      time.Time `gorm:"column:date;not null" json:"date"`
	Time      string    `gorm:"column:time;size:20;not null" json:"time"`
	IsBooked  bool      `gorm:"column:is_booked;not null;default:false" json:"isBooked"`
}

func (Slot) TableName() string {
	return "slots"
}

func (u *User) IsDoctor() bool {
	return u.Role == RoleDoctor
}
