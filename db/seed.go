package db

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/clinicore/hmis-server/cmd/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var specialties = []string{
	"Cardiology", "Dermatology", "Pediatrics", "Orthopedics",
	"General Medicine", "Neurology", "Oncology",
}

var doctorNames = []string{
	"Dr. Smith", "Dr. Jane", "Dr. Musoke", "Dr. Kato", "Dr. Nansubuga",
	"Dr. Brown", "Dr. Garcia", "Dr. Chen", "Dr. Wilson", "Dr. Taylor",
	"Dr. Anderson", "Dr. Thomas",
}

var slotTimes = []string{"09:00 AM", "11:30 AM", "02:00 PM", "04:30 PM"}

// Seed populates the user registry with the demo accounts: one admin, two
// patients and twelve doctors with four open slots each, plus one completed
// historical appointment. Existing accounts (matched by email) are kept.
func Seed(db *gorm.DB) error {
	hash, err := bcrypt.GenerateFromPassword([]byte("123"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing seed password: %w", err)
	}

	users := []models.User{
		{FullName: "System Admin", Email: "admin@clinic.com", Role: models.RoleAdmin},
		{FullName: "John Doe", Email: "patient@clinic.com", Role: models.RolePatient, Phone: "+256 700 000 001"},
		{FullName: "Sarah Connor", Email: "sarah@clinic.com", Role: models.RolePatient, Phone: "+256 700 000 002"},
	}

	for i, name := range doctorNames {
		spec := specialties[i%len(specialties)]
		users = append(users, models.User{
			FullName:  name,
			Email:     doctorEmail(name),
			Role:      models.RoleDoctor,
			Specialty: spec,
			Bio:       fmt.Sprintf("Dedicated specialist in %s with over 10 years of experience at Mulago Hospital.", spec),
			Qualifications: pq.StringArray{
				"MBChB (Makerere University)",
				"MMed " + spec,
			},
		})
	}

	for i := range users {
		users[i].PasswordHash = string(hash)
		if err := seedUser(db, &users[i]); err != nil {
			return err
		}
	}

	return seedHistory(db)
}

func seedUser(db *gorm.DB, user *models.User) error {
	var existing models.User
	err := db.Where("email = ?", user.Email).First(&existing).Error
	if err == nil {
		log.Printf("Account %s already seeded", user.Email)
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	if err := db.Create(user).Error; err != nil {
		return fmt.Errorf("seeding %s: %w", user.Email, err)
	}

	if user.Role == models.RoleDoctor {
		today := time.Now().Truncate(24 * time.Hour)
		for _, t := range slotTimes {
			slot := models.Slot{DoctorID: user.ID, Date: today, Time: t}
			if err := db.Create(&slot).Error; err != nil {
				return fmt.Errorf("seeding slots for %s: %w", user.Email, err)
			}
		}
	}

	log.Printf("Seeded %s account %s", user.Role, user.Email)
	return nil
}

// seedHistory inserts the one settled encounter the dashboards show as
// prior history: a completed dermatology visit with a paid invoice.
func seedHistory(db *gorm.DB) error {
	var count int64
	db.Model(&models.Appointment{}).Count(&count)
	if count > 0 {
		return nil
	}

	var doctor models.User
	if err := db.Where("role = ? AND specialty = ?", models.RoleDoctor, "Dermatology").
		Order("id").First(&doctor).Error; err != nil {
		return fmt.Errorf("finding seeded dermatologist: %w", err)
	}

	appt := models.Appointment{
		Reference:         "APT-" + uuid.NewString(),
		PatientName:       "John Doe",
		PatientPhone:      "+256 700 000 001",
		DoctorID:          doctor.ID,
		Date:              time.Date(2026, 2, 10, 10, 0, 0, 0, time.UTC),
		Time:              "10:00 AM",
		Status:            models.StatusCompleted,
		ConsultationNotes: "Patient presented with recurring skin rash. Recommended allergy tests.",
		Diagnosis:         "Atopic Dermatitis",
		Labs: []models.Lab{
			{OrderID: "L-" + uuid.NewString(), Test: "Skin Allergy Panel", Result: "Positive (Dust Mites)", Status: "completed"},
		},
		Billing: models.Billing{Amount: 85000, Status: models.BillingPaid},
	}

	if err := db.Create(&appt).Error; err != nil {
		return fmt.Errorf("seeding history appointment: %w", err)
	}
	log.Println("Seeded historical appointment")
	return nil
}

func doctorEmail(name string) string {
	email := strings.ToLower(name)
	email = strings.ReplaceAll(email, ". ", "")
	email = strings.ReplaceAll(email, " ", "")
	return email + "@clinic.com"
}
