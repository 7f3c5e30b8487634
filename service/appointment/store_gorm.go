package appointment

import (
	"errors"

	"github.com/clinicore/hmis-server/cmd/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Book(req BookingRequest) (*models.Appointment, error) {
	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	var doctor models.User
	if err := tx.Where("id = ? AND role = ?", req.DoctorID, models.RoleDoctor).
		First(&doctor).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	// Row lock on the slot makes the free-check and the claim one atomic
	// unit across concurrent bookings.
	var slot models.Slot
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("doctor_id = ? AND time = ? AND is_booked = ?", req.DoctorID, req.Time, false).
		Order("id").First(&slot).Error
	if err != nil {
		tx.Rollback()
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		var count int64
		s.db.Model(&models.Slot{}).
			Where("doctor_id = ? AND time = ?", req.DoctorID, req.Time).Count(&count)
		if count == 0 {
			return nil, ErrSlotUnavailable
		}
		return nil, ErrSlotTaken
	}

	if err := tx.Model(&slot).Update("is_booked", true).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	appt := models.Appointment{
		Reference:    "APT-" + uuid.NewString(),
		PatientName:  req.PatientName,
		PatientPhone: req.PatientPhone,
		DoctorID:     req.DoctorID,
		SlotID:       slot.ID,
		Date:         req.Date,
		Time:         req.Time,
		Status:       models.StatusBooked,
		Billing:      models.Billing{Amount: models.ConsultationFee, Status: models.BillingUnpaid},
	}

	if err := tx.Create(&appt).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return s.FindByID(appt.ID)
}

func (s *GormStore) FindByID(id uint) (*models.Appointment, error) {
	var appt models.Appointment
	err := s.db.Preload("Prescriptions").Preload("Labs").First(&appt, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	s.resolveDoctorNames([]*models.Appointment{&appt})
	return &appt, nil
}

func (s *GormStore) UpdateClinical(id uint, upd ClinicalUpdate) (*models.Appointment, error) {
	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	var appt models.Appointment
	if err := tx.First(&appt, id).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := applyClinical(&appt, upd); err != nil {
		tx.Rollback()
		return nil, err
	}

	// Child lists are replaced wholesale, never deep-merged.
	if upd.Prescriptions != nil {
		if err := tx.Where("appointment_id = ?", id).Delete(&models.Prescription{}).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		for i := range appt.Prescriptions {
			appt.Prescriptions[i].ID = 0
			appt.Prescriptions[i].AppointmentID = id
		}
	}
	if upd.Labs != nil {
		if err := tx.Where("appointment_id = ?", id).Delete(&models.Lab{}).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		for i := range appt.Labs {
			appt.Labs[i].ID = 0
			appt.Labs[i].AppointmentID = id
			if appt.Labs[i].OrderID == "" {
				appt.Labs[i].OrderID = "L-" + uuid.NewString()
			}
		}
	}

	if err := tx.Session(&gorm.Session{FullSaveAssociations: true}).Save(&appt).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return s.FindByID(id)
}

func (s *GormStore) UpdateBilling(id uint, upd BillingUpdate) (*models.Appointment, error) {
	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	var appt models.Appointment
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&appt, id).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := applyBilling(&appt, upd); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Model(&appt).Updates(map[string]interface{}{
		"billing_amount": appt.Billing.Amount,
		"billing_status": appt.Billing.Status,
	}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return s.FindByID(id)
}

func (s *GormStore) Cancel(id uint) (*models.Appointment, error) {
	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	var appt models.Appointment
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&appt, id).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if appt.Status != models.StatusBooked {
		tx.Rollback()
		return nil, ErrNotCancellable
	}

	if err := tx.Model(&appt).Update("status", models.StatusCancelled).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	// Cancelling releases the consumed slot.
	if appt.SlotID != 0 {
		if err := tx.Model(&models.Slot{}).Where("id = ?", appt.SlotID).
			Update("is_booked", false).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return s.FindByID(id)
}

func (s *GormStore) ListAll() ([]models.Appointment, error) {
	var appts []models.Appointment
	if err := s.db.Preload("Prescriptions").Preload("Labs").
		Order("id").Find(&appts).Error; err != nil {
		return nil, err
	}

	refs := make([]*models.Appointment, len(appts))
	for i := range appts {
		refs[i] = &appts[i]
	}
	s.resolveDoctorNames(refs)
	return appts, nil
}

func (s *GormStore) Reset() error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		session := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		if err := session.Delete(&models.Lab{}).Error; err != nil {
			return err
		}
		if err := session.Delete(&models.Prescription{}).Error; err != nil {
			return err
		}
		return session.Delete(&models.Appointment{}).Error
	})
}

// resolveDoctorNames joins each record's doctor id against the user registry
// at read time. The display name is never persisted on the appointment.
func (s *GormStore) resolveDoctorNames(appts []*models.Appointment) {
	if len(appts) == 0 {
		return
	}

	ids := make([]uint, 0, len(appts))
	for _, appt := range appts {
		ids = append(ids, appt.DoctorID)
	}

	var doctors []models.User
	if err := s.db.Where("id IN ?", ids).Find(&doctors).Error; err != nil {
		return
	}

	names := make(map[uint]string, len(doctors))
	for _, doc := range doctors {
		names[doc.ID] = doc.FullName
	}

	for _, appt := range appts {
		if name, ok := names[appt.DoctorID]; ok {
			appt.DoctorName = name
		} else {
			appt.DoctorName = "Unknown"
		}
	}
}
