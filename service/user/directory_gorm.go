package user

import (
	"errors"
	"strings"

	"github.com/clinicore/hmis-server/cmd/models"
	"gorm.io/gorm"
)

type GormDirectory struct {
	db *gorm.DB
}

func NewGormDirectory(db *gorm.DB) *GormDirectory {
	return &GormDirectory{db: db}
}

func (d *GormDirectory) FindByEmail(email string) (*models.User, error) {
	var user models.User
	if err := d.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, mapErr(err)
	}
	return &user, nil
}

func (d *GormDirectory) FindByID(id uint) (*models.User, error) {
	var user models.User
	if err := d.db.Preload("Slots").First(&user, id).Error; err != nil {
		return nil, mapErr(err)
	}
	return &user, nil
}

func (d *GormDirectory) FindByPhone(phone string) (*models.User, error) {
	var user models.User
	if err := d.db.Where("phone = ?", phone).First(&user).Error; err != nil {
		return nil, mapErr(err)
	}
	return &user, nil
}

func (d *GormDirectory) ListDoctors() ([]models.User, error) {
	var doctors []models.User
	err := d.db.Preload("Slots", func(db *gorm.DB) *gorm.DB {
		return db.Order("slots.id")
	}).Where("role = ?", models.RoleDoctor).Order("id").Find(&doctors).Error
	if err != nil {
		return nil, err
	}
	return doctors, nil
}

func (d *GormDirectory) Slots(doctorID uint) ([]models.Slot, error) {
	var slots []models.Slot
	err := d.db.Where("doctor_id = ?", doctorID).Order("id").Find(&slots).Error
	if err != nil {
		return nil, err
	}
	return slots, nil
}

func (d *GormDirectory) Create(u *models.User) error {
	if err := d.db.Create(u).Error; err != nil {
		if strings.Contains(err.Error(), "duplicate key") ||
			strings.Contains(err.Error(), "UNIQUE constraint") {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func mapErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
