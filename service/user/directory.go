package user

import (
	"errors"

	"github.com/clinicore/hmis-server/cmd/models"
)

var (
	ErrNotFound       = errors.New("account not found")
	ErrDuplicateEmail = errors.New("email is already in use")
)

// Directory is the account registry. Doctors are listed in stable insertion
// order; lookups by id resolve booking targets and display names.
type Directory interface {
	FindByEmail(email string) (*models.User, error)
	FindByID(id uint) (*models.User, error)
	FindByPhone(phone string) (*models.User, error)
	ListDoctors() ([]models.User, error)
	Slots(doctorID uint) ([]models.Slot, error)
	Create(u *models.User) error
}
