package user

import (
	"sync"

	"github.com/clinicore/hmis-server/cmd/models"
)

// MemoryDirectory keeps the registry in process. Used by tests.
type MemoryDirectory struct {
	mu     sync.RWMutex
	nextID uint
	users  []*models.User
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{nextID: 1}
}

func (d *MemoryDirectory) FindByEmail(email string) (*models.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, u := range d.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (d *MemoryDirectory) FindByID(id uint) (*models.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, u := range d.users {
		if u.ID == id {
			copied := *u
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (d *MemoryDirectory) FindByPhone(phone string) (*models.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, u := range d.users {
		if u.Phone != "" && u.Phone == phone {
			copied := *u
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (d *MemoryDirectory) ListDoctors() ([]models.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var doctors []models.User
	for _, u := range d.users {
		if u.IsDoctor() {
			doctors = append(doctors, *u)
		}
	}
	return doctors, nil
}

func (d *MemoryDirectory) Slots(doctorID uint) ([]models.Slot, error) {
	doctor, err := d.FindByID(doctorID)
	if err != nil {
		return nil, err
	}
	return append([]models.Slot(nil), doctor.Slots...), nil
}

func (d *MemoryDirectory) Create(u *models.User) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, existing := range d.users {
		if existing.Email == u.Email {
			return ErrDuplicateEmail
		}
	}
	if u.ID == 0 {
		u.ID = d.nextID
	}
	d.nextID = u.ID + 1
	copied := *u
	d.users = append(d.users, &copied)
	return nil
}
