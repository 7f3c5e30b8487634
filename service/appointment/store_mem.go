package appointment

import (
	"sync"

	"github.com/clinicore/hmis-server/cmd/models"
	"github.com/google/uuid"
)

// MemoryStore is the in-process implementation of Store. One coarse lock
// covers the slot claim and the appointment insert, which keeps booking
// atomic without a database. Used by tests and by anything that wants the
// portal without postgres behind it.
type MemoryStore struct {
	mu           sync.Mutex
	nextID       uint
	nextSlotID   uint
	appointments []*models.Appointment
	doctors      map[uint]*models.User
	slots        []*models.Slot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID:     1,
		nextSlotID: 1,
		doctors:    make(map[uint]*models.User),
	}
}

// AddDoctor registers a doctor and copies their slots into the store.
func (s *MemoryStore) AddDoctor(doctor *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *doctor
	copied.Slots = nil
	s.doctors[doctor.ID] = &copied

	for _, slot := range doctor.Slots {
		stored := slot
		if stored.ID == 0 {
			stored.ID = s.nextSlotID
		}
		s.nextSlotID = stored.ID + 1
		stored.DoctorID = doctor.ID
		s.slots = append(s.slots, &stored)
	}
}

func (s *MemoryStore) Book(req BookingRequest) (*models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doctor, ok := s.doctors[req.DoctorID]
	if !ok || !doctor.IsDoctor() {
		return nil, ErrDoctorNotFound
	}

	var slot *models.Slot
	seen := false
	for _, candidate := range s.slots {
		if candidate.DoctorID != req.DoctorID || candidate.Time != req.Time {
			continue
		}
		seen = true
		if !candidate.IsBooked {
			slot = candidate
			break
		}
	}
	if slot == nil {
		if seen {
			return nil, ErrSlotTaken
		}
		return nil, ErrSlotUnavailable
	}
	slot.IsBooked = true

	appt := &models.Appointment{
		ID:           s.nextID,
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
	s.nextID++
	s.appointments = append(s.appointments, appt)

	return s.snapshot(appt), nil
}

func (s *MemoryStore) FindByID(id uint) (*models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	appt := s.find(id)
	if appt == nil {
		return nil, ErrNotFound
	}
	return s.snapshot(appt), nil
}

func (s *MemoryStore) UpdateClinical(id uint, upd ClinicalUpdate) (*models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	appt := s.find(id)
	if appt == nil {
		return nil, ErrNotFound
	}
	if err := applyClinical(appt, upd); err != nil {
		return nil, err
	}
	for i := range appt.Labs {
		if appt.Labs[i].OrderID == "" {
			appt.Labs[i].OrderID = "L-" + uuid.NewString()
		}
	}
	return s.snapshot(appt), nil
}

func (s *MemoryStore) UpdateBilling(id uint, upd BillingUpdate) (*models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	appt := s.find(id)
	if appt == nil {
		return nil, ErrNotFound
	}
	if err := applyBilling(appt, upd); err != nil {
		return nil, err
	}
	return s.snapshot(appt), nil
}

func (s *MemoryStore) Cancel(id uint) (*models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	appt := s.find(id)
	if appt == nil {
		return nil, ErrNotFound
	}
	if appt.Status != models.StatusBooked {
		return nil, ErrNotCancellable
	}
	appt.Status = models.StatusCancelled

	for _, slot := range s.slots {
		if slot.ID == appt.SlotID {
			slot.IsBooked = false
			break
		}
	}
	return s.snapshot(appt), nil
}

func (s *MemoryStore) ListAll() ([]models.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Appointment, 0, len(s.appointments))
	for _, appt := range s.appointments {
		out = append(out, *s.snapshot(appt))
	}
	return out, nil
}

func (s *MemoryStore) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appointments = nil
	return nil
}

// SlotBooked reports the booked flag of the doctor's slot at the given time.
func (s *MemoryStore) SlotBooked(doctorID uint, slotTime string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, slot := range s.slots {
		if slot.DoctorID == doctorID && slot.Time == slotTime {
			return slot.IsBooked
		}
	}
	return false
}

func (s *MemoryStore) find(id uint) *models.Appointment {
	for _, appt := range s.appointments {
		if appt.ID == id {
			return appt
		}
	}
	return nil
}

// snapshot copies a record and resolves the doctor's display name, so callers
// never alias store-owned memory.
func (s *MemoryStore) snapshot(appt *models.Appointment) *models.Appointment {
	copied := *appt
	copied.Prescriptions = append([]models.Prescription(nil), appt.Prescriptions...)
	copied.Labs = append([]models.Lab(nil), appt.Labs...)
	if doctor, ok := s.doctors[appt.DoctorID]; ok {
		copied.DoctorName = doctor.FullName
	} else {
		copied.DoctorName = "Unknown"
	}
	return &copied
}
