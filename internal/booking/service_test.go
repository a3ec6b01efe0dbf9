package booking

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/medihub/medihub-api/internal/identity"
)

// fakeRepo is an in-memory Repository. Inserts enforce the same active
// (doctor, instant) uniqueness rule as the partial unique index, so the
// service's conflict handling is exercised the way the real store behaves.
type fakeRepo struct {
	mu       sync.Mutex
	doctors  map[uuid.UUID]fakeParty
	patients map[uuid.UUID]fakeParty
	appts    map[uuid.UUID]*Appointment
}

type fakeParty struct {
	name  string
	spec  *string
	email *string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		doctors:  make(map[uuid.UUID]fakeParty),
		patients: make(map[uuid.UUID]fakeParty),
		appts:    make(map[uuid.UUID]*Appointment),
	}
}

func (r *fakeRepo) addDoctor(name, spec string) uuid.UUID {
	id := uuid.New()
	r.doctors[id] = fakeParty{name: name, spec: &spec}
	return id
}

func (r *fakeRepo) addPatient(name, email string) uuid.UUID {
	id := uuid.New()
	r.patients[id] = fakeParty{name: name, email: &email}
	return id
}

func (r *fakeRepo) DoctorExists(ctx context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.doctors[id]
	return ok, nil
}

func (r *fakeRepo) findActiveLocked(doctorID uuid.UUID, at time.Time) *Appointment {
	for _, a := range r.appts {
		if a.DoctorID == doctorID && a.ScheduledAt.Equal(at) && a.Status != StatusCancelled {
			return a
		}
	}
	return nil
}

func (r *fakeRepo) FindActiveBySlot(ctx context.Context, doctorID uuid.UUID, at time.Time) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a := r.findActiveLocked(doctorID, at); a != nil {
		cp := *a
		return &cp, nil
	}
	return nil, ErrAppointmentNotFound
}

func (r *fakeRepo) InsertScheduled(ctx context.Context, patientID, doctorID uuid.UUID, at time.Time) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.findActiveLocked(doctorID, at) != nil {
		return nil, ErrDuplicateSlot
	}

	now := time.Now()
	a := &Appointment{
		ID:          uuid.New(),
		PatientID:   patientID,
		DoctorID:    doctorID,
		ScheduledAt: at,
		Status:      StatusScheduled,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.appts[a.ID] = a

	cp := *a
	return &cp, nil
}

func (r *fakeRepo) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *fakeRepo) detailLocked(a *Appointment) Detail {
	d := Detail{Appointment: *a}
	if doc, ok := r.doctors[a.DoctorID]; ok {
		d.DoctorName = doc.name
		d.DoctorSpecialization = doc.spec
	}
	if pat, ok := r.patients[a.PatientID]; ok {
		d.PatientName = pat.name
		d.PatientEmail = pat.email
	}
	return d
}

func (r *fakeRepo) GetDetail(ctx context.Context, id uuid.UUID) (*Detail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	d := r.detailLocked(a)
	return &d, nil
}

func (r *fakeRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appts[id]
	if !ok || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	a.UpdatedAt = time.Now()
	cp := *a
	return &cp, nil
}

func (r *fakeRepo) listLocked(match func(*Appointment) bool) []Detail {
	var result []Detail
	for _, a := range r.appts {
		if match(a) {
			result = append(result, r.detailLocked(a))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ScheduledAt.Before(result[j].ScheduledAt)
	})
	return result
}

func (r *fakeRepo) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Detail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listLocked(func(a *Appointment) bool { return a.PatientID == patientID }), nil
}

func (r *fakeRepo) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Detail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listLocked(func(a *Appointment) bool { return a.DoctorID == doctorID }), nil
}

func (r *fakeRepo) ListAll(ctx context.Context) ([]Detail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listLocked(func(*Appointment) bool { return true }), nil
}

type fakeAudit struct {
	mu      sync.Mutex
	actions []string
}

func (f *fakeAudit) Record(ctx context.Context, actorID uuid.UUID, action, detail string) {
	f.mu.Lock()
	f.actions = append(f.actions, action)
	f.mu.Unlock()
}

func patientPrincipal(id uuid.UUID) identity.Principal {
	return identity.Principal{ID: id, Role: identity.RolePatient}
}

func mustBook(t *testing.T, svc *Service, patientID, doctorID uuid.UUID, at time.Time) *Detail {
	t.Helper()
	d, err := svc.Book(context.Background(), patientPrincipal(patientID), doctorID, at)
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	return d
}

func TestBook_Success(t *testing.T) {
	repo := newFakeRepo()
	doctorID := repo.addDoctor("Dr. Adams", "Cardiology")
	patientID := repo.addPatient("Pat One", "pat@example.com")
	aud := &fakeAudit{}
	svc := NewService(repo, aud)

	slot := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	d := mustBook(t, svc, patientID, doctorID, slot)

	if d.Status != StatusScheduled {
		t.Errorf("status = %s, want %s", d.Status, StatusScheduled)
	}
	if !d.ScheduledAt.Equal(slot) {
		t.Errorf("scheduledAt = %v, want %v", d.ScheduledAt, slot)
	}
	if d.DoctorName != "Dr. Adams" {
		t.Errorf("doctor name = %q, want %q", d.DoctorName, "Dr. Adams")
	}
	if d.PatientName != "Pat One" {
		t.Errorf("patient name = %q, want %q", d.PatientName, "Pat One")
	}
	if len(aud.actions) != 1 {
		t.Errorf("audit actions = %v, want one entry", aud.actions)
	}
}

func TestBook_SlotConflict(t *testing.T) {
	repo := newFakeRepo()
	doctorID := repo.addDoctor("Dr. Adams", "Cardiology")
	p1 := repo.addPatient("Pat One", "p1@example.com")
	p2 := repo.addPatient("Pat Two", "p2@example.com")
	svc := NewService(repo, &fakeAudit{})

	slot := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	mustBook(t, svc, p1, doctorID, slot)

	_, err := svc.Book(context.Background(), patientPrincipal(p2), doctorID, slot)
	if !errors.Is(err, ErrSlotConflict) {
		t.Fatalf("second booking err = %v, want ErrSlotConflict", err)
	}

	// Thirty minutes later is a different slot and must succeed.
	mustBook(t, svc, p2, doctorID, slot.Add(30*time.Minute))
}

func TestBook_SameInstantDifferentZoneConflicts(t *testing.T) {
	repo := newFakeRepo()
	doctorID := repo.addDoctor("Dr. Adams", "Cardiology")
	p1 := repo.addPatient("Pat One", "p1@example.com")
	p2 := repo.addPatient("Pat Two", "p2@example.com")
	svc := NewService(repo, &fakeAudit{})

	utc := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	shifted := utc.In(time.FixedZone("UTC+2", 2*3600))

	mustBook(t, svc, p1, doctorID, utc)

	_, err := svc.Book(context.Background(), patientPrincipal(p2), doctorID, shifted)
	if !errors.Is(err, ErrSlotConflict) {
		t.Fatalf("same-instant booking err = %v, want ErrSlotConflict", err)
	}
}

func TestBook_CancelThenRebook(t *testing.T) {
	repo := newFakeRepo()
	doctorID := repo.addDoctor("Dr. Adams", "Cardiology")
	p1 := repo.addPatient("Pat One", "p1@example.com")
	p2 := repo.addPatient("Pat Two", "p2@example.com")
	svc := NewService(repo, &fakeAudit{})

	slot := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	d := mustBook(t, svc, p1, doctorID, slot)

	if _, err := svc.Cancel(context.Background(), patientPrincipal(p1), d.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	// The slot is free again.
	mustBook(t, svc, p2, doctorID, slot)
}

func TestBook_UnknownDoctor(t *testing.T) {
	repo := newFakeRepo()
	patientID := repo.addPatient("Pat One", "p1@example.com")
	svc := NewService(repo, &fakeAudit{})

	_, err := svc.Book(context.Background(), patientPrincipal(patientID), uuid.New(), time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	if !errors.Is(err, ErrDoctorNotFound) {
		t.Fatalf("err = %v, want ErrDoctorNotFound", err)
	}
	if len(repo.appts) != 0 {
		t.Errorf("appointments created = %d, want 0", len(repo.appts))
	}
}

func TestBook_InvalidInput(t *testing.T) {
	repo := newFakeRepo()
	doctorID := repo.addDoctor("Dr. Adams", "Cardiology")
	patientID := repo.addPatient("Pat One", "p1@example.com")
	svc := NewService(repo, &fakeAudit{})

	if _, err := svc.Book(context.Background(), patientPrincipal(patientID), uuid.Nil, time.Now()); !errors.Is(err, ErrInvalidSchedule) {
		t.Errorf("nil doctor err = %v, want ErrInvalidSchedule", err)
	}
	if _, err := svc.Book(context.Background(), patientPrincipal(patientID), doctorID, time.Time{}); !errors.Is(err, ErrInvalidSchedule) {
		t.Errorf("zero time err = %v, want ErrInvalidSchedule", err)
	}
	if len(repo.appts) != 0 {
		t.Errorf("appointments created = %d, want 0", len(repo.appts))
	}
}

func TestBook_ConcurrentSameSlot(t *testing.T) {
	repo := newFakeRepo()
	doctorID := repo.addDoctor("Dr. Adams", "Cardiology")
	svc := NewService(repo, &fakeAudit{})

	const attempts = 32
	slot := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	patients := make([]uuid.UUID, attempts)
	for i := range patients {
		patients[i] = repo.addPatient("Pat", "pat@example.com")
	}

	errs := make([]error, attempts)
	start := make(chan struct{})
	var wg sync.WaitGroup

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = svc.Book(context.Background(), patientPrincipal(patients[i]), doctorID, slot)
		}(i)
	}

	close(start)
	wg.Wait()

	var wins, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrSlotConflict):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	if wins != 1 {
		t.Errorf("wins = %d, want exactly 1", wins)
	}
	if conflicts != attempts-1 {
		t.Errorf("conflicts = %d, want %d", conflicts, attempts-1)
	}
}

func TestList_PatientSeesOwnOrdered(t *testing.T) {
	repo := newFakeRepo()
	doctorID := repo.addDoctor("Dr. Adams", "Cardiology")
	p1 := repo.addPatient("Pat One", "p1@example.com")
	p2 := repo.addPatient("Pat Two", "p2@example.com")
	svc := NewService(repo, &fakeAudit{})

	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	// Insert out of order; listing must come back sorted.
	mustBook(t, svc, p1, doctorID, base.Add(2*time.Hour))
	mustBook(t, svc, p2, doctorID, base.Add(time.Hour))
	mustBook(t, svc, p1, doctorID, base)

	got, err := svc.List(context.Background(), patientPrincipal(p1))
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	for _, d := range got {
		if d.PatientID != p1 {
			t.Errorf("got appointment for patient %s, want only %s", d.PatientID, p1)
		}
	}
	if !got[0].ScheduledAt.Before(got[1].ScheduledAt) {
		t.Errorf("results not ordered by scheduledAt ascending")
	}
}

func TestList_RolePolicy(t *testing.T) {
	repo := newFakeRepo()
	doctorID := repo.addDoctor("Dr. Adams", "Cardiology")
	p1 := repo.addPatient("Pat One", "p1@example.com")
	svc := NewService(repo, &fakeAudit{})

	slot := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	mustBook(t, svc, p1, doctorID, slot)

	doctorView, err := svc.List(context.Background(), identity.Principal{ID: doctorID, Role: identity.RoleDoctor})
	if err != nil {
		t.Fatalf("doctor List: %v", err)
	}
	if len(doctorView) != 1 {
		t.Errorf("doctor sees %d appointments, want 1", len(doctorView))
	}

	adminView, err := svc.List(context.Background(), identity.Principal{ID: uuid.New(), Role: identity.RoleAdmin})
	if err != nil {
		t.Fatalf("admin List: %v", err)
	}
	if len(adminView) != 1 {
		t.Errorf("admin sees %d appointments, want 1", len(adminView))
	}

	// An unrecognized role is rejected instead of falling through to the
	// unfiltered listing.
	_, err = svc.List(context.Background(), identity.Principal{ID: uuid.New(), Role: "AUDITOR"})
	if !errors.Is(err, ErrRoleNotAllowed) {
		t.Errorf("unknown role err = %v, want ErrRoleNotAllowed", err)
	}
}

func TestList_EmptyForNewPatient(t *testing.T) {
	repo := newFakeRepo()
	p1 := repo.addPatient("Pat One", "p1@example.com")
	svc := NewService(repo, &fakeAudit{})

	got, err := svc.List(context.Background(), patientPrincipal(p1))
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
}

func TestCancel_Authorization(t *testing.T) {
	repo := newFakeRepo()
	doctorID := repo.addDoctor("Dr. Adams", "Cardiology")
	p1 := repo.addPatient("Pat One", "p1@example.com")
	stranger := repo.addPatient("Pat Two", "p2@example.com")
	svc := NewService(repo, &fakeAudit{})

	slot := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	d := mustBook(t, svc, p1, doctorID, slot)

	if _, err := svc.Cancel(context.Background(), patientPrincipal(stranger), d.ID); !errors.Is(err, ErrCancelNotAllowed) {
		t.Errorf("stranger cancel err = %v, want ErrCancelNotAllowed", err)
	}

	if _, err := svc.Cancel(context.Background(), identity.Principal{ID: doctorID, Role: identity.RoleDoctor}, d.ID); err != nil {
		t.Errorf("doctor cancel err = %v, want nil", err)
	}
}

func TestCancel_AlreadyCancelled(t *testing.T) {
	repo := newFakeRepo()
	doctorID := repo.addDoctor("Dr. Adams", "Cardiology")
	p1 := repo.addPatient("Pat One", "p1@example.com")
	svc := NewService(repo, &fakeAudit{})

	d := mustBook(t, svc, p1, doctorID, time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))

	if _, err := svc.Cancel(context.Background(), patientPrincipal(p1), d.ID); err != nil {
		t.Fatalf("first cancel: %v", err)
	}
	if _, err := svc.Cancel(context.Background(), patientPrincipal(p1), d.ID); !errors.Is(err, ErrInvalidStatusTransition) {
		t.Errorf("second cancel err = %v, want ErrInvalidStatusTransition", err)
	}
}

func TestCancel_NotFound(t *testing.T) {
	repo := newFakeRepo()
	p1 := repo.addPatient("Pat One", "p1@example.com")
	svc := NewService(repo, &fakeAudit{})

	if _, err := svc.Cancel(context.Background(), patientPrincipal(p1), uuid.New()); !errors.Is(err, ErrAppointmentNotFound) {
		t.Errorf("err = %v, want ErrAppointmentNotFound", err)
	}
}
