package events

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memStore backs both repositories for tests. txMu serializes units of work
// the way row locks do in PostgreSQL; mu guards the maps for reads that run
// outside a unit of work. RunTx restores a snapshot on error so failed units
// of work leave no partial state, matching transactional rollback.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	events map[uuid.UUID]*Event
	regs   map[uuid.UUID]*Registration
	seq    int
}

func newMemStore() *memStore {
	return &memStore{
		events: make(map[uuid.UUID]*Event),
		regs:   make(map[uuid.UUID]*Registration),
	}
}

func (m *memStore) RunTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	evSnap := make(map[uuid.UUID]*Event, len(m.events))
	for k, v := range m.events {
		cp := *v
		evSnap[k] = &cp
	}
	regSnap := make(map[uuid.UUID]*Registration, len(m.regs))
	for k, v := range m.regs {
		cp := *v
		regSnap[k] = &cp
	}
	seqSnap := m.seq
	m.mu.Unlock()

	if err := fn(ctx); err != nil {
		m.mu.Lock()
		m.events = evSnap
		m.regs = regSnap
		m.seq = seqSnap
		m.mu.Unlock()
		return err
	}
	return nil
}

// -- EventRepository --

func (m *memStore) Create(_ context.Context, e *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt
	cp := *e
	m.events[e.ID] = &cp
	return nil
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *memStore) LockForUpdate(ctx context.Context, id uuid.UUID) (*Event, error) {
	return m.GetByID(ctx, id)
}

func (m *memStore) Update(_ context.Context, e *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.events[e.ID]
	if !ok {
		return ErrNotFound
	}
	e.SlotsTotal = cur.SlotsTotal
	e.SlotsFilled = cur.SlotsFilled
	cp := *e
	m.events[e.ID] = &cp
	return nil
}

func (m *memStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[id]; !ok {
		return ErrNotFound
	}
	delete(m.events, id)
	return nil
}

func (m *memStore) List(_ context.Context, _ map[string]string, limit, offset int) ([]*Event, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []*Event
	for _, e := range m.events {
		cp := *e
		items = append(items, &cp)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].StartsAt.Before(items[j].StartsAt) })
	return items, len(items), nil
}

func (m *memStore) Adjust(_ context.Context, id uuid.UUID, delta int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return 0, ErrNotFound
	}
	next := e.SlotsFilled + delta
	if next < 0 || next > e.SlotsTotal {
		return 0, ErrCapacityViolation
	}
	e.SlotsFilled = next
	return next, nil
}

// -- RegistrationRepository --

func (m *memStore) CreateRegistration(_ context.Context, r *Registration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[r.EventID]; !ok {
		return ErrInvalidReference
	}
	for _, existing := range m.regs {
		if existing.EventID == r.EventID && existing.PatientID == r.PatientID {
			return ErrDuplicateRegistration
		}
	}
	r.ID = uuid.New()
	m.seq++
	r.RegisteredAt = time.Unix(0, 0).Add(time.Duration(m.seq) * time.Second)
	r.UpdatedAt = r.RegisteredAt
	cp := *r
	m.regs[r.ID] = &cp
	return nil
}

func (m *memStore) GetRegistrationByID(_ context.Context, id uuid.UUID) (*Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.regs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memStore) GetByEventAndPatient(_ context.Context, eventID, patientID uuid.UUID) (*Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.regs {
		if r.EventID == eventID && r.PatientID == patientID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) SetStatus(_ context.Context, id uuid.UUID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.regs[id]
	if !ok {
		return ErrNotFound
	}
	r.Status = status
	return nil
}

func (m *memStore) DeleteRegistration(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.regs[id]; !ok {
		return ErrNotFound
	}
	delete(m.regs, id)
	return nil
}

func regBefore(a, b *Registration) bool {
	if !a.RegisteredAt.Equal(b.RegisteredAt) {
		return a.RegisteredAt.Before(b.RegisteredAt)
	}
	return bytes.Compare(a.ID[:], b.ID[:]) < 0
}

func (m *memStore) ListByEvent(_ context.Context, eventID uuid.UUID, status string, limit, offset int) ([]*Registration, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []*Registration
	for _, r := range m.regs {
		if r.EventID != eventID {
			continue
		}
		if status != "" && r.Status != status {
			continue
		}
		cp := *r
		items = append(items, &cp)
	}
	sort.Slice(items, func(i, j int) bool { return regBefore(items[i], items[j]) })
	return items, len(items), nil
}

func (m *memStore) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Registration, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []*Registration
	for _, r := range m.regs {
		if r.PatientID == patientID {
			cp := *r
			items = append(items, &cp)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[j].RegisteredAt.Before(items[i].RegisteredAt) })
	return items, len(items), nil
}

func (m *memStore) ClaimOldestWaitlisted(_ context.Context, eventID uuid.UUID) (*Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var oldest *Registration
	for _, r := range m.regs {
		if r.EventID != eventID || r.Status != StatusWaitlist {
			continue
		}
		if oldest == nil || regBefore(r, oldest) {
			oldest = r
		}
	}
	if oldest == nil {
		return nil, ErrNotFound
	}
	oldest.Status = StatusConfirmed
	cp := *oldest
	return &cp, nil
}

func (m *memStore) WaitlistPosition(_ context.Context, eventID uuid.UUID, registeredAt time.Time, id uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	probe := &Registration{ID: id, RegisteredAt: registeredAt}
	pos := 1
	for _, r := range m.regs {
		if r.EventID == eventID && r.Status == StatusWaitlist && regBefore(r, probe) {
			pos++
		}
	}
	return pos, nil
}

// regRepo adapts memStore's registration methods to the repository interface,
// since the event methods already claim the plain names.
type regRepo struct{ *memStore }

func (r regRepo) Create(ctx context.Context, reg *Registration) error {
	return r.CreateRegistration(ctx, reg)
}

func (r regRepo) GetByID(ctx context.Context, id uuid.UUID) (*Registration, error) {
	return r.GetRegistrationByID(ctx, id)
}

func (r regRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.DeleteRegistration(ctx, id)
}
