package booking

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/flight-seat-booking/internal/model"
	"github.com/iliyamo/flight-seat-booking/internal/queue"
)

// memStore is an in-memory implementation of every store interface
// the service depends on.  WithTx simply runs the function; the
// locking semantics under test live in the service, not here.
type memStore struct {
	mu       sync.Mutex
	flights  map[uint64]*model.Flight
	seats    map[uint64]*model.Seat
	holds    map[uint64]*model.Hold
	bookings map[uint64]*model.Booking
	byRef    map[string]uint64
	payments map[uint64]*model.Payment
	refunds  []*model.Refund
	history  []model.StateChange
	nextID   uint64
}

func newMemStore() *memStore {
	return &memStore{
		flights:  make(map[uint64]*model.Flight),
		seats:    make(map[uint64]*model.Seat),
		holds:    make(map[uint64]*model.Hold),
		bookings: make(map[uint64]*model.Booking),
		byRef:    make(map[string]uint64),
		payments: make(map[uint64]*model.Payment),
	}
}

func (m *memStore) id() uint64 {
	m.nextID++
	return m.nextID
}

// addFlight seeds a flight with the given seats, all AVAILABLE.
func (m *memStore) addFlight(number string, priceCents uint32, seatNumbers ...string) (*model.Flight, []uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f := &model.Flight{
		ID:            m.id(),
		FlightNumber:  number,
		Origin:        "AMS",
		Destination:   "LIS",
		DepartureTime: time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC),
		ArrivalTime:   time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC),
		PriceCents:    priceCents,
	}
	m.flights[f.ID] = f
	ids := make([]uint64, 0, len(seatNumbers))
	for _, sn := range seatNumbers {
		s := &model.Seat{
			ID:         m.id(),
			FlightID:   f.ID,
			SeatNumber: sn,
			SeatClass:  "ECONOMY",
			Status:     model.SeatAvailable,
		}
		m.seats[s.ID] = s
		ids = append(ids, s.ID)
	}
	return f, ids
}

func (m *memStore) seatStatus(id uint64) model.SeatStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seats[id].Status
}

// ----- TxRunner -----

func (m *memStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// ----- FlightStore -----

func (m *memStore) GetByID(ctx context.Context, id uint64) (*model.Flight, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.flights[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (m *memStore) List(ctx context.Context) ([]model.Flight, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Flight, 0, len(m.flights))
	for _, f := range m.flights {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DepartureTime.Before(out[j].DepartureTime) })
	return out, nil
}

// ----- SeatStore -----

func seatLess(a, b *model.Seat) bool {
	if len(a.SeatNumber) != len(b.SeatNumber) {
		return len(a.SeatNumber) < len(b.SeatNumber)
	}
	return a.SeatNumber < b.SeatNumber
}

func (m *memStore) ListAvailable(ctx context.Context, flightID uint64) ([]model.Seat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Seat
	for _, s := range m.seats {
		if s.FlightID == flightID && s.Status == model.SeatAvailable {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return seatLess(out[i], out[j]) })
	seats := make([]model.Seat, 0, len(out))
	for _, s := range out {
		seats = append(seats, *s)
	}
	return seats, nil
}

func (m *memStore) SeatsByIDs(ctx context.Context, flightID uint64, ids []uint64) ([]model.Seat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Seat
	for _, id := range ids {
		s, ok := m.seats[id]
		if !ok || s.FlightID != flightID {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return seatLess(out[i], out[j]) })
	seats := make([]model.Seat, 0, len(out))
	for _, s := range out {
		seats = append(seats, *s)
	}
	return seats, nil
}

func (m *memStore) TryTransition(ctx context.Context, seatID uint64, from, to model.SeatStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.seats[seatID]
	if !ok || s.Status != from {
		return model.ErrConflict
	}
	s.Status = to
	s.Version++
	return nil
}

// ----- HoldStore -----

func (m *memStore) Create(ctx context.Context, h *model.Hold) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h.ID = m.id()
	cp := *h
	cp.SeatIDs = append([]uint64(nil), h.SeatIDs...)
	m.holds[h.ID] = &cp
	return nil
}

func (m *memStore) AttachBooking(ctx context.Context, holdID, bookingID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.holds[holdID]
	if !ok {
		return model.ErrNotFound
	}
	h.BookingID = &bookingID
	return nil
}

func (m *memStore) ByBooking(ctx context.Context, bookingID uint64) ([]model.Hold, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Hold
	for _, h := range m.holds {
		if h.BookingID != nil && *h.BookingID == bookingID {
			cp := *h
			cp.SeatIDs = append([]uint64(nil), h.SeatIDs...)
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) MarkIfActive(ctx context.Context, holdID uint64, to model.HoldStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.holds[holdID]
	if !ok || h.Status != model.HoldActive {
		return false, nil
	}
	h.Status = to
	return true, nil
}

func (m *memStore) ExpiredOrphans(ctx context.Context, now time.Time) ([]model.Hold, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Hold
	for _, h := range m.holds {
		if h.BookingID == nil && h.Status == model.HoldActive && h.ExpiredAt(now) {
			cp := *h
			cp.SeatIDs = append([]uint64(nil), h.SeatIDs...)
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ----- BookingStore -----

func (m *memStore) CreateBookingRow(ctx context.Context, b *model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b.ID = m.id()
	b.CreatedAt = time.Now().UTC()
	b.UpdatedAt = b.CreatedAt
	cp := *b
	m.bookings[b.ID] = &cp
	m.byRef[b.Reference] = b.ID
	return nil
}

func (m *memStore) CreateSeatsBulk(ctx context.Context, seats []model.BookingSeat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range seats {
		seats[i].ID = m.id()
	}
	b := m.bookings[seats[0].BookingID]
	b.Seats = append([]model.BookingSeat(nil), seats...)
	return nil
}

func (m *memStore) GetByReference(ctx context.Context, reference string) (*model.Booking, error) {
	return m.GetByReferenceForUpdate(ctx, reference)
}

func (m *memStore) GetByReferenceForUpdate(ctx context.Context, reference string) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byRef[reference]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *m.bookings[id]
	cp.Seats = append([]model.BookingSeat(nil), m.bookings[id].Seats...)
	return &cp, nil
}

func (m *memStore) Update(ctx context.Context, b *model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.bookings[b.ID]
	if !ok {
		return model.ErrNotFound
	}
	seats := stored.Seats
	cp := *b
	cp.Seats = seats
	m.bookings[b.ID] = &cp
	return nil
}

func (m *memStore) ReferenceExists(ctx context.Context, reference string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.byRef[reference]
	return ok, nil
}

func (m *memStore) PendingExpiredReferences(ctx context.Context, now time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var refs []string
	for _, b := range m.bookings {
		if b.State != model.BookingPendingPayment {
			continue
		}
		live := false
		for _, h := range m.holds {
			if h.BookingID != nil && *h.BookingID == b.ID && h.Status == model.HoldActive && !h.ExpiredAt(now) {
				live = true
				break
			}
		}
		if !live {
			refs = append(refs, b.Reference)
		}
	}
	sort.Strings(refs)
	return refs, nil
}

func (m *memStore) AddStateHistory(ctx context.Context, bookingID uint64, from, to model.BookingState, note string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, model.StateChange{
		ID:        m.id(),
		BookingID: bookingID,
		FromState: from,
		ToState:   to,
		Note:      note,
	})
	return nil
}

// ----- PaymentStore -----

func (m *memStore) CreatePayment(ctx context.Context, p *model.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.payments {
		if existing.Token == p.Token {
			return model.ErrConflict
		}
	}
	p.ID = m.id()
	cp := *p
	m.payments[p.ID] = &cp
	return nil
}

func (m *memStore) ByToken(ctx context.Context, bookingID uint64, token string) (*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.BookingID == bookingID && p.Token == token {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) CapturedByBooking(ctx context.Context, bookingID uint64) (*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.BookingID == bookingID && p.Status == model.PaymentStatusSuccess {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) UpdatePayment(ctx context.Context, p *model.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.payments[p.ID]
	if !ok {
		return model.ErrNotFound
	}
	*stored = *p
	return nil
}

func (m *memStore) CreateRefund(ctx context.Context, r *model.Refund) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = m.id()
	cp := *r
	m.refunds = append(m.refunds, &cp)
	return nil
}

// The store interfaces overlap on method names (Create, Update), so
// thin adapters split memStore into per-interface views.

type bookingStoreView struct{ *memStore }

func (v bookingStoreView) Create(ctx context.Context, b *model.Booking) error {
	return v.CreateBookingRow(ctx, b)
}

type paymentStoreView struct{ *memStore }

func (v paymentStoreView) Create(ctx context.Context, p *model.Payment) error {
	return v.CreatePayment(ctx, p)
}

func (v paymentStoreView) Update(ctx context.Context, p *model.Payment) error {
	return v.UpdatePayment(ctx, p)
}

// recordingPublisher captures published events for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.BookingEvent
	fail   bool
}

func (r *recordingPublisher) PublishBookingEvent(ctx context.Context, ev queue.BookingEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return fmt.Errorf("broker unavailable")
	}
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingPublisher) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}
