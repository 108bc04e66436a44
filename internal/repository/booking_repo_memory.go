package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/iraa22/WHEELWISE-B/internal/domain"
)

// MemoryBookingRepository keeps the goals collection in process memory.
type MemoryBookingRepository struct {
	mu   sync.RWMutex
	data map[string]domain.Booking
}

func NewMemoryBookingRepository() *MemoryBookingRepository {
	return &MemoryBookingRepository{data: make(map[string]domain.Booking)}
}

func (r *MemoryBookingRepository) List(_ context.Context) ([]domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bookings := make([]domain.Booking, 0, len(r.data))
	for _, b := range r.data {
		bookings = append(bookings, b)
	}
	sort.Slice(bookings, func(i, j int) bool {
		if !bookings[i].Date.Equal(bookings[j].Date) {
			return bookings[i].Date.Before(bookings[j].Date)
		}
		return bookings[i].CreatedAt.Before(bookings[j].CreatedAt)
	})
	return bookings, nil
}

func (r *MemoryBookingRepository) GetByID(_ context.Context, id string) (*domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.data[id]
	if !ok {
		return nil, &domain.NotFoundError{Collection: GoalsCollection, ID: id}
	}
	return &b, nil
}

func (r *MemoryBookingRepository) Insert(_ context.Context, booking *domain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	booking.ID = uuid.NewString()
	r.data[booking.ID] = *booking
	return nil
}

func (r *MemoryBookingRepository) Update(_ context.Context, id string, patch domain.BookingPatch, updatedAt time.Time) (*domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.data[id]
	if !ok {
		return nil, &domain.NotFoundError{Collection: GoalsCollection, ID: id}
	}

	updated := patch.Apply(current)
	last := current.CreatedAt
	if current.UpdatedAt != nil {
		last = *current.UpdatedAt
	}
	if !updatedAt.After(last) {
		updatedAt = last.Add(time.Microsecond)
	}
	updated.UpdatedAt = &updatedAt
	r.data[id] = updated
	return &updated, nil
}

func (r *MemoryBookingRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.data[id]; !ok {
		return &domain.NotFoundError{Collection: GoalsCollection, ID: id}
	}
	delete(r.data, id)
	return nil
}

var _ BookingRepository = (*MemoryBookingRepository)(nil)
