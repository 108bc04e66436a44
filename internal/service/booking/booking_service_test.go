package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iraa22/WHEELWISE-B/internal/domain"
	"github.com/iraa22/WHEELWISE-B/internal/kafka"
	"github.com/iraa22/WHEELWISE-B/internal/metrics"
	"github.com/iraa22/WHEELWISE-B/internal/repository"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) List(ctx context.Context) ([]domain.Booking, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) Insert(ctx context.Context, booking *domain.Booking) error {
	args := m.Called(ctx, booking)
	return args.Error(0)
}

func (m *MockBookingRepository) Update(ctx context.Context, id string, patch domain.BookingPatch, updatedAt time.Time) (*domain.Booking, error) {
	args := m.Called(ctx, id, patch, updatedAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

func alexFields() domain.BookingFields {
	return domain.BookingFields{
		TravelerName: "Alex",
		Destination:  "Paris",
		Car:          domain.CarSUV,
		Passengers:   1,
		Date:         time.Date(2024, 6, 1, 14, 30, 0, 0, time.UTC),
	}
}

func TestBookingService_CreateThenList(t *testing.T) {
	service := NewBookingService(repository.NewMemoryBookingRepository())
	ctx := context.Background()

	id, err := service.Create(ctx, alexFields())
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	list, err := service.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	got := list[0]
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "Alex", got.TravelerName)
	assert.Equal(t, "Paris", got.Destination)
	assert.Equal(t, domain.CarSUV, got.Car)
	assert.Equal(t, 1, got.Passengers)
	assert.Equal(t, "2024-06-01T14:30:00Z", got.Date.Format(time.RFC3339))
	assert.Equal(t, domain.DefaultImage, got.Image)
	assert.False(t, got.CreatedAt.IsZero())
	assert.Nil(t, got.UpdatedAt)
}

func TestBookingService_CreateRefreshesList(t *testing.T) {
	service := NewBookingService(repository.NewMemoryBookingRepository())

	_, err := service.Create(context.Background(), alexFields())
	require.NoError(t, err)

	assert.Len(t, service.Bookings(), 1)
}

func TestBookingService_CreateDefaults(t *testing.T) {
	created := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	service := NewBookingService(repository.NewMemoryBookingRepository(),
		WithClock(func() time.Time { return created }),
		WithPlaceholderImage("https://img.local/default.png"),
	)
	ctx := context.Background()

	fields := alexFields()
	fields.Passengers = 0
	fields.TravelerName = "  Alex  "
	id, err := service.Create(ctx, fields)
	require.NoError(t, err)

	got, err := service.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Passengers)
	assert.Equal(t, "Alex", got.TravelerName)
	assert.Equal(t, "https://img.local/default.png", got.Image)
	assert.Equal(t, created, got.CreatedAt)
}

func TestBookingService_CreateValidationErrors(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*domain.BookingFields)
		field  string
	}{
		{name: "empty traveler", mutate: func(f *domain.BookingFields) { f.TravelerName = "" }, field: "travelerName"},
		{name: "blank traveler", mutate: func(f *domain.BookingFields) { f.TravelerName = "   " }, field: "travelerName"},
		{name: "empty destination", mutate: func(f *domain.BookingFields) { f.Destination = "" }, field: "destination"},
		{name: "empty car", mutate: func(f *domain.BookingFields) { f.Car = "" }, field: "car"},
		{name: "unknown car", mutate: func(f *domain.BookingFields) { f.Car = "Tank" }, field: "car"},
		{name: "negative passengers", mutate: func(f *domain.BookingFields) { f.Passengers = -1 }, field: "passengers"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store := &MockBookingRepository{}
			service := NewBookingService(store)

			fields := alexFields()
			tc.mutate(&fields)

			id, err := service.Create(context.Background(), fields)
			assert.Empty(t, id)

			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)

			store.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
			store.AssertNotCalled(t, "List", mock.Anything)
		})
	}
}

func TestBookingService_UpdateValidationErrors(t *testing.T) {
	store := &MockBookingRepository{}
	service := NewBookingService(store)

	empty := ""
	blankCar := domain.CarType(" ")
	zero := 0
	for _, patch := range []domain.BookingPatch{
		{TravelerName: &empty},
		{Destination: &empty},
		{Car: &blankCar},
		{Passengers: &zero},
	} {
		err := service.Update(context.Background(), "b-1", patch)
		assert.True(t, domain.IsValidation(err))
	}
	store.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBookingService_UpdateThenList(t *testing.T) {
	service := NewBookingService(repository.NewMemoryBookingRepository())
	ctx := context.Background()

	id, err := service.Create(ctx, alexFields())
	require.NoError(t, err)

	before, err := service.Get(ctx, id)
	require.NoError(t, err)
	previous := before.CreatedAt

	van := domain.CarVan
	require.NoError(t, service.Update(ctx, id, domain.BookingPatch{Car: &van}))

	list := service.Bookings()
	require.Len(t, list, 1)
	after := list[0]

	assert.Equal(t, domain.CarVan, after.Car)
	assert.Equal(t, before.TravelerName, after.TravelerName)
	assert.Equal(t, before.Destination, after.Destination)
	assert.Equal(t, before.Passengers, after.Passengers)
	assert.Equal(t, before.Image, after.Image)
	assert.True(t, before.Date.Equal(after.Date))
	require.NotNil(t, after.UpdatedAt)
	assert.True(t, after.UpdatedAt.After(previous))

	// a second update inside the same clock tick still moves updatedAt forward
	first := *after.UpdatedAt
	require.NoError(t, service.Update(ctx, id, domain.BookingPatch{}))
	again, err := service.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, again.UpdatedAt.After(first))
}

func TestBookingService_UpdateNotFound(t *testing.T) {
	service := NewBookingService(repository.NewMemoryBookingRepository())

	van := domain.CarVan
	err := service.Update(context.Background(), "missing", domain.BookingPatch{Car: &van})

	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "missing", nf.ID)
}

func TestBookingService_DeleteThenList(t *testing.T) {
	service := NewBookingService(repository.NewMemoryBookingRepository())
	ctx := context.Background()

	keep, err := service.Create(ctx, alexFields())
	require.NoError(t, err)
	gone, err := service.Create(ctx, alexFields())
	require.NoError(t, err)

	require.NoError(t, service.Delete(ctx, gone))

	list, err := service.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, keep, list[0].ID)
	for _, b := range service.Bookings() {
		assert.NotEqual(t, gone, b.ID)
	}
}

func TestBookingService_DeleteTwice(t *testing.T) {
	service := NewBookingService(repository.NewMemoryBookingRepository())
	ctx := context.Background()

	id, err := service.Create(ctx, alexFields())
	require.NoError(t, err)
	require.NoError(t, service.Delete(ctx, id))

	err = service.Delete(ctx, id)
	assert.True(t, domain.IsNotFound(err))
	assert.Empty(t, service.Bookings())
}

func TestBookingService_DeleteStoreError(t *testing.T) {
	store := &MockBookingRepository{}
	service := NewBookingService(store)
	ctx := context.Background()

	store.On("Delete", ctx, "b-1").Return(errors.New("connection reset")).Once()

	err := service.Delete(ctx, "b-1")
	assert.ErrorContains(t, err, "connection reset")
	assert.False(t, domain.IsNotFound(err))
	store.AssertNotCalled(t, "List", mock.Anything)
}

func TestBookingService_ListFetchError(t *testing.T) {
	store := &MockBookingRepository{}
	service := NewBookingService(store)
	ctx := context.Background()

	store.On("List", ctx).Return([]domain.Booking{{ID: "b-1"}}, nil).Once()
	_, err := service.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, service.Bookings(), 1)

	store.On("List", ctx).Return(nil, errors.New("unavailable")).Once()
	list, err := service.ListAll(ctx)

	assert.True(t, domain.IsFetch(err))
	assert.NotNil(t, list)
	assert.Empty(t, list)
	assert.Empty(t, service.Bookings())
	store.AssertExpectations(t)
}

func TestBookingService_CreateStoreErrorKeepsList(t *testing.T) {
	store := &MockBookingRepository{}
	service := NewBookingService(store)
	ctx := context.Background()

	store.On("Insert", ctx, mock.AnythingOfType("*domain.Booking")).Return(errors.New("quota exceeded")).Once()

	id, err := service.Create(ctx, alexFields())
	assert.Empty(t, id)
	assert.ErrorContains(t, err, "create booking: quota exceeded")
	store.AssertNotCalled(t, "List", mock.Anything)
}

func TestBookingService_WriteThenRefreshOrder(t *testing.T) {
	store := &MockBookingRepository{}
	service := NewBookingService(store)
	ctx := context.Background()

	var calls []string
	store.On("Insert", ctx, mock.AnythingOfType("*domain.Booking")).
		Run(func(args mock.Arguments) {
			calls = append(calls, "insert")
			args.Get(1).(*domain.Booking).ID = "b-1"
		}).Return(nil).Once()
	store.On("List", ctx).
		Run(func(mock.Arguments) { calls = append(calls, "list") }).
		Return([]domain.Booking{{ID: "b-1"}}, nil).Once()

	id, err := service.Create(ctx, alexFields())
	require.NoError(t, err)
	assert.Equal(t, "b-1", id)
	assert.Equal(t, []string{"insert", "list"}, calls)
}

func TestBookingService_StaleRefreshDiscarded(t *testing.T) {
	store := &MockBookingRepository{}
	service := NewBookingService(store)
	ctx := context.Background()

	release := make(chan struct{})
	started := make(chan struct{})
	store.On("List", ctx).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return([]domain.Booking{{ID: "stale"}}, nil).Once()
	store.On("List", ctx).Return([]domain.Booking{{ID: "fresh"}}, nil).Once()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = service.ListAll(ctx)
	}()

	<-started
	_, err := service.ListAll(ctx)
	require.NoError(t, err)
	close(release)
	<-done

	list := service.Bookings()
	require.Len(t, list, 1)
	assert.Equal(t, "fresh", list[0].ID)
}

func TestBookingService_PublishesEvents(t *testing.T) {
	producer := &MockProducer{}
	service := NewBookingService(repository.NewMemoryBookingRepository(), WithEvents(producer, "booking.events"))
	ctx := context.Background()

	producer.On("Publish", ctx, "booking.events", mock.Anything, mock.MatchedBy(func(e kafka.BookingEvent) bool {
		return e.Type == kafka.EventBookingCreated && e.Car == "SUV"
	})).Return(nil).Once()
	producer.On("Publish", ctx, "booking.events", mock.Anything, mock.MatchedBy(func(e kafka.BookingEvent) bool {
		return e.Type == kafka.EventBookingDeleted
	})).Return(errors.New("broker down")).Once()

	id, err := service.Create(ctx, alexFields())
	require.NoError(t, err)

	// a failed publish never fails the write
	require.NoError(t, service.Delete(ctx, id))
	producer.AssertExpectations(t)
}

func TestBookingService_Watch(t *testing.T) {
	service := NewBookingService(repository.NewMemoryBookingRepository())
	ctx, cancel := context.WithCancel(context.Background())

	updates := service.Watch(ctx)
	assert.Empty(t, <-updates)

	_, err := service.Create(context.Background(), alexFields())
	require.NoError(t, err)

	select {
	case list := <-updates:
		assert.Len(t, list, 1)
	case <-time.After(time.Second):
		t.Fatal("no update delivered")
	}

	cancel()
	assert.Eventually(t, func() bool {
		_, open := <-updates
		return !open
	}, time.Second, 10*time.Millisecond)
}

func TestBookingService_Metrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	service := NewBookingService(repository.NewMemoryBookingRepository(), WithMetrics(m))
	ctx := context.Background()

	_, err := service.Create(ctx, alexFields())
	require.NoError(t, err)
	_ = service.Delete(ctx, "missing")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.BookingOps.WithLabelValues("create", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BookingOps.WithLabelValues("delete", "not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BookingsListed))
}
