package form

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/iraa22/WHEELWISE-B/internal/domain"
	"github.com/iraa22/WHEELWISE-B/internal/metrics"
	"go.uber.org/zap"
)

// Bookings is the part of the booking service a form writes through.
type Bookings interface {
	Get(ctx context.Context, id string) (*domain.Booking, error)
	Create(ctx context.Context, fields domain.BookingFields) (string, error)
	Update(ctx context.Context, id string, patch domain.BookingPatch) error
}

type Uploader interface {
	Upload(ctx context.Context, path, contentType string, data []byte) (string, error)
}

// Draft is the unsubmitted state of one booking.
type Draft struct {
	TravelerName string
	Destination  string
	Car          domain.CarType
	Date         time.Time
	Time         time.Time
	Passengers   int
	Image        string
}

// DateTime is the timestamp the draft will be saved with.
func (d Draft) DateTime() time.Time {
	return ComposeDateTime(d.Date, d.Time)
}

// ComposeDateTime takes the calendar day from date and the hour and minute from
// clock, in date's location. Seconds are dropped.
func ComposeDateTime(date, clock time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), clock.Hour(), clock.Minute(), 0, 0, date.Location())
}

type Controller struct {
	bookings    Bookings
	uploader    Uploader
	placeholder string
	now         func() time.Time
	loc         *time.Location
	owner       func() *string
	onDone      func(id string)
	log         *zap.Logger
	metrics     *metrics.Metrics

	mu            sync.Mutex
	draft         Draft
	id            string
	uploading     bool
	carPickerOpen bool
}

type Option func(*Controller)

func WithPlaceholderImage(url string) Option {
	return func(c *Controller) {
		if url != "" {
			c.placeholder = url
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithLocation sets the zone the pickers work in.
func WithLocation(loc *time.Location) Option {
	return func(c *Controller) { c.loc = loc }
}

// WithOwner supplies the uid stamped on created bookings.
func WithOwner(owner func() *string) Option {
	return func(c *Controller) { c.owner = owner }
}

// WithNavigate is called with the booking id after a successful submit.
func WithNavigate(fn func(id string)) Option {
	return func(c *Controller) { c.onDone = fn }
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Controller) { c.log = log }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

func NewController(bookings Bookings, uploader Uploader, opts ...Option) *Controller {
	c := &Controller{
		bookings:    bookings,
		uploader:    uploader,
		placeholder: domain.DefaultImage,
		now:         time.Now,
		loc:         time.Local,
		owner:       func() *string { return nil },
		onDone:      func(string) {},
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.Reset()
	return c
}

// Reset returns to a blank create form.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

func (c *Controller) resetLocked() {
	now := c.now().In(c.loc)
	c.draft = Draft{
		Date:       now,
		Time:       now,
		Passengers: 1,
		Image:      c.placeholder,
	}
	c.id = ""
	c.carPickerOpen = false
}

func (c *Controller) Draft() Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// EditingID is the loaded booking id, empty in create mode.
func (c *Controller) EditingID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

func (c *Controller) SetTravelerName(v string) {
	c.mu.Lock()
	c.draft.TravelerName = v
	c.mu.Unlock()
}

func (c *Controller) SetDestination(v string) {
	c.mu.Lock()
	c.draft.Destination = v
	c.mu.Unlock()
}

// SetDate records the date picker value; its clock part is ignored on submit.
func (c *Controller) SetDate(v time.Time) {
	c.mu.Lock()
	c.draft.Date = v.In(c.loc)
	c.mu.Unlock()
}

// SetTime records the time picker value; its calendar part is ignored on submit.
func (c *Controller) SetTime(v time.Time) {
	c.mu.Lock()
	c.draft.Time = v.In(c.loc)
	c.mu.Unlock()
}

func (c *Controller) CarOptions() []domain.CarType {
	return domain.CarTypes()
}

func (c *Controller) ToggleCarPicker() {
	c.mu.Lock()
	c.carPickerOpen = !c.carPickerOpen
	c.mu.Unlock()
}

func (c *Controller) CarPickerOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.carPickerOpen
}

// SelectCar sets the car and closes the picker.
func (c *Controller) SelectCar(car domain.CarType) error {
	if !car.Valid() {
		return &domain.ValidationError{Field: "car", Message: fmt.Sprintf("unknown car %q", car)}
	}
	c.mu.Lock()
	c.draft.Car = car
	c.carPickerOpen = false
	c.mu.Unlock()
	return nil
}

func (c *Controller) IncrementPassengers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft.Passengers++
	return c.draft.Passengers
}

// DecrementPassengers never goes below one.
func (c *Controller) DecrementPassengers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.draft.Passengers > 1 {
		c.draft.Passengers--
	}
	return c.draft.Passengers
}

func (c *Controller) Uploading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.uploading
}

// Load switches to edit mode for id and copies the stored booking into the draft.
// When the booking is missing the form is reset to a blank create form and the
// *domain.NotFoundError is returned.
func (c *Controller) Load(ctx context.Context, id string) error {
	b, err := c.bookings.Get(ctx, id)
	if err != nil {
		c.Reset()
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	date := b.Date.In(c.loc)
	if b.Date.IsZero() {
		date = c.now().In(c.loc)
	}
	passengers := b.Passengers
	if passengers < 1 {
		passengers = 1
	}
	image := b.Image
	if image == "" {
		image = c.placeholder
	}
	c.draft = Draft{
		TravelerName: b.TravelerName,
		Destination:  b.Destination,
		Car:          b.Car,
		Date:         date,
		Time:         date,
		Passengers:   passengers,
		Image:        image,
	}
	c.id = b.ID
	c.carPickerOpen = false
	return nil
}

// Submit validates the draft and creates or updates the booking. On failure the
// draft is left as it was so the user can retry.
func (c *Controller) Submit(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.uploading {
		c.mu.Unlock()
		return "", &domain.ValidationError{Field: "image", Message: "upload still in progress"}
	}
	draft := c.draft
	id := c.id
	c.mu.Unlock()

	fields := domain.BookingFields{
		TravelerName: draft.TravelerName,
		Destination:  draft.Destination,
		Car:          draft.Car,
		Date:         draft.DateTime(),
		Passengers:   draft.Passengers,
		Image:        draft.Image,
	}
	if err := fields.Validate(); err != nil {
		return "", err
	}

	if id == "" {
		fields.UserID = c.owner()
		created, err := c.bookings.Create(ctx, fields)
		if err != nil {
			c.log.Warn("create booking", zap.Error(err))
			return "", err
		}
		c.Reset()
		c.onDone(created)
		return created, nil
	}

	date := fields.Date
	patch := domain.BookingPatch{
		TravelerName: &fields.TravelerName,
		Destination:  &fields.Destination,
		Car:          &fields.Car,
		Date:         &date,
		Passengers:   &fields.Passengers,
	}
	if strings.TrimSpace(fields.Image) != "" {
		patch.Image = &fields.Image
	}
	if err := c.bookings.Update(ctx, id, patch); err != nil {
		c.log.Warn("update booking", zap.String("id", id), zap.Error(err))
		return "", err
	}
	c.onDone(id)
	return id, nil
}
