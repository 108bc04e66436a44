package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iraa22/WHEELWISE-B/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GoalsCollection is the document collection that holds bookings.
const GoalsCollection = "goals"

// BookingRepository is the booking document collection of the backend.
type BookingRepository interface {
	List(ctx context.Context) ([]domain.Booking, error)
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	Insert(ctx context.Context, booking *domain.Booking) error
	Update(ctx context.Context, id string, patch domain.BookingPatch, updatedAt time.Time) (*domain.Booking, error)
	Delete(ctx context.Context, id string) error
}

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

const bookingColumns = `id, traveler_name, destination, car, date, passengers, image, user_id, created_at, updated_at`

func (r *PGBookingRepository) List(ctx context.Context) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM goals ORDER BY date, created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM goals WHERE id::text = $1`, id)
	b, err := scanBooking(row)
	if err != nil {
		return nil, notFound(err, id)
	}
	return b, nil
}

// Insert stores a new booking; the database assigns the id.
func (r *PGBookingRepository) Insert(ctx context.Context, booking *domain.Booking) error {
	return r.db.QueryRow(ctx, `INSERT INTO goals (traveler_name, destination, car, date, passengers, image, user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id::text`,
		booking.TravelerName, booking.Destination, string(booking.Car), booking.Date.UTC(), booking.Passengers,
		booking.Image, booking.UserID, booking.CreatedAt.UTC()).
		Scan(&booking.ID)
}

// Update writes the non-nil patch fields. updated_at never moves backwards, so two
// updates inside the same clock tick still produce strictly increasing values.
func (r *PGBookingRepository) Update(ctx context.Context, id string, patch domain.BookingPatch, updatedAt time.Time) (*domain.Booking, error) {
	var car *string
	if patch.Car != nil {
		s := string(*patch.Car)
		car = &s
	}
	var date *time.Time
	if patch.Date != nil {
		d := patch.Date.UTC()
		date = &d
	}

	row := r.db.QueryRow(ctx, `UPDATE goals SET
			traveler_name = COALESCE($2, traveler_name),
			destination = COALESCE($3, destination),
			car = COALESCE($4, car),
			date = COALESCE($5, date),
			passengers = COALESCE($6, passengers),
			image = COALESCE($7, image),
			updated_at = GREATEST($8, COALESCE(updated_at, created_at) + interval '1 microsecond')
		WHERE id::text = $1
		RETURNING `+bookingColumns,
		id, patch.TravelerName, patch.Destination, car, date, patch.Passengers, patch.Image, updatedAt.UTC())
	b, err := scanBooking(row)
	if err != nil {
		return nil, notFound(err, id)
	}
	return b, nil
}

func (r *PGBookingRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM goals WHERE id::text = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return &domain.NotFoundError{Collection: GoalsCollection, ID: id}
	}
	return nil
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var (
		b   domain.Booking
		car string
	)
	if err := row.Scan(&b.ID, &b.TravelerName, &b.Destination, &car, &b.Date, &b.Passengers, &b.Image, &b.UserID, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.Car = domain.CarType(car)
	return &b, nil
}

func notFound(err error, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return &domain.NotFoundError{Collection: GoalsCollection, ID: id}
	}
	return fmt.Errorf("query goals %s: %w", id, err)
}

var _ BookingRepository = (*PGBookingRepository)(nil)
