package domain

import (
	"strings"
	"time"
)

// DefaultImage is the generated avatar shown when a booking has no photo.
const DefaultImage = "https://ui-avatars.com/api/?name=Traveler&background=0BA6DF&color=fff&size=256"

type CarType string

const (
	CarSedan       CarType = "Sedan"
	CarSUV         CarType = "SUV"
	CarVan         CarType = "Van"
	CarConvertible CarType = "Convertible"
)

// CarTypes lists the selectable cars in display order.
func CarTypes() []CarType {
	return []CarType{CarSedan, CarSUV, CarVan, CarConvertible}
}

func (c CarType) Valid() bool {
	for _, known := range CarTypes() {
		if c == known {
			return true
		}
	}
	return false
}

type Booking struct {
	ID           string
	TravelerName string
	Destination  string
	Car          CarType
	Date         time.Time
	Passengers   int
	Image        string
	UserID       *string
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}

// BookingFields is the user-editable part of a booking, as submitted by a form.
type BookingFields struct {
	TravelerName string
	Destination  string
	Car          CarType
	Date         time.Time
	Passengers   int
	Image        string
	UserID       *string
}

// BookingPatch carries a partial update; nil fields are left untouched.
type BookingPatch struct {
	TravelerName *string
	Destination  *string
	Car          *CarType
	Date         *time.Time
	Passengers   *int
	Image        *string
}

func (p BookingPatch) Empty() bool {
	return p.TravelerName == nil && p.Destination == nil && p.Car == nil &&
		p.Date == nil && p.Passengers == nil && p.Image == nil
}

// Validate checks the write invariants of a new booking.
func (f BookingFields) Validate() error {
	if err := requireText("travelerName", f.TravelerName); err != nil {
		return err
	}
	if err := requireText("destination", f.Destination); err != nil {
		return err
	}
	if err := validateCar(f.Car); err != nil {
		return err
	}
	if f.Date.IsZero() {
		return &ValidationError{Field: "date", Message: "is required"}
	}
	if f.Passengers < 0 {
		return &ValidationError{Field: "passengers", Message: "must be at least 1"}
	}
	return nil
}

// Validate checks only the fields present in the patch.
func (p BookingPatch) Validate() error {
	if p.TravelerName != nil {
		if err := requireText("travelerName", *p.TravelerName); err != nil {
			return err
		}
	}
	if p.Destination != nil {
		if err := requireText("destination", *p.Destination); err != nil {
			return err
		}
	}
	if p.Car != nil {
		if err := validateCar(*p.Car); err != nil {
			return err
		}
	}
	if p.Date != nil && p.Date.IsZero() {
		return &ValidationError{Field: "date", Message: "is required"}
	}
	if p.Passengers != nil && *p.Passengers < 1 {
		return &ValidationError{Field: "passengers", Message: "must be at least 1"}
	}
	return nil
}

// Apply returns a copy of b with the patch fields written over it.
func (p BookingPatch) Apply(b Booking) Booking {
	if p.TravelerName != nil {
		b.TravelerName = *p.TravelerName
	}
	if p.Destination != nil {
		b.Destination = *p.Destination
	}
	if p.Car != nil {
		b.Car = *p.Car
	}
	if p.Date != nil {
		b.Date = *p.Date
	}
	if p.Passengers != nil {
		b.Passengers = *p.Passengers
	}
	if p.Image != nil {
		b.Image = *p.Image
	}
	return b
}

func requireText(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Message: "is required"}
	}
	return nil
}

func validateCar(c CarType) error {
	if strings.TrimSpace(string(c)) == "" {
		return &ValidationError{Field: "car", Message: "is required"}
	}
	if !c.Valid() {
		return &ValidationError{Field: "car", Message: "must be one of Sedan, SUV, Van, Convertible"}
	}
	return nil
}
