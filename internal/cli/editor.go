package cli

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/iraa22/WHEELWISE-B/internal/domain"
	"github.com/iraa22/WHEELWISE-B/internal/service/form"
)

// editor shows the create form, or the edit form when id is set.
func (a *App) editor(id string) screen {
	return a.protect(func(ctx context.Context) screen {
		ctrl := form.NewController(a.deps.Bookings, a.deps.Uploader,
			form.WithPlaceholderImage(a.placeholder),
			form.WithLocation(a.loc),
			form.WithOwner(a.deps.Session.UserID),
			form.WithLogger(a.log),
			form.WithMetrics(a.metrics),
		)
		if id != "" {
			if err := ctrl.Load(ctx, id); err != nil {
				a.printf("Booking not found, starting a new one.\n")
			}
		}

		for {
			a.printDraft(ctrl)
			choice, ok := a.ask("form> ")
			if !ok {
				return nil
			}
			switch choice {
			case "1":
				if v, ok := a.ask("traveler name: "); ok {
					ctrl.SetTravelerName(v)
				}
			case "2":
				if v, ok := a.ask("destination: "); ok {
					ctrl.SetDestination(v)
				}
			case "3":
				a.pickDate(ctrl)
			case "4":
				a.pickTime(ctrl)
			case "5":
				a.pickCar(ctrl)
			case "+":
				ctrl.IncrementPassengers()
			case "-":
				ctrl.DecrementPassengers()
			case "6":
				a.pickImage(ctx, ctrl)
			case "s":
				if _, err := ctrl.Submit(ctx); err != nil {
					a.printf("Could not save: %v\n", err)
					continue
				}
				a.printf("Booking saved.\n")
				return a.list
			case "c", "b":
				return a.list
			default:
				a.printf("Unknown option %q\n", choice)
			}
		}
	})
}

func (a *App) printDraft(ctrl *form.Controller) {
	d := ctrl.Draft()
	title := "New booking"
	if ctrl.EditingID() != "" {
		title = "Edit booking"
	}
	car := string(d.Car)
	if car == "" {
		car = "(choose)"
	}
	a.printf("\n%s\n  1) Traveler:   %s\n  2) Destination: %s\n  3) Date:       %s\n  4) Time:       %s\n  5) Car:        %s\n  +/-) Passengers: %d\n  6) Image:      %s\n  s) save   c) cancel\n",
		title, d.TravelerName, d.Destination,
		d.Date.Format("2006-01-02"), d.Time.Format("15:04"),
		car, d.Passengers, d.Image)
}

func (a *App) pickDate(ctrl *form.Controller) {
	v, ok := a.ask("date (YYYY-MM-DD): ")
	if !ok || v == "" {
		return
	}
	date, err := time.ParseInLocation("2006-01-02", v, a.loc)
	if err != nil {
		a.printf("Invalid date %q\n", v)
		return
	}
	ctrl.SetDate(date)
}

func (a *App) pickTime(ctrl *form.Controller) {
	v, ok := a.ask("time (HH:MM): ")
	if !ok || v == "" {
		return
	}
	clock, err := time.ParseInLocation("15:04", v, a.loc)
	if err != nil {
		a.printf("Invalid time %q\n", v)
		return
	}
	ctrl.SetTime(clock)
}

func (a *App) pickCar(ctrl *form.Controller) {
	ctrl.ToggleCarPicker()
	options := ctrl.CarOptions()
	for i, car := range options {
		a.printf("  %d) %s\n", i+1, car)
	}
	v, ok := a.ask("car: ")
	if !ok || v == "" {
		ctrl.ToggleCarPicker()
		return
	}
	var car domain.CarType
	if idx, err := strconv.Atoi(v); err == nil && idx >= 1 && idx <= len(options) {
		car = options[idx-1]
	} else {
		for _, opt := range options {
			if strings.EqualFold(string(opt), v) {
				car = opt
			}
		}
	}
	if err := ctrl.SelectCar(car); err != nil {
		a.printf("%v\n", err)
		ctrl.ToggleCarPicker()
	}
}

func (a *App) pickImage(ctx context.Context, ctrl *form.Controller) {
	picker := form.ImagePickerFunc(func(context.Context) (*form.LocalImage, error) {
		path, ok := a.ask("image file (empty to cancel): ")
		if !ok || path == "" {
			return nil, nil
		}
		return form.ReadImageFile(path)
	})
	if err := ctrl.PickImage(ctx, picker); err != nil {
		a.printf("Image upload failed: %v\n", err)
		return
	}
	a.printf("Image: %s\n", ctrl.Draft().Image)
}
