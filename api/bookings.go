package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iraa22/WHEELWISE-B/internal/domain"
	"github.com/iraa22/WHEELWISE-B/internal/service/booking"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type createBookingRequest struct {
	TravelerName string    `json:"travelerName"`
	Destination  string    `json:"destination"`
	Car          string    `json:"car"`
	Date         time.Time `json:"date"`
	Passengers   int       `json:"passengers"`
	Image        string    `json:"image"`
}

type updateBookingRequest struct {
	TravelerName *string    `json:"travelerName"`
	Destination  *string    `json:"destination"`
	Car          *string    `json:"car"`
	Date         *time.Time `json:"date"`
	Passengers   *int       `json:"passengers"`
	Image        *string    `json:"image"`
}

type bookingResponse struct {
	ID           string  `json:"id"`
	TravelerName string  `json:"travelerName"`
	Destination  string  `json:"destination"`
	Car          string  `json:"car"`
	Date         string  `json:"date"`
	Passengers   int     `json:"passengers"`
	Image        string  `json:"image"`
	UserID       *string `json:"userId,omitempty"`
	CreatedAt    string  `json:"createdAt"`
	UpdatedAt    *string `json:"updatedAt,omitempty"`
}

type listBookingsResponse struct {
	Items []bookingResponse `json:"items"`
	Error string            `json:"error,omitempty"`
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.list)
	router.POST("", h.create)
	router.GET("/:id", h.get)
	router.PATCH("/:id", h.update)
	router.DELETE("/:id", h.delete)
}

func (h *BookingHandler) list(c *gin.Context) {
	list, err := h.service.ListAll(c.Request.Context())
	items := make([]bookingResponse, 0, len(list))
	for i := range list {
		items = append(items, toBookingResponse(&list[i]))
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, listBookingsResponse{Items: items, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, listBookingsResponse{Items: items})
}

func (h *BookingHandler) get(c *gin.Context) {
	b, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b))
}

func (h *BookingHandler) create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fields := domain.BookingFields{
		TravelerName: req.TravelerName,
		Destination:  req.Destination,
		Car:          domain.CarType(req.Car),
		Date:         req.Date,
		Passengers:   req.Passengers,
		Image:        req.Image,
	}
	if user := currentUser(c); user != nil {
		uid := user.UID
		fields.UserID = &uid
	}

	id, err := h.service.Create(c.Request.Context(), fields)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *BookingHandler) update(c *gin.Context) {
	var req updateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	patch := domain.BookingPatch{
		TravelerName: req.TravelerName,
		Destination:  req.Destination,
		Date:         req.Date,
		Passengers:   req.Passengers,
		Image:        req.Image,
	}
	if req.Car != nil {
		car := domain.CarType(*req.Car)
		patch.Car = &car
	}

	id := c.Param("id")
	if err := h.service.Update(c.Request.Context(), id, patch); err != nil {
		writeError(c, err)
		return
	}
	b, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b))
}

// delete answers 204 even when the booking is already gone.
func (h *BookingHandler) delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil && !domain.IsNotFound(err) {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func toBookingResponse(b *domain.Booking) bookingResponse {
	resp := bookingResponse{
		ID:           b.ID,
		TravelerName: b.TravelerName,
		Destination:  b.Destination,
		Car:          string(b.Car),
		Date:         b.Date.Format(time.RFC3339),
		Passengers:   b.Passengers,
		Image:        b.Image,
		UserID:       b.UserID,
		CreatedAt:    b.CreatedAt.Format(time.RFC3339),
	}
	if b.UpdatedAt != nil {
		updated := b.UpdatedAt.Format(time.RFC3339Nano)
		resp.UpdatedAt = &updated
	}
	return resp
}
