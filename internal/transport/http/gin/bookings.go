package httpgin

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sarjanshah14/ParkingSpotFinder/internal/domain"
	"github.com/sarjanshah14/ParkingSpotFinder/internal/service/booking"
)

// @Summary  Book a slot at a premise
// @Tags     bookings
// @Security BearerAuth
// @Param    Idempotency-Key  header  string                false  "replay-safe retry key"
// @Param    req              body    CreateBookingRequest  true   "payload"
// @Success  201  {object}  BookingResponse
// @Failure  400  {object}  ErrorResponse  "validation error / no available slots"
// @Failure  401  {object}  ErrorResponse
// @Failure  404  {object}  ErrorResponse  "premise not found"
// @Failure  409  {object}  ErrorResponse  "idempotency key in progress"
// @Router   /bookings [post]
func (h *handler) createBooking(c *gin.Context) {
	userID, _ := currentUser(c)

	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}

	b, err := h.svcs.Bookings.Create(c.Request.Context(), userID, booking.CreateInput{
		PremiseID: req.PremiseID,
		Name:      req.Name,
		Phone:     req.Phone,
		Duration:  req.Duration,
	})
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusCreated, newBookingResponse(*b, h.loc))
}

// @Summary  List the caller's bookings
// @Tags     bookings
// @Security BearerAuth
// @Param    status  query  string  false  "confirmed | cancelled | completed"
// @Success  200  {array}   BookingResponse
// @Failure  401  {object}  ErrorResponse
// @Router   /bookings [get]
// @Router   /user-bookings [get]
func (h *handler) listBookings(c *gin.Context) {
	userID, _ := currentUser(c)

	bs, err := h.svcs.Bookings.List(c.Request.Context(), userID, c.Query("status"))
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, newBookingList(bs, h.loc))
}

// @Summary  Get one of the caller's bookings
// @Tags     bookings
// @Security BearerAuth
// @Param    id  path  int  true  "Booking ID"
// @Success  200  {object}  BookingResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /bookings/{id} [get]
func (h *handler) getBooking(c *gin.Context) {
	userID, _ := currentUser(c)
	bookingID, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}

	b, err := h.svcs.Bookings.Get(c.Request.Context(), userID, bookingID)
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, newBookingResponse(*b, h.loc))
}

// @Summary  Cancel a confirmed booking
// @Tags     bookings
// @Security BearerAuth
// @Param    id  path  int  true  "Booking ID"
// @Success  200  {object}  StatusResponse
// @Failure  404  {object}  ErrorResponse  "not found, not owned or not confirmed"
// @Router   /bookings/{id}/cancel [post]
func (h *handler) cancelBooking(c *gin.Context) {
	h.release(c, h.svcs.Bookings.Cancel, "cancellation", "Booking cancelled successfully")
}

// @Summary  Complete a confirmed booking
// @Tags     bookings
// @Security BearerAuth
// @Param    id  path  int  true  "Booking ID"
// @Success  200  {object}  StatusResponse
// @Failure  404  {object}  ErrorResponse  "not found, not owned or not confirmed"
// @Router   /bookings/{id}/complete [post]
func (h *handler) completeBooking(c *gin.Context) {
	h.release(c, h.svcs.Bookings.Complete, "completion", "Booking completed successfully")
}

func (h *handler) release(
	c *gin.Context,
	transition func(ctx context.Context, userID, bookingID int64) (domain.BookingStatus, error),
	action string,
	done string,
) {
	userID, _ := currentUser(c)
	bookingID, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}

	if _, err := transition(c.Request.Context(), userID, bookingID); err != nil {
		if errors.Is(err, booking.ErrNotFoundOrNotEligible) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Booking not found or not eligible for " + action})
			return
		}
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, StatusResponse{Status: done})
}
