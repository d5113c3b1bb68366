package handlers

import (
	"errors"
	"net/http"
	"strconv"

	bookingRepo "serenity/database/repository/booking"
	"serenity/models"
	"serenity/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BookingHandler exposes read-only booking state for the admin API.
// All writes flow through the approval workflow, never through HTTP.
type BookingHandler struct {
	Repo   bookingRepo.BookingRepository
	Logger *zap.Logger
}

func NewBookingHandler(repo bookingRepo.BookingRepository, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{Repo: repo, Logger: logger}
}

// GetBookingByRef fetches one booking by its reference.
func (h *BookingHandler) GetBookingByRef(c *gin.Context) {
	ref, err := strconv.ParseInt(c.Param("ref"), 10, 64)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid booking ref", c.Param("ref"))
		return
	}

	booking, err := h.Repo.GetByRef(ref)
	if errors.Is(err, bookingRepo.ErrNotFound) {
		utils.JSONError(c, http.StatusNotFound, "booking not found", c.Param("ref"))
		return
	}
	if err != nil {
		h.Logger.Error("failed to fetch booking", zap.Int64("ref", ref), zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "failed to fetch booking", "")
		return
	}

	c.JSON(http.StatusOK, booking)
}

// ListPendingBookings returns all bookings awaiting a coordinator decision.
func (h *BookingHandler) ListPendingBookings(c *gin.Context) {
	bookings, err := h.Repo.ListByStatus(models.BookingPending)
	if err != nil {
		h.Logger.Error("failed to list pending bookings", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "failed to list bookings", "")
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": len(bookings), "bookings": bookings})
}
