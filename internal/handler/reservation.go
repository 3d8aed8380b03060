package handler

import (
    "context"
    "errors"
    "fmt"
    "net/http"
    "time"

    "github.com/go-playground/validator/v10"
    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/restaurant-table-reservation/internal/middleware"
    "github.com/iliyamo/restaurant-table-reservation/internal/model"
    "github.com/iliyamo/restaurant-table-reservation/internal/policy"
    "github.com/iliyamo/restaurant-table-reservation/internal/service"
)

// BookingWindowDays is how far ahead reservations and day listings may
// be requested.
const BookingWindowDays = 7

// ReservationService is what the reservation endpoints need from the
// service layer.
type ReservationService interface {
    Create(ctx context.Context, in service.CreateInput) (*model.ReservationRequest, error)
    ReservationsForDay(ctx context.Context, day time.Time) (model.DayAggregate, error)
}

// ReservationHandler serves the public reservation endpoints.  Requests
// are validated here (format, booking window, opening hours); seating
// decisions and the same-day lead time belong to the service.
type ReservationHandler struct {
    svc      ReservationService
    hours    policy.OpeningHours
    loc      *time.Location
    now      func() time.Time
    validate *validator.Validate
    log      *zap.Logger
}

// NewReservationHandler constructs a ReservationHandler.  loc is the
// restaurant time zone in which "today" and weekdays are evaluated.
func NewReservationHandler(svc ReservationService, hours policy.OpeningHours, loc *time.Location, log *zap.Logger) *ReservationHandler {
    if svc == nil || hours == nil {
        panic("nil dependency passed to NewReservationHandler")
    }
    if loc == nil {
        loc = time.UTC
    }
    if log == nil {
        log = zap.NewNop()
    }
    return &ReservationHandler{
        svc:      svc,
        hours:    hours,
        loc:      loc,
        now:      time.Now,
        validate: newValidator(),
        log:      log.Named("reservation_handler"),
    }
}

type dayQuery struct {
    Day string `query:"day" validate:"required,datetime=2006-01-02"`
}

type createReservationRequest struct {
    Day            string `json:"day" validate:"required,datetime=2006-01-02"`
    Hour           string `json:"hour" validate:"required,datetime=15:04"`
    NumberOfPeople int    `json:"number_of_people" validate:"required,min=1,max=20"`
}

// reservationResponse is the JSON form of a created reservation.
type reservationResponse struct {
    ID              uint64        `json:"id"`
    CustomerRef     string        `json:"customer_ref"`
    Area            string        `json:"area"`
    NumberOfPeople  int           `json:"number_of_people"`
    ReservationDate string        `json:"reservation_date"`
    StartTime       model.Clock   `json:"start_time"`
    EndTime         model.Clock   `json:"end_time"`
    Tables          []model.Table `json:"tables"`
    TotalSeats      int           `json:"total_seats"`
    CreatedAt       time.Time     `json:"created_at"`
}

func newReservationResponse(r *model.ReservationRequest) reservationResponse {
    return reservationResponse{
        ID:              r.ID,
        CustomerRef:     r.CustomerRef,
        Area:            r.Area,
        NumberOfPeople:  r.PartySize,
        ReservationDate: r.ReservationDate(),
        StartTime:       r.StartTime,
        EndTime:         r.EndTime,
        Tables:          r.Tables,
        TotalSeats:      model.TotalSeats(r.Tables),
        CreatedAt:       r.CreatedAt,
    }
}

// ReservationsPerDay handles GET /v1/reservations-per-day?day=YYYY-MM-DD.
// It returns the day's reservations grouped by area.
func (h *ReservationHandler) ReservationsPerDay(c echo.Context) error {
    var q dayQuery
    if err := c.Bind(&q); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid query"})
    }
    if err := h.validate.Struct(q); err != nil {
        return validationFailed(c, validationDetails(err))
    }
    day, detail := h.parseBookableDay(q.Day)
    if detail != nil {
        return validationFailed(c, []ValidationDetail{*detail})
    }

    agg, err := h.svc.ReservationsForDay(c.Request().Context(), day)
    if err != nil {
        middleware.Logger(c, h.log).Error("reservations per day failed", zap.Error(err))
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "message": "Reservations retrieved successfully.",
        "data":    agg,
    })
}

// CreateReservationRequest handles POST /v1/reservation-requests.  The
// body is {"day": "YYYY-MM-DD", "hour": "HH:MM", "number_of_people": n}.
// It answers 201 with the reservation, 400 on validation errors, 409
// when nothing is available or concurrent bookings won, and 422 when a
// same-day request is inside the minimum lead time.
func (h *ReservationHandler) CreateReservationRequest(c echo.Context) error {
    var body createReservationRequest
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if err := h.validate.Struct(body); err != nil {
        return validationFailed(c, validationDetails(err))
    }
    day, detail := h.parseBookableDay(body.Day)
    if detail != nil {
        return validationFailed(c, []ValidationDetail{*detail})
    }
    start, err := model.ParseClock(body.Hour)
    if err != nil {
        return validationFailed(c, []ValidationDetail{{Field: "hour", Message: "Must be a time formatted HH:MM (e.g. 14:30)"}})
    }
    if !h.hours.IsOpen(day.Weekday(), start.Hour()) {
        return validationFailed(c, []ValidationDetail{{Field: "hour", Message: h.closedMessage(day.Weekday())}})
    }

    res, err := h.svc.Create(c.Request().Context(), service.CreateInput{
        Day:         day,
        Start:       start,
        PartySize:   body.NumberOfPeople,
        CustomerRef: middleware.CustomerRef(c),
    })
    if err != nil {
        return h.createError(c, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{
        "message":             "Reservation request created successfully.",
        "reservation_request": newReservationResponse(res),
    })
}

func (h *ReservationHandler) createError(c echo.Context, err error) error {
    switch {
    case errors.Is(err, service.ErrInvalidTimeWindow):
        return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
    case errors.Is(err, service.ErrNoAvailability):
        return c.JSON(http.StatusConflict, echo.Map{"error": service.ErrNoAvailability.Error()})
    case errors.Is(err, service.ErrConcurrencyConflict):
        return c.JSON(http.StatusConflict, echo.Map{"error": "the selected tables were just booked, please try again"})
    case errors.Is(err, service.ErrInvalidPartySize):
        return validationFailed(c, []ValidationDetail{{Field: "number_of_people", Message: "Must be at least 1"}})
    case errors.Is(err, context.Canceled):
        return c.NoContent(499)
    default:
        middleware.Logger(c, h.log).Error("create reservation failed", zap.Error(err))
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
    }
}

// parseBookableDay parses s as a calendar day in the restaurant time
// zone and checks it lies between today and today plus the booking
// window.
func (h *ReservationHandler) parseBookableDay(s string) (time.Time, *ValidationDetail) {
    day, err := time.ParseInLocation(model.DateLayout, s, h.loc)
    if err != nil {
        return time.Time{}, &ValidationDetail{Field: "day", Message: "Must be a date formatted YYYY-MM-DD"}
    }
    y, m, d := h.now().In(h.loc).Date()
    today := time.Date(y, m, d, 0, 0, 0, 0, h.loc)
    if day.Before(today) {
        return time.Time{}, &ValidationDetail{Field: "day", Message: "Must be today or later"}
    }
    if day.After(today.AddDate(0, 0, BookingWindowDays)) {
        return time.Time{}, &ValidationDetail{Field: "day", Message: fmt.Sprintf("Must be at most %d days ahead", BookingWindowDays)}
    }
    return day, nil
}

func (h *ReservationHandler) closedMessage(wd time.Weekday) string {
    if d, ok := h.hours.(interface{ Describe(time.Weekday) string }); ok {
        return fmt.Sprintf("On %s reservations are only available %s", wd, d.Describe(wd))
    }
    return fmt.Sprintf("The restaurant does not take reservations at that hour on %s", wd)
}

func validationFailed(c echo.Context, details []ValidationDetail) error {
    return c.JSON(http.StatusBadRequest, echo.Map{
        "error":   "validation failed",
        "details": details,
    })
}
