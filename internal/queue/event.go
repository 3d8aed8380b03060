// Package queue defines message payloads exchanged over the message broker
// together with the publisher and the background log consumer.
package queue

// ReservationCreatedQueue is the durable queue reservation events are
// routed to through the default exchange.
const ReservationCreatedQueue = "reservation.created"

// ReservationCreatedEvent is published after a reservation is committed.
// It carries enough information for downstream consumers to log, notify,
// or feed analytics without querying the primary database.
type ReservationCreatedEvent struct {
    EventID       string `json:"event_id"`
    ReservationID uint64 `json:"reservation_id"`
    CustomerRef   string `json:"customer_ref"`
    Area          string `json:"area"`
    PartySize     int    `json:"number_of_people"`
    Date          string `json:"reservation_date"`
    StartTime     string `json:"start_time"`
    EndTime       string `json:"end_time"`
    TableNumbers  []int  `json:"table_numbers"`
    TotalSeats    int    `json:"total_seats"`
    CreatedAt     string `json:"created_at"`
}
