package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strconv"
    "strings"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"
)

// ConsumerConfig describes where the consumer reads from and writes to.
type ConsumerConfig struct {
    URL     string
    Queue   string // default ReservationCreatedQueue
    LogDir  string // default "logs"
    LogFile string // default "reservations.log"
}

// StartReservationConsumer connects to RabbitMQ, declares the reservation
// queue (durable) and appends every message to LogDir/LogFile in a
// single-line, human-friendly format.  It runs a reconnect loop with
// exponential backoff and returns only when ctx is cancelled.  Malformed
// messages are logged and rejected without requeue.
func StartReservationConsumer(ctx context.Context, cfg ConsumerConfig, log *zap.Logger) error {
    if cfg.Queue == "" {
        cfg.Queue = ReservationCreatedQueue
    }
    if log == nil {
        log = zap.NewNop()
    }
    log = log.Named("reservation_consumer")

    backoff := time.Second
    for {
        conn, err := amqp.Dial(cfg.URL)
        if err != nil {
            log.Warn("failed to dial broker", zap.Error(err), zap.Duration("retry_in", backoff))
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        err = consumeLoop(ctx, conn, cfg, log)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        log.Warn("consume loop ended, reconnecting", zap.Error(err))
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, cfg ConsumerConfig, log *zap.Logger) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        log.Warn("set QoS failed", zap.Error(err))
    }
    if _, err := declare(ch, cfg.Queue); err != nil {
        return err
    }

    msgs, err := ch.Consume(cfg.Queue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := handleMessage(cfg.LogDir, cfg.LogFile, d.Body); err != nil {
                log.Error("handle message failed", zap.Error(err))
                _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
                continue
            }
            _ = d.Ack(false)
        }
    }
}

func handleMessage(dir, file string, body []byte) error {
    var ev ReservationCreatedEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if dir == "" {
        dir = "logs"
    }
    if file == "" {
        file = "reservations.log"
    }
    if err := os.MkdirAll(dir, 0o755); err != nil {
        return fmt.Errorf("mkdir %s: %w", dir, err)
    }
    f, err := os.OpenFile(filepath.Join(dir, file), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    if _, err := f.WriteString(formatLine(ev)); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

func formatLine(ev ReservationCreatedEvent) string {
    nums := make([]string, 0, len(ev.TableNumbers))
    for _, n := range ev.TableNumbers {
        nums = append(nums, strconv.Itoa(n))
    }
    return fmt.Sprintf("[%s] Reservation created | event_id=%s | reservation_id=%d | customer=%q | area=%q | people=%d | date=%s | time=%s-%s | tables=[%s] | seats=%d\n",
        ev.CreatedAt, ev.EventID, ev.ReservationID, ev.CustomerRef, ev.Area, ev.PartySize, ev.Date, ev.StartTime, ev.EndTime, strings.Join(nums, ","), ev.TotalSeats)
}
