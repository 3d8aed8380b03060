package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"
)

// ErrPublishBufferFull is returned when events arrive faster than the
// broker accepts them and the buffer is exhausted.
var ErrPublishBufferFull = errors.New("publish buffer full")

// ErrPublisherClosed is returned by PublishReservationCreated after Close.
var ErrPublisherClosed = errors.New("publisher closed")

// PublisherOptions tunes the background sender.
type PublisherOptions struct {
    Buffer      int           // queued events, default 256
    DialTimeout time.Duration // TCP connect plus AMQP handshake, default 3s
    SendTimeout time.Duration // budget per event including a re-dial, default 5s
}

// Publisher sends ReservationCreatedEvent messages to RabbitMQ.  Events
// are queued in memory and delivered by a single goroutine, so callers
// never wait on the broker.  The connection is dialed lazily and
// re-dialed after a failure; a broker outage costs dropped events, logged,
// and never blocks a request.
type Publisher struct {
    url   string
    queue string
    opts  PublisherOptions
    log   *zap.Logger

    events chan ReservationCreatedEvent
    done   chan struct{}
    closed sync.Once
    wg     sync.WaitGroup

    // owned by the sender goroutine
    conn *amqp.Connection
    ch   *amqp.Channel
}

// NewPublisher returns a started Publisher for the broker at url.  An
// empty queue name selects ReservationCreatedQueue.
func NewPublisher(url, queue string, opts PublisherOptions, log *zap.Logger) *Publisher {
    p := newPublisher(url, queue, opts, log)
    p.wg.Add(1)
    go p.run()
    return p
}

func newPublisher(url, queue string, opts PublisherOptions, log *zap.Logger) *Publisher {
    if queue == "" {
        queue = ReservationCreatedQueue
    }
    if opts.Buffer <= 0 {
        opts.Buffer = 256
    }
    if opts.DialTimeout <= 0 {
        opts.DialTimeout = 3 * time.Second
    }
    if opts.SendTimeout <= 0 {
        opts.SendTimeout = 5 * time.Second
    }
    if log == nil {
        log = zap.NewNop()
    }
    return &Publisher{
        url:    url,
        queue:  queue,
        opts:   opts,
        log:    log.Named("publisher"),
        events: make(chan ReservationCreatedEvent, opts.Buffer),
        done:   make(chan struct{}),
    }
}

// PublishReservationCreated queues ev for delivery and returns at once.
func (p *Publisher) PublishReservationCreated(ctx context.Context, ev ReservationCreatedEvent) error {
    select {
    case <-p.done:
        return ErrPublisherClosed
    default:
    }
    select {
    case p.events <- ev:
        return nil
    default:
        p.log.Warn("event dropped", zap.Error(ErrPublishBufferFull), zap.Uint64("reservation_id", ev.ReservationID))
        return ErrPublishBufferFull
    }
}

func (p *Publisher) run() {
    defer p.wg.Done()
    for {
        select {
        case ev := <-p.events:
            p.deliver(ev)
        case <-p.done:
            p.drain()
            p.reset()
            return
        }
    }
}

// drain delivers what is still buffered, stopping at the first failure.
func (p *Publisher) drain() {
    for {
        select {
        case ev := <-p.events:
            if !p.deliver(ev) {
                if n := len(p.events); n > 0 {
                    p.log.Warn("events dropped on shutdown", zap.Int("count", n))
                }
                return
            }
        default:
            return
        }
    }
}

func (p *Publisher) deliver(ev ReservationCreatedEvent) bool {
    ctx, cancel := context.WithTimeout(context.Background(), p.opts.SendTimeout)
    defer cancel()
    if err := p.send(ctx, ev); err != nil {
        p.log.Warn("publish failed", zap.Error(err), zap.Uint64("reservation_id", ev.ReservationID))
        return false
    }
    return true
}

// send publishes ev as a persistent JSON message on the reservation queue.
func (p *Publisher) send(ctx context.Context, ev ReservationCreatedEvent) error {
    body, err := json.Marshal(ev)
    if err != nil {
        return fmt.Errorf("marshal event: %w", err)
    }
    ch, err := p.channel(ctx)
    if err != nil {
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        MessageId:    ev.EventID,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx,
        "",      // default exchange
        p.queue, // routing key = queue name
        false,   // mandatory
        false,   // immediate
        pub,
    ); err != nil {
        p.reset()
        return fmt.Errorf("publish: %w", err)
    }
    return nil
}

// channel returns the open channel, dialing and declaring the queue when
// needed.  The dial is bounded by DialTimeout and by ctx's deadline.
func (p *Publisher) channel(ctx context.Context) (*amqp.Channel, error) {
    if p.ch != nil && !p.ch.IsClosed() {
        return p.ch, nil
    }
    p.reset()

    timeout := p.opts.DialTimeout
    if dl, ok := ctx.Deadline(); ok {
        if left := time.Until(dl); left < timeout {
            timeout = left
        }
    }
    if err := ctx.Err(); err != nil || timeout <= 0 {
        return nil, fmt.Errorf("dial: %w", context.DeadlineExceeded)
    }
    conn, err := amqp.DialConfig(p.url, amqp.Config{
        Dial:   amqp.DefaultDial(timeout),
        Locale: "en_US",
    })
    if err != nil {
        return nil, fmt.Errorf("dial: %w", err)
    }
    ch, err := conn.Channel()
    if err != nil {
        _ = conn.Close()
        return nil, fmt.Errorf("channel open: %w", err)
    }
    if _, err := declare(ch, p.queue); err != nil {
        _ = ch.Close()
        _ = conn.Close()
        return nil, err
    }
    p.conn, p.ch = conn, ch
    return ch, nil
}

func (p *Publisher) reset() {
    if p.ch != nil {
        _ = p.ch.Close()
        p.ch = nil
    }
    if p.conn != nil {
        _ = p.conn.Close()
        p.conn = nil
    }
}

// Close stops accepting events, flushes the buffer while the broker
// answers and releases the connection.
func (p *Publisher) Close() error {
    p.closed.Do(func() { close(p.done) })
    p.wg.Wait()
    return nil
}

// declare ensures the queue exists.  Durable so messages survive broker
// restarts.
func declare(ch *amqp.Channel, queue string) (amqp.Queue, error) {
    q, err := ch.QueueDeclare(
        queue, // name
        true,  // durable
        false, // autoDelete
        false, // exclusive
        false, // noWait
        nil,   // args
    )
    if err != nil {
        return q, fmt.Errorf("queue declare: %w", err)
    }
    return q, nil
}

// NopPublisher drops every event.  It is used when no broker is
// configured.
type NopPublisher struct{}

// PublishReservationCreated implements the publisher contract.
func (NopPublisher) PublishReservationCreated(context.Context, ReservationCreatedEvent) error {
    return nil
}
