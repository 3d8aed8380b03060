package queue

import (
    "context"
    "net"
    "sync"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "go.uber.org/zap/zaptest"
)

// silentBroker accepts TCP connections and never answers the AMQP
// handshake.
func silentBroker(t *testing.T) string {
    t.Helper()
    ln, err := net.Listen("tcp", "127.0.0.1:0")
    require.NoError(t, err)

    var mu sync.Mutex
    var conns []net.Conn
    go func() {
        for {
            c, err := ln.Accept()
            if err != nil {
                return
            }
            mu.Lock()
            conns = append(conns, c)
            mu.Unlock()
        }
    }()
    t.Cleanup(func() {
        _ = ln.Close()
        mu.Lock()
        defer mu.Unlock()
        for _, c := range conns {
            _ = c.Close()
        }
    })
    return "amqp://guest:guest@" + ln.Addr().String() + "/"
}

func sampleEvent() ReservationCreatedEvent {
    return ReservationCreatedEvent{EventID: "ev-1", ReservationID: 1, Area: "A", TableNumbers: []int{1}}
}

func TestPublisher_UnresponsiveBrokerDoesNotBlockCaller(t *testing.T) {
    p := NewPublisher(silentBroker(t), "", PublisherOptions{DialTimeout: 200 * time.Millisecond}, zaptest.NewLogger(t))

    ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
    defer cancel()
    start := time.Now()
    for i := 0; i < 5; i++ {
        assert.NoError(t, p.PublishReservationCreated(ctx, sampleEvent()))
    }
    assert.Less(t, time.Since(start), 100*time.Millisecond)

    start = time.Now()
    require.NoError(t, p.Close())
    assert.Less(t, time.Since(start), 3*time.Second, "close gives up on a silent broker")
    assert.ErrorIs(t, p.PublishReservationCreated(context.Background(), sampleEvent()), ErrPublisherClosed)
}

func TestPublisher_SendHonoursContextDeadline(t *testing.T) {
    p := newPublisher(silentBroker(t), "", PublisherOptions{DialTimeout: time.Minute}, zaptest.NewLogger(t))

    ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
    defer cancel()
    start := time.Now()
    err := p.send(ctx, sampleEvent())
    assert.Error(t, err)
    assert.Less(t, time.Since(start), 2*time.Second)

    <-ctx.Done()
    err = p.send(ctx, sampleEvent())
    assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPublisher_FullBufferDropsEvent(t *testing.T) {
    p := newPublisher("amqp://unused/", "", PublisherOptions{Buffer: 1}, nil)

    require.NoError(t, p.PublishReservationCreated(context.Background(), sampleEvent()))
    assert.ErrorIs(t, p.PublishReservationCreated(context.Background(), sampleEvent()), ErrPublishBufferFull)
}
