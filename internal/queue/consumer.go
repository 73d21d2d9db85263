package queue

import (
    "encoding/json"
    "errors"
    "fmt"
    "log"
    "os"
    "path/filepath"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

// StartActivityConsumer connects to RabbitMQ, declares the booking and
// download queues (durable), and starts consuming from all of them. Each
// message is appended to logs/activity.log in a single-line,
// human-friendly format, the audit tail operators grep when a customer
// disputes a booking or a download. The function runs a reconnect loop;
// it keeps running and logs any processing errors while rejecting the
// offending message so the server continues operating.
func StartActivityConsumer() error {
    url := brokerURL()

    backoff := time.Second
    for {
        conn, err := amqp.Dial(url)
        if err != nil {
            log.Printf("activity-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
            time.Sleep(backoff)
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        if err := consumeLoop(conn); err != nil {
            log.Printf("activity-consumer: consume loop ended: %v; reconnecting", err)
            time.Sleep(2 * time.Second)
            continue
        }
    }
}

func consumeLoop(conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        log.Printf("activity-consumer: set QoS failed: %v", err)
    }

    for _, name := range []string{BookingConfirmedQueue, BookingCancelledQueue, DownloadDeliveredQueue} {
        if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
            return fmt.Errorf("queue declare %s: %w", name, err)
        }
    }

    deliveries := make(chan amqp.Delivery)
    for _, name := range []string{BookingConfirmedQueue, BookingCancelledQueue, DownloadDeliveredQueue} {
        msgs, err := ch.Consume(name, "", false, false, false, false, nil)
        if err != nil {
            return fmt.Errorf("queue consume %s: %w", name, err)
        }
        go func(queueName string, in <-chan amqp.Delivery) {
            for d := range in {
                d.RoutingKey = queueName
                deliveries <- d
            }
        }(name, msgs)
    }

    closed := make(chan *amqp.Error, 1)
    conn.NotifyClose(closed)
    for {
        select {
        case d := <-deliveries:
            if err := handleMessage(d.RoutingKey, d.Body); err != nil {
                log.Printf("activity-consumer: handle message failed: %v", err)
                _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
                continue
            }
            _ = d.Ack(false)
        case <-closed:
            return errors.New("connection closed")
        }
    }
}

func handleMessage(queueName string, body []byte) error {
    var line string
    switch queueName {
    case BookingConfirmedQueue, BookingCancelledQueue:
        var ev BookingEvent
        if err := json.Unmarshal(body, &ev); err != nil {
            return fmt.Errorf("unmarshal: %w", err)
        }
        action := "confirmed"
        if queueName == BookingCancelledQueue {
            action = "cancelled"
        }
        line = fmt.Sprintf("[%s] Booking %s | booking_id=%d | user_id=%d | event_id=%d | event=%q | attendees=%d | total=%d cents\n",
            ev.OccurredAt, action, ev.BookingID, ev.UserID, ev.EventID, ev.EventTitle, ev.Attendees, ev.TotalPriceCents)
    case DownloadDeliveredQueue:
        var ev DownloadEvent
        if err := json.Unmarshal(body, &ev); err != nil {
            return fmt.Errorf("unmarshal: %w", err)
        }
        line = fmt.Sprintf("[%s] Download delivered | user_id=%d | product_id=%d | order_id=%d | ip=%s\n",
            ev.OccurredAt, ev.UserID, ev.ProductID, ev.OrderID, ev.IPAddress)
    default:
        return fmt.Errorf("unknown queue %q", queueName)
    }

    if err := os.MkdirAll("logs", 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    fpath := filepath.Join("logs", "activity.log")
    f, err := os.OpenFile(fpath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    if _, err := f.WriteString(line); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}
