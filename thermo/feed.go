// Package thermo receives live thermocouple readings over MQTT and resamples
// them to the burn.StepInterval cadence.
package thermo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"endobit.io/app/log"

	"endobit.io/burn"
)

// DefaultTopic is where the stove logger publishes readings.
const DefaultTopic = "stove/catalyst/temperature"

// ClientOptions returns paho options for a broker with connection state
// logged to logger.
func ClientOptions(logger *slog.Logger, broker, clientID, username, password string) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetUsername(username)
	opts.SetPassword(password)
	opts.SetAutoReconnect(true)
	opts.OnConnect = func(mqtt.Client) {
		logger.Info("mqtt connect", "broker", broker)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		logger.Warn("mqtt connection lost", "error", err)
	}
	opts.OnReconnecting = func(mqtt.Client, *mqtt.ClientOptions) {
		logger.Info("mqtt reconnecting")
	}

	return opts
}

type message struct {
	Temperature *float64  `json:"temperature"`
	Time        time.Time `json:"time"`
}

// Decode parses a reading payload, either a JSON object with temperature and
// optional time, or a bare number. Readings without a time are stamped now.
func Decode(payload []byte, now time.Time) (burn.Observation, error) {
	payload = bytes.TrimSpace(payload)

	if len(payload) > 0 && payload[0] == '{' {
		var msg message

		if err := json.Unmarshal(payload, &msg); err != nil {
			return burn.Observation{}, fmt.Errorf("invalid reading: %w", err)
		}

		if msg.Temperature == nil {
			return burn.Observation{}, errors.New("reading has no temperature")
		}

		if msg.Time.IsZero() {
			msg.Time = now
		}

		if !finite(*msg.Temperature) {
			return burn.Observation{}, fmt.Errorf("invalid reading: temperature %v", *msg.Temperature)
		}

		return burn.Observation{Time: msg.Time, Temperature: *msg.Temperature}, nil
	}

	v, err := strconv.ParseFloat(string(payload), 64)
	if err != nil {
		return burn.Observation{}, fmt.Errorf("invalid reading %q: %w", payload, err)
	}

	if !finite(v) {
		return burn.Observation{}, fmt.Errorf("invalid reading: temperature %v", v)
	}

	return burn.Observation{Time: now, Temperature: v}, nil
}

// Resampler averages readings into fixed width time buckets. An observation
// is emitted, stamped with its bucket start, once a reading arrives for a
// later bucket.
type Resampler struct {
	Interval time.Duration

	bucket time.Time
	sum    float64
	n      int
}

// Add folds o into the current bucket and returns the previous bucket's
// average if o starts a new one. Readings older than the current bucket are
// dropped.
func (r *Resampler) Add(o burn.Observation) (burn.Observation, bool) {
	b := o.Time.Truncate(r.Interval)

	switch {
	case r.n == 0:
		r.bucket = b
	case b.Before(r.bucket):
		return burn.Observation{}, false
	case b.After(r.bucket):
		out, _ := r.Flush()
		r.bucket = b
		r.sum, r.n = o.Temperature, 1

		return out, true
	}

	r.sum += o.Temperature
	r.n++

	return burn.Observation{}, false
}

// Flush returns the average of the current bucket, if any, and resets.
func (r *Resampler) Flush() (burn.Observation, bool) {
	if r.n == 0 {
		return burn.Observation{}, false
	}

	out := burn.Observation{Time: r.bucket, Temperature: r.sum / float64(r.n)}
	r.sum, r.n = 0, 0

	return out, true
}

// Feed subscribes to a reading topic and delivers resampled observations.
type Feed struct {
	logger *slog.Logger
	client mqtt.Client
	topic  string
	now    func() time.Time

	mu        sync.Mutex
	resampler Resampler
}

// WithLogger is an option setting function for NewFeed.
func WithLogger(logger *slog.Logger) func(*Feed) {
	return func(f *Feed) {
		f.logger = logger
	}
}

// WithTopic is an option setting function for NewFeed. The default is
// DefaultTopic.
func WithTopic(topic string) func(*Feed) {
	return func(f *Feed) {
		f.topic = topic
	}
}

// NewFeed returns a Feed reading from client.
func NewFeed(client mqtt.Client, opts ...func(*Feed)) *Feed {
	f := Feed{
		logger:    slog.New(slog.DiscardHandler),
		client:    client,
		topic:     DefaultTopic,
		now:       time.Now,
		resampler: Resampler{Interval: burn.StepInterval},
	}

	for _, o := range opts {
		o(&f)
	}

	return &f
}

// Run connects if needed, subscribes and calls fn with each resampled
// observation until ctx is done. fn is called from the MQTT client's
// goroutine.
func (f *Feed) Run(ctx context.Context, fn func(burn.Observation)) error {
	if !f.client.IsConnected() {
		if token := f.client.Connect(); token.Wait() && token.Error() != nil {
			return fmt.Errorf("cannot connect: %w", token.Error())
		}
	}

	token := f.client.Subscribe(f.topic, 1, func(_ mqtt.Client, m mqtt.Message) {
		if o, ok := f.handle(m.Payload()); ok {
			fn(o)
		}
	})

	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("cannot subscribe to %s: %w", f.topic, token.Error())
	}

	f.logger.Info("subscribed", "topic", f.topic)

	<-ctx.Done()

	f.client.Unsubscribe(f.topic).Wait()

	f.mu.Lock()
	last, ok := f.resampler.Flush()
	f.mu.Unlock()

	if ok {
		fn(last)
	}

	return ctx.Err()
}

func (f *Feed) handle(payload []byte) (burn.Observation, bool) {
	o, err := Decode(payload, f.now())
	if err != nil {
		f.logger.Warn("invalid reading", "error", err)

		return burn.Observation{}, false
	}

	f.logger.Debug("reading", log.Format("%.1f°F", "temperature", o.Temperature))

	f.mu.Lock()
	defer f.mu.Unlock()

	return f.resampler.Add(o)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
