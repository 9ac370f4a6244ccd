// Package mqtt connects the race engine to the trackside sensor bus: it
// subscribes to one finish-gate topic per track and publishes the go signal
// at race start.
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/trackside/racectl/internal/models"
	"github.com/trackside/racectl/internal/race"
)

// TriggerPayload is the marker the hall-sensor daemon publishes on a gate
// pass. Kept verbatim for wire compatibility with the deployed firmware.
const TriggerPayload = "MAGNET_ERKANNT"

// goPayload is published on the start topic at lights-out.
const goPayload = "GO"

// LapSink receives validated lap triggers. Implemented by race.Engine, which
// enforces the running-phase guard.
type LapSink interface {
	LapTrigger(track int, at time.Time) (models.Lap, error)
}

// SinkFunc adapts a function to the LapSink interface.
type SinkFunc func(track int, at time.Time) (models.Lap, error)

func (f SinkFunc) LapTrigger(track int, at time.Time) (models.Lap, error) {
	return f(track, at)
}

// Options configure the Adapter.
type Options struct {
	BrokerURL  string
	ClientID   string
	StartTopic string
	Topics     map[string]int // sensor topic → track id
}

// Adapter maintains the sensor subscriptions and the outbound start topic.
// Delivery from the bus is at-most-once (QoS 0); the adapter neither retries
// nor deduplicates, sensors emit one event per physical pass.
type Adapter struct {
	opts   Options
	client paho.Client
	sink   LapSink
	clock  race.Clock
}

// New creates an Adapter. No connection is attempted until Run.
func New(opts Options, sink LapSink, clock race.Clock) *Adapter {
	if clock == nil {
		clock = race.SystemClock()
	}
	a := &Adapter{opts: opts, sink: sink, clock: clock}

	co := paho.NewClientOptions().
		AddBroker(opts.BrokerURL).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(30 * time.Second).
		SetOnConnectHandler(a.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			// Lap capture pauses until the reconnect succeeds; the race
			// itself keeps running.
			slog.Warn("mqtt: connection lost, reconnecting", "err", err)
		})
	a.client = paho.NewClient(co)
	return a
}

// Run connects to the broker, retrying with exponential backoff until ctx is
// cancelled, then blocks until shutdown. Subscriptions are established by
// the on-connect handler so they survive broker reconnects.
func (a *Adapter) Run(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 0 // keep trying until ctx cancel

	connect := func() error {
		tok := a.client.Connect()
		tok.Wait()
		return tok.Error()
	}
	notify := func(err error, next time.Duration) {
		slog.Warn("mqtt: connect failed", "broker", a.opts.BrokerURL, "err", err, "retry_in", next)
	}
	if err := backoff.RetryNotify(connect, backoff.WithContext(bo, ctx), notify); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	slog.Info("mqtt: connected", "broker", a.opts.BrokerURL)

	<-ctx.Done()
	a.client.Disconnect(250)
	slog.Info("mqtt: disconnected")
	return nil
}

// PublishStart publishes the go signal on the start topic. Fire-and-forget:
// the engine calls this at the lights-out instant and must not block on
// broker I/O.
func (a *Adapter) PublishStart() error {
	if !a.client.IsConnectionOpen() {
		return errors.New("mqtt: not connected")
	}
	tok := a.client.Publish(a.opts.StartTopic, 0, false, goPayload)
	go func() {
		tok.Wait()
		if err := tok.Error(); err != nil {
			slog.Warn("mqtt: go signal publish failed", "topic", a.opts.StartTopic, "err", err)
		}
	}()
	return nil
}

func (a *Adapter) onConnect(c paho.Client) {
	for topic, track := range a.opts.Topics {
		if tok := c.Subscribe(topic, 0, a.handleMessage); tok.Wait() && tok.Error() != nil {
			slog.Error("mqtt: subscribe failed", "topic", topic, "err", tok.Error())
			continue
		}
		slog.Info("mqtt: subscribed", "topic", topic, "track", track)
	}
}

func (a *Adapter) handleMessage(_ paho.Client, msg paho.Message) {
	a.ingest(msg.Topic(), msg.Payload())
}

// ingest validates one sensor message and forwards it to the engine.
// Malformed payloads and out-of-phase triggers are dropped here, never
// propagated as laps.
func (a *Adapter) ingest(topic string, payload []byte) {
	trackID, ok := a.opts.Topics[topic]
	if !ok {
		slog.Warn("mqtt: message on unexpected topic dropped", "topic", topic)
		return
	}
	at, err := a.triggerTime(payload)
	if err != nil {
		slog.Warn("mqtt: malformed sensor payload dropped",
			"topic", topic, "payload", string(payload), "err", err)
		return
	}

	lap, err := a.sink.LapTrigger(trackID, at)
	switch {
	case err == nil:
		slog.Debug("mqtt: lap forwarded", "track", lap.Track, "seq", lap.Seq)
	case errors.Is(err, race.ErrNotRunning):
		// Sensors fire during setup and cooldown; intentionally silent.
		slog.Debug("mqtt: trigger outside running phase dropped", "track", trackID)
	default:
		slog.Warn("mqtt: lap trigger rejected", "track", trackID, "err", err)
	}
}

// triggerTime extracts the lap timestamp from a sensor payload. The firmware
// marker stamps the receipt time; a positive integer payload is taken as a
// unix-milliseconds timestamp from sensors that carry their own clock.
// Anything else is malformed.
func (a *Adapter) triggerTime(payload []byte) (time.Time, error) {
	s := strings.TrimSpace(string(payload))
	if s == TriggerPayload {
		return a.clock.Now(), nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil && ms > 0 {
		return time.UnixMilli(ms), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized payload %q", s)
}
