// Package remote applies property writes that arrive over MQTT.
//
// A client publishes the JSON value to <prefix>/set/<object>/<path>, where
// object is a registry ID or name and the topic levels after it form the
// dotted property path. The write goes through the public setter, so
// read-only properties, clamping and selection checks apply exactly as for
// API writes.
package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/openDAQ/openDAQ-sub004/internal/audit"
	"github.com/openDAQ/openDAQ-sub004/internal/infrastructure/mqtt"
	"github.com/openDAQ/openDAQ-sub004/internal/registry"
	"github.com/openDAQ/openDAQ-sub004/internal/status"
)

// ErrBadTopic is returned for topics that do not name an object and path.
var ErrBadTopic = errors.New("remote: topic does not address a property")

// Results reported to the write observer.
const (
	ResultApplied  = "applied"
	ResultIgnored  = "ignored"
	ResultRejected = "rejected"
)

// Subscriber is the part of the MQTT client the bridge needs.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Objects resolves the object segment of a topic.
type Objects interface {
	Lookup(idOrName string) (*registry.Entry, error)
}

// Logger is the logging interface used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Bridge subscribes to remote write topics and applies them.
type Bridge struct {
	topics  mqtt.Topics
	objects Objects
	logger  Logger
	observe func(result string)
	audit   audit.Recorder
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(b *Bridge) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithObserver sets a callback receiving the result of every write.
func WithObserver(fn func(result string)) Option {
	return func(b *Bridge) { b.observe = fn }
}

// WithAuditRecorder records every applied write.
func WithAuditRecorder(r audit.Recorder) Option {
	return func(b *Bridge) { b.audit = r }
}

// NewBridge creates a bridge for topics under prefix.
func NewBridge(prefix string, objects Objects, opts ...Option) *Bridge {
	b := &Bridge{
		topics:  mqtt.Topics{Prefix: prefix},
		objects: objects,
		logger:  noopLogger{},
		observe: func(string) {},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Start subscribes to every remote write topic.
func (b *Bridge) Start(s Subscriber, qos byte) error {
	if err := s.Subscribe(b.topics.AllSets(), qos, b.Handle); err != nil {
		return fmt.Errorf("subscribing to remote writes: %w", err)
	}
	return nil
}

// Stop removes the subscription.
func (b *Bridge) Stop(s Subscriber) error {
	return s.Unsubscribe(b.topics.AllSets())
}

// Handle applies one message. It is the MQTT message handler.
func (b *Bridge) Handle(topic string, payload []byte) error {
	err := b.apply(topic, payload)
	switch {
	case err == nil:
		b.observe(ResultApplied)
	case errors.Is(err, status.ErrIgnored):
		b.observe(ResultIgnored)
		return nil
	default:
		b.observe(ResultRejected)
	}
	return err
}

func (b *Bridge) apply(topic string, payload []byte) error {
	object, path, ok := b.topics.ParseSet(topic)
	if !ok {
		return fmt.Errorf("%w: %s", ErrBadTopic, topic)
	}
	e, err := b.objects.Lookup(object)
	if err != nil {
		return err
	}
	v, err := e.Object.DecodeValue(path, payload)
	if err != nil {
		return fmt.Errorf("%s.%s: %w", e.Name, path, err)
	}
	if err := e.Object.SetPropertyValue(path, v); err != nil {
		return fmt.Errorf("%s.%s: %w", e.Name, path, err)
	}
	b.logger.Debug("remote write applied", "object", e.Name, "path", path)
	if b.audit != nil {
		err := b.audit.Record(context.Background(), &audit.Entry{
			Action:     audit.ActionSet,
			ObjectID:   e.ID,
			ObjectName: e.Name,
			Path:       path,
			Source:     audit.SourceMQTT,
			Details:    map[string]any{"value": string(payload)},
		})
		if err != nil {
			b.logger.Warn("recording remote write failed", "object", e.Name, "path", path, "error", err)
		}
	}
	return nil
}
