package coreevent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openDAQ/openDAQ-sub004/internal/value"
)

// MQTTPublisher is the subset of the MQTT client the MQTT sink needs.
type MQTTPublisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// MQTTSink publishes events as JSON to "<prefix>/<event>/<path>", with the
// dotted property path turned into topic levels.
type MQTTSink struct {
	client MQTTPublisher
	prefix string
	qos    byte
}

// NewMQTTSink creates an MQTT sink.
func NewMQTTSink(client MQTTPublisher, prefix string, qos byte) *MQTTSink {
	return &MQTTSink{client: client, prefix: strings.TrimSuffix(prefix, "/"), qos: qos}
}

// Name implements Sink.
func (s *MQTTSink) Name() string { return "mqtt" }

// Topic returns the topic an event is published to.
func (s *MQTTSink) Topic(args Args) string {
	topic := s.prefix + "/" + args.Name()
	if p := args.PropertyPath(); p != "" {
		topic += "/" + strings.ReplaceAll(p, ".", "/")
	}
	return topic
}

// Handle implements Sink.
func (s *MQTTSink) Handle(_ context.Context, args Args) error {
	payload, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encoding core event: %w", err)
	}
	return s.client.Publish(s.Topic(args), payload, s.qos, false)
}

// NATSPublisher is the subset of the NATS client the NATS sink needs.
type NATSPublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// NATSSink publishes events as JSON to "<prefix>.<event>.<path>".
type NATSSink struct {
	client NATSPublisher
	prefix string
}

// NewNATSSink creates a NATS sink.
func NewNATSSink(client NATSPublisher, prefix string) *NATSSink {
	return &NATSSink{client: client, prefix: strings.TrimSuffix(prefix, ".")}
}

// Name implements Sink.
func (s *NATSSink) Name() string { return "nats" }

// Subject returns the subject an event is published to.
func (s *NATSSink) Subject(args Args) string {
	subject := s.prefix + "." + args.Name()
	if p := args.PropertyPath(); p != "" {
		subject += "." + p
	}
	return subject
}

// Handle implements Sink.
func (s *NATSSink) Handle(ctx context.Context, args Args) error {
	payload, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encoding core event: %w", err)
	}
	return s.client.Publish(ctx, s.Subject(args), payload)
}

// PointWriter is the subset of the InfluxDB client the history sink needs.
type PointWriter interface {
	WritePoint(measurement string, tags map[string]string, fields map[string]interface{})
}

// HistoryMeasurement is the InfluxDB measurement numeric values go to.
const HistoryMeasurement = "property_values"

// HistorySink records numeric and boolean value changes as time series.
// Other events and values are skipped.
type HistorySink struct {
	writer PointWriter
}

// NewHistorySink creates a history sink.
func NewHistorySink(w PointWriter) *HistorySink {
	return &HistorySink{writer: w}
}

// Name implements Sink.
func (s *HistorySink) Name() string { return "history" }

// Handle implements Sink.
func (s *HistorySink) Handle(_ context.Context, args Args) error {
	switch args.ID {
	case PropertyValueChanged:
		v, _ := args.Param(ParamValue)
		s.record(args.PropertyPath(), v)
	case PropertyObjectUpdateEnd:
		v, _ := args.Param(ParamUpdatedProperties)
		updated, ok := v.(*value.Dict)
		if !ok {
			return nil
		}
		updated.Range(func(k, v any) bool {
			name, _ := k.(string)
			path := name
			if args.Path != "" {
				path = args.Path + "." + name
			}
			s.record(path, v)
			return true
		})
	}
	return nil
}

func (s *HistorySink) record(path string, v any) {
	var field any
	switch x := v.(type) {
	case int64:
		field = x
	case float64:
		field = x
	case bool:
		field = x
	case value.Enumeration:
		field = x.Int()
	case value.Ratio:
		field = x.Float64()
	default:
		return
	}
	s.writer.WritePoint(HistoryMeasurement, map[string]string{"path": path}, map[string]interface{}{"value": field})
}

// LogSink writes every event to a logger at debug level.
type LogSink struct {
	logger Logger
}

// NewLogSink creates a log sink.
func NewLogSink(l Logger) *LogSink { return &LogSink{logger: l} }

// Name implements Sink.
func (s *LogSink) Name() string { return "log" }

// Handle implements Sink.
func (s *LogSink) Handle(_ context.Context, args Args) error {
	s.logger.Debug("core event", "event", args.Name(), "path", args.PropertyPath())
	return nil
}
