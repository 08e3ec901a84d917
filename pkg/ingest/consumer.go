// Package ingest adapts the message-transport substrate into the
// Modeler's KafkaListener boundary: a durable NATS JetStream pull
// consumer that decodes STATE and WIFISCAN subjects into
// modeler.KafkaRecord batches.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/logger"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/modeler"
)

const (
	defaultMaxPullMessages = 64
	defaultPullExpiry      = 30 * time.Second
	defaultMaxRetries      = 3
)

// SubjectState and SubjectWifiScan are the JetStream subjects this
// consumer durably pulls from. SubjectServiceEvents is accepted by the
// stream but not dispatched anywhere -- mirroring the original
// collaborator's "service event records ignored" behavior.
const (
	SubjectState         = "state"
	SubjectWifiScan      = "wifiscan"
	SubjectServiceEvents = "service_events"
)

// NATSConsumer durably pulls from a JetStream stream and dispatches
// decoded records into a modeler.KafkaListener. It never touches the
// DataModel itself -- that decoupling is the point of the Modeler's own
// bounded queue.
type NATSConsumer struct {
	js           jetstream.JetStream
	streamName   string
	consumerName string
	consumer     jetstream.Consumer
	listener     modeler.KafkaListener
	log          logger.Logger
}

// NewNATSConsumer creates or attaches to a durable pull consumer on
// streamName, filtered to subject (empty means no filter).
func NewNATSConsumer(ctx context.Context, js jetstream.JetStream, streamName, consumerName, subject string, listener modeler.KafkaListener, log logger.Logger) (*NATSConsumer, error) {
	consumer, err := js.Consumer(ctx, streamName, consumerName)
	if err != nil {
		cfg := jetstream.ConsumerConfig{
			Durable:       consumerName,
			AckPolicy:     jetstream.AckExplicitPolicy,
			AckWait:       defaultPullExpiry,
			MaxDeliver:    defaultMaxRetries,
			MaxAckPending: 1000,
		}

		if subject != "" {
			cfg.FilterSubject = subject
		}

		consumer, err = js.CreateConsumer(ctx, streamName, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create consumer: %w", err)
		}
	}

	return &NATSConsumer{
		js:           js,
		streamName:   streamName,
		consumerName: consumerName,
		consumer:     consumer,
		listener:     listener,
		log:          log,
	}, nil
}

// Run pulls batches until ctx is canceled, decoding each message's
// subject into the matching KafkaListener callback.
func (c *NATSConsumer) Run(ctx context.Context) error {
	c.log.Info().Str("stream", c.streamName).Str("consumer", c.consumerName).Msg("starting pull consumer")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			msgs, err := c.consumer.Fetch(defaultMaxPullMessages, jetstream.FetchMaxWait(defaultPullExpiry))
			if err != nil {
				c.log.Warn().Err(err).Msg("failed to fetch messages")
				time.Sleep(time.Second)
				continue
			}

			var stateRecords, wifiScanRecords []modeler.KafkaRecord

			for msg := range msgs.Messages() {
				rec, kind, err := decodeMessage(msg)
				if err != nil {
					c.log.Error().Err(err).Str("subject", msg.Subject()).Msg("failed to decode message, acking to drop")
					_ = msg.Ack()
					continue
				}

				switch kind {
				case SubjectState:
					stateRecords = append(stateRecords, rec)
				case SubjectWifiScan:
					wifiScanRecords = append(wifiScanRecords, rec)
				}

				_ = msg.Ack()
			}

			if err := msgs.Error(); err != nil {
				c.log.Warn().Err(err).Msg("fetch error")
			}

			if len(stateRecords) > 0 {
				c.listener.HandleStateRecords(stateRecords)
			}

			if len(wifiScanRecords) > 0 {
				c.listener.HandleWifiScanRecords(wifiScanRecords)
			}
		}
	}
}

func decodeMessage(msg jetstream.Msg) (modeler.KafkaRecord, string, error) {
	meta, err := msg.Metadata()
	if err != nil {
		return modeler.KafkaRecord{}, "", fmt.Errorf("missing message metadata: %w", err)
	}

	headers := msg.Headers()
	serial := headers.Get("serial-number")
	if serial == "" {
		return modeler.KafkaRecord{}, "", fmt.Errorf("message missing serial-number header")
	}

	return modeler.KafkaRecord{
		SerialNumber: serial,
		TimestampMs:  meta.Timestamp.UnixMilli(),
		Payload:      append([]byte(nil), msg.Data()...),
	}, msg.Subject(), nil
}
