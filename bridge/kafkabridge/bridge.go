// Package kafkabridge consumes a Kafka/Redpanda topic via franz-go and
// republishes every record as a local Session.Put, demonstrating an
// external feed into the loopback/session put path: a kgo.NewClient
// tuned with seed brokers, consumer group, topic, and fetch limits,
// logging partition assignment/revocation, with each polled record
// calling Session.Put.
package kafkabridge

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/zenoh-pico-go/zpico/internal/metrics"
	"github.com/zenoh-pico-go/zpico/internal/session"
)

// Config configures Bridge.
type Config struct {
	Brokers       []string
	ConsumerGroup string
	Topic         string
	// KeyExpr is the key-expression prefix each record is published
	// under; the record's Kafka key, if present, is appended as one
	// more chunk (e.g. KeyExpr "kafka/**" + record key "sensor-1"
	// publishes to "kafka/sensor-1").
	KeyExpr string
	Logger  zerolog.Logger
}

// Bridge owns one franz-go client and republishes every record it reads
// as a put() on the target session.
type Bridge struct {
	client *kgo.Client
	sess   *session.Session
	keyExpr string
	logger zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a Bridge that will publish onto sess once Start is called.
func New(cfg Config, sess *session.Session) (*Bridge, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafkabridge: at least one broker is required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafkabridge: topic is required")
	}
	if cfg.ConsumerGroup == "" {
		return nil, fmt.Errorf("kafkabridge: consumer group is required")
	}

	ctx, cancel := context.WithCancel(context.Background())

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.ConsumerGroup),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtEnd()),
		kgo.FetchMaxWait(500*time.Millisecond),
		kgo.FetchMinBytes(1),
		kgo.FetchMaxBytes(10*1024*1024),
		kgo.SessionTimeout(30*time.Second),
		kgo.RebalanceTimeout(60*time.Second),
		kgo.OnPartitionsAssigned(func(_ context.Context, _ *kgo.Client, assigned map[string][]int32) {
			cfg.Logger.Info().Interface("partitions", assigned).Msg("kafkabridge: partitions assigned")
		}),
		kgo.OnPartitionsRevoked(func(_ context.Context, _ *kgo.Client, revoked map[string][]int32) {
			cfg.Logger.Info().Interface("partitions", revoked).Msg("kafkabridge: partitions revoked")
		}),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("kafkabridge: create client: %w", err)
	}

	keyExpr := strings.TrimSuffix(cfg.KeyExpr, "/**")

	return &Bridge{
		client:  client,
		sess:    sess,
		keyExpr: keyExpr,
		logger:  cfg.Logger,
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Start begins the consume loop in a background goroutine.
func (b *Bridge) Start() {
	b.logger.Info().Msg("kafkabridge: starting")
	b.wg.Add(1)
	go b.consumeLoop()
}

// Stop cancels the consume loop, waits for it to exit, and closes the
// underlying client.
func (b *Bridge) Stop() {
	b.logger.Info().Msg("kafkabridge: stopping")
	b.cancel()
	b.wg.Wait()
	b.client.Close()
}

func (b *Bridge) consumeLoop() {
	defer b.wg.Done()
	for {
		select {
		case <-b.ctx.Done():
			return
		default:
		}
		fetches := b.client.PollFetches(b.ctx)
		if b.ctx.Err() != nil {
			return
		}
		for _, err := range fetches.Errors() {
			b.logger.Error().Err(err.Err).Str("topic", err.Topic).Int32("partition", err.Partition).Msg("kafkabridge: fetch error")
		}
		fetches.EachRecord(func(record *kgo.Record) {
			b.publishRecord(record)
		})
	}
}

func (b *Bridge) publishRecord(record *kgo.Record) {
	metrics.RecordKafkaConsumed()

	key := b.keyExpr
	if len(record.Key) > 0 {
		key = key + "/" + string(record.Key)
	}

	if err := b.sess.Put(key, record.Value, session.PutOptions{
		AllowedDestination: session.LocalityAny,
	}); err != nil {
		metrics.RecordKafkaPublishError()
		b.logger.Warn().Err(err).Str("key", key).Msg("kafkabridge: put failed")
		return
	}
	metrics.RecordKafkaPublished()
}
