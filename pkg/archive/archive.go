// Package archive implements the optional historical-state archive: a
// fire-and-forget sink the Modeler records every successfully-applied
// STATE record into. An unconfigured archive (empty DSN) is a documented
// no-op -- the RRM core must run with it entirely absent.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/config"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/logger"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/models"
)

const (
	queueCapacity = 4096
	batchMaxSize  = 256
	flushInterval = 2 * time.Second
)

const insertHistoricalStateSQL = `
INSERT INTO public.historical_device_state (
	recorded_at,
	serial_number,
	state
) VALUES ($1, $2, $3)`

type record struct {
	serial     string
	recordedAt time.Time
	state      models.State
}

// Archive batches recorded states into Postgres without ever blocking the
// Modeler's ingest loop: RecordState enqueues onto a bounded channel and
// returns immediately, dropping (with a logged warning) if the queue is
// full rather than applying backpressure.
type Archive struct {
	pool *pgxpool.Pool
	log  logger.Logger

	queue     chan record
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New connects to cfg.DSN and returns an Archive, or (nil, nil) if DSN is
// empty -- callers pass the resulting possibly-nil *Archive straight into
// modeler.New, which treats a nil Archiver as a no-op.
func New(ctx context.Context, cfg config.ArchiveConfig, log logger.Logger) (*Archive, error) {
	if cfg.DSN == "" {
		log.Info().Msg("no archive DSN configured, historical-state archiving disabled")
		return nil, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}

	return &Archive{
		pool:  pool,
		log:   log,
		queue: make(chan record, queueCapacity),
		done:  make(chan struct{}),
	}, nil
}

// RecordState satisfies modeler.Archiver. It never blocks: a full queue
// drops the record and logs a warning, since historical archiving is a
// best-effort side channel, not a delivery guarantee the Modeler depends
// on.
func (a *Archive) RecordState(_ context.Context, serial string, state models.State) {
	if a == nil {
		return
	}

	select {
	case a.queue <- record{serial: serial, recordedAt: time.Now(), state: state}:
	default:
		a.log.Warn().Str("serial", serial).Msg("archive queue full, dropping historical-state record")
	}
}

// Run drains the queue, batching up to batchMaxSize records or flushing
// every flushInterval, whichever comes first, until ctx is canceled or
// Stop is called. It blocks until the loop exits and the final batch is
// flushed.
func (a *Archive) Run(ctx context.Context) error {
	if a == nil {
		return nil
	}

	a.wg.Add(1)
	defer a.wg.Done()
	defer a.pool.Close()

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]record, 0, batchMaxSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}

		if err := a.flush(context.WithoutCancel(ctx), batch); err != nil {
			a.log.Error().Err(err).Int("records", len(batch)).Msg("failed to flush historical-state batch")
		}

		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return ctx.Err()
		case <-a.done:
			flush()
			return nil
		case rec := <-a.queue:
			batch = append(batch, rec)
			if len(batch) >= batchMaxSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// Stop signals Run to flush and exit, and waits for it to finish.
func (a *Archive) Stop() {
	if a == nil {
		return
	}

	a.closeOnce.Do(func() { close(a.done) })
	a.wg.Wait()
}

func (a *Archive) flush(ctx context.Context, batch []record) error {
	return a.flushWith(ctx, batch, a.pool.SendBatch)
}

// flushWith builds the batch and sends it through send, letting tests
// inject a fake BatchResults instead of driving a real pgx connection.
func (a *Archive) flushWith(ctx context.Context, batch []record, send func(context.Context, *pgx.Batch) pgx.BatchResults) error {
	pgxBatch := &pgx.Batch{}

	for _, rec := range batch {
		payload, err := json.Marshal(rec.state)
		if err != nil {
			a.log.Warn().Err(err).Str("serial", rec.serial).Msg("skipping unmarshalable historical-state record")
			continue
		}

		pgxBatch.Queue(insertHistoricalStateSQL, rec.recordedAt, rec.serial, payload)
	}

	return sendBatchExecAll(ctx, pgxBatch, send, "historical-state")
}

// sendBatchExecAll drains every queued command in batch through send,
// surfacing the first command's error (if any). A nil or empty batch is a
// no-op. Factored out so tests can inject a fake BatchResults instead of a
// live pgx connection.
func sendBatchExecAll(ctx context.Context, batch *pgx.Batch, send func(context.Context, *pgx.Batch) pgx.BatchResults, operation string) (err error) {
	if batch == nil || batch.Len() == 0 {
		return nil
	}

	br := send(ctx, batch)
	defer func() {
		if closeErr := br.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("%s batch close: %w", operation, closeErr)
		}
	}()

	for i := 0; i < batch.Len(); i++ {
		if _, err = br.Exec(); err != nil {
			return fmt.Errorf("%s batch exec (command %d): %w", operation, i, err)
		}
	}

	return nil
}
