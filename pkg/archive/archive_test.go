package archive

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/logger"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/models"
)

var errBoom = errors.New("boom")

type fakeBatchResults struct {
	execCalls  int
	execErrAt  int
	execErr    error
	closeCalls int
}

func (f *fakeBatchResults) Exec() (pgconn.CommandTag, error) {
	defer func() { f.execCalls++ }()

	if f.execErr != nil && f.execCalls == f.execErrAt {
		return pgconn.CommandTag{}, f.execErr
	}

	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (f *fakeBatchResults) Query() (pgx.Rows, error) { return nil, errBoom }
func (f *fakeBatchResults) QueryRow() pgx.Row        { return fakeBatchRow{} }

func (f *fakeBatchResults) Close() error {
	f.closeCalls++
	return nil
}

type fakeBatchRow struct{}

func (fakeBatchRow) Scan(...any) error { return errBoom }

func TestSendBatchExecAll_EmptyBatchDoesNotSend(t *testing.T) {
	err := sendBatchExecAll(context.Background(), &pgx.Batch{}, func(context.Context, *pgx.Batch) pgx.BatchResults {
		t.Fatalf("send should not be called for an empty batch")
		return nil
	}, "test")

	require.NoError(t, err)
}

func TestSendBatchExecAll_ExecutesEveryQueuedCommand(t *testing.T) {
	batch := &pgx.Batch{}
	batch.Queue("INSERT 1")
	batch.Queue("INSERT 2")

	results := &fakeBatchResults{execErrAt: -1}

	err := sendBatchExecAll(context.Background(), batch, func(context.Context, *pgx.Batch) pgx.BatchResults {
		return results
	}, "test")

	require.NoError(t, err)
	assert.Equal(t, 2, results.execCalls)
	assert.Equal(t, 1, results.closeCalls)
}

func TestSendBatchExecAll_SurfacesExecError(t *testing.T) {
	batch := &pgx.Batch{}
	batch.Queue("INSERT 1")
	batch.Queue("INSERT 2")

	results := &fakeBatchResults{execErr: errBoom, execErrAt: 0}

	err := sendBatchExecAll(context.Background(), batch, func(context.Context, *pgx.Batch) pgx.BatchResults {
		return results
	}, "test")

	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
}

func TestRecordState_NilArchiveIsNoOp(t *testing.T) {
	var a *Archive

	assert.NotPanics(t, func() {
		a.RecordState(context.Background(), "ap1", models.State{})
	})
}

func TestRecordState_DropsWhenQueueIsFull(t *testing.T) {
	a := &Archive{log: logger.NewTest(), queue: make(chan record, 1)}

	a.RecordState(context.Background(), "ap1", models.State{})
	a.RecordState(context.Background(), "ap2", models.State{})

	assert.Len(t, a.queue, 1)

	select {
	case rec := <-a.queue:
		assert.Equal(t, "ap1", rec.serial)
	default:
		t.Fatal("expected one queued record")
	}
}

func TestFlush_QueuesOneCommandPerMarshalableRecord(t *testing.T) {
	results := &fakeBatchResults{execErrAt: -1}

	a := &Archive{
		log: logger.NewTest(),
	}

	var sent *pgx.Batch

	batch := []record{
		{serial: "ap1", recordedAt: time.Now(), state: models.State{Radios: []models.Radio{{Channel: 6}}}},
		{serial: "ap2", recordedAt: time.Now(), state: models.State{Radios: []models.Radio{{Channel: 11}}}},
	}

	err := a.flushWith(context.Background(), batch, func(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
		sent = b
		return results
	})

	require.NoError(t, err)
	require.NotNil(t, sent)
	assert.Equal(t, 2, sent.Len())
	assert.Equal(t, 2, results.execCalls)
}
