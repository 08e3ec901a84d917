package scheduler

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
)

// Job is one (zone, category) schedule entry: which algorithm to run, how
// often, and with what arguments.
type Job struct {
	Zone        string            `json:"zone"`
	Category    string            `json:"category"`
	AlgorithmID string            `json:"algorithmId"`
	Interval    string            `json:"interval"`
	Args        map[string]string `json:"args,omitempty"`
}

func (j Job) key() string {
	return j.Zone + "/" + j.Category
}

// ScheduleStore resolves the current Job for a (zone, category) pair,
// letting a persisted override take precedence over the config-file
// default. A nil ScheduleStore (or one with no entry) is a documented
// no-op -- the scheduler falls back to whatever RRMConfig.Zones named.
type ScheduleStore interface {
	Get(ctx context.Context, zone, category string) (Job, bool, error)
}

// KVScheduleStore persists per-(zone,category) schedule overrides in a
// NATS JetStream key/value bucket, so they survive a scheduler restart.
// Absence of the bucket (kv == nil) degrades to the in-process defaults
// baked into RRMConfig, never a startup failure.
type KVScheduleStore struct {
	kv jetstream.KeyValue
}

// NewKVScheduleStore wraps an already-bound KV bucket. kv may be nil.
func NewKVScheduleStore(kv jetstream.KeyValue) *KVScheduleStore {
	return &KVScheduleStore{kv: kv}
}

// Get looks up the persisted override for (zone, category). A missing key
// (or a nil bucket) returns (Job{}, false, nil), never an error.
func (s *KVScheduleStore) Get(ctx context.Context, zone, category string) (Job, bool, error) {
	if s == nil || s.kv == nil {
		return Job{}, false, nil
	}

	entry, err := s.kv.Get(ctx, zone+"."+category)
	if err != nil {
		if err == jetstream.ErrKeyNotFound {
			return Job{}, false, nil
		}

		return Job{}, false, fmt.Errorf("failed to read schedule override for %s/%s: %w", zone, category, err)
	}

	var job Job
	if err := json.Unmarshal(entry.Value(), &job); err != nil {
		return Job{}, false, fmt.Errorf("failed to decode schedule override for %s/%s: %w", zone, category, err)
	}

	return job, true, nil
}

// Put persists a schedule override, so a future restart resumes it.
func (s *KVScheduleStore) Put(ctx context.Context, job Job) error {
	if s == nil || s.kv == nil {
		return nil
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode schedule override: %w", err)
	}

	if _, err := s.kv.Put(ctx, job.Zone+"."+job.Category, payload); err != nil {
		return fmt.Errorf("failed to persist schedule override for %s/%s: %w", job.Zone, job.Category, err)
	}

	return nil
}
