// Command owrrm is the RRM control-plane entrypoint: it loads
// configuration, wires every collaborator (device gateway, provisioning
// monitor, ingest consumer, modeler, scheduler, config applier, archive,
// and the northbound REST API), and runs them until an interrupt signal
// or a one-shot manual trigger completes.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/algorithms"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/algorithms/channel"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/algorithms/steering"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/algorithms/tpc"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/api"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/archive"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/config"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/configapplier"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/gwclient"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/ingest"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/logger"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/modeler"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/provmonitor"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/registry"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/scheduler"
)

const scheduleOverrideBucket = "owrrm-schedule-overrides"

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "/etc/owrrm/owrrm.json", "path to the RRM config file")
	runOnce := flag.String("run-once", "", "run the named algorithm category once for every configured zone, then exit (\"TPC\", \"CHANNEL\", or \"CLIENT_STEERING\")")
	dryRun := flag.Bool("dry-run", false, "with -run-once, compute and log actions without dispatching them to the device gateway")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(cfg.Logger)

	devices := registry.New()
	algos := buildAlgorithmRegistry()

	gw := gwclient.New(cfg.Gateway, log.WithComponent("gwclient"))

	arc, err := archive.New(ctx, cfg.Archive, log.WithComponent("archive"))
	if err != nil {
		return fmt.Errorf("failed to initialize archive: %w", err)
	}

	model := modeler.New(cfg.Modeler, devices, gw, arc, log.WithComponent("modeler"))

	prov := provmonitor.New(cfg.Provisioning, devices, model, log.WithComponent("provmonitor"))

	applier := configapplier.New(gw, model, log.WithComponent("configapplier"))

	js, store, err := connectJetStream(ctx, cfg.Ingest)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS JetStream: %w", err)
	}

	sched := scheduler.New(cfg.Zones, store, algos, devices, model, applier, log.WithComponent("scheduler"))

	if *runOnce != "" {
		return runOnceAndExit(ctx, sched, cfg.Zones, *runOnce, *dryRun, log)
	}

	stateConsumer, err := ingest.NewNATSConsumer(ctx, js, cfg.Ingest.StreamName, cfg.Ingest.ConsumerName+"-state", ingest.SubjectState, model, log.WithComponent("ingest"))
	if err != nil {
		return fmt.Errorf("failed to build state consumer: %w", err)
	}

	scanConsumer, err := ingest.NewNATSConsumer(ctx, js, cfg.Ingest.StreamName, cfg.Ingest.ConsumerName+"-wifiscan", ingest.SubjectWifiScan, model, log.WithComponent("ingest"))
	if err != nil {
		return fmt.Errorf("failed to build wifi-scan consumer: %w", err)
	}

	apiServer := api.New(devices, model, sched, log.WithComponent("api"))
	httpServer := &http.Server{
		Addr:              cfg.REST.ListenAddr,
		Handler:           apiServer.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 6)

	go func() { errCh <- model.Run(ctx) }()
	go func() { errCh <- stateConsumer.Run(ctx) }()
	go func() { errCh <- scanConsumer.Run(ctx) }()
	go func() { errCh <- prov.Run(ctx) }()
	if arc != nil {
		go func() { errCh <- arc.Run(ctx) }()
	}
	go func() { errCh <- sched.Start(ctx) }()

	go func() {
		log.Info().Str("addr", cfg.REST.ListenAddr).Msg("starting REST API server")

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("REST API server failed: %w", err)
			return
		}

		errCh <- nil
	}()

	var runErr error

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case runErr = <-errCh:
		if runErr != nil {
			log.Error().Err(runErr).Msg("a component exited unexpectedly, shutting down")
		}

		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpServer.Shutdown(shutdownCtx)
	prov.Stop()
	sched.Stop()
	arc.Stop()

	return runErr
}

// connectJetStream dials cfg.NATSURL and binds the schedule-override KV
// bucket. If the bucket cannot be bound it is created on the fly; if that
// also fails, it degrades to a KVScheduleStore with no bucket (which
// reports no overrides) rather than failing startup, since persisted
// overrides are a convenience, not a correctness requirement.
func connectJetStream(ctx context.Context, cfg config.IngestConfig) (jetstream.JetStream, *scheduler.KVScheduleStore, error) {
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS at %q: %w", cfg.NATSURL, err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	if _, err := js.Stream(ctx, cfg.StreamName); err != nil {
		if _, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
			Name:     cfg.StreamName,
			Subjects: []string{ingest.SubjectState, ingest.SubjectWifiScan, ingest.SubjectServiceEvents},
		}); err != nil {
			return nil, nil, fmt.Errorf("failed to create stream %q: %w", cfg.StreamName, err)
		}
	}

	kv, err := js.KeyValue(ctx, scheduleOverrideBucket)
	if err != nil {
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{Bucket: scheduleOverrideBucket})
		if err != nil {
			return js, scheduler.NewKVScheduleStore(nil), nil
		}
	}

	return js, scheduler.NewKVScheduleStore(kv), nil
}

// buildAlgorithmRegistry registers every algorithm implementation this
// binary ships with, keyed by the stable IDs the config file's
// ZoneSchedule.AlgorithmID and the REST API's manual-trigger override
// refer to.
func buildAlgorithmRegistry() *algorithms.Registry {
	reg := algorithms.NewRegistry()

	reg.RegisterTPC("measure_ap_ap", []string{"coverageThreshold", "nthSmallestRssi"}, tpc.Factory)

	reg.RegisterChannel("random", []string{"seed"}, channel.RandomChannelFactory)
	reg.RegisterChannel("least_used", []string{"unmanagedWeight"}, channel.LeastUsedChannelFactory)
	reg.RegisterChannel("unmanaged_ap_aware", []string{"unmanagedWeight", "rssiWeight"}, channel.UnmanagedApAwareChannelFactory)

	reg.RegisterClientSteering("band", []string{"minRssi2G", "maxRssi2G", "minRssiNon2G", "backoffTimeNs"}, steering.Factory)

	return reg
}

// runOnceAndExit drives every configured zone through one manual run of
// category, then exits -- a CLI surface for operational scripting and CI
// smoke checks, as opposed to the long-running scheduler loop.
func runOnceAndExit(ctx context.Context, sched *scheduler.RRMScheduler, zones []config.ZoneSchedule, category string, dryRun bool, log logger.Logger) error {
	seen := make(map[string]bool)

	var firstErr error

	for _, z := range zones {
		if z.Category != category || seen[z.Zone] {
			continue
		}

		seen[z.Zone] = true

		runID, err := sched.TriggerManual(ctx, z.Zone, category, "", nil, dryRun)
		if err != nil {
			log.Error().Err(err).Str("zone", z.Zone).Str("category", category).Msg("run-once failed")

			if firstErr == nil {
				firstErr = err
			}

			continue
		}

		log.Info().Str("zone", z.Zone).Str("category", category).Str("runId", runID).Msg("run-once completed")
	}

	return firstErr
}
