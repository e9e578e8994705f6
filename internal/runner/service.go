// -----------------------------------------------------------------------
// Simulation Runner Service - Start/cancel/query surface over the registry
// -----------------------------------------------------------------------

package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/hydrun/internal/common"
	"github.com/ternarybob/hydrun/internal/interfaces"
	"github.com/ternarybob/hydrun/internal/models"
)

// Service implements interfaces.SimulationRunner. Each started job gets
// its own monitor goroutine; concurrency is caller-controlled with no
// queue or limit.
type Service struct {
	registry  *Registry
	launcher  *Launcher
	extractor *Extractor
	verifier  *Verifier
	sink      interfaces.StatusSink
	events    interfaces.EventService
	logger    arbor.ILogger

	pollInterval time.Duration
	cancelGrace  time.Duration
}

// noopSink discards transitions when no persistence sink is wired
type noopSink struct{}

func (noopSink) JobUpdated(context.Context, models.Job) {}
func (noopSink) JobEnded(context.Context, models.Job)   {}

// NewService wires the runner from configuration. sink and events may be
// nil for embedded use.
func NewService(cfg *common.Config, sink interfaces.StatusSink, events interfaces.EventService, logger arbor.ILogger) *Service {
	if sink == nil {
		sink = noopSink{}
	}
	sim := cfg.Simulation
	return &Service{
		registry:     NewRegistry(logger),
		launcher:     NewLauncher(logger),
		extractor:    NewExtractor(logger, sim.LogTailLines, sim.EstimateAfterDuration(), sim.HeuristicCapPC),
		verifier:     NewVerifier(logger),
		sink:         sink,
		events:       events,
		logger:       logger,
		pollInterval: sim.PollIntervalDuration(),
		cancelGrace:  sim.CancelGraceDuration(),
	}
}

// Start registers the name, launches the solver, and spawns the monitor.
// Launch failures leave nothing registered and the job never advances
// past preparing.
func (s *Service) Start(ctx context.Context, job *models.Job) (*models.Job, error) {
	if job.Name == "" {
		return nil, fmt.Errorf("job name required")
	}
	if job.Protocol == "" {
		job.Protocol = models.ProtocolStructured
	}
	job.ID = common.NewRunID()
	job.Status = models.JobStatusPreparing

	log := s.logger.WithCorrelationId(job.Name)

	monitorCtx, cancelMonitor := context.WithCancel(context.Background())
	entry, err := s.registry.add(job, cancelMonitor)
	if err != nil {
		cancelMonitor()
		return nil, err
	}

	var handle *launchHandle
	var launchErr error
	entry.update(func(j *models.Job) {
		j.Status = models.JobStatusStarting
		handle, launchErr = s.launcher.Launch(j)
		if launchErr != nil {
			j.Status = models.JobStatusPreparing
			return
		}
		j.StartedAt = time.Now()
	})
	if launchErr != nil {
		s.registry.remove(job.Name)
		cancelMonitor()
		log.Warn().Err(launchErr).Msg("Launch failed")
		return nil, launchErr
	}

	m := &monitor{
		entry:        entry,
		handle:       handle,
		registry:     s.registry,
		extractor:    s.extractor,
		verifier:     s.verifier,
		sink:         s.sink,
		events:       s.events,
		logger:       log,
		pollInterval: s.pollInterval,
		cancelGrace:  s.cancelGrace,
	}
	common.SafeGo(log, "job-monitor-"+job.Name, func() {
		m.run(monitorCtx)
	})

	snapshot := entry.snapshot()
	s.sink.JobUpdated(ctx, snapshot)
	return &snapshot, nil
}

// Cancel flags the job cancelled and wakes its monitor, which owns the
// terminate/grace/kill sequence. Returns ErrJobNotFound for inactive
// names; the caller is never blocked on process death.
func (s *Service) Cancel(name string) error {
	entry, ok := s.registry.get(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	entry.cancelled.Store(true)
	entry.cancelMonitor()
	s.logger.Info().Str("job", name).Msg("Cancellation requested")
	return nil
}

// Get returns a snapshot of an active job
func (s *Service) Get(name string) (models.Job, error) {
	return s.registry.Get(name)
}

// List returns snapshots of all active jobs
func (s *Service) List() []models.Job {
	return s.registry.List()
}

// Subscribe registers a per-job observer
func (s *Service) Subscribe(name string, observer interfaces.JobObserver) (string, error) {
	return s.registry.Subscribe(name, observer)
}

// Unsubscribe removes a per-job observer
func (s *Service) Unsubscribe(name, subscriptionID string) error {
	return s.registry.Unsubscribe(name, subscriptionID)
}
