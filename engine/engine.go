package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/spaghettifunk/campusmap/engine/assets"
	"github.com/spaghettifunk/campusmap/engine/core"
	"github.com/spaghettifunk/campusmap/engine/features"
	"github.com/spaghettifunk/campusmap/engine/scene"
	"github.com/spaghettifunk/campusmap/engine/systems"
	"github.com/spaghettifunk/campusmap/engine/telemetry"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently booting up
	EngineStageBooting
	// Engine completed boot process and is ready to be initialized
	EngineStageBootComplete
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

type Engine struct {
	currentStage  Stage
	gameInstance  *Game
	assetManager  *assets.AssetManager
	systemManager *systems.SystemManager
	events        *core.EventSystem
	session       *scene.Session
	pipelines     []*systems.Pipeline
	clock         *core.Clock
	input         io.Reader

	quit              chan struct{}
	quitOnce          sync.Once
	shutdownOnce      sync.Once
	telemetryShutdown func(context.Context) error
}

type Option func(*Engine)

// WithInput reads toggle commands from r while running.
func WithInput(r io.Reader) Option {
	return func(e *Engine) {
		e.input = r
	}
}

// WithSourceFactory replaces the HTTP client used to query feature services.
func WithSourceFactory(fn func(url string) features.Source) Option {
	return func(e *Engine) {
		e.systemManager.Config.SourceFactory = fn
	}
}

func New(g *Game, opts ...Option) (*Engine, error) {
	cfg := g.ApplicationConfig
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	core.SetLogLevel(core.ParseLogLevel(cfg.LogLevel))

	am, err := assets.NewAssetManager()
	if err != nil {
		core.LogError("%s", err)
		return nil, err
	}

	sm, err := systems.NewSystemManager(&systems.SystemManagerConfig{
		Workers:      cfg.Workers,
		JobQueueSize: cfg.JobQueueSize,
		HTTPTimeout:  cfg.HTTPTimeout,
	}, am)
	if err != nil {
		core.LogError("%s", err)
		return nil, err
	}
	sm.Diagnostics = core.NewDiagnostics(cfg.DiagnosticsCapacity)
	g.SystemManager = sm

	e := &Engine{
		currentStage:      EngineStageBooting,
		gameInstance:      g,
		assetManager:      am,
		systemManager:     sm,
		events:            core.NewEventSystem(),
		clock:             core.NewClock(),
		quit:              make(chan struct{}),
		telemetryShutdown: func(context.Context) error { return nil },
	}
	for _, o := range opts {
		o(e)
	}
	e.currentStage = EngineStageBootComplete
	return e, nil
}

func (e *Engine) Initialize(ctx context.Context) error {
	e.currentStage = EngineStageInitializing
	cfg := e.gameInstance.ApplicationConfig

	shutdown, err := telemetry.Setup(ctx, cfg.Name, cfg.OTLPEndpoint)
	if err != nil {
		// Tracing is optional, run without it.
		core.LogWarn("tracing disabled: %s", err)
	} else {
		e.telemetryShutdown = shutdown
	}

	if err := e.assetManager.Initialize(cfg.AssetDir); err != nil {
		return err
	}

	sceneConfig, err := e.gameInstance.FnBoot()
	if err != nil {
		return err
	}
	if len(cfg.Location) == 3 {
		sceneConfig.Location.X, sceneConfig.Location.Y, sceneConfig.Location.Z = cfg.Location[0], cfg.Location[1], cfg.Location[2]
	}
	s, err := scene.New(sceneConfig)
	if err != nil {
		return err
	}
	e.systemManager.CameraSystem.SetDefault(s.Camera)

	e.session = scene.NewSession(s)
	e.session.Register(e.events)
	e.gameInstance.Session = e.session

	e.events.Register(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	e.events.Register(core.EVENT_CODE_BATCH_COMPLETE, e, e.onEvent)

	if e.pipelines, err = e.systemManager.BuildPipelines(s, e.events); err != nil {
		return err
	}

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(); err != nil {
			return err
		}
	}

	cam := e.systemManager.CameraSystem.GetDefault()
	core.LogInfo("scene '%s' ready: %d layers, %d pipelines, camera at %v heading %.0f tilt %.0f",
		s.Name, len(s.Layers), len(e.pipelines), cam.GetPosition(), cam.Heading, cam.Tilt)
	e.currentStage = EngineStageInitialized
	return nil
}

// Run launches every pipeline of the scene and, when an input is set,
// processes toggle commands. It returns once the batches are settled and
// the input is exhausted, on a quit command, or when ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	if e.currentStage != EngineStageInitialized {
		return fmt.Errorf("engine is not initialized")
	}
	e.currentStage = EngineStageRunning
	e.clock.Start()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-e.quit:
			cancel()
		case <-ctx.Done():
		}
	}()

	// Record and query failures stay inside their batch report. Only a batch
	// that could not be scheduled at all fails the group and stops the rest.
	g, gctx := errgroup.WithContext(ctx)
	for _, p := range e.pipelines {
		p := p
		g.Go(func() error {
			return batchError(p.Run(gctx))
		})
	}

	inputDone := make(chan error, 1)
	if e.input != nil {
		go func() {
			inputDone <- core.InputProcess(ctx, e.input, e.events)
		}()
	} else {
		inputDone <- nil
	}

	if err := g.Wait(); err != nil {
		return err
	}
	e.clock.Update()
	core.LogInfo("all batches settled in %s", e.clock.Elapsed())
	e.logSnapshot()

	select {
	case err := <-inputDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	case <-ctx.Done():
	}
	return nil
}

func batchError(report systems.BatchReport) error {
	if errors.Is(report.Err, core.ErrJobSystemClosed) {
		return report.Err
	}
	return nil
}

func (e *Engine) Session() *scene.Session {
	return e.session
}

func (e *Engine) Events() *core.EventSystem {
	return e.events
}

func (e *Engine) Shutdown() error {
	var err error
	e.shutdownOnce.Do(func() {
		e.currentStage = EngineStageShuttingDown
		e.requestQuit()

		if e.gameInstance.FnShutdown != nil {
			err = errors.Join(err, e.gameInstance.FnShutdown())
		}
		if e.session != nil {
			e.session.Unregister(e.events)
		}
		err = errors.Join(err,
			e.events.Shutdown(),
			e.systemManager.Shutdown(),
			e.assetManager.Shutdown(),
			e.telemetryShutdown(context.Background()),
		)
	})
	return err
}

func (e *Engine) requestQuit() {
	e.quitOnce.Do(func() { close(e.quit) })
}

func (e *Engine) logSnapshot() {
	snap := e.session.Snapshot()
	for _, l := range snap.Layers {
		core.LogInfo("layer %-12s %-8s visible=%t labels=%t graphics=%d", l.ID, l.Type, l.Visible, l.LabelsVisible, l.Graphics)
	}
	m := e.systemManager.Metrics.Snapshot()
	core.LogInfo("batches=%d failed=%d records=%d meshes=%d record failures=%d",
		m.Batches, m.FailedBatches, m.Records, m.Meshes, m.RecordFailures)
}

func (e *Engine) onEvent(code core.SystemEventCode, sender, listener interface{}, data core.EventContext) bool {
	switch code {
	case core.EVENT_CODE_APPLICATION_QUIT:
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.requestQuit()
		return true
	case core.EVENT_CODE_BATCH_COMPLETE:
		report, ok := data.Data.(systems.BatchReport)
		if !ok {
			core.LogError("wrong event associated with the event type `%d`", code)
			return false
		}
		if e.gameInstance.FnOnBatch != nil {
			e.gameInstance.FnOnBatch(report)
		}
		// Other listeners may want the report too.
		return false
	}
	return false
}
