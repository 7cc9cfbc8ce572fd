package systems

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/spaghettifunk/campusmap/engine/core"
	"github.com/spaghettifunk/campusmap/engine/features"
	"github.com/spaghettifunk/campusmap/engine/renderer/metadata"
)

var tracer = otel.Tracer("github.com/spaghettifunk/campusmap/engine/systems")

// DisplayCollection receives the graphics produced by a pipeline. It must
// be safe for concurrent use.
type DisplayCollection interface {
	Add(g *metadata.Graphic)
}

// BatchReport summarizes one pipeline run.
type BatchReport struct {
	Pipeline string
	Fetched  int
	Appended int
	Failed   int
	// Records not converted, or not appended, because the batch was cancelled.
	Skipped int
	// Set when the query failed; nothing was appended then.
	Err     error
	Elapsed time.Duration
}

// Batch is a running pipeline invocation.
type Batch struct {
	done   chan struct{}
	report BatchReport
}

// Done is closed once the batch has finished.
func (b *Batch) Done() <-chan struct{} {
	return b.done
}

// Wait blocks until every record of the batch is settled.
func (b *Batch) Wait() BatchReport {
	<-b.done
	return b.report
}

type PipelineConfig struct {
	Name  string
	Query features.Query
	// Convert records on the job system. When false, records are converted
	// one after the other on the batch goroutine.
	Concurrent bool
}

// Pipeline queries a feature source and appends one graphic per
// successfully converted record to a display collection. A failing record
// is reported and skipped, a failing query aborts the whole batch.
type Pipeline struct {
	Config      PipelineConfig
	source      features.Source
	converter   RecordConverter
	collection  DisplayCollection
	jobSystem   *JobSystem
	diagnostics *core.Diagnostics
	metrics     *core.Metrics
	events      *core.EventSystem
}

type PipelineOption func(*Pipeline)

func WithJobSystem(js *JobSystem) PipelineOption {
	return func(p *Pipeline) {
		p.jobSystem = js
	}
}

func WithMetrics(m *core.Metrics) PipelineOption {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithEvents fires EVENT_CODE_BATCH_COMPLETE with the BatchReport when a
// batch finishes.
func WithEvents(es *core.EventSystem) PipelineOption {
	return func(p *Pipeline) {
		p.events = es
	}
}

func NewPipeline(config PipelineConfig, source features.Source, converter RecordConverter, collection DisplayCollection, diagnostics *core.Diagnostics, opts ...PipelineOption) (*Pipeline, error) {
	if source == nil || converter == nil || collection == nil {
		return nil, fmt.Errorf("%w: pipeline '%s' needs a source, a converter and a collection", core.ErrInvalidConfig, config.Name)
	}
	if diagnostics == nil {
		diagnostics = core.NewDiagnostics(0)
	}
	p := &Pipeline{
		Config:      config,
		source:      source,
		converter:   converter,
		collection:  collection,
		diagnostics: diagnostics,
	}
	for _, o := range opts {
		o(p)
	}
	if p.Config.Concurrent && p.jobSystem == nil {
		return nil, fmt.Errorf("%w: pipeline '%s' is concurrent but has no job system", core.ErrInvalidConfig, config.Name)
	}
	return p, nil
}

// Start runs one batch in the background. Cancelling ctx stops records not
// yet converted and suppresses any further append.
func (p *Pipeline) Start(ctx context.Context) *Batch {
	b := &Batch{done: make(chan struct{})}
	go func() {
		defer close(b.done)
		b.report = p.run(ctx)
		if p.events != nil {
			p.events.Fire(core.EVENT_CODE_BATCH_COMPLETE, p, core.EventContext{Data: b.report})
		}
	}()
	return b
}

// Run is Start followed by Wait.
func (p *Pipeline) Run(ctx context.Context) BatchReport {
	return p.Start(ctx).Wait()
}

func (p *Pipeline) run(ctx context.Context) BatchReport {
	ctx, span := tracer.Start(ctx, "pipeline.batch", trace.WithAttributes(
		attribute.String("pipeline.name", p.Config.Name),
		attribute.String("pipeline.where", p.Config.Query.Where),
	))
	defer span.End()

	clock := core.NewClock()
	clock.Start()
	report := BatchReport{Pipeline: p.Config.Name}

	records, err := p.source.Query(ctx, p.Config.Query)
	if err != nil {
		clock.Update()
		report.Err = err
		report.Elapsed = clock.Elapsed()
		p.diagnostics.Error(p.Config.Name, "feature query failed, nothing was added", err)
		if p.metrics != nil {
			p.metrics.BatchFailed(report.Elapsed)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return report
	}
	report.Fetched = len(records)
	core.LogDebug("[%s] %d records fetched", p.Config.Name, len(records))

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	settle := func(outcome recordOutcome) {
		mu.Lock()
		defer mu.Unlock()
		switch outcome {
		case outcomeAppended:
			report.Appended++
		case outcomeFailed:
			report.Failed++
		case outcomeSkipped:
			report.Skipped++
		}
	}

	for i := range records {
		rec := records[i]
		if !p.Config.Concurrent {
			settle(p.convert(ctx, rec))
			continue
		}

		var outcome recordOutcome
		wg.Add(1)
		err := p.jobSystem.Submit(ctx, metadata.JobTask{
			Name: fmt.Sprintf("%s/%d", p.Config.Name, rec.ObjectID),
			OnStart: func(ctx context.Context) error {
				outcome = p.convert(ctx, rec)
				return nil
			},
			OnFailure: func(err error) {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					outcome = outcomeSkipped
					return
				}
				p.diagnostics.Error(p.Config.Name, fmt.Sprintf("record %d could not be converted", rec.ObjectID),
					fmt.Errorf("%w: %w", core.ErrMeshConstruction, err))
				outcome = outcomeFailed
			},
			OnCompletionCallback: func() {
				settle(outcome)
				wg.Done()
			},
		})
		if err != nil {
			wg.Done()
			settle(outcomeSkipped)
			if errors.Is(err, core.ErrJobSystemClosed) {
				mu.Lock()
				if report.Err == nil {
					report.Err = fmt.Errorf("pipeline '%s': %w", p.Config.Name, err)
				}
				mu.Unlock()
				continue
			}
			if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				p.diagnostics.Error(p.Config.Name, fmt.Sprintf("record %d was not scheduled", rec.ObjectID), err)
			}
		}
	}
	wg.Wait()
	if report.Err != nil {
		p.diagnostics.Error(p.Config.Name, "records were not scheduled", report.Err)
		span.RecordError(report.Err)
		span.SetStatus(codes.Error, report.Err.Error())
	}

	clock.Update()
	report.Elapsed = clock.Elapsed()
	if p.metrics != nil {
		p.metrics.BatchCompleted(report.Fetched, report.Appended, report.Failed, report.Elapsed)
	}
	span.SetAttributes(
		attribute.Int("pipeline.fetched", report.Fetched),
		attribute.Int("pipeline.appended", report.Appended),
		attribute.Int("pipeline.failed", report.Failed),
		attribute.Int("pipeline.skipped", report.Skipped),
	)
	core.LogInfo("[%s] batch done: %d fetched, %d added, %d failed, %d skipped in %s",
		p.Config.Name, report.Fetched, report.Appended, report.Failed, report.Skipped, report.Elapsed)
	return report
}

type recordOutcome int

const (
	outcomeSkipped recordOutcome = iota
	outcomeAppended
	outcomeFailed
)

func (p *Pipeline) convert(ctx context.Context, rec features.FeatureRecord) recordOutcome {
	if ctx.Err() != nil {
		return outcomeSkipped
	}
	ctx, span := tracer.Start(ctx, "pipeline.record", trace.WithAttributes(
		attribute.Int64("feature.object_id", rec.ObjectID),
	))
	defer span.End()

	g, err := p.safeConvert(ctx, rec)
	if err != nil {
		if ctx.Err() != nil && !errors.Is(err, errConverterPanicked) {
			return outcomeSkipped
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.diagnostics.Error(p.Config.Name, fmt.Sprintf("record %d could not be converted", rec.ObjectID), err)
		return outcomeFailed
	}
	if ctx.Err() != nil {
		return outcomeSkipped
	}
	p.collection.Add(g)
	return outcomeAppended
}

var errConverterPanicked = errors.New("converter panicked")

// safeConvert turns a converter panic into a construction error so a single
// bad record fails alone.
func (p *Pipeline) safeConvert(ctx context.Context, rec features.FeatureRecord) (g *metadata.Graphic, err error) {
	defer func() {
		if r := recover(); r != nil {
			g = nil
			err = fmt.Errorf("%w: record %d: %w: %v", core.ErrMeshConstruction, rec.ObjectID, errConverterPanicked, r)
		}
	}()
	return p.converter.Convert(ctx, rec)
}
