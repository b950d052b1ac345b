package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"schedex/internal/classifier"
	"schedex/internal/config"
	"schedex/internal/dedup"
	"schedex/internal/domain"
	"schedex/internal/enhancer"
	"schedex/internal/extractor"
	"schedex/internal/mapper"
	"schedex/internal/port"
	"schedex/internal/validator"
)

// Deps are the optional collaborators of a pipeline. Any of them may be nil.
type Deps struct {
	Store      port.MappingStore
	Scorer     port.SimilarityScorer
	Calculator port.LoadCalculator
	// Confirmer overrides the configured gray-zone policy.
	Confirmer port.Confirmer
}

// Result is what a run hands back. Err is set when the run failed and is
// also recorded on the report.
type Result struct {
	Report    *domain.ProcessingReport
	Aggregate *domain.Aggregate
	Err       error
}

// Pipeline turns a table source into a validated aggregate and a report.
// It holds no per-run state, so one Pipeline may serve concurrent runs.
type Pipeline struct {
	cfg        config.PipelineConfig
	classifier *classifier.Classifier
	mapper     *mapper.Mapper
	extractor  *extractor.Extractor
	enhancer   *enhancer.Enhancer
	validator  *validator.Engine
	confirmer  port.Confirmer

	newRunID func() string
	now      func() time.Time
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithRunIDs replaces the run identifier generator.
func WithRunIDs(next func() string) Option {
	return func(p *Pipeline) { p.newRunID = next }
}

// New wires a pipeline from configuration and collaborators.
func New(cfg *config.PipelineConfig, deps Deps, opts ...Option) *Pipeline {
	c := config.DefaultPipelineConfig()
	if cfg != nil {
		c = *cfg
	}
	confirmer := deps.Confirmer
	if confirmer == nil {
		confirmer = mapper.ConfirmerForPolicy(c.GrayZonePolicy)
	}
	p := &Pipeline{
		cfg:        c,
		classifier: classifier.New(&c.Classifier, deps.Scorer),
		mapper:     mapper.New(&c.Mapping, deps.Store, deps.Scorer),
		extractor:  extractor.New(&c.Extraction, deps.Calculator),
		enhancer:   enhancer.New(c.Extraction.DefaultVoltageV),
		validator:  validator.NewEngine(validator.NewBuiltinRegistry()),
		confirmer:  confirmer,
		newRunID:   uuid.NewString,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// run is the state of one invocation. It is created fresh by Run.
type run struct {
	report *domain.ProcessingReport
	agg    *domain.Aggregate
}

func (r *run) enter(s domain.RunState) {
	r.report.Provenance.States = append(r.report.Provenance.States, s)
}

// sheetOutcome is the result of classifying, mapping and extracting one sheet.
type sheetOutcome struct {
	report  domain.SheetReport
	out     *extractor.Output
	visited []domain.RunState
}

// Run executes one complete run. It always returns a report; failures are
// recorded on it with status failed.
func (p *Pipeline) Run(ctx context.Context, src port.TableSource) *Result {
	started := p.now()
	runID := p.newRunID()
	r := &run{
		agg: domain.NewAggregate(),
		report: &domain.ProcessingReport{
			RunID:            runID,
			SourceName:       src.Name(),
			Status:           domain.RunStatusRunning,
			Sheets:           []domain.SheetReport{},
			Corrections:      []domain.Correction{},
			ValidationIssues: []domain.ValidationIssue{},
			Provenance: domain.Provenance{
				RunID:     runID,
				StartedAt: started,
			},
		},
	}

	r.enter(domain.StateReset)

	r.enter(domain.StateRead)
	sheets, err := src.ReadSheets(ctx)
	if err != nil {
		log.Printf("pipeline.Pipeline.Run: run %s reading %s failed: %v", runID, src.Name(), err)
		return p.fail(r, fmt.Errorf("%w: %v", domain.ErrSourceUnreadable, err))
	}

	outcomes := p.processSheets(ctx, sheets)
	for _, o := range outcomes {
		r.report.Provenance.States = append(r.report.Provenance.States, o.visited...)
		r.report.Sheets = append(r.report.Sheets, o.report)
	}

	r.enter(domain.StateAggregate)
	origin := p.aggregate(r.agg, outcomes)

	r.enter(domain.StateEnhance)
	results := make([]*domain.ExtractionResult, 0, len(outcomes))
	for _, o := range outcomes {
		results = append(results, o.report.Extraction)
	}
	enh, err := p.enhancer.Enhance(ctx, r.agg, results)
	if err != nil {
		return p.fail(r, fmt.Errorf("enhancing aggregate: %w", err))
	}
	r.report.Corrections = append(r.report.Corrections, enh.Corrections...)
	r.report.EnhancerWarnings = enh.Warnings

	r.enter(domain.StateDeduplicate)
	dd, err := dedup.Deduplicate(r.agg)
	if err != nil {
		return p.fail(r, fmt.Errorf("deduplicating aggregate: %w", err))
	}
	for _, d := range dd.Duplicates {
		r.report.Corrections = append(r.report.Corrections, domain.Correction{
			Kind:       domain.CorrectionDuplicate,
			EntityType: d.EntityType,
			EntityID:   d.ID,
			Message: fmt.Sprintf("duplicate %s %s from %s row %d dropped; kept %s row %d",
				d.EntityType, d.ID, d.Dropped.Sheet, d.Dropped.Row, d.Kept.Sheet, d.Kept.Row),
		})
	}
	enhancer.RecalculateBuses(r.agg)

	r.agg.Freeze()

	r.enter(domain.StateValidate)
	vr := p.validator.Validate(ctx, r.agg)
	r.report.ValidationIssues = vr.Violations
	r.report.Validation = vr.Summary()
	r.report.EntityStatuses = vr.EntityStatuses

	r.enter(domain.StateTotals)
	r.agg.Totals = ComputeTotals(r.agg)
	r.report.Totals = r.agg.Totals

	r.enter(domain.StateSanityAssert)
	if err := CheckInvariants(r.agg); err != nil {
		log.Printf("pipeline.Pipeline.Run: run %s invariant check failed: %v", runID, err)
		return p.fail(r, err)
	}

	r.enter(domain.StateReport)
	r.report.TotalComponents = r.agg.ComponentCount()
	r.report.OverallConfidence = OverallConfidence(outcomeResults(outcomes), survivors(r.agg, origin, len(outcomes)))
	r.report.RequiresReview = r.report.OverallConfidence < p.cfg.ReviewThreshold || !vr.IsValid

	p.finish(r, domain.RunStatusCompleted)
	log.Printf("pipeline.Pipeline.Run: run %s completed with %d components, confidence %.2f, review %t in %s",
		runID, r.report.TotalComponents, r.report.OverallConfidence, r.report.RequiresReview, r.report.ProcessingTime)
	return &Result{Report: r.report, Aggregate: r.agg}
}

func (p *Pipeline) fail(r *run, err error) *Result {
	r.report.Error = err.Error()
	r.report.RequiresReview = true
	r.report.TotalComponents = 0
	if r.agg.Frozen() {
		r.report.TotalComponents = r.agg.ComponentCount()
	}
	p.finish(r, domain.RunStatusFailed)
	log.Printf("pipeline.Pipeline.Run: run %s failed: %v", r.report.RunID, err)
	return &Result{Report: r.report, Aggregate: r.agg, Err: err}
}

func (p *Pipeline) finish(r *run, status domain.RunStatus) {
	terminal := domain.StateCompleted
	if status == domain.RunStatusFailed {
		terminal = domain.StateFailed
	}
	r.enter(terminal)
	completed := p.now()
	r.report.Status = status
	r.report.ProcessingTime = completed.Sub(r.report.Provenance.StartedAt)
	r.report.Provenance.Status = status
	r.report.Provenance.CompletedAt = completed
}

// processSheets runs classify, map and extract for every sheet. Results are
// returned in sheet order whether or not sheets ran in parallel.
func (p *Pipeline) processSheets(ctx context.Context, sheets []domain.RawSheet) []sheetOutcome {
	outcomes := make([]sheetOutcome, len(sheets))
	if !p.cfg.ParallelSheets || len(sheets) < 2 {
		for i := range sheets {
			outcomes[i] = p.processSheet(ctx, &sheets[i])
		}
		return outcomes
	}

	var g errgroup.Group
	if p.cfg.MaxParallel > 0 {
		g.SetLimit(p.cfg.MaxParallel)
	}
	for i := range sheets {
		g.Go(func() error {
			outcomes[i] = p.processSheet(ctx, &sheets[i])
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (p *Pipeline) processSheet(ctx context.Context, sheet *domain.RawSheet) (o sheetOutcome) {
	o.report = domain.SheetReport{SheetName: sheet.Name}
	defer func() {
		if rec := recover(); rec != nil {
			o.report.Error = fmt.Sprintf("sheet processing panicked: %v", rec)
			o.out = nil
			o.report.Extraction = emptyExtraction(sheet.Name, sheetType(o.report.Classification), o.report.Error)
			log.Printf("pipeline.Pipeline: sheet %q: %s", sheet.Name, o.report.Error)
		}
	}()

	o.visited = append(o.visited, domain.StateClassify)
	cls := p.classifier.Classify(ctx, sheet)
	o.report.Classification = cls

	et, ok := domain.EntityTypeForSheet(cls.SheetType)
	if !ok {
		o.report.Extraction = emptyExtraction(sheet.Name, cls.SheetType, "sheet type unknown; no entities extracted")
		return o
	}

	o.visited = append(o.visited, domain.StateMap)
	fm, err := p.mapper.Map(ctx, mapper.MapInput{
		SheetName:  sheet.Name,
		Headers:    sheet.Headers,
		EntityType: et,
		Confirmer:  p.confirmer,
	})
	if err != nil {
		o.report.Error = fmt.Sprintf("mapping columns: %v", err)
		o.report.Extraction = emptyExtraction(sheet.Name, cls.SheetType, o.report.Error)
		return o
	}
	o.report.Mapping = fm

	o.visited = append(o.visited, domain.StateExtract)
	o.out = p.extractor.Extract(ctx, sheet, cls.SheetType, fm)
	o.report.Extraction = o.out.Result
	return o
}

func sheetType(c *domain.ClassificationResult) domain.SheetType {
	if c == nil {
		return domain.SheetTypeUnknown
	}
	return c.SheetType
}

func emptyExtraction(sheetName string, st domain.SheetType, warning string) *domain.ExtractionResult {
	return &domain.ExtractionResult{
		SheetName: sheetName,
		SheetType: st,
		Issues:    []string{},
		Warnings:  []string{warning},
	}
}

// aggregate merges sheet outputs in sheet order and records which sheet each
// entity came from. The first project record wins.
func (p *Pipeline) aggregate(agg *domain.Aggregate, outcomes []sheetOutcome) map[any]int {
	origin := make(map[any]int)
	for i, o := range outcomes {
		if o.out == nil {
			continue
		}
		for _, l := range o.out.Loads {
			agg.Loads = append(agg.Loads, l)
			origin[l] = i
		}
		for _, c := range o.out.Cables {
			agg.Cables = append(agg.Cables, c)
			origin[c] = i
		}
		for _, b := range o.out.Buses {
			agg.Buses = append(agg.Buses, b)
			origin[b] = i
		}
		for _, t := range o.out.Transformers {
			agg.Transformers = append(agg.Transformers, t)
			origin[t] = i
		}
		if o.out.Project != nil && agg.Project == nil {
			agg.Project = o.out.Project
			origin[o.out.Project] = i
		}
	}
	return origin
}

// survivors counts, per sheet, the entities still present in the final aggregate.
func survivors(agg *domain.Aggregate, origin map[any]int, sheets int) []int {
	counts := make([]int, sheets)
	count := func(ptr any) {
		if i, ok := origin[ptr]; ok {
			counts[i]++
		}
	}
	for _, l := range agg.Loads {
		count(l)
	}
	for _, c := range agg.Cables {
		count(c)
	}
	for _, b := range agg.Buses {
		count(b)
	}
	for _, t := range agg.Transformers {
		count(t)
	}
	if agg.Project != nil {
		count(agg.Project)
	}
	return counts
}

func outcomeResults(outcomes []sheetOutcome) []*domain.ExtractionResult {
	out := make([]*domain.ExtractionResult, len(outcomes))
	for i, o := range outcomes {
		out[i] = o.report.Extraction
	}
	return out
}

// OverallConfidence averages sheet confidences weighted by how many of each
// sheet's entities survived to the final aggregate. Without any weight the
// result is 0.
func OverallConfidence(results []*domain.ExtractionResult, weights []int) float64 {
	sum, total := 0.0, 0
	for i, r := range results {
		if r == nil || i >= len(weights) || weights[i] <= 0 {
			continue
		}
		sum += r.Confidence * float64(weights[i])
		total += weights[i]
	}
	if total == 0 {
		return 0
	}
	return sum / float64(total)
}

// IsInvariantError reports whether err is a pipeline invariant violation.
func IsInvariantError(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}
