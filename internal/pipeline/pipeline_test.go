package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"schedex/internal/config"
	"schedex/internal/domain"
	"schedex/internal/enhancer"
	"schedex/internal/pipeline"
	"schedex/internal/source"
	"schedex/mocks"
)

var loadHeaders = []string{"Load ID", "Load Name", "Power (kW)", "Voltage (V)", "Phases"}

func loadSheet(name string, rows ...[]any) domain.RawSheet {
	return domain.RawSheet{Name: name, Headers: loadHeaders, Rows: rows}
}

func fixedPipeline(cfg *config.PipelineConfig, deps pipeline.Deps) *pipeline.Pipeline {
	at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	n := 0
	return pipeline.New(cfg, deps,
		pipeline.WithClock(func() time.Time { return at }),
		pipeline.WithRunIDs(func() string {
			n++
			return fmt.Sprintf("run-%d", n)
		}),
	)
}

func issueKeys(issues []domain.ValidationIssue) []string {
	keys := make([]string, 0, len(issues))
	for _, i := range issues {
		keys = append(keys, i.RuleKey)
	}
	return keys
}

func TestPipeline_Run_CleanLoadSchedule(t *testing.T) {
	src := source.NewStatic("plant.xlsx", loadSheet("LoadList",
		[]any{"L001", "Pump A", 15.0, 400.0, 3.0},
		[]any{"L002", "Fan B", 7.5, 400.0, 3.0},
		[]any{"L003", "Heater C", 2.2, 230.0, 1.0},
	))

	res := fixedPipeline(nil, pipeline.Deps{}).Run(context.Background(), src)
	require.NoError(t, res.Err)
	rep := res.Report

	require.Len(t, rep.Sheets, 1)
	cls := rep.Sheets[0].Classification
	assert.Equal(t, domain.SheetTypeLoad, cls.SheetType)
	assert.Greater(t, cls.Confidence, 0.6)
	assert.Equal(t, domain.ClassificationPattern, cls.Method)

	fm := rep.Sheets[0].Mapping
	require.NotNil(t, fm)
	for _, f := range []string{"load_id", "load_name", "power_kw", "voltage_v", "phases"} {
		mf := fm.Field(f)
		require.NotNil(t, mf, f)
		assert.Equal(t, 1.0, mf.Confidence, f)
	}
	assert.Equal(t, "kw", fm.Field("power_kw").Unit)

	assert.Len(t, res.Aggregate.Loads, 3)
	assert.Equal(t, 1.0, rep.Sheets[0].Extraction.Confidence)
	assert.Equal(t, domain.RunStatusCompleted, rep.Status)
	assert.Equal(t, 1.0, rep.OverallConfidence)

	// Three loads plus the synthesized main bus.
	require.Len(t, res.Aggregate.Buses, 1)
	assert.Equal(t, enhancer.DefaultBusID, res.Aggregate.Buses[0].ID)
	assert.Equal(t, 4, rep.TotalComponents)
	assert.True(t, rep.Validation.IsValid)
	assert.False(t, rep.RequiresReview)

	assert.Equal(t, domain.StateReset, rep.Provenance.States[0])
	assert.Equal(t, domain.StateCompleted, rep.Provenance.States[len(rep.Provenance.States)-1])
	assert.Equal(t, "run-1", rep.RunID)
}

func TestPipeline_Run_RowMissingPower(t *testing.T) {
	src := source.NewStatic("plant.xlsx", loadSheet("LoadList",
		[]any{"L001", "Pump A", 15.0, 400.0, 3.0},
		[]any{"L002", "Fan B", nil, 400.0, 3.0},
		[]any{"L003", "Heater C", 2.2, 400.0, 3.0},
	))

	res := fixedPipeline(nil, pipeline.Deps{}).Run(context.Background(), src)
	require.NoError(t, res.Err)

	ext := res.Report.Sheets[0].Extraction
	assert.Len(t, res.Aggregate.Loads, 2)
	assert.Equal(t, 3, ext.TotalRows)
	assert.Equal(t, 2, ext.ComponentsExtracted)
	assert.InDelta(t, 2.0/3.0, ext.Confidence, 1e-9)
	require.Len(t, ext.Issues, 1)
	assert.Contains(t, ext.Issues[0], "row 2")
	assert.InDelta(t, 2.0/3.0, res.Report.OverallConfidence, 1e-9)
}

func TestPipeline_Run_DuplicateAcrossSheets(t *testing.T) {
	src := source.NewStatic("plant.xlsx",
		loadSheet("LoadList", []any{"L001", "Pump A", 15.0, 400.0, 3.0}),
		loadSheet("Loads Area 2", []any{"L001", "Pump A (copy)", 11.0, 400.0, 3.0}),
	)

	res := fixedPipeline(nil, pipeline.Deps{}).Run(context.Background(), src)
	require.NoError(t, res.Err)

	require.Len(t, res.Aggregate.Loads, 1)
	assert.Equal(t, "LoadList", res.Aggregate.Loads[0].Source.Sheet)
	assert.Equal(t, 15.0, res.Aggregate.Loads[0].PowerKW)
	assert.NoError(t, pipeline.CheckInvariants(res.Aggregate))

	var dupes []domain.Correction
	for _, c := range res.Report.Corrections {
		if c.Kind == domain.CorrectionDuplicate {
			dupes = append(dupes, c)
		}
	}
	require.Len(t, dupes, 1)
	assert.Equal(t, "L001", dupes[0].EntityID)
	assert.NotContains(t, issueKeys(res.Report.ValidationIssues), "system.duplicate_id")
	assert.Equal(t, 15.0, res.Report.Totals.TotalPowerKW)

	require.Len(t, res.Aggregate.Buses, 1)
	assert.Equal(t, 15.0, res.Aggregate.Buses[0].ConnectedLoadKW)
	assert.Equal(t, 1, res.Aggregate.Buses[0].LoadCount)
}

func TestPipeline_Run_DuplicateNumericIDsAcrossSheets(t *testing.T) {
	src := source.NewStatic("plant.xlsx",
		loadSheet("LoadList", []any{101.0, "Pump A", 15.0, 400.0, 3.0}),
		loadSheet("Loads Area 2", []any{101.0, "Pump A", 15.0, 400.0, 3.0}),
	)

	res := fixedPipeline(nil, pipeline.Deps{}).Run(context.Background(), src)
	require.NoError(t, res.Err)
	assert.Equal(t, domain.RunStatusCompleted, res.Report.Status)

	require.Len(t, res.Aggregate.Loads, 1)
	assert.Equal(t, "L001", res.Aggregate.Loads[0].ID)
	assert.Equal(t, 15.0, res.Report.Totals.TotalPowerKW)
	assert.Equal(t, 15.0, res.Aggregate.Buses[0].ConnectedLoadKW)
	assert.NoError(t, pipeline.CheckInvariants(res.Aggregate))
}

func TestPipeline_Run_NegativeCableLength(t *testing.T) {
	src := source.NewStatic("plant.xlsx",
		loadSheet("LoadList", []any{"L001", "Pump A", 15.0, 400.0, 3.0}),
		domain.RawSheet{
			Name:    "Cables",
			Headers: []string{"Cable ID", "From", "To", "Size (mm²)", "Length (m)"},
			Rows:    [][]any{{"C001", "BUS-MAIN", "L001", 4.0, -5.0}},
		},
	)

	res := fixedPipeline(nil, pipeline.Deps{}).Run(context.Background(), src)
	require.NoError(t, res.Err)

	assert.Equal(t, domain.SheetTypeCable, res.Report.Sheets[1].Classification.SheetType)
	require.Len(t, res.Aggregate.Cables, 1)
	assert.Equal(t, -5.0, res.Aggregate.Cables[0].LengthM)

	assert.False(t, res.Report.Validation.IsValid)
	assert.True(t, res.Report.RequiresReview)
	assert.Contains(t, issueKeys(res.Report.ValidationIssues), "cable.length.positive")
	assert.Equal(t, domain.EntityStatusInvalid, res.Report.EntityStatuses["cable:C001"].Status)
	assert.Equal(t, 0.0, res.Report.Totals.TotalCableLengthM)
}

func TestPipeline_Run_EmptySheet(t *testing.T) {
	src := source.NewStatic("blank.xlsx", domain.RawSheet{Name: "Sheet1"})

	res := fixedPipeline(nil, pipeline.Deps{}).Run(context.Background(), src)
	require.NoError(t, res.Err)

	rep := res.Report
	require.Len(t, rep.Sheets, 1)
	assert.Equal(t, domain.SheetTypeUnknown, rep.Sheets[0].Classification.SheetType)
	assert.Equal(t, 0.0, rep.Sheets[0].Classification.Confidence)
	assert.Equal(t, domain.ClassificationEmpty, rep.Sheets[0].Classification.Method)
	assert.Nil(t, rep.Sheets[0].Mapping)
	assert.Equal(t, 0, rep.TotalComponents)
	assert.Equal(t, domain.RunStatusCompleted, rep.Status)
	assert.Equal(t, 0.0, rep.OverallConfidence)
	assert.True(t, rep.RequiresReview)
	assert.Empty(t, rep.Error)
}

func TestPipeline_Run_Idempotent(t *testing.T) {
	sheets := []domain.RawSheet{
		loadSheet("LoadList",
			[]any{"L001", "pump a", 15.0, 400.0, 3.0},
			[]any{"", "Fan B", 7.5, 400.0, 3.0},
		),
		loadSheet("More Loads", []any{"L001", "Pump A", 15.0, 400.0, 3.0}),
	}

	first := fixedPipeline(nil, pipeline.Deps{}).Run(context.Background(), source.NewStatic("a.xlsx", sheets...))
	second := fixedPipeline(nil, pipeline.Deps{}).Run(context.Background(), source.NewStatic("a.xlsx", sheets...))

	require.NoError(t, first.Err)
	require.NoError(t, second.Err)
	assert.Equal(t, first.Report, second.Report)
	assert.Equal(t, first.Aggregate, second.Aggregate)
}

func TestPipeline_Run_ReferencesResolve(t *testing.T) {
	src := source.NewStatic("plant.xlsx",
		domain.RawSheet{
			Name:    "Buses",
			Headers: []string{"Bus ID", "Bus Name", "Voltage (V)"},
			Rows:    [][]any{{"MCC-1", "Motor Control Centre 1", 400.0}},
		},
		domain.RawSheet{
			Name:    "LoadList",
			Headers: []string{"Load ID", "Load Name", "Power (kW)", "Voltage (V)", "Phases", "Fed From", "Cable Length (m)"},
			Rows: [][]any{
				{"L001", "Pump A", 15.0, 400.0, 3.0, "MCC-1", 40.0},
				{"L002", "Fan B", 7.5, 400.0, 3.0, "Motor Control Centre 1", 25.0},
				{"L003", "Heater C", 3.0, 400.0, 3.0, nil, nil},
			},
		},
	)

	res := fixedPipeline(nil, pipeline.Deps{}).Run(context.Background(), src)
	require.NoError(t, res.Err)

	buses := map[string]bool{}
	for _, b := range res.Aggregate.Buses {
		buses[b.ID] = true
	}
	loads := map[string]bool{}
	for _, l := range res.Aggregate.Loads {
		loads[l.ID] = true
		assert.True(t, buses[l.SourceBus], "load %s source bus %q", l.ID, l.SourceBus)
	}
	require.Len(t, res.Aggregate.Cables, 2)
	for _, c := range res.Aggregate.Cables {
		assert.True(t, c.Synthesized)
		assert.True(t, loads[c.ToLoad])
		assert.True(t, buses[c.FromBus])
	}
	assert.NotContains(t, issueKeys(res.Report.ValidationIssues), "system.dangling_reference")
}

func TestPipeline_Run_TotalsMatchAggregate(t *testing.T) {
	src := source.NewStatic("plant.xlsx",
		loadSheet("LoadList",
			[]any{"L001", "Pump A", 15.0, 400.0, 3.0},
			[]any{"L002", "Fan B", 7.5, 400.0, 3.0},
		),
		loadSheet("Loads 2", []any{"L002", "Fan B", 7.5, 400.0, 3.0}),
	)

	res := fixedPipeline(nil, pipeline.Deps{}).Run(context.Background(), src)
	require.NoError(t, res.Err)

	agg := res.Aggregate
	sum := 0.0
	for _, l := range agg.Loads {
		sum += l.PowerKW
	}
	assert.Equal(t, len(agg.Loads), res.Report.Totals.TotalLoads)
	assert.Equal(t, len(agg.Buses), res.Report.Totals.TotalBuses)
	assert.InDelta(t, sum, res.Report.Totals.TotalPowerKW, 1e-9)
	assert.Equal(t, agg.ComponentCount(), res.Report.TotalComponents)
	assert.Equal(t, pipeline.ComputeTotals(agg), res.Report.Totals)
}

func TestPipeline_Run_SourceUnreadable(t *testing.T) {
	src := new(mocks.MockTableSource)
	src.On("Name").Return("broken.xlsx")
	src.On("ReadSheets", mock.Anything).Return(nil, errors.New("zip: not a valid zip file"))

	res := fixedPipeline(nil, pipeline.Deps{}).Run(context.Background(), src)

	require.Error(t, res.Err)
	assert.ErrorIs(t, res.Err, domain.ErrSourceUnreadable)
	assert.Equal(t, domain.RunStatusFailed, res.Report.Status)
	assert.Equal(t, 0, res.Report.TotalComponents)
	assert.True(t, res.Report.RequiresReview)
	assert.Contains(t, res.Report.Error, "not a valid zip file")
	assert.Equal(t, domain.StateFailed, res.Report.Provenance.States[len(res.Report.Provenance.States)-1])
	src.AssertExpectations(t)
}

func TestPipeline_Run_ParallelMatchesSequential(t *testing.T) {
	sheets := []domain.RawSheet{
		loadSheet("LoadList", []any{"L001", "Pump A", 15.0, 400.0, 3.0}),
		loadSheet("Loads 2", []any{"L002", "Fan B", 7.5, 400.0, 3.0}),
		loadSheet("Loads 3", []any{"L001", "Pump A", 9.0, 400.0, 3.0}),
		domain.RawSheet{Name: "Notes"},
	}

	seq := fixedPipeline(nil, pipeline.Deps{}).Run(context.Background(), source.NewStatic("p.xlsx", sheets...))

	cfg := config.DefaultPipelineConfig()
	cfg.ParallelSheets = true
	cfg.MaxParallel = 2
	par := fixedPipeline(&cfg, pipeline.Deps{}).Run(context.Background(), source.NewStatic("p.xlsx", sheets...))

	require.NoError(t, seq.Err)
	require.NoError(t, par.Err)
	assert.Equal(t, seq.Report.Sheets, par.Report.Sheets)
	assert.Equal(t, seq.Aggregate.Loads, par.Aggregate.Loads)
	assert.Equal(t, seq.Report.OverallConfidence, par.Report.OverallConfidence)
	assert.Equal(t, 15.0, par.Aggregate.Loads[0].PowerKW)
}

func TestPipeline_Run_CalculatorFeedsValidation(t *testing.T) {
	calc := new(mocks.MockLoadCalculator)
	ib, vd := 30.0, 7.5
	calc.On("Calculate", mock.Anything, mock.Anything).
		Return(&domain.LoadCalculation{DesignCurrentA: &ib, VoltageDropPct: &vd}, nil)

	src := source.NewStatic("plant.xlsx", loadSheet("LoadList", []any{"L001", "Pump A", 15.0, 400.0, 3.0}))
	res := fixedPipeline(nil, pipeline.Deps{Calculator: calc}).Run(context.Background(), src)
	require.NoError(t, res.Err)

	assert.Contains(t, issueKeys(res.Report.ValidationIssues), "load.voltage_drop.limit")
	assert.Equal(t, domain.EntityStatusUnsure, res.Report.EntityStatuses["load:L001"].Status)
	calc.AssertExpectations(t)
}

func TestOverallConfidence(t *testing.T) {
	results := []*domain.ExtractionResult{
		{Confidence: 1.0},
		{Confidence: 0.5},
		nil,
	}
	assert.InDelta(t, 0.75, pipeline.OverallConfidence(results, []int{3, 3, 5}), 1e-9)
	assert.InDelta(t, 1.0, pipeline.OverallConfidence(results, []int{2, 0, 0}), 1e-9)
	assert.Equal(t, 0.0, pipeline.OverallConfidence(results, []int{0, 0, 0}))
	assert.Equal(t, 0.0, pipeline.OverallConfidence(nil, nil))
}

func TestCheckInvariants(t *testing.T) {
	load := &domain.LoadRecord{ID: "L001"}

	t.Run("unique", func(t *testing.T) {
		agg := domain.NewAggregate()
		agg.Loads = []*domain.LoadRecord{load, {ID: "L002"}}
		assert.NoError(t, pipeline.CheckInvariants(agg))
	})

	t.Run("duplicate id", func(t *testing.T) {
		agg := domain.NewAggregate()
		agg.Loads = []*domain.LoadRecord{load, {ID: "L001"}}
		err := pipeline.CheckInvariants(agg)
		require.Error(t, err)
		assert.True(t, pipeline.IsInvariantError(err))
		assert.Contains(t, err.Error(), `duplicate load id "L001"`)
	})

	t.Run("shared instance", func(t *testing.T) {
		agg := domain.NewAggregate()
		agg.Loads = []*domain.LoadRecord{load, load}
		err := pipeline.CheckInvariants(agg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "appears twice")
	})

	assert.False(t, pipeline.IsInvariantError(errors.New("other")))
}
