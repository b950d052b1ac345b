package enhancer_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schedex/internal/domain"
	"schedex/internal/enhancer"
)

func ptr(v float64) *float64 { return &v }

func ofKind(res *enhancer.EnhancementResult, kind domain.CorrectionKind) []domain.Correction {
	var out []domain.Correction
	for _, c := range res.Corrections {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

func TestEnhancer_Enhance_RepairsIDsAndRewritesReferences(t *testing.T) {
	agg := domain.NewAggregate()
	agg.Buses = []*domain.BusRecord{{ID: "MCC-1", Name: "MCC-1", VoltageV: 400}}
	agg.Loads = []*domain.LoadRecord{
		{ID: "1 pump", Name: "L001", PowerKW: 10},
		{ID: "L002", Name: "L002", PowerKW: 5, SourceBus: "MCC-1"},
		{ID: "", Name: "L003", PowerKW: 0},
	}
	agg.Cables = []*domain.CableRecord{{ID: "C1", FromBus: "MCC-1", ToLoad: "1 pump", SizeMM2: 4, LengthM: 20}}

	res, err := enhancer.New(400).Enhance(context.Background(), agg, nil)
	require.NoError(t, err)

	assert.Equal(t, "L001", agg.Loads[0].ID)
	assert.Equal(t, "L003", agg.Loads[2].ID)
	assert.Equal(t, "L001", agg.Cables[0].ToLoad)

	repairs := ofKind(res, domain.CorrectionIDRepair)
	require.Len(t, repairs, 2)
	assert.Equal(t, "1 pump", repairs[0].OldValue)
	assert.Equal(t, "L001", repairs[0].NewValue)
	assert.Equal(t, "", repairs[1].OldValue)

	refs := ofKind(res, domain.CorrectionReference)
	require.Len(t, refs, 1)
	assert.Equal(t, domain.EntityCable, refs[0].EntityType)
	assert.Equal(t, "to_load", refs[0].Field)

	assert.Equal(t, "MCC-1", agg.Loads[0].SourceBus)
	assert.Equal(t, "MCC-1", agg.Loads[2].SourceBus)
	assert.Len(t, ofKind(res, domain.CorrectionBackfill), 2)

	assert.Equal(t, "C1", agg.Loads[0].CableID)
	assert.Equal(t, 15.0, agg.Buses[0].ConnectedLoadKW)
	assert.Equal(t, 3, agg.Buses[0].LoadCount)
}

func TestEnhancer_Enhance_SynthesizesMainBus(t *testing.T) {
	agg := domain.NewAggregate()
	agg.Loads = []*domain.LoadRecord{
		{ID: "L001", VoltageV: 400, PowerKW: 1},
		{ID: "L002", VoltageV: 230, PowerKW: 1},
		{ID: "L003", VoltageV: 400, PowerKW: 1},
		{ID: "L004", VoltageV: 0, PowerKW: 1},
	}

	res, err := enhancer.New(415).Enhance(context.Background(), agg, nil)
	require.NoError(t, err)

	require.Len(t, agg.Buses, 1)
	bus := agg.Buses[0]
	assert.Equal(t, enhancer.DefaultBusID, bus.ID)
	assert.Equal(t, 400.0, bus.VoltageV)
	assert.Equal(t, 3, bus.Phases)
	assert.True(t, bus.Synthesized)
	assert.Equal(t, 4, bus.LoadCount)
	for _, l := range agg.Loads {
		assert.Equal(t, enhancer.DefaultBusID, l.SourceBus, l.ID)
	}

	synth := ofKind(res, domain.CorrectionSynthesized)
	require.Len(t, synth, 1)
	assert.Equal(t, domain.EntityBus, synth[0].EntityType)
	assert.Len(t, ofKind(res, domain.CorrectionBackfill), 4)
}

func TestEnhancer_Enhance_MainBusFallsBackToDefaultVoltage(t *testing.T) {
	agg := domain.NewAggregate()
	agg.Loads = []*domain.LoadRecord{{ID: "L001"}}

	_, err := enhancer.New(415).Enhance(context.Background(), agg, nil)
	require.NoError(t, err)
	require.Len(t, agg.Buses, 1)
	assert.Equal(t, 415.0, agg.Buses[0].VoltageV)
}

func TestEnhancer_Enhance_NoLoadsNoBus(t *testing.T) {
	agg := domain.NewAggregate()
	agg.Transformers = []*domain.TransformerRecord{{ID: "T001", RatingKVA: 500}}

	res, err := enhancer.New(400).Enhance(context.Background(), agg, nil)
	require.NoError(t, err)
	assert.Empty(t, agg.Buses)
	assert.Empty(t, res.Corrections)
}

func TestEnhancer_Enhance_ResolvesNames(t *testing.T) {
	agg := domain.NewAggregate()
	agg.Buses = []*domain.BusRecord{{ID: "MCC-1", Name: "Motor Control Centre 1", VoltageV: 400}}
	agg.Loads = []*domain.LoadRecord{
		{ID: "L001", Name: "Supply Fan", SourceBus: "motor control  centre 1"},
		{ID: "L002", Name: "Chiller Pump"},
	}
	agg.Cables = []*domain.CableRecord{{ID: "C001", ToLoad: "chiller pump", SizeMM2: 6, LengthM: 30}}

	_, err := enhancer.New(400).Enhance(context.Background(), agg, nil)
	require.NoError(t, err)

	assert.Equal(t, "MCC-1", agg.Loads[0].SourceBus)
	assert.Equal(t, "L002", agg.Cables[0].ToLoad)
	assert.Equal(t, "C001", agg.Loads[1].CableID)
	assert.Equal(t, "MCC-1", agg.Cables[0].FromBus)
}

func TestEnhancer_Enhance_SynthesizesCables(t *testing.T) {
	agg := domain.NewAggregate()
	agg.Buses = []*domain.BusRecord{{ID: "MCC-1", VoltageV: 400}}
	agg.Loads = []*domain.LoadRecord{
		{ID: "L001", Phases: 3, PowerKW: 30, CableLengthM: 45, SourceBus: "MCC-1", DesignCurrentA: ptr(52)},
		{ID: "L002", Phases: 1, PowerKW: 2.2, CableLengthM: 10, SourceBus: "MCC-1", InstallationMethod: domain.InstallConduit},
		{ID: "L003", Phases: 3, PowerKW: 250, CableLengthM: 80, SourceBus: "MCC-1"},
		{ID: "L004", Phases: 3, PowerKW: 5, SourceBus: "MCC-1"},
		{ID: "L005", Phases: 3, PowerKW: 5, CableLengthM: 12, SourceBus: "MCC-1"},
	}
	agg.Cables = []*domain.CableRecord{{ID: "C001", FromBus: "MCC-1", ToLoad: "L005", SizeMM2: 4, LengthM: 12}}

	res, err := enhancer.New(400).Enhance(context.Background(), agg, nil)
	require.NoError(t, err)

	require.Len(t, agg.Cables, 4)
	assert.Len(t, ofKind(res, domain.CorrectionSynthesized), 3)

	c := agg.Cables[1]
	assert.Equal(t, "C002", c.ID)
	assert.Equal(t, "MCC-1", c.FromBus)
	assert.Equal(t, "L001", c.ToLoad)
	assert.Equal(t, 35.0, c.SizeMM2)
	assert.Equal(t, 4, c.Cores)
	assert.Equal(t, 45.0, c.LengthM)
	assert.Equal(t, domain.MaterialCopper, c.Material)
	assert.Equal(t, domain.InstallUnspecified, c.InstallationMethod)
	assert.Equal(t, 1000.0, c.VoltageRatingV)
	assert.True(t, c.Synthesized)
	require.NotNil(t, c.DesignCurrentA)
	assert.Equal(t, 52.0, *c.DesignCurrentA)
	assert.Equal(t, "C002", agg.Loads[0].CableID)

	single := agg.Cables[2]
	assert.Equal(t, "L002", single.ToLoad)
	assert.Equal(t, 3, single.Cores)
	assert.Equal(t, 2.5, single.SizeMM2)
	assert.Equal(t, domain.InstallConduit, single.InstallationMethod)

	assert.Equal(t, 400.0, agg.Cables[3].SizeMM2)
	assert.Equal(t, "", agg.Loads[3].CableID)
	assert.Equal(t, "C001", agg.Loads[4].CableID)
}

func TestEnhancer_Enhance_UnknownBusWarning(t *testing.T) {
	agg := domain.NewAggregate()
	agg.Buses = []*domain.BusRecord{{ID: "MCC-1", VoltageV: 400}}
	agg.Loads = []*domain.LoadRecord{{ID: "L001", SourceBus: "MCC-9"}}

	results := []*domain.ExtractionResult{
		{SheetName: "Cables", TotalRows: 3, Success: false},
		{SheetName: "Empty", TotalRows: 0, Success: false},
		{SheetName: "Loads", TotalRows: 1, Success: true},
		nil,
	}
	res, err := enhancer.New(400).Enhance(context.Background(), agg, results)
	require.NoError(t, err)

	assert.Equal(t, "MCC-9", agg.Loads[0].SourceBus)
	assert.Equal(t, []string{
		`sheet "Cables" produced no entities; relationships may be incomplete`,
		`load L001 references unknown bus "MCC-9"`,
	}, res.Warnings)
}

func TestEnhancer_Enhance_NormalizesNames(t *testing.T) {
	agg := domain.NewAggregate()
	agg.Buses = []*domain.BusRecord{{ID: "MDB-1", Name: "main  lv switchboard", VoltageV: 400}}
	agg.Loads = []*domain.LoadRecord{
		{ID: "L001", Name: "chiller pump", SourceBus: "MDB-1"},
		{ID: "L002", Name: "L002", SourceBus: "MDB-1"},
	}

	res, err := enhancer.New(400).Enhance(context.Background(), agg, nil)
	require.NoError(t, err)

	assert.Equal(t, "Chiller Pump", agg.Loads[0].Name)
	assert.Equal(t, "L002", agg.Loads[1].Name)
	assert.Equal(t, "Main LV Switchboard", agg.Buses[0].Name)

	naming := ofKind(res, domain.CorrectionNaming)
	require.Len(t, naming, 2)
	assert.Equal(t, "chiller pump", naming[0].OldValue)
}

func TestEnhancer_Enhance_Idempotent(t *testing.T) {
	agg := domain.NewAggregate()
	agg.Loads = []*domain.LoadRecord{
		{ID: "", Name: "ahu-1 supply fan", PowerKW: 11, VoltageV: 400, CableLengthM: 25},
		{ID: "L009", Name: "Lighting", PowerKW: 3, VoltageV: 230},
	}

	e := enhancer.New(400)
	_, err := e.Enhance(context.Background(), agg, nil)
	require.NoError(t, err)

	res, err := e.Enhance(context.Background(), agg, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Corrections)
	assert.Len(t, agg.Buses, 1)
	assert.Len(t, agg.Cables, 1)
	assert.Equal(t, "AHU-1 Supply Fan", agg.Loads[0].Name)
}

func TestEnhancer_Enhance_FrozenAggregate(t *testing.T) {
	agg := domain.NewAggregate()
	agg.Freeze()

	res, err := enhancer.New(400).Enhance(context.Background(), agg, nil)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, domain.ErrAggregateFrozen)
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ahu-1 supply fan", "AHU-1 Supply Fan"},
		{"  main   LV  switchboard ", "Main LV Switchboard"},
		{"pump/motor", "Pump/Motor"},
		{"UPS (critical)", "UPS (Critical)"},
		{"fcu 3b", "FCU 3B"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, enhancer.NormalizeName(tt.in), tt.in)
	}
}

func TestEstimateCableSize(t *testing.T) {
	tests := []struct {
		kw   float64
		want float64
	}{
		{0, 2.5},
		{-3, 2.5},
		{2.2, 2.5},
		{2.3, 4},
		{30, 35},
		{30.1, 50},
		{200, 300},
		{201, 400},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, enhancer.EstimateCableSize(tt.kw), "%v kW", tt.kw)
	}
}

func TestEnhancer_Enhance_SameMalformedIDRepairsToSameID(t *testing.T) {
	agg := domain.NewAggregate()
	agg.Loads = []*domain.LoadRecord{
		{ID: "101", Name: "Pump A", PowerKW: 15},
		{ID: "102", Name: "Pump B", PowerKW: 5},
		{ID: "101", Name: "Pump A", PowerKW: 15},
	}

	res, err := enhancer.New(400).Enhance(context.Background(), agg, nil)
	require.NoError(t, err)

	assert.Equal(t, "L001", agg.Loads[0].ID)
	assert.Equal(t, "L002", agg.Loads[1].ID)
	assert.Equal(t, "L001", agg.Loads[2].ID)
	assert.Len(t, ofKind(res, domain.CorrectionIDRepair), 3)
}

func TestRecalculateBuses(t *testing.T) {
	agg := domain.NewAggregate()
	agg.Buses = []*domain.BusRecord{{ID: "MCC-1", ConnectedLoadKW: 30, LoadCount: 2}}
	agg.Loads = []*domain.LoadRecord{
		{ID: "L001", PowerKW: 15, SourceBus: "MCC-1"},
		{ID: "L002", PowerKW: 4, SourceBus: "OTHER"},
	}

	enhancer.RecalculateBuses(agg)

	assert.Equal(t, 15.0, agg.Buses[0].ConnectedLoadKW)
	assert.Equal(t, 1, agg.Buses[0].LoadCount)
}
