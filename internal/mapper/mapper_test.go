package mapper_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"schedex/internal/domain"
	"schedex/internal/mapper"
	"schedex/internal/port"
	"schedex/mocks"
)

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Size (mm²)", "size mm2"},
		{"Size (sq mm)", "size mm2"},
		{"Eff (%)", "eff pct"},
		{"  Load   ID ", "load id"},
		{"LoadList", "load list"},
		{"Rating (kW)", "rating kw"},
		{"Cable Length (Metres)", "cable length m"},
		{"Température", "temperature"},
		{"Item #", "item no"},
		{"Number of Phases", "no of phases"},
		{"---", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, mapper.NormalizeHeader(tt.in), tt.in)
	}
}

func TestMapper_Map_PatternAndAlias(t *testing.T) {
	fm, err := mapper.New(nil, nil, nil).Map(context.Background(), mapper.MapInput{
		SheetName:  "Loads",
		Headers:    []string{"Item No", "Load Description", "Connected Load", "Voltage (V)", "", "Remarks"},
		EntityType: domain.EntityLoad,
	})
	require.NoError(t, err)

	id := fm.Field("load_id")
	require.NotNil(t, id)
	assert.Equal(t, 1.0, id.Confidence)
	assert.Equal(t, domain.MappingPattern, id.Method)
	assert.Equal(t, []int{0}, id.SourceIndexes)

	power := fm.Field("power_kw")
	require.NotNil(t, power)
	assert.Equal(t, 0.95, power.Confidence)
	assert.Equal(t, domain.MappingAlias, power.Method)
	assert.Equal(t, []string{"Connected Load"}, power.SourceColumns)

	volts := fm.Field("voltage_v")
	require.NotNil(t, volts)
	assert.Equal(t, "v", volts.Unit)

	assert.Equal(t, []string{"Remarks"}, fm.Unmapped)
	assert.InDelta(t, (1.0+1.0+0.95)/3, fm.Coverage, 1e-9)
	assert.Equal(t, domain.MappingQualityExcellent, fm.Quality)
	assert.Equal(t, 0, fm.GrayZoneCount)
}

func TestMapper_Map_ExtraSourceColumns(t *testing.T) {
	fm, err := mapper.New(nil, nil, nil).Map(context.Background(), mapper.MapInput{
		SheetName:  "Loads",
		Headers:    []string{"Tag", "Load ID", "Power (kW)"},
		EntityType: domain.EntityLoad,
	})
	require.NoError(t, err)

	id := fm.Field("load_id")
	require.NotNil(t, id)
	assert.Equal(t, []int{0, 1}, id.SourceIndexes)
	assert.Equal(t, []string{"Tag", "Load ID"}, id.SourceColumns)
	assert.Equal(t, "kw", fm.Field("power_kw").Unit)
	assert.InDelta(t, 2.0/3, fm.Coverage, 1e-9)
	assert.Equal(t, domain.MappingQualityGood, fm.Quality)
}

func TestMapper_Map_Fuzzy(t *testing.T) {
	fm, err := mapper.New(nil, nil, nil).Map(context.Background(), mapper.MapInput{
		SheetName:  "Cables",
		Headers:    []string{"Cable ID", "Cable Size Ref", "Length (km)"},
		EntityType: domain.EntityCable,
	})
	require.NoError(t, err)

	size := fm.Field("size_mm2")
	require.NotNil(t, size)
	assert.Equal(t, domain.MappingFuzzy, size.Method)
	assert.InDelta(t, 0.7*2.0/3+0.3*8.0/12, size.Confidence, 1e-9)
	assert.Equal(t, "km", fm.Field("length_m").Unit)
	assert.Equal(t, 0, fm.GrayZoneCount)
}

func TestMapper_Map_GrayZoneConfirmed(t *testing.T) {
	confirmer := new(mocks.MockConfirmer)
	confirmer.On("Confirm", mock.Anything, mock.MatchedBy(func(c port.GrayZoneCandidate) bool {
		return c.SheetName == "Cables" &&
			c.Header == "Cable Size Designation" &&
			c.Field == "size_mm2" &&
			c.EntityType == domain.EntityCable &&
			c.Confidence >= 0.5 && c.Confidence < 0.65
	})).Return(true).Once()

	fm, err := mapper.New(nil, nil, nil).Map(context.Background(), mapper.MapInput{
		SheetName:  "Cables",
		Headers:    []string{"Cable ID", "Cable Size Designation", "Length (m)"},
		EntityType: domain.EntityCable,
		Confirmer:  confirmer,
	})
	require.NoError(t, err)

	size := fm.Field("size_mm2")
	require.NotNil(t, size)
	assert.Equal(t, domain.MappingGrayZoneConfirmed, size.Method)
	assert.InDelta(t, 0.7*2.0/3+0.3*8.0/20, size.Confidence, 1e-9)
	assert.Equal(t, 1, fm.GrayZoneCount)
	assert.Equal(t, domain.MappingQualityExcellent, fm.Quality)
	confirmer.AssertExpectations(t)
}

func TestMapper_Map_GrayZoneRejected(t *testing.T) {
	for name, c := range map[string]port.Confirmer{
		"nil confirmer": nil,
		"reject all":    mapper.RejectAll{},
	} {
		t.Run(name, func(t *testing.T) {
			fm, err := mapper.New(nil, nil, nil).Map(context.Background(), mapper.MapInput{
				SheetName:  "Cables",
				Headers:    []string{"Cable ID", "Cable Size Designation", "Length (m)"},
				EntityType: domain.EntityCable,
				Confirmer:  c,
			})
			require.NoError(t, err)
			assert.Nil(t, fm.Field("size_mm2"))
			assert.Equal(t, 1, fm.GrayZoneCount)
			assert.InDelta(t, 2.0/3, fm.Coverage, 1e-9)
		})
	}
}

func TestMapper_Map_Weak(t *testing.T) {
	fm, err := mapper.New(nil, nil, nil).Map(context.Background(), mapper.MapInput{
		SheetName:  "Cables",
		Headers:    []string{"Cable ID", "Size Class"},
		EntityType: domain.EntityCable,
	})
	require.NoError(t, err)

	size := fm.Field("size_mm2")
	require.NotNil(t, size)
	assert.Equal(t, domain.MappingWeak, size.Method)
	assert.Equal(t, 0.3, size.Confidence)
	assert.Empty(t, fm.Unmapped)
}

func TestMapper_Map_Learned(t *testing.T) {
	store := new(mocks.MockMappingStore)
	store.On("Query", mock.Anything, "absorbed juice", "Loads", 3).
		Return([]port.MappingPrior{
			{Field: "cable_id", EntityType: domain.EntityCable, Confidence: 0.99},
			{Field: "power_kw", EntityType: domain.EntityLoad, Confidence: 0.92, Uses: 4},
		}, nil)
	store.On("Write", mock.Anything, port.MappingRecord{
		Header: "load id", Field: "load_id", EntityType: domain.EntityLoad, Confidence: 1.0, Context: "Loads",
	}).Return(nil).Once()

	fm, err := mapper.New(nil, store, nil).Map(context.Background(), mapper.MapInput{
		SheetName:  "Loads",
		Headers:    []string{"Load ID", "Absorbed Juice"},
		EntityType: domain.EntityLoad,
	})
	require.NoError(t, err)

	power := fm.Field("power_kw")
	require.NotNil(t, power)
	assert.Equal(t, domain.MappingLearned, power.Method)
	assert.Equal(t, 0.92, power.Confidence)
	store.AssertExpectations(t)
}

func TestMapper_Map_LearnedBelowThreshold(t *testing.T) {
	store := new(mocks.MockMappingStore)
	store.On("Query", mock.Anything, "absorbed juice", "Loads", 3).
		Return([]port.MappingPrior{{Field: "power_kw", EntityType: domain.EntityLoad, Confidence: 0.5}}, nil)
	store.On("Write", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	fm, err := mapper.New(nil, store, nil).Map(context.Background(), mapper.MapInput{
		SheetName:  "Loads",
		Headers:    []string{"Load ID", "Absorbed Juice"},
		EntityType: domain.EntityLoad,
	})
	require.NoError(t, err)
	assert.Nil(t, fm.Field("power_kw"))
	assert.Equal(t, []string{"Absorbed Juice"}, fm.Unmapped)
	store.AssertNumberOfCalls(t, "Write", 1)
}

func TestMapper_Map_StoreQueryError(t *testing.T) {
	store := new(mocks.MockMappingStore)
	store.On("Query", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))
	store.On("Write", mock.Anything, mock.Anything).Return(nil)

	fm, err := mapper.New(nil, store, nil).Map(context.Background(), mapper.MapInput{
		SheetName:  "Cables",
		Headers:    []string{"Cable ID", "Cable Size Ref"},
		EntityType: domain.EntityCable,
	})
	require.NoError(t, err)
	require.NotNil(t, fm.Field("size_mm2"))
	assert.Equal(t, domain.MappingFuzzy, fm.Field("size_mm2").Method)
}

func TestMapper_Map_Semantic(t *testing.T) {
	scorer := new(mocks.MockSimilarityScorer)
	scorer.On("Similarity", mock.Anything, "absorbed juice", "rated active power of the load in kilowatts").Return(0.85, nil)
	scorer.On("Similarity", mock.Anything, "absorbed juice", mock.Anything).Return(0.1, nil)

	fm, err := mapper.New(nil, nil, scorer).Map(context.Background(), mapper.MapInput{
		SheetName:  "Loads",
		Headers:    []string{"Load ID", "Load Name", "Absorbed Juice"},
		EntityType: domain.EntityLoad,
	})
	require.NoError(t, err)

	power := fm.Field("power_kw")
	require.NotNil(t, power)
	assert.Equal(t, domain.MappingSemantic, power.Method)
	assert.Equal(t, 0.85, power.Confidence)
	scorer.AssertNotCalled(t, "Similarity", mock.Anything, "absorbed juice", "unique identifier or tag of the electrical load")
}

func TestMapper_Map_SemanticErrorFallsThrough(t *testing.T) {
	scorer := new(mocks.MockSimilarityScorer)
	scorer.On("Similarity", mock.Anything, mock.Anything, mock.Anything).Return(0.0, errors.New("rate limited")).Once()

	fm, err := mapper.New(nil, nil, scorer).Map(context.Background(), mapper.MapInput{
		SheetName:  "Cables",
		Headers:    []string{"Cable ID", "Cable Size Ref"},
		EntityType: domain.EntityCable,
	})
	require.NoError(t, err)
	require.NotNil(t, fm.Field("size_mm2"))
	assert.Equal(t, domain.MappingFuzzy, fm.Field("size_mm2").Method)
	scorer.AssertExpectations(t)
}

func TestMapper_Map_UnknownEntity(t *testing.T) {
	fm, err := mapper.New(nil, nil, nil).Map(context.Background(), mapper.MapInput{
		Headers:    []string{"A"},
		EntityType: domain.EntityType("switchgear"),
	})
	assert.Nil(t, fm)
	assert.Error(t, err)
}

func TestMapper_Map_AliasNotBelowFuzzy(t *testing.T) {
	m := mapper.New(nil, nil, nil)
	for _, h := range []string{"Connected Load", "Cable Size Ref", "Cable Size Designation"} {
		fm, err := m.Map(context.Background(), mapper.MapInput{Headers: []string{h}, EntityType: domain.EntityLoad, Confirmer: mapper.AcceptAll{}})
		require.NoError(t, err)
		for _, mf := range fm.Fields {
			if mf.Method == domain.MappingFuzzy || mf.Method == domain.MappingGrayZoneConfirmed {
				assert.Less(t, mf.Confidence, 0.95, h)
			}
		}
	}
}

func TestFuzzyScore_Capped(t *testing.T) {
	assert.Equal(t, 0.9, mapper.FuzzyScore("cable size", "cable size", 0.9))
	assert.Equal(t, 0.0, mapper.FuzzyScore("abc", "xyz", 0.9))
}

func TestMatchField(t *testing.T) {
	assert.Equal(t, "project_name", mapper.MatchField(domain.EntityProject, "Project"))
	assert.Equal(t, "system_voltage_v", mapper.MatchField(domain.EntityProject, "System Voltage (kV)"))
	assert.Equal(t, "client", mapper.MatchField(domain.EntityProject, "Customer"))
	assert.Equal(t, "", mapper.MatchField(domain.EntityProject, "Colour"))
	assert.Equal(t, "", mapper.MatchField(domain.EntityProject, ""))
}

func TestDetectUnit(t *testing.T) {
	assert.Equal(t, "kw", mapper.DetectUnit("power kw", []string{"kw", "w", "hp"}))
	assert.Equal(t, "km", mapper.DetectUnit("length km", []string{"m", "km"}))
	assert.Equal(t, "", mapper.DetectUnit("power", []string{"kw"}))
	assert.Equal(t, "", mapper.DetectUnit("power kw", nil))
}

func TestQualityLabel(t *testing.T) {
	assert.Equal(t, domain.MappingQualityExcellent, mapper.QualityLabel(0.8))
	assert.Equal(t, domain.MappingQualityGood, mapper.QualityLabel(0.6))
	assert.Equal(t, domain.MappingQualityFair, mapper.QualityLabel(0.4))
	assert.Equal(t, domain.MappingQualityPoor, mapper.QualityLabel(0.39))
}

func TestRequiredFields(t *testing.T) {
	assert.Equal(t, []string{"cable_id", "size_mm2", "length_m"}, mapper.RequiredFields(domain.EntityCable))
	assert.Equal(t, []string{"load_id", "load_name", "power_kw"}, mapper.RequiredFields(domain.EntityLoad))
	assert.Empty(t, mapper.RequiredFields(domain.EntityType("none")))
}

func TestPrompt_Confirm(t *testing.T) {
	c := port.GrayZoneCandidate{SheetName: "Cables", Header: "Cable Size Designation", Field: "size_mm2", EntityType: domain.EntityCable, Confidence: 0.59}

	var out bytes.Buffer
	p := mapper.NewPrompt(strings.NewReader("Yes\nn\n"), &out)
	assert.True(t, p.Confirm(context.Background(), c))
	assert.False(t, p.Confirm(context.Background(), c))
	assert.False(t, p.Confirm(context.Background(), c))
	assert.Contains(t, out.String(), `[Cables] map column "Cable Size Designation" to cable.size_mm2 (confidence 0.59)? [y/N] `)
}

func TestConfirmerForPolicy(t *testing.T) {
	assert.IsType(t, mapper.AcceptAll{}, mapper.ConfirmerForPolicy("ACCEPT"))
	assert.IsType(t, mapper.RejectAll{}, mapper.ConfirmerForPolicy("reject"))
	assert.IsType(t, mapper.RejectAll{}, mapper.ConfirmerForPolicy("prompt"))
}
