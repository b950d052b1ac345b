package domain

import (
	"regexp"
	"strings"
	"time"
)

// RawSheet is one named table read from a source. It is consumed once per run.
type RawSheet struct {
	Name    string
	Headers []string
	Rows    [][]any
}

// IsEmpty reports whether the sheet has neither a non-blank header nor a non-blank cell.
func (s *RawSheet) IsEmpty() bool {
	for _, h := range s.Headers {
		if strings.TrimSpace(h) != "" {
			return false
		}
	}
	for _, row := range s.Rows {
		for _, cell := range row {
			if !IsBlankCell(cell) {
				return false
			}
		}
	}
	return true
}

// IsBlankCell reports whether a scalar cell value carries no data.
func IsBlankCell(v any) bool {
	switch c := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(c) == ""
	default:
		return false
	}
}

// ClassificationResult labels a sheet with a semantic type.
type ClassificationResult struct {
	SheetType  SheetType            `json:"sheet_type"`
	Confidence float64              `json:"confidence"`
	Evidence   []string             `json:"evidence"`
	Method     ClassificationMethod `json:"method"`
}

// MappedField is the resolution of one target field to its source columns.
type MappedField struct {
	Field         string        `json:"field"`
	SourceColumns []string      `json:"source_columns"`
	SourceIndexes []int         `json:"source_indexes"`
	Confidence    float64       `json:"confidence"`
	Method        MappingMethod `json:"method"`
	Unit          string        `json:"unit,omitempty"`
}

// FieldMapping is the full column-to-field mapping for one sheet.
type FieldMapping struct {
	EntityType    EntityType              `json:"entity_type"`
	Fields        map[string]*MappedField `json:"fields"`
	Coverage      float64                 `json:"coverage"`
	Quality       MappingQuality          `json:"quality"`
	Unmapped      []string                `json:"unmapped"`
	GrayZoneCount int                     `json:"gray_zone_count"`
}

// Field returns the mapping for a target field, or nil if the field is unmapped.
func (m *FieldMapping) Field(name string) *MappedField {
	if m == nil || m.Fields == nil {
		return nil
	}
	return m.Fields[name]
}

// ExtractionResult summarizes entity extraction for one sheet.
type ExtractionResult struct {
	SheetName           string    `json:"sheet_name"`
	Success             bool      `json:"success"`
	Confidence          float64   `json:"confidence"`
	SheetType           SheetType `json:"sheet_type"`
	ComponentsExtracted int       `json:"components_extracted"`
	TotalRows           int       `json:"total_rows"`
	QualityScore        float64   `json:"quality_score"`
	Issues              []string  `json:"issues"`
	Warnings            []string  `json:"warnings"`
}

// Source is the provenance of an extracted entity. Synthesized entities have an empty sheet.
type Source struct {
	Sheet string `json:"sheet,omitempty"`
	Row   int    `json:"row,omitempty"`
}

// LoadRecord is one electrical consumer.
type LoadRecord struct {
	ID                 string             `json:"id"`
	Name               string             `json:"name"`
	PowerKW            float64            `json:"power_kw"`
	VoltageV           float64            `json:"voltage_v"`
	Phases             int                `json:"phases"`
	PowerFactor        float64            `json:"power_factor"`
	Efficiency         float64            `json:"efficiency"`
	LoadType           LoadType           `json:"load_type"`
	DutyCycle          DutyCycle          `json:"duty_cycle"`
	Priority           Priority           `json:"priority"`
	SourceBus          string             `json:"source_bus,omitempty"`
	CableID            string             `json:"cable_id,omitempty"`
	CableLengthM       float64            `json:"cable_length_m"`
	InstallationMethod InstallationMethod `json:"installation_method"`
	ProtectionRatingA  float64            `json:"protection_rating_a"`
	DesignCurrentA     *float64           `json:"design_current_a,omitempty"`
	VoltageDropPct     *float64           `json:"voltage_drop_pct,omitempty"`
	Source             Source             `json:"source"`
	Synthesized        bool               `json:"synthesized,omitempty"`
}

// LoadCalculation carries quantities derived by the calculation collaborator.
type LoadCalculation struct {
	DesignCurrentA *float64
	VoltageDropPct *float64
}

// CableRecord is one cable connecting a bus to a load.
type CableRecord struct {
	ID                 string             `json:"id"`
	FromBus            string             `json:"from_bus,omitempty"`
	ToLoad             string             `json:"to_load,omitempty"`
	SizeMM2            float64            `json:"size_mm2"`
	Cores              int                `json:"cores"`
	LengthM            float64            `json:"length_m"`
	Material           ConductorMaterial  `json:"material"`
	InstallationMethod InstallationMethod `json:"installation_method"`
	CableType          CableType          `json:"cable_type"`
	Armored            bool               `json:"armored"`
	VoltageRatingV     float64            `json:"voltage_rating_v"`
	CurrentRatingA     float64            `json:"current_rating_a"`
	DesignCurrentA     *float64           `json:"design_current_a,omitempty"`
	Source             Source             `json:"source"`
	Synthesized        bool               `json:"synthesized,omitempty"`
}

// BusRecord is a distribution bus (switchboard, MCC, panel) grouping loads.
type BusRecord struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	VoltageV        float64 `json:"voltage_v"`
	RatedCurrentA   float64 `json:"rated_current_a"`
	ShortCircuitKA  float64 `json:"short_circuit_ka"`
	Phases          int     `json:"phases"`
	FedFrom         string  `json:"fed_from,omitempty"`
	ConnectedLoadKW float64 `json:"connected_load_kw"`
	LoadCount       int     `json:"load_count"`
	Source          Source  `json:"source"`
	Synthesized     bool    `json:"synthesized,omitempty"`
}

// TransformerRecord is a power transformer.
type TransformerRecord struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	RatingKVA         float64 `json:"rating_kva"`
	PrimaryVoltageV   float64 `json:"primary_voltage_v"`
	SecondaryVoltageV float64 `json:"secondary_voltage_v"`
	ImpedancePct      float64 `json:"impedance_pct"`
	VectorGroup       string  `json:"vector_group,omitempty"`
	SecondaryBus      string  `json:"secondary_bus,omitempty"`
	Source            Source  `json:"source"`
}

// ProjectInfo holds project-level metadata. At most one exists per run.
type ProjectInfo struct {
	Name           string  `json:"name"`
	Number         string  `json:"number,omitempty"`
	Client         string  `json:"client,omitempty"`
	Standard       string  `json:"standard,omitempty"`
	FrequencyHz    float64 `json:"frequency_hz,omitempty"`
	AmbientTempC   float64 `json:"ambient_temp_c,omitempty"`
	SystemVoltageV float64 `json:"system_voltage_v,omitempty"`
	Source         Source  `json:"source"`
}

// IDPatterns holds the identifier invariant per entity type.
var IDPatterns = map[EntityType]*regexp.Regexp{
	EntityLoad:        regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_\-./]{0,31}$`),
	EntityCable:       regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_\-./]{0,31}$`),
	EntityBus:         regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_\-./]{0,31}$`),
	EntityTransformer: regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_\-./]{0,31}$`),
}

// IDPrefixes is the prefix used when sequencing fresh identifiers.
var IDPrefixes = map[EntityType]string{
	EntityLoad:        "L",
	EntityCable:       "C",
	EntityBus:         "B",
	EntityTransformer: "T",
}

// ValidID reports whether id satisfies the identifier invariant for et.
func ValidID(et EntityType, id string) bool {
	re, ok := IDPatterns[et]
	if !ok {
		return id != ""
	}
	return re.MatchString(id)
}

// Totals are derived from the final, deduplicated aggregate.
type Totals struct {
	TotalLoads        int                  `json:"total_loads"`
	TotalCables       int                  `json:"total_cables"`
	TotalBuses        int                  `json:"total_buses"`
	TotalTransformers int                  `json:"total_transformers"`
	TotalPowerKW      float64              `json:"total_power_kw"`
	TotalApparentKVA  float64              `json:"total_apparent_kva"`
	TotalCableLengthM float64              `json:"total_cable_length_m"`
	TransformerKVA    float64              `json:"transformer_kva"`
	PowerByPriority   map[Priority]float64 `json:"power_by_priority"`
	PowerByLoadType   map[LoadType]float64 `json:"power_by_load_type"`
}

// Aggregate is the full entity collection owned by one run.
type Aggregate struct {
	Loads        []*LoadRecord        `json:"loads"`
	Cables       []*CableRecord       `json:"cables"`
	Buses        []*BusRecord         `json:"buses"`
	Transformers []*TransformerRecord `json:"transformers"`
	Project      *ProjectInfo         `json:"project,omitempty"`
	Totals       Totals               `json:"totals"`

	frozen bool
}

// NewAggregate creates an empty aggregate.
func NewAggregate() *Aggregate {
	return &Aggregate{
		Loads:        []*LoadRecord{},
		Cables:       []*CableRecord{},
		Buses:        []*BusRecord{},
		Transformers: []*TransformerRecord{},
	}
}

// Freeze marks the aggregate read-only for the enhancer and deduplicator.
func (a *Aggregate) Freeze() { a.frozen = true }

// Frozen reports whether Freeze has been called.
func (a *Aggregate) Frozen() bool { return a.frozen }

// ComponentCount returns the number of entities across all collections.
func (a *Aggregate) ComponentCount() int {
	n := len(a.Loads) + len(a.Cables) + len(a.Buses) + len(a.Transformers)
	if a.Project != nil {
		n++
	}
	return n
}

// Correction is one automatic repair applied by the enhancer.
type Correction struct {
	Kind       CorrectionKind `json:"kind"`
	EntityType EntityType     `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Field      string         `json:"field,omitempty"`
	OldValue   string         `json:"old_value,omitempty"`
	NewValue   string         `json:"new_value,omitempty"`
	Message    string         `json:"message"`
}

// ValidationIssue is one failed validation check.
type ValidationIssue struct {
	RuleKey       string     `json:"rule_key"`
	Severity      Severity   `json:"severity"`
	EntityType    EntityType `json:"entity_type,omitempty"`
	EntityID      string     `json:"entity_id,omitempty"`
	FieldPath     string     `json:"field_path"`
	ExpectedValue string     `json:"expected_value"`
	ActualValue   string     `json:"actual_value"`
	Message       string     `json:"message"`
}

// ValidationSummary is the validation outcome embedded in a report.
type ValidationSummary struct {
	IsValid         bool    `json:"is_valid"`
	Checks          int     `json:"checks"`
	Errors          int     `json:"errors"`
	Warnings        int     `json:"warnings"`
	Recommendations int     `json:"recommendations"`
	QualityScore    float64 `json:"quality_score"`
}

// EntityStatus is the validation state of one entity, keyed in reports as
// "<entity_type>:<id>".
type EntityStatus struct {
	Status   EntityValidationStatus `json:"status"`
	Messages []string               `json:"messages"`
}

// SheetReport is the per-sheet section of a processing report.
type SheetReport struct {
	SheetName      string                `json:"sheet_name"`
	Classification *ClassificationResult `json:"classification"`
	Mapping        *FieldMapping         `json:"mapping,omitempty"`
	Extraction     *ExtractionResult     `json:"extraction"`
	Error          string                `json:"error,omitempty"`
}

// Provenance identifies a run and the states it visited.
type Provenance struct {
	RunID       string     `json:"run_id"`
	Status      RunStatus  `json:"status"`
	States      []RunState `json:"states"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt time.Time  `json:"completed_at"`
}

// ProcessingReport is produced by every run, successful or not.
type ProcessingReport struct {
	RunID             string                   `json:"run_id"`
	SourceName        string                   `json:"source_name,omitempty"`
	Status            RunStatus                `json:"status"`
	OverallConfidence float64                  `json:"overall_confidence"`
	TotalComponents   int                      `json:"total_components"`
	ProcessingTime    time.Duration            `json:"processing_time"`
	Sheets            []SheetReport            `json:"sheets"`
	Corrections       []Correction             `json:"corrections_made"`
	ValidationIssues  []ValidationIssue        `json:"validation_issues"`
	Validation        *ValidationSummary       `json:"validation,omitempty"`
	EnhancerWarnings  []string                 `json:"enhancer_warnings,omitempty"`
	EntityStatuses    map[string]*EntityStatus `json:"entity_statuses,omitempty"`
	Totals            Totals                   `json:"totals"`
	RequiresReview    bool                     `json:"requires_review"`
	Provenance        Provenance               `json:"provenance"`
	Error             string                   `json:"error,omitempty"`
}

// RunSummary is the listing view of a stored run report.
type RunSummary struct {
	RunID             string    `json:"run_id" db:"run_id"`
	SourceName        string    `json:"source_name" db:"source_name"`
	Status            RunStatus `json:"status" db:"status"`
	OverallConfidence float64   `json:"overall_confidence" db:"overall_confidence"`
	TotalComponents   int       `json:"total_components" db:"total_components"`
	RequiresReview    bool      `json:"requires_review" db:"requires_review"`
	ArchiveKey        string    `json:"archive_key,omitempty" db:"archive_key"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}
