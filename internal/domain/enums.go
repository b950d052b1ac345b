package domain

// SheetType is the semantic label assigned to a sheet by the classifier.
type SheetType string

const (
	SheetTypeLoad        SheetType = "load_schedule"
	SheetTypeCable       SheetType = "cable_schedule"
	SheetTypeBus         SheetType = "bus_schedule"
	SheetTypeTransformer SheetType = "transformer_schedule"
	SheetTypeProjectInfo SheetType = "project_info"
	SheetTypeUnknown     SheetType = "unknown"
)

// ClassifiableSheetTypes lists candidate types in tie-break order.
var ClassifiableSheetTypes = []SheetType{
	SheetTypeLoad,
	SheetTypeCable,
	SheetTypeBus,
	SheetTypeTransformer,
	SheetTypeProjectInfo,
}

// EntityType identifies an entity collection within the aggregate.
type EntityType string

const (
	EntityLoad        EntityType = "load"
	EntityCable       EntityType = "cable"
	EntityBus         EntityType = "bus"
	EntityTransformer EntityType = "transformer"
	EntityProject     EntityType = "project"
)

// EntityTypeForSheet maps a sheet type to the entity type it produces.
// Unknown sheets produce nothing.
func EntityTypeForSheet(st SheetType) (EntityType, bool) {
	switch st {
	case SheetTypeLoad:
		return EntityLoad, true
	case SheetTypeCable:
		return EntityCable, true
	case SheetTypeBus:
		return EntityBus, true
	case SheetTypeTransformer:
		return EntityTransformer, true
	case SheetTypeProjectInfo:
		return EntityProject, true
	default:
		return "", false
	}
}

// ClassificationMethod records which classifier tier produced a result.
type ClassificationMethod string

const (
	ClassificationSemantic ClassificationMethod = "semantic"
	ClassificationPattern  ClassificationMethod = "pattern"
	ClassificationEmpty    ClassificationMethod = "empty"
)

// MappingMethod records which mapper tier produced a column mapping.
type MappingMethod string

const (
	MappingPattern           MappingMethod = "pattern"
	MappingAlias             MappingMethod = "alias"
	MappingLearned           MappingMethod = "learned"
	MappingSemantic          MappingMethod = "semantic"
	MappingGrayZoneConfirmed MappingMethod = "gray_zone_confirmed"
	MappingFuzzy             MappingMethod = "fuzzy"
	MappingWeak              MappingMethod = "weak"
)

// MappingQuality is the coverage label of a field mapping.
type MappingQuality string

const (
	MappingQualityExcellent MappingQuality = "excellent"
	MappingQualityGood      MappingQuality = "good"
	MappingQualityFair      MappingQuality = "fair"
	MappingQualityPoor      MappingQuality = "poor"
)

// LoadType is the functional category of a load.
type LoadType string

const (
	LoadTypeMotor    LoadType = "motor"
	LoadTypeLighting LoadType = "lighting"
	LoadTypeHVAC     LoadType = "hvac"
	LoadTypeHeating  LoadType = "heating"
	LoadTypeUPS      LoadType = "ups"
	LoadTypeSocket   LoadType = "socket"
	LoadTypeGeneral  LoadType = "general"
)

// DutyCycle describes how a load operates over time.
type DutyCycle string

const (
	DutyContinuous   DutyCycle = "continuous"
	DutyIntermittent DutyCycle = "intermittent"
	DutyStandby      DutyCycle = "standby"
)

// Priority ranks a load for supply continuity.
type Priority string

const (
	PriorityCritical     Priority = "critical"
	PriorityEssential    Priority = "essential"
	PriorityNonEssential Priority = "non_essential"
	PriorityNormal       Priority = "normal"
)

// InstallationMethod is how a cable is installed.
type InstallationMethod string

const (
	InstallTray         InstallationMethod = "cable_tray"
	InstallConduit      InstallationMethod = "conduit"
	InstallDirectBuried InstallationMethod = "direct_buried"
	InstallDuct         InstallationMethod = "duct"
	InstallFreeAir      InstallationMethod = "free_air"
	InstallUnspecified  InstallationMethod = "unspecified"
)

// CableType is the insulation/construction family of a cable.
type CableType string

const (
	CableXLPE        CableType = "xlpe"
	CablePVC         CableType = "pvc"
	CableEPR         CableType = "epr"
	CableLSZH        CableType = "lszh"
	CableMI          CableType = "mineral_insulated"
	CableUnspecified CableType = "unspecified"
)

// ConductorMaterial is the conductor metal of a cable.
type ConductorMaterial string

const (
	MaterialCopper    ConductorMaterial = "copper"
	MaterialAluminium ConductorMaterial = "aluminium"
)

// Severity classifies a validation finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// RunStatus is the terminal status of a pipeline run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RunState is a step of the orchestrator state machine.
type RunState string

const (
	StateReset        RunState = "RESET"
	StateRead         RunState = "READ"
	StateClassify     RunState = "CLASSIFY"
	StateMap          RunState = "MAP"
	StateExtract      RunState = "EXTRACT"
	StateAggregate    RunState = "AGGREGATE"
	StateEnhance      RunState = "ENHANCE"
	StateDeduplicate  RunState = "DEDUPLICATE"
	StateValidate     RunState = "VALIDATE"
	StateTotals       RunState = "TOTALS"
	StateSanityAssert RunState = "SANITY_ASSERT"
	StateReport       RunState = "REPORT"
	StateCompleted    RunState = "COMPLETED"
	StateFailed       RunState = "FAILED"
)

// CorrectionKind groups automatic corrections made during a run.
type CorrectionKind string

const (
	CorrectionIDRepair     CorrectionKind = "id_repair"
	CorrectionReference    CorrectionKind = "reference_rewrite"
	CorrectionBackfill     CorrectionKind = "relationship_backfill"
	CorrectionSynthesized  CorrectionKind = "synthesized_entity"
	CorrectionNaming       CorrectionKind = "name_normalization"
	CorrectionRecalculated CorrectionKind = "recalculation"
	CorrectionDuplicate    CorrectionKind = "duplicate_removed"
)

// ValidationRuleType groups validation rules by what they inspect.
type ValidationRuleType string

const (
	RuleTypeEntity     ValidationRuleType = "entity"
	RuleTypeCrossField ValidationRuleType = "cross_field"
	RuleTypeSystem     ValidationRuleType = "system"
)

// EntityValidationStatus is the combined validation state of one entity.
type EntityValidationStatus string

const (
	EntityStatusValid   EntityValidationStatus = "valid"
	EntityStatusInvalid EntityValidationStatus = "invalid"
	EntityStatusUnsure  EntityValidationStatus = "unsure"
)
