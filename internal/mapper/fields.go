package mapper

import (
	"regexp"

	"schedex/internal/domain"
)

// FieldSpec describes one canonical target field of an entity type.
type FieldSpec struct {
	Name        string
	Required    bool
	Patterns    []*regexp.Regexp
	Aliases     []string
	Description string
	// Units lists the normalized unit tokens that may appear in the header.
	Units []string
}

func re(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

var (
	powerUnits   = []string{"kw", "w", "hp", "kva", "mw"}
	voltageUnits = []string{"v", "kv"}
	lengthUnits  = []string{"m", "km"}
	currentUnits = []string{"a", "ka"}
)

// grayZoneFields are ambiguous enough that a mid-strength fuzzy match must be confirmed.
var grayZoneFields = map[string]bool{
	"size_mm2":            true,
	"installation_method": true,
	"cable_type":          true,
	"armored":             true,
}

var installationSpec = FieldSpec{
	Name:        "installation_method",
	Patterns:    re(`^(cable )?(installation|install|laying)( (method|type|condition))?$`, `^method of (installation|laying)$`),
	Aliases:     []string{"installation method", "installation", "laying method", "method of installation", "routing"},
	Description: "how the cable is installed: tray, conduit, buried, duct, free air",
}

var voltageSpec = FieldSpec{
	Name:        "voltage_v",
	Patterns:    re(`^(rated |supply |nominal |operating |system )?(voltage|volt|v)( (v|kv))?$`, `^kv$`),
	Aliases:     []string{"voltage", "supply voltage", "rated voltage", "nominal voltage", "volts"},
	Description: "rated supply voltage in volts",
	Units:       voltageUnits,
}

var phasesSpec = FieldSpec{
	Name:        "phases",
	Patterns:    re(`^(no of )?(phases?|ph)$`, `^phase (no|type|config)$`),
	Aliases:     []string{"phase", "phases", "ph", "no of phases", "number of phases"},
	Description: "number of phases, one or three",
}

var loadFields = []FieldSpec{
	{
		Name:        "load_id",
		Required:    true,
		Patterns:    re(`^(load|equipment|equip|item|tag|consumer|motor) (id|no|tag|ref|code)$`, `^(id|tag|tag no|ref)$`),
		Aliases:     []string{"load id", "load no", "load number", "tag", "tag no", "equipment id", "equipment tag", "id", "item no"},
		Description: "unique identifier or tag of the electrical load",
	},
	{
		Name:        "load_name",
		Required:    true,
		Patterns:    re(`^((load|equipment|equip|item|consumer|motor) )?(name|description|desc)$`, `^(service|duty description)$`),
		Aliases:     []string{"load name", "description", "name", "equipment name", "load description", "service"},
		Description: "descriptive name of the load",
	},
	{
		Name:     "power_kw",
		Required: true,
		Patterns: re(
			`^((rated|absorbed|installed|motor|connected|shaft|nameplate) )?(power|rating|output|demand)( rating)?( (kw|w|hp|kva|mw))?$`,
			`^(kw|hp|kva)( rating)?$`,
			`^(load|motor|connected load) (kw|hp|kva)$`,
		),
		Aliases:     []string{"power", "rated power", "kw", "motor rating", "power rating", "installed power", "connected load"},
		Description: "rated active power of the load in kilowatts",
		Units:       powerUnits,
	},
	voltageSpec,
	phasesSpec,
	{
		Name:        "power_factor",
		Patterns:    re(`^(power factor|pf|cos phi|cos φ|cosφ|cos)$`),
		Aliases:     []string{"pf", "power factor", "cos phi"},
		Description: "power factor between zero and one",
	},
	{
		Name:        "efficiency",
		Patterns:    re(`^(eff|efficiency|motor efficiency)( pct)?$`),
		Aliases:     []string{"efficiency", "eff", "motor efficiency"},
		Description: "efficiency between zero and one or as a percentage",
	},
	{
		Name:        "load_type",
		Patterns:    re(`^((load|equipment|consumer) )?(type|category|class)$`),
		Aliases:     []string{"type", "load type", "category", "equipment type"},
		Description: "category of load such as motor, lighting, hvac, heater",
	},
	{
		Name:        "duty_cycle",
		Patterns:    re(`^(duty|duty cycle|operating duty|service duty|operation|operating mode)$`),
		Aliases:     []string{"duty", "duty cycle", "operating duty", "operation"},
		Description: "continuous, intermittent or standby operation",
	},
	{
		Name:        "priority",
		Patterns:    re(`^((load|supply) )?(priority|criticality|class of supply)$`),
		Aliases:     []string{"priority", "criticality", "load priority"},
		Description: "supply priority: critical, essential, non-essential",
	},
	{
		Name: "source_bus",
		Patterns: re(
			`^(source|supply|fed from|supplied from|feeder|incomer)( (bus|panel|board|id|no))?$`,
			`^(bus|panel|board|switchboard|mcc|db|distribution board)( (id|no|ref))?$`,
		),
		Aliases:     []string{"source bus", "fed from", "panel", "mcc", "bus", "switchboard", "source"},
		Description: "bus, panel or MCC that feeds the load",
	},
	{
		Name:        "cable_length_m",
		Patterns:    re(`^(cable )?(length|run|route length|run length|distance)( (m|km))?$`),
		Aliases:     []string{"cable length", "length", "cable run", "distance"},
		Description: "length of the feeding cable in metres",
		Units:       lengthUnits,
	},
	installationSpec,
	{
		Name:        "protection_rating_a",
		Patterns:    re(`^(protection|breaker|mcb|mccb|fuse|cb|protective device)( (rating|size|setting))?( a)?$`),
		Aliases:     []string{"breaker rating", "protection", "mccb", "fuse rating", "protection rating"},
		Description: "protective device rating in amperes",
		Units:       currentUnits,
	},
	{
		Name:        "design_current_a",
		Patterns:    re(`^((design|full load|running|rated|load) )?(current|flc|fla|ib)( a)?$`),
		Aliases:     []string{"design current", "full load current", "flc", "current"},
		Description: "design or full load current in amperes",
		Units:       currentUnits,
	},
}

var cableFields = []FieldSpec{
	{
		Name:        "cable_id",
		Required:    true,
		Patterns:    re(`^(cable|circuit|feeder) (id|no|tag|ref|code)$`, `^(id|tag|cable|cable ref)$`),
		Aliases:     []string{"cable id", "cable no", "cable tag", "circuit id", "cable number", "id"},
		Description: "unique identifier or tag of the cable",
	},
	{
		Name:        "from_bus",
		Patterns:    re(`^(from|source|origin|supply from|fed from)( (bus|panel|board|equipment|id))?$`),
		Aliases:     []string{"from", "from bus", "source", "origin", "from panel"},
		Description: "bus or panel at the supply end of the cable",
	},
	{
		Name:        "to_load",
		Patterns:    re(`^(to|destination|load|consumer|termination)( (load|equipment|id|tag))?$`),
		Aliases:     []string{"to", "to load", "destination", "load", "to equipment"},
		Description: "load at the receiving end of the cable",
	},
	{
		Name:     "size_mm2",
		Required: true,
		Patterns: re(
			`^((cable|conductor|phase) )?(size|csa|cross section|cross sectional area)( mm2)?$`,
			`^mm2$`,
			`^(cable )?size mm2\b.*$`,
		),
		Aliases:     []string{"size", "cable size", "conductor size", "csa", "cross section"},
		Description: "conductor cross section area in square millimetres",
	},
	{
		Name:        "length_m",
		Required:    true,
		Patterns:    re(`^((cable|route|run) )?(length|distance)( (m|km))?$`),
		Aliases:     []string{"length", "cable length", "route length", "run length"},
		Description: "route length of the cable in metres",
		Units:       lengthUnits,
	},
	{
		Name:        "cores",
		Patterns:    re(`^(no of )?(cores?|conductors)$`, `^cores? no$`),
		Aliases:     []string{"cores", "no of cores", "core", "number of cores"},
		Description: "number of cores in the cable",
	},
	{
		Name:        "material",
		Patterns:    re(`^(conductor )?material$`, `^conductor( type)?$`),
		Aliases:     []string{"material", "conductor", "conductor material"},
		Description: "conductor material copper or aluminium",
	},
	installationSpec,
	{
		Name:        "cable_type",
		Patterns:    re(`^(cable type|insulation|insulation type|insulation material)$`),
		Aliases:     []string{"cable type", "insulation", "insulation type", "type"},
		Description: "cable insulation type such as XLPE, PVC, EPR, LSZH",
	},
	{
		Name:        "armored",
		Patterns:    re(`^(armou?r|armou?red|armou?r type|swa|armouring)$`),
		Aliases:     []string{"armour", "armor", "armoured", "armored", "swa"},
		Description: "whether the cable has steel wire armour",
	},
	{
		Name:        "voltage_rating_v",
		Patterns:    re(`^(voltage rating|rated voltage|voltage grade|voltage class|voltage|uo u)( (v|kv))?$`),
		Aliases:     []string{"voltage rating", "voltage grade", "rated voltage", "voltage"},
		Description: "cable voltage grade in volts",
		Units:       voltageUnits,
	},
	{
		Name:        "current_rating_a",
		Patterns:    re(`^(current rating|ampacity|rated current|current capacity|current carrying capacity|iz)( a)?$`),
		Aliases:     []string{"current rating", "ampacity", "rated current", "iz"},
		Description: "derated current carrying capacity in amperes",
		Units:       currentUnits,
	},
}

var busFields = []FieldSpec{
	{
		Name:        "bus_id",
		Required:    true,
		Patterns:    re(`^(bus|board|panel|switchboard|mcc|swbd|db|pcc) (id|no|tag|ref|code)$`, `^(id|tag|bus|panel)$`),
		Aliases:     []string{"bus id", "bus", "panel id", "board id", "switchboard", "id"},
		Description: "unique identifier of the bus, switchboard or panel",
	},
	{
		Name:        "bus_name",
		Patterns:    re(`^((bus|board|panel|switchboard) )?(name|description|desc)$`),
		Aliases:     []string{"bus name", "name", "description", "panel name"},
		Description: "descriptive name of the bus",
	},
	voltageSpec,
	{
		Name:        "rated_current_a",
		Patterns:    re(`^((rated|busbar|bus|main) )?(current|rating|ampacity)( rating)?( a)?$`),
		Aliases:     []string{"rated current", "bus rating", "busbar rating", "current rating"},
		Description: "busbar rated current in amperes",
		Units:       currentUnits,
	},
	{
		Name:        "short_circuit_ka",
		Patterns:    re(`^(short circuit|fault|sc|isc|fault level|fault rating|breaking capacity|withstand)( (rating|level|current|capacity))?( ka)?$`),
		Aliases:     []string{"short circuit rating", "fault level", "isc", "short circuit"},
		Description: "short circuit withstand rating in kiloamperes",
	},
	phasesSpec,
	{
		Name:        "fed_from",
		Patterns:    re(`^(fed from|source|supply|incomer|upstream|supplied from|from)( (bus|transformer|panel))?$`),
		Aliases:     []string{"fed from", "source", "incomer", "upstream"},
		Description: "upstream bus or transformer supplying this bus",
	},
}

var transformerFields = []FieldSpec{
	{
		Name:        "transformer_id",
		Required:    true,
		Patterns:    re(`^(transformer|tx|tr|xfmr|trafo) (id|no|tag|ref|code)$`, `^(id|tag|transformer)$`),
		Aliases:     []string{"transformer id", "tx id", "transformer no", "tag", "id"},
		Description: "unique identifier of the transformer",
	},
	{
		Name:        "transformer_name",
		Patterns:    re(`^((transformer|tx) )?(name|description|desc)$`),
		Aliases:     []string{"transformer name", "name", "description"},
		Description: "descriptive name of the transformer",
	},
	{
		Name:        "rating_kva",
		Required:    true,
		Patterns:    re(`^((rated|nameplate) )?(rating|power|capacity|size)( (kva|mva))?$`, `^(kva|mva)( rating)?$`),
		Aliases:     []string{"rating", "kva", "rated power", "capacity"},
		Description: "transformer rated apparent power in kVA",
		Units:       []string{"kva", "mva"},
	},
	{
		Name:        "primary_voltage_v",
		Patterns:    re(`^(primary|hv|pri|hv side|primary side)( voltage)?( (v|kv))?$`),
		Aliases:     []string{"primary voltage", "hv voltage", "primary"},
		Description: "primary winding voltage in volts",
		Units:       voltageUnits,
	},
	{
		Name:        "secondary_voltage_v",
		Patterns:    re(`^(secondary|lv|sec|lv side|secondary side)( voltage)?( (v|kv))?$`),
		Aliases:     []string{"secondary voltage", "lv voltage", "secondary"},
		Description: "secondary winding voltage in volts",
		Units:       voltageUnits,
	},
	{
		Name:        "impedance_pct",
		Patterns:    re(`^(impedance|z|uk|pct impedance|impedance voltage|percentage impedance)( pct)?$`),
		Aliases:     []string{"impedance", "z", "uk", "percent impedance"},
		Description: "short circuit impedance in percent",
	},
	{
		Name:        "vector_group",
		Patterns:    re(`^(vector group|vector|connection group|connection)$`),
		Aliases:     []string{"vector group", "vector", "connection"},
		Description: "winding vector group such as Dyn11",
	},
	{
		Name:        "secondary_bus",
		Patterns:    re(`^(secondary bus|lv bus|feeds|feeding|to bus|to)$`),
		Aliases:     []string{"secondary bus", "lv bus", "feeds", "to bus"},
		Description: "bus supplied by the transformer secondary",
	},
}

var projectFields = []FieldSpec{
	{
		Name:        "project_name",
		Required:    true,
		Patterns:    re(`^(project|job)( (name|title))?$`),
		Aliases:     []string{"project", "project name", "project title", "job name"},
		Description: "name of the project",
	},
	{
		Name:        "project_number",
		Patterns:    re(`^(project|job) (no|code|id|ref)$`),
		Aliases:     []string{"project no", "job no", "project code"},
		Description: "project or job number",
	},
	{
		Name:        "client",
		Patterns:    re(`^(client|customer|owner|employer)( name)?$`),
		Aliases:     []string{"client", "customer", "owner"},
		Description: "client or owner of the project",
	},
	{
		Name:        "standard",
		Patterns:    re(`^((design|applicable) )?(standard|code)s?$`),
		Aliases:     []string{"standard", "design standard", "design code"},
		Description: "design standard such as IEC 60364",
	},
	{
		Name:        "frequency_hz",
		Patterns:    re(`^((system|supply) )?(frequency|freq)( hz)?$`),
		Aliases:     []string{"frequency", "system frequency", "hz"},
		Description: "system frequency in hertz",
	},
	{
		Name:        "ambient_temp_c",
		Patterns:    re(`^((design )?ambient( temperature| temp)?)( c)?$`),
		Aliases:     []string{"ambient temperature", "ambient", "design ambient"},
		Description: "design ambient temperature in degrees celsius",
	},
	{
		Name:        "system_voltage_v",
		Patterns:    re(`^((system|nominal|supply|distribution) )?voltage( (v|kv))?$`),
		Aliases:     []string{"system voltage", "nominal voltage", "voltage"},
		Description: "nominal low voltage system voltage in volts",
		Units:       voltageUnits,
	},
}

var fieldsByEntity = map[domain.EntityType][]FieldSpec{
	domain.EntityLoad:        loadFields,
	domain.EntityCable:       cableFields,
	domain.EntityBus:         busFields,
	domain.EntityTransformer: transformerFields,
	domain.EntityProject:     projectFields,
}

// Fields returns the target field specs for an entity type, in priority order.
func Fields(et domain.EntityType) []FieldSpec {
	return fieldsByEntity[et]
}

// RequiredFields returns the names of the required fields for an entity type.
func RequiredFields(et domain.EntityType) []string {
	var out []string
	for _, f := range fieldsByEntity[et] {
		if f.Required {
			out = append(out, f.Name)
		}
	}
	return out
}
