package extractor

import (
	"strings"
	"unicode"

	"schedex/internal/domain"
)

// vocabEntry maps any of its keywords to a value. Keywords of up to three
// letters must match a whole token; longer ones match as substrings of the
// lowercased text. Tables are consulted in order, first hit wins.
type vocabEntry[T any] struct {
	keywords []string
	value    T
}

func lookup[T any](table []vocabEntry[T], text string, fallback T) (T, bool) {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return fallback, false
	}
	tokens := make(map[string]bool)
	for _, t := range strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		tokens[t] = true
	}
	for _, e := range table {
		for _, k := range e.keywords {
			if len(k) <= 3 {
				if tokens[k] {
					return e.value, true
				}
				continue
			}
			if strings.Contains(s, k) {
				return e.value, true
			}
		}
	}
	return fallback, false
}

var loadTypeVocab = []vocabEntry[domain.LoadType]{
	{[]string{"ups", "uninterruptible", "inverter"}, domain.LoadTypeUPS},
	{[]string{"hvac", "ahu", "air handling", "chiller", "fcu", "fan coil", "air condition", "cooling tower", "ventilation", "exhaust fan"}, domain.LoadTypeHVAC},
	{[]string{"motor", "pump", "compressor", "fan", "conveyor", "blower", "agitator", "mixer", "crane", "hoist", "vfd", "drive"}, domain.LoadTypeMotor},
	{[]string{"light", "lighting", "lamp", "luminaire", "led"}, domain.LoadTypeLighting},
	{[]string{"heater", "heating", "heat trace", "boiler", "oven", "furnace", "kettle"}, domain.LoadTypeHeating},
	{[]string{"socket", "receptacle", "outlet", "power point", "small power"}, domain.LoadTypeSocket},
}

// Non-essential and non-critical must precede essential and critical: the
// latter are substrings of the former.
var priorityVocab = []vocabEntry[domain.Priority]{
	{[]string{"non-essential", "non essential", "nonessential", "non_essential", "non-critical", "non critical", "noncritical", "non_critical", "ne"}, domain.PriorityNonEssential},
	{[]string{"critical", "vital", "emergency", "life safety"}, domain.PriorityCritical},
	{[]string{"essential", "ess", "important"}, domain.PriorityEssential},
	{[]string{"normal", "general", "standard"}, domain.PriorityNormal},
}

var dutyVocab = []vocabEntry[domain.DutyCycle]{
	{[]string{"standby", "stand-by", "stand by", "spare", "backup", "reserve", "sb"}, domain.DutyStandby},
	{[]string{"intermittent", "int", "occasional", "periodic", "cyclic", "s3"}, domain.DutyIntermittent},
	{[]string{"continuous", "cont", "duty", "running", "s1", "24/7"}, domain.DutyContinuous},
}

var installationVocab = []vocabEntry[domain.InstallationMethod]{
	{[]string{"tray", "ladder", "rack"}, domain.InstallTray},
	{[]string{"conduit", "pipe"}, domain.InstallConduit},
	{[]string{"buried", "direct", "ground", "underground"}, domain.InstallDirectBuried},
	{[]string{"duct", "trunking"}, domain.InstallDuct},
	{[]string{"free air", "air", "clipped", "clip"}, domain.InstallFreeAir},
}

var cableTypeVocab = []vocabEntry[domain.CableType]{
	{[]string{"lszh", "lsoh", "lsf", "halogen"}, domain.CableLSZH},
	{[]string{"xlpe", "xlp", "cross-linked", "cross linked"}, domain.CableXLPE},
	{[]string{"epr", "ethylene propylene"}, domain.CableEPR},
	{[]string{"mineral", "micc", "mi"}, domain.CableMI},
	{[]string{"pvc"}, domain.CablePVC},
}

var materialVocab = []vocabEntry[domain.ConductorMaterial]{
	{[]string{"alum", "al"}, domain.MaterialAluminium},
	{[]string{"copper", "cu"}, domain.MaterialCopper},
}

// ResolveLoadType classifies a load from its type cell, then its name.
func ResolveLoadType(typeText, name string) domain.LoadType {
	if v, ok := lookup(loadTypeVocab, typeText, domain.LoadTypeGeneral); ok {
		return v
	}
	v, _ := lookup(loadTypeVocab, name, domain.LoadTypeGeneral)
	return v
}

// ResolvePriority maps free text to a supply priority.
func ResolvePriority(text string) domain.Priority {
	v, _ := lookup(priorityVocab, text, domain.PriorityNormal)
	return v
}

// ResolveDutyCycle maps free text to a duty cycle.
func ResolveDutyCycle(text string) domain.DutyCycle {
	v, _ := lookup(dutyVocab, text, domain.DutyContinuous)
	return v
}

// ResolveInstallation maps free text to an installation method.
func ResolveInstallation(text string) domain.InstallationMethod {
	v, _ := lookup(installationVocab, text, domain.InstallUnspecified)
	return v
}

// ResolveCableType maps free text to a cable insulation type.
func ResolveCableType(text string) domain.CableType {
	v, _ := lookup(cableTypeVocab, text, domain.CableUnspecified)
	return v
}

// ResolveMaterial maps free text to a conductor material.
func ResolveMaterial(text string) domain.ConductorMaterial {
	v, _ := lookup(materialVocab, text, domain.MaterialCopper)
	return v
}
