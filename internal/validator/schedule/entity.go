package schedule

import (
	"fmt"

	"schedex/internal/domain"
)

// Standard nominal system voltages (IEC 60038 and common North American levels).
var standardVoltages = map[float64]bool{
	110: true, 120: true, 208: true, 220: true, 230: true, 240: true, 277: true,
	380: true, 400: true, 415: true, 440: true, 480: true, 600: true, 690: true,
	3300: true, 4160: true, 6600: true, 11000: true, 13800: true, 22000: true, 33000: true,
}

// Standard conductor cross-sections in mm2 (IEC 60228).
var standardCableSizes = map[float64]bool{
	0.5: true, 0.75: true, 1: true, 1.5: true, 2.5: true, 4: true, 6: true, 10: true,
	16: true, 25: true, 35: true, 50: true, 70: true, 95: true, 120: true, 150: true,
	185: true, 240: true, 300: true, 400: true, 500: true, 630: true, 800: true, 1000: true,
}

// Standard distribution transformer ratings in kVA (IEC 60076).
var standardTransformerKVA = map[float64]bool{
	25: true, 50: true, 63: true, 100: true, 160: true, 200: true, 250: true, 315: true,
	400: true, 500: true, 630: true, 800: true, 1000: true, 1250: true, 1600: true,
	2000: true, 2500: true, 3150: true, 4000: true, 5000: true,
}

// MaxVoltageDropPct is the voltage drop above which a load is flagged.
const MaxVoltageDropPct = 5.0

// EntityValidators returns the per-entity rules.
func EntityValidators() []*ruleValidator {
	return []*ruleValidator{
		{
			ruleKey: "load.power.positive", ruleName: "Load: Positive Power",
			ruleType: domain.RuleTypeEntity, severity: domain.SeverityError,
			validate: func(a *domain.Aggregate) []ValidationResult {
				var results []ValidationResult
				for _, l := range a.Loads {
					results = append(results, check(l.PowerKW > 0, domain.EntityLoad, l.ID, "power_kw",
						"> 0", fmtf(l.PowerKW), "Load: Positive Power", fmt.Sprintf("is not positive (%s kW)", fmtf(l.PowerKW))))
				}
				return results
			},
		},
		{
			ruleKey: "load.voltage.positive", ruleName: "Load: Positive Voltage",
			ruleType: domain.RuleTypeEntity, severity: domain.SeverityError,
			validate: func(a *domain.Aggregate) []ValidationResult {
				var results []ValidationResult
				for _, l := range a.Loads {
					results = append(results, check(l.VoltageV > 0, domain.EntityLoad, l.ID, "voltage_v",
						"> 0", fmtf(l.VoltageV), "Load: Positive Voltage", "is not positive"))
				}
				return results
			},
		},
		{
			ruleKey: "load.power_factor.range", ruleName: "Load: Power Factor Range",
			ruleType: domain.RuleTypeEntity, severity: domain.SeverityError,
			validate: func(a *domain.Aggregate) []ValidationResult {
				var results []ValidationResult
				for _, l := range a.Loads {
					ok := l.PowerFactor > 0 && l.PowerFactor <= 1
					results = append(results, check(ok, domain.EntityLoad, l.ID, "power_factor",
						"(0, 1]", fmtf(l.PowerFactor), "Load: Power Factor Range", "is outside (0, 1]"))
				}
				return results
			},
		},
		{
			ruleKey: "load.efficiency.range", ruleName: "Load: Efficiency Range",
			ruleType: domain.RuleTypeEntity, severity: domain.SeverityError,
			validate: func(a *domain.Aggregate) []ValidationResult {
				var results []ValidationResult
				for _, l := range a.Loads {
					ok := l.Efficiency > 0 && l.Efficiency <= 1
					results = append(results, check(ok, domain.EntityLoad, l.ID, "efficiency",
						"(0, 1]", fmtf(l.Efficiency), "Load: Efficiency Range", "is outside (0, 1]"))
				}
				return results
			},
		},
		{
			ruleKey: "load.voltage.standard", ruleName: "Load: Standard Voltage",
			ruleType: domain.RuleTypeEntity, severity: domain.SeverityWarning,
			validate: func(a *domain.Aggregate) []ValidationResult {
				var results []ValidationResult
				for _, l := range a.Loads {
					if l.VoltageV <= 0 {
						continue
					}
					results = append(results, check(standardVoltages[l.VoltageV], domain.EntityLoad, l.ID, "voltage_v",
						"standard nominal voltage", fmtf(l.VoltageV), "Load: Standard Voltage", "is not a standard nominal voltage"))
				}
				return results
			},
		},
		{
			ruleKey: "load.phases.valid", ruleName: "Load: Phase Count",
			ruleType: domain.RuleTypeEntity, severity: domain.SeverityWarning,
			validate: func(a *domain.Aggregate) []ValidationResult {
				var results []ValidationResult
				for _, l := range a.Loads {
					ok := l.Phases == 1 || l.Phases == 3
					results = append(results, check(ok, domain.EntityLoad, l.ID, "phases",
						"1 or 3", fmt.Sprint(l.Phases), "Load: Phase Count", "is neither 1 nor 3"))
				}
				return results
			},
		},
		{
			ruleKey: "load.protection.ge_design_current", ruleName: "Load: Protection Covers Design Current",
			ruleType: domain.RuleTypeCrossField, severity: domain.SeverityError,
			validate: func(a *domain.Aggregate) []ValidationResult {
				var results []ValidationResult
				for _, l := range a.Loads {
					if l.ProtectionRatingA <= 0 || l.DesignCurrentA == nil {
						continue
					}
					ib := *l.DesignCurrentA
					results = append(results, check(l.ProtectionRatingA >= ib, domain.EntityLoad, l.ID, "protection_rating_a",
						">= "+fmtf(ib), fmtf(l.ProtectionRatingA), "Load: Protection Covers Design Current",
						fmt.Sprintf("is below design current %s A", fmtf(ib))))
				}
				return results
			},
		},
		{
			ruleKey: "load.voltage_drop.limit", ruleName: "Load: Voltage Drop Limit",
			ruleType: domain.RuleTypeEntity, severity: domain.SeverityWarning,
			validate: func(a *domain.Aggregate) []ValidationResult {
				var results []ValidationResult
				for _, l := range a.Loads {
					if l.VoltageDropPct == nil {
						continue
					}
					vd := *l.VoltageDropPct
					results = append(results, check(vd <= MaxVoltageDropPct, domain.EntityLoad, l.ID, "voltage_drop_pct",
						"<= "+fmtf(MaxVoltageDropPct), fmtf(vd), "Load: Voltage Drop Limit", "exceeds the limit"))
				}
				return results
			},
		},
		{
			ruleKey: "cable.size.positive", ruleName: "Cable: Positive Size",
			ruleType: domain.RuleTypeEntity, severity: domain.SeverityError,
			validate: func(a *domain.Aggregate) []ValidationResult {
				var results []ValidationResult
				for _, c := range a.Cables {
					results = append(results, check(c.SizeMM2 > 0, domain.EntityCable, c.ID, "size_mm2",
						"> 0", fmtf(c.SizeMM2), "Cable: Positive Size", "is not positive"))
				}
				return results
			},
		},
		{
			ruleKey: "cable.length.positive", ruleName: "Cable: Positive Length",
			ruleType: domain.RuleTypeEntity, severity: domain.SeverityError,
			validate: func(a *domain.Aggregate) []ValidationResult {
				var results []ValidationResult
				for _, c := range a.Cables {
					results = append(results, check(c.LengthM > 0, domain.EntityCable, c.ID, "length_m",
						"> 0", fmtf(c.LengthM), "Cable: Positive Length", fmt.Sprintf("is not positive (%s m)", fmtf(c.LengthM))))
				}
				return results
			},
		},
		{
			ruleKey: "cable.size.standard", ruleName: "Cable: Standard Size",
			ruleType: domain.RuleTypeEntity, severity: domain.SeverityWarning,
			validate: func(a *domain.Aggregate) []ValidationResult {
				var results []ValidationResult
				for _, c := range a.Cables {
					if c.SizeMM2 <= 0 {
						continue
					}
					results = append(results, check(standardCableSizes[c.SizeMM2], domain.EntityCable, c.ID, "size_mm2",
						"IEC 60228 size", fmtf(c.SizeMM2), "Cable: Standard Size", "is not a standard cross-section"))
				}
				return results
			},
		},
		{
			ruleKey: "cable.rating.ge_design_current", ruleName: "Cable: Rating Covers Design Current",
			ruleType: domain.RuleTypeCrossField, severity: domain.SeverityError,
			validate: func(a *domain.Aggregate) []ValidationResult {
				var results []ValidationResult
				for _, c := range a.Cables {
					if c.CurrentRatingA <= 0 || c.DesignCurrentA == nil {
						continue
					}
					ib := *c.DesignCurrentA
					results = append(results, check(c.CurrentRatingA >= ib, domain.EntityCable, c.ID, "current_rating_a",
						">= "+fmtf(ib), fmtf(c.CurrentRatingA), "Cable: Rating Covers Design Current",
						fmt.Sprintf("is below design current %s A", fmtf(ib))))
				}
				return results
			},
		},
		{
			ruleKey: "bus.voltage.positive", ruleName: "Bus: Positive Voltage",
			ruleType: domain.RuleTypeEntity, severity: domain.SeverityError,
			validate: func(a *domain.Aggregate) []ValidationResult {
				var results []ValidationResult
				for _, b := range a.Buses {
					results = append(results, check(b.VoltageV > 0, domain.EntityBus, b.ID, "voltage_v",
						"> 0", fmtf(b.VoltageV), "Bus: Positive Voltage", "is not positive"))
				}
				return results
			},
		},
		{
			ruleKey: "transformer.rating.positive", ruleName: "Transformer: Positive Rating",
			ruleType: domain.RuleTypeEntity, severity: domain.SeverityError,
			validate: func(a *domain.Aggregate) []ValidationResult {
				var results []ValidationResult
				for _, t := range a.Transformers {
					results = append(results, check(t.RatingKVA > 0, domain.EntityTransformer, t.ID, "rating_kva",
						"> 0", fmtf(t.RatingKVA), "Transformer: Positive Rating", "is not positive"))
				}
				return results
			},
		},
		{
			ruleKey: "transformer.rating.standard", ruleName: "Transformer: Standard Rating",
			ruleType: domain.RuleTypeEntity, severity: domain.SeverityWarning,
			validate: func(a *domain.Aggregate) []ValidationResult {
				var results []ValidationResult
				for _, t := range a.Transformers {
					if t.RatingKVA <= 0 {
						continue
					}
					results = append(results, check(standardTransformerKVA[t.RatingKVA], domain.EntityTransformer, t.ID, "rating_kva",
						"IEC 60076 rating", fmtf(t.RatingKVA), "Transformer: Standard Rating", "is not a standard rating"))
				}
				return results
			},
		},
		{
			ruleKey: "transformer.impedance.range", ruleName: "Transformer: Impedance Range",
			ruleType: domain.RuleTypeEntity, severity: domain.SeverityWarning,
			validate: func(a *domain.Aggregate) []ValidationResult {
				var results []ValidationResult
				for _, t := range a.Transformers {
					if t.ImpedancePct == 0 {
						continue
					}
					ok := t.ImpedancePct > 0 && t.ImpedancePct <= 20
					results = append(results, check(ok, domain.EntityTransformer, t.ID, "impedance_pct",
						"(0, 20]", fmtf(t.ImpedancePct), "Transformer: Impedance Range", "is outside (0, 20] %"))
				}
				return results
			},
		},
	}
}
