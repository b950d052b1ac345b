package extractor

import (
	"context"
	"fmt"
	"log"
	"strings"

	"schedex/internal/config"
	"schedex/internal/domain"
	"schedex/internal/mapper"
	"schedex/internal/port"
)

// Defaults are the values used when an optional cell is blank or cannot be
// parsed. Magnitudes without a default (power, size, length, ratings) fall
// back to zero and are left for validation to flag.
type Defaults struct {
	PowerFactor float64
	Efficiency  float64
	Phases      int
	VoltageV    float64
}

// Output holds the entities built from one sheet and its extraction summary.
type Output struct {
	Result       *domain.ExtractionResult
	Loads        []*domain.LoadRecord
	Cables       []*domain.CableRecord
	Buses        []*domain.BusRecord
	Transformers []*domain.TransformerRecord
	Project      *domain.ProjectInfo
	RowErrors    []*RowError
}

func (o *Output) warnf(format string, args ...any) {
	o.Result.Warnings = append(o.Result.Warnings, fmt.Sprintf(format, args...))
}

// Extractor builds typed entities from sheet rows using a field mapping.
type Extractor struct {
	defaults Defaults
	calc     port.LoadCalculator
}

// New creates an Extractor. calc is optional.
func New(cfg *config.ExtractionConfig, calc port.LoadCalculator) *Extractor {
	c := config.DefaultExtractionConfig()
	if cfg != nil {
		c = *cfg
	}
	return &Extractor{
		defaults: Defaults{
			PowerFactor: c.DefaultPowerFactor,
			Efficiency:  c.DefaultEfficiency,
			Phases:      c.DefaultPhases,
			VoltageV:    c.DefaultVoltageV,
		},
		calc: calc,
	}
}

// Defaults returns the fallback values in effect.
func (e *Extractor) Defaults() Defaults { return e.defaults }

// Extract processes every non-blank row independently. A row that cannot be
// built is recorded as an issue and the sheet carries on.
func (e *Extractor) Extract(ctx context.Context, sheet *domain.RawSheet, st domain.SheetType, mapping *domain.FieldMapping) *Output {
	res := &domain.ExtractionResult{
		SheetName: sheet.Name,
		SheetType: st,
		Issues:    []string{},
		Warnings:  []string{},
	}
	out := &Output{Result: res}

	if st == domain.SheetTypeProjectInfo && isKeyValueLayout(sheet, mapping) {
		e.projectKeyValue(sheet, out)
		return out
	}

	var qualities []float64
	for i, cells := range sheet.Rows {
		if blankRow(cells) {
			continue
		}
		res.TotalRows++
		rowNum := i + 1

		q, err := e.extractRow(ctx, out, sheet.Name, st, row{cells: cells, mapping: mapping}, rowNum)
		if err != nil {
			re := &RowError{Sheet: sheet.Name, Row: rowNum, Err: err}
			out.RowErrors = append(out.RowErrors, re)
			res.Issues = append(res.Issues, re.Error())
			log.Printf("extractor.Extractor: skipping row: %v", re)
			continue
		}
		res.ComponentsExtracted++
		qualities = append(qualities, q)

		// A header/row project sheet describes one project.
		if st == domain.SheetTypeProjectInfo {
			break
		}
	}

	finalize(res, qualities)
	return out
}

func finalize(res *domain.ExtractionResult, qualities []float64) {
	if res.TotalRows == 0 {
		res.Warnings = append(res.Warnings, "no data rows")
		return
	}
	rate := float64(res.ComponentsExtracted) / float64(res.TotalRows)
	conf := rate
	switch {
	case rate > 0.9:
		conf += 0.10
	case rate > 0.8:
		conf += 0.05
	}
	res.Confidence = min(conf, 1.0)
	res.Success = res.ComponentsExtracted > 0

	if len(qualities) > 0 {
		sum := 0.0
		for _, q := range qualities {
			sum += q
		}
		res.QualityScore = sum / float64(len(qualities))
	}
}

func (e *Extractor) extractRow(ctx context.Context, out *Output, sheetName string, st domain.SheetType, r row, rowNum int) (q float64, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic while building entity: %v", rec)
		}
	}()

	src := domain.Source{Sheet: sheetName, Row: rowNum}
	switch st {
	case domain.SheetTypeLoad:
		return e.load(ctx, out, r, src)
	case domain.SheetTypeCable:
		return e.cable(out, r, src)
	case domain.SheetTypeBus:
		return e.bus(out, r, src)
	case domain.SheetTypeTransformer:
		return e.transformer(out, r, src)
	case domain.SheetTypeProjectInfo:
		return e.project(out, r, src)
	default:
		return 0, fmt.Errorf("no extractor for sheet type %q", st)
	}
}

func (e *Extractor) load(ctx context.Context, out *Output, r row, src domain.Source) (float64, error) {
	id, name := r.text("load_id"), r.text("load_name")
	if id == "" && name == "" {
		return 0, errMissingIdentity
	}
	if r.cell("power_kw") == nil {
		return 0, errMissingPower
	}

	q := 1.0
	if id == "" {
		q -= 0.3
		id = SynthesizeID(domain.IDPrefixes[domain.EntityLoad], name)
		out.warnf("row %d: load id synthesized as %q", src.Row, id)
	}
	if name == "" {
		q -= 0.2
		name = id
	}

	pf := e.ratio(out, r, src, "power_factor", e.defaults.PowerFactor)
	eff := e.ratio(out, r, src, "efficiency", e.defaults.Efficiency)

	power, unit, ok := r.quantity("power_kw")
	if ok {
		power = toKW(power, unit, pf)
	} else {
		out.warnf("row %d: unparseable power %q", src.Row, r.text("power_kw"))
		power = 0
	}

	phases := e.defaults.Phases
	if c := r.cell("phases"); c != nil {
		if p, ok := ParsePhases(c); ok {
			phases = p
		} else {
			out.warnf("row %d: unparseable phases %q, using %d", src.Row, CellString(c), phases)
		}
	}

	load := &domain.LoadRecord{
		ID:                 id,
		Name:               name,
		PowerKW:            power,
		VoltageV:           e.volts(out, r, src, "voltage_v", e.defaults.VoltageV),
		Phases:             phases,
		PowerFactor:        pf,
		Efficiency:         eff,
		LoadType:           ResolveLoadType(r.text("load_type"), name),
		DutyCycle:          ResolveDutyCycle(r.text("duty_cycle")),
		Priority:           ResolvePriority(r.text("priority")),
		SourceBus:          r.text("source_bus"),
		CableLengthM:       e.metres(out, r, src, "cable_length_m"),
		InstallationMethod: ResolveInstallation(r.text("installation_method")),
		ProtectionRatingA:  e.amps(out, r, src, "protection_rating_a"),
		Source:             src,
	}
	if r.cell("design_current_a") != nil {
		ib := e.amps(out, r, src, "design_current_a")
		load.DesignCurrentA = &ib
	}

	if load.PowerKW <= 0 {
		q -= 0.3
	}
	if pf <= 0 || pf > 1 {
		q -= 0.2
	}
	if eff <= 0 || eff > 1 {
		q -= 0.2
	}

	if e.calc != nil {
		calc, err := e.calc.Calculate(ctx, load)
		switch {
		case err != nil:
			log.Printf("extractor.Extractor: calculation for load %s failed: %v", load.ID, err)
		case calc != nil:
			if calc.DesignCurrentA != nil {
				load.DesignCurrentA = calc.DesignCurrentA
			}
			if calc.VoltageDropPct != nil {
				load.VoltageDropPct = calc.VoltageDropPct
			}
		}
	}

	out.Loads = append(out.Loads, load)
	return max(q, 0), nil
}

func (e *Extractor) cable(out *Output, r row, src domain.Source) (float64, error) {
	id, to := r.text("cable_id"), r.text("to_load")
	if id == "" && to == "" {
		return 0, errMissingIdentity
	}

	q := 1.0
	if id == "" {
		q -= 0.3
		id = SynthesizeID(domain.IDPrefixes[domain.EntityCable], to)
		out.warnf("row %d: cable id synthesized as %q", src.Row, id)
	}
	if to == "" {
		q -= 0.2
	}

	material := r.text("material")
	typeText := r.text("cable_type")
	if typeText == "" {
		typeText = material
	}
	armored := ParseBool(r.cell("armored"))
	if r.cell("armored") == nil {
		desc := strings.ToLower(material + " " + typeText)
		armored = strings.Contains(desc, "swa") || strings.Contains(desc, "armour") || strings.Contains(desc, "armor")
	}

	cores := 0
	if c := r.cell("cores"); c != nil {
		if n, ok := ParseNumber(c); ok && n > 0 {
			cores = int(n)
		} else {
			out.warnf("row %d: unparseable cores %q", src.Row, CellString(c))
		}
	}

	cable := &domain.CableRecord{
		ID:                 id,
		FromBus:            r.text("from_bus"),
		ToLoad:             to,
		SizeMM2:            e.plain(out, r, src, "size_mm2"),
		Cores:              cores,
		LengthM:            e.metres(out, r, src, "length_m"),
		Material:           ResolveMaterial(material),
		InstallationMethod: ResolveInstallation(r.text("installation_method")),
		CableType:          ResolveCableType(typeText),
		Armored:            armored,
		VoltageRatingV:     e.voltageGrade(out, r, src),
		CurrentRatingA:     e.amps(out, r, src, "current_rating_a"),
		Source:             src,
	}

	if cable.SizeMM2 <= 0 || cable.LengthM <= 0 {
		q -= 0.3
	}

	out.Cables = append(out.Cables, cable)
	return max(q, 0), nil
}

func (e *Extractor) bus(out *Output, r row, src domain.Source) (float64, error) {
	id, name := r.text("bus_id"), r.text("bus_name")
	if id == "" && name == "" {
		return 0, errMissingIdentity
	}

	q := 1.0
	if id == "" {
		q -= 0.3
		id = SynthesizeID(domain.IDPrefixes[domain.EntityBus], name)
		out.warnf("row %d: bus id synthesized as %q", src.Row, id)
	}
	if name == "" {
		q -= 0.2
		name = id
	}

	phases := e.defaults.Phases
	if c := r.cell("phases"); c != nil {
		if p, ok := ParsePhases(c); ok {
			phases = p
		}
	}

	bus := &domain.BusRecord{
		ID:             id,
		Name:           name,
		VoltageV:       e.volts(out, r, src, "voltage_v", e.defaults.VoltageV),
		RatedCurrentA:  e.amps(out, r, src, "rated_current_a"),
		ShortCircuitKA: e.plain(out, r, src, "short_circuit_ka"),
		Phases:         phases,
		FedFrom:        r.text("fed_from"),
		Source:         src,
	}
	if bus.VoltageV <= 0 {
		q -= 0.3
	}

	out.Buses = append(out.Buses, bus)
	return max(q, 0), nil
}

func (e *Extractor) transformer(out *Output, r row, src domain.Source) (float64, error) {
	id, name := r.text("transformer_id"), r.text("transformer_name")
	if id == "" && name == "" {
		return 0, errMissingIdentity
	}
	if r.cell("rating_kva") == nil {
		return 0, errMissingRating
	}

	q := 1.0
	if id == "" {
		q -= 0.3
		id = SynthesizeID(domain.IDPrefixes[domain.EntityTransformer], name)
		out.warnf("row %d: transformer id synthesized as %q", src.Row, id)
	}
	if name == "" {
		q -= 0.2
		name = id
	}

	rating, unit, ok := r.quantity("rating_kva")
	switch {
	case !ok:
		out.warnf("row %d: unparseable rating %q", src.Row, r.text("rating_kva"))
		rating = 0
	case unit == "mva":
		rating *= 1000
	}

	tx := &domain.TransformerRecord{
		ID:                id,
		Name:              name,
		RatingKVA:         rating,
		PrimaryVoltageV:   e.volts(out, r, src, "primary_voltage_v", 0),
		SecondaryVoltageV: e.volts(out, r, src, "secondary_voltage_v", 0),
		ImpedancePct:      e.plain(out, r, src, "impedance_pct"),
		VectorGroup:       r.text("vector_group"),
		SecondaryBus:      r.text("secondary_bus"),
		Source:            src,
	}
	if tx.RatingKVA <= 0 {
		q -= 0.3
	}
	if tx.ImpedancePct < 0 || tx.ImpedancePct > 100 {
		q -= 0.2
	}

	out.Transformers = append(out.Transformers, tx)
	return max(q, 0), nil
}

func (e *Extractor) project(out *Output, r row, src domain.Source) (float64, error) {
	info := &domain.ProjectInfo{
		Name:           r.text("project_name"),
		Number:         r.text("project_number"),
		Client:         r.text("client"),
		Standard:       r.text("standard"),
		FrequencyHz:    e.plain(out, r, src, "frequency_hz"),
		AmbientTempC:   e.plain(out, r, src, "ambient_temp_c"),
		SystemVoltageV: e.volts(out, r, src, "system_voltage_v", 0),
		Source:         src,
	}
	return e.acceptProject(out, info)
}

func (e *Extractor) acceptProject(out *Output, info *domain.ProjectInfo) (float64, error) {
	if info.Name == "" && info.Number == "" {
		return 0, errMissingIdentity
	}
	q := 1.0
	if info.Name == "" {
		q -= 0.2
		info.Name = info.Number
	}
	out.Project = info
	return q, nil
}

// projectKeyValue reads a two-column "label | value" sheet. The header row
// itself may be the first pair.
func (e *Extractor) projectKeyValue(sheet *domain.RawSheet, out *Output) {
	res := out.Result
	values := make(map[string]any)
	firstRow := make(map[string]int)

	take := func(label string, value any, rowNum int) {
		field := mapper.MatchField(domain.EntityProject, label)
		if field == "" {
			if strings.TrimSpace(label) != "" {
				out.warnf("row %d: unrecognized project key %q", rowNum, label)
			}
			return
		}
		if _, seen := values[field]; seen || domain.IsBlankCell(value) {
			return
		}
		values[field] = value
		firstRow[field] = rowNum
	}

	if len(sheet.Headers) >= 2 {
		take(sheet.Headers[0], sheet.Headers[1], 0)
	}
	for i, cells := range sheet.Rows {
		if len(cells) < 2 || blankRow(cells) {
			continue
		}
		take(CellString(cells[0]), cells[1], i+1)
	}

	res.TotalRows = 1
	kv := kvRow{values: values}
	src := domain.Source{Sheet: sheet.Name, Row: firstRow["project_name"]}
	info := &domain.ProjectInfo{
		Name:           kv.text("project_name"),
		Number:         kv.text("project_number"),
		Client:         kv.text("client"),
		Standard:       kv.text("standard"),
		FrequencyHz:    kv.number("frequency_hz"),
		AmbientTempC:   kv.number("ambient_temp_c"),
		SystemVoltageV: kv.volts("system_voltage_v"),
		Source:         src,
	}
	q, err := e.acceptProject(out, info)
	if err != nil {
		re := &RowError{Sheet: sheet.Name, Row: 0, Err: err}
		out.RowErrors = append(out.RowErrors, re)
		res.Issues = append(res.Issues, re.Error())
		log.Printf("extractor.Extractor: %v", re)
		finalize(res, nil)
		return
	}
	res.ComponentsExtracted = 1
	finalize(res, []float64{q})
}

func (e *Extractor) ratio(out *Output, r row, src domain.Source, field string, fallback float64) float64 {
	c := r.cell(field)
	if c == nil {
		return fallback
	}
	v, unit, ok := ParseQuantity(c)
	if !ok {
		out.warnf("row %d: unparseable %s %q, using %.2f", src.Row, field, CellString(c), fallback)
		return fallback
	}
	return Ratio(v, unit)
}

func (e *Extractor) volts(out *Output, r row, src domain.Source, field string, fallback float64) float64 {
	if r.cell(field) == nil {
		return fallback
	}
	v, unit, ok := r.quantity(field)
	if !ok {
		out.warnf("row %d: unparseable %s %q, using %.0f", src.Row, field, r.text(field), fallback)
		return fallback
	}
	return toVolts(v, unit)
}

func (e *Extractor) voltageGrade(out *Output, r row, src domain.Source) float64 {
	c := r.cell("voltage_rating_v")
	if c == nil {
		return 0
	}
	// "0.6/1 kV" and "600/1000 V" grade the cable by the second figure.
	if s, isText := c.(string); isText && strings.Contains(s, "/") {
		c = s[strings.LastIndex(s, "/")+1:]
	}
	v, unit, ok := ParseQuantity(c)
	if !ok {
		out.warnf("row %d: unparseable voltage_rating_v %q", src.Row, r.text("voltage_rating_v"))
		return 0
	}
	if unit == "" {
		unit = r.mapping.Field("voltage_rating_v").Unit
	}
	return toVolts(v, unit)
}

func (e *Extractor) metres(out *Output, r row, src domain.Source, field string) float64 {
	if r.cell(field) == nil {
		return 0
	}
	v, unit, ok := r.quantity(field)
	if !ok {
		out.warnf("row %d: unparseable %s %q", src.Row, field, r.text(field))
		return 0
	}
	if unit == "km" {
		v *= 1000
	}
	return v
}

func (e *Extractor) amps(out *Output, r row, src domain.Source, field string) float64 {
	if r.cell(field) == nil {
		return 0
	}
	v, unit, ok := r.quantity(field)
	if !ok {
		out.warnf("row %d: unparseable %s %q", src.Row, field, r.text(field))
		return 0
	}
	if unit == "ka" {
		v *= 1000
	}
	return v
}

func (e *Extractor) plain(out *Output, r row, src domain.Source, field string) float64 {
	if r.cell(field) == nil {
		return 0
	}
	v, ok := ParseNumber(r.cell(field))
	if !ok {
		out.warnf("row %d: unparseable %s %q", src.Row, field, r.text(field))
		return 0
	}
	return v
}

func toKW(v float64, unit string, pf float64) float64 {
	switch unit {
	case "w":
		return v / 1000
	case "mw":
		return v * 1000
	case "hp":
		return v * 0.746
	case "kva":
		return v * pf
	default:
		return v
	}
}

func toVolts(v float64, unit string) float64 {
	if unit == "kv" {
		return v * 1000
	}
	return v
}

// SynthesizeID derives a deterministic identifier from a name: "Pump A" with
// prefix "L" becomes "L-PUMP-A". It returns "" when the name has no letters or digits.
func SynthesizeID(prefix, name string) string {
	var b strings.Builder
	dash := false
	for _, c := range strings.ToUpper(name) {
		if (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			b.WriteRune(c)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimRight(b.String(), "-")
	if slug == "" {
		return ""
	}
	id := prefix + "-" + slug
	if len(id) > 32 {
		id = strings.TrimRight(id[:32], "-")
	}
	return id
}

func blankRow(cells []any) bool {
	for _, c := range cells {
		if !domain.IsBlankCell(c) {
			return false
		}
	}
	return true
}

// isKeyValueLayout reports whether a project sheet lists labels down its
// first column instead of across its header row. Two or more recognized
// labels in the first column win even when a header matched a field.
func isKeyValueLayout(sheet *domain.RawSheet, mapping *domain.FieldMapping) bool {
	labels := 0
	for _, cells := range sheet.Rows {
		if len(cells) >= 2 && mapper.MatchField(domain.EntityProject, CellString(cells[0])) != "" {
			labels++
		}
	}
	if labels >= 2 {
		return true
	}
	if mapping.Field("project_name") != nil || mapping.Field("project_number") != nil {
		return false
	}
	return labels > 0 || (len(sheet.Headers) >= 2 && mapper.MatchField(domain.EntityProject, sheet.Headers[0]) != "")
}
