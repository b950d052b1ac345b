package mapper

import (
	"context"
	"fmt"
	"log"
	"strings"

	"schedex/internal/config"
	"schedex/internal/domain"
	"schedex/internal/port"
	"schedex/internal/similarity"
)

// MapInput is the input of one column mapping pass.
type MapInput struct {
	SheetName  string
	Headers    []string
	EntityType domain.EntityType
	// Confirmer decides gray-zone candidates. Nil rejects them.
	Confirmer port.Confirmer
}

// Mapper resolves raw column headers to canonical target fields.
type Mapper struct {
	cfg    config.MappingConfig
	store  port.MappingStore
	scorer port.SimilarityScorer
}

// New creates a Mapper. store and scorer are optional.
func New(cfg *config.MappingConfig, store port.MappingStore, scorer port.SimilarityScorer) *Mapper {
	c := config.DefaultMappingConfig()
	if cfg != nil {
		c = *cfg
	}
	return &Mapper{cfg: c, store: store, scorer: scorer}
}

type column struct {
	index      int
	header     string
	normalized string
	done       bool
}

type candidate struct {
	spec  *FieldSpec
	score float64
}

// Map builds the field mapping for one sheet. It fails only for entity types
// that have no target fields.
func (m *Mapper) Map(ctx context.Context, in MapInput) (*domain.FieldMapping, error) {
	specs := Fields(in.EntityType)
	if len(specs) == 0 {
		return nil, fmt.Errorf("no target fields for entity type %q", in.EntityType)
	}

	fm := &domain.FieldMapping{
		EntityType: in.EntityType,
		Fields:     make(map[string]*domain.MappedField),
	}

	cols := make([]*column, 0, len(in.Headers))
	for i, h := range in.Headers {
		n := NormalizeHeader(h)
		if n == "" {
			continue
		}
		cols = append(cols, &column{index: i, header: h, normalized: n})
	}

	// Pass 1: structural patterns and exact aliases. These may add extra source
	// columns to an already mapped field.
	for _, col := range cols {
		if spec := matchPattern(specs, col.normalized); spec != nil {
			m.assign(fm, spec, col, m.cfg.PatternConfidence, domain.MappingPattern)
			continue
		}
		if spec := matchAlias(specs, col.normalized); spec != nil {
			m.assign(fm, spec, col, m.cfg.AliasConfidence, domain.MappingAlias)
		}
	}

	// Pass 2: learned priors, semantic similarity, gray zone, fuzzy. Only fields
	// not yet mapped are eligible.
	for _, col := range cols {
		if col.done {
			continue
		}
		if m.tryLearned(ctx, fm, specs, col, in.SheetName) {
			continue
		}
		if m.trySemantic(ctx, fm, specs, col) {
			continue
		}

		best := m.bestFuzzy(fm, specs, col.normalized)
		if best.spec == nil {
			continue
		}
		if grayZoneFields[best.spec.Name] && best.score >= m.cfg.GrayZoneLow && best.score < m.cfg.GrayZoneHigh {
			fm.GrayZoneCount++
			confirmed := in.Confirmer != nil && in.Confirmer.Confirm(ctx, port.GrayZoneCandidate{
				SheetName:  in.SheetName,
				Header:     col.header,
				Field:      best.spec.Name,
				EntityType: in.EntityType,
				Confidence: best.score,
			})
			if confirmed {
				m.assign(fm, best.spec, col, best.score, domain.MappingGrayZoneConfirmed)
			} else {
				// Rejected columns take no further part in mapping.
				col.done = true
			}
			continue
		}
		if best.score > m.cfg.FuzzyAccept {
			m.assign(fm, best.spec, col, best.score, domain.MappingFuzzy)
		}
	}

	// Pass 3: weak association for whatever is left.
	for _, col := range cols {
		if col.done {
			continue
		}
		if spec := m.weakCandidate(fm, specs, col.normalized); spec != nil {
			m.assign(fm, spec, col, m.cfg.WeakConfidence, domain.MappingWeak)
		}
	}

	for _, col := range cols {
		if !col.done {
			fm.Unmapped = append(fm.Unmapped, col.header)
		}
	}

	fm.Coverage = coverage(fm, in.EntityType)
	fm.Quality = QualityLabel(fm.Coverage)

	m.learn(ctx, fm, cols, in)
	return fm, nil
}

func (m *Mapper) assign(fm *domain.FieldMapping, spec *FieldSpec, col *column, conf float64, method domain.MappingMethod) {
	col.done = true
	if mf, ok := fm.Fields[spec.Name]; ok {
		mf.SourceColumns = append(mf.SourceColumns, col.header)
		mf.SourceIndexes = append(mf.SourceIndexes, col.index)
		if mf.Unit == "" {
			mf.Unit = DetectUnit(col.normalized, spec.Units)
		}
		return
	}
	fm.Fields[spec.Name] = &domain.MappedField{
		Field:         spec.Name,
		SourceColumns: []string{col.header},
		SourceIndexes: []int{col.index},
		Confidence:    conf,
		Method:        method,
		Unit:          DetectUnit(col.normalized, spec.Units),
	}
}

func matchPattern(specs []FieldSpec, normalized string) *FieldSpec {
	for i := range specs {
		for _, p := range specs[i].Patterns {
			if p.MatchString(normalized) {
				return &specs[i]
			}
		}
	}
	return nil
}

func matchAlias(specs []FieldSpec, normalized string) *FieldSpec {
	bare := stripUnits(normalized)
	for i := range specs {
		for _, a := range specs[i].Aliases {
			na := NormalizeHeader(a)
			if na == normalized || na == bare {
				return &specs[i]
			}
		}
	}
	return nil
}

func (m *Mapper) tryLearned(ctx context.Context, fm *domain.FieldMapping, specs []FieldSpec, col *column, sheetName string) bool {
	if m.store == nil {
		return false
	}
	priors, err := m.store.Query(ctx, col.normalized, sheetName, m.cfg.StoreTopK)
	if err != nil {
		log.Printf("mapper.Mapper: learning store query for %q failed: %v", col.header, err)
		return false
	}
	for _, p := range priors {
		if p.EntityType != fm.EntityType || p.Confidence <= m.cfg.SemanticAccept {
			continue
		}
		spec := findSpec(specs, p.Field)
		if spec == nil {
			continue
		}
		if _, taken := fm.Fields[spec.Name]; taken {
			continue
		}
		m.assign(fm, spec, col, p.Confidence, domain.MappingLearned)
		return true
	}
	return false
}

func (m *Mapper) trySemantic(ctx context.Context, fm *domain.FieldMapping, specs []FieldSpec, col *column) bool {
	if m.scorer == nil {
		return false
	}
	var best candidate
	for i := range specs {
		if _, taken := fm.Fields[specs[i].Name]; taken {
			continue
		}
		score, err := m.scorer.Similarity(ctx, col.normalized, specs[i].Description)
		if err != nil {
			log.Printf("mapper.Mapper: similarity for %q failed, skipping semantic tier: %v", col.header, err)
			return false
		}
		if score > best.score {
			best = candidate{spec: &specs[i], score: score}
		}
	}
	if best.spec == nil || best.score <= m.cfg.SemanticAccept {
		return false
	}
	m.assign(fm, best.spec, col, best.score, domain.MappingSemantic)
	return true
}

// FuzzyScore is 0.7 x token Jaccard + 0.3 x trigram Jaccard, capped.
func FuzzyScore(a, b string, ceiling float64) float64 {
	s := 0.7*similarity.TokenJaccard(a, b) + 0.3*similarity.TrigramJaccard(a, b)
	if s > ceiling {
		return ceiling
	}
	return s
}

func (m *Mapper) bestFuzzy(fm *domain.FieldMapping, specs []FieldSpec, normalized string) candidate {
	var best candidate
	for i := range specs {
		if _, taken := fm.Fields[specs[i].Name]; taken {
			continue
		}
		for _, a := range specs[i].Aliases {
			s := FuzzyScore(normalized, NormalizeHeader(a), m.cfg.FuzzyCap)
			if s > best.score {
				best = candidate{spec: &specs[i], score: s}
			}
		}
	}
	return best
}

func (m *Mapper) weakCandidate(fm *domain.FieldMapping, specs []FieldSpec, normalized string) *FieldSpec {
	tokens := similarity.Tokens(normalized)
	var best candidate
	for i := range specs {
		if _, taken := fm.Fields[specs[i].Name]; taken {
			continue
		}
		vocab := strings.Fields(strings.ReplaceAll(specs[i].Name, "_", " "))
		for _, a := range specs[i].Aliases {
			vocab = append(vocab, strings.Fields(NormalizeHeader(a))...)
		}
		if !sharesToken(tokens, vocab) {
			continue
		}
		score := 0.0
		for _, a := range specs[i].Aliases {
			score = max(score, FuzzyScore(normalized, NormalizeHeader(a), m.cfg.FuzzyCap))
		}
		if best.spec == nil || score > best.score {
			best = candidate{spec: &specs[i], score: score}
		}
	}
	return best.spec
}

func (m *Mapper) learn(ctx context.Context, fm *domain.FieldMapping, cols []*column, in MapInput) {
	if m.store == nil {
		return
	}
	byIndex := make(map[int]*column, len(cols))
	for _, c := range cols {
		byIndex[c.index] = c
	}
	for _, mf := range fm.Fields {
		if mf.Method == domain.MappingLearned || mf.Confidence < m.cfg.LearnThreshold {
			continue
		}
		for _, idx := range mf.SourceIndexes {
			col := byIndex[idx]
			if col == nil {
				continue
			}
			err := m.store.Write(ctx, port.MappingRecord{
				Header:     col.normalized,
				Field:      mf.Field,
				EntityType: in.EntityType,
				Confidence: mf.Confidence,
				Context:    in.SheetName,
			})
			if err != nil {
				log.Printf("mapper.Mapper: learning store write for %q failed: %v", col.header, err)
			}
		}
	}
}

func coverage(fm *domain.FieldMapping, et domain.EntityType) float64 {
	required := RequiredFields(et)
	if len(required) == 0 {
		return 0
	}
	sum := 0.0
	for _, name := range required {
		if mf, ok := fm.Fields[name]; ok {
			sum += mf.Confidence
		}
	}
	return sum / float64(len(required))
}

// QualityLabel converts a coverage score to its label.
func QualityLabel(coverage float64) domain.MappingQuality {
	switch {
	case coverage >= 0.8:
		return domain.MappingQualityExcellent
	case coverage >= 0.6:
		return domain.MappingQualityGood
	case coverage >= 0.4:
		return domain.MappingQualityFair
	default:
		return domain.MappingQualityPoor
	}
}

// DetectUnit returns the first token of a normalized header that is one of units.
func DetectUnit(normalized string, units []string) string {
	if len(units) == 0 {
		return ""
	}
	for _, t := range strings.Fields(normalized) {
		for _, u := range units {
			if t == u {
				return u
			}
		}
	}
	return ""
}

var allUnits = map[string]bool{
	"kw": true, "w": true, "hp": true, "kva": true, "mva": true, "mw": true,
	"v": true, "kv": true, "m": true, "km": true, "a": true, "ka": true,
	"mm2": true, "pct": true, "hz": true, "c": true,
}

func stripUnits(normalized string) string {
	fields := strings.Fields(normalized)
	out := fields[:0:0]
	for _, f := range fields {
		if !allUnits[f] {
			out = append(out, f)
		}
	}
	return strings.Join(out, " ")
}

func findSpec(specs []FieldSpec, name string) *FieldSpec {
	for i := range specs {
		if specs[i].Name == name {
			return &specs[i]
		}
	}
	return nil
}

var weakStopwords = map[string]bool{
	"of": true, "no": true, "and": true, "the": true, "to": true,
	"a": true, "m": true, "v": true, "c": true, "pct": true,
}

func sharesToken(tokens, vocab []string) bool {
	set := make(map[string]bool, len(vocab))
	for _, v := range vocab {
		if !weakStopwords[v] {
			set[v] = true
		}
	}
	for _, t := range tokens {
		if set[t] {
			return true
		}
	}
	return false
}

// MatchField resolves a single label to a field name using only the pattern
// and alias tiers. It returns "" when nothing matches.
func MatchField(et domain.EntityType, label string) string {
	specs := Fields(et)
	n := NormalizeHeader(label)
	if n == "" {
		return ""
	}
	if spec := matchPattern(specs, n); spec != nil {
		return spec.Name
	}
	if spec := matchAlias(specs, n); spec != nil {
		return spec.Name
	}
	return ""
}
