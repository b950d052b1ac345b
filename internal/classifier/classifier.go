package classifier

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"schedex/internal/config"
	"schedex/internal/domain"
	"schedex/internal/mapper"
	"schedex/internal/port"
)

type pattern struct {
	label string
	re    *regexp.Regexp
}

type sheetRule struct {
	Type        domain.SheetType
	Primary     []pattern
	Secondary   []pattern
	NameTokens  []string
	Description string
}

func p(label, expr string) pattern {
	return pattern{label: label, re: regexp.MustCompile(expr)}
}

// defaultRules is ordered by tie-break priority.
func defaultRules() []*sheetRule {
	return []*sheetRule{
		{
			Type: domain.SheetTypeLoad,
			Primary: []pattern{
				p("load", `\bload\b`),
				p("power", `\b(power|kw|hp|rating)\b`),
				p("phases", `\b(phases?|ph)\b`),
			},
			Secondary: []pattern{
				p("voltage", `\b(voltage|kv)\b`),
				p("power_factor", `\b(pf|power factor|cos phi)\b`),
				p("efficiency", `\b(eff|efficiency)\b`),
				p("duty", `\bduty\b`),
				p("priority", `\b(priority|criticality)\b`),
				p("source", `\b(feeder|source|bus|panel|mcc|fed from)\b`),
			},
			NameTokens:  []string{"load", "loads", "consumer", "consumers", "equipment", "motor", "motors"},
			Description: "load schedule listing electrical loads with load id, name, power kw, voltage, phases, power factor, efficiency, duty and source bus",
		},
		{
			Type: domain.SheetTypeCable,
			Primary: []pattern{
				p("cable", `\bcable\b`),
				p("size", `\b(size|mm2|csa)\b`),
				p("length", `\b(length|route)\b`),
			},
			Secondary: []pattern{
				p("cores", `\bcores?\b`),
				p("from_to", `\b(from|to)\b`),
				p("armour", `\b(armou?r(ed)?|swa)\b`),
				p("insulation", `\b(xlpe|pvc|insulation)\b`),
				p("material", `\b(copper|aluminium|aluminum|cu|al|material|conductor)\b`),
				p("installation", `\b(installation|laying|tray|conduit)\b`),
			},
			NameTokens:  []string{"cable", "cables", "wiring"},
			Description: "cable schedule listing cables with cable id, from bus, to load, size mm2, cores, length, insulation and armour",
		},
		{
			Type: domain.SheetTypeBus,
			Primary: []pattern{
				p("bus", `\b(bus|busbar|switchboard|panel|mcc|swbd|pcc|board)\b`),
				p("short_circuit", `\b(short circuit|fault|isc|ka)\b`),
				p("incomer", `\b(fed from|incomer|upstream)\b`),
			},
			Secondary: []pattern{
				p("voltage", `\b(voltage|kv)\b`),
				p("phases", `\b(phases?|ph)\b`),
				p("current", `\b(current|a)\b`),
				p("rating", `\b(rating|rated)\b`),
				p("feeders", `\b(outgoing|feeders?|ways)\b`),
			},
			NameTokens:  []string{"bus", "buses", "busbar", "switchboard", "switchboards", "panel", "panels", "mcc", "board", "boards"},
			Description: "bus schedule listing switchboards and panels with bus id, voltage, rated current, short circuit rating and source",
		},
		{
			Type: domain.SheetTypeTransformer,
			Primary: []pattern{
				p("transformer", `\b(transformer|tx|xfmr|trafo)\b`),
				p("kva", `\b(kva|mva)\b`),
				p("windings", `\b(primary|secondary|hv|lv)\b`),
			},
			Secondary: []pattern{
				p("impedance", `\b(impedance|z|uk)\b`),
				p("vector_group", `\b(vector|dyn11|connection)\b`),
				p("cooling", `\b(cooling|onan|onaf)\b`),
				p("tap", `\b(tap|tapping|taps)\b`),
				p("voltage", `\b(voltage|kv)\b`),
			},
			NameTokens:  []string{"transformer", "transformers", "tx", "xfmr", "trafo"},
			Description: "transformer schedule listing transformers with id, kva rating, primary and secondary voltage, impedance and vector group",
		},
		{
			Type: domain.SheetTypeProjectInfo,
			Primary: []pattern{
				p("project", `\bproject\b`),
				p("client", `\b(client|customer|owner)\b`),
				p("standard", `\b(standard|code)\b`),
			},
			Secondary: []pattern{
				p("frequency", `\b(frequency|hz)\b`),
				p("ambient", `\b(ambient|temperature)\b`),
				p("revision", `\b(revision|rev|date)\b`),
				p("signoff", `\b(engineer|prepared|checked|approved)\b`),
				p("site", `\b(location|site)\b`),
			},
			NameTokens:  []string{"project", "info", "information", "general", "cover", "summary"},
			Description: "project information sheet with project name, number, client, design standard, frequency and ambient temperature",
		},
	}
}

// Classifier labels sheets with a semantic type.
type Classifier struct {
	cfg    config.ClassifierConfig
	scorer port.SimilarityScorer
	rules  []*sheetRule
}

// New creates a Classifier. scorer is optional; without it only pattern scoring runs.
func New(cfg *config.ClassifierConfig, scorer port.SimilarityScorer) *Classifier {
	c := config.DefaultClassifierConfig()
	if cfg != nil {
		c = *cfg
	}
	return &Classifier{cfg: c, scorer: scorer, rules: defaultRules()}
}

// Classify never fails: weak evidence is reported as low confidence or unknown.
func (c *Classifier) Classify(ctx context.Context, sheet *domain.RawSheet) *domain.ClassificationResult {
	if sheet == nil || sheet.IsEmpty() {
		return &domain.ClassificationResult{
			SheetType: domain.SheetTypeUnknown,
			Method:    domain.ClassificationEmpty,
			Evidence:  []string{"empty sheet"},
		}
	}

	text := classificationText(sheet)

	if res := c.semantic(ctx, text); res != nil {
		return res
	}
	return c.byPattern(sheet.Name, text)
}

func (c *Classifier) semantic(ctx context.Context, text string) *domain.ClassificationResult {
	if c.scorer == nil || text == "" {
		return nil
	}
	var best *sheetRule
	bestScore := 0.0
	for _, rule := range c.rules {
		score, err := c.scorer.Similarity(ctx, text, rule.Description)
		if err != nil {
			log.Printf("classifier.Classifier: similarity failed, falling back to patterns: %v", err)
			return nil
		}
		if score > bestScore {
			best, bestScore = rule, score
		}
	}
	if best == nil || bestScore <= c.cfg.SemanticAccept {
		return nil
	}
	return &domain.ClassificationResult{
		SheetType:  best.Type,
		Confidence: min(bestScore, 1.0),
		Evidence:   []string{fmt.Sprintf("semantic similarity %.2f", bestScore)},
		Method:     domain.ClassificationSemantic,
	}
}

func (c *Classifier) byPattern(sheetName, text string) *domain.ClassificationResult {
	nameTokens := strings.Fields(mapper.NormalizeHeader(sheetName))

	res := &domain.ClassificationResult{
		SheetType: domain.SheetTypeUnknown,
		Method:    domain.ClassificationPattern,
	}
	for _, rule := range c.rules {
		score, evidence := c.scoreRule(rule, text)
		if score > 0 && hasAny(nameTokens, rule.NameTokens) {
			score += c.cfg.NameBoost
			evidence = append(evidence, "sheet name")
		}
		score = min(score, 1.0)
		// Strictly greater keeps the earlier rule on ties.
		if score > res.Confidence {
			res.SheetType = rule.Type
			res.Confidence = score
			res.Evidence = evidence
		}
	}
	return res
}

func (c *Classifier) scoreRule(rule *sheetRule, text string) (float64, []string) {
	maxScore := c.cfg.PrimaryWeight*float64(len(rule.Primary)) + c.cfg.SecondaryWeight*float64(len(rule.Secondary))
	if maxScore == 0 {
		return 0, nil
	}
	var score float64
	var evidence []string
	for _, pt := range rule.Primary {
		if pt.re.MatchString(text) {
			score += c.cfg.PrimaryWeight
			evidence = append(evidence, pt.label)
		}
	}
	for _, pt := range rule.Secondary {
		if pt.re.MatchString(text) {
			score += c.cfg.SecondaryWeight
			evidence = append(evidence, pt.label)
		}
	}
	return score / maxScore, evidence
}

// classificationText joins the normalized headers. Narrow sheets are often
// key/value layouts, so their first-column labels are included too.
func classificationText(sheet *domain.RawSheet) string {
	parts := make([]string, 0, len(sheet.Headers))
	for _, h := range sheet.Headers {
		if n := mapper.NormalizeHeader(h); n != "" {
			parts = append(parts, n)
		}
	}
	if len(sheet.Headers) <= 3 {
		for i, row := range sheet.Rows {
			if i >= 20 {
				break
			}
			if len(row) == 0 {
				continue
			}
			if s, ok := row[0].(string); ok {
				if n := mapper.NormalizeHeader(s); n != "" {
					parts = append(parts, n)
				}
			}
		}
	}
	return strings.Join(parts, " ")
}

func hasAny(tokens, want []string) bool {
	for _, t := range tokens {
		for _, w := range want {
			if t == w {
				return true
			}
		}
	}
	return false
}
