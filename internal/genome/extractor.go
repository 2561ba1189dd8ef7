package genome

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultObligation is the fallback when the seed/beat pair contains no
// modal-verb obligation phrase. Extraction never fails; it degrades to this.
const DefaultObligation = "advance the narrative"

// obligationPatterns find explicit obligation markers ("must decide ...").
var obligationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)must\s+(\w+(?:\s+\w+)*)`),
	regexp.MustCompile(`(?i)needs?\s+to\s+(\w+(?:\s+\w+)*)`),
	regexp.MustCompile(`(?i)has\s+to\s+(\w+(?:\s+\w+)*)`),
	regexp.MustCompile(`(?i)should\s+(\w+(?:\s+\w+)*)`),
	regexp.MustCompile(`(?i)will\s+(\w+(?:\s+\w+)*)`),
}

// capitalizedWord matches candidate character names. Deliberately naive:
// classification here is pattern-based, not semantic.
var capitalizedWord = regexp.MustCompile(`\b[A-Z][a-z]+\b`)

// characterStopList filters capitalized function words and pronouns out of
// character extraction.
var characterStopList = map[string]struct{}{
	"The": {}, "This": {}, "That": {}, "And": {}, "But": {}, "Or": {},
	"In": {}, "On": {}, "At": {}, "To": {}, "For": {},
	"He": {}, "She": {}, "They": {}, "It": {}, "Her": {}, "His": {},
	"Their": {}, "You": {}, "We": {},
}

// Tone keyword sets. Majority presence wins; ties resolve to neutral.
var (
	positiveToneWords = []string{"happy", "joy", "smile", "bright", "hope", "love", "peace"}
	negativeToneWords = []string{"sad", "dark", "fear", "anger", "death", "pain", "despair"}
	neutralToneWords  = []string{"calm", "quiet", "steady", "normal", "regular"}
)

// Scope entity patterns: location nouns plus objects of place prepositions.
var (
	locationNouns      = regexp.MustCompile(`\b(house|home|room|kitchen|bedroom|office|street|park|forest|mountain|city|town|village)\b`)
	prepositionObjects = regexp.MustCompile(`\b(?:in|at|on|near|by)\s+(?:the\s+)?(\w+)`)
)

// ligandFamily binds a ligand type to its pattern set. Families are scanned
// in a fixed order so extraction is deterministic for fixed input.
type ligandFamily struct {
	typ      LigandType
	patterns []*regexp.Regexp
}

var ligandFamilies = []ligandFamily{
	{LigandCharacterAction, []*regexp.Regexp{
		regexp.MustCompile(`(?i)(\w+)\s+(walked|ran|looked|said|thought|felt)`),
		regexp.MustCompile(`(?i)(\w+)'s\s+(eyes|hands|voice|expression)`),
		regexp.MustCompile(`(?i)(\w+)\s+(hesitated|paused|smiled|frowned)`),
	}},
	{LigandEmotionalState, []*regexp.Regexp{
		regexp.MustCompile(`(?i)(anxiety|fear|joy|sadness|anger|hope|despair)`),
		regexp.MustCompile(`(?i)(felt|feeling|emotion|mood)\s+(\w+)`),
		regexp.MustCompile(`(?i)(tension|pressure|relief|comfort)`),
	}},
	{LigandSettingDetail, []*regexp.Regexp{
		regexp.MustCompile(`(?i)(the|a)\s+(room|house|street|forest|mountain)`),
		regexp.MustCompile(`(?i)(air|atmosphere|environment)\s+(was|felt|seemed)`),
		regexp.MustCompile(`(?i)(light|shadow|darkness|brightness)`),
	}},
	{LigandConflictTension, []*regexp.Regexp{
		regexp.MustCompile(`(?i)(conflict|tension|disagreement|argument)`),
		regexp.MustCompile(`(?i)(against|opposed|conflicted|struggled)`),
		regexp.MustCompile(`(?i)(problem|issue|challenge|obstacle)`),
	}},
	{LigandDialogueSubtext, []*regexp.Regexp{
		regexp.MustCompile(`(?i)"([^"]+)"\s+(he|she|they)\s+(said|whispered|shouted)`),
		regexp.MustCompile(`(?i)(unspoken|implied|suggested|hinted)`),
		regexp.MustCompile(`(?i)(between the lines|subtext|meaning)`),
	}},
	{LigandThemeResonance, []*regexp.Regexp{
		regexp.MustCompile(`(?i)(theme|meaning|significance|purpose)`),
		regexp.MustCompile(`(?i)(represents|symbolizes|embodies|reflects)`),
		regexp.MustCompile(`(?i)(deeper|profound|surface|shallow)`),
	}},
}

// Extractor parses a seed/beat pair into a ConstraintGenome. Extraction is
// deterministic, has no side effects beyond logging, and never fails.
type Extractor struct {
	logger *zap.Logger
}

// NewExtractor creates an extractor. A nil logger disables logging.
func NewExtractor(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{logger: logger}
}

// Extract builds the constraint genome for one seed/beat pair.
func (e *Extractor) Extract(seed, beat string) *ConstraintGenome {
	combined := seed + " " + beat

	obligations := extractObligations(combined)
	characters := extractCharacters(combined)
	tone := classifyTone(combined)
	scope := extractScopeEntities(combined, characters)

	var ligands []*Ligand
	for _, family := range ligandFamilies {
		ligands = append(ligands, extractFamilyLigands(combined, family, scope, tone)...)
	}
	ligands = append(ligands, obligationLigands(obligations, scope, tone)...)

	g := &ConstraintGenome{
		SeedText:      seed,
		BeatText:      beat,
		Obligations:   obligations,
		Characters:    characters,
		ToneVector:    tone,
		ScopeEntities: scope,
		Ligands:       ligands,
		ExtractedAt:   time.Now(),
	}

	e.logger.Info("extracted constraint genome",
		zap.Int("ligands", len(ligands)),
		zap.Int("obligations", len(obligations)),
		zap.Strings("characters", characters),
		zap.String("tone", tone))

	return g
}

func extractObligations(text string) []string {
	var obligations []string
	for _, pat := range obligationPatterns {
		for _, m := range pat.FindAllStringSubmatch(text, -1) {
			obligations = append(obligations, m[1])
		}
	}
	obligations = dedupe(obligations)
	if len(obligations) == 0 {
		obligations = []string{DefaultObligation}
	}
	return obligations
}

func extractCharacters(text string) []string {
	var names []string
	for _, w := range capitalizedWord.FindAllString(text, -1) {
		if _, stop := characterStopList[w]; !stop {
			names = append(names, w)
		}
	}
	return dedupe(names)
}

func classifyTone(text string) string {
	lower := strings.ToLower(text)

	count := func(words []string) int {
		n := 0
		for _, w := range words {
			if strings.Contains(lower, w) {
				n++
			}
		}
		return n
	}

	pos := count(positiveToneWords)
	neg := count(negativeToneWords)
	neut := count(neutralToneWords)

	switch {
	case pos > neg && pos > neut:
		return "positive"
	case neg > pos && neg > neut:
		return "negative"
	default:
		return "neutral"
	}
}

func extractScopeEntities(text string, characters []string) []string {
	lower := strings.ToLower(text)

	var entities []string
	entities = append(entities, locationNouns.FindAllString(lower, -1)...)
	for _, m := range prepositionObjects.FindAllStringSubmatch(lower, -1) {
		entities = append(entities, m[1])
	}
	entities = append(entities, characters...)

	return dedupe(entities)
}

func extractFamilyLigands(text string, family ligandFamily, scope []string, tone string) []*Ligand {
	var ligands []*Ligand
	for i, pat := range family.patterns {
		for j, span := range pat.FindAllString(text, -1) {
			id := string(family.typ) + "_" + strconv.Itoa(i) + "_" + strconv.Itoa(j)
			l, err := NewLigand(id, family.typ, span, scope, tone, "", MinDepth)
			if err != nil {
				// Pattern matches are non-empty by construction; an error
				// here is an extractor defect.
				panic(err)
			}
			ligands = append(ligands, l)
		}
	}
	return ligands
}

func obligationLigands(obligations, scope []string, tone string) []*Ligand {
	ligands := make([]*Ligand, 0, len(obligations))
	for i, obligation := range obligations {
		l, err := NewLigand("obligation_"+strconv.Itoa(i), LigandObligationFulfillment,
			"fulfill: "+obligation, scope, tone, obligation, 2)
		if err != nil {
			panic(err)
		}
		ligands = append(ligands, l)
	}
	return ligands
}

// dedupe removes duplicates while preserving first-occurrence order, which
// keeps extraction deterministic.
func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
