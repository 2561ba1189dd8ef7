package pathogen

import (
	"fmt"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// LibraryVersion is the version of the built-in fingerprint set. Bump when
// default patterns, weights, or thresholds change.
const LibraryVersion = "v1.0.0"

// Library is the immutable table of pathogen fingerprints, keyed by
// detector name. It is the only object shared between concurrent sessions
// and must not be mutated after construction; apply overlays before handing
// it to scanners.
type Library struct {
	version      string
	fingerprints map[Type]*Fingerprint
	order        []Type
	mutations    map[Type]int
}

// NewLibrary builds the default fingerprint library.
func NewLibrary() *Library {
	lib := &Library{
		version:      LibraryVersion,
		fingerprints: make(map[Type]*Fingerprint),
		mutations:    make(map[Type]int),
	}
	for _, f := range defaultFingerprints() {
		if err := f.compile(); err != nil {
			// Default patterns are fixed at build time.
			panic(err)
		}
		lib.fingerprints[f.Type] = f
		lib.order = append(lib.order, f.Type)
	}
	if !semver.IsValid(lib.version) {
		panic(fmt.Sprintf("invalid library version %q", lib.version))
	}
	return lib
}

// Version returns the library's semver version string.
func (l *Library) Version() string { return l.version }

// Fingerprint returns the fingerprint for a pathogen type.
func (l *Library) Fingerprint(t Type) (*Fingerprint, bool) {
	f, ok := l.fingerprints[t]
	return f, ok
}

// Types returns the pathogen types in registration order.
func (l *Library) Types() []Type {
	out := make([]Type, len(l.order))
	copy(out, l.order)
	return out
}

// Mutations returns how many overlay mutations each fingerprint has received.
func (l *Library) Mutations() map[Type]int {
	out := make(map[Type]int, len(l.mutations))
	for k, v := range l.mutations {
		out[k] = v
	}
	return out
}

// Overlay tunes fingerprints without touching control flow: extra patterns
// and markers are appended, threshold adjustments are applied with a 0.1
// floor. Loaded from YAML keyed by pathogen type.
type Overlay map[Type]OverlayEntry

// OverlayEntry is the per-fingerprint tuning block of an overlay.
type OverlayEntry struct {
	Patterns            []string `yaml:"patterns"`
	SemanticMarkers     []string `yaml:"semantic_markers"`
	ThresholdAdjustment float64  `yaml:"threshold_adjustment"`
}

// ParseOverlay decodes a YAML overlay document.
func ParseOverlay(data []byte) (Overlay, error) {
	var o Overlay
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("parsing fingerprint overlay: %w", err)
	}
	return o, nil
}

// ApplyOverlay merges an overlay into the library. Must be called before
// the library is shared with scanners. Unknown pathogen types are rejected
// so a typo in an overlay file fails loudly.
func (l *Library) ApplyOverlay(o Overlay) error {
	for typ, entry := range o {
		f, ok := l.fingerprints[typ]
		if !ok {
			return fmt.Errorf("overlay references unknown pathogen type %q", typ)
		}

		f.Patterns = append(f.Patterns, entry.Patterns...)
		f.SemanticMarkers = append(f.SemanticMarkers, entry.SemanticMarkers...)
		if entry.ThresholdAdjustment != 0 {
			f.Threshold += entry.ThresholdAdjustment
			if f.Threshold < 0.1 {
				f.Threshold = 0.1
			}
		}
		if err := f.compile(); err != nil {
			return err
		}
		l.mutations[typ]++
	}
	return nil
}

func defaultFingerprints() []*Fingerprint {
	return []*Fingerprint{
		{
			Type:        AncestralDrift,
			Name:        "Ancestral Drift",
			Description: "Unintended introduction of character backstory or historical details",
			Patterns: []string{
				`years? ago`,
				`when (?:he|she|they) was (?:young|younger|a child)`,
				`(?:mother|father|parent)(?:s)? (?:always|used to|would)`,
				`remember(?:ed|ing)? when`,
				`(?:childhood|youth|past) (?:memories?|experiences?)`,
				`(?:grandmother|grandfather) (?:told|said|taught)`,
				`family tradition`,
				`inherited from`,
				`(?:born|raised) in`,
				`(?:learned|discovered) as a (?:child|youth)`,
			},
			SemanticMarkers: []string{
				"backstory", "history", "past", "childhood", "ancestry",
				"heritage", "legacy", "tradition", "memory", "origin",
			},
			SeverityWeights: map[string]float64{
				`years? ago`: 2.0,
				`when (?:he|she|they) was (?:young|younger|a child)`: 3.0,
				`(?:grandmother|grandfather) (?:told|said|taught)`:   2.5,
				`family tradition`: 3.5,
				`inherited from`:   3.0,
			},
			Threshold:    2.0,
			MutationRate: 0.1,
		},
		{
			Type:        SentimentalityBloom,
			Name:        "Sentimentality Bloom",
			Description: "Excessive emotional elaboration that overwhelms narrative purpose",
			Patterns: []string{
				`(?:deeply|profoundly|overwhelmingly) (?:moved|touched|affected)`,
				`tears? (?:streaming|flowing|cascading)`,
				`heart (?:breaking|shattering|aching|swelling)`,
				`(?:beautiful|precious|sacred) (?:moment|memory|feeling)`,
				`(?:pure|innocent|perfect) (?:love|joy|happiness)`,
				`(?:magical|enchanting|mystical) (?:connection|bond)`,
				`soul(?:-?deep|(?:\s+)touching)`,
				`(?:trembling|quivering) with (?:emotion|feeling)`,
				`(?:overwhelmed|consumed) by (?:love|grief|joy)`,
				`(?:divine|spiritual|transcendent) (?:moment|experience)`,
			},
			SemanticMarkers: []string{
				"emotional", "sentimental", "touching", "heartwarming",
				"precious", "sacred", "pure", "innocent", "magical",
			},
			SeverityWeights: map[string]float64{
				`(?:deeply|profoundly|overwhelmingly) (?:moved|touched|affected)`: 2.5,
				`heart (?:breaking|shattering|aching|swelling)`:                   3.0,
				`(?:pure|innocent|perfect) (?:love|joy|happiness)`:                3.5,
				`soul(?:-?deep|(?:\s+)touching)`:                                  4.0,
				`(?:divine|spiritual|transcendent) (?:moment|experience)`:         4.5,
			},
			Threshold:    3.0,
			MutationRate: 0.15,
		},
		{
			Type:        HallucinatedPrecision,
			Name:        "Hallucinated Precision",
			Description: "Introduction of overly specific details not grounded in source material",
			Patterns: []string{
				`\d+\.?\d*\s*(?:inches?|feet|yards?|miles?|meters?|cm|mm)`,
				`(?:exactly|precisely) \d+`,
				`\d+:\d+\s*(?:AM|PM|am|pm)`,
				`(?:Model|Type|Brand)\s+[A-Z]\d+`,
				`\$\d+\.?\d*`,
				`(?:License|Serial|ID)\s*(?:Number|#)?\s*[A-Z0-9]+`,
				`(?:born|died|happened) (?:on|in) (?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d+`,
				`(?:weighed|measured|cost|lasted) (?:exactly|precisely)`,
				`(?:\d+\s*(?:degrees?|°))`,
				`(?:ISBN|SSN|Phone)\s*:?\s*\d+`,
			},
			SemanticMarkers: []string{
				"exactly", "precisely", "specifically", "measured",
				"calculated", "documented", "recorded", "verified",
			},
			SeverityWeights: map[string]float64{
				`(?:exactly|precisely) \d+`:    3.0,
				`(?:Model|Type|Brand)\s+[A-Z]\d+`: 4.0,
				`(?:License|Serial|ID)\s*(?:Number|#)?\s*[A-Z0-9]+`: 4.5,
				`(?:born|died|happened) (?:on|in) (?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d+`: 3.5,
			},
			Threshold:    2.5,
			MutationRate: 0.2,
		},
		{
			Type:        ThematicMutation,
			Name:        "Thematic Mutation",
			Description: "Divergence from established thematic direction",
			Patterns: []string{
				`(?:suddenly|unexpectedly|out of nowhere)`,
				`(?:completely|totally|entirely) different`,
				`(?:unrelated|disconnected|separate) (?:topic|subject|matter)`,
				`(?:shifted|changed|turned) (?:focus|attention|direction)`,
				`(?:meanwhile|elsewhere|somewhere else)`,
				`(?:another|different|separate) (?:story|narrative|plot)`,
				`(?:tangent|digression|aside)`,
				`(?:unconnected|isolated) (?:incident|event|occurrence)`,
				`(?:random|arbitrary|chance) (?:event|occurrence|happening)`,
				`(?:irrelevant|unimportant|peripheral) (?:detail|information)`,
			},
			SemanticMarkers: []string{
				"divergent", "unrelated", "tangential", "disconnected",
				"separate", "different", "unconnected", "random", "arbitrary",
			},
			SeverityWeights: map[string]float64{
				`(?:suddenly|unexpectedly|out of nowhere)`:              2.0,
				`(?:completely|totally|entirely) different`:             3.5,
				`(?:unrelated|disconnected|separate) (?:topic|subject|matter)`: 4.0,
				`(?:another|different|separate) (?:story|narrative|plot)`:      4.5,
			},
			Threshold:    2.5,
			MutationRate: 0.12,
		},
		{
			Type:        TimeJumpParasite,
			Name:        "Time-Jump Parasite",
			Description: "Temporal inconsistencies and unexpected time shifts",
			Patterns: []string{
				`(?:later|earlier|before|after),?\s*(?:that same day|that evening|that morning)`,
				`(?:minutes?|hours?|days?|weeks?|months?|years?) (?:later|earlier|ago|before)`,
				`(?:suddenly|instantly|immediately),?\s*(?:time|everything) (?:shifted|changed|jumped)`,
				`(?:flashback|flash forward|time skip)`,
				`(?:when|while|as) (?:time|clock) (?:moved|passed|went)`,
				`(?:past|present|future) (?:tense|time|moment)`,
				`(?:chronology|timeline|sequence) (?:shifted|changed|broke)`,
				`(?:temporal|time) (?:shift|jump|break|loop)`,
				`(?:anachronism|time paradox)`,
				`(?:now|then),?\s*(?:back|forward) (?:in time|to)`,
			},
			SemanticMarkers: []string{
				"temporal", "chronological", "timeline", "sequence",
				"flashback", "future", "past", "time", "when", "anachronism",
			},
			SeverityWeights: map[string]float64{
				`(?:flashback|flash forward|time skip)`:              3.5,
				`(?:temporal|time) (?:shift|jump|break|loop)`:        4.0,
				`(?:anachronism|time paradox)`:                       4.5,
				`(?:chronology|timeline|sequence) (?:shifted|changed|broke)`: 4.0,
			},
			Threshold:    2.0,
			MutationRate: 0.08,
		},
		{
			Type:        ScopeCreep,
			Name:        "Scope Creep",
			Description: "Expansion beyond established narrative boundaries",
			Patterns: []string{
				`(?:entire|whole|complete) (?:world|universe|reality)`,
				`(?:global|worldwide|universal) (?:impact|effect|consequence)`,
				`(?:government|authorities|officials) (?:involved|concerned|interested)`,
				`(?:news|media|press) (?:coverage|attention|reports)`,
				`(?:scientific|medical|legal) (?:community|establishment|experts)`,
				`(?:international|national) (?:implications|consequences|ramifications)`,
				`(?:cosmic|galactic|planetary) (?:significance|importance|scale)`,
				`(?:historical|epoch|era)(?:-(?:making|defining|changing))?`,
				`(?:all of humanity|human race|mankind|civilization)`,
				`(?:paradigm|worldview) (?:shift|change|transformation)`,
			},
			SemanticMarkers: []string{
				"global", "universal", "cosmic", "historical", "paradigm",
				"civilization", "humanity", "worldwide", "epoch", "era",
			},
			SeverityWeights: map[string]float64{
				`(?:entire|whole|complete) (?:world|universe|reality)`:      4.0,
				`(?:cosmic|galactic|planetary) (?:significance|importance|scale)`: 4.5,
				`(?:all of humanity|human race|mankind|civilization)`:       4.0,
				`(?:paradigm|worldview) (?:shift|change|transformation)`:    3.5,
			},
			Threshold:    3.0,
			MutationRate: 0.1,
		},
		{
			Type:        CharacterContamination,
			Name:        "Character Contamination",
			Description: "Introduction of unestablished characters or out-of-character behavior",
			Patterns: []string{
				`a stranger (?:appeared|arrived|entered|approached)`,
				`(?:someone|somebody) (?:new|unfamiliar|unknown)`,
				`never (?:seen|met) (?:him|her|them) before`,
				`a new (?:character|figure|face|voice)`,
				`(?:out of|against) character`,
				`would never (?:say|do|think) (?:that|this|such)`,
				`(?:mysterious|unnamed) (?:man|woman|person|visitor)`,
				`(?:unexpected|uninvited) (?:guest|arrival|visitor)`,
			},
			SemanticMarkers: []string{
				"stranger", "unfamiliar", "unknown", "newcomer", "outsider",
			},
			SeverityWeights: map[string]float64{
				`a stranger (?:appeared|arrived|entered|approached)`: 3.0,
				`a new (?:character|figure|face|voice)`:              3.5,
				`(?:out of|against) character`:                       4.0,
				`(?:mysterious|unnamed) (?:man|woman|person|visitor)`: 3.0,
			},
			Threshold:    2.5,
			MutationRate: 0.1,
		},
		{
			Type:        TonalInfection,
			Name:        "Tonal Infection",
			Description: "Mood or register shifts that clash with the established tone",
			Patterns: []string{
				`(?:suddenly|abruptly) (?:cheerful|gleeful|grim|bleak)`,
				`(?:jarring|clashing|discordant) (?:tone|mood|note)`,
				`(?:comic|comedic) relief`,
				`(?:mood|tone) (?:whiplash|swing|reversal)`,
				`(?:inexplicably|strangely|oddly) (?:happy|sad|angry|calm)`,
				`(?:lighthearted|solemn) (?:turn|shift)`,
				`(?:broke|shattered) the (?:mood|atmosphere|tension)`,
			},
			SemanticMarkers: []string{
				"jarring", "discordant", "whiplash", "clashing", "offbeat",
			},
			SeverityWeights: map[string]float64{
				`(?:jarring|clashing|discordant) (?:tone|mood|note)`: 3.0,
				`(?:mood|tone) (?:whiplash|swing|reversal)`:          4.0,
				`(?:broke|shattered) the (?:mood|atmosphere|tension)`: 3.0,
			},
			Threshold:    2.0,
			MutationRate: 0.1,
		},
	}
}
