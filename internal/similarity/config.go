package similarity

import (
	"fmt"
	"math"
)

// Default engine constants. The embedding application may override any of
// them through Config before constructing the engine.
const (
	DefaultKGramSize      = 5
	DefaultWinnowWindow   = 10
	DefaultMossWeight     = 0.50
	DefaultStructWeight   = 0.30
	DefaultLineWeight     = 0.20
	DefaultMinBlockLength = 3
)

// Rating is the human-readable verdict bucket for a final score.
type Rating string

const (
	RatingVeryLow  Rating = "Very Low"
	RatingLow      Rating = "Low"
	RatingModerate Rating = "Moderate"
	RatingHigh     Rating = "High"
	RatingVeryHigh Rating = "Very High"
)

// Config holds the engine constants for one Engine instance. It is treated
// as immutable after New; alternate weight sets are tested by constructing
// a second engine, never by mutating a shared value.
type Config struct {
	// KGramSize is the number of consecutive tokens hashed into one k-gram.
	KGramSize int

	// WinnowWindow is the number of consecutive k-gram hashes per
	// winnowing selection window.
	WinnowWindow int

	// Ensemble weights. Must sum to 1.
	MossWeight   float64
	StructWeight float64
	LineWeight   float64

	// Thresholds are the lower bounds of the Low, Moderate, High and
	// Very High buckets, in ascending order.
	Thresholds [4]float64

	// MinBlockLength filters match blocks shorter than this many lines
	// out of the evidence list. Filtered blocks still count toward the
	// line score.
	MinBlockLength int

	// Keywords is the full reserved-word set of the target language.
	// Keywords survive normalization verbatim.
	Keywords []string

	// ControlKeywords is the control-construct subset counted by the
	// structural profiler. Every entry must also appear in Keywords.
	ControlKeywords []string
}

// DefaultConfig returns the configuration tuned for C-family (C++) sources.
func DefaultConfig() Config {
	return Config{
		KGramSize:      DefaultKGramSize,
		WinnowWindow:   DefaultWinnowWindow,
		MossWeight:     DefaultMossWeight,
		StructWeight:   DefaultStructWeight,
		LineWeight:     DefaultLineWeight,
		Thresholds:     [4]float64{0.20, 0.40, 0.60, 0.80},
		MinBlockLength: DefaultMinBlockLength,
		Keywords:       cppKeywords(),
		ControlKeywords: []string{
			"if", "else", "for", "while", "switch", "case", "do", "try", "catch",
		},
	}
}

// Validate rejects configurations the engine cannot run with. It is the
// only place a ConfigurationError can surface; a validated Config never
// fails during a comparison.
func (c Config) Validate() error {
	if c.KGramSize <= 0 {
		return fmt.Errorf("k-gram size must be positive, got %d", c.KGramSize)
	}
	if c.WinnowWindow <= 0 {
		return fmt.Errorf("winnowing window must be positive, got %d", c.WinnowWindow)
	}
	if c.MossWeight < 0 || c.StructWeight < 0 || c.LineWeight < 0 {
		return fmt.Errorf("ensemble weights must be non-negative")
	}
	sum := c.MossWeight + c.StructWeight + c.LineWeight
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("ensemble weights must sum to 1, got %.9f", sum)
	}
	prev := 0.0
	for i, t := range c.Thresholds {
		if t <= prev || t > 1.0 {
			return fmt.Errorf("bucket threshold %d out of order: %.2f", i, t)
		}
		prev = t
	}
	if c.MinBlockLength < 1 {
		return fmt.Errorf("minimum block length must be at least 1, got %d", c.MinBlockLength)
	}
	if len(c.Keywords) == 0 {
		return fmt.Errorf("keyword set must not be empty")
	}
	keywords := make(map[string]struct{}, len(c.Keywords))
	for _, kw := range c.Keywords {
		keywords[kw] = struct{}{}
	}
	for _, ck := range c.ControlKeywords {
		if _, ok := keywords[ck]; !ok {
			return fmt.Errorf("control keyword %q is not in the keyword set", ck)
		}
	}
	return nil
}

// Rating maps a final score to its verdict bucket.
func (c Config) Rating(final float64) Rating {
	switch {
	case final >= c.Thresholds[3]:
		return RatingVeryHigh
	case final >= c.Thresholds[2]:
		return RatingHigh
	case final >= c.Thresholds[1]:
		return RatingModerate
	case final >= c.Thresholds[0]:
		return RatingLow
	default:
		return RatingVeryLow
	}
}

func cppKeywords() []string {
	return []string{
		"auto", "break", "case", "catch", "char", "class", "const",
		"continue", "default", "delete", "do", "double", "else", "enum",
		"extern", "float", "for", "friend", "goto", "if", "inline", "int",
		"long", "namespace", "new", "operator", "private", "protected",
		"public", "register", "return", "short", "signed", "sizeof",
		"static", "struct", "switch", "template", "throw", "try",
		"typedef", "union", "unsigned", "using", "virtual", "void",
		"volatile", "while",
	}
}
