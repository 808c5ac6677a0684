package similarity

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
)

// ErrInvalidEncoding is the one input the engine refuses: raw text that is
// not valid UTF-8. Every other input, including non-compiling code, yields
// a report.
var ErrInvalidEncoding = errors.New("source text is not valid UTF-8")

// Submission is one raw source-text blob with its display name.
type Submission struct {
	Name   string `json:"name"`
	Source string `json:"source"`
}

// ReportBlock is a line-match evidence entry. LineA and LineB are
// 1-indexed first lines of the run for display consumers.
type ReportBlock struct {
	LineA  int `json:"lineA" bson:"lineA"`
	LineB  int `json:"lineB" bson:"lineB"`
	Length int `json:"length" bson:"length"`
}

// Report is the full outcome of one pairwise comparison: the three signal
// scores, the weighted final score with its verdict bucket, and the
// supporting evidence from each signal.
type Report struct {
	NameA string `json:"nameA" bson:"nameA"`
	NameB string `json:"nameB" bson:"nameB"`

	Moss      float64 `json:"mossScore" bson:"mossScore"`
	Structure float64 `json:"structureScore" bson:"structureScore"`
	Line      float64 `json:"lineScore" bson:"lineScore"`
	Final     float64 `json:"finalScore" bson:"finalScore"`
	Rating    Rating  `json:"rating" bson:"rating"`

	Regions         []MatchRegion    `json:"matchRegions" bson:"matchRegions"`
	Blocks          []ReportBlock    `json:"matchBlocks" bson:"matchBlocks"`
	DifferingUnitsA []StructuralUnit `json:"differingUnitsA" bson:"differingUnitsA"`
	DifferingUnitsB []StructuralUnit `json:"differingUnitsB" bson:"differingUnitsB"`
}

// document holds the per-comparison derivatives of one submission. It is
// created inside Compare and discarded with the call; nothing is shared
// across comparisons.
type document struct {
	name    string
	tokens  []Token
	lines   []string
	profile StructuralProfile
}

// Engine is a stateless pairwise comparator built from one validated
// Config. A single Engine is safe for concurrent comparisons.
type Engine struct {
	cfg      Config
	keywords map[string]struct{}
}

// New validates cfg and constructs an engine. Configuration problems are
// rejected here, before any comparison runs.
func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine configuration: %w", err)
	}
	keywords := make(map[string]struct{}, len(cfg.Keywords))
	for _, kw := range cfg.Keywords {
		keywords[kw] = struct{}{}
	}
	return &Engine{cfg: cfg, keywords: keywords}, nil
}

// Config returns the engine's configuration.
func (e *Engine) Config() Config { return e.cfg }

// Compare runs the full pipeline over two submissions and produces one
// report. Per-document preparation and the three signal computations are
// independent and run as parallel tasks.
func (e *Engine) Compare(ctx context.Context, a, b Submission) (*Report, error) {
	if !utf8.ValidString(a.Source) {
		return nil, fmt.Errorf("document %q: %w", a.Name, ErrInvalidEncoding)
	}
	if !utf8.ValidString(b.Source) {
		return nil, fmt.Errorf("document %q: %w", b.Name, ErrInvalidEncoding)
	}

	var docA, docB *document
	prep, _ := errgroup.WithContext(ctx)
	prep.Go(func() error { docA = e.prepare(a); return nil })
	prep.Go(func() error { docB = e.prepare(b); return nil })
	_ = prep.Wait()

	var (
		moss, structure, line float64
		anchors               []MatchAnchor
		blocks                []MatchBlock
	)
	signals, _ := errgroup.WithContext(ctx)
	signals.Go(func() error {
		moss, anchors = mossSignal(docA.tokens, docB.tokens, e.cfg.KGramSize, e.cfg.WinnowWindow)
		return nil
	})
	signals.Go(func() error {
		structure = structureSignal(docA.profile, docB.profile)
		return nil
	})
	signals.Go(func() error {
		line, blocks = lineSignal(docA.lines, docB.lines)
		return nil
	})
	_ = signals.Wait()

	final := e.cfg.MossWeight*moss + e.cfg.StructWeight*structure + e.cfg.LineWeight*line
	onlyA, onlyB := differingUnits(docA.profile, docB.profile)

	return &Report{
		NameA:           docA.name,
		NameB:           docB.name,
		Moss:            moss,
		Structure:       structure,
		Line:            line,
		Final:           final,
		Rating:          e.cfg.Rating(final),
		Regions:         mergeAnchors(anchors, e.cfg.KGramSize),
		Blocks:          e.evidenceBlocks(blocks),
		DifferingUnitsA: onlyA,
		DifferingUnitsB: onlyB,
	}, nil
}

func (e *Engine) prepare(sub Submission) *document {
	normalized := Normalize(sub.Source, e.keywords)
	tokens := Tokenize(normalized, e.keywords)
	return &document{
		name:    sub.Name,
		tokens:  tokens,
		lines:   splitLines(normalized),
		profile: ProfileStructure(tokens, e.cfg.ControlKeywords),
	}
}

// evidenceBlocks converts matcher blocks to 1-indexed display entries,
// dropping runs shorter than the configured minimum. Filtered blocks still
// contributed to the line score.
func (e *Engine) evidenceBlocks(blocks []MatchBlock) []ReportBlock {
	out := make([]ReportBlock, 0, len(blocks))
	for _, block := range blocks {
		if block.Length < e.cfg.MinBlockLength {
			continue
		}
		out = append(out, ReportBlock{
			LineA:  block.StartA + 1,
			LineB:  block.StartB + 1,
			Length: block.Length,
		})
	}
	return out
}
