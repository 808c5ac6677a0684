package similarity

import (
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint is the hash of one k-gram together with the index of the
// k-gram's first token.
type Fingerprint struct {
	Hash uint64 `json:"hash" bson:"hash"`
	Pos  int    `json:"pos" bson:"pos"`
}

// MatchAnchor pairs the selected positions of a hash shared by both
// documents' winnowed fingerprint sets.
type MatchAnchor struct {
	PosA int `json:"posA" bson:"posA"`
	PosB int `json:"posB" bson:"posB"`
}

// MatchRegion is a contiguous run of merged anchors, in inclusive token
// indices of each document.
type MatchRegion struct {
	StartA int `json:"startA" bson:"startA"`
	EndA   int `json:"endA" bson:"endA"`
	StartB int `json:"startB" bson:"startB"`
	EndB   int `json:"endB" bson:"endB"`
}

// kgramFingerprints hashes every window of k consecutive tokens. The hash
// input is the canonical token text joined by single spaces; xxhash is
// collision-free enough at pairwise-comparison scale.
func kgramFingerprints(tokens []Token, k int) []Fingerprint {
	if len(tokens) < k {
		return nil
	}
	fps := make([]Fingerprint, 0, len(tokens)-k+1)
	var b strings.Builder
	for i := 0; i+k <= len(tokens); i++ {
		b.Reset()
		for j := range k {
			if j > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(tokens[i+j].Text)
		}
		fps = append(fps, Fingerprint{Hash: xxhash.Sum64String(b.String()), Pos: i})
	}
	return fps
}

// winnow selects one fingerprint per window of w consecutive hashes: the
// minimum hash, breaking ties toward the rightmost occurrence, and skipping
// a selection that repeats the previous (hash, position) pick. The window
// minimum is tracked with a size-bounded deque rather than a rescan; the
// tie-break and re-selection rules are load-bearing, so the deque pops with
// >= to keep the rightmost minimum at the front.
//
// A sequence shorter than one window is returned whole.
func winnow(fps []Fingerprint, w int) []Fingerprint {
	if len(fps) == 0 {
		return nil
	}
	if len(fps) < w {
		out := make([]Fingerprint, len(fps))
		copy(out, fps)
		return out
	}

	var selected []Fingerprint
	var last Fingerprint
	hasLast := false
	deque := make([]Fingerprint, 0, w)

	for i, fp := range fps {
		for len(deque) > 0 && deque[len(deque)-1].Hash >= fp.Hash {
			deque = deque[:len(deque)-1]
		}
		deque = append(deque, fp)

		if i < w-1 {
			continue
		}
		for deque[0].Pos <= i-w {
			deque = deque[1:]
		}
		min := deque[0]
		if hasLast && min == last {
			continue
		}
		selected = append(selected, min)
		last, hasLast = min, true
	}
	return selected
}

// selectedSet maps each distinct selected hash to its first selected k-gram
// position. A document never contributes the same hash twice.
type selectedSet map[uint64]int

func buildSelectedSet(fps []Fingerprint) selectedSet {
	set := make(selectedSet, len(fps))
	for _, fp := range fps {
		if _, ok := set[fp.Hash]; !ok {
			set[fp.Hash] = fp.Pos
		}
	}
	return set
}

// mossSignal computes the winnowed-fingerprint similarity and its anchor
// evidence. The score is Dice-style: shared hashes counted against the
// summed selected-set sizes, which penalizes length-mismatched pairs less
// than a min-denominator would.
func mossSignal(tokensA, tokensB []Token, k, w int) (float64, []MatchAnchor) {
	setA := buildSelectedSet(winnow(kgramFingerprints(tokensA, k), w))
	setB := buildSelectedSet(winnow(kgramFingerprints(tokensB, k), w))

	if len(setA) == 0 || len(setB) == 0 {
		if len(tokensA) == 0 && len(tokensB) == 0 {
			return 1.0, nil
		}
		return 0.0, nil
	}

	anchors := make([]MatchAnchor, 0)
	for hash, posA := range setA {
		if posB, ok := setB[hash]; ok {
			anchors = append(anchors, MatchAnchor{PosA: posA, PosB: posB})
		}
	}
	sort.Slice(anchors, func(i, j int) bool {
		if anchors[i].PosA != anchors[j].PosA {
			return anchors[i].PosA < anchors[j].PosA
		}
		return anchors[i].PosB < anchors[j].PosB
	})

	score := 2.0 * float64(len(anchors)) / float64(len(setA)+len(setB))
	if score > 1.0 {
		score = 1.0
	}
	return score, anchors
}

// mergeAnchors folds position-sorted anchors whose deltas stay within a
// gap tolerance of k-1 tokens into contiguous match regions for
// visualization consumers.
func mergeAnchors(anchors []MatchAnchor, k int) []MatchRegion {
	if len(anchors) == 0 {
		return nil
	}
	gap := k - 1
	regions := make([]MatchRegion, 0)
	cur := MatchRegion{
		StartA: anchors[0].PosA, EndA: anchors[0].PosA + k - 1,
		StartB: anchors[0].PosB, EndB: anchors[0].PosB + k - 1,
	}
	lastB := anchors[0].PosB

	for _, a := range anchors[1:] {
		if a.PosA <= cur.EndA+gap+1 && a.PosB >= lastB && a.PosB <= cur.EndB+gap+1 {
			cur.EndA = max(cur.EndA, a.PosA+k-1)
			cur.EndB = max(cur.EndB, a.PosB+k-1)
			lastB = a.PosB
			continue
		}
		regions = append(regions, cur)
		cur = MatchRegion{
			StartA: a.PosA, EndA: a.PosA + k - 1,
			StartB: a.PosB, EndB: a.PosB + k - 1,
		}
		lastB = a.PosB
	}
	return append(regions, cur)
}
