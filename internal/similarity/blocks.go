package similarity

import (
	"sort"
	"strings"
)

// MatchBlock is an exact contiguous line match: zero-based start lines in
// each document and the run length. Blocks produced by the matcher never
// overlap.
type MatchBlock struct {
	StartA int `json:"startA" bson:"startA"`
	StartB int `json:"startB" bson:"startB"`
	Length int `json:"length" bson:"length"`
}

// splitLines splits normalized text into its non-blank lines.
func splitLines(normalized string) []string {
	if normalized == "" {
		return nil
	}
	raw := strings.Split(normalized, "\n")
	lines := raw[:0]
	for _, line := range raw {
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

type lineSpan struct {
	aLo, aHi, bLo, bHi int
}

// matchBlocks finds all maximal contiguous line matches by repeatedly
// taking the longest common run and splitting on it. The recursion is
// driven by an explicit work stack so pathological inputs cannot exhaust
// the call stack. Blocks are returned ordered by start position in A.
func matchBlocks(a, b []string) []MatchBlock {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}

	// Line text -> ascending positions in b, built once for all spans.
	b2j := make(map[string][]int, len(b))
	for j, line := range b {
		b2j[line] = append(b2j[line], j)
	}

	var blocks []MatchBlock
	stack := []lineSpan{{0, len(a), 0, len(b)}}
	for len(stack) > 0 {
		span := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		i, j, size := longestMatch(a, b2j, span)
		if size == 0 {
			continue
		}
		blocks = append(blocks, MatchBlock{StartA: i, StartB: j, Length: size})
		stack = append(stack,
			lineSpan{span.aLo, i, span.bLo, j},
			lineSpan{i + size, span.aHi, j + size, span.bHi},
		)
	}

	sort.Slice(blocks, func(i, j int) bool { return blocks[i].StartA < blocks[j].StartA })
	return blocks
}

// longestMatch finds the longest run of equal lines within the span. Ties
// break toward the earliest start in A, then the earliest start in B, which
// the strict > comparison guarantees given the ascending scan order.
func longestMatch(a []string, b2j map[string][]int, span lineSpan) (bestI, bestJ, bestSize int) {
	bestI, bestJ = span.aLo, span.bLo
	runs := make(map[int]int)
	for i := span.aLo; i < span.aHi; i++ {
		next := make(map[int]int)
		for _, j := range b2j[a[i]] {
			if j < span.bLo {
				continue
			}
			if j >= span.bHi {
				break
			}
			length := runs[j-1] + 1
			next[j] = length
			if length > bestSize {
				bestI, bestJ, bestSize = i-length+1, j-length+1, length
			}
		}
		runs = next
	}
	return bestI, bestJ, bestSize
}

// lineSignal scores the line-level similarity of two normalized documents
// and returns the full block evidence. The score is the standard
// Ratcliff/Obershelp ratio: twice the matched line count over the total.
func lineSignal(linesA, linesB []string) (float64, []MatchBlock) {
	if len(linesA) == 0 && len(linesB) == 0 {
		return 1.0, nil
	}
	if len(linesA) == 0 || len(linesB) == 0 {
		return 0.0, nil
	}
	blocks := matchBlocks(linesA, linesB)
	matched := 0
	for _, block := range blocks {
		matched += block.Length
	}
	return 2.0 * float64(matched) / float64(len(linesA)+len(linesB)), blocks
}
