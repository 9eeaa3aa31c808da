package rules

import (
	"sort"

	"github.com/jason-s-yu/guandan/internal/cards"
)

// Classify determines the combination formed by cs under the given level.
// The result does not depend on the order of cs.
//
// Special combinations are tried before generic ones. Wildcards (the hearts
// copy of the level rank) count as their natural rank first; only when that
// yields nothing are they resolved into triples, triple-with-pair, triple
// pairs or steel plates.
func Classify(cs []cards.Card, level int) Pattern {
	n := len(cs)
	if n == 0 {
		return invalidPattern
	}

	if n == 4 && allJokers(cs) {
		return newPattern(KindFourKings, n, 0)
	}

	counts := rankCounts(cs)

	if n >= 4 && n <= 8 && len(counts) == 1 {
		for rank := range counts {
			if !isJokerRank(rank) {
				return newPattern(bombKinds[n], n, rankBase(rank, level))
			}
		}
	}

	if n == 5 && sameSuit(cs) && len(counts) == 5 {
		if top, ok := consecutive(keys(counts), level); ok {
			return newPattern(KindStraightFlush, n, top)
		}
	}

	if n == 1 {
		return newPattern(KindSingle, 1, cs[0].Value)
	}

	if p, ok := matchGroups(counts, n, level); ok {
		return p
	}

	if n == 5 && len(counts) == 5 {
		if top, ok := consecutive(keys(counts), level); ok {
			return newPattern(KindStraight, n, top)
		}
	}

	if resolved, ok := resolveWildcards(cs, level); ok {
		if p, ok := matchGroups(resolved, n, level); ok && wildcardKinds[p.Kind] {
			return p
		}
	}

	return invalidPattern
}

// wildcardKinds are the combinations a wildcard may complete.
var wildcardKinds = map[Kind]bool{
	KindTriple:         true,
	KindTripleWithPair: true,
	KindTriplePair:     true,
	KindSteelPlate:     true,
}

// matchGroups recognises the rank-grouped shapes from per-rank counts.
func matchGroups(counts map[int]int, n, level int) (Pattern, bool) {
	switch n {
	case 2:
		if len(counts) == 1 {
			for rank := range counts {
				return newPattern(KindPair, n, rankBase(rank, level)), true
			}
		}
	case 3:
		if len(counts) == 1 {
			for rank := range counts {
				if !isJokerRank(rank) {
					return newPattern(KindTriple, n, rankBase(rank, level)), true
				}
			}
		}
	case 5:
		if len(counts) != 2 {
			break
		}
		triple, pair := 0, 0
		for rank, c := range counts {
			switch c {
			case 3:
				triple = rank
			case 2:
				pair = rank
			}
		}
		if triple != 0 && pair != 0 && !isJokerRank(triple) {
			return newPattern(KindTripleWithPair, n, rankBase(triple, level)), true
		}
	case 6:
		if len(counts) == 3 && allCounts(counts, 2) {
			if top, ok := consecutive(keys(counts), level); ok {
				return newPattern(KindTriplePair, n, top), true
			}
		}
		if len(counts) == 2 && allCounts(counts, 3) {
			if top, ok := consecutive(keys(counts), level); ok {
				return newPattern(KindSteelPlate, n, top), true
			}
		}
	}
	return Pattern{}, false
}

// resolveWildcards assigns each wildcard to the existing non-joker rank group
// with the fewest cards (ties go to the stronger rank), never exceeding three
// cards per rank. It fails if any wildcard cannot be placed.
func resolveWildcards(cs []cards.Card, level int) (map[int]int, bool) {
	counts := make(map[int]int)
	wild := 0
	for _, c := range cs {
		if c.IsWildcard(level) {
			wild++
			continue
		}
		counts[c.Rank]++
	}
	if wild == 0 || len(counts) == 0 {
		return nil, false
	}

	for ; wild > 0; wild-- {
		best := 0
		for rank, c := range counts {
			if isJokerRank(rank) || c >= 3 {
				continue
			}
			if best == 0 || c < counts[best] || (c == counts[best] && rankBase(rank, level) > rankBase(best, level)) {
				best = rank
			}
		}
		if best == 0 {
			return nil, false
		}
		counts[best]++
	}
	return counts, true
}

// sequence returns the ranks usable in straights for level, weakest first:
// 2..K, A with the level rank removed.
func sequence(level int) []int {
	lr := cards.LevelRank(level)
	seq := make([]int, 0, 12)
	for _, r := range []int{2, 3, 4, 5, 6, 7, 8, 9, 10, cards.RankJack, cards.RankQueen, cards.RankKing, cards.RankAce} {
		if r != lr {
			seq = append(seq, r)
		}
	}
	return seq
}

// consecutive checks that ranks form an unbroken run of the straight sequence
// and returns the 1-based position of the highest rank.
func consecutive(ranks []int, level int) (int, bool) {
	seq := sequence(level)
	pos := make(map[int]int, len(seq))
	for i, r := range seq {
		pos[r] = i + 1
	}
	idx := make([]int, 0, len(ranks))
	for _, r := range ranks {
		p, ok := pos[r]
		if !ok {
			return 0, false
		}
		idx = append(idx, p)
	}
	sort.Ints(idx)
	for i := 1; i < len(idx); i++ {
		if idx[i] != idx[i-1]+1 {
			return 0, false
		}
	}
	return idx[len(idx)-1], true
}

// rankBase is the comparison value of a rank group: the level rank is 96
// whichever suits it is made of.
func rankBase(rank, level int) int {
	return cards.CardValue(rank, level, cards.SuitSpades)
}

func isJokerRank(rank int) bool {
	return rank == cards.RankSmallJoker || rank == cards.RankBigJoker
}

func rankCounts(cs []cards.Card) map[int]int {
	counts := make(map[int]int)
	for _, c := range cs {
		counts[c.Rank]++
	}
	return counts
}

func allJokers(cs []cards.Card) bool {
	for _, c := range cs {
		if !c.IsJoker() {
			return false
		}
	}
	return true
}

func sameSuit(cs []cards.Card) bool {
	for _, c := range cs {
		if c.IsJoker() || c.Suit != cs[0].Suit {
			return false
		}
	}
	return true
}

func allCounts(counts map[int]int, want int) bool {
	for _, c := range counts {
		if c != want {
			return false
		}
	}
	return true
}

func keys(counts map[int]int) []int {
	out := make([]int, 0, len(counts))
	for r := range counts {
		out = append(out, r)
	}
	return out
}
