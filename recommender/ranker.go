package recommender

import (
	"math"
	"sort"
)

// NameFunc resolves a token to the display name of its product.
type NameFunc func(token int) (string, bool)

// CartTokens returns the tokens of every cart product the vocabulary knows.
func CartTokens(cart Cart, vocab TokenLookup) []int {
	out := make([]int, 0, len(cart))
	seen := make(map[int]struct{}, len(cart))
	for _, line := range cart {
		if line.Quantity <= 0 {
			continue
		}
		tok, ok := vocab.TokenFor(line.Product)
		if !ok {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

// MaskScores zeroes the padding slot and every excluded token, then re-normalizes the
// remaining mass to sum to one. Non-finite raw scores count as zero. When nothing
// positive is left the masked scores are returned unnormalized.
func MaskScores(raw []float32, exclude []int) []float64 {
	scores := make([]float64, len(raw))
	for i, v := range raw {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			f = 0
		}
		scores[i] = f
	}
	if len(scores) > PadToken {
		scores[PadToken] = 0
	}
	for _, tok := range exclude {
		if tok >= 0 && tok < len(scores) {
			scores[tok] = 0
		}
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	if sum > 0 {
		for i := range scores {
			scores[i] /= sum
		}
	}
	return scores
}

// RankScores orders tokens by descending score, breaking ties by ascending token id, and
// returns the first topK with a positive score and a resolvable, not yet listed name.
// The result is never empty: when nothing qualifies it holds the single placeholder entry.
func RankScores(scores []float64, topK int, name NameFunc) []Recommendation {
	if topK < 1 {
		topK = 1
	}
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return scores[order[i]] > scores[order[j]]
	})

	out := make([]Recommendation, 0, topK)
	seen := make(map[string]struct{}, topK)
	for _, tok := range order {
		if len(out) >= topK {
			break
		}
		score := scores[tok]
		if score <= 0 {
			// sorted: nothing positive remains
			break
		}
		label, ok := name(tok)
		if !ok {
			continue
		}
		// several tokens may name the same product; the best-scored one wins
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, Recommendation{Name: label, Score: score, TokenID: tok})
	}
	if len(out) == 0 {
		return []Recommendation{noRecommendation()}
	}
	return out
}

// Rank masks the cart and padding tokens out of the raw model scores, re-normalizes
// and returns the top-K recommendations.
func Rank(raw []float32, cart Cart, vocab TokenLookup, topK int, name NameFunc) []Recommendation {
	scores := MaskScores(raw, CartTokens(cart, vocab))
	return RankScores(scores, topK, name)
}
