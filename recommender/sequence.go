package recommender

// Sequence is the fixed-length, left-padded token input of the model.
type Sequence []int

// EncodeResult is a sequence plus bookkeeping about lines the vocabulary did not know.
type EncodeResult struct {
	Sequence Sequence
	Skipped  []CartLine
}

// EncodeSequence expands the cart into tokens, one per unit of quantity, keeps the last
// maxLen tokens and left-pads with PadToken. Out-of-vocabulary lines are skipped.
//
// Cart order stands in for add order: the cart has no timestamps, so when the expansion
// overflows, lines later in catalog order win.
func EncodeSequence(cart Cart, vocab TokenLookup, maxLen int) EncodeResult {
	if maxLen <= 0 {
		maxLen = defaultMaxLen
	}
	tokens := make([]int, 0, len(cart))
	counts := make([]int, 0, len(cart))
	var skipped []CartLine
	for _, line := range cart {
		if line.Quantity <= 0 {
			continue
		}
		tok, ok := vocab.TokenFor(line.Product)
		if !ok {
			skipped = append(skipped, line)
			continue
		}
		tokens = append(tokens, tok)
		counts = append(counts, line.Quantity)
	}

	seq := make(Sequence, maxLen)
	pos := maxLen - 1
	for i := len(tokens) - 1; i >= 0 && pos >= 0; i-- {
		for n := counts[i]; n > 0 && pos >= 0; n-- {
			seq[pos] = tokens[i]
			pos--
		}
	}
	return EncodeResult{Sequence: seq, Skipped: skipped}
}

// Float32 returns the sequence in the dtype the exported model declares by default.
func (s Sequence) Float32() []float32 {
	out := make([]float32, len(s))
	for i, t := range s {
		out[i] = float32(t)
	}
	return out
}

// Int32 returns the sequence as int32 values.
func (s Sequence) Int32() []int32 {
	out := make([]int32, len(s))
	for i, t := range s {
		out[i] = int32(t)
	}
	return out
}

// Int64 returns the sequence as int64 values.
func (s Sequence) Int64() []int64 {
	out := make([]int64, len(s))
	for i, t := range s {
		out[i] = int64(t)
	}
	return out
}
