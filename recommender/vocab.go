package recommender

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

const (
	productToTokenFile = "product_to_int.json"
	tokenToProductFile = "int_to_product.json"
	metaFile           = "meta.json"

	defaultMaxLen = 10
)

// ErrMappingsNotFound reports a missing vocabulary mapping file.
var ErrMappingsNotFound = errors.New("vocabulary mapping not found")

// TokenLookup resolves products to model tokens.
type TokenLookup interface {
	TokenFor(p Product) (int, bool)
}

// Vocabulary is the bidirectional product key <-> token mapping the model was trained
// with. Keys are canonical after construction: tokens are ints and product keys are
// normalized strings. It is read-only once built.
type Vocabulary struct {
	toToken   map[string]int
	toProduct map[int]string
	size      int
	maxLen    int
	dropped   []string
}

// NewVocabulary builds a vocabulary from a product key -> token table. The reverse table
// is derived. Entries pointing at the padding token or a negative token are dropped.
func NewVocabulary(productToToken map[string]int, maxLen int) *Vocabulary {
	reverse := make(map[int]string, len(productToToken))
	for key, tok := range productToToken {
		if prev, ok := reverse[tok]; ok && prev < key {
			continue
		}
		reverse[tok] = key
	}
	return newVocabulary(productToToken, reverse, maxLen)
}

func newVocabulary(forward map[string]int, reverse map[int]string, maxLen int) *Vocabulary {
	if maxLen <= 0 {
		maxLen = defaultMaxLen
	}
	v := &Vocabulary{
		toToken:   make(map[string]int, len(forward)),
		toProduct: make(map[int]string, len(reverse)),
		maxLen:    maxLen,
	}
	maxTok := 0
	for key, tok := range forward {
		canon := canonicalKey(key)
		if tok <= PadToken || canon == "" {
			v.dropped = append(v.dropped, key)
			continue
		}
		v.toToken[canon] = tok
		if tok > maxTok {
			maxTok = tok
		}
	}
	for tok, key := range reverse {
		canon := canonicalKey(key)
		if tok <= PadToken || canon == "" {
			continue
		}
		v.toProduct[tok] = canon
		if tok > maxTok {
			maxTok = tok
		}
	}
	v.size = maxTok + 1
	return v
}

// TokenFor resolves a product to its token, trying the product_id key first and the
// name key second.
func (v *Vocabulary) TokenFor(p Product) (int, bool) {
	if p.ID > 0 {
		if tok, ok := v.toToken[strconv.FormatInt(p.ID, 10)]; ok {
			return tok, true
		}
	}
	tok, ok := v.toToken[NormalizeText(p.Name)]
	return tok, ok
}

// ProductFor returns the product key behind a token. The padding token never resolves.
func (v *Vocabulary) ProductFor(token int) (string, bool) {
	if token == PadToken {
		return "", false
	}
	key, ok := v.toProduct[token]
	return key, ok
}

// Size is the vocabulary size including the padding slot.
func (v *Vocabulary) Size() int {
	return v.size
}

// MaxLen is the model's fixed input sequence length.
func (v *Vocabulary) MaxLen() int {
	return v.maxLen
}

// Len returns the number of mapped products.
func (v *Vocabulary) Len() int {
	return len(v.toToken)
}

// Dropped lists the keys discarded at load because they mapped to the padding token
// or had no usable token.
func (v *Vocabulary) Dropped() []string {
	return cloneStrings(v.dropped)
}

// LoadVocabulary reads product_to_int.json, int_to_product.json and meta.json from dir.
// fallbackMaxLen is used when meta.json has no usable max_len.
func LoadVocabulary(dir string, fallbackMaxLen int) (*Vocabulary, error) {
	forwardRaw := map[string]any{}
	if err := readMappingFile(filepath.Join(dir, productToTokenFile), &forwardRaw); err != nil {
		return nil, err
	}
	reverseRaw := map[string]any{}
	if err := readMappingFile(filepath.Join(dir, tokenToProductFile), &reverseRaw); err != nil {
		return nil, err
	}
	maxLen, err := readMaxLen(filepath.Join(dir, metaFile), fallbackMaxLen)
	if err != nil {
		return nil, err
	}

	forward := make(map[string]int, len(forwardRaw))
	var dropped []string
	for key, raw := range forwardRaw {
		tok, ok := parseToken(raw)
		if !ok {
			dropped = append(dropped, key)
			continue
		}
		forward[key] = tok
	}
	reverse := make(map[int]string, len(reverseRaw))
	for rawTok, rawKey := range reverseRaw {
		tok, ok := parseToken(rawTok)
		if !ok {
			continue
		}
		key, ok := productKeyValue(rawKey)
		if !ok {
			continue
		}
		reverse[tok] = key
	}
	v := newVocabulary(forward, reverse, maxLen)
	v.dropped = append(v.dropped, dropped...)
	return v, nil
}

func readMappingFile(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrMappingsNotFound, path)
		}
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readMaxLen(path string, fallback int) (int, error) {
	if fallback <= 0 {
		fallback = defaultMaxLen
	}
	meta := map[string]any{}
	if err := readMappingFile(path, &meta); err != nil {
		return 0, err
	}
	raw, ok := meta["max_len"]
	if !ok {
		return fallback, nil
	}
	n, ok := parseToken(raw)
	if !ok || n <= 0 {
		return fallback, nil
	}
	return n, nil
}

// parseToken accepts JSON numbers and numeric strings ("7", "7.0").
func parseToken(raw any) (int, bool) {
	var f float64
	switch x := raw.(type) {
	case float64:
		f = x
	case interface{ Float64() (float64, error) }:
		parsed, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.TrimSpace(x)
		if n, err := strconv.Atoi(s); err == nil {
			return n, true
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

func productKeyValue(raw any) (string, bool) {
	switch x := raw.(type) {
	case string:
		return x, x != ""
	case float64:
		if x != math.Trunc(x) {
			return "", false
		}
		return strconv.FormatInt(int64(x), 10), true
	default:
		return "", false
	}
}

// canonicalKey turns numeric product ids into their plain decimal form and normalizes
// names so lookups never depend on how the mapping file spelled the key.
func canonicalKey(key string) string {
	trimmed := strings.TrimSpace(key)
	if id, err := strconv.ParseInt(trimmed, 10, 64); err == nil && id > 0 {
		return strconv.FormatInt(id, 10)
	}
	return NormalizeText(trimmed)
}
