package recommender

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// abVocab is the two-product fixture: A -> 1, B -> 2.
func abVocab(maxLen int) *Vocabulary {
	return NewVocabulary(map[string]int{"A": 1, "B": 2}, maxLen)
}

func abCatalog() *Catalog {
	return NewCatalog([]Product{
		{Name: "A", Category: "x", Price: 10},
		{Name: "B", Category: "y", Price: 2.5},
	})
}

func nameFromVocab(v *Vocabulary) NameFunc {
	return func(tok int) (string, bool) { return v.ProductFor(tok) }
}

// almostEqual compares scores that went through float32 model output.
func almostEqual(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-6
}
