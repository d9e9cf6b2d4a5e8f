package recommender

import "sync"

// ColumnCandidates defines possible header names for auto-detecting catalog and cart columns.
// Matching is case-insensitive and covers both English and Portuguese headers.
type ColumnCandidates struct {
	ProductID []string `json:"productId"`
	Name      []string `json:"name"`
	Category  []string `json:"category"`
	Price     []string `json:"price"`
	Quantity  []string `json:"quantity"`
}

var (
	columnCandidatesMu  sync.RWMutex
	activeColumnOptions = defaultColumnCandidates()
)

func defaultColumnCandidates() ColumnCandidates {
	return ColumnCandidates{
		ProductID: []string{"product_id", "productid", "id", "id_produto", "produto_id", "codigo", "código", "sku"},
		Name:      []string{"name", "produto", "nome", "product", "product_name"},
		Category:  []string{"category", "categoria"},
		Price:     []string{"price", "preco", "preço", "valor"},
		Quantity:  []string{"quantity", "quantidade", "qty", "qtd"},
	}
}

// DefaultColumnCandidates returns the built-in column detection candidates.
func DefaultColumnCandidates() ColumnCandidates {
	return defaultColumnCandidates().clone()
}

// SetColumnCandidates updates the column detection candidates used during auto-detection.
// Fields left nil fall back to the built-in defaults, allowing callers to override only
// the parts they need.
func SetColumnCandidates(candidates ColumnCandidates) {
	columnCandidatesMu.Lock()
	defer columnCandidatesMu.Unlock()
	activeColumnOptions = candidates.withDefaults()
}

func getColumnCandidates() ColumnCandidates {
	columnCandidatesMu.RLock()
	defer columnCandidatesMu.RUnlock()
	return activeColumnOptions.clone()
}

func (c ColumnCandidates) withDefaults() ColumnCandidates {
	defaults := defaultColumnCandidates()
	return ColumnCandidates{
		ProductID: pickStrings(c.ProductID, defaults.ProductID),
		Name:      pickStrings(c.Name, defaults.Name),
		Category:  pickStrings(c.Category, defaults.Category),
		Price:     pickStrings(c.Price, defaults.Price),
		Quantity:  pickStrings(c.Quantity, defaults.Quantity),
	}
}

func (c ColumnCandidates) clone() ColumnCandidates {
	return ColumnCandidates{
		ProductID: cloneStrings(c.ProductID),
		Name:      cloneStrings(c.Name),
		Category:  cloneStrings(c.Category),
		Price:     cloneStrings(c.Price),
		Quantity:  cloneStrings(c.Quantity),
	}
}

func pickStrings(custom, fallback []string) []string {
	if custom == nil {
		return cloneStrings(fallback)
	}
	return cloneStrings(custom)
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}
