package recommender

import (
	"strconv"

	"github.com/goccy/go-json"
)

const (
	// PadToken is the reserved padding/null token. It never resolves to a product.
	PadToken = 0

	// NoRecommendationName marks the placeholder row returned when nothing qualifies.
	NoRecommendationName = "—"

	// MinTopK and MaxTopK bound the number of suggestions a caller may ask for.
	MinTopK = 1
	MaxTopK = 10

	// MaxQuantity caps a single cart line. Larger quantities are clamped, not dropped.
	MaxQuantity = 1_000_000
)

// Product is a catalog entry. ID is zero when the catalog carries no product_id column
// and the name alone identifies the product.
type Product struct {
	ID       int64   `json:"product_id,omitempty"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
}

// Key returns the identifier used by the vocabulary mapping.
func (p Product) Key() string {
	if p.ID > 0 {
		return strconv.FormatInt(p.ID, 10)
	}
	return NormalizeText(p.Name)
}

// EditorRow is one row of the editable cart table as it arrives from a UI or API client.
// Price and Quantity are loose values (string, number, nil) coerced by NormalizeRows.
type EditorRow struct {
	ProductID int64  `json:"product_id,omitempty"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	Price     any    `json:"price"`
	Quantity  any    `json:"quantity"`
}

// CartLine is a product with the quantity picked by the user.
type CartLine struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// Cart holds the lines with a positive quantity, in catalog order.
type Cart []CartLine

// Recommendation is a ranked suggestion.
type Recommendation struct {
	Name        string  `json:"name"`
	Score       float64 `json:"score"`
	TokenID     int     `json:"token_id,omitempty"`
	Placeholder bool    `json:"placeholder,omitempty"`
}

func noRecommendation() Recommendation {
	return Recommendation{Name: NoRecommendationName, Score: 0, Placeholder: true}
}

// ModelConfig wraps the configuration for the ONNX runtime scorer.
type ModelConfig struct {
	OrtLib     string   `json:"ortLib"`
	ModelPaths []string `json:"modelPaths"`
	InputName  string   `json:"inputName,omitempty"`
	OutputName string   `json:"outputName,omitempty"`
}

// LogConfig selects log verbosity and output format.
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// Config aggregates runtime settings persisted to config.json.
type Config struct {
	TopK         int              `json:"topK"`
	MaxLen       int              `json:"maxLen"`
	MappingsDir  string           `json:"mappingsDir"`
	CatalogPaths []string         `json:"catalogPaths"`
	Columns      ColumnCandidates `json:"columns"`
	Model        ModelConfig      `json:"model"`
	Log          LogConfig        `json:"log"`
}

// Clone creates a deep copy of the configuration so callers can mutate safely.
func (c Config) Clone() Config {
	buf, _ := json.Marshal(c)
	var out Config
	_ = json.Unmarshal(buf, &out)
	return out
}

// ApplyDefaults populates zero values with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.TopK <= 0 {
		c.TopK = 3
	}
	c.TopK = ClampTopK(c.TopK)
	if c.MaxLen <= 0 {
		c.MaxLen = 10
	}
	if c.MappingsDir == "" {
		c.MappingsDir = "artifacts/mappings"
	}
	if len(c.CatalogPaths) == 0 {
		c.CatalogPaths = []string{"data/catalog/products.csv", "products.csv"}
	}
	if len(c.Model.ModelPaths) == 0 {
		c.Model.ModelPaths = []string{"artifacts/model/melhor_modelo.onnx", "artifacts/model/model.onnx"}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}

// ClampTopK keeps k within [MinTopK, MaxTopK].
func ClampTopK(k int) int {
	if k < MinTopK {
		return MinTopK
	}
	if k > MaxTopK {
		return MaxTopK
	}
	return k
}
