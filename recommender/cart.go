package recommender

import (
	"math"
	"strconv"
	"strings"
)

// NormalizedCart is the validated view of an editor table.
type NormalizedCart struct {
	Rows      []CartLine
	Cart      Cart
	ItemCount int
	Subtotal  float64
}

// NormalizeRows coerces every editor row and extracts the lines with a positive quantity.
// It never fails: unusable quantities and prices degrade to zero.
func NormalizeRows(rows []EditorRow) NormalizedCart {
	out := NormalizedCart{
		Rows: make([]CartLine, 0, len(rows)),
	}
	for _, row := range rows {
		line := CartLine{
			Product: Product{
				ID:       row.ProductID,
				Name:     strings.TrimSpace(row.Name),
				Category: strings.TrimSpace(row.Category),
				Price:    coercePrice(row.Price),
			},
			Quantity: coerceQuantity(row.Quantity),
		}
		out.Rows = append(out.Rows, line)
		if line.Quantity <= 0 {
			continue
		}
		out.Cart = append(out.Cart, line)
		out.ItemCount += line.Quantity
		out.Subtotal += line.Product.Price * float64(line.Quantity)
	}
	return out
}

// EditorRowsFromCatalog builds the initial editor table with every quantity at zero.
func EditorRowsFromCatalog(c *Catalog) []EditorRow {
	products := c.Products()
	rows := make([]EditorRow, len(products))
	for i, p := range products {
		rows[i] = EditorRow{
			ProductID: p.ID,
			Name:      p.Name,
			Category:  p.Category,
			Price:     p.Price,
			Quantity:  0,
		}
	}
	return rows
}

// ClearRows returns a copy of rows with every quantity reset to zero.
func ClearRows(rows []EditorRow) []EditorRow {
	out := make([]EditorRow, len(rows))
	copy(out, rows)
	for i := range out {
		out[i].Quantity = 0
	}
	return out
}

// coerceQuantity converts a loose cell to a non-negative integer. Fractions are
// truncated, values above MaxQuantity are clamped and anything unparseable becomes 0.
func coerceQuantity(v any) int {
	f, ok := toFloat(v)
	if !ok || f <= 0 {
		return 0
	}
	if f >= MaxQuantity {
		return MaxQuantity
	}
	return int(f)
}

// coercePrice converts a loose cell to a non-negative price.
func coercePrice(v any) float64 {
	f, ok := toFloat(v)
	if !ok || f < 0 {
		return 0
	}
	return f
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case interface{ Float64() (float64, error) }:
		parsed, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// MergeQuantities copies the quantities of picked onto the matching rows of base,
// matching by product_id first and normalized name second. Picked rows with no match
// are appended. base is not modified.
func MergeQuantities(base, picked []EditorRow) []EditorRow {
	out := make([]EditorRow, len(base))
	copy(out, base)
	byID := make(map[int64]int, len(out))
	byName := make(map[string]int, len(out))
	for i, row := range out {
		if row.ProductID > 0 {
			if _, ok := byID[row.ProductID]; !ok {
				byID[row.ProductID] = i
			}
		}
		name := NormalizeText(row.Name)
		if _, ok := byName[name]; !ok && name != "" {
			byName[name] = i
		}
	}
	for _, p := range picked {
		idx, ok := -1, false
		if p.ProductID > 0 {
			idx, ok = byID[p.ProductID]
		}
		if !ok {
			idx, ok = byName[NormalizeText(p.Name)]
		}
		if !ok {
			out = append(out, p)
			continue
		}
		out[idx].Quantity = p.Quantity
		if p.Price != nil {
			out[idx].Price = p.Price
		}
	}
	return out
}
