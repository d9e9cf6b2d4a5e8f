package recommender

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

var (
	// ErrMissingColumns reports a catalog without the name/category/price columns.
	ErrMissingColumns = errors.New("catalog is missing required columns")
	// ErrEmptyCatalog reports a catalog file without any usable product row.
	ErrEmptyCatalog = errors.New("catalog has no products")
)

// Catalog is the immutable product list, kept in file order.
type Catalog struct {
	products []Product
	byKey    map[string]int
	legacy   bool
}

// NewCatalog indexes products by ID and normalized name. The first occurrence of a key wins.
func NewCatalog(products []Product) *Catalog {
	c := &Catalog{
		products: make([]Product, len(products)),
		byKey:    make(map[string]int, len(products)*2),
		legacy:   true,
	}
	copy(c.products, products)
	for i, p := range c.products {
		if p.ID > 0 {
			c.legacy = false
			if _, ok := c.byKey[p.Key()]; !ok {
				c.byKey[p.Key()] = i
			}
		}
		name := NormalizeText(p.Name)
		if _, ok := c.byKey[name]; !ok && name != "" {
			c.byKey[name] = i
		}
	}
	return c
}

// Products returns a copy of the catalog rows.
func (c *Catalog) Products() []Product {
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}

// Len returns the number of products.
func (c *Catalog) Len() int {
	return len(c.products)
}

// Legacy reports whether products are identified by name only.
func (c *Catalog) Legacy() bool {
	return c.legacy
}

// Lookup finds a product by vocabulary key (product_id or name).
func (c *Catalog) Lookup(key string) (Product, bool) {
	idx, ok := c.position(key)
	if !ok {
		return Product{}, false
	}
	return c.products[idx], true
}

func (c *Catalog) position(key string) (int, bool) {
	if idx, ok := c.byKey[key]; ok {
		return idx, true
	}
	idx, ok := c.byKey[NormalizeText(key)]
	return idx, ok
}

// Order sorts cart lines into catalog iteration order. Lines whose product is unknown
// to the catalog keep their relative order after the known ones.
func (c *Catalog) Order(cart Cart) Cart {
	out := make(Cart, len(cart))
	copy(out, cart)
	rank := func(p Product) int {
		if idx, ok := c.indexOf(p); ok {
			return idx
		}
		return len(c.products)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return rank(out[i].Product) < rank(out[j].Product)
	})
	return out
}

// Resolve swaps every cart line's product for its catalog entry, matched by product_id
// first and normalized name second, and returns the lines in catalog order. Rows sent
// by name alone thereby pick up the id the vocabulary may be keyed by.
func (c *Catalog) Resolve(cart Cart) Cart {
	out := make(Cart, len(cart))
	for i, line := range cart {
		if idx, ok := c.indexOf(line.Product); ok {
			line.Product = c.products[idx]
		}
		out[i] = line
	}
	return c.Order(out)
}

func (c *Catalog) indexOf(p Product) (int, bool) {
	if p.ID > 0 {
		if idx, ok := c.byKey[p.Key()]; ok {
			return idx, true
		}
	}
	name := NormalizeText(p.Name)
	if name == "" {
		return 0, false
	}
	idx, ok := c.byKey[name]
	return idx, ok
}

// LoadCatalog reads the first existing file from paths. When none exists the built-in
// sample catalog is returned with an empty source. A file that exists but cannot be
// parsed is an error.
func LoadCatalog(paths []string) (cat *Catalog, source string, err error) {
	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		if _, statErr := os.Stat(path); statErr != nil {
			if errors.Is(statErr, os.ErrNotExist) {
				continue
			}
			return nil, "", fmt.Errorf("stat catalog %s: %w", path, statErr)
		}
		cat, err := ParseCatalogFile(path)
		if err != nil {
			return nil, "", err
		}
		return cat, path, nil
	}
	return NewCatalog(SampleProducts()), "", nil
}

// ParseCatalogFile reads a CSV or TSV catalog.
func ParseCatalogFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	comma := ','
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		comma = '\t'
	}
	cat, err := ParseCatalog(f, comma)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return cat, nil
}

// ParseCatalog reads catalog rows with a header line. The name, category and price
// columns are required; product_id is optional.
func ParseCatalog(r io.Reader, comma rune) (*Catalog, error) {
	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrEmptyCatalog
	}
	cols, err := resolveCatalogColumns(rows[0])
	if err != nil {
		return nil, err
	}
	products := make([]Product, 0, len(rows)-1)
	for _, row := range rows[1:] {
		name := cellAt(row, cols.name)
		if name == "" {
			continue
		}
		p := Product{
			Name:     name,
			Category: cellAt(row, cols.category),
			Price:    coercePrice(cellAt(row, cols.price)),
		}
		if cols.productID >= 0 {
			if id, err := strconv.ParseInt(cellAt(row, cols.productID), 10, 64); err == nil && id > 0 {
				p.ID = id
			}
		}
		products = append(products, p)
	}
	if len(products) == 0 {
		return nil, ErrEmptyCatalog
	}
	return NewCatalog(products), nil
}

type catalogColumns struct {
	productID int
	name      int
	category  int
	price     int
}

func resolveCatalogColumns(header []string) (catalogColumns, error) {
	candidates := getColumnCandidates()
	cols := catalogColumns{
		productID: findColumn(header, candidates.ProductID),
		name:      findColumn(header, candidates.Name),
		category:  findColumn(header, candidates.Category),
		price:     findColumn(header, candidates.Price),
	}
	var missing []string
	if cols.name < 0 {
		missing = append(missing, "name")
	}
	if cols.category < 0 {
		missing = append(missing, "category")
	}
	if cols.price < 0 {
		missing = append(missing, "price")
	}
	if len(missing) > 0 {
		return cols, fmt.Errorf("%w: %s (header: %s)", ErrMissingColumns, strings.Join(missing, ", "), strings.Join(header, ","))
	}
	return cols, nil
}

// ParseCartFile reads a cart CSV/TSV with a product (id or name) column and a quantity
// column. Category and price columns are optional; values missing from the file are
// filled from the catalog.
func ParseCartFile(path string, catalog *Catalog) ([]EditorRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	reader := csv.NewReader(f)
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		reader.Comma = '\t'
	}
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if len(rows) == 0 {
		return nil, errors.New("empty cart file")
	}
	candidates := getColumnCandidates()
	header := rows[0]
	idCol := findColumn(header, candidates.ProductID)
	nameCol := findColumn(header, candidates.Name)
	qtyCol := findColumn(header, candidates.Quantity)
	if (idCol < 0 && nameCol < 0) || qtyCol < 0 {
		return nil, fmt.Errorf("%w: cart needs a product and a quantity column", ErrMissingColumns)
	}
	priceCol := findColumn(header, candidates.Price)
	out := make([]EditorRow, 0, len(rows)-1)
	for _, row := range rows[1:] {
		key := cellAt(row, nameCol)
		if idCol >= 0 && cellAt(row, idCol) != "" {
			key = cellAt(row, idCol)
		}
		if key == "" {
			continue
		}
		er := EditorRow{Name: key, Quantity: cellAt(row, qtyCol)}
		if p, ok := catalog.Lookup(key); ok {
			er = EditorRow{ProductID: p.ID, Name: p.Name, Category: p.Category, Price: p.Price, Quantity: er.Quantity}
		}
		if priceCol >= 0 && cellAt(row, priceCol) != "" {
			er.Price = cellAt(row, priceCol)
		}
		out = append(out, er)
	}
	return out, nil
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return cleanCell(row[idx])
}

func findColumn(header []string, candidates []string) int {
	for i, col := range header {
		key := headerKey(col)
		for _, cand := range candidates {
			if key == headerKey(cand) {
				return i
			}
		}
	}
	return -1
}
