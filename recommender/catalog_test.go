package recommender

import (
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestParseCatalogAliases(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		comma   rune
		legacy  bool
		first   Product
		wantLen int
	}{
		{
			name:    "english",
			input:   "product_id,name,category,price\n101,Coca-Cola,Bebidas,7\n102,Suco,Bebidas,6.5\n",
			comma:   ',',
			first:   Product{ID: 101, Name: "Coca-Cola", Category: "Bebidas", Price: 7},
			wantLen: 2,
		},
		{
			name:    "portuguese with bom",
			input:   "\ufeffCódigo,Produto,Categoria,Preço\n7,Sorvete,Sobremesas,9\n",
			comma:   ',',
			first:   Product{ID: 7, Name: "Sorvete", Category: "Sobremesas", Price: 9},
			wantLen: 1,
		},
		{
			name:    "legacy tsv without ids",
			input:   "nome\tcategoria\tvalor\nÁgua\tBebidas\t4\n\t\t\nBatata palha\tAcompanhamentos\tabc\n",
			comma:   '\t',
			legacy:  true,
			first:   Product{Name: "Água", Category: "Bebidas", Price: 4},
			wantLen: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat, err := ParseCatalog(strings.NewReader(tt.input), tt.comma)
			if err != nil {
				t.Fatalf("ParseCatalog error: %v", err)
			}
			if cat.Len() != tt.wantLen {
				t.Fatalf("Len = %d, want %d", cat.Len(), tt.wantLen)
			}
			if got := cat.Products()[0]; got != tt.first {
				t.Errorf("first = %+v, want %+v", got, tt.first)
			}
			if cat.Legacy() != tt.legacy {
				t.Errorf("Legacy = %v, want %v", cat.Legacy(), tt.legacy)
			}
		})
	}
}

func TestParseCatalogMissingColumns(t *testing.T) {
	_, err := ParseCatalog(strings.NewReader("produto,valor\nSuco,6\n"), ',')
	if !errors.Is(err, ErrMissingColumns) {
		t.Fatalf("err = %v, want ErrMissingColumns", err)
	}
	if !strings.Contains(err.Error(), "category") {
		t.Errorf("error %q does not name the missing column", err)
	}
}

func TestParseCatalogEmpty(t *testing.T) {
	for _, input := range []string{"", "name,category,price\n"} {
		if _, err := ParseCatalog(strings.NewReader(input), ','); !errors.Is(err, ErrEmptyCatalog) {
			t.Errorf("ParseCatalog(%q) err = %v, want ErrEmptyCatalog", input, err)
		}
	}
}

func TestLoadCatalog(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "products.csv", "name,category,price\nSuco,Bebidas,6\n")
	bad := writeFile(t, dir, "bad.csv", "produto\nSuco\n")
	missing := filepath.Join(dir, "nope.csv")

	cat, source, err := LoadCatalog([]string{missing, good})
	if err != nil || source != good || cat.Len() != 1 {
		t.Errorf("LoadCatalog(first missing) = %d products, %q, %v", cat.Len(), source, err)
	}

	cat, source, err = LoadCatalog([]string{missing, ""})
	if err != nil || source != "" || cat.Len() != len(SampleProducts()) {
		t.Errorf("fallback: source=%q err=%v", source, err)
	}

	if _, _, err := LoadCatalog([]string{bad, good}); !errors.Is(err, ErrMissingColumns) {
		t.Errorf("malformed catalog err = %v, want ErrMissingColumns", err)
	}
}

func TestCatalogLookupAndOrder(t *testing.T) {
	cat := NewCatalog([]Product{
		{ID: 10, Name: "Cachorro-quente", Price: 15},
		{ID: 20, Name: "Coca-Cola", Price: 7},
		{ID: 30, Name: "Sorvete", Price: 9},
	})
	if p, ok := cat.Lookup("20"); !ok || p.Name != "Coca-Cola" {
		t.Errorf("Lookup(20) = %+v, %v", p, ok)
	}
	if p, ok := cat.Lookup(" Sorvete "); !ok || p.ID != 30 {
		t.Errorf("Lookup(Sorvete) = %+v, %v", p, ok)
	}
	if _, ok := cat.Lookup("Pizza"); ok {
		t.Error("Lookup(Pizza) should fail")
	}

	cart := Cart{
		{Product: Product{Name: "Pizza"}, Quantity: 1},
		{Product: Product{ID: 30, Name: "Sorvete"}, Quantity: 1},
		{Product: Product{Name: "Cachorro-quente"}, Quantity: 2},
	}
	ordered := cat.Order(cart)
	want := []string{"Cachorro-quente", "Sorvete", "Pizza"}
	for i, line := range ordered {
		if line.Product.Name != want[i] {
			t.Fatalf("order = %v, want %v", ordered, want)
		}
	}
	if cart[0].Product.Name != "Pizza" {
		t.Error("Order modified its input")
	}
}

func TestCatalogResolve(t *testing.T) {
	cat := NewCatalog([]Product{
		{ID: 11, Name: "Pastel", Category: "Salgado", Price: 8},
		{ID: 12, Name: "Caldo de cana", Category: "Bebida", Price: 6},
	})
	cart := Cart{
		{Product: Product{Name: "Pizza"}, Quantity: 1},
		{Product: Product{Name: " Caldo  de cana ", Price: 99}, Quantity: 2},
		{Product: Product{ID: 11}, Quantity: 1},
	}
	got := cat.Resolve(cart)
	want := Cart{
		{Product: Product{ID: 11, Name: "Pastel", Category: "Salgado", Price: 8}, Quantity: 1},
		{Product: Product{ID: 12, Name: "Caldo de cana", Category: "Bebida", Price: 6}, Quantity: 2},
		{Product: Product{Name: "Pizza"}, Quantity: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Resolve = %+v, want %+v", got, want)
	}
	if cart[1].Product.ID != 0 {
		t.Error("Resolve modified its input")
	}
}

func TestParseCartFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "cart.csv", "produto,quantidade\nSuco,2\nPizza,1\n,5\n")
	rows, err := ParseCartFile(path, NewCatalog(SampleProducts()))
	if err != nil {
		t.Fatalf("ParseCartFile error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %+v", rows)
	}
	if rows[0].Name != "Suco" || rows[0].Category != "Bebida" || rows[0].Quantity != "2" {
		t.Errorf("catalog row = %+v", rows[0])
	}
	if rows[1].Name != "Pizza" || rows[1].Price != nil {
		t.Errorf("unknown row = %+v", rows[1])
	}

	bad := writeFile(t, dir, "bad.csv", "produto\nSuco\n")
	if _, err := ParseCartFile(bad, NewCatalog(nil)); !errors.Is(err, ErrMissingColumns) {
		t.Errorf("err = %v, want ErrMissingColumns", err)
	}
}

func TestSetColumnCandidates(t *testing.T) {
	t.Cleanup(func() { SetColumnCandidates(ColumnCandidates{}) })
	SetColumnCandidates(ColumnCandidates{Name: []string{"item"}})
	cat, err := ParseCatalog(strings.NewReader("item,categoria,preco\nSuco,Bebidas,6\n"), ',')
	if err != nil {
		t.Fatalf("ParseCatalog error: %v", err)
	}
	if cat.Products()[0].Name != "Suco" {
		t.Errorf("products = %+v", cat.Products())
	}
	if got := DefaultColumnCandidates().Name[0]; got != "name" {
		t.Errorf("default name candidate = %q", got)
	}
}
