package recommender

// SampleProducts returns the built-in snack-bar catalog used when no catalog file is found.
func SampleProducts() []Product {
	return []Product{
		{Name: "Cachorro-quente", Category: "Lanche", Price: 15.0},
		{Name: "Hambúrguer", Category: "Lanche", Price: 22.0},
		{Name: "Batata palha", Category: "Acompanhamento", Price: 6.0},
		{Name: "Batata frita", Category: "Acompanhamento", Price: 12.0},
		{Name: "Coca-Cola", Category: "Bebida", Price: 7.0},
		{Name: "Suco", Category: "Bebida", Price: 6.0},
		{Name: "Sorvete", Category: "Sobremesa", Price: 9.0},
		{Name: "Água", Category: "Bebida", Price: 4.0},
	}
}
