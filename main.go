package main

import (
	"log"

	"yashubustudio/recommender/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		log.Fatalf("recommender: %v", err)
	}
}
