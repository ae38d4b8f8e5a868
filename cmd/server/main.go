package main

import (
	"log"

	"pictogram/internal/transport/http"
)

func main() {
	if err := http.Run(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
