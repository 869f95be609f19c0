package main

import (
	"context"
	"log"

	"github.com/Apurer/photo-orders/internal/app/api"
)

func main() {
	if err := api.Run(context.Background()); err != nil {
		log.Fatalf("photo orders API failed: %v", err)
	}
}
