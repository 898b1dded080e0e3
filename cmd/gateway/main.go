package main

import (
	"log"

	"github.com/LucasSantana-Dev/mcp-gateway-sub004/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ mcp-gateway failed to start: %v", err)
	}
}
