package main

import (
	"context"
	"log"

	"github.com/modhost/backend/internal/server"
	"github.com/modhost/backend/internal/server/config"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	app, err := server.NewApp(cfg)
	if err != nil {
		log.Fatal(err)
	}

	app.Run(context.Background())
}
