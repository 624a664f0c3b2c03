package main

import (
	"log"

	"concept-insight/app"
	"concept-insight/config"
)

func main() {
	cfg := config.LoadFromEnv()

	application := app.New(cfg)
	if err := application.Start(); err != nil {
		log.Fatal(err)
	}
}
