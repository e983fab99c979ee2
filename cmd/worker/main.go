package main

import (
	"context"
	"log"

	"plenary/internal/app/bootstrap"
)

// Worker process entrypoint.
// Data flow:
// 1) Load config.
// 2) Build app wiring.
// 3) Run the session sweeper and outbox relay on the sweep interval.
func main() {
	log.Println("plenary worker starting")
	app, err := bootstrap.BuildWorker()
	if err != nil {
		log.Fatalf("bootstrap worker failed: %v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Printf("worker shutdown close failed: %v", err)
		}
	}()

	if err := app.Run(context.Background()); err != nil {
		log.Fatalf("plenary worker stopped with error: %v", err)
	}
}
