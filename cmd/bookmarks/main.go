package main

import (
	"log"

	"github.com/sharmaHarshit2000/smart-bookmarks/internal/app"
)

func main() {
	theApp, err := app.New()
	if err != nil {
		log.Fatalf("cannot initialize the application: %v", err)
	}
	defer theApp.Close()

	if err := theApp.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
