package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/aussiebroadwan/sharebox/internal/sharebox/app"
)

func main() {
	printEnv := flag.Bool("env", false, "print the supported environment variables and exit")
	flag.Parse()

	if *printEnv {
		fmt.Println(app.Usage())
		return
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
