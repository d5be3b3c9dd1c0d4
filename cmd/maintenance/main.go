package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/GlensonAnsin/lumina/internal/maintenance"
)

func main() {
	log.SetFlags(0)
	var (
		lockFile = flag.String("lock", envOr("MAINTENANCE_LOCK", "tmp/maintenance.lock"), "Path to the maintenance lock file")
	)
	flag.Parse()

	if len(flag.Args()) == 0 {
		log.Fatal("usage: maintenance [up|down|status]")
	}

	sw, err := maintenance.New(*lockFile, os.Getenv("MAINTENANCE_SECRET"))
	if err != nil {
		log.Fatalf("maintenance: %v", err)
	}

	switch flag.Arg(0) {
	case "up":
		if err := sw.Enable(); err != nil {
			log.Fatalf("enable: %v", err)
		}
		fmt.Println("maintenance mode enabled")
	case "down":
		if err := sw.Disable(); err != nil {
			log.Fatalf("disable: %v", err)
		}
		fmt.Println("maintenance mode disabled")
	case "status":
		if sw.Enabled() {
			fmt.Println("maintenance mode is ON")
		} else {
			fmt.Println("maintenance mode is OFF")
		}
	default:
		log.Fatalf("unknown command %q", flag.Arg(0))
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
