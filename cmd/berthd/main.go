package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/larsvik/berth/internal/berthd"
	"github.com/larsvik/berth/internal/constants"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	debugEnv := os.Getenv(constants.EnvVarDebug) == "true"
	debug := *debugFlag || debugEnv

	if err := berthd.Run(debug); err != nil {
		fmt.Fprintf(os.Stderr, "berthd: %v\n", err)
		os.Exit(1)
	}
}
