package main

import (
	"os"

	"github.com/wolfman30/messenger-booking-relay/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
