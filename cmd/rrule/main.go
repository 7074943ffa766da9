package main

import (
	"os"

	"github.com/cyp0633/librrule/cmd/rrule/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
