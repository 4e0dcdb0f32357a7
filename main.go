package main

import (
	"errors"
	"os"

	"github.com/newhook/harvest/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		if errors.Is(err, cmd.ErrThresholdExceeded) {
			os.Exit(1)
		}
		os.Exit(2)
	}
}
