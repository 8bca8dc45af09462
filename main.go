package main

import (
	"os"

	"github.com/Lucas-MARIE/audio-viz/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
