package main

import (
	"os"

	"ghost-newsletter/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
