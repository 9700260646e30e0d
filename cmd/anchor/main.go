package main

import (
	"os"

	"github.com/go-anchor/anchor/cmd/anchor/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
