package main

import (
	"os"

	"github.com/go-go-golems/cricket/cmd/cricket/cmds"
)

func main() {
	if err := cmds.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
