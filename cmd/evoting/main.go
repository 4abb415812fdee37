package main

import (
	"fmt"
	"os"

	"github.com/ZenonWrites/BlockchainEvoting/internal/client/cmd"
	"github.com/ZenonWrites/BlockchainEvoting/internal/client/config"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	root := cmd.NewRootCmd(version, buildDate, cfg)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
