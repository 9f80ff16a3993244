package main

import (
	"fmt"
	"os"

	app "github.com/divyansh-cyber/AceE6data/internal"
	"github.com/divyansh-cyber/AceE6data/internal/cli"
)

// Set by goreleaser ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.SetVersionInfo(version, commit, date)
	basePath := app.ResolveBasePath()

	var a *app.App
	cli.Setup = func(opts cli.Options) error {
		var err error
		a, err = app.NewApp(basePath, opts)
		return err
	}

	err := cli.Execute()
	if a != nil {
		_ = a.Close()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
