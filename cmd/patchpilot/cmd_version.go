package main

import (
	"errors"
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/pflag"
	"github.com/tcnksm/go-latest"
)

// Version is set at build time with -ldflags "-X main.Version=..."
var Version = "dev"

// latestSource is where released versions are published
var latestSource latest.Source = &latest.GithubTag{
	Owner:      "ochairo",
	Repository: "patchpilot",
}

func runVersion(args []string, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("version", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	check := fs.BoolP("check", "c", false, "Check whether a newer release exists")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 1
	}

	fmt.Fprintf(stdout, "patchpilot %s (%s, %s/%s)\n", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)

	if *check {
		checkUpdate(stdout, stderr, Version)
	}
	return 0
}

func checkUpdate(stdout, stderr io.Writer, currentVer string) {
	if currentVer == "dev" {
		fmt.Fprintln(stderr, "Development build, skipping update check")
		return
	}

	res, err := latest.Check(latestSource, currentVer)
	if err != nil {
		fmt.Fprintf(stderr, "Could not check for updates: %v\n", err)
		return
	}

	if res.Outdated {
		fmt.Fprintf(stdout, "✨ A new version is available: %s (you have %s)\n", res.Current, currentVer)
	} else {
		fmt.Fprintf(stdout, "✅ You are using the latest version: %s\n", currentVer)
	}
}
