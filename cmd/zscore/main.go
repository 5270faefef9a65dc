// Command zscore computes z-scores locally or through a running server.
//
// Usage:
//
//	zscore [--api-url URL] [--output table|json|yaml] <command> [flags]
//
// Commands:
//
//	calc    Compute locally
//	remote  Compute or validate on a server
//	probe   Check a server against reference scenarios
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/zscore/internal/cli"
)

// version is set with ldflags at build time.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCmd(version, os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
