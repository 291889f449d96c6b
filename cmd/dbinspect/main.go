// Package main provides dbinspect, a maintenance tool that audits and
// repairs the references between users, bugs and tags.
//
// Usage:
//
//	dbinspect check --db-driver sqlite --data-path ~/BugHive/data
//	dbinspect stats --format json
//	dbinspect repair --dry-run
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := newRootCmd(os.Stdout).ExecuteContext(ctx)
	switch {
	case errors.Is(err, errViolations):
		os.Exit(1)
	case err != nil:
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(2)
	}
}
