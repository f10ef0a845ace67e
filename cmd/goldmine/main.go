// Command goldmine scans social channels for business opportunities.
//
// Usage:
//
//	goldmine scan <topic>                    Scan a topic and show ranked findings
//	goldmine history                         List saved scans
//	goldmine history show <id>               Show a saved scan
//	goldmine favorite add <id> <rank>        Bookmark a finding
//	goldmine favorite list                   List bookmarks
//	goldmine events                          JSONL event log viewer
//	goldmine topics                          List built-in topics
//	goldmine config                          Print the effective configuration
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "goldmine: %v\n", err)
		os.Exit(1)
	}
}
