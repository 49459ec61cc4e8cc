package main

import (
	"fmt"
	"io"
	"time"

	"github.com/xplshn/honeyc/pkg/runlog"
)

// listRuns prints one line per stored run, newest first.
func listRuns(w io.Writer, store *runlog.Store, source string) error {
	runs, err := store.Runs(source)
	if err != nil {
		return err
	}
	for _, r := range runs {
		fmt.Fprintf(w, "%s  %s  %016x  %s\n", r.ID, r.StartedAt.Format(time.RFC3339), r.Hash, r.Source)
	}
	return nil
}

// showRun prints the header and stored log lines of run id.
func showRun(w io.Writer, store *runlog.Store, id string) error {
	sum, lines, err := store.Load(id)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "run %s of %s at %s\n", sum.ID, sum.Source, sum.StartedAt.Format(time.RFC3339))
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
	return nil
}
