package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/xplshn/honeyc/pkg/runlog"
)

func TestRunsListing(t *testing.T) {
	store, err := runlog.Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	first := runlog.NewRun("a.hc", []byte("let x = 1;"))
	first.StartedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	first.Log("tokenized")
	second := runlog.NewRun("b.hc", []byte("x;"))
	second.StartedAt = first.StartedAt.Add(time.Hour)
	second.Log("grouped")
	for _, r := range []*runlog.Run{first, second} {
		if err := store.Save(r); err != nil {
			t.Fatal(err)
		}
	}

	var out bytes.Buffer
	if err := listRuns(&out, store, ""); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), lines)
	}
	if !strings.HasPrefix(lines[0], second.ID) || !strings.HasSuffix(lines[0], "b.hc") {
		t.Errorf("newest run should come first, got %q", lines[0])
	}
	if !strings.Contains(lines[1], "2026-03-01T12:00:00Z") {
		t.Errorf("missing start time in %q", lines[1])
	}

	out.Reset()
	if err := listRuns(&out, store, "a.hc"); err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(out.String(), "\n"); got != 1 || !strings.HasPrefix(out.String(), first.ID) {
		t.Errorf("filtered listing = %q", out.String())
	}

	out.Reset()
	if err := showRun(&out, store, first.ID); err != nil {
		t.Fatal(err)
	}
	want := []string{"run " + first.ID + " of a.hc at 2026-03-01T12:00:00Z", "tokenized"}
	if diff := cmp.Diff(want, strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")); diff != "" {
		t.Errorf("show-run mismatch (-want +got):\n%s", diff)
	}

	if err := showRun(&out, store, "missing"); err == nil {
		t.Error("showRun of an unknown id should fail")
	}
}
