package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"scribe/internal/logs"
)

func writeLog(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
}

func TestTailLastLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scribe-20260829T000000.000Z.log")
	writeLog(t, path, "one\ntwo\nthree\nfour\n")

	cases := []struct {
		name  string
		lines int
		want  []string
	}{
		{"subset", 2, []string{"three", "four"}},
		{"more than file", 10, []string{"one", "two", "three", "four"}},
		{"zero", 0, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			chunk, err := logs.Tail(context.Background(), path, logs.Request{Offset: -1, Lines: tc.lines})
			if err != nil {
				t.Fatalf("tail: %v", err)
			}
			if len(chunk.Lines) != len(tc.want) {
				t.Fatalf("expected %d lines, got %#v", len(tc.want), chunk.Lines)
			}
			for i, line := range tc.want {
				if chunk.Lines[i] != line {
					t.Fatalf("line %d = %q, want %q", i, chunk.Lines[i], line)
				}
			}
			if chunk.Offset == 0 {
				t.Fatal("expected offset at end of file")
			}
		})
	}
}

func TestTailMissingFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.log")
	chunk, err := logs.Tail(context.Background(), path, logs.Request{Offset: -1, Lines: 5})
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(chunk.Lines) != 0 || chunk.Offset != 0 {
		t.Fatalf("expected empty chunk at offset 0, got %+v", chunk)
	}
}

func TestTailFollowDeliversAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scribe-20260829T000000.000Z.log")
	writeLog(t, path, "start\n")

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	first, err := logs.Tail(ctx, path, logs.Request{Offset: -1, Lines: 1})
	if err != nil {
		t.Fatalf("initial tail: %v", err)
	}
	if len(first.Lines) != 1 || first.Lines[0] != "start" {
		t.Fatalf("unexpected initial chunk: %+v", first)
	}

	done := make(chan struct{})
	go func(offset int64) {
		defer close(done)
		chunk, err := logs.Tail(ctx, path, logs.Request{Offset: offset, Follow: true, Wait: 5 * time.Second})
		if err != nil {
			t.Errorf("follow tail: %v", err)
			return
		}
		if len(chunk.Lines) != 1 || chunk.Lines[0] != "later" {
			t.Errorf("unexpected follow chunk: %+v", chunk)
		}
	}(first.Offset)

	time.Sleep(200 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString("later\n"); err != nil {
		t.Fatalf("append log: %v", err)
	}
	_ = f.Close()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("follow did not return")
	}
}

func TestCurrentPathResolvesPointer(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "scribe-20260829T120000.000Z.log")
	writeLog(t, target, "line\n")
	if err := logs.SetPointer(dir, target); err != nil {
		t.Fatalf("set pointer: %v", err)
	}

	resolved, err := logs.CurrentPath(dir)
	if err != nil {
		t.Fatalf("current path: %v", err)
	}
	if resolved != target {
		t.Fatalf("resolved %q, want %q", resolved, target)
	}
}

func TestCurrentPathFallsBackToNewestRun(t *testing.T) {
	dir := t.TempDir()
	older := filepath.Join(dir, "scribe-20260829T100000.000Z.log")
	newer := filepath.Join(dir, "scribe-20260829T110000.000Z.log")
	writeLog(t, older, "old\n")
	writeLog(t, newer, "new\n")

	resolved, err := logs.CurrentPath(dir)
	if err != nil {
		t.Fatalf("current path: %v", err)
	}
	if resolved != newer {
		t.Fatalf("resolved %q, want %q", resolved, newer)
	}
}

func TestCurrentPathEmptyDir(t *testing.T) {
	resolved, err := logs.CurrentPath(t.TempDir())
	if err != nil {
		t.Fatalf("current path: %v", err)
	}
	if resolved != "" {
		t.Fatalf("expected empty path, got %q", resolved)
	}
}

func TestSetPointerReplacesExisting(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "scribe-20260829T100000.000Z.log")
	second := filepath.Join(dir, "scribe-20260829T110000.000Z.log")
	writeLog(t, first, "a\n")
	writeLog(t, second, "b\n")

	if err := logs.SetPointer(dir, first); err != nil {
		t.Fatalf("set pointer: %v", err)
	}
	if err := logs.SetPointer(dir, second); err != nil {
		t.Fatalf("repoint: %v", err)
	}
	resolved, err := logs.CurrentPath(dir)
	if err != nil {
		t.Fatalf("current path: %v", err)
	}
	if resolved != second {
		t.Fatalf("resolved %q, want %q", resolved, second)
	}
}
