package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// PointerName is the stable name in the log directory that always points at
// the current run's log file. Each daemon run writes scribe-<runID>.log and
// repoints this entry at it.
const PointerName = "scribe.log"

const runFilePrefix = "scribe-"

// Request describes one bounded read of the daemon log. A negative Offset
// asks for the last Lines lines of the file; a non-negative Offset reads
// forward from that byte position. When Follow is set and the read yields
// nothing, Tail polls for up to Wait before returning empty.
type Request struct {
	Offset int64
	Lines  int
	Follow bool
	Wait   time.Duration
}

// Chunk is the result of one read: the lines delivered and the byte offset
// to pass back for the next read.
type Chunk struct {
	Lines  []string
	Offset int64
}

// Tail reads the log file at path according to req. A missing file is not an
// error; it yields an empty chunk at offset zero so follow loops keep polling
// until the daemon creates it.
func Tail(ctx context.Context, path string, req Request) (Chunk, error) {
	chunk := Chunk{Offset: req.Offset}

	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		chunk.Offset = 0
		return chunk, nil
	}
	if err != nil {
		return chunk, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return chunk, fmt.Errorf("log path %q is a directory", path)
	}

	if req.Offset < 0 {
		chunk.Lines, chunk.Offset, err = lastLines(path, req.Lines)
	} else {
		offset := req.Offset
		if offset > info.Size() {
			offset = info.Size()
		}
		chunk.Lines, chunk.Offset, err = scanFrom(path, offset)
	}
	if err != nil {
		return chunk, err
	}

	if req.Follow && req.Wait > 0 && len(chunk.Lines) == 0 {
		return poll(ctx, path, chunk.Offset, req.Wait)
	}
	return chunk, nil
}

// CurrentPath resolves the scribe.log pointer in logDir to the current run's
// log file. When the pointer is absent the newest scribe-*.log run file wins.
// An empty path with a nil error means no log exists yet. A hard-linked
// pointer resolves to itself, which reads identically.
func CurrentPath(logDir string) (string, error) {
	if logDir == "" {
		return "", nil
	}
	pointer := filepath.Join(logDir, PointerName)
	if resolved, err := filepath.EvalSymlinks(pointer); err == nil {
		return resolved, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("resolve log pointer: %w", err)
	}

	entries, err := os.ReadDir(logDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read log dir: %w", err)
	}
	var runs []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.Type().IsRegular() && strings.HasPrefix(name, runFilePrefix) && strings.HasSuffix(name, ".log") {
			runs = append(runs, name)
		}
	}
	if len(runs) == 0 {
		return "", nil
	}
	// Run files embed a sortable UTC timestamp, so the lexicographic max is
	// the latest run.
	sort.Strings(runs)
	return filepath.Join(logDir, runs[len(runs)-1]), nil
}

// SetPointer repoints logDir's scribe.log entry at target, replacing any
// previous pointer. Filesystems without symlink support get a hard link.
func SetPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	pointer := filepath.Join(logDir, PointerName)
	if err := os.Remove(pointer); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove log pointer: %w", err)
	}
	if err := os.Symlink(target, pointer); err == nil {
		return nil
	}
	if err := os.Link(target, pointer); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

// lastLines keeps a ring of the final n lines so arbitrarily large logs are
// read with bounded memory, and reports the end-of-file offset.
func lastLines(path string, n int) ([]string, int64, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("stat log file: %w", err)
	}
	if n <= 0 {
		return nil, info.Size(), nil
	}

	ring := make([]string, n)
	total := 0
	scanner := newLineScanner(file)
	for scanner.Scan() {
		ring[total%n] = scanner.Text()
		total++
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}

	end, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}

	count := total
	if count > n {
		count = n
	}
	lines := make([]string, count)
	for i := 0; i < count; i++ {
		lines[i] = ring[(total-count+i)%n]
	}
	return lines, end, nil
}

// scanFrom reads complete lines from offset to end of file and reports the
// offset after the last line consumed.
func scanFrom(path string, offset int64) ([]string, int64, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}

	var lines []string
	scanner := newLineScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}

	end, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, 0, fmt.Errorf("determine log offset: %w", err)
	}
	return lines, end, nil
}

// poll re-reads from offset until a line appears, the wait expires, or the
// context ends. It always reports the latest offset so callers resume cleanly.
func poll(ctx context.Context, path string, offset int64, wait time.Duration) (Chunk, error) {
	deadline := time.Now().Add(wait)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	chunk := Chunk{Offset: offset}
	for {
		lines, end, err := scanFrom(path, chunk.Offset)
		if err != nil {
			return chunk, err
		}
		chunk.Offset = end
		if len(lines) > 0 {
			chunk.Lines = lines
			return chunk, nil
		}
		if !time.Now().Before(deadline) {
			return chunk, nil
		}
		select {
		case <-ctx.Done():
			return chunk, ctx.Err()
		case <-ticker.C:
		}
	}
}

func newLineScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return scanner
}
