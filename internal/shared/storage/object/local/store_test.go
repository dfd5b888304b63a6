package local

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rmn-analyst/internal/shared/storage/object"
)

func TestPutAndOpen(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)

	n, err := store.Put(context.Background(), "reports/abc/report.csv", "text/csv", strings.NewReader("Impressions,Clicks\n10,2\n"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if n != 24 {
		t.Fatalf("expected 24 bytes written, got %d", n)
	}
	if _, err := os.Stat(filepath.Join(dir, "reports", "abc", "report.csv")); err != nil {
		t.Fatalf("expected file on disk: %v", err)
	}

	rc, err := store.Open(context.Background(), "reports/abc/report.csv")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.HasPrefix(string(data), "Impressions,Clicks") {
		t.Fatalf("unexpected contents: %q", data)
	}
}

func TestPutRejectsTraversal(t *testing.T) {
	store := New(t.TempDir())
	if _, err := store.Put(context.Background(), "../outside.txt", "text/plain", strings.NewReader("x")); err == nil {
		t.Fatalf("expected traversal key to be rejected")
	}
}

func TestPutHonorsCanceledContext(t *testing.T) {
	store := New(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.Put(ctx, "reports/a.txt", "text/plain", strings.NewReader("x")); err == nil {
		t.Fatalf("expected canceled context error")
	}
}

func TestOpenMissingIsNotFound(t *testing.T) {
	store := New(t.TempDir())
	_, err := store.Open(context.Background(), "reports/none/a.csv")
	if !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPutOverwritesWithoutLeavingTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)
	for _, body := range []string{"first", "second"} {
		if _, err := store.Put(context.Background(), "reports/x/a.txt", "text/plain", strings.NewReader(body)); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	entries, err := os.ReadDir(filepath.Join(dir, "reports", "x"))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "a.txt" {
		t.Fatalf("expected only a.txt, got %v", entries)
	}
	data, _ := os.ReadFile(filepath.Join(dir, "reports", "x", "a.txt"))
	if string(data) != "second" {
		t.Fatalf("expected last write to win, got %q", data)
	}
}

type failingReader struct{}

func (failingReader) Read(p []byte) (int, error) { return 0, errors.New("upload aborted") }

func TestPutFailureLeavesNoObject(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)
	if _, err := store.Put(context.Background(), "reports/y/a.txt", "text/plain", failingReader{}); err == nil {
		t.Fatalf("expected write error")
	}
	entries, _ := os.ReadDir(filepath.Join(dir, "reports", "y"))
	if len(entries) != 0 {
		t.Fatalf("expected no files after failed put, got %v", entries)
	}
}
