package local

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveAndOpenRoundTrip(t *testing.T) {
	store := New(t.TempDir())
	payload := []byte("Date,Description,Debit,Credit,Balance\n")

	key, size, _, err := store.Save(context.Background(), "tenant-1", "statement.csv", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if size != int64(len(payload)) {
		t.Fatalf("expected size %d, got %d", len(payload), size)
	}

	rc, err := store.Open(context.Background(), key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload mismatch")
	}
}

func TestSaveWithKeyLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)

	if _, err := store.SaveWithKey(context.Background(), "artifacts/t/Cash_Ladder_deadbeef.xlsx", "application/octet-stream", strings.NewReader("bytes")); err != nil {
		t.Fatalf("SaveWithKey: %v", err)
	}

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(filepath.Base(path), ".tmp-") {
			t.Fatalf("temp file left behind: %s", path)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
}

func TestOpenRejectsTraversal(t *testing.T) {
	store := New(t.TempDir())
	if _, err := store.Open(context.Background(), "../outside"); err == nil {
		t.Fatalf("expected traversal error")
	}
	if _, err := store.SaveWithKey(context.Background(), "/abs/path", "", strings.NewReader("x")); err == nil {
		t.Fatalf("expected absolute path error")
	}
}
