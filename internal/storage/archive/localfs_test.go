// internal/storage/archive/localfs_test.go
package archive

import (
	"context"
	"errors"
	"testing"

	"github.com/newthinker/signalbook/internal/core"
)

func TestLocalFS_ImplementsStorage(t *testing.T) {
	var _ Storage = (*LocalFS)(nil)
}

func TestLocalFS_WriteReadOverwrite(t *testing.T) {
	fs, err := NewLocalFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalFS: %v", err)
	}
	ctx := context.Background()

	if err := fs.Write(ctx, "signals/2025/01/a.json", []byte(`{"v":1}`)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := fs.Write(ctx, "signals/2025/01/a.json", []byte(`{"v":2}`)); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := fs.Read(ctx, "signals/2025/01/a.json")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != `{"v":2}` {
		t.Errorf("got %q, want overwritten content", got)
	}
}

func TestLocalFS_Exists(t *testing.T) {
	fs, _ := NewLocalFS(t.TempDir())
	ctx := context.Background()

	exists, err := fs.Exists(ctx, "missing.json")
	if err != nil || exists {
		t.Errorf("expected missing object, got exists=%v err=%v", exists, err)
	}

	fs.Write(ctx, "present.json", []byte("{}"))
	exists, _ = fs.Exists(ctx, "present.json")
	if !exists {
		t.Error("expected true for existing object")
	}
}

func TestLocalFS_List(t *testing.T) {
	fs, _ := NewLocalFS(t.TempDir())
	ctx := context.Background()

	fs.Write(ctx, "signals/2025/01/a.json", []byte("a"))
	fs.Write(ctx, "signals/2025/01/b.json", []byte("b"))
	fs.Write(ctx, "signals/2025/02/c.json", []byte("c"))

	paths, err := fs.List(ctx, "signals/2025/01")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 paths, got %d", len(paths))
	}
	for _, p := range paths {
		if p != "signals/2025/01/a.json" && p != "signals/2025/01/b.json" {
			t.Errorf("unexpected path %q", p)
		}
	}

	none, err := fs.List(ctx, "signals/1999")
	if err != nil {
		t.Fatalf("List missing prefix: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no paths, got %v", none)
	}
}

func TestLocalFS_Delete(t *testing.T) {
	fs, _ := NewLocalFS(t.TempDir())
	ctx := context.Background()

	fs.Write(ctx, "delete.json", []byte("{}"))
	if err := fs.Delete(ctx, "delete.json"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	exists, _ := fs.Exists(ctx, "delete.json")
	if exists {
		t.Error("object should be deleted")
	}
}

func TestOpen(t *testing.T) {
	s, err := Open(Config{Type: "localfs", Path: t.TempDir()})
	if err != nil {
		t.Fatalf("Open localfs: %v", err)
	}
	if _, ok := s.(*LocalFS); !ok {
		t.Errorf("expected *LocalFS, got %T", s)
	}

	s, err = Open(Config{Type: "s3", S3: S3Config{Bucket: "archive", Endpoint: "http://localhost:9000"}})
	if err != nil {
		t.Fatalf("Open s3: %v", err)
	}
	if _, ok := s.(*S3Storage); !ok {
		t.Errorf("expected *S3Storage, got %T", s)
	}

	if _, err := Open(Config{Type: "localfs"}); !errors.Is(err, core.ErrConfigMissing) {
		t.Errorf("expected ErrConfigMissing, got %v", err)
	}
	if _, err := Open(Config{Type: "s3"}); !errors.Is(err, core.ErrConfigMissing) {
		t.Errorf("expected ErrConfigMissing, got %v", err)
	}
	if _, err := Open(Config{Type: "gcs"}); !errors.Is(err, core.ErrConfigInvalid) {
		t.Errorf("expected ErrConfigInvalid, got %v", err)
	}
}
