package records

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestDiskStoreRoundTrip(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	ctx := context.Background()
	key := uuid.NewString()

	n, err := store.Put(ctx, key, strings.NewReader("scan data"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if n != int64(len("scan data")) {
		t.Errorf("size = %d, want %d", n, len("scan data"))
	}

	rc, err := store.Open(ctx, key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "scan data" {
		t.Errorf("content = %q, want %q", data, "scan data")
	}

	if err := store.Remove(ctx, key); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := store.Open(ctx, key); !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("Open after Remove err = %v, want ErrBlobNotFound", err)
	}
}

func TestDiskStoreDuplicateKey(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	ctx := context.Background()
	key := uuid.NewString()

	if _, err := store.Put(ctx, key, strings.NewReader("a")); err != nil {
		t.Fatalf("first Put: %v", err)
	}
	if _, err := store.Put(ctx, key, strings.NewReader("b")); err == nil {
		t.Error("second Put with same key succeeded, want error")
	}
}

func TestDiskStoreRejectsPathKeys(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	ctx := context.Background()

	for _, key := range []string{"", ".", "..", "../escape", "a/b", `a\b`} {
		if _, err := store.Put(ctx, key, strings.NewReader("x")); err == nil {
			t.Errorf("Put(%q) succeeded, want error", key)
		}
		if _, err := store.Open(ctx, key); err == nil {
			t.Errorf("Open(%q) succeeded, want error", key)
		}
	}
}
