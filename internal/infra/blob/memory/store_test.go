package memory

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"entitystore/internal/blob/core"
)

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	if s.Driver() != core.DriverMemory {
		t.Fatalf("unexpected driver %s", s.Driver())
	}
	if _, err := s.Put(ctx, "a/one.xml", bytes.NewReader([]byte("1")), core.PutOptions{ContentType: "application/xml", Metadata: map[string]string{"k": "v"}}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := s.Put(ctx, "a/one.xml", bytes.NewReader([]byte("22")), core.PutOptions{}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if _, err := s.Put(ctx, "b/two.xml", bytes.NewReader([]byte("2")), core.PutOptions{}); err != nil {
		t.Fatalf("put b: %v", err)
	}
	info, rc, err := s.Get(ctx, "a/one.xml")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, _ := io.ReadAll(rc)
	if string(b) != "22" || info.Size != 2 || info.ETag == "" {
		t.Fatalf("unexpected replaced blob %q %+v", b, info)
	}
	list, err := s.List(ctx, "a/")
	if err != nil || len(list) != 1 {
		t.Fatalf("list prefix: %v %+v", err, list)
	}
	all, _ := s.List(ctx, "")
	if len(all) != 2 || all[0].Key != "a/one.xml" {
		t.Fatalf("list all: %+v", all)
	}
	if ok, err := s.Delete(ctx, "a/one.xml"); err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if ok, _ := s.Delete(ctx, "a/one.xml"); ok {
		t.Fatalf("second delete should report false")
	}
	if _, _, err := s.Get(ctx, "a/one.xml"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := s.Head(ctx, "a/one.xml"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected head not found, got %v", err)
	}
}

func TestStoreIsolatesCallerBuffers(t *testing.T) {
	ctx := context.Background()
	s := New()
	md := map[string]string{"a": "1"}
	if _, err := s.Put(ctx, "k", bytes.NewReader([]byte("abc")), core.PutOptions{Metadata: md}); err != nil {
		t.Fatalf("put: %v", err)
	}
	md["a"] = "2"
	h, err := s.Head(ctx, "k")
	if err != nil || h.Metadata["a"] != "1" {
		t.Fatalf("metadata not isolated: %v %+v", err, h)
	}
}

func TestStorePutRejectsEmptyKeyAndCanceledContext(t *testing.T) {
	s := New()
	if _, err := s.Put(context.Background(), " ", bytes.NewReader(nil), core.PutOptions{}); err == nil {
		t.Fatalf("expected empty key error")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Put(ctx, "k", bytes.NewReader(nil), core.PutOptions{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
}
