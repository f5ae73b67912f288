package persist

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"entitystore/internal/blob"
	"entitystore/internal/codec"
)

// TestBackends runs the same lifecycle against every embeddable driver.
func TestBackends(t *testing.T) {
	backends := map[string]func(t *testing.T) blob.Store{
		"memory": func(*testing.T) blob.Store { return blob.NewMemory() },
		"fs": func(t *testing.T) blob.Store {
			s, err := blob.NewFilesystem(t.TempDir())
			if err != nil {
				t.Fatalf("fs: %v", err)
			}
			return s
		},
		"s3": func(*testing.T) blob.Store { return blob.NewMockS3ForTests() },
		"sqlite": func(t *testing.T) blob.Store {
			s, err := blob.NewSQLite(context.Background(), filepath.Join(t.TempDir(), "entities.db"))
			if err != nil {
				t.Fatalf("sqlite: %v", err)
			}
			t.Cleanup(func() { _ = blob.Close(s) })
			return s
		},
	}
	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			store := open(t)
			ctx := context.Background()

			svc := New(store, fastOptions(WithPrefix("entities/"), WithFormat(codec.JSON))...)
			if err := svc.Register(codec.For[Widget]("Widget")); err != nil {
				t.Fatalf("register: %v", err)
			}
			if err := svc.Start(ctx); err != nil {
				t.Fatalf("start: %v", err)
			}
			widgets := []*Widget{{Name: "Alpha", ID: 1, Parts: []string{"a"}}, {Name: "Beta Two", ID: 2}}
			for _, w := range widgets {
				if err := svc.PersistAndWait(ctx, w); err != nil {
					t.Fatalf("persist %d: %v", w.ID, err)
				}
			}
			if err := svc.RenameAndWait(ctx, widgets[0], "Gamma"); err != nil {
				t.Fatalf("rename: %v", err)
			}
			if err := svc.Stop(time.Second); err != nil {
				t.Fatalf("stop: %v", err)
			}

			if !exists(t, store, "entities/Gamma_1.json") || exists(t, store, "entities/Alpha_1.json") {
				t.Fatalf("expected renamed key under prefix")
			}

			reopened := New(store, fastOptions(WithPrefix("entities/"), WithFormat(codec.JSON))...)
			if err := reopened.Register(codec.For[Widget]("Widget")); err != nil {
				t.Fatalf("register: %v", err)
			}
			if err := reopened.Start(ctx); err != nil {
				t.Fatalf("restart: %v", err)
			}
			defer func() { _ = reopened.Stop(time.Second) }()
			all, err := reopened.LoadAll(ctx)
			if err != nil {
				t.Fatalf("load all: %v", err)
			}
			if len(all) != 2 {
				t.Fatalf("expected 2 entities after restart, got %d", len(all))
			}
			if diff := cmp.Diff(widgets[1], all[1]); diff != "" {
				t.Fatalf("widget mismatch (-want +got):\n%s", diff)
			}
			if err := reopened.DeleteAndWait(ctx, widgets[1]); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if exists(t, store, "entities/Beta_Two_2.json") {
				t.Fatalf("expected delete to reach the backend")
			}
		})
	}
}
