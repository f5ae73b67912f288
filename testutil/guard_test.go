package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type recordingTB struct {
	testing.TB
	failed string
}

func (r *recordingTB) Helper() {}

func (r *recordingTB) Fatalf(format string, args ...any) {
	r.failed = format
}

func writeGo(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestPredicates(t *testing.T) {
	if !InternalPackage("entitystore/internal/codec") || InternalPackage("entitystore/pkg/entity") {
		t.Fatalf("internal predicate misclassified a path")
	}
	for _, p := range []string{"entitystore/internal/blob", "entitystore/internal/infra/blob/s3", "github.com/aws/aws-sdk-go-v2/service/s3", "database/sql"} {
		if !StorageBackend(p) {
			t.Fatalf("expected %s to be a storage backend", p)
		}
	}
	if StorageBackend("encoding/xml") {
		t.Fatalf("encoding/xml is not a storage backend")
	}
}

func TestAssertNoDirectImports(t *testing.T) {
	dir := t.TempDir()
	writeGo(t, dir, "ok.go", "package x\nimport \"fmt\"\nvar _ = fmt.Sprint\n")
	writeGo(t, dir, "bad_test.go", "package x\nimport _ \"entitystore/internal/blob\"\n")
	AssertNoDirectImports(t, dir, StorageBackend, "test files are ignored")

	writeGo(t, dir, "bad.go", "package x\nimport _ \"entitystore/internal/blob\"\n")
	rec := &recordingTB{TB: t}
	AssertNoDirectImports(rec, dir, StorageBackend, "codec")
	if !strings.Contains(rec.failed, "forbidden imports") {
		t.Fatalf("expected violation to be reported, got %q", rec.failed)
	}
}

func TestAssertNoTransitiveDependency(t *testing.T) {
	orig := goListDeps
	t.Cleanup(func() { goListDeps = orig })
	goListDeps = func(string) ([]byte, error) {
		return []byte("fmt\nentitystore/pkg/entity\n\nentitystore/internal/queue\n"), nil
	}

	AssertNoTransitiveDependency(t, ".", StorageBackend, "no storage")

	rec := &recordingTB{TB: t}
	AssertNoTransitiveDependency(rec, ".", InternalPackage, "public api")
	if !strings.Contains(rec.failed, "forbidden dependencies") {
		t.Fatalf("expected violation to be reported, got %q", rec.failed)
	}
}
