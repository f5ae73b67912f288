package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"entitystore/internal/blob"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
	if cfg.Worker.PollInterval != 2*time.Second || cfg.Worker.StopTimeout != time.Minute {
		t.Fatalf("unexpected worker defaults: %+v", cfg.Worker)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entitystore.yaml")
	body := `
store:
  driver: s3
  s3:
    bucket: from-file
    region: eu-west-1
    path_style: true
format: json
prefix: tenant-a/
queue:
  capacity: 16
  submit_timeout: 250ms
worker:
  poll_interval: 500ms
log_level: debug
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("ENTITYSTORE_STORE_S3_BUCKET", "from-env")
	t.Setenv("ENTITYSTORE_WORKER_STOP_TIMEOUT", "5s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.S3.Bucket != "from-env" {
		t.Fatalf("expected env to win over file, got %q", cfg.Store.S3.Bucket)
	}
	if cfg.Store.S3.Region != "eu-west-1" || !cfg.Store.S3.PathStyle {
		t.Fatalf("expected file values to be kept: %+v", cfg.Store.S3)
	}
	if cfg.Queue.Capacity != 16 || cfg.Queue.SubmitTimeout != 250*time.Millisecond {
		t.Fatalf("unexpected queue config: %+v", cfg.Queue)
	}
	if cfg.Worker.PollInterval != 500*time.Millisecond || cfg.Worker.StopTimeout != 5*time.Second {
		t.Fatalf("unexpected worker config: %+v", cfg.Worker)
	}
	if cfg.Worker.StopPollInterval != time.Second {
		t.Fatalf("expected untouched default stop poll interval, got %v", cfg.Worker.StopPollInterval)
	}

	bc := cfg.BlobConfig()
	if bc.Driver != blob.DriverS3 || bc.S3.Bucket != "from-env" || !bc.S3.PathStyle {
		t.Fatalf("unexpected blob config: %+v", bc)
	}
	format, err := cfg.CodecFormat()
	if err != nil || format.Extension() != "json" {
		t.Fatalf("unexpected format %v %v", format, err)
	}
	opts, err := cfg.ServiceOptions()
	if err != nil || len(opts) != 6 {
		t.Fatalf("unexpected service options: %d %v", len(opts), err)
	}
}

func TestLoadRejectsUnknownFileKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("stroe:\n  driver: fs\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected unknown key to fail")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected missing file to fail")
	}
}

func TestLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err != nil {
		t.Fatalf("empty file should load defaults: %v", err)
	}
}

func TestLoadEnvParseError(t *testing.T) {
	t.Setenv("ENTITYSTORE_QUEUE_CAPACITY", "lots")
	_, err := Load("")
	if err == nil || !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env error, got %v", err)
	}
}

func TestValidateCollectsProblems(t *testing.T) {
	cfg := Default()
	cfg.Store.Driver = "ftp"
	cfg.Format = "yaml"
	cfg.Prefix = "/abs"
	cfg.Queue.Capacity = -1
	cfg.Worker.PollInterval = 0
	cfg.LogLevel = "loud"
	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation errors")
	}
	for _, want := range []string{"store.driver", "format", "prefix", "queue.capacity", "worker intervals", "log_level"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %v", want, err)
		}
	}

	s3 := Default()
	s3.Store.Driver = "s3"
	if err := s3.Validate(); err == nil || !strings.Contains(err.Error(), "bucket") {
		t.Fatalf("expected missing bucket error, got %v", err)
	}
}
