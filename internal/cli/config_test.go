package cli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"writededuper/pkg/dedup"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfig(t.TempDir(), "", nil)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if diff := cmp.Diff(Config{}, cfg); diff != "" {
		t.Fatalf("unexpected config (-want +got):\n%s", diff)
	}
}

func TestLoadConfigProjectFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	// JSONC: comments and trailing commas are tolerated.
	data := `{
		// index backing store
		"redis_host": "cache.internal",
		"redis_port": "6379",
		"bloom": true,
	}`

	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(dir, "", nil)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	want := Config{
		RedisHost: "cache.internal",
		RedisPort: "6379",
		Bloom:     true,
	}

	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("unexpected config (-want +got):\n%s", diff)
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	data := `{"redis_host": "from-file"}`

	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	env := map[string]string{
		dedup.EnvRedisHost: "from-env",
		dedup.EnvVerbose:   "1",
	}

	cfg, err := LoadConfig(dir, "", env)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.RedisHost != "from-env" {
		t.Fatalf("expected env to win, got %q", cfg.RedisHost)
	}

	if !cfg.Verbose {
		t.Fatal("expected verbose from env")
	}
}

func TestLoadConfigInvalidFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadConfig(dir, "", nil)
	if !errors.Is(err, errConfigInvalid) {
		t.Fatalf("expected errConfigInvalid, got %v", err)
	}
}

func TestLoadConfigExplicitPathMustExist(t *testing.T) {
	t.Parallel()

	_, err := LoadConfig(t.TempDir(), filepath.Join(t.TempDir(), "nope.json"), nil)
	if !errors.Is(err, errConfigFileRead) {
		t.Fatalf("expected errConfigFileRead, got %v", err)
	}
}

func TestConfigOptionsDefaultsToMemoryIndex(t *testing.T) {
	t.Parallel()

	opts, err := Config{}.Options()
	if err != nil {
		t.Fatalf("Options failed: %v", err)
	}

	if opts.Index == nil {
		t.Fatal("expected an index")
	}

	if opts.Logger == nil {
		t.Fatal("expected a logger")
	}
}
