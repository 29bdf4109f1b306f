package common

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeEnv(t testing.TB, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	return path
}

func TestLoadEnvFile(t *testing.T) {
	t.Setenv("FITTRACK_HTTP_ADDR", ":7000")
	for _, k := range []string{"FITTRACK_JWT_SECRET", "FITTRACK_DB_NAME", "FITTRACK_SERVER", "FITTRACK_REDIS_ADDR"} {
		t.Setenv(k, "")
		_ = os.Unsetenv(k)
	}
	path := writeEnv(t, strings.Join([]string{
		"# local development",
		"FITTRACK_HTTP_ADDR=:9999",
		"FITTRACK_JWT_SECRET=\"abcdefghijklmnopqrstuvwxyz123456\"",
		"export FITTRACK_DB_NAME=fittrack_dev",
		"FITTRACK_SERVER='http://localhost:8080'",
		"FITTRACK_REDIS_ADDR = localhost:6379 ",
		"not a pair",
		"=orphan",
		"",
	}, "\n"))

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	want := map[string]string{
		"FITTRACK_HTTP_ADDR":  ":7000",
		"FITTRACK_JWT_SECRET": "abcdefghijklmnopqrstuvwxyz123456",
		"FITTRACK_DB_NAME":    "fittrack_dev",
		"FITTRACK_SERVER":     "http://localhost:8080",
		"FITTRACK_REDIS_ADDR": "localhost:6379",
	}
	for k, v := range want {
		if got := os.Getenv(k); got != v {
			t.Errorf("%s=%q want %q", k, got, v)
		}
	}
}

func TestLoadEnvFileErrors(t *testing.T) {
	if err := LoadEnvFile(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("absent file should be skipped, got %v", err)
	}
	if err := LoadEnvFile(t.TempDir()); err == nil {
		t.Fatal("expected an error for a directory path")
	}
	long := "FITTRACK_BLOB=" + strings.Repeat("x", 2<<20) + "\n"
	if err := LoadEnvFile(writeEnv(t, long)); err == nil || !strings.Contains(err.Error(), "read env file") {
		t.Fatalf("expected read error for oversized line, got %v", err)
	}
}

func FuzzLoadEnvFile(f *testing.F) {
	f.Add("FITTRACK_A=1\nFITTRACK_B=two\n")
	f.Add("# only a comment\n")
	f.Add("export =\n'\"\n")
	f.Add(strings.Repeat("K", 70000))

	f.Fuzz(func(t *testing.T, content string) {
		if len(content) > 200000 {
			content = content[:200000]
		}
		err := LoadEnvFile(writeEnv(t, content))
		if err != nil && !strings.Contains(err.Error(), "read env file") {
			t.Fatalf("unexpected error class: %v", err)
		}
	})
}

func TestWriteCIResult(t *testing.T) {
	var buf bytes.Buffer
	WriteCIResult(&buf, false, "log bodyweight", []string{"value: 81.4"}, errors.New("server unreachable"))
	out := buf.String()
	for _, want := range []string{`"ok":false`, `"title":"log bodyweight"`, `"server unreachable"`, `"value: 81.4"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %s in %q", want, out)
		}
	}
	if !strings.HasSuffix(out, "\n") {
		t.Fatal("expected newline-terminated record")
	}
}
