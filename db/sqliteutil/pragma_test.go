package sqliteutil

import "testing"

func TestEnsurePragmas(t *testing.T) {
	got := EnsurePragmas("/tmp/corpus.sqlite", true, 5000)
	want := "/tmp/corpus.sqlite?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestEnsurePragmasIdempotent(t *testing.T) {
	once := EnsurePragmas("/tmp/corpus.sqlite", true, 5000)
	twice := EnsurePragmas(once, true, 5000)
	if once != twice {
		t.Fatalf("pragmas duplicated: %q", twice)
	}
}

func TestEnsurePragmasMemoryDSN(t *testing.T) {
	for _, dsn := range []string{":memory:", "file::memory:?cache=shared", ""} {
		if got := EnsurePragmas(dsn, true, 5000); got != dsn {
			t.Fatalf("memory dsn should pass through: %q -> %q", dsn, got)
		}
	}
}

func TestEnsurePragmasExistingQuery(t *testing.T) {
	got := EnsurePragmas("/tmp/db.sqlite?cache=shared", false, 100)
	want := "/tmp/db.sqlite?cache=shared&_pragma=busy_timeout(100)"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
