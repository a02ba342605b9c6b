package matching

import (
	"strings"
	"testing"

	"github.com/vaidya-ai/vaidya/matching/option"
)

func TestDefaultExclusions(t *testing.T) {
	m := New()
	excluded := []string{
		".git/config",
		"notes/.obsidian/workspace.json",
		"node_modules/pkg/index.js",
		"debug.log",
		".DS_Store",
		"backup.bak",
	}
	for _, path := range excluded {
		if !m.IsExcluded(path, 10) {
			t.Fatalf("expected %q excluded by defaults", path)
		}
	}
	included := []string{"texts/triphala.md", "classics/charaka/sutra.txt"}
	for _, path := range included {
		if m.IsExcluded(path, 10) {
			t.Fatalf("expected %q included", path)
		}
	}
}

func TestMaxFileSize(t *testing.T) {
	m := New(option.WithMaxIngestableSize(100))
	if !m.IsExcluded("big.md", 101) {
		t.Fatalf("oversized file should be excluded")
	}
	if m.IsExcluded("ok.md", 100) {
		t.Fatalf("file at the limit should be included")
	}
}

func TestInclusionPatterns(t *testing.T) {
	m := New(option.WithInclusionPatterns("*.md"))
	if m.IsExcluded("texts/triphala.md", 10) {
		t.Fatalf("matching inclusion should pass")
	}
	if !m.IsExcluded("texts/notes.txt", 10) {
		t.Fatalf("non-matching file should be excluded when inclusions are set")
	}
}

func TestExclusionPatterns(t *testing.T) {
	m := New(option.WithExclusionPatterns("drafts/", "*.tmp.md"))
	if !m.IsExcluded("drafts/wip.md", 10) {
		t.Fatalf("directory pattern should exclude contents")
	}
	if !m.IsExcluded("texts/a.tmp.md", 10) {
		t.Fatalf("glob pattern should exclude matching files")
	}
	if m.IsExcluded("texts/final.md", 10) {
		t.Fatalf("unmatched file should pass")
	}
}

func TestIgnoreFileOption(t *testing.T) {
	ignore := "# comment\n\n*.secret\nprivate/\n"
	m := New(option.WithIgnoreFile(strings.NewReader(ignore)), option.WithDefaultExclusionPatterns())
	if !m.IsExcluded("keys.secret", 10) {
		t.Fatalf("ignore-file pattern should apply")
	}
	if !m.IsExcluded("private/journal.md", 10) {
		t.Fatalf("ignore-file directory pattern should apply")
	}
	if m.IsExcluded("public/readme.md", 10) {
		t.Fatalf("comments and blanks must not exclude everything")
	}
}
