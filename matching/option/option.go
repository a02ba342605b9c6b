package option

import (
	"bufio"
	"io"
	"strings"
)

// Options provides filtering configuration for corpus ingestion
type Options struct {
	// Exclusions contains patterns of files/directories to exclude
	Exclusions []string

	// Inclusions contains patterns of files/directories to include
	Inclusions []string

	// MaxFileSize is the maximum size of files to ingest in bytes
	MaxFileSize int
}

// NewOptions creates a new Options instance with default values
func NewOptions(opts ...Option) *Options {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}
	if options.Exclusions == nil {
		options.Exclusions = getDefaultPatterns()
	}
	return options
}

// Option is a function that modifies Options
type Option func(*Options)

// WithExclusionPatterns sets exclusion patterns
func WithExclusionPatterns(patterns ...string) Option {
	return func(o *Options) {
		o.Exclusions = append(o.Exclusions, patterns...)
	}
}

// WithMaxIngestableSize sets the maximum ingestable file size
func WithMaxIngestableSize(size int) Option {
	return func(o *Options) {
		o.MaxFileSize = size
	}
}

// WithIgnoreFile adds gitignore-style patterns from a reader
func WithIgnoreFile(reader io.Reader) Option {
	return func(o *Options) {
		if patterns := parseIgnoreFile(reader); len(patterns) > 0 {
			o.Exclusions = append(o.Exclusions, patterns...)
		}
	}
}

// WithInclusionPatterns adds patterns to include
func WithInclusionPatterns(patterns ...string) Option {
	return func(o *Options) {
		o.Inclusions = append(o.Inclusions, patterns...)
	}
}

// WithDefaultExclusionPatterns adds default exclusion patterns
func WithDefaultExclusionPatterns() Option {
	return func(o *Options) {
		o.Exclusions = append(o.Exclusions, getDefaultPatterns()...)
	}
}

// getDefaultPatterns returns paths that never belong to a text corpus
func getDefaultPatterns() []string {
	return []string{
		// Directories
		".git/",
		".github/",
		".obsidian/",
		".vscode/",
		".idea/",
		".trash/",
		"node_modules/",

		// Files
		".DS_Store",
		"*.log",
		"*.swp",
		"*.bak",
		"*.tmp",
		"*.lock",
		".env",
	}
}

// parseIgnoreFile reads .gitignore-style patterns from a reader
func parseIgnoreFile(reader io.Reader) []string {
	var patterns []string
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns
}
