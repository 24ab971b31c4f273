// Package config loads and validates the rebust project configuration.
//
// The configuration is an HCL file (rebust.hcl by default) that names the
// static resource roots, the code roots to scan, the marker grammar and the
// multibust substitution rules. Validation problems are fatal: a run never
// starts with a half-usable configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/hclsimple"
)

// Marker form names accepted in the marker_form attribute.
const (
	FormQuery    = "query"
	FormFilename = "filename"
)

// Hash function names accepted in the hash_function attribute.
const (
	HashCRC32  = "crc32"
	HashSHA1   = "sha1"
	HashSHA256 = "sha256"
)

// DefaultFilename is the configuration file looked up when --config is not given.
const DefaultFilename = "rebust.hcl"

// MultibustRule maps a placeholder substring to its substitution values.
type MultibustRule struct {
	Placeholder string   `hcl:"placeholder,label"`
	Values      []string `hcl:"values"`
}

// Config is the full project configuration. Zero values are filled in by
// ApplyDefaults before validation.
type Config struct {
	StaticDirs      []string `hcl:"static_dirs"`
	StaticFiletypes []string `hcl:"static_filetypes,optional"`
	CodeDirs        []string `hcl:"code_dirs"`
	CodeFiletypes   []string `hcl:"code_filetypes,optional"`
	IgnoreDirs      []string `hcl:"ignore_dirs,optional"`

	Marker       string `hcl:"marker,optional"`
	MarkerForm   string `hcl:"marker_form,optional"`
	HashFunction string `hcl:"hash_function,optional"`
	HashLength   int    `hcl:"hash_length,optional"`
	MaxFileSize  int64  `hcl:"max_file_size,optional"`

	Multibust []MultibustRule `hcl:"multibust,block"`
}

// DefaultStaticFiletypes mirrors the suffixes a web server typically caches.
var DefaultStaticFiletypes = []string{
	".png", ".gif", ".jpg", ".jpeg", ".ico", ".webp", ".svg",
	".js", ".css", ".swf",
	".mov", ".avi", ".mp4", ".webm", ".ogg",
	".wav", ".mp3", ".ogv", ".opus",
}

// DefaultCodeFiletypes covers the text formats that commonly embed resource URLs.
var DefaultCodeFiletypes = []string{
	".htm", ".html", ".jade", ".erb", ".haml", ".txt", ".md",
	".css", ".sass", ".less", ".scss",
	".xml", ".json", ".yaml", ".cfg", ".ini",
	".js", ".coffee", ".dart", ".ts",
	".py", ".rb", ".php", ".java", ".pl", ".cs", ".lua",
}

// DefaultIgnoreDirs excludes VCS metadata and vendored library trees.
var DefaultIgnoreDirs = []string{
	"*lib/*", "*lib64/*", "*.git/*", "*.hg/*", "*.svn/*",
}

// ApplyDefaults fills unset attributes with their documented defaults.
func (c *Config) ApplyDefaults() {
	if len(c.StaticFiletypes) == 0 {
		c.StaticFiletypes = append([]string(nil), DefaultStaticFiletypes...)
	}
	if len(c.CodeFiletypes) == 0 {
		c.CodeFiletypes = append([]string(nil), DefaultCodeFiletypes...)
	}
	if len(c.IgnoreDirs) == 0 {
		c.IgnoreDirs = append([]string(nil), DefaultIgnoreDirs...)
	}
	if c.Marker == "" {
		c.Marker = "_cb_"
	}
	if c.MarkerForm == "" {
		c.MarkerForm = FormQuery
	}
	if c.HashFunction == "" {
		c.HashFunction = HashCRC32
	}
	if c.HashLength == 0 {
		c.HashLength = 8
	}
	if c.MaxFileSize == 0 {
		c.MaxFileSize = 8 << 20
	}
}

// Validate reports the first fatal configuration problem, if any.
func (c *Config) Validate() error {
	if len(c.StaticDirs) == 0 {
		return fmt.Errorf("config: static_dirs must name at least one directory")
	}
	if len(c.CodeDirs) == 0 {
		return fmt.Errorf("config: code_dirs must name at least one directory")
	}
	switch c.MarkerForm {
	case FormQuery, FormFilename:
	default:
		return fmt.Errorf("config: unknown marker_form %q (want %q or %q)", c.MarkerForm, FormQuery, FormFilename)
	}
	switch c.HashFunction {
	case HashCRC32, HashSHA1, HashSHA256:
	default:
		return fmt.Errorf("config: unknown hash_function %q", c.HashFunction)
	}
	if c.HashLength < 4 || c.HashLength > 32 {
		return fmt.Errorf("config: hash_length %d out of range [4, 32]", c.HashLength)
	}
	// A 4-byte crc32 digest encodes to 7 base32 characters; with the 4-char
	// mtime part that bounds the usable token length at 11.
	if c.HashFunction == HashCRC32 && c.HashLength > 11 {
		return fmt.Errorf("config: hash_length %d is longer than crc32 can fill (max 11); use sha1 or sha256", c.HashLength)
	}
	if c.Marker == "" {
		return fmt.Errorf("config: marker must not be empty")
	}
	seen := make(map[string]bool, len(c.Multibust))
	for _, rule := range c.Multibust {
		if rule.Placeholder == "" {
			return fmt.Errorf("config: multibust placeholder must not be empty")
		}
		if seen[rule.Placeholder] {
			return fmt.Errorf("config: duplicate multibust placeholder %q", rule.Placeholder)
		}
		seen[rule.Placeholder] = true
		if len(rule.Values) == 0 {
			return fmt.Errorf("config: multibust %q has an empty substitution list", rule.Placeholder)
		}
	}
	return nil
}

// Load reads, defaults and validates the configuration at path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := hclsimple.DecodeFile(path, nil, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Locate resolves the configuration path: an absolute or cwd-relative hit
// wins, otherwise the file is looked up inside the project directory.
func Locate(projectDir, cfgPath string) (string, error) {
	if cfgPath == "" {
		cfgPath = DefaultFilename
	}
	if _, err := os.Stat(cfgPath); err == nil {
		return cfgPath, nil
	}
	joined := filepath.Join(projectDir, cfgPath)
	if _, err := os.Stat(joined); err == nil {
		return joined, nil
	}
	return "", fmt.Errorf("config: no such file %q, did you mean `rebust init`?", cfgPath)
}

// MultibustMap returns the rules as placeholder -> values, the shape the
// expander consumes.
func (c *Config) MultibustMap() map[string][]string {
	if len(c.Multibust) == 0 {
		return nil
	}
	m := make(map[string][]string, len(c.Multibust))
	for _, rule := range c.Multibust {
		m[rule.Placeholder] = append([]string(nil), rule.Values...)
	}
	return m
}
