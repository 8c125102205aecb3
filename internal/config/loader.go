package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

type SourceKind string

const (
	SourceDefault SourceKind = "default"
	SourceFile    SourceKind = "file"
)

type Source struct {
	Kind   SourceKind
	Name   string // for default
	File   string
	Line   int
	Column int
}

type LoadResult struct {
	Config  *Config
	Sources map[string]Source // YAML-path -> last writer source (file only)
	Files   []string          // all loaded files, in load order
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/dwindle/config.yaml, creating
// the parent directory if needed.
func DefaultConfigPath() (string, error) {
	path, err := xdg.ConfigFile(filepath.Join("dwindle", "config.yaml"))
	if err != nil {
		return "", fmt.Errorf("failed to resolve config path: %w", err)
	}
	return path, nil
}

// LoadFromPath loads path and its includes. A missing file yields the
// defaults.
func LoadFromPath(path string) (*LoadResult, error) {
	l := &loader{
		seen:    make(map[string]bool),
		sources: make(map[string]Source),
	}

	var raw RawConfig
	if _, err := os.Stat(path); err == nil {
		if raw, err = l.load(path); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	cfg, err := BuildEffectiveConfig(raw)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		return nil, l.withSource(err)
	}
	return &LoadResult{Config: cfg, Sources: l.sources, Files: l.files}, nil
}

// loader merges a config file with its includes. Included files are applied
// first, in order, and the including file last so it wins. A file reached
// twice is merged once.
type loader struct {
	seen    map[string]bool
	chain   []string
	sources map[string]Source
	files   []string
}

func (l *loader) load(path string) (RawConfig, error) {
	file, err := filepath.Abs(path)
	if err != nil {
		return RawConfig{}, fmt.Errorf("resolve %q: %w", path, err)
	}
	if real, err := filepath.EvalSymlinks(file); err == nil {
		file = real
	}
	if slices.Contains(l.chain, file) {
		return RawConfig{}, fmt.Errorf("include cycle detected: %s -> %s", strings.Join(l.chain, " -> "), file)
	}
	if l.seen[file] {
		return RawConfig{}, nil
	}
	l.seen[file] = true

	data, err := os.ReadFile(file)
	if err != nil {
		return RawConfig{}, fmt.Errorf("%s: read: %w", file, err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return RawConfig{}, fmt.Errorf("%s: parse yaml: %w", file, err)
	}
	var own RawConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&own); err != nil && !errors.Is(err, io.EOF) {
		return RawConfig{}, fmt.Errorf("%s: %w", file, err)
	}

	ownSources := make(map[string]Source)
	if root := documentRoot(&doc); root != nil {
		walkSources(root, file, "", ownSources)
	}

	l.chain = append(l.chain, file)
	var merged RawConfig
	for _, ref := range own.Include {
		paths, err := includedFiles(file, ref)
		if err != nil {
			src := ownSources["include"]
			return RawConfig{}, fmt.Errorf("%s:%d:%d: include %q: %w", file, src.Line, src.Column, ref, err)
		}
		for _, p := range paths {
			inc, err := l.load(p)
			if err != nil {
				return RawConfig{}, err
			}
			merged = merged.merge(inc)
		}
	}
	l.chain = l.chain[:len(l.chain)-1]

	for k, src := range ownSources {
		l.sources[k] = src
	}
	l.files = append(l.files, file)
	return merged.merge(own), nil
}

// withSource points a validation error at the file position that set the
// offending key.
func (l *loader) withSource(err error) error {
	var verr *ValidationError
	if errors.As(err, &verr) && verr.Path != "" {
		if src, ok := l.sources[verr.Path]; ok {
			verr.Source = src
		}
	}
	return err
}

// includedFiles resolves an include entry relative to the including file.
// A directory expands to its *.yaml and *.yml files in name order.
func includedFiles(from, ref string) ([]string, error) {
	if ref == "" {
		return nil, errors.New("path is empty")
	}
	if ref == "~" || strings.HasPrefix(ref, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		ref = filepath.Join(home, strings.TrimPrefix(ref[1:], "/"))
	}
	if !filepath.IsAbs(ref) {
		ref = filepath.Join(filepath.Dir(from), ref)
	}

	info, err := os.Stat(ref)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{ref}, nil
	}
	entries, err := os.ReadDir(ref)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, ent := range entries {
		ext := strings.ToLower(filepath.Ext(ent.Name()))
		if !ent.IsDir() && (ext == ".yaml" || ext == ".yml") {
			files = append(files, filepath.Join(ref, ent.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func documentRoot(doc *yaml.Node) *yaml.Node {
	if doc.Kind == yaml.DocumentNode {
		if len(doc.Content) == 0 {
			return nil
		}
		return doc.Content[0]
	}
	return doc
}

// walkSources records the position of every mapping value under its dotted
// key path. Sequences are recorded as a whole.
func walkSources(node *yaml.Node, file, prefix string, out map[string]Source) {
	if node.Kind == yaml.SequenceNode && prefix != "" {
		out[prefix] = Source{Kind: SourceFile, File: file, Line: node.Line, Column: node.Column}
		return
	}
	if node.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i].Value, node.Content[i+1]
		if prefix != "" {
			key = prefix + "." + key
		}
		out[key] = Source{Kind: SourceFile, File: file, Line: val.Line, Column: val.Column}
		walkSources(val, file, key, out)
	}
}
