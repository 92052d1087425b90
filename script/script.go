// Package script loads scenario scripts from YAML and binds them to an IDE
// workbench.
//
// A script is a playbook.Outline:
//
//	name: error markers
//	steps:
//	  - kind: action
//	    name: type
//	    args: {text: "c"}
//	  - kind: assertion
//	    name: marker
//	    args: {kind: error, line: "1"}
//	    timeout: 10s
//
// Step names come from a fixed vocabulary; see Bind.
package script

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cboone/playbook"
)

// Script is a loaded script file.
type Script struct {
	Path    string
	Outline playbook.Outline
}

// Load reads one script. Unknown fields are rejected. A script without a
// name is named after its file.
func Load(path string) (Script, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Script{}, fmt.Errorf("script: %w", err)
	}
	o, err := Parse(b)
	if err != nil {
		return Script{}, fmt.Errorf("script: %s: %w", path, err)
	}
	if o.Name == "" {
		o.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return Script{Path: path, Outline: o}, nil
}

// Parse decodes a single YAML outline.
func Parse(b []byte) (playbook.Outline, error) {
	var o playbook.Outline
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&o); err != nil {
		if errors.Is(err, io.EOF) {
			return o, errors.New("empty script")
		}
		return o, err
	}
	if o.Steps == nil {
		return o, errors.New("script has no steps list")
	}
	return o, nil
}

// LoadDir loads every .yaml and .yml file directly under dir, in file name
// order. A non-empty filter is a glob matched against base names.
func LoadDir(dir, filter string) ([]Script, error) {
	files, err := dirFiles(dir, filter)
	if err != nil {
		return nil, err
	}
	return loadAll(files)
}

// LoadPaths loads each path, expanding directories with LoadDir.
func LoadPaths(paths []string, filter string) ([]Script, error) {
	files, err := Files(paths, filter)
	if err != nil {
		return nil, err
	}
	return loadAll(files)
}

// Files expands paths into script files without reading them. Directories
// contribute their scripts as LoadDir would; file paths are kept as given.
func Files(paths []string, filter string) ([]string, error) {
	var files []string
	for _, p := range paths {
		fi, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("script: %w", err)
		}
		if !fi.IsDir() {
			files = append(files, p)
			continue
		}
		f, err := dirFiles(p, filter)
		if err != nil {
			return nil, err
		}
		files = append(files, f...)
	}
	return files, nil
}

func dirFiles(dir, filter string) ([]string, error) {
	if filter != "" {
		if _, err := filepath.Match(filter, ""); err != nil {
			return nil, fmt.Errorf("script: filter %q: %w", filter, err)
		}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}

	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !isScript(name) {
			continue
		}
		if filter != "" {
			if ok, _ := filepath.Match(filter, name); !ok {
				continue
			}
		}
		files = append(files, filepath.Join(dir, name))
	}
	return files, nil
}

func loadAll(files []string) ([]Script, error) {
	scripts := make([]Script, 0, len(files))
	for _, f := range files {
		s, err := Load(f)
		if err != nil {
			return nil, err
		}
		scripts = append(scripts, s)
	}
	return scripts, nil
}

func isScript(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}
