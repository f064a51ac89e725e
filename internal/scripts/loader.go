// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package scripts locates SQL test scripts inside a fixed base directory.
//
// Script names arrive from HTTP requests and are untrusted: every directory
// component is stripped and the file is opened through an os.Root, so a request
// can never read outside the base directory.
package scripts

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	apperr "plcheck/cli/internal/errors"
)

// Extension is the suffix of files listed by the Catalog.
const Extension = ".sql"

// Loader reads scripts from one base directory chosen at process start.
type Loader struct {
	dir string
}

// NewLoader returns a Loader rooted at dir. The directory does not have to exist yet.
func NewLoader(dir string) (*Loader, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, apperr.New(apperr.ConfigError, "scripts directory is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, apperr.Wrap(apperr.ConfigError, "invalid scripts directory", err)
	}
	return &Loader{dir: abs}, nil
}

// Dir returns the absolute base directory.
func (l *Loader) Dir() string { return l.dir }

// BaseName strips every directory component from name, accepting both '/' and
// '\' as separators. Trailing separators are ignored.
func BaseName(name string) string {
	name = strings.TrimRight(name, `/\`)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// Resolve returns the text of the script called name.
// Any failure to locate a regular file yields a ScriptNotFound error.
func (l *Loader) Resolve(name string) (string, error) {
	base := BaseName(name)
	if base == "" || base == "." || base == ".." {
		return "", notFound(name)
	}

	root, err := os.OpenRoot(l.dir)
	if err != nil {
		return "", apperr.Wrap(apperr.ScriptNotFound, fmt.Sprintf("Script not found: %s", base), err)
	}
	defer root.Close()

	f, err := root.Open(base)
	if err != nil {
		return "", apperr.Wrap(apperr.ScriptNotFound, fmt.Sprintf("Script not found: %s", base), err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", apperr.Wrap(apperr.ScriptNotFound, fmt.Sprintf("Script not found: %s", base), err)
	}
	if !info.Mode().IsRegular() {
		return "", apperr.Wrap(apperr.ScriptNotFound, fmt.Sprintf("Script not found: %s", base), fs.ErrInvalid)
	}

	body, err := io.ReadAll(f)
	if err != nil {
		return "", apperr.Wrap(apperr.Internal, fmt.Sprintf("failed to read script %s", base), err)
	}
	return string(body), nil
}

func notFound(name string) error {
	return apperr.Wrap(apperr.ScriptNotFound, fmt.Sprintf("Script not found: %s", name), errors.New("not a file name"))
}
