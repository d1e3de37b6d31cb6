package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/roach88/buttons/internal/automaton"
)

// LoadMode controls how errors are handled during loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the patterns compiled from a directory.
type LoadResult struct {
	Patterns  []*automaton.Definition
	Files     []string
	FileCount int
}

// Lookup returns the pattern with the given name.
func (r *LoadResult) Lookup(name string) (*automaton.Definition, bool) {
	for _, d := range r.Patterns {
		if d.Name() == name {
			return d, true
		}
	}
	return nil, false
}

// LoadError represents a directory-level failure.
type LoadError struct {
	Code    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Load error codes.
const (
	ErrCodeNotFound  = "E005"
	ErrCodeScanError = "E002"
	ErrCodeNoFiles   = "E003"
	ErrCodeReadError = "E004"
	ErrCodeDuplicate = "E008"
)

// LoadDir compiles every .cue file under dir, in lexical path order.
// Pattern names must be unique across the directory.
func (c *Compiler) LoadDir(dir string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("patterns directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing patterns directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(files) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	result := &LoadResult{Files: files, FileCount: len(files)}
	seen := make(map[string]string)
	var errs []error

	for _, path := range files {
		src, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, &LoadError{Code: ErrCodeReadError, Message: fmt.Sprintf("reading %s: %v", path, err)})
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}

		defs, fileErrs := c.CompileSource(path, src)
		errs = append(errs, fileErrs...)
		if len(fileErrs) > 0 && mode == LoadModeFailFast {
			return result, errs
		}

		for _, d := range defs {
			if prev, dup := seen[d.Name()]; dup {
				errs = append(errs, &LoadError{
					Code:    ErrCodeDuplicate,
					Message: fmt.Sprintf("pattern %q in %s already defined in %s", d.Name(), path, prev),
				})
				if mode == LoadModeFailFast {
					return result, errs
				}
				continue
			}
			seen[d.Name()] = path
			result.Patterns = append(result.Patterns, d)
		}
	}

	return result, errs
}

// FindCUEFiles walks the directory and returns all .cue file paths, sorted.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}
