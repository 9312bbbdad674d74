// Package manifest checks declared artifacts against the filesystem.
package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Report splits a declared manifest by what materialized.
type Report struct {
	Present []string
	Missing []string
}

// Complete reports whether every declared artifact exists.
func (r Report) Complete() bool {
	return len(r.Missing) == 0
}

// Reconcile stats each declared path. Directories and unreadable entries count
// as missing.
func Reconcile(declared []string) Report {
	var report Report
	for _, path := range declared {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			report.Missing = append(report.Missing, path)
			continue
		}
		report.Present = append(report.Present, path)
	}
	return report
}

// Discard removes whichever of paths exist. Already-absent files are not
// errors; other failures are joined.
func Discard(paths []string) error {
	var errs []error
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("discard %s: %w", path, err))
		}
	}
	return errors.Join(errs...)
}
