// Package runfile names, parses and sweeps the external merge-sort loader's
// temporary run files. It adapts the teacher's segment-file naming strategy
// (lexicographically sortable, zero-padded sequence numbers) down to the
// simpler scheme spec.md §6 specifies for merge-sort temporaries:
// temp_order_run_<n>.dat and temp_jewelry_run_<n>.dat.
package runfile

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dataforge/jewelbase/pkg/filesys"
)

// Kind distinguishes the two families of run files the loader produces.
type Kind string

const (
	KindOrder   Kind = "order"
	KindProduct Kind = "jewelry"
)

// prefix returns the filename prefix for a Kind, e.g. "temp_order_run_".
func (k Kind) prefix() string {
	return fmt.Sprintf("temp_%s_run_", string(k))
}

// GenerateName returns the filename for the n-th run of the given kind,
// e.g. GenerateName(KindOrder, 3) == "temp_order_run_3.dat".
func GenerateName(kind Kind, n int) string {
	return fmt.Sprintf("%s%d.dat", kind.prefix(), n)
}

// ParseRunID extracts the run number from a run filename produced by
// GenerateName. It returns an error if the filename doesn't match either
// kind's naming scheme.
func ParseRunID(filename string) (Kind, int, error) {
	base := filepath.Base(filename)

	for _, kind := range []Kind{KindOrder, KindProduct} {
		prefix := kind.prefix()
		if !strings.HasPrefix(base, prefix) {
			continue
		}
		if !strings.HasSuffix(base, ".dat") {
			continue
		}

		numPart := strings.TrimSuffix(strings.TrimPrefix(base, prefix), ".dat")
		n, err := strconv.Atoi(numPart)
		if err != nil {
			return "", 0, fmt.Errorf("run file %q has a non-numeric run id: %w", filename, err)
		}
		return kind, n, nil
	}

	return "", 0, fmt.Errorf("%q does not match a known run-file naming scheme", filename)
}

// Sweep deletes every run file (either kind) found under dir, including in
// its subdirectories, since the search walks the whole tree. It
// is used both for normal Phase-4 cleanup and for sweeping stray temporaries
// left behind by a killed loader process, per spec.md §5's cancellation note.
func Sweep(dir string) error {
	matches, err := filesys.SearchFileExtensions(dir, nil, ".dat")
	if err != nil {
		return err
	}

	var firstErr error
	for _, path := range matches {
		if _, _, err := ParseRunID(path); err != nil {
			continue // not a run file, leave it alone
		}
		if err := filesys.DeleteFile(path); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
