// Package preflight validates the environment before any external tool
// runs: input and output directories must be accessible, the output
// volume must have headroom for alignment intermediates, and the
// required binaries must resolve on PATH. A run aborts on the first
// failed check, before any sample work starts.
package preflight

import (
	"fmt"
	"strings"

	"golang.org/x/sys/unix"

	"rnaseqpipe/internal/deps"
	"rnaseqpipe/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Inputs describes what a run needs checked.
type Inputs struct {
	InputDir  string
	OutputDir string
	// ReadableFiles are reference inputs that must exist and be
	// readable (genome FASTA, annotation).
	ReadableFiles []string
	Requirements  []deps.Requirement
	// MinFreeGiB is the free-space floor on the output volume; zero
	// disables the check.
	MinFreeGiB uint64
}

// RunAll executes every applicable check and returns all results, so
// the operator sees the full picture rather than one failure at a time.
func RunAll(in Inputs) []Result {
	results := []Result{
		checkDirAccess("Input directory", in.InputDir, unix.R_OK|unix.X_OK),
		checkDirAccess("Output directory", in.OutputDir, unix.R_OK|unix.W_OK|unix.X_OK),
	}
	for _, path := range in.ReadableFiles {
		results = append(results, checkFileReadable(path))
	}
	if in.MinFreeGiB > 0 {
		results = append(results, checkFreeSpace(in.OutputDir, in.MinFreeGiB))
	}
	for _, status := range deps.CheckBinaries(in.Requirements) {
		if status.Optional && !status.Available {
			continue
		}
		result := Result{Name: status.Name, Passed: status.Available, Detail: "found"}
		if !status.Available {
			result.Detail = status.Detail
		}
		results = append(results, result)
	}
	return results
}

// Verify runs all checks and converts the failures into a single
// configuration error listing every failed check.
func Verify(in Inputs) error {
	var failed []string
	for _, result := range RunAll(in) {
		if !result.Passed {
			failed = append(failed, fmt.Sprintf("%s: %s", result.Name, result.Detail))
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return services.Wrap(services.ErrConfiguration, "preflight", "verify",
		strings.Join(failed, "; "), nil)
}

func checkDirAccess(name, path string, mode uint32) Result {
	var stat unix.Stat_t
	if err := unix.Stat(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s: %v", path, err)}
	}
	if stat.Mode&unix.S_IFMT != unix.S_IFDIR {
		return Result{Name: name, Detail: fmt.Sprintf("%s is not a directory", path)}
	}
	if err := unix.Access(path, mode); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s: access denied (%v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

func checkFileReadable(path string) Result {
	const name = "Reference file"
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s: %v", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

func checkFreeSpace(path string, minGiB uint64) Result {
	const name = "Output volume free space"
	var fs unix.Statfs_t
	if err := unix.Statfs(path, &fs); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("statfs %s: %v", path, err)}
	}
	freeGiB := fs.Bavail * uint64(fs.Bsize) / (1 << 30)
	if freeGiB < minGiB {
		return Result{Name: name, Detail: fmt.Sprintf("%d GiB free, need %d GiB", freeGiB, minGiB)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d GiB free", freeGiB)}
}
