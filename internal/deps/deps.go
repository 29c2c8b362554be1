// Package deps discovers the external binaries the pipeline shells out to.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"rnaseqpipe/internal/config"
)

// Requirement defines an external dependency the pipeline relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements builds the dependency list for a run. Salmon is only required
// when transcript quantification is requested, sbatch only in cluster mode,
// and Rscript only when collation will run.
func Requirements(cfg *config.Config, cluster, quantifyTranscripts, collate bool) []Requirement {
	reqs := []Requirement{
		{Name: "Trim Galore", Command: cfg.Tools.TrimGalore, Description: "adapter and quality trimming"},
		{Name: "STAR", Command: cfg.Tools.STAR, Description: "genome indexing and alignment"},
		{Name: "gffread", Command: cfg.Tools.Gffread, Description: "annotation conversion and transcript extraction"},
		{Name: "Salmon", Command: cfg.Tools.Salmon, Description: "transcript quantification", Optional: !quantifyTranscripts},
		{Name: "Rscript", Command: cfg.Tools.Rscript, Description: "count matrix collation", Optional: !collate},
		{Name: "sbatch", Command: cfg.Tools.Sbatch, Description: "SLURM batch submission", Optional: !cluster},
	}
	return reqs
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// MissingRequired returns the names of required dependencies that are not
// available, in input order.
func MissingRequired(statuses []Status) []string {
	var missing []string
	for _, status := range statuses {
		if !status.Optional && !status.Available {
			missing = append(missing, status.Name)
		}
	}
	return missing
}
