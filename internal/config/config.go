package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Tools contains the executable names of the external collaborators. Each may
// be overridden to pin a wrapper script or a module-system shim.
type Tools struct {
	TrimGalore string `toml:"trim_galore"`
	STAR       string `toml:"star"`
	Salmon     string `toml:"salmon"`
	Gffread    string `toml:"gffread"`
	Rscript    string `toml:"rscript"`
	Sbatch     string `toml:"sbatch"`
}

// Index contains tuning for the STAR genome index build.
type Index struct {
	Threads  int   `toml:"threads"`
	RAMBytes int64 `toml:"ram_bytes"`
}

// Align contains tuning for per-sample STAR alignment jobs.
type Align struct {
	Threads int `toml:"threads"`
}

// Execution contains dispatch and completion-tracking settings.
type Execution struct {
	SubmissionDelaySeconds int `toml:"submission_delay_seconds"`
	PollIntervalSeconds    int `toml:"poll_interval_seconds"`
	// AwaitTimeoutMinutes bounds the completion poll. Zero keeps the
	// original unbounded behaviour.
	AwaitTimeoutMinutes int `toml:"await_timeout_minutes"`
}

// Slurm contains batch-queue submission settings.
type Slurm struct {
	Partition   string `toml:"partition"`
	Time        string `toml:"time"`
	Mem         string `toml:"mem"`
	CPUsPerTask int    `toml:"cpus_per_task"`
}

// Preflight contains checks run before any external tool is invoked.
type Preflight struct {
	MinFreeGiB int `toml:"min_free_gib"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for rnaseqpipe.
//
// Configuration sections by subsystem:
//   - Tools: external binary names (trim_galore, STAR, salmon, gffread,
//     Rscript, sbatch)
//   - Index: STAR genomeGenerate thread count and memory ceiling
//   - Align: per-sample STAR thread count
//   - Execution: sbatch rate limiting and completion-poll interval
//   - Slurm: submission script resource directives
//   - Preflight: free-space floor checked before a run starts
//   - Logging: log format and level
type Config struct {
	Tools     Tools     `toml:"tools"`
	Index     Index     `toml:"index"`
	Align     Align     `toml:"align"`
	Execution Execution `toml:"execution"`
	Slurm     Slurm     `toml:"slurm"`
	Preflight Preflight `toml:"preflight"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/rnaseqpipe/config.toml")
}

// Load locates, parses, and validates a configuration file. A missing file is
// not an error; defaults apply.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("rnaseqpipe.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// WriteSample writes the annotated sample configuration to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
