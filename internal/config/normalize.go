package config

import "strings"

func (c *Config) normalize() error {
	c.normalizeTools()
	c.normalizeTuning()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeTools() {
	setDefault := func(field *string, fallback string) {
		if strings.TrimSpace(*field) == "" {
			*field = fallback
		} else {
			*field = strings.TrimSpace(*field)
		}
	}
	setDefault(&c.Tools.TrimGalore, defaultTrimGaloreBinary)
	setDefault(&c.Tools.STAR, defaultSTARBinary)
	setDefault(&c.Tools.Salmon, defaultSalmonBinary)
	setDefault(&c.Tools.Gffread, defaultGffreadBinary)
	setDefault(&c.Tools.Rscript, defaultRscriptBinary)
	setDefault(&c.Tools.Sbatch, defaultSbatchBinary)
}

func (c *Config) normalizeTuning() {
	if c.Index.Threads <= 0 {
		c.Index.Threads = defaultIndexThreads
	}
	if c.Index.RAMBytes <= 0 {
		c.Index.RAMBytes = defaultIndexRAMBytes
	}
	if c.Align.Threads <= 0 {
		c.Align.Threads = defaultAlignThreads
	}
	if c.Execution.SubmissionDelaySeconds < 0 {
		c.Execution.SubmissionDelaySeconds = defaultSubmissionDelaySeconds
	}
	if c.Execution.PollIntervalSeconds <= 0 {
		c.Execution.PollIntervalSeconds = defaultPollIntervalSeconds
	}
	if c.Execution.AwaitTimeoutMinutes < 0 {
		c.Execution.AwaitTimeoutMinutes = defaultAwaitTimeoutMinutes
	}
	if c.Slurm.CPUsPerTask <= 0 {
		c.Slurm.CPUsPerTask = defaultSlurmCPUsPerTask
	}
	if strings.TrimSpace(c.Slurm.Time) == "" {
		c.Slurm.Time = defaultSlurmTime
	}
	if strings.TrimSpace(c.Slurm.Mem) == "" {
		c.Slurm.Mem = defaultSlurmMem
	}
	if c.Preflight.MinFreeGiB < 0 {
		c.Preflight.MinFreeGiB = defaultMinFreeGiB
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
