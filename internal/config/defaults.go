package config

const (
	defaultTrimGaloreBinary = "trim_galore"
	defaultSTARBinary       = "STAR"
	defaultSalmonBinary     = "salmon"
	defaultGffreadBinary    = "gffread"
	defaultRscriptBinary    = "Rscript"
	defaultSbatchBinary     = "sbatch"

	defaultIndexThreads  = 8
	defaultIndexRAMBytes = int64(48_000_000_000)
	defaultAlignThreads  = 8

	defaultSubmissionDelaySeconds = 2
	defaultPollIntervalSeconds    = 300
	defaultAwaitTimeoutMinutes    = 0

	defaultSlurmTime        = "12:00:00"
	defaultSlurmMem         = "48G"
	defaultSlurmCPUsPerTask = 8

	defaultMinFreeGiB = 50

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Tools: Tools{
			TrimGalore: defaultTrimGaloreBinary,
			STAR:       defaultSTARBinary,
			Salmon:     defaultSalmonBinary,
			Gffread:    defaultGffreadBinary,
			Rscript:    defaultRscriptBinary,
			Sbatch:     defaultSbatchBinary,
		},
		Index: Index{
			Threads:  defaultIndexThreads,
			RAMBytes: defaultIndexRAMBytes,
		},
		Align: Align{
			Threads: defaultAlignThreads,
		},
		Execution: Execution{
			SubmissionDelaySeconds: defaultSubmissionDelaySeconds,
			PollIntervalSeconds:    defaultPollIntervalSeconds,
			AwaitTimeoutMinutes:    defaultAwaitTimeoutMinutes,
		},
		Slurm: Slurm{
			Time:        defaultSlurmTime,
			Mem:         defaultSlurmMem,
			CPUsPerTask: defaultSlurmCPUsPerTask,
		},
		Preflight: Preflight{
			MinFreeGiB: defaultMinFreeGiB,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
