// Package star wraps STAR genome indexing and alignment invocations.
package star

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"rnaseqpipe/internal/services"
	"rnaseqpipe/internal/services/runner"
)

// GenomeGenerateRequest describes an index build.
type GenomeGenerateRequest struct {
	IndexDir  string
	FastaPath string
	GTFPath   string
	Threads   int
	RAMBytes  int64
}

// GenomeGenerateArgs builds the STAR genomeGenerate argument list.
func GenomeGenerateArgs(req GenomeGenerateRequest) []string {
	return []string{
		"--runMode", "genomeGenerate",
		"--genomeDir", req.IndexDir,
		"--genomeFastaFiles", req.FastaPath,
		"--sjdbGTFfile", req.GTFPath,
		"--runThreadN", strconv.Itoa(req.Threads),
		"--limitGenomeGenerateRAM", strconv.FormatInt(req.RAMBytes, 10),
	}
}

// AlignRequest describes a per-sample alignment.
type AlignRequest struct {
	IndexDir string
	// Reads holds one trimmed file for single-end input, two for paired.
	Reads   []string
	Gzip    bool
	Threads int
	// OutPrefix is the STAR --outFileNamePrefix, typically
	// <outdir>/STAR_aln/<sample>/<sample>_.
	OutPrefix string
	// QuantTranscriptome additionally emits Aligned.toTranscriptome.out.bam
	// for downstream transcript quantification.
	QuantTranscriptome bool
}

// AlignArgs builds the STAR alignReads argument list.
func AlignArgs(req AlignRequest) []string {
	args := []string{
		"--runMode", "alignReads",
		"--genomeDir", req.IndexDir,
		"--readFilesIn",
	}
	args = append(args, req.Reads...)
	if req.Gzip {
		args = append(args, "--readFilesCommand", "zcat")
	}
	quantModes := []string{"GeneCounts"}
	if req.QuantTranscriptome {
		quantModes = append(quantModes, "TranscriptomeSAM")
	}
	args = append(args, "--quantMode")
	args = append(args, quantModes...)
	args = append(args,
		"--outSAMtype", "BAM", "SortedByCoordinate",
		"--runThreadN", strconv.Itoa(req.Threads),
		"--outFileNamePrefix", req.OutPrefix,
	)
	return args
}

// MarkerPath returns the completion marker STAR writes for a prefix.
func MarkerPath(outPrefix string) string {
	return outPrefix + "Log.final.out"
}

// GeneCountsPath returns the per-sample gene count table for a prefix.
func GeneCountsPath(outPrefix string) string {
	return outPrefix + "ReadsPerGene.out.tab"
}

// TranscriptomeBAMPath returns the transcriptome-space BAM for a prefix.
func TranscriptomeBAMPath(outPrefix string) string {
	return outPrefix + "Aligned.toTranscriptome.out.bam"
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec runner.Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps STAR CLI interactions.
type Client struct {
	binary string
	exec   runner.Executor
}

// New constructs a STAR client.
func New(binary string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("STAR binary required")
	}
	client := &Client{binary: binary, exec: runner.New()}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// BuildIndex runs genomeGenerate synchronously. The build is the single most
// expensive local step; failures surface the stderr tail to the operator.
func (c *Client) BuildIndex(ctx context.Context, req GenomeGenerateRequest) error {
	result, err := c.exec.Run(ctx, c.binary, GenomeGenerateArgs(req), runner.Options{})
	if err != nil {
		wrapped := services.Wrap(services.ErrExternalTool, "index", "genomeGenerate", "index build failed", err)
		return services.WithStderr(wrapped, result.Stderr)
	}
	return nil
}
