package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rnaseqpipe/internal/logging"
	"rnaseqpipe/internal/runtree"
	"rnaseqpipe/internal/samples"
	"rnaseqpipe/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		inputDir            string
		outputDir           string
		genome              string
		annotation          string
		library             string
		cluster             bool
		debug               bool
		transcriptLevel     bool
		quantifyTranscripts bool
		buildTranscriptome  bool
		trimGaloreVersion   string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline over a directory of FASTQ files",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			layout, err := samples.ParseLayout(library)
			if err != nil {
				return err
			}

			tree := runtree.New(outputDir)
			if err := tree.Ensure(); err != nil {
				return fmt.Errorf("create output tree: %w", err)
			}

			level := cfg.Logging.Level
			if debug {
				level = "debug"
			}
			logger, err := logging.New(logging.Options{
				Level:       level,
				Format:      cfg.Logging.Format,
				OutputPaths: []string{"stdout", tree.LogFilePath()},
			})
			if err != nil {
				return err
			}

			req := workflow.Request{
				InputDir:            inputDir,
				OutputDir:           outputDir,
				Genome:              genome,
				Annotation:          annotation,
				Layout:              layout,
				Cluster:             cluster,
				QuantifyTranscripts: quantifyTranscripts,
				TranscriptLevel:     transcriptLevel,
				BuildTranscriptome:  buildTranscriptome,
				TrimGaloreVersion:   trimGaloreVersion,
			}
			return workflow.New(cfg, logger).Run(cmd.Context(), req)
		},
	}

	cmd.Flags().StringVarP(&inputDir, "input", "i", "", "Directory of per-sample FASTQ files")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory for the run")
	cmd.Flags().StringVarP(&genome, "reference", "r", "", "Reference genome FASTA")
	cmd.Flags().StringVarP(&annotation, "annotation", "a", "", "Annotation file (gtf, gff or gff3)")
	cmd.Flags().StringVarP(&library, "library", "l", "", "Library layout: SE or PE")
	cmd.Flags().BoolVar(&cluster, "cluster", false, "Submit alignment jobs to SLURM instead of running locally")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")
	cmd.Flags().BoolVar(&transcriptLevel, "transcript-level", false, "Collate transcript-level counts (requires --quantify-transcripts)")
	cmd.Flags().BoolVar(&quantifyTranscripts, "quantify-transcripts", false, "Quantify transcripts with salmon after alignment")
	cmd.Flags().BoolVar(&buildTranscriptome, "build-transcriptome", false, "Extract the transcriptome FASTA during reference preparation")
	cmd.Flags().StringVar(&trimGaloreVersion, "trim-galore-version", "", "Require this exact trim_galore version")

	for _, flag := range []string{"input", "output", "reference", "annotation", "library"} {
		_ = cmd.MarkFlagRequired(flag)
	}
	return cmd
}
