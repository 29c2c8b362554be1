// Package refindex manages the reference index lifecycle: annotation
// normalization, optional transcript extraction, and the build-or-reuse
// decision for the STAR genome index.
package refindex

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"rnaseqpipe/internal/config"
	"rnaseqpipe/internal/fileutil"
	"rnaseqpipe/internal/logging"
	"rnaseqpipe/internal/runtree"
	"rnaseqpipe/internal/services"
	"rnaseqpipe/internal/services/gffread"
	"rnaseqpipe/internal/services/star"
)

// genomeRecord is the file inside an index directory naming the genome the
// index was built from. It drives the reuse decision.
const genomeRecord = "genomeref.txt"

// Reference describes the inputs to index preparation.
type Reference struct {
	GenomePath     string
	AnnotationPath string
	// ExtractTranscripts additionally builds the transcript sequence file
	// needed for salmon quantification or a built transcriptome.
	ExtractTranscripts bool
}

// Result reports the prepared reference artifacts.
type Result struct {
	GTFPath          string
	IndexDir         string
	TranscriptsFasta string
	// IndexReused is true when a prior build was detected and the
	// expensive genomeGenerate step was skipped.
	IndexReused bool
}

// Manager prepares the reference index for a run.
type Manager struct {
	tree    runtree.Tree
	gffread *gffread.Client
	star    *star.Client
	tuning  config.Index
	logger  *slog.Logger
}

// New constructs a Manager.
func New(tree runtree.Tree, gffreadClient *gffread.Client, starClient *star.Client, tuning config.Index, logger *slog.Logger) *Manager {
	return &Manager{
		tree:    tree,
		gffread: gffreadClient,
		star:    starClient,
		tuning:  tuning,
		logger:  logging.NewComponentLogger(logger, "refindex"),
	}
}

// Prepare normalizes the annotation, extracts transcripts if requested, and
// builds or reuses the genome index. It completes before any per-sample job
// starts.
func (m *Manager) Prepare(ctx context.Context, ref Reference) (*Result, error) {
	ctx = logging.WithStage(ctx, "index")
	logger := logging.WithContext(ctx, m.logger)

	gtfPath, err := m.normalizeAnnotation(ctx, ref.AnnotationPath)
	if err != nil {
		return nil, err
	}

	genomePath, err := m.linkGenome(ref.GenomePath)
	if err != nil {
		return nil, err
	}

	result := &Result{GTFPath: gtfPath, IndexDir: m.tree.IndexDir()}

	if ref.ExtractTranscripts {
		fasta := m.tree.TranscriptsFasta()
		if err := m.gffread.ExtractTranscripts(ctx, genomePath, gtfPath, fasta); err != nil {
			return nil, err
		}
		result.TranscriptsFasta = fasta
		logger.Info("transcript sequences extracted", logging.String("path", fasta))
	}

	reused, err := m.reuseIndex(ref.GenomePath, logger)
	if err != nil {
		return nil, err
	}
	if reused {
		result.IndexReused = true
		logger.Info("reusing existing genome index", logging.String("index_dir", result.IndexDir))
		return result, nil
	}

	logger.Info("building genome index",
		logging.String("index_dir", result.IndexDir),
		logging.Int("threads", m.tuning.Threads))
	if err := os.MkdirAll(result.IndexDir, 0o755); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}
	if err := m.star.BuildIndex(ctx, star.GenomeGenerateRequest{
		IndexDir:  result.IndexDir,
		FastaPath: genomePath,
		GTFPath:   gtfPath,
		Threads:   m.tuning.Threads,
		RAMBytes:  m.tuning.RAMBytes,
	}); err != nil {
		return nil, err
	}
	if err := writeGenomeRecord(result.IndexDir, ref.GenomePath); err != nil {
		return nil, err
	}
	logger.Info("genome index built", logging.String("index_dir", result.IndexDir))
	return result, nil
}

// normalizeAnnotation materializes the annotation under the genome directory
// in GTF form. gff and gff3 inputs are converted; anything else but gtf is a
// configuration error.
func (m *Manager) normalizeAnnotation(ctx context.Context, annotationPath string) (string, error) {
	base := filepath.Base(annotationPath)
	ext := strings.ToLower(filepath.Ext(base))
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	switch ext {
	case ".gtf":
		target := filepath.Join(m.tree.Genome(), base)
		if err := fileutil.LinkOrCopy(annotationPath, target); err != nil {
			return "", fmt.Errorf("link annotation into genome dir: %w", err)
		}
		return target, nil
	case ".gff", ".gff3":
		target := filepath.Join(m.tree.Genome(), stem+".gtf")
		if err := m.gffread.ConvertToGTF(ctx, annotationPath, target); err != nil {
			return "", err
		}
		return target, nil
	default:
		return "", services.Wrap(services.ErrConfiguration, "index", "annotation",
			fmt.Sprintf("unsupported annotation format %q (want .gtf, .gff, or .gff3)", ext), nil)
	}
}

func (m *Manager) linkGenome(genomePath string) (string, error) {
	target := filepath.Join(m.tree.Genome(), filepath.Base(genomePath))
	if sameFile(genomePath, target) {
		return target, nil
	}
	if err := fileutil.LinkOrCopy(genomePath, target); err != nil {
		return "", fmt.Errorf("link genome into genome dir: %w", err)
	}
	return target, nil
}

// reuseIndex checks the two reuse conditions: an index already present in the
// target directory built from this genome, or an index next to the source
// genome built from a genome with the same base name. The latter is
// materialized into the target via hard links rather than copies.
func (m *Manager) reuseIndex(genomePath string, logger *slog.Logger) (bool, error) {
	targetDir := m.tree.IndexDir()
	genomeBase := filepath.Base(genomePath)

	if recordMatches(targetDir, genomeBase) {
		return true, nil
	}

	sourceDir := filepath.Join(filepath.Dir(genomePath), "index")
	if sourceDir != targetDir && recordMatches(sourceDir, genomeBase) {
		logger.Info("materializing prior index from genome source directory",
			logging.String("source", sourceDir))
		if err := os.MkdirAll(targetDir, 0o755); err != nil {
			return false, fmt.Errorf("create index directory: %w", err)
		}
		if err := fileutil.MaterializeTree(sourceDir, targetDir); err != nil {
			return false, fmt.Errorf("materialize prior index: %w", err)
		}
		return true, nil
	}

	return false, nil
}

func recordMatches(indexDir, genomeBase string) bool {
	data, err := os.ReadFile(filepath.Join(indexDir, genomeRecord))
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(data)) == genomeBase
}

func writeGenomeRecord(indexDir, genomePath string) error {
	path := filepath.Join(indexDir, genomeRecord)
	if err := os.WriteFile(path, []byte(filepath.Base(genomePath)+"\n"), 0o644); err != nil {
		return fmt.Errorf("record index genome: %w", err)
	}
	return nil
}

func sameFile(a, b string) bool {
	infoA, errA := os.Stat(a)
	infoB, errB := os.Stat(b)
	if errA != nil || errB != nil {
		return false
	}
	return os.SameFile(infoA, infoB)
}
