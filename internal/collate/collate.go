// Package collate builds the combined count matrix after all per-sample
// jobs have finished. It discovers the per-sample count tables under the
// run tree, renders an R script that column-binds the designated count
// column from each table, and hands the script to the Rscript
// interpreter. A collation failure is reported to the caller but never
// touches the per-sample outputs that produced it.
package collate

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"rnaseqpipe/internal/logging"
	"rnaseqpipe/internal/runtree"
	"rnaseqpipe/internal/services"
	"rnaseqpipe/internal/services/rscript"
	"rnaseqpipe/internal/services/salmon"
	"rnaseqpipe/internal/services/star"
)

// Level selects which per-sample table feeds the combined matrix.
type Level int

const (
	// GeneLevel collates the aligner's per-gene count tables.
	GeneLevel Level = iota
	// TranscriptLevel collates the quantifier's per-transcript tables.
	TranscriptLevel
)

func (l Level) String() string {
	if l == TranscriptLevel {
		return "transcript"
	}
	return "gene"
}

const (
	// ScriptName is the generated R script, written under Logs/.
	ScriptName = "collate_counts.R"
	// OutputName is the combined matrix written at the run root.
	OutputName = "collated_counts.csv"
)

// geneCountsSuffix matches the aligner's per-sample count table name.
var geneCountsSuffix = star.GeneCountsPath("")

// quantFileName matches the quantifier's per-sample table name.
var quantFileName = filepath.Base(salmon.QuantFilePath(""))

// File is one discovered per-sample count table.
type File struct {
	Path   string
	Sample string
}

// Discover walks the run tree and returns every count table matching the
// requested level, sorted by sample for a stable column order.
func Discover(tree runtree.Tree, level Level) ([]File, error) {
	var files []File
	err := filepath.WalkDir(tree.Aln(), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		switch level {
		case TranscriptLevel:
			if name == quantFileName {
				files = append(files, File{Path: path, Sample: quantSample(path)})
			}
		default:
			if strings.HasSuffix(name, geneCountsSuffix) {
				files = append(files, File{
					Path:   path,
					Sample: strings.TrimSuffix(name, "_"+geneCountsSuffix),
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "collate", "discover",
			"walking alignment outputs", err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Sample < files[j].Sample })
	return files, nil
}

// quantSample recovers the sample name from a
// STAR_aln/<sample>/quant/quant.sf path.
func quantSample(path string) string {
	return filepath.Base(filepath.Dir(filepath.Dir(path)))
}

// Collator renders and runs the collation script for one run.
type Collator struct {
	tree    runtree.Tree
	rscript *rscript.Client
	log     *slog.Logger
}

// New constructs a collator over the given run tree.
func New(tree runtree.Tree, client *rscript.Client, log *slog.Logger) *Collator {
	if log == nil {
		log = logging.NewNop()
	}
	return &Collator{tree: tree, rscript: client, log: logging.NewComponentLogger(log, "collate")}
}

// Run discovers the count tables for level, writes the R script under
// Logs/ and executes it with the run root as working directory, so the
// combined matrix lands next to the per-sample output tree.
func (c *Collator) Run(ctx context.Context, level Level) error {
	files, err := Discover(c.tree, level)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return services.Wrap(services.ErrNotFound, "collate", "discover",
			fmt.Sprintf("no %s-level count tables under %s", level, c.tree.Aln()), nil)
	}

	scriptPath := filepath.Join(c.tree.Logs(), ScriptName)
	if err := os.WriteFile(scriptPath, []byte(Script(files, level)), 0o644); err != nil {
		return services.Wrap(services.ErrConfiguration, "collate", "write_script",
			"writing collation script", err)
	}

	c.log.Info("collating counts",
		slog.String("level", level.String()),
		slog.Int("tables", len(files)),
		slog.String("script", scriptPath))

	if err := c.rscript.RunScript(ctx, scriptPath, c.tree.Root); err != nil {
		return err
	}
	c.log.Info("collation complete",
		slog.String("output", filepath.Join(c.tree.Root, OutputName)))
	return nil
}

// Script renders the R source that reads the designated column out of
// each table and column-binds them into one matrix keyed by sample.
// Gene tables are headerless with counts in column 2; quantifier tables
// carry a header with read counts in column 5.
func Script(files []File, level Level) string {
	header := "FALSE"
	column := 2
	if level == TranscriptLevel {
		header = "TRUE"
		column = 5
	}

	paths := make([]string, len(files))
	samples := make([]string, len(files))
	for i, f := range files {
		paths[i] = "  " + quoteR(f.Path)
		samples[i] = "  " + quoteR(f.Sample)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "files <- c(\n%s\n)\n", strings.Join(paths, ",\n"))
	fmt.Fprintf(&b, "samples <- c(\n%s\n)\n\n", strings.Join(samples, ",\n"))
	fmt.Fprintf(&b, "tables <- lapply(files, read.delim, header = %s)\n", header)
	fmt.Fprintf(&b, "counts <- do.call(cbind, lapply(tables, function(tab) tab[[%d]]))\n", column)
	b.WriteString("colnames(counts) <- samples\n")
	b.WriteString("rownames(counts) <- tables[[1]][[1]]\n")
	fmt.Fprintf(&b, "write.csv(counts, %s)\n", quoteR(OutputName))
	return b.String()
}

// quoteR renders s as a double-quoted R string literal.
func quoteR(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
