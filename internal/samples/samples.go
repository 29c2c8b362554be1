// Package samples discovers and classifies per-sample read files in an input
// directory.
package samples

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"rnaseqpipe/internal/services"
)

// Layout describes whether a sample's reads are single- or paired-ended.
type Layout string

const (
	LayoutSingle Layout = "SE"
	LayoutPaired Layout = "PE"
)

// ParseLayout validates a library-type flag value.
func ParseLayout(value string) (Layout, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "SE":
		return LayoutSingle, nil
	case "PE":
		return LayoutPaired, nil
	default:
		return "", services.Wrap(services.ErrConfiguration, "samples", "layout",
			fmt.Sprintf("library type must be SE or PE, got %q", value), nil)
	}
}

// Compression describes whether raw inputs are gzip-compressed. A run has
// exactly one compression mode, detected from the first discovered file.
type Compression string

const (
	CompressionPlain Compression = "plain"
	CompressionGzip  Compression = "gzip"
)

const (
	plainSuffix = ".fastq"
	gzipSuffix  = ".fastq.gz"
)

// Suffix returns the filename suffix for the compression mode.
func (c Compression) Suffix() string {
	if c == CompressionGzip {
		return gzipSuffix
	}
	return plainSuffix
}

// Sample is one unit of processing: one read file for single-end layouts, two
// mate files for paired.
type Sample struct {
	ID     string
	Layout Layout
	Files  []string
}

// Catalog is the ordered set of samples discovered in an input directory plus
// the run's compression mode.
type Catalog struct {
	Samples     []Sample
	Compression Compression
}

// Discover scans dir, detects the run's compression mode from the first file
// in lexicographic order, and groups files into samples according to the
// declared layout. It fails before any external tool could run: on an empty
// directory, an unrecognized suffix, or a layout mismatch.
func Discover(dir string, layout Layout) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "samples", "scan", fmt.Sprintf("read input directory %q", dir), err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	if len(names) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "samples", "scan",
			fmt.Sprintf("no input files found in %q", dir), nil)
	}

	compression, err := detectCompression(names[0])
	if err != nil {
		return nil, err
	}
	suffix := compression.Suffix()

	var stems []string
	for _, name := range names {
		if !strings.HasSuffix(name, suffix) {
			continue
		}
		stems = append(stems, strings.TrimSuffix(name, suffix))
	}
	if len(stems) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "samples", "scan",
			fmt.Sprintf("no files with suffix %q in %q", suffix, dir), nil)
	}

	var list []Sample
	switch layout {
	case LayoutSingle:
		list, err = groupSingle(dir, stems, suffix)
	case LayoutPaired:
		list, err = groupPaired(dir, stems, suffix)
	default:
		return nil, services.Wrap(services.ErrConfiguration, "samples", "scan",
			fmt.Sprintf("unknown layout %q", layout), nil)
	}
	if err != nil {
		return nil, err
	}

	return &Catalog{Samples: list, Compression: compression}, nil
}

func detectCompression(name string) (Compression, error) {
	switch {
	case strings.HasSuffix(name, gzipSuffix):
		return CompressionGzip, nil
	case strings.HasSuffix(name, plainSuffix):
		return CompressionPlain, nil
	default:
		return "", services.Wrap(services.ErrConfiguration, "samples", "detect",
			fmt.Sprintf("cannot detect compression from %q: expected %s or %s suffix", name, plainSuffix, gzipSuffix), nil)
	}
}

func groupSingle(dir string, stems []string, suffix string) ([]Sample, error) {
	list := make([]Sample, 0, len(stems))
	for _, stem := range stems {
		if mateID, ok := mateStem(stem); ok {
			return nil, services.Wrap(services.ErrConfiguration, "samples", "group",
				fmt.Sprintf("file %q looks paired (sample %q) but layout is SE", stem+suffix, mateID), nil)
		}
		list = append(list, Sample{
			ID:     stem,
			Layout: LayoutSingle,
			Files:  []string{filepath.Join(dir, stem+suffix)},
		})
	}
	return list, nil
}

func groupPaired(dir string, stems []string, suffix string) ([]Sample, error) {
	mates := make(map[string][]string)
	var order []string
	for _, stem := range stems {
		id, ok := mateStem(stem)
		if !ok {
			return nil, services.Wrap(services.ErrConfiguration, "samples", "group",
				fmt.Sprintf("file %q has no _1/_2 mate indicator but layout is PE", stem+suffix), nil)
		}
		if _, seen := mates[id]; !seen {
			order = append(order, id)
		}
		mates[id] = append(mates[id], filepath.Join(dir, stem+suffix))
	}

	list := make([]Sample, 0, len(order))
	for _, id := range order {
		files := mates[id]
		if len(files) != 2 {
			return nil, services.Wrap(services.ErrConfiguration, "samples", "group",
				fmt.Sprintf("paired sample %q has %d mate file(s), expected 2", id, len(files)), nil)
		}
		sort.Strings(files)
		list = append(list, Sample{ID: id, Layout: LayoutPaired, Files: files})
	}
	return list, nil
}

// mateStem strips a trailing _1/_2 mate indicator, reporting whether one was
// present.
func mateStem(stem string) (string, bool) {
	if strings.HasSuffix(stem, "_1") || strings.HasSuffix(stem, "_2") {
		return stem[:len(stem)-2], true
	}
	return stem, false
}
