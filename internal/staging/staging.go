// Package staging owns the on-disk layout the pipeline works over: an
// incoming area for uploads, a working area rebuilt every batch run, an
// output area for canonical artifacts, and a local archive. The whole
// tree is process-shared, so at most one batch run may touch it at a
// time.
package staging

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dvloznov/bank-ingest/internal/model"
)

// typeSeparator splits the type prefix from the original filename in the
// working area.
const typeSeparator = "__"

// Areas is the set of staging directories rooted at one base path.
type Areas struct {
	Base     string
	Incoming string
	Working  string
	Output   string
	Archive  string
}

// NewAreas derives the staging layout from a base directory.
func NewAreas(base string) Areas {
	return Areas{
		Base:     base,
		Incoming: filepath.Join(base, "incoming"),
		Working:  filepath.Join(base, "working"),
		Output:   filepath.Join(base, "output"),
		Archive:  filepath.Join(base, "archive"),
	}
}

// Ensure creates every staging directory that does not yet exist.
func (a Areas) Ensure() error {
	for _, dir := range []string{a.Incoming, a.Working, a.Output, a.Archive} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("Ensure: creating %q: %w", dir, err)
		}
	}
	return nil
}

// ResetWorking discards and recreates the working area. Batch runs call
// this unconditionally before classifying: the working area is rebuilt
// from the incoming area each run, never patched incrementally.
func (a Areas) ResetWorking() error {
	if err := os.RemoveAll(a.Working); err != nil {
		return fmt.Errorf("ResetWorking: removing %q: %w", a.Working, err)
	}
	if err := os.MkdirAll(a.Working, 0o755); err != nil {
		return fmt.Errorf("ResetWorking: recreating %q: %w", a.Working, err)
	}
	return nil
}

// IncomingFiles lists the regular files currently uploaded, sorted by
// name for deterministic processing order.
func (a Areas) IncomingFiles() ([]string, error) {
	entries, err := os.ReadDir(a.Incoming)
	if err != nil {
		return nil, fmt.Errorf("IncomingFiles: reading %q: %w", a.Incoming, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		paths = append(paths, filepath.Join(a.Incoming, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// Stage copies an incoming file into the working area under a
// type-prefixed name, e.g. "credit-a__jordan_card.csv". The prefix is
// the filename convention the parser selects its strategy by.
func (a Areas) Stage(srcPath string, t model.SourceFileType) (string, error) {
	name := string(t) + typeSeparator + filepath.Base(srcPath)
	dstPath := filepath.Join(a.Working, name)

	src, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("Stage: opening %q: %w", srcPath, err)
	}
	defer src.Close()

	dst, err := os.Create(dstPath)
	if err != nil {
		return "", fmt.Errorf("Stage: creating %q: %w", dstPath, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("Stage: copying %q: %w", srcPath, err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("Stage: finalizing %q: %w", dstPath, err)
	}
	return dstPath, nil
}

// StagedFile is a working-area file whose type was already assigned.
type StagedFile struct {
	Path         string
	Type         model.SourceFileType
	OriginalName string
}

// StagedFiles lists every classified file currently in the working area.
// Note this is all currently staged files, not only those of a single
// request; the working area is a shared batch.
func (a Areas) StagedFiles() ([]StagedFile, error) {
	entries, err := os.ReadDir(a.Working)
	if err != nil {
		return nil, fmt.Errorf("StagedFiles: reading %q: %w", a.Working, err)
	}

	var files []StagedFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		t, original, err := ParseStagedName(e.Name())
		if err != nil {
			continue
		}
		files = append(files, StagedFile{
			Path:         filepath.Join(a.Working, e.Name()),
			Type:         t,
			OriginalName: original,
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// ParseStagedName splits a working-area filename into its assigned type
// and the original upload name.
func ParseStagedName(name string) (model.SourceFileType, string, error) {
	prefix, original, ok := strings.Cut(name, typeSeparator)
	if !ok {
		return model.TypeUnknown, "", fmt.Errorf("ParseStagedName: %q has no type prefix", name)
	}
	for _, t := range model.KnownTypes {
		if prefix == string(t) {
			return t, original, nil
		}
	}
	return model.TypeUnknown, "", fmt.Errorf("ParseStagedName: unknown type prefix %q", prefix)
}

// ArchiveLocal moves an absorbed working-area file into the archive
// directory. The incoming original is removed: the upload has been fully
// absorbed into the canonical record set.
func (a Areas) ArchiveLocal(stagedPath, incomingPath string) error {
	dst := filepath.Join(a.Archive, filepath.Base(stagedPath))
	if err := os.Rename(stagedPath, dst); err != nil {
		return fmt.Errorf("ArchiveLocal: moving %q: %w", stagedPath, err)
	}
	if incomingPath != "" {
		if err := os.Remove(incomingPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("ArchiveLocal: removing %q: %w", incomingPath, err)
		}
	}
	return nil
}

// WriteCanonical rewrites the canonical intermediate file from scratch
// with the stable column order. It is never appended to across runs.
func WriteCanonical(path string, recs []*model.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("WriteCanonical: creating %q: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(model.CSVHeader); err != nil {
		return fmt.Errorf("WriteCanonical: writing header: %w", err)
	}
	for _, rec := range recs {
		if err := w.Write(rec.CSVRow()); err != nil {
			return fmt.Errorf("WriteCanonical: writing row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("WriteCanonical: flushing %q: %w", path, err)
	}
	return f.Close()
}

// ReadCanonical reads a canonical intermediate file back into records.
func ReadCanonical(path string) ([]*model.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ReadCanonical: opening %q: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("ReadCanonical: reading %q: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	recs := make([]*model.Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rec, err := model.RecordFromCSVRow(row)
		if err != nil {
			return nil, fmt.Errorf("ReadCanonical: row %d: %w", i+2, err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
