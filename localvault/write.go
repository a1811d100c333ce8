package localvault

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/toothbrush/notion-dump/notion"
)

func (imp *Importer) writePage(page *notion.PageInfo, content string) error {
	if imp.DryRun {
		return nil
	}

	abs := filepath.Join(imp.StorePath, filepath.FromSlash(page.OutputPath()))
	f, err := os.Create(abs)
	if err != nil {
		return fmt.Errorf("localvault: couldn't create file %s: %w", abs, err)
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return fmt.Errorf("localvault: couldn't write to file %s: %w", abs, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("localvault: couldn't close file %s: %w", abs, err)
	}

	return applyFileTimes(abs, page.Modified)
}

func (imp *Importer) copyAttachment(att *notion.AttachmentInfo, f *zip.File) error {
	if imp.DryRun {
		return nil
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("localvault: couldn't read archive entry %s: %w", att.Source, err)
	}
	defer rc.Close()

	abs := filepath.Join(imp.StorePath, filepath.FromSlash(att.OutputPath()))
	out, err := os.Create(abs)
	if err != nil {
		return fmt.Errorf("localvault: couldn't create file %s: %w", abs, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("localvault: couldn't copy to file %s: %w", abs, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("localvault: couldn't close file %s: %w", abs, err)
	}

	return applyFileTimes(abs, att.Modified)
}

// applyFileTimes carries the archive entry's timestamp onto the written file.
// Creation time isn't settable portably; the modification time is what local
// tooling sorts by anyway.
func applyFileTimes(abs string, modified time.Time) error {
	if modified.IsZero() {
		return nil
	}
	if err := os.Chtimes(abs, modified, modified); err != nil {
		return fmt.Errorf("localvault: couldn't set times on %s: %w", abs, err)
	}
	return nil
}

// createOutputDirs materialises the resolved folder set before the conversion
// pass starts writing into it.
func (imp *Importer) createOutputDirs() error {
	if imp.DryRun {
		return nil
	}
	if err := os.MkdirAll(imp.StorePath, 0750); err != nil {
		return fmt.Errorf("localvault: couldn't create store %s: %w", imp.StorePath, err)
	}
	for _, dir := range imp.index.OutputDirs() {
		abs := filepath.Join(imp.StorePath, filepath.FromSlash(dir))
		if err := os.MkdirAll(abs, 0750); err != nil {
			return fmt.Errorf("localvault: couldn't create directory %s: %w", abs, err)
		}
	}
	return nil
}
