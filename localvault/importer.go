package localvault

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// Importer drives one import run: index pass, duplicate resolution, folder
// creation, conversion pass.
type Importer struct {
	StorePath string
	Sources   []string
	Config    Config
	DryRun    bool
	// Quiet suppresses the progress bars (used by tests and scripting).
	Quiet bool

	Logger *log.Logger

	index  *Index
	result Result
}

// Result is the per-entry outcome tally of a run.
type Result struct {
	Notes       int
	Attachments int
	Skipped     int
	Failed      int
	FailedPaths []string
}

// Total returns the number of entries that were accounted for.
func (r Result) Total() int {
	return r.Notes + r.Attachments + r.Skipped + r.Failed
}

// Run executes the whole pipeline.  Per-entry failures are tallied in the
// Result and do not abort the run; an error return means either no archive
// could be opened, a wrong-format export was detected (before anything was
// written), or the output location is unusable.  Cancellation via ctx stops
// between entries and leaves already-written output in place.
func (imp *Importer) Run(ctx context.Context) (Result, error) {
	imp.result = Result{}
	if imp.Logger == nil {
		imp.Logger = log.New(io.Discard, "", 0)
	}
	if imp.StorePath == "" {
		return imp.result, fmt.Errorf("localvault: no store path configured")
	}

	sources, closeSources := imp.openSources()
	defer closeSources()
	if len(sources) == 0 {
		return imp.result, fmt.Errorf("localvault: no readable archives among %d given", len(imp.Sources))
	}

	imp.index = NewIndex(imp.Config)

	// Pass 1: metadata only, no payload reads.  Cheap, and it fixes the
	// progress totals for the conversion pass.
	total := 0
	for _, s := range sources {
		total += len(s.Reader.File)
	}
	progress, bar := imp.newPassBar("index", int64(total))
	err := WalkSources(ctx, sources, WalkFuncs{
		Skip: func(e Entry) {
			imp.result.Skipped++
			imp.Logger.Printf("Skipping %s: %s", e.Kind, e.Path)
			bar.Increment()
		},
		Fail: func(entryPath string, err error) {
			imp.fail(entryPath, err)
			bar.Increment()
		},
		Visit: func(e Entry) error {
			defer bar.Increment()
			if err := imp.index.IndexEntry(e); err != nil {
				imp.fail(e.Path, err)
			}
			return nil
		},
	})
	imp.finishPassBar(progress, bar, err != nil || ctx.Err() != nil)
	if err != nil {
		// Fatal: either the wrong-format sentinel or a visitor bug.  Nothing
		// has been written yet.
		return imp.result, err
	}
	if ctx.Err() != nil {
		return imp.result, nil
	}
	imp.Logger.Printf("Indexed %d pages and %d attachments.",
		len(imp.index.Pages), len(imp.index.Attachments))

	// Pass 1.5: seal the output layout before anything touches disk.
	imp.index.Resolve()
	if err := imp.createOutputDirs(); err != nil {
		return imp.result, err
	}

	// Pass 2: convert pages, copy attachments.  Index is read-only from here.
	progress, bar = imp.newPassBar("convert",
		int64(len(imp.index.Pages)+len(imp.index.Attachments)))
	err = WalkSources(ctx, sources, WalkFuncs{
		Fail: func(entryPath string, err error) {
			imp.fail(entryPath, err)
		},
		Visit: func(e Entry) error {
			return imp.convertEntry(e, bar)
		},
	})
	imp.finishPassBar(progress, bar, err != nil || ctx.Err() != nil)
	if err != nil {
		return imp.result, err
	}

	imp.Logger.Printf("Converted %d notes and %d attachments (%d skipped, %d failed).",
		imp.result.Notes, imp.result.Attachments, imp.result.Skipped, imp.result.Failed)
	for _, p := range imp.result.FailedPaths {
		imp.Logger.Printf("  failed: %s", p)
	}

	return imp.result, nil
}

// convertEntry handles one entry of the conversion pass.  Failures are
// per-entry: recorded and swallowed so siblings continue.
func (imp *Importer) convertEntry(e Entry, bar *mpb.Bar) error {
	page, att := imp.index.Lookup(e)
	switch {
	case page != nil:
		defer bar.Increment()
		payload, err := readEntry(e.File)
		if err != nil {
			imp.fail(e.Path, err)
			return nil
		}
		markdown, err := imp.index.Convert(page, payload)
		if err != nil {
			imp.fail(e.Path, err)
			return nil
		}
		if err := imp.writePage(page, markdown); err != nil {
			imp.fail(e.Path, err)
			return nil
		}
		imp.result.Notes++

	case att != nil:
		defer bar.Increment()
		if err := imp.copyAttachment(att, e.File); err != nil {
			imp.fail(e.Path, err)
			return nil
		}
		imp.result.Attachments++

	default:
		// Rejected during the index pass and reported there already.
	}
	return nil
}

func (imp *Importer) fail(entryPath string, err error) {
	imp.result.Failed++
	imp.result.FailedPaths = append(imp.result.FailedPaths, entryPath)
	imp.Logger.Printf("Failed %s: %v", entryPath, err)
}

// openSources opens every given archive.  An unopenable archive is reported
// and its contents abandoned; siblings continue.
func (imp *Importer) openSources() ([]Source, func()) {
	var sources []Source
	var closers []io.Closer
	for _, p := range imp.Sources {
		zr, err := zip.OpenReader(p)
		if err != nil {
			imp.fail(p, fmt.Errorf("localvault: cannot open archive: %w", err))
			continue
		}
		closers = append(closers, zr)
		sources = append(sources, Source{Name: p, Reader: &zr.Reader})
	}
	return sources, func() {
		for _, c := range closers {
			c.Close()
		}
	}
}

// finishPassBar settles a pass's progress bar before waiting on its container.
// A bar created with a positive total arms auto-completion, and SetTotal is a
// no-op once that trigger is set; a pass that ends early therefore has to drop
// the bar outright or Wait blocks on it forever.
func (imp *Importer) finishPassBar(p *mpb.Progress, bar *mpb.Bar, aborted bool) {
	if aborted {
		bar.Abort(true)
	} else {
		bar.SetTotal(-1, true)
	}
	p.Wait()
}

func (imp *Importer) newPassBar(phaseName string, total int64) (*mpb.Progress, *mpb.Bar) {
	opts := []mpb.ContainerOption{mpb.WithWidth(64)}
	if imp.Quiet {
		opts = append(opts, mpb.WithOutput(io.Discard))
	}
	p := mpb.New(opts...)

	bar := p.AddBar(total,
		mpb.PrependDecorators(
			decor.Name(fmt.Sprintf("%s:", phaseName),
				decor.WC{C: decor.DindentRight | decor.DextraSpace}),
		),
		mpb.AppendDecorators(
			decor.CountersNoUnit("(%d/%d) "),
			decor.NewPercentage("%d"),
			decor.Spinner([]string{" /", " -", " \\", " |"}),
		),
	)
	return p, bar
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("localvault: couldn't open archive entry: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("localvault: couldn't read archive entry: %w", err)
	}
	return data, nil
}
