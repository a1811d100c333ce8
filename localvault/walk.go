package localvault

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/toothbrush/notion-dump/notion"
)

// Export continuations are zips at the root of their parent archive, and
// Notion doesn't nest them very deep.  Anything beyond this is treated as a
// failed entry rather than recursed into.
const maxArchiveDepth = 4

// Source is one top-level export archive, already opened.
type Source struct {
	Name   string
	Reader *zip.Reader
}

// Entry is one visitable file inside the logical archive tree.
type Entry struct {
	// Source is the on-disk name of the top-level archive this entry came from.
	Source string
	// Path is the slash path within the logical tree.  Entries from nested
	// archives are prefixed with the nested archive's name stem, so Path is
	// unique across one import.
	Path string
	// AtRoot reports whether the entry sits at the root of its immediate
	// archive (not the logical tree).
	AtRoot bool
	Kind   notion.EntryKind
	File   *zip.File
}

// Stem is the entry's base name without extension.
func (e Entry) Stem() string {
	base := path.Base(e.Path)
	return strings.TrimSuffix(base, path.Ext(base))
}

// WalkFuncs receives entries from WalkSources.  Visit gets pages and
// attachments; Skip gets database exports and summary index files; Fail gets
// per-entry walk failures (e.g. an unreadable nested archive).
type WalkFuncs struct {
	Visit func(Entry) error
	Skip  func(Entry)
	Fail  func(entryPath string, err error)
}

// WalkSources enumerates every entry across the given archives depth-first.
// Cancellation is cooperative: the context is checked before each entry and
// the walk returns early, without error, once it is done.  The only errors
// returned are the wrong-export-format abort and errors returned by Visit;
// everything else is reported through Fail and the walk continues.
func WalkSources(ctx context.Context, sources []Source, fn WalkFuncs) error {
	for _, src := range sources {
		if err := walkArchive(ctx, src.Name, "", src.Reader, 0, fn); err != nil {
			return err
		}
	}
	return nil
}

func walkArchive(ctx context.Context, source, prefix string, zr *zip.Reader, depth int, fn WalkFuncs) error {
	for _, f := range zr.File {
		if ctx.Err() != nil {
			return nil
		}
		if f.FileInfo().IsDir() {
			continue
		}

		name := path.Clean(f.Name)
		atRoot := !strings.Contains(name, "/")
		kind := notion.Classify(name, atRoot)
		logical := prefix + name

		switch kind {
		case notion.KindWrongFormat:
			return fmt.Errorf("localvault: %s: %w", logical, notion.ErrWrongExportFormat)

		case notion.KindDatabaseExport, notion.KindSummary:
			if fn.Skip != nil {
				fn.Skip(Entry{Source: source, Path: logical, AtRoot: atRoot, Kind: kind, File: f})
			}

		case notion.KindNestedArchive:
			if depth >= maxArchiveDepth {
				fn.Fail(logical, fmt.Errorf("localvault: nested archive too deep (depth %d)", depth+1))
				continue
			}
			inner, err := openNestedArchive(f)
			if err != nil {
				fn.Fail(logical, fmt.Errorf("localvault: cannot open nested archive: %w", err))
				continue
			}
			stem := strings.TrimSuffix(path.Base(name), path.Ext(name))
			if err := walkArchive(ctx, source, prefix+stem+"/", inner, depth+1, fn); err != nil {
				return err
			}

		default:
			entry := Entry{Source: source, Path: logical, AtRoot: atRoot, Kind: kind, File: f}
			if err := fn.Visit(entry); err != nil {
				return err
			}
		}
	}
	return nil
}

// openNestedArchive decompresses an inner zip into memory and opens it.  Export
// continuations are modest in size; attachments inside them are what's big,
// and those are streamed out individually later.
func openNestedArchive(f *zip.File) (*zip.Reader, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	return zip.NewReader(bytes.NewReader(data), int64(len(data)))
}
