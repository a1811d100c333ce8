package localvault

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toothbrush/notion-dump/notion"
)

// pageID builds a syntactically valid identifier out of one repeated
// character, so tests stay readable.
func pageID(c byte) string {
	return strings.Repeat(string(c), 32)
}

type zipEntry struct {
	name string
	body []byte
	mod  time.Time
}

func zipBytes(t *testing.T, entries []zipEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		hdr := &zip.FileHeader{Name: e.name, Method: zip.Deflate}
		if !e.mod.IsZero() {
			hdr.Modified = e.mod
		}
		w, err := zw.CreateHeader(hdr)
		require.NoError(t, err)
		_, err = w.Write(e.body)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func writeZip(t *testing.T, path string, entries []zipEntry) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, zipBytes(t, entries), 0o644))
}

func openZip(t *testing.T, path string) (Source, func()) {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	return Source{Name: path, Reader: &zr.Reader}, func() { zr.Close() }
}

func TestWalkSourcesSkipRules(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "export.zip")
	writeZip(t, archive, []zipEntry{
		{name: "index.html", body: []byte("<html/>")},
		{name: "Tasks " + pageID('a') + ".csv", body: []byte("a,b")},
		{name: "Tasks " + pageID('a') + "_all.csv", body: []byte("a,b")},
		{name: "Note " + pageID('b') + ".html", body: []byte("<html/>")},
		{name: "Note " + pageID('b') + "/pic.png", body: []byte{1, 2}},
		{name: "Note " + pageID('b') + "/index.html", body: []byte("<html/>")},
	})

	src, done := openZip(t, archive)
	defer done()

	var visited, skipped []string
	err := WalkSources(context.Background(), []Source{src}, WalkFuncs{
		Visit: func(e Entry) error {
			visited = append(visited, e.Path)
			return nil
		},
		Skip: func(e Entry) { skipped = append(skipped, e.Path) },
		Fail: func(p string, err error) { t.Fatalf("unexpected failure for %s: %v", p, err) },
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		"Note " + pageID('b') + ".html",
		"Note " + pageID('b') + "/pic.png",
		// index.html below the root is not a summary file
		"Note " + pageID('b') + "/index.html",
	}, visited)
	assert.ElementsMatch(t, []string{
		"index.html",
		"Tasks " + pageID('a') + ".csv",
		"Tasks " + pageID('a') + "_all.csv",
	}, skipped)
}

func TestWalkSourcesNestedArchives(t *testing.T) {
	dir := t.TempDir()

	inner := zipBytes(t, []zipEntry{
		{name: "index.html", body: []byte("<html/>")},
		{name: "Deep " + pageID('c') + ".html", body: []byte("<html/>")},
	})
	attachedZip := zipBytes(t, []zipEntry{
		{name: "whatever.txt", body: []byte("hi")},
	})

	archive := filepath.Join(dir, "export.zip")
	writeZip(t, archive, []zipEntry{
		{name: "Export-part2.zip", body: inner},
		{name: "Page " + pageID('d') + ".html", body: []byte("<html/>")},
		{name: "Page " + pageID('d') + "/backup.zip", body: attachedZip},
	})

	src, done := openZip(t, archive)
	defer done()

	var visited []string
	kinds := map[string]notion.EntryKind{}
	err := WalkSources(context.Background(), []Source{src}, WalkFuncs{
		Visit: func(e Entry) error {
			visited = append(visited, e.Path)
			kinds[e.Path] = e.Kind
			return nil
		},
		Skip: func(e Entry) {},
		Fail: func(p string, err error) { t.Fatalf("unexpected failure for %s: %v", p, err) },
	})
	require.NoError(t, err)

	// The root-level zip is recursed into (with its own summary index
	// skipped); the zip inside a page folder comes through verbatim.
	assert.ElementsMatch(t, []string{
		"Export-part2/Deep " + pageID('c') + ".html",
		"Page " + pageID('d') + ".html",
		"Page " + pageID('d') + "/backup.zip",
	}, visited)
	assert.Equal(t, notion.KindAttachment, kinds["Page "+pageID('d')+"/backup.zip"])
}

func TestWalkSourcesWrongFormatAborts(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "export.zip")
	writeZip(t, archive, []zipEntry{
		{name: "Note " + pageID('e') + ".md", body: []byte("# hi")},
		{name: "Note " + pageID('f') + ".html", body: []byte("<html/>")},
	})

	src, done := openZip(t, archive)
	defer done()

	var visited int
	err := WalkSources(context.Background(), []Source{src}, WalkFuncs{
		Visit: func(e Entry) error { visited++; return nil },
		Skip:  func(e Entry) {},
		Fail:  func(p string, err error) {},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, notion.ErrWrongExportFormat))
	assert.Zero(t, visited)
}

func TestWalkSourcesCancellation(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "export.zip")
	writeZip(t, archive, []zipEntry{
		{name: "One " + pageID('1') + ".html", body: []byte("<html/>")},
		{name: "Two " + pageID('2') + ".html", body: []byte("<html/>")},
	})

	src, done := openZip(t, archive)
	defer done()

	ctx, cancel := context.WithCancel(context.Background())

	var visited int
	err := WalkSources(ctx, []Source{src}, WalkFuncs{
		Visit: func(e Entry) error {
			visited++
			cancel()
			return nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, visited)
}

func TestWalkSourcesBrokenNestedArchive(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "export.zip")
	writeZip(t, archive, []zipEntry{
		{name: "broken.zip", body: []byte("this is not a zip")},
		{name: "Fine " + pageID('9') + ".html", body: []byte("<html/>")},
	})

	src, done := openZip(t, archive)
	defer done()

	var visited, failed []string
	err := WalkSources(context.Background(), []Source{src}, WalkFuncs{
		Visit: func(e Entry) error { visited = append(visited, e.Path); return nil },
		Fail:  func(p string, err error) { failed = append(failed, p) },
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Fine " + pageID('9') + ".html"}, visited)
	assert.Equal(t, []string{"broken.zip"}, failed)
}
