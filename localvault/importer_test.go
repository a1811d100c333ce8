package localvault

import (
	"context"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toothbrush/notion-dump/notion"
)

func testImporter(store string, archives ...string) *Importer {
	return &Importer{
		StorePath: store,
		Sources:   archives,
		Config:    DefaultConfig(),
		Quiet:     true,
		Logger:    log.New(os.Stderr, "", 0),
	}
}

func samplePage(inner string) []byte {
	return []byte(`<html><body><div class="page-body">` + inner + `</div></body></html>`)
}

// snapshotTree reads every file under root into a map of slash paths to
// contents.
func snapshotTree(t *testing.T, root string) map[string]string {
	t.Helper()
	tree := map[string]string{}
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		body, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		tree[filepath.ToSlash(rel)] = string(body)
		return nil
	})
	require.NoError(t, err)
	return tree
}

func TestImporterEndToEnd(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "export.zip")
	store := filepath.Join(dir, "store")

	modified := time.Date(2024, 3, 14, 9, 26, 53, 0, time.UTC)
	writeZip(t, archive, []zipEntry{
		{name: "index.html", body: []byte("<html/>")},
		{name: "Home " + pageID('a') + ".html", mod: modified, body: samplePage(
			`<p>welcome</p><p><a href="Home%20` + pageID('a') + `/Child%20` + pageID('b') + `.html">child</a></p>`)},
		{name: "Home " + pageID('a') + "/Child " + pageID('b') + ".html", body: samplePage(`<p>hi from below</p>`)},
		{name: "Home " + pageID('a') + "/pic.png", mod: modified, body: []byte{1, 2, 3}},
		{name: "Tasks " + pageID('c') + ".csv", body: []byte("a,b")},
		{name: "Tasks " + pageID('c') + "_all.csv", body: []byte("a,b")},
	})

	res, err := testImporter(store, archive).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Notes)
	assert.Equal(t, 1, res.Attachments)
	assert.Equal(t, 3, res.Skipped)
	assert.Equal(t, 0, res.Failed)

	tree := snapshotTree(t, store)
	require.Contains(t, tree, "Home/Home.md")
	require.Contains(t, tree, "Home/Child.md")
	require.Contains(t, tree, "Home/attachments/pic.png")

	assert.Contains(t, tree["Home/Home.md"], "welcome")
	assert.Contains(t, tree["Home/Home.md"], "[child](Child.md)")
	assert.Contains(t, tree["Home/Child.md"], "hi from below")
	assert.Equal(t, "\x01\x02\x03", tree["Home/attachments/pic.png"])

	// Archive timestamps survive onto the written files.
	info, err := os.Stat(filepath.Join(store, "Home", "Home.md"))
	require.NoError(t, err)
	assert.WithinDuration(t, modified, info.ModTime(), 2*time.Second)

	info, err = os.Stat(filepath.Join(store, "Home", "attachments", "pic.png"))
	require.NoError(t, err)
	assert.WithinDuration(t, modified, info.ModTime(), 2*time.Second)
}

func TestImporterWrongFormatAborts(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "export.zip")
	store := filepath.Join(dir, "store")

	writeZip(t, archive, []zipEntry{
		{name: "Home " + pageID('a') + ".md", body: []byte("# Home")},
		{name: "Other " + pageID('b') + ".html", body: samplePage(`<p>x</p>`)},
	})

	_, err := testImporter(store, archive).Run(context.Background())
	require.ErrorIs(t, err, notion.ErrWrongExportFormat)

	// Detected before anything touches disk.
	_, statErr := os.Stat(store)
	assert.True(t, os.IsNotExist(statErr))
}

func TestImporterCancelledRunStopsCleanly(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "export.zip")
	store := filepath.Join(dir, "store")

	writeZip(t, archive, []zipEntry{
		{name: "Home " + pageID('a') + ".html", body: samplePage(`<p>x</p>`)},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Must return promptly rather than wait on an unfinished progress bar.
	res, err := testImporter(store, archive).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Notes)
	_, statErr := os.Stat(store)
	assert.True(t, os.IsNotExist(statErr))
}

func TestImporterDryRun(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "export.zip")
	store := filepath.Join(dir, "store")

	writeZip(t, archive, []zipEntry{
		{name: "Home " + pageID('a') + ".html", body: samplePage(`<p>x</p>`)},
		{name: "Home " + pageID('a') + "/pic.png", body: []byte{1}},
	})

	imp := testImporter(store, archive)
	imp.DryRun = true
	res, err := imp.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Notes)
	assert.Equal(t, 1, res.Attachments)
	_, statErr := os.Stat(store)
	assert.True(t, os.IsNotExist(statErr))
}

func TestImporterNestedArchive(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "export.zip")
	store := filepath.Join(dir, "store")

	inner := zipBytes(t, []zipEntry{
		{name: "Second " + pageID('b') + ".html", body: samplePage(`<p>from part two</p>`)},
	})
	writeZip(t, archive, []zipEntry{
		{name: "First " + pageID('a') + ".html", body: samplePage(`<p>from part one</p>`)},
		{name: "Export-part2.zip", body: inner},
	})

	res, err := testImporter(store, archive).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Notes)

	tree := snapshotTree(t, store)
	assert.Contains(t, tree, "First.md")
	assert.Contains(t, tree, "Second.md")
	assert.Contains(t, tree["Second.md"], "from part two")
}

func TestImporterMultipleArchivesFirstSightingWins(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "part1.zip")
	second := filepath.Join(dir, "part2.zip")
	store := filepath.Join(dir, "store")

	writeZip(t, first, []zipEntry{
		{name: "Home " + pageID('a') + ".html", body: samplePage(`<p>original</p>`)},
	})
	writeZip(t, second, []zipEntry{
		{name: "Home " + pageID('a') + ".html", body: samplePage(`<p>relisted</p>`)},
	})

	res, err := testImporter(store, first, second).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Notes)

	tree := snapshotTree(t, store)
	assert.Contains(t, tree["Home.md"], "original")
}

func TestImporterUnopenableArchive(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.zip")
	store := filepath.Join(dir, "store")

	writeZip(t, good, []zipEntry{
		{name: "Home " + pageID('a') + ".html", body: samplePage(`<p>x</p>`)},
	})

	res, err := testImporter(store, filepath.Join(dir, "missing.zip"), good).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Notes)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.FailedPaths, 1)
	assert.Contains(t, res.FailedPaths[0], "missing.zip")
}

func TestImporterMissingIdentifierIsPerEntry(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "export.zip")
	store := filepath.Join(dir, "store")

	writeZip(t, archive, []zipEntry{
		{name: "nameless.html", body: samplePage(`<p>x</p>`)},
		{name: "Home " + pageID('a') + ".html", body: samplePage(`<p>fine</p>`)},
	})

	res, err := testImporter(store, archive).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Notes)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, []string{"nameless.html"}, res.FailedPaths)
}

func TestImporterDeterministicAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "export.zip")
	writeZip(t, archive, []zipEntry{
		{name: "Note " + pageID('1') + ".html", body: samplePage(`<p>one</p>`)},
		{name: "Note " + pageID('2') + ".html", body: samplePage(`<p>two</p>`)},
		{name: "Note " + pageID('1') + "/Note " + pageID('3') + ".html", body: samplePage(`<p>three</p>`)},
		{name: "Note " + pageID('1') + "/img.png", body: []byte{9}},
	})

	storeA := filepath.Join(dir, "a")
	storeB := filepath.Join(dir, "b")
	_, err := testImporter(storeA, archive).Run(context.Background())
	require.NoError(t, err)
	_, err = testImporter(storeB, archive).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, snapshotTree(t, storeA), snapshotTree(t, storeB))
}
