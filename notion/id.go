package notion

import (
	"path"
	"regexp"
	"strings"
)

// Notion appends the page's UUID (dashes stripped, so 32 hex characters) to
// every file and folder name in an HTML export, separated from the title by a
// space.  E.g. "Meeting notes 0123456789abcdef0123456789abcdef.html".
var idSuffix = regexp.MustCompile(`(?i)(?:^|\s)([0-9a-f]{32})$`)

// ExtractID returns the identifier embedded in a file or folder name stem
// (that is, the name without its extension).  The second return value reports
// whether an identifier was present at all.
func ExtractID(stem string) (PageID, bool) {
	m := idSuffix.FindStringSubmatch(strings.TrimSpace(stem))
	if m == nil {
		return "", false
	}
	return PageID(strings.ToLower(m[1])), true
}

// TitleFromStem strips the trailing identifier token off a name stem.  An
// export of an untitled page is just the bare identifier; those come back as
// "Untitled" rather than the empty string.
func TitleFromStem(stem string) string {
	title := strings.TrimSpace(idSuffix.ReplaceAllString(strings.TrimSpace(stem), ""))
	if title == "" {
		return "Untitled"
	}
	return title
}

type EntryKind int

const (
	// KindPage is an exported document, one output Markdown file.
	KindPage EntryKind = iota
	// KindAttachment is any other file, copied verbatim.
	KindAttachment
	// KindDatabaseExport is a .csv bearing an identifier: a redundant tabular
	// export of a database already represented as pages.  Skipped.
	KindDatabaseExport
	// KindSummary is the generated index.html at an archive's top level.  Skipped.
	KindSummary
	// KindNestedArchive is a zip sitting at the root of its immediate parent
	// archive: an export continuation, recursed into.  A zip nested deeper is
	// a user-attached file and classifies as KindAttachment instead.
	KindNestedArchive
	// KindWrongFormat is a .md file bearing an identifier.  That means the user
	// exported "Markdown & CSV" instead of HTML, which this tool cannot map
	// back to page identifiers.  Fatal for the whole import.
	KindWrongFormat
)

func (k EntryKind) String() string {
	switch k {
	case KindPage:
		return "page"
	case KindAttachment:
		return "attachment"
	case KindDatabaseExport:
		return "database export"
	case KindSummary:
		return "summary index"
	case KindNestedArchive:
		return "nested archive"
	case KindWrongFormat:
		return "wrong export format"
	default:
		return "unknown"
	}
}

// Classify decides what an archive entry is, from its name alone.  entryPath
// is the slash path within the entry's immediate archive; atRoot reports
// whether the entry sits directly at that archive's root.  Pure function, the
// walker applies these rules in this exact order.
func Classify(entryPath string, atRoot bool) EntryKind {
	base := path.Base(entryPath)
	ext := strings.ToLower(path.Ext(base))
	stem := strings.TrimSuffix(base, path.Ext(base))
	if ext == ".csv" {
		// Database exports come in pairs: "Title <id>.csv" with the visible
		// rows and "Title <id>_all.csv" with every row.
		stem = strings.TrimSuffix(stem, "_all")
	}
	_, hasID := ExtractID(stem)

	switch {
	case ext == ".csv" && hasID:
		return KindDatabaseExport
	case atRoot && strings.EqualFold(base, "index.html"):
		return KindSummary
	case ext == ".zip" && atRoot:
		return KindNestedArchive
	case ext == ".md" && hasID:
		return KindWrongFormat
	case ext == ".html" || ext == ".htm":
		// Possibly without an identifier; the indexer decides whether that is
		// a malformed page or a user-attached HTML file.
		return KindPage
	default:
		return KindAttachment
	}
}

// OwnerFromPath resolves the identifier of the page owning an entry, by
// looking for the nearest containing folder whose name carries an identifier.
// Notion puts a page's attachments in a folder named like the page file itself.
func OwnerFromPath(entryPath string) (PageID, bool) {
	dir := path.Dir(entryPath)
	for dir != "." && dir != "/" && dir != "" {
		if id, ok := ExtractID(path.Base(dir)); ok {
			return id, true
		}
		dir = path.Dir(dir)
	}
	return "", false
}
