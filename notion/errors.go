package notion

import "errors"

// ErrWrongExportFormat means a "Markdown & CSV" export was supplied instead of
// an HTML export.  It is the only fatal per-entry condition: identifiers can't
// be recovered from a Markdown export, so the whole import aborts before any
// output is written.
var ErrWrongExportFormat = errors.New("notion: this looks like a \"Markdown & CSV\" export; re-export the workspace as HTML and try again")

// ErrMissingIdentifier is a page-like entry whose name carries no identifier.
// Per-entry: the entry is skipped and reported, the import continues.
var ErrMissingIdentifier = errors.New("notion: no identifier in entry name")
