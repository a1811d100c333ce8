package notion

import "time"

// PageID is the 32-hex-character identifier Notion embeds in export names.
// Globally unique per page.
type PageID string

// RelativePath is a path relative to the output store root.  Directory values
// always end in "/" (or are empty, meaning the store root itself).
type RelativePath string

// PageInfo is everything the pipeline tracks about one exported page.  Built
// during the index pass; Dir/FileName are fixed by the duplicate resolver and
// immutable afterwards.
type PageInfo struct {
	ID       PageID
	Title    string
	ParentID PageID // empty for top-level pages

	// SourcePath is the entry's slash path within the (logical) archive tree,
	// used to resolve relative links in the page body.
	SourcePath string

	// Archive entries only carry a modification time; Created falls back to
	// the same value.
	Created  time.Time
	Modified time.Time

	// Icon is the page's emoji glyph, if any.  Only known once the page body
	// has been parsed in the conversion pass.
	Icon string

	// Set by the duplicate resolver:
	Dir         RelativePath // folder holding the page's Markdown file
	FileName    string       // final file name, including ".md"
	HasChildren bool
}

// OutputPath is the page's resolved file path relative to the store root.
func (p *PageInfo) OutputPath() string {
	return string(p.Dir) + p.FileName
}

// AttachmentInfo is a non-page entry copied verbatim into the output tree.
type AttachmentInfo struct {
	// Source is the slash path within the (logical) archive tree.  Unique, and
	// the key under which the resolver index stores the attachment.
	Source string

	// OwnerID is the page whose attachment folder contained this entry, or
	// empty for a loose file with no resolvable owner.
	OwnerID PageID

	Modified time.Time

	// Set by the duplicate resolver:
	Dir      RelativePath
	FileName string
}

// OutputPath is the attachment's resolved file path relative to the store root.
func (a *AttachmentInfo) OutputPath() string {
	return string(a.Dir) + a.FileName
}
