package localvault

import (
	"fmt"
	"strings"

	"github.com/toothbrush/notion-dump/notion"
	"golang.org/x/exp/slices"
)

// Config is the import configuration, held read-only by the index during
// conversion.
type Config struct {
	// ParentPagesInSubfolders selects the nested-with-subfolders hierarchy
	// mode; false flattens every page into the store root.
	ParentPagesInSubfolders bool
	// SingleLineBreaks collapses blank lines between blocks.
	SingleLineBreaks bool
	// RemoveTableOfContents drops TOC blocks instead of flattening them into a
	// plain list.
	RemoveTableOfContents bool
	// LanguageDetectionMinimumLength is the code-block length at or below
	// which no language classification is attempted.
	LanguageDetectionMinimumLength int
	// AutoDetectedLanguages is the ordered candidate list for the classifier.
	AutoDetectedLanguages []string
	// IconPropertyName is the front-matter key for preserved page icons; empty
	// disables icon front matter.
	IconPropertyName string
	// DefaultAttachmentFolder is the folder name attachments are placed under,
	// relative to their owning page (or the store root for loose files).
	// Empty puts attachments directly alongside their page.
	DefaultAttachmentFolder string
}

// DefaultConfig mirrors the defaults of the convert command's flags.
func DefaultConfig() Config {
	return Config{
		ParentPagesInSubfolders:        true,
		LanguageDetectionMinimumLength: 50,
		AutoDetectedLanguages:          DefaultAutoDetectedLanguages(),
		IconPropertyName:               "icon",
		DefaultAttachmentFolder:        "attachments",
	}
}

// DefaultAutoDetectedLanguages returns the stock candidate list, using the
// classifier's canonical language names.
func DefaultAutoDetectedLanguages() []string {
	return []string{
		"Shell", "C", "C++", "C#", "CSS", "Go", "HTML", "Java", "JavaScript",
		"JSON", "Python", "Ruby", "Rust", "SQL", "TypeScript", "YAML",
	}
}

// Index is the shared resolver state: identifier→page, source path→attachment,
// plus the import configuration.  It is mutated by the index pass and the
// duplicate resolver, then read-only during conversion.  Scoped to one import
// run.
type Index struct {
	Config Config

	Pages       map[notion.PageID]*notion.PageInfo
	Attachments map[string]*notion.AttachmentInfo

	// Archive insertion order, so that collision suffixes come out the same on
	// every run over identical input.
	pageOrder       []notion.PageID
	attachmentOrder []string

	// Filled in by the duplicate resolver:
	childDirs  map[notion.PageID]notion.RelativePath
	attachDirs map[notion.RelativePath]notion.RelativePath
	resolved   bool
}

func NewIndex(cfg Config) *Index {
	return &Index{
		Config:      cfg,
		Pages:       make(map[notion.PageID]*notion.PageInfo),
		Attachments: make(map[string]*notion.AttachmentInfo),
		childDirs:   make(map[notion.PageID]notion.RelativePath),
		attachDirs:  make(map[notion.RelativePath]notion.RelativePath),
	}
}

// IndexEntry records a page or attachment entry.  Returns a per-entry error
// for a page-like entry with no extractable identifier; every other shape of
// entry is indexable.
func (idx *Index) IndexEntry(e Entry) error {
	switch e.Kind {
	case notion.KindPage:
		id, ok := notion.ExtractID(e.Stem())
		if !ok {
			if _, owned := notion.OwnerFromPath(e.Path); owned {
				// An identifier-less HTML file inside a page's attachment
				// folder is a user-attached file, not a malformed page.
				idx.addAttachment(e)
				return nil
			}
			return fmt.Errorf("localvault: %s: %w", e.Path, notion.ErrMissingIdentifier)
		}
		idx.addPage(id, e)
		return nil

	case notion.KindAttachment:
		idx.addAttachment(e)
		return nil

	default:
		return fmt.Errorf("localvault: %s: unexpected entry kind %q in index pass", e.Path, e.Kind)
	}
}

func (idx *Index) addPage(id notion.PageID, e Entry) {
	if _, exists := idx.Pages[id]; exists {
		// Continuation archives can re-list a page; first sighting wins.
		return
	}

	page := &notion.PageInfo{
		ID:         id,
		Title:      notion.TitleFromStem(e.Stem()),
		SourcePath: e.Path,
		Modified:   e.File.Modified,
		Created:    e.File.Modified,
	}
	if parent, ok := notion.OwnerFromPath(e.Path); ok {
		page.ParentID = parent
	}

	idx.Pages[id] = page
	idx.pageOrder = append(idx.pageOrder, id)
}

func (idx *Index) addAttachment(e Entry) {
	if _, exists := idx.Attachments[e.Path]; exists {
		return
	}

	att := &notion.AttachmentInfo{
		Source:   e.Path,
		Modified: e.File.Modified,
	}
	if owner, ok := notion.OwnerFromPath(e.Path); ok {
		att.OwnerID = owner
	}

	idx.Attachments[e.Path] = att
	idx.attachmentOrder = append(idx.attachmentOrder, e.Path)
}

// PagesInOrder returns pages in archive insertion order.
func (idx *Index) PagesInOrder() []*notion.PageInfo {
	pages := make([]*notion.PageInfo, 0, len(idx.pageOrder))
	for _, id := range idx.pageOrder {
		pages = append(pages, idx.Pages[id])
	}
	return pages
}

// AttachmentsInOrder returns attachments in archive insertion order.
func (idx *Index) AttachmentsInOrder() []*notion.AttachmentInfo {
	atts := make([]*notion.AttachmentInfo, 0, len(idx.attachmentOrder))
	for _, src := range idx.attachmentOrder {
		atts = append(atts, idx.Attachments[src])
	}
	return atts
}

// Lookup maps a walked entry back onto its index record, or (nil, nil) for an
// entry the index pass rejected.
func (idx *Index) Lookup(e Entry) (*notion.PageInfo, *notion.AttachmentInfo) {
	if e.Kind == notion.KindPage {
		if id, ok := notion.ExtractID(e.Stem()); ok {
			if p, ok := idx.Pages[id]; ok && p.SourcePath == e.Path {
				return p, nil
			}
		}
	}
	if a, ok := idx.Attachments[e.Path]; ok {
		return nil, a
	}
	return nil, nil
}

// OutputDirs returns the distinct output folders of the resolved path set,
// sorted so parents come before their children, so they can be created up
// front.
func (idx *Index) OutputDirs() []string {
	seen := map[string]bool{}
	var dirs []string
	add := func(dir notion.RelativePath) {
		d := strings.TrimSuffix(string(dir), "/")
		if d == "" {
			d = "."
		}
		if !seen[d] {
			seen[d] = true
			dirs = append(dirs, d)
		}
	}
	for _, id := range idx.pageOrder {
		add(idx.Pages[id].Dir)
	}
	for _, src := range idx.attachmentOrder {
		add(idx.Attachments[src].Dir)
	}
	slices.Sort(dirs)
	return dirs
}
