package localvault

import (
	"strconv"
	"strings"

	"github.com/toothbrush/notion-dump/notion"
)

// nameClaims hands out unique (folder, name) pairs.  The first claimant of a
// name keeps it; later claimants get a "-2", "-3", ... suffix on the stem.
// Keys are lowercased so the result is safe on case-insensitive filesystems.
type nameClaims struct {
	used map[string]int
}

func newNameClaims() *nameClaims {
	return &nameClaims{used: make(map[string]int)}
}

func (c *nameClaims) claim(dir notion.RelativePath, stem, ext string) string {
	key := strings.ToLower(string(dir) + "\x00" + stem + ext)
	n := c.used[key]
	c.used[key] = n + 1
	if n > 0 {
		stem = stem + "-" + strconv.Itoa(n+1)
	}
	return stem + ext
}

// Resolve is the duplicate-resolver pass: it assigns every page and attachment
// its final output folder and file name, de-duplicating collisions
// deterministically in archive order.  It must run to completion before any
// folder is created or file written, because the content converter rewrites
// links against the assigned paths.
func (idx *Index) Resolve() {
	if idx.resolved {
		return
	}
	if idx.Config.ParentPagesInSubfolders {
		idx.markChildren()
	}

	claims := newNameClaims()
	for _, p := range idx.PagesInOrder() {
		idx.assignPage(p, claims)
	}
	for _, a := range idx.AttachmentsInOrder() {
		idx.assignAttachment(a, claims)
	}
	idx.resolved = true
}

func (idx *Index) assignPage(p *notion.PageInfo, claims *nameClaims) {
	if p.FileName != "" {
		// Already assigned while ensuring an ancestor's folder.
		return
	}

	dir := notion.RelativePath("")
	for _, ancestor := range idx.ancestorChain(p) {
		dir = idx.ensureFolder(ancestor, dir, claims)
	}

	if idx.Config.ParentPagesInSubfolders && p.HasChildren {
		idx.ensureFolder(p, dir, claims)
		return
	}

	p.Dir = dir
	p.FileName = claims.claim(dir, sanitizeName(p.Title), ".md")
}

// ensureFolder gives a parent page its own folder under parentDir and places
// the page itself as an index file inside it.  Idempotent; returns the folder
// the page's children go into.
func (idx *Index) ensureFolder(p *notion.PageInfo, parentDir notion.RelativePath, claims *nameClaims) notion.RelativePath {
	if d, ok := idx.childDirs[p.ID]; ok {
		return d
	}

	seg := claims.claim(parentDir, sanitizeName(p.Title), "")
	dir := parentDir + notion.RelativePath(seg+"/")
	idx.childDirs[p.ID] = dir

	p.Dir = dir
	p.FileName = claims.claim(dir, seg, ".md")
	return dir
}

func (idx *Index) assignAttachment(a *notion.AttachmentInfo, claims *nameClaims) {
	base := notion.RelativePath("")
	if owner, ok := idx.Pages[a.OwnerID]; ok && a.OwnerID != "" {
		base = owner.Dir
	}
	dir := idx.attachmentFolder(base, claims)

	name := a.Source
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	ext := ""
	if i := strings.LastIndex(name, "."); i > 0 {
		ext = name[i:]
		name = name[:i]
	}

	a.Dir = dir
	a.FileName = claims.claim(dir, sanitizeName(name), ext)
}

// attachmentFolder resolves (and claims, once) the attachment folder under a
// page directory.  With no folder configured, attachments sit directly next to
// their page.
func (idx *Index) attachmentFolder(base notion.RelativePath, claims *nameClaims) notion.RelativePath {
	folder := idx.Config.DefaultAttachmentFolder
	if folder == "" {
		return base
	}
	if d, ok := idx.attachDirs[base]; ok {
		return d
	}

	seg := claims.claim(base, sanitizeName(folder), "")
	dir := base + notion.RelativePath(seg+"/")
	idx.attachDirs[base] = dir
	return dir
}
