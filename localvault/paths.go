package localvault

import (
	"strings"
	"unicode/utf8"

	"github.com/toothbrush/notion-dump/notion"
)

// Filesystem-hostile characters; titles come from archive entry names so they
// are mostly clean already, but links and nested-archive prefixes are not
// guaranteed to be.
var unsafeNameChars = strings.NewReplacer(
	"/", " ", "\\", " ", ":", " ", "*", " ", "?", " ",
	"\"", " ", "<", " ", ">", " ", "|", " ",
)

func sanitizeName(name string) string {
	name = unsafeNameChars.Replace(name)
	name = strings.Join(strings.Fields(name), " ")
	if len(name) > 100 {
		cut := 100
		// Back off to a rune boundary so a multibyte title can't truncate
		// into invalid UTF-8.
		for cut > 0 && !utf8.RuneStart(name[cut]) {
			cut--
		}
		name = strings.TrimSpace(name[:cut])
	}
	name = strings.Trim(name, ". ")
	if name == "" {
		return "Untitled"
	}
	return name
}

// ancestorChain walks the page's parent links and returns its ancestors
// root-first, excluding the page itself.  An unresolved ancestor terminates
// the chain (the dangling part is dropped).  A cycle discards the whole chain,
// so the page is placed as if it were top-level.  Always nil in flat mode.
func (idx *Index) ancestorChain(p *notion.PageInfo) []*notion.PageInfo {
	if !idx.Config.ParentPagesInSubfolders {
		return nil
	}

	visited := map[notion.PageID]bool{p.ID: true}
	var chain []*notion.PageInfo
	cur := p
	for cur.ParentID != "" {
		parent, ok := idx.Pages[cur.ParentID]
		if !ok {
			break
		}
		if visited[parent.ID] {
			return nil
		}
		visited[parent.ID] = true
		chain = append([]*notion.PageInfo{parent}, chain...)
		cur = parent
	}
	return chain
}

// markChildren flags every page that is some other page's parent.  In nested
// mode those pages get their own folder and live in it as an index file.
func (idx *Index) markChildren() {
	for _, id := range idx.pageOrder {
		p := idx.Pages[id]
		if parent, ok := idx.Pages[p.ParentID]; ok && parent.ID != p.ID {
			parent.HasChildren = true
		}
	}
}

// relativeTarget computes the link target for a file at targetPath as seen
// from a page whose file lives in fromDir.  Both are store-root relative,
// slash separated.
func relativeTarget(fromDir notion.RelativePath, targetPath string) string {
	var fromParts []string
	if d := strings.Trim(string(fromDir), "/"); d != "" {
		fromParts = strings.Split(d, "/")
	}
	targetParts := strings.Split(targetPath, "/")

	common := 0
	for common < len(fromParts) && common < len(targetParts)-1 && fromParts[common] == targetParts[common] {
		common++
	}

	out := make([]string, 0, len(fromParts)-common+len(targetParts)-common)
	for range fromParts[common:] {
		out = append(out, "..")
	}
	out = append(out, targetParts[common:]...)
	return strings.Join(out, "/")
}
