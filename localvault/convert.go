package localvault

import (
	"bytes"
	"fmt"
	"html"
	"net/url"
	"path"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	mdplugin "github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-enry/go-enry/v2"
	"github.com/toothbrush/notion-dump/notion"
)

// classifyLanguage guesses a code block's language among the configured
// candidates.  Swappable for tests.
var classifyLanguage = func(code string, candidates []string) string {
	langs := enry.GetLanguagesByClassifier("", []byte(code), candidates)
	if len(langs) == 0 {
		return ""
	}
	return strings.ToLower(langs[0])
}

// Convert renders one page's HTML payload to Markdown, rewriting every
// internal reference against the fully resolved index.  Pure with respect to
// the filesystem; as a side effect it records the page's icon glyph on the
// PageInfo.
func (idx *Index) Convert(page *notion.PageInfo, payload []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("localvault: parse page HTML: %w", err)
	}

	if icon := strings.TrimSpace(doc.Find(".page-header-icon .icon").First().Text()); icon != "" {
		page.Icon = icon
	}

	idx.rewriteLinks(doc, page)
	idx.rewriteTOC(doc)

	// The export wraps content in div.page-body; the <h1 class="page-title">
	// header duplicates the file name and is dropped.
	body := doc.Find("div.page-body").First()
	if body.Length() == 0 {
		body = doc.Find("body").First()
	}
	if body.Length() == 0 {
		body = doc.Selection
	}

	conv := md.NewConverter("", true, nil)
	conv.Use(mdplugin.GitHubFlavored())
	conv.AddRules(calloutRule(), toggleSummaryRule(), idx.codeRule())

	markdown := strings.TrimSpace(conv.Convert(body))
	if idx.Config.SingleLineBreaks {
		markdown = collapseBlankLines(markdown)
	}

	return idx.frontMatter(page) + markdown + "\n", nil
}

// rewriteLinks points every internal reference at its resolved output path.
// A relative page link whose identifier is absent from the index degrades to
// plain text; unknown attachment references are left untouched.
func (idx *Index) rewriteLinks(doc *goquery.Document, page *notion.PageInfo) {
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		decoded := decodeHref(href)
		if decoded == "" || strings.HasPrefix(decoded, "#") {
			return
		}

		if id, ok := pageLinkTarget(decoded); ok {
			target, known := idx.Pages[id]
			if !known {
				s.ReplaceWithHtml(html.EscapeString(s.Text()))
				return
			}
			s.SetAttr("href", escapePath(relativeTarget(page.Dir, target.OutputPath())))
			return
		}

		if att := idx.attachmentFor(page, decoded); att != nil {
			s.SetAttr("href", escapePath(relativeTarget(page.Dir, att.OutputPath())))
		}
	})

	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		if att := idx.attachmentFor(page, decodeHref(src)); att != nil {
			s.SetAttr("src", escapePath(relativeTarget(page.Dir, att.OutputPath())))
		}
	})
}

// rewriteTOC flattens each table-of-contents block into a plain list, or
// removes it outright per configuration.
func (idx *Index) rewriteTOC(doc *goquery.Document) {
	doc.Find("nav.table_of_contents").Each(func(_ int, s *goquery.Selection) {
		if idx.Config.RemoveTableOfContents {
			s.Remove()
			return
		}
		var b strings.Builder
		b.WriteString("<ul>")
		s.Find("a.table_of_contents-link").Each(func(_ int, link *goquery.Selection) {
			if text := strings.TrimSpace(link.Text()); text != "" {
				b.WriteString("<li>" + html.EscapeString(text) + "</li>")
			}
		})
		b.WriteString("</ul>")
		s.ReplaceWithHtml(b.String())
	})
}

// attachmentFor resolves a reference relative to the page's source location
// back to an indexed attachment, or nil.
func (idx *Index) attachmentFor(page *notion.PageInfo, ref string) *notion.AttachmentInfo {
	if ref == "" || strings.Contains(ref, "://") || strings.HasPrefix(ref, "data:") {
		return nil
	}
	cand := path.Join(path.Dir(page.SourcePath), ref)
	return idx.Attachments[cand]
}

// pageLinkTarget extracts the identifier of an internal page link: either a
// relative "<title> <id>.html" reference, or an absolute notion.so URL ending
// in "<slug>-<id>".
func pageLinkTarget(ref string) (notion.PageID, bool) {
	if u, err := url.Parse(ref); err == nil && u.Host != "" {
		if !strings.HasSuffix(strings.ToLower(u.Host), "notion.so") {
			return "", false
		}
		base := path.Base(u.Path)
		if i := strings.LastIndex(base, "-"); i >= 0 {
			base = base[i+1:]
		}
		return notion.ExtractID(base)
	}

	// A block reference like "Title <id>.html#abc123" still targets the page;
	// the fragment has no counterpart in the Markdown output and is dropped.
	if i := strings.IndexByte(ref, '#'); i >= 0 {
		ref = ref[:i]
	}
	if !strings.EqualFold(path.Ext(ref), ".html") {
		return "", false
	}
	return notion.ExtractID(strings.TrimSuffix(path.Base(ref), path.Ext(ref)))
}

func decodeHref(href string) string {
	decoded, err := url.PathUnescape(strings.TrimSpace(href))
	if err != nil {
		return strings.TrimSpace(href)
	}
	return decoded
}

func escapePath(p string) string {
	return (&url.URL{Path: p}).EscapedPath()
}

// calloutRule renders Notion callout figures as blockquotes.
func calloutRule() md.Rule {
	return md.Rule{
		Filter: []string{"figure"},
		Replacement: func(content string, selec *goquery.Selection, opt *md.Options) *string {
			if !selec.HasClass("callout") {
				return nil
			}
			lines := strings.Split(strings.TrimSpace(content), "\n")
			for i := range lines {
				lines[i] = strings.TrimRight("> "+lines[i], " ")
			}
			return md.String("\n\n" + strings.Join(lines, "\n") + "\n\n")
		},
	}
}

// toggleSummaryRule renders a toggle's summary line in bold; the collapsible
// content below it converts as ordinary blocks.
func toggleSummaryRule() md.Rule {
	return md.Rule{
		Filter: []string{"summary"},
		Replacement: func(content string, selec *goquery.Selection, opt *md.Options) *string {
			text := strings.TrimSpace(content)
			if text == "" {
				return md.String("")
			}
			return md.String("\n\n**" + text + "**\n\n")
		},
	}
}

// codeRule fences code blocks, keeping the exported language when present and
// otherwise inferring one for blocks long enough to classify.
func (idx *Index) codeRule() md.Rule {
	return md.Rule{
		Filter: []string{"pre"},
		Replacement: func(content string, selec *goquery.Selection, opt *md.Options) *string {
			code := selec.Find("code").First()
			text := selec.Text()
			if code.Length() > 0 {
				text = code.Text()
			}

			lang := languageFromClass(code)
			if lang == "" {
				lang = idx.inferLanguage(text)
			}

			fence := "```"
			for strings.Contains(text, fence) {
				fence += "`"
			}
			return md.String("\n\n" + fence + lang + "\n" + strings.TrimRight(text, "\n") + "\n" + fence + "\n\n")
		},
	}
}

func languageFromClass(code *goquery.Selection) string {
	if code == nil || code.Length() == 0 {
		return ""
	}
	classes, _ := code.Attr("class")
	for _, c := range strings.Fields(classes) {
		if strings.HasPrefix(c, "language-") {
			return strings.ToLower(strings.TrimPrefix(c, "language-"))
		}
	}
	return ""
}

// inferLanguage classifies a code block's text, but only above the configured
// minimum length; short snippets stay untyped.
func (idx *Index) inferLanguage(code string) string {
	if len(code) <= idx.Config.LanguageDetectionMinimumLength {
		return ""
	}
	if len(idx.Config.AutoDetectedLanguages) == 0 {
		return ""
	}
	return classifyLanguage(code, idx.Config.AutoDetectedLanguages)
}

// frontMatter emits the icon property block, when configured and present.
// The single key/value pair is formatted by hand: a YAML marshaller escapes
// glyphs outside the basic plane into \U sequences, and the icon is exactly
// such a glyph.
func (idx *Index) frontMatter(page *notion.PageInfo) string {
	if idx.Config.IconPropertyName == "" || page.Icon == "" {
		return ""
	}
	return fmt.Sprintf("---\n%s: %s\n---\n\n", idx.Config.IconPropertyName, page.Icon)
}

// collapseBlankLines drops blank lines between blocks, leaving fenced code
// untouched.
func collapseBlankLines(markdown string) string {
	lines := strings.Split(markdown, "\n")
	out := make([]string, 0, len(lines))
	inFence := false
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
		} else if !inFence && strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
