// Package extract converts rendered DOM trees into clean text, links, and
// metadata for document assembly.
package extract

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// ParsedPage is the normalizer output: the page title (empty when the
// document has none) and the structure-preserving plain text.
type ParsedPage struct {
	Title string
	Text  string
}

// Options tunes the noise-removal phase.
type Options struct {
	// CleanupProfile additionally drops elements carrying the
	// `sticky` or `hidden` class tokens, common in doc-site themes.
	CleanupProfile bool
	// DropTags lists extra element tags to remove before extraction.
	DropTags []string
}

// unwantedTags are removed wholesale before text extraction.
const unwantedTags = "nav,footer,meta,script,style,symbol,aside"

var baseUnwantedClasses = []string{"sidebar", "footer"}

var cleanupProfileClasses = []string{"sticky", "hidden"}

// Normalize strips noise from the document and flattens the remaining DOM
// into plain text. The document is mutated destructively: the title element,
// class-based noise, and unwanted tags are all removed before the walk.
//
// Output shape:
//   - in-HTML newlines collapse to spaces, as a browser would render them
//   - newlines appear only at headings, paragraphs, list items, rows, or
//     explicit breaks (br, pre)
//   - table cells separate with tabs, rows with newlines
//   - list items start on their own line with a leading hyphen
func Normalize(doc *goquery.Document, opts Options) ParsedPage {
	var title string
	if sel := doc.Find("title").First(); sel.Length() > 0 {
		title = sel.Text()
		sel.Remove()
	}

	classes := baseUnwantedClasses
	if opts.CleanupProfile {
		classes = append(append([]string{}, classes...), cleanupProfileClasses...)
	}
	doc.Find("[class]").Each(func(_ int, s *goquery.Selection) {
		attr, _ := s.Attr("class")
		for _, token := range strings.Fields(attr) {
			for _, unwanted := range classes {
				if token == unwanted {
					s.Remove()
					return
				}
			}
		}
	})

	doc.Find(unwantedTags).Remove()
	for _, tag := range opts.DropTags {
		if tag = strings.TrimSpace(tag); tag != "" {
			doc.Find(tag).Remove()
		}
	}

	w := &walker{}
	for _, root := range doc.Nodes {
		for child := root.FirstChild; child != nil; child = child.NextSibling {
			w.visit(child)
		}
	}
	return ParsedPage{Title: title, Text: finalize(w.buf.String())}
}

// NormalizeHTML parses raw HTML and normalizes it in one step.
func NormalizeHTML(rawHTML string, opts Options) (ParsedPage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return ParsedPage{}, err
	}
	return Normalize(doc, opts), nil
}

// MarkerTexts returns the text of every tag-like marker element matching the
// selector, in document order. Used for the heuristic `content` metadata.
func MarkerTexts(doc *goquery.Document, selector string) []string {
	if selector == "" {
		return nil
	}
	var texts []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		texts = append(texts, s.Text())
	})
	return texts
}

// walker holds the extraction state for a single pre-order pass.
type walker struct {
	buf strings.Builder

	inTable bool
	// verbatim counts nodes still owed raw-text treatment; it is seeded
	// with a <pre> subtree's descendant count and drains one per node.
	verbatim int
	// hardNewline suppresses a single leading space on the text that
	// follows a forced break (headings, br).
	hardNewline bool
	// listItemStart suppresses the paragraph newline immediately after
	// a list-item marker.
	listItemStart bool

	lastRune rune
	hasLast  bool
}

func (w *walker) visit(n *html.Node) {
	verbatimHere := w.verbatim > 0
	if w.verbatim > 0 {
		w.verbatim--
	}

	switch n.Type {
	case html.TextNode:
		w.text(n.Data, verbatimHere)
	case html.ElementNode:
		tag := n.Data
		if tag == "table" {
			wasInTable := w.inTable
			w.inTable = true
			w.visitChildren(n)
			w.inTable = wasInTable
			return
		}
		if w.inTable {
			switch tag {
			case "tr":
				w.emit("\n")
			case "td", "th":
				// Separator goes between cells, not before the
				// first cell of a row.
				if w.hasLast && w.lastRune != '\n' {
					w.emit("\t")
				}
			}
			w.visitChildren(n)
			return
		}
		switch tag {
		case "p", "div":
			if !w.listItemStart {
				w.emit("\n")
			}
		case "h1", "h2", "h3", "h4":
			w.emit("\n")
			w.listItemStart = false
			w.hardNewline = true
		case "br":
			w.emit("\n")
			w.listItemStart = false
			w.hardNewline = true
		case "li":
			w.emit("\n- ")
			w.listItemStart = true
		case "pre":
			if w.verbatim <= 0 {
				w.verbatim = descendantCount(n)
			}
		}
	}
	w.visitChildren(n)
}

func (w *walker) visitChildren(n *html.Node) {
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		w.visit(child)
	}
}

func (w *walker) text(raw string, verbatim bool) {
	text := raw
	if w.inTable {
		// Rows already separate with newlines, so cell content must
		// stay on one line.
		text = strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
	}
	if w.hardNewline {
		text = strings.TrimPrefix(text, " ")
	}
	if text == "" {
		return
	}
	w.hardNewline = false

	content := text
	if !verbatim {
		content = newlineRun.ReplaceAllString(content, " ")
	}

	// Keep fragments from gluing together across element boundaries.
	if w.hasLast && !unicode.IsSpace(w.lastRune) {
		if first := []rune(content)[0]; !unicode.IsSpace(first) {
			w.emit(" ")
		}
	}
	w.emit(content)
	w.listItemStart = false
}

func (w *walker) emit(s string) {
	if s == "" {
		return
	}
	w.buf.WriteString(s)
	for _, r := range s {
		w.lastRune = r
	}
	w.hasLast = true
}

func descendantCount(n *html.Node) int {
	count := 0
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		count += 1 + descendantCount(child)
	}
	return count
}

var (
	newlineRun      = regexp.MustCompile(`[\n\r]+`)
	spaceRun        = regexp.MustCompile(` +`)
	trailingSpaceNL = regexp.MustCompile(` +\n`)
)

func finalize(text string) string {
	text = strings.ReplaceAll(text, "\u200b", "")
	text = spaceRun.ReplaceAllString(text, " ")
	text = trailingSpaceNL.ReplaceAllString(text, "\n")
	text = newlineRun.ReplaceAllString(text, "\n")
	return strings.TrimSpace(text)
}
