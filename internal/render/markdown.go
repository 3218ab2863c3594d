package render

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
)

// Inline SGR sequences. Inline spans nest, so open/close codes are written
// directly instead of styling a collected string.
const (
	sgrBold     = "\x1b[1m"
	sgrItalic   = "\x1b[3m"
	sgrStrike   = "\x1b[9m"
	sgrCodeSpan = "\x1b[38;5;229m"
	sgrReset    = "\x1b[0m"
)

// Markdown renders markdown to ANSI-colored terminal text. Pure function of
// its input: a fresh parser and renderer per call, no shared state. On a
// parse failure the input is returned unchanged.
func Markdown(input string) string {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRenderer(newANSIRenderer()),
	)

	var buf bytes.Buffer
	if err := md.Convert([]byte(input), &buf); err != nil {
		return input
	}

	return strings.TrimRight(buf.String(), "\n")
}

// ansiRenderer renders a goldmark AST as ANSI-styled terminal text.
type ansiRenderer struct {
	quoteDepth  int
	listDepth   int
	listCounter []int // per-depth ordered-list counter, 0 for bullet lists
}

func newANSIRenderer() renderer.Renderer {
	return renderer.NewRenderer(
		renderer.WithNodeRenderers(
			util.Prioritized(&ansiRenderer{}, 100),
		),
	)
}

// RegisterFuncs registers rendering functions for node types
func (r *ansiRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	// Block elements
	reg.Register(ast.KindDocument, r.renderNothing)
	reg.Register(ast.KindParagraph, r.renderParagraph)
	reg.Register(ast.KindTextBlock, r.renderTextBlock)
	reg.Register(ast.KindHeading, r.renderHeading)
	reg.Register(ast.KindCodeBlock, r.renderCodeBlock)
	reg.Register(ast.KindFencedCodeBlock, r.renderCodeBlock)
	reg.Register(ast.KindBlockquote, r.renderBlockquote)
	reg.Register(ast.KindList, r.renderList)
	reg.Register(ast.KindListItem, r.renderListItem)
	reg.Register(ast.KindThematicBreak, r.renderThematicBreak)
	reg.Register(ast.KindHTMLBlock, r.renderHTMLBlock)

	// Inline elements
	reg.Register(ast.KindText, r.renderText)
	reg.Register(ast.KindString, r.renderString)
	reg.Register(ast.KindEmphasis, r.renderEmphasis)
	reg.Register(ast.KindCodeSpan, r.renderCodeSpan)
	reg.Register(ast.KindLink, r.renderLink)
	reg.Register(ast.KindAutoLink, r.renderAutoLink)
	reg.Register(ast.KindImage, r.renderImage)
	reg.Register(ast.KindRawHTML, r.renderRawHTML)

	// GFM
	reg.Register(east.KindStrikethrough, r.renderStrikethrough)
	reg.Register(east.KindTable, r.renderNothing)
	reg.Register(east.KindTableHeader, r.renderTableRow)
	reg.Register(east.KindTableRow, r.renderTableRow)
	reg.Register(east.KindTableCell, r.renderTableCell)
	reg.Register(east.KindTaskCheckBox, r.renderTaskCheckBox)
}

func (r *ansiRenderer) renderNothing(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	return ast.WalkContinue, nil
}

// renderTextBlock handles tight list items, which wrap their text in a
// TextBlock instead of a Paragraph.
func (r *ansiRenderer) renderTextBlock(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		w.WriteString("\n")
	}
	return ast.WalkContinue, nil
}

func (r *ansiRenderer) renderParagraph(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		if r.quoteDepth > 0 {
			w.WriteString(quoteStyle.Render("│ "))
		}
		return ast.WalkContinue, nil
	}
	if node.Parent() != nil && node.Parent().Kind() == ast.KindListItem {
		w.WriteString("\n")
	} else {
		w.WriteString("\n\n")
	}
	return ast.WalkContinue, nil
}

func (r *ansiRenderer) renderHeading(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		h := node.(*ast.Heading)
		label := strings.Repeat("#", h.Level) + " " + string(node.Text(source))
		w.WriteString(headingStyle.Render(label))
		return ast.WalkSkipChildren, nil
	}
	w.WriteString("\n\n")
	return ast.WalkContinue, nil
}

func (r *ansiRenderer) renderCodeBlock(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}

	var code strings.Builder
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		code.Write(seg.Value(source))
	}

	w.WriteString(codeBlockStyle.Render(strings.TrimRight(code.String(), "\n")))
	w.WriteString("\n\n")
	return ast.WalkSkipChildren, nil
}

func (r *ansiRenderer) renderBlockquote(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		r.quoteDepth++
	} else {
		r.quoteDepth--
	}
	return ast.WalkContinue, nil
}

func (r *ansiRenderer) renderList(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	list := node.(*ast.List)
	if entering {
		r.listDepth++
		start := 0
		if list.IsOrdered() {
			start = list.Start
			if start == 0 {
				start = 1
			}
		}
		r.listCounter = append(r.listCounter, start)
		return ast.WalkContinue, nil
	}

	r.listDepth--
	r.listCounter = r.listCounter[:len(r.listCounter)-1]
	if node.Parent() == nil || node.Parent().Kind() != ast.KindListItem {
		w.WriteString("\n")
	}
	return ast.WalkContinue, nil
}

func (r *ansiRenderer) renderListItem(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}

	indent := strings.Repeat("  ", r.listDepth-1)
	w.WriteString(indent)

	i := len(r.listCounter) - 1
	if r.listCounter[i] > 0 {
		w.WriteString(bulletStyle.Render(strconv.Itoa(r.listCounter[i]) + "."))
		r.listCounter[i]++
	} else {
		w.WriteString(bulletStyle.Render("•"))
	}
	w.WriteString(" ")
	return ast.WalkContinue, nil
}

func (r *ansiRenderer) renderThematicBreak(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		w.WriteString(ruleStyle.Render(strings.Repeat("─", 40)))
		w.WriteString("\n\n")
	}
	return ast.WalkContinue, nil
}

func (r *ansiRenderer) renderHTMLBlock(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	// Raw HTML blocks pass through untouched; models rarely emit them and
	// paraphrasing would lose content.
	if entering {
		n := node.(*ast.HTMLBlock)
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			w.Write(seg.Value(source))
		}
	}
	return ast.WalkContinue, nil
}

func (r *ansiRenderer) renderText(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ast.Text)
	w.Write(n.Segment.Value(source))
	if n.HardLineBreak() || n.SoftLineBreak() {
		w.WriteString("\n")
		if r.quoteDepth > 0 {
			w.WriteString(quoteStyle.Render("│ "))
		}
	}
	return ast.WalkContinue, nil
}

func (r *ansiRenderer) renderString(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		w.Write(node.(*ast.String).Value)
	}
	return ast.WalkContinue, nil
}

func (r *ansiRenderer) renderEmphasis(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	em := node.(*ast.Emphasis)
	if entering {
		if em.Level >= 2 {
			w.WriteString(sgrBold)
		} else {
			w.WriteString(sgrItalic)
		}
	} else {
		w.WriteString(sgrReset)
	}
	return ast.WalkContinue, nil
}

func (r *ansiRenderer) renderCodeSpan(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		w.WriteString(sgrCodeSpan)
	} else {
		w.WriteString(sgrReset)
	}
	return ast.WalkContinue, nil
}

func (r *ansiRenderer) renderLink(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		link := node.(*ast.Link)
		if len(link.Destination) > 0 {
			w.WriteString(" (")
			w.WriteString(linkStyle.Render(string(link.Destination)))
			w.WriteString(")")
		}
	}
	return ast.WalkContinue, nil
}

func (r *ansiRenderer) renderAutoLink(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		link := node.(*ast.AutoLink)
		w.WriteString(linkStyle.Render(string(link.URL(source))))
	}
	return ast.WalkContinue, nil
}

func (r *ansiRenderer) renderImage(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		img := node.(*ast.Image)
		w.WriteString(linkStyle.Render(string(img.Destination)))
		return ast.WalkSkipChildren, nil
	}
	return ast.WalkContinue, nil
}

func (r *ansiRenderer) renderRawHTML(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		n := node.(*ast.RawHTML)
		for i := 0; i < n.Segments.Len(); i++ {
			seg := n.Segments.At(i)
			w.Write(seg.Value(source))
		}
	}
	return ast.WalkContinue, nil
}

func (r *ansiRenderer) renderStrikethrough(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		w.WriteString(sgrStrike)
	} else {
		w.WriteString(sgrReset)
	}
	return ast.WalkContinue, nil
}

func (r *ansiRenderer) renderTableRow(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		w.WriteString("\n")
	}
	return ast.WalkContinue, nil
}

func (r *ansiRenderer) renderTableCell(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		w.WriteString("  ")
	}
	return ast.WalkContinue, nil
}

func (r *ansiRenderer) renderTaskCheckBox(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		if node.(*east.TaskCheckBox).IsChecked {
			w.WriteString("[x] ")
		} else {
			w.WriteString("[ ] ")
		}
	}
	return ast.WalkContinue, nil
}

