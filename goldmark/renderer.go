package goldmark

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/skim"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// minWrap keeps deeply nested blocks readable on narrow terminals.
const minWrap = 10

type summaryRenderer struct {
	width int
	md    goldmark.Markdown

	body   lipgloss.Style
	strong lipgloss.Style
	em     lipgloss.Style
	title  lipgloss.Style
	muted  lipgloss.Style
	link   lipgloss.Style
}

func newRenderer(theme skim.Theme, width int) *summaryRenderer {
	return &summaryRenderer{
		width:  width,
		md:     goldmark.New(goldmark.WithExtensions(extension.Linkify, extension.Strikethrough)),
		body:   lipgloss.NewStyle().Foreground(ansiColor(theme.Assistant)),
		strong: lipgloss.NewStyle().Bold(true),
		em:     lipgloss.NewStyle().Italic(true),
		title:  lipgloss.NewStyle().Foreground(ansiColor(theme.Accent)).Bold(true),
		muted:  lipgloss.NewStyle().Foreground(ansiColor(theme.Muted)).Faint(true),
		link:   lipgloss.NewStyle().Foreground(ansiColor(theme.Accent)).Underline(true),
	}
}

func ansiColor(index int) lipgloss.TerminalColor {
	if index < 0 {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(strconv.Itoa(index))
}

func (r *summaryRenderer) render(source []byte) string {
	doc := r.md.Parser().Parse(text.NewReader(source))
	blocks := r.blocks(doc, source, r.width)
	return strings.Join(blocks, "\n\n")
}

// blocks renders each child block of node, wrapped to width.
func (r *summaryRenderer) blocks(node ast.Node, source []byte, width int) []string {
	var out []string
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		if s := r.block(c, source, width); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (r *summaryRenderer) block(node ast.Node, source []byte, width int) string {
	switch n := node.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		return r.wrap(r.body.Render(r.inline(n, source)), width)

	case *ast.Heading:
		return r.wrap(r.title.Render(r.inline(n, source)), width)

	case *ast.Blockquote:
		inner := strings.Join(r.blocks(n, source, max(width-2, minWrap)), "\n\n")
		return prefixLines(inner, r.muted.Render("▎")+" ", r.muted.Render("▎")+" ")

	case *ast.List:
		return r.list(n, source, width)

	case *ast.FencedCodeBlock, *ast.CodeBlock:
		return r.code(n, source)

	case *ast.ThematicBreak:
		return r.muted.Render(strings.Repeat("─", min(width, 40)))

	case *ast.HTMLBlock:
		var b strings.Builder
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			b.Write(seg.Value(source))
		}
		return strings.TrimRight(b.String(), "\n")

	default:
		return strings.Join(r.blocks(n, source, width), "\n\n")
	}
}

func (r *summaryRenderer) list(n *ast.List, source []byte, width int) string {
	var lines []string
	num := n.Start
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		marker := "• "
		if n.IsOrdered() {
			marker = fmt.Sprintf("%d. ", num)
			num++
		}
		indent := lipgloss.Width(marker)
		inner := strings.Join(r.blocks(c, source, max(width-indent, minWrap)), "\n")
		lines = append(lines, prefixLines(inner, r.muted.Render(marker), strings.Repeat(" ", indent)))
	}
	sep := "\n"
	if !n.IsTight {
		sep = "\n\n"
	}
	return strings.Join(lines, sep)
}

// code renders code verbatim behind a gutter; summaries quote snippets and
// reflowing them would change their meaning.
func (r *summaryRenderer) code(n ast.Node, source []byte) string {
	var b strings.Builder
	if fenced, ok := n.(*ast.FencedCodeBlock); ok {
		if lang := string(fenced.Language(source)); lang != "" {
			b.WriteString(r.muted.Render(lang))
			b.WriteString("\n")
		}
	}
	gutter := r.muted.Render("│") + " "
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(gutter)
		b.WriteString(strings.TrimRight(string(seg.Value(source)), "\n"))
	}
	return b.String()
}

func (r *summaryRenderer) wrap(s string, width int) string {
	return lipgloss.NewStyle().Width(width).Render(s)
}

// prefixLines prefixes the first line of s with first and the rest with rest.
func prefixLines(s, first, rest string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if i == 0 {
			lines[i] = first + line
		} else {
			lines[i] = rest + line
		}
	}
	return strings.Join(lines, "\n")
}

// inline collects the styled text of node's inline children.
func (r *summaryRenderer) inline(node ast.Node, source []byte) string {
	var b strings.Builder
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		r.writeInline(&b, c, source)
	}
	return b.String()
}

func (r *summaryRenderer) writeInline(b *strings.Builder, node ast.Node, source []byte) {
	switch n := node.(type) {
	case *ast.Text:
		b.Write(n.Segment.Value(source))
		switch {
		case n.HardLineBreak():
			b.WriteByte('\n')
		case n.SoftLineBreak():
			b.WriteByte(' ')
		}

	case *ast.String:
		b.Write(n.Value)

	case *ast.Emphasis:
		if n.Level == 1 {
			b.WriteString(r.em.Render(r.inline(n, source)))
		} else {
			b.WriteString(r.strong.Render(r.inline(n, source)))
		}

	case *ast.CodeSpan:
		b.WriteString(r.strong.Render(r.inline(n, source)))

	case *ast.Link:
		label := r.inline(n, source)
		dest := string(n.Destination)
		b.WriteString(r.link.Render(label))
		if label != dest {
			b.WriteString(" " + r.muted.Render("("+dest+")"))
		}

	case *ast.AutoLink:
		b.WriteString(r.link.Render(string(n.URL(source))))

	case *ast.Image:
		b.WriteString(r.muted.Render("[" + r.inline(n, source) + "]"))

	case *ast.RawHTML:
		for i := 0; i < n.Segments.Len(); i++ {
			seg := n.Segments.At(i)
			b.Write(seg.Value(source))
		}

	default:
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			r.writeInline(b, c, source)
		}
	}
}
