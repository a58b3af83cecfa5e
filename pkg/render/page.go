package render

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"unicode/utf8"

	"oberon-xref/pkg/link"
	"oberon-xref/pkg/rsc"
	"oberon-xref/pkg/token"
)

// ErrListingMismatch reports a disassembly whose source positions lie beyond
// the end of the module text, usually a stale object file.
var ErrListingMismatch = errors.New("listing does not match source")

var tokenClass = map[token.Category]string{
	token.CategoryKeyword:  "k",
	token.CategoryOperator: "o",
	token.CategoryConstant: "c",
	token.CategoryComment:  "cm",
}

// WriteModule writes the source page of p with every linked token turned
// into an anchor. When p carries a listing, the machine code is interleaved
// after the source line each instruction was generated from.
func WriteModule(w io.Writer, p Page) error {
	if p.Links != nil && len(p.Links) != len(p.Tokens) {
		return fmt.Errorf("%s: %d links for %d tokens", p.Module, len(p.Links), len(p.Tokens))
	}
	ew := &errWriter{w: w}
	header(ew, p.Module, true)
	ew.text("<p id=\"togglebuttons\"></p>\n")
	usedExports(ew, p)

	asm := newInterleaver(p.Listing)
	class := "sourcecode showsource"
	if asm != nil {
		class += " assemblypresent"
	}
	ew.printf("<table class=\"%s\">\n", class)

	line, offset := 1, 0
	openRow(ew, line)
	for i, tok := range p.Tokens {
		for asm.at(offset) {
			asm.marker(ew)
		}
		var l link.Link
		if p.Links != nil {
			l = p.Links[i]
		}
		end := openToken(ew, tok, l)

		n := utf8.RuneCountInString(tok.Text)
		if asm.before(offset + n) {
			runes := []rune(tok.Text)
			cut := 0
			for asm.before(offset + n) {
				next := asm.position() - offset
				writeText(ew, tok, string(runes[cut:next]))
				asm.marker(ew)
				cut = next
			}
			writeText(ew, tok, string(runes[cut:]))
		} else {
			writeText(ew, tok, tok.Text)
		}
		ew.text(end)
		offset += n

		if tok.Kind == token.LineBreak {
			ew.text("</td></tr>\n")
			asm.rows(ew, false)
			line++
			openRow(ew, line)
		}
	}
	for asm.at(offset) {
		asm.marker(ew)
	}
	ew.text("</td></tr>\n")
	if asm.pending() {
		return fmt.Errorf("%s: %w: code position %d after end of text at %d", p.Module, ErrListingMismatch, asm.position(), offset)
	}
	asm.rows(ew, true)
	ew.text("</table></body></html>\n")
	return ew.err
}

func openRow(ew *errWriter, line int) {
	ew.printf("<tr class=\"sl\"><th><a name=\"L_%d\" href=\"#L_%d\" data-l=\"%d\">%d</a></th><td>", line, line, line, line)
}

func writeText(ew *errWriter, tok token.Token, text string) {
	if tok.Kind != token.LineBreak {
		ew.text(h(text))
	}
}

// openToken writes the opening tag for tok and returns the matching closing
// tag.
func openToken(ew *errWriter, tok token.Token, l link.Link) string {
	class := tokenClass[tok.Kind.Category()]
	attr := ""
	if class != "" {
		attr = fmt.Sprintf(" class=\"%s\"", class)
	}
	switch {
	case l.Kind() == link.Definition:
		anchor := h(l.Anchor())
		ew.printf("<a name=\"%s\" href=\"#%s\"%s>", anchor, anchor, attr)
		return "</a>"
	case l != "":
		ew.printf("<a href=\"%s\"%s>", h(string(l)), attr)
		return "</a>"
	case class != "":
		ew.printf("<span%s>", attr)
		return "</span>"
	}
	return ""
}

// usedExports writes the header listing the exports of other modules the
// page refers to. Each entry is the anchor usage pages link back to.
func usedExports(ew *errWriter, p Page) {
	used := map[string]map[string]bool{}
	for _, l := range p.Links {
		if l.Kind() != link.External {
			continue
		}
		m := l.Module()
		if used[m] == nil {
			used[m] = map[string]bool{}
		}
		used[m][l.Anchor()] = true
	}
	ew.text("<div class=\"usedexports\"><h2>Used Exports</h2>\n")
	modules := make([]string, 0, len(used))
	for m := range used {
		modules = append(modules, m)
	}
	sort.Strings(modules)
	for _, m := range modules {
		anchors := make([]string, 0, len(used[m]))
		for a := range used[m] {
			anchors = append(anchors, a)
		}
		sort.Strings(anchors)
		ew.printf("<b>%s:</b>", h(m))
		for _, a := range anchors {
			ew.printf(" <a name=\"X_%s_%s\" href=\"%s#%s\">%s</a>", h(m), h(a), h(link.Page(m)), h(a), h(a))
		}
		ew.text("<br>\n")
	}
	ew.text("</div>\n")
}

// interleaver tracks which instructions of a listing have been announced by
// a marker in the source text and which have been printed as rows.
type interleaver struct {
	listing   *rsc.Listing
	positions []int         // distinct source positions, ascending
	code      map[int][]int // source position -> instruction indices
	next      int           // index into positions of the next marker
	until     int           // instructions announced so far
	printed   int
	intro     bool
}

func newInterleaver(l *rsc.Listing) *interleaver {
	if l == nil {
		return nil
	}
	a := &interleaver{listing: l, code: map[int][]int{}}
	for i, pos := range l.Positions {
		if _, ok := a.code[pos]; !ok {
			a.positions = append(a.positions, pos)
		}
		a.code[pos] = append(a.code[pos], i)
	}
	sort.Ints(a.positions)
	return a
}

func (a *interleaver) pending() bool { return a != nil && a.next < len(a.positions) }

func (a *interleaver) position() int { return a.positions[a.next] }

func (a *interleaver) at(offset int) bool { return a.pending() && a.position() <= offset }

func (a *interleaver) before(end int) bool { return a.pending() && a.position() < end }

func letter(n int) byte { return byte('a' + n%26) }

func (a *interleaver) marker(ew *errWriter) {
	n := a.next
	for _, i := range a.code[a.positions[n]] {
		a.until = max(a.until, i+1)
	}
	ew.printf("<sub class=\"ar\"><a name=\"AR_%d\" href=\"#AR_%d\">%c</a></sub>", n, n, letter(n))
	a.next++
}

// rows prints the listing rows announced so far, or all remaining rows.
func (a *interleaver) rows(ew *errWriter, all bool) {
	if a == nil {
		return
	}
	if !a.intro {
		a.intro = true
		a.row(ew, "H", "", -1, -1, a.listing.Intro)
	}
	limit := a.until
	if all {
		limit = len(a.listing.Lines)
	}
	for ; a.printed < limit; a.printed++ {
		i := a.printed
		pos := a.listing.Positions[i]
		addr := fmt.Sprintf("%04X", i)
		a.row(ew, addr, addr, pos, sort.SearchInts(a.positions, pos), a.listing.Lines[i])
	}
}

func (a *interleaver) row(ew *errWriter, anchor, label string, pos, marker int, lines []string) {
	for j, text := range lines {
		ew.printf("<tr class=\"al\"><th><a name=\"A_%s_%d\" href=\"#A_%s_%d\">%s</a></th><td><sup", anchor, j+1, anchor, j+1, label)
		if marker >= 0 {
			ew.printf(" title=\"%d\"><a href=\"#AR_%d\">%c</a>", pos, marker, letter(marker))
		} else {
			ew.text("> ")
		}
		ew.printf("</sup>%s</td></tr>\n", h(text))
	}
}
