// viewport.go provides a scrollable text area shared by the views.
//
// Widths are counted in runes so replies with accents and emoji are not
// cut in the middle of a character.
package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Viewport is a scrollable text area.
type Viewport struct {
	width    int
	height   int
	content  []string
	scrollY  int
	scrollX  int
	wrapText bool
}

// NewViewport creates a viewport with the given dimensions.
func NewViewport(width, height int) *Viewport {
	return &Viewport{width: width, height: height}
}

// SetContent replaces the viewport content.
func (v *Viewport) SetContent(content string) {
	v.content = strings.Split(content, "\n")
	v.clampScroll()
}

// SetContentLines replaces the viewport content with pre-split lines.
func (v *Viewport) SetContentLines(lines []string) {
	v.content = lines
	v.clampScroll()
}

// SetSize updates viewport dimensions.
func (v *Viewport) SetSize(width, height int) {
	v.width = width
	v.height = height
	v.clampScroll()
}

// SetWrap turns soft wrapping on or off.
func (v *Viewport) SetWrap(on bool) {
	v.wrapText = on
	v.scrollX = 0
	v.clampScroll()
}

func (v *Viewport) ScrollUp(n int) {
	v.scrollY -= n
	v.clampScroll()
}

func (v *Viewport) ScrollDown(n int) {
	v.scrollY += n
	v.clampScroll()
}

// ScrollLeft and ScrollRight are no-ops while wrapping.
func (v *Viewport) ScrollLeft(n int) {
	if !v.wrapText {
		v.scrollX -= n
		if v.scrollX < 0 {
			v.scrollX = 0
		}
	}
}

func (v *Viewport) ScrollRight(n int) {
	if !v.wrapText {
		v.scrollX += n
	}
}

func (v *Viewport) PageUp()   { v.ScrollUp(v.height) }
func (v *Viewport) PageDown() { v.ScrollDown(v.height) }

// Home scrolls to the top.
func (v *Viewport) Home() {
	v.scrollY = 0
	v.scrollX = 0
}

// End scrolls to the bottom.
func (v *Viewport) End() {
	v.scrollY = v.maxScrollY()
}

// Render returns the visible portion of the content.
func (v *Viewport) Render() string {
	if len(v.content) == 0 {
		return ""
	}
	lines := v.lines()
	end := v.scrollY + v.height
	if end > len(lines) {
		end = len(lines)
	}
	var visible []string
	if v.scrollY < end {
		visible = append(visible, lines[v.scrollY:end]...)
	}
	for len(visible) < v.height {
		visible = append(visible, "")
	}
	return lipgloss.JoinVertical(lipgloss.Left, strings.Join(visible, "\n"), v.scrollIndicator(len(lines)))
}

// lines returns the display lines: wrapped, or shifted and truncated.
func (v *Viewport) lines() []string {
	if v.wrapText {
		var out []string
		for _, line := range v.content {
			out = append(out, wrap(line, v.width)...)
		}
		return out
	}
	out := make([]string, len(v.content))
	for i, line := range v.content {
		r := []rune(line)
		if v.scrollX >= len(r) {
			r = nil
		} else {
			r = r[v.scrollX:]
		}
		if v.width > 0 && len(r) > v.width {
			r = r[:v.width]
		}
		out[i] = string(r)
	}
	return out
}

// wrap splits line into chunks of at most width runes.
func wrap(line string, width int) []string {
	r := []rune(line)
	if width <= 0 || len(r) <= width {
		return []string{line}
	}
	var out []string
	for len(r) > width {
		out = append(out, string(r[:width]))
		r = r[width:]
	}
	return append(out, string(r))
}

func (v *Viewport) clampScroll() {
	if maxY := v.maxScrollY(); v.scrollY > maxY {
		v.scrollY = maxY
	}
	if v.scrollY < 0 {
		v.scrollY = 0
	}
}

func (v *Viewport) maxScrollY() int {
	total := len(v.content)
	if v.wrapText && v.width > 0 {
		total = 0
		for _, line := range v.content {
			total += len(wrap(line, v.width))
		}
	}
	if max := total - v.height; max > 0 {
		return max
	}
	return 0
}

func (v *Viewport) scrollIndicator(total int) string {
	if total <= v.height {
		return ""
	}
	pct := v.scrollY * 100 / total
	rule := v.width - 20
	if rule < 0 {
		rule = 0
	}
	return StyleDimmed.Render(strings.Repeat("─", rule) +
		" " + strconv.Itoa(pct) + "% (" + strconv.Itoa(v.scrollY+1) + "/" + strconv.Itoa(total) + ")")
}
