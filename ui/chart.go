package ui

import (
	"math"

	"trafficdash/coordinator"
	"trafficdash/strutil"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

const (
	legendRows = 1
	// groupRows covers the inbound bar, the outbound bar and a gap.
	groupRows  = 3
	valueWidth = 11
	minLabel   = 8
	barRune    = '█'
)

var (
	inboundColor  = tcell.NewRGBColor(54, 162, 235)
	outboundColor = tcell.NewRGBColor(255, 99, 132)
)

// barChart draws a projection as horizontal grouped bars, one group per
// label. Only touched from the tview goroutine.
type barChart struct {
	*tview.Box
	frame       coordinator.Frame
	fingerprint uint64
	selected    int
	offset      int
	onSelect    func(index int, fingerprint uint64)
	onBack      func()
}

func newBarChart() *barChart {
	c := &barChart{Box: tview.NewBox()}
	c.SetBorder(true)
	c.SetBorderColor(uiBorderColor)
	c.SetTitleColor(uiTitleColor)
	c.SetTitleAlign(tview.AlignLeft)
	return c
}

// SetFrame swaps in a new frame. The selection follows its label when the
// label survives and is clamped otherwise.
func (c *barChart) SetFrame(f coordinator.Frame) {
	prev := ""
	if c.selected >= 0 && c.selected < len(c.frame.Projection.Labels) {
		prev = c.frame.Projection.Labels[c.selected]
	}
	sameView := c.frame.View == f.View
	c.frame = f
	c.fingerprint = f.Projection.LabelsFingerprint()
	c.SetTitle(accentText(f.Subtitle))

	n := f.Projection.Len()
	switch {
	case !sameView:
		c.selected, c.offset = 0, 0
	case prev != "":
		for i, label := range f.Projection.Labels {
			if label == prev {
				c.selected = i
				break
			}
		}
	}
	if c.selected >= n {
		c.selected = n - 1
	}
	if c.selected < 0 {
		c.selected = 0
	}
	if c.offset > c.selected {
		c.offset = c.selected
	}
}

func (c *barChart) Draw(screen tcell.Screen) {
	c.Box.DrawForSubclass(screen, c)
	x, y, w, h := c.GetInnerRect()
	if w <= 0 || h <= 0 {
		return
	}
	p := c.frame.Projection
	if p.Len() == 0 {
		msg := c.emptyMessage()
		col := x + (w-len([]rune(msg)))/2
		if col < x {
			col = x
		}
		printText(screen, msg, col, y+h/2, x+w-col, tcell.StyleDefault.Foreground(tcell.ColorGray))
		return
	}

	col := x
	col += printText(screen, string(barRune)+" Inbound  ", col, y, x+w-col, tcell.StyleDefault.Foreground(inboundColor))
	printText(screen, string(barRune)+" Outbound", col, y, x+w-col, tcell.StyleDefault.Foreground(outboundColor))

	visible := visibleGroups(h)
	c.ensureVisible(visible)

	labelWidth := labelColumnWidth(p.Labels, w)
	barX := x + labelWidth + 1
	barWidth := w - labelWidth - 1 - valueWidth - 1
	if barWidth < 1 {
		barWidth = 1
	}
	max := p.Max()
	for i := 0; i < visible && c.offset+i < p.Len(); i++ {
		idx := c.offset + i
		row := y + legendRows + i*groupRows
		labelStyle := tcell.StyleDefault
		if c.frame.View.IsMain() && idx == c.selected {
			labelStyle = labelStyle.Reverse(true)
		}
		printText(screen, strutil.TruncateRunes(p.Labels[idx], labelWidth), x, row, labelWidth, labelStyle)
		c.drawBar(screen, barX, row, x+w, barLength(p.Inbound[idx], max, barWidth), p.Inbound[idx], inboundColor)
		if row+1 < y+h {
			c.drawBar(screen, barX, row+1, x+w, barLength(p.Outbound[idx], max, barWidth), p.Outbound[idx], outboundColor)
		}
	}
	if c.offset+visible < p.Len() && h > legendRows {
		printText(screen, "↓ more", x+w-6, y+h-1, 6, tcell.StyleDefault.Foreground(tcell.ColorGray))
	}
}

func (c *barChart) drawBar(screen tcell.Screen, x, y, right, length int, value uint64, color tcell.Color) {
	style := tcell.StyleDefault.Foreground(color)
	for i := 0; i < length && x+i < right; i++ {
		screen.SetContent(x+i, y, barRune, nil, style)
	}
	col := x + length + 1
	printText(screen, FormatBytes(value), col, y, right-col, tcell.StyleDefault)
}

func (c *barChart) emptyMessage() string {
	if c.frame.View.IsMain() {
		return "No traffic data"
	}
	if !c.frame.Available {
		return "No protocol breakdown available for this client"
	}
	return "No protocols reported"
}

func (c *barChart) InputHandler() func(event *tcell.EventKey, setFocus func(p tview.Primitive)) {
	return c.WrapInputHandler(func(event *tcell.EventKey, setFocus func(p tview.Primitive)) {
		c.handleKey(event)
	})
}

func (c *barChart) handleKey(event *tcell.EventKey) bool {
	switch event.Key() {
	case tcell.KeyUp:
		c.move(-1)
		return true
	case tcell.KeyDown:
		c.move(1)
		return true
	case tcell.KeyHome:
		c.move(-c.frame.Projection.Len())
		return true
	case tcell.KeyEnd:
		c.move(c.frame.Projection.Len())
		return true
	case tcell.KeyEnter:
		return c.activate(c.selected)
	case tcell.KeyEsc, tcell.KeyBackspace, tcell.KeyBackspace2:
		return c.back()
	case tcell.KeyRune:
		switch event.Rune() {
		case 'b':
			return c.back()
		case 'k':
			c.move(-1)
			return true
		case 'j':
			c.move(1)
			return true
		}
	}
	return false
}

func (c *barChart) MouseHandler() func(action tview.MouseAction, event *tcell.EventMouse, setFocus func(p tview.Primitive)) (consumed bool, capture tview.Primitive) {
	return c.WrapMouseHandler(func(action tview.MouseAction, event *tcell.EventMouse, setFocus func(p tview.Primitive)) (consumed bool, capture tview.Primitive) {
		mx, my := event.Position()
		if !c.InRect(mx, my) {
			return false, nil
		}
		switch action {
		case tview.MouseLeftClick:
			setFocus(c)
			_, y, _, _ := c.GetInnerRect()
			if idx := hitIndex(my-y, c.offset, c.frame.Projection.Len()); idx >= 0 {
				c.selected = idx
				c.activate(idx)
			}
			return true, nil
		case tview.MouseScrollUp:
			c.scroll(-1)
			return true, nil
		case tview.MouseScrollDown:
			c.scroll(1)
			return true, nil
		}
		return false, nil
	})
}

// activate selects the group at idx. Only the aggregate view is clickable.
func (c *barChart) activate(idx int) bool {
	if !c.frame.View.IsMain() || idx < 0 || idx >= c.frame.Projection.Len() {
		return false
	}
	if c.onSelect != nil {
		c.onSelect(idx, c.fingerprint)
	}
	return true
}

func (c *barChart) back() bool {
	if !c.frame.BackEnabled {
		return false
	}
	if c.onBack != nil {
		c.onBack()
	}
	return true
}

func (c *barChart) move(delta int) {
	n := c.frame.Projection.Len()
	if n == 0 {
		return
	}
	c.selected += delta
	if c.selected < 0 {
		c.selected = 0
	}
	if c.selected >= n {
		c.selected = n - 1
	}
	_, _, _, h := c.GetInnerRect()
	c.ensureVisible(visibleGroups(h))
}

func (c *barChart) scroll(delta int) {
	_, _, _, h := c.GetInnerRect()
	visible := visibleGroups(h)
	maxOffset := c.frame.Projection.Len() - visible
	if maxOffset < 0 {
		maxOffset = 0
	}
	c.offset += delta
	if c.offset > maxOffset {
		c.offset = maxOffset
	}
	if c.offset < 0 {
		c.offset = 0
	}
}

func (c *barChart) ensureVisible(visible int) {
	if visible <= 0 {
		return
	}
	if c.selected < c.offset {
		c.offset = c.selected
	}
	if c.selected >= c.offset+visible {
		c.offset = c.selected - visible + 1
	}
}

// visibleGroups is how many bar groups fit in h rows; the trailing gap of
// the last group may be clipped.
func visibleGroups(h int) int {
	n := (h - legendRows + 1) / groupRows
	if n < 0 {
		return 0
	}
	return n
}

// hitIndex maps a row relative to the chart's inner top to a group index,
// or -1 for the legend, gaps and rows past the last group.
func hitIndex(row, offset, n int) int {
	row -= legendRows
	if row < 0 || row%groupRows == groupRows-1 {
		return -1
	}
	idx := offset + row/groupRows
	if idx >= n {
		return -1
	}
	return idx
}

func labelColumnWidth(labels []string, w int) int {
	longest := minLabel
	for _, l := range labels {
		if n := len([]rune(l)); n > longest {
			longest = n
		}
	}
	if limit := w / 3; longest > limit && limit >= minLabel {
		longest = limit
	}
	return longest
}

// barLength scales value into [0, width]; any non-zero value gets at least
// one cell.
func barLength(value, max uint64, width int) int {
	if value == 0 || max == 0 || width <= 0 {
		return 0
	}
	n := int(math.Round(float64(value) / float64(max) * float64(width)))
	if n < 1 {
		n = 1
	}
	if n > width {
		n = width
	}
	return n
}

// printText writes s from (x, y) clipped to maxWidth cells and returns the
// cells used.
func printText(screen tcell.Screen, s string, x, y, maxWidth int, style tcell.Style) int {
	n := 0
	for _, r := range s {
		if n >= maxWidth {
			break
		}
		screen.SetContent(x+n, y, r, nil, style)
		n++
	}
	return n
}
