package ui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/osa030/vinylbox/internal/app/catalog"
	"github.com/osa030/vinylbox/internal/app/playback"
	"github.com/osa030/vinylbox/internal/domain/track"
)

const (
	discRadius  = 6
	armLength   = discRadius + 1
	markerWidth = 14.0 // Degrees either side of the spin marker
)

// RenderDisc draws the record rotated by spin degrees with label at its
// centre and the tonearm at armAngle (0 on the record, -45 at rest).
func RenderDisc(label string, spin, armAngle float64) string {
	rows := 2*discRadius + 1
	cols := 4*discRadius + 1
	width := cols + 6
	cx, cy := float64(cols/2), float64(discRadius)

	grid := make([][]rune, rows)
	for y := range grid {
		grid[y] = []rune(strings.Repeat(" ", width))
		for x := 0; x < cols; x++ {
			dx := (float64(x) - cx) / 2
			dy := float64(y) - cy
			d := math.Hypot(dx, dy)
			switch {
			case d > discRadius+0.5:
			case d < 1.5:
				grid[y][x] = '●'
			case d > discRadius-0.5:
				grid[y][x] = '█'
			case angleDistance(math.Atan2(dy, dx)*180/math.Pi, spin) < markerWidth:
				grid[y][x] = '▓'
			case int(d)%2 == 0:
				grid[y][x] = '▒'
			default:
				grid[y][x] = '░'
			}
		}
	}

	// Label across the centre row, trimmed to the spindle area.
	if label = strings.TrimSpace(label); label != "" {
		r := []rune(label)
		if len(r) > 5 {
			r = r[:5]
		}
		start := int(cx) - len(r)/2
		for i, ch := range r {
			grid[int(cy)][start+i] = ch
		}
	}

	// Tonearm pivots above the right edge; 0° swings it 45° onto the record.
	px, py := cols+3, 0
	theta := (armAngle + 45) * math.Pi / 180
	grid[py][px] = '◉'
	for t := 1; t <= armLength; t++ {
		x := px - int(math.Round(float64(t)*math.Sin(theta)*2))
		y := py + int(math.Round(float64(t)*math.Cos(theta)))
		if y >= rows || x < 0 || x >= width {
			break
		}
		ch := '│'
		if theta > 0.01 {
			ch = '╱'
		}
		if t == armLength {
			ch = '▪'
		}
		grid[y][x] = ch
	}

	lines := make([]string, rows)
	for y, row := range grid {
		lines[y] = strings.TrimRight(string(row), " ")
	}
	return strings.Join(lines, "\n")
}

// angleDistance returns the absolute difference of two angles in degrees, 0..180.
func angleDistance(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 360)
	if d > 180 {
		d = 360 - d
	}
	return d
}

// RenderControls draws the transport bar for s.
func RenderControls(s playback.Snapshot, bar progress.Model, rotationSeconds float64) string {
	var b strings.Builder

	fraction := 0.0
	if s.Duration > 0 {
		fraction = math.Min(math.Max(s.Position/s.Duration, 0), 1)
	}
	fmt.Fprintf(&b, "%s %s %s\n", catalog.FormatTime(s.Position), bar.ViewAs(fraction), catalog.FormatTime(s.Duration))

	status := "▶ play "
	if s.IsPlaying {
		status = "⏸ pause"
	}
	if !s.AdapterReady {
		status = styles.help.Render("… loading")
	}

	fav := "♡"
	if cur, ok := s.Current(); ok && s.IsFavorite(cur.ID) {
		fav = styles.favorite.Render("♥")
	}

	fmt.Fprintf(&b, "⏮  %s  ⏭   ⏪ ⏩   vol %s %3d%%   spin %2.0fs   %s",
		status, volumeBar(s.Volume), int(math.Round(s.Volume*100)), rotationSeconds, fav)
	return b.String()
}

func volumeBar(v float64) string {
	const steps = 10
	n := int(math.Round(math.Min(math.Max(v, 0), 1) * steps))
	return strings.Repeat("▮", n) + strings.Repeat("▯", steps-n)
}

// RenderRow draws one playlist row. index is the playlist position.
func RenderRow(index int, t track.Track, isCurrent, isCursor, isFavorite bool, width int) string {
	marker := "  "
	if isCurrent {
		marker = "▶ "
	}
	fav := " "
	if isFavorite {
		fav = "♥"
	}

	text := fmt.Sprintf("%s%2d. %s · %s", marker, index+1, t.Title, t.Artist)
	tail := fmt.Sprintf("  %5s %s", t.DurationLabel, fav)
	if width > 0 {
		room := width - lipgloss.Width(tail)
		if room > 1 && lipgloss.Width(text) > room {
			text = truncate(text, room)
		}
		if pad := room - lipgloss.Width(text); pad > 0 {
			text += strings.Repeat(" ", pad)
		}
	}
	line := text + tail

	switch {
	case isCursor:
		return styles.cursor.Render(line)
	case isCurrent:
		return styles.current.Render(line)
	default:
		return line
	}
}

func truncate(s string, width int) string {
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r))+1 > width {
		r = r[:len(r)-1]
	}
	return string(r) + "…"
}
