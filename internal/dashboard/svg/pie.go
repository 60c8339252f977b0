package svg

import (
	"fmt"
	"html/template"
	"math"
	"strings"
)

// Pie renders slices clockwise from twelve o'clock with a legend on the right.
func Pie(width, height int, slices []Slice, opts PieOpts) (template.HTML, error) {
	if len(slices) == 0 {
		return "", fmt.Errorf("svg: slices required")
	}
	total := 0.0
	for _, s := range slices {
		if s.Value < 0 {
			return "", fmt.Errorf("svg: slice %q is negative", s.Label)
		}
		total += s.Value
	}
	if total <= 0 {
		return "", fmt.Errorf("svg: slices sum to zero")
	}
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	stroke := fallback(opts.StrokeColor, "rgba(255,255,255,0.2)")
	textColor := fallback(opts.TextColor, textDefault)

	r := float64(height)/2 - 12
	cx := r + 12
	cy := float64(height) / 2
	f := frame{width: width, height: height}

	var b strings.Builder
	f.open(&b, opts.Title, opts.Description, "pie", "Pie chart", "Share breakdown")

	angle := -math.Pi / 2
	for i, s := range slices {
		color := fallback(s.Color, "#8B5CF6")
		share := s.Value / total
		tip := fmt.Sprintf("<title>%s: %.1f%%</title>", template.HTMLEscapeString(s.Label), share*100)
		if almostEqual(share, 1) {
			fmt.Fprintf(&b, "<circle cx=\"%.2f\" cy=\"%.2f\" r=\"%.2f\" fill=\"%s\" stroke=\"%s\" stroke-width=\"2\">%s</circle>", cx, cy, r, color, stroke, tip)
		} else if share > 0 {
			end := angle + share*2*math.Pi
			large := 0
			if share > 0.5 {
				large = 1
			}
			fmt.Fprintf(&b, "<path d=\"M%.2f %.2f L%.2f %.2f A%.2f %.2f 0 %d 1 %.2f %.2f Z\" fill=\"%s\" stroke=\"%s\" stroke-width=\"2\">%s</path>",
				cx, cy, cx+r*math.Cos(angle), cy+r*math.Sin(angle), r, r, large, cx+r*math.Cos(end), cy+r*math.Sin(end), color, stroke, tip)
			angle = end
		}
		legend(&b, cx+r+28, 28+float64(i)*20, color, s.Label, textColor)
	}

	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}
