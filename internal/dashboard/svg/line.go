package svg

import (
	"fmt"
	"html/template"
	"strings"
)

type point struct{ x, y float64 }

// Lines renders one or more series over shared labels. Each series may carry
// its own fill for the area beneath it.
func Lines(width, height int, series []Series, labels []string, opts LineOpts) (template.HTML, error) {
	if len(series) == 0 {
		return "", fmt.Errorf("svg: series required")
	}
	var all []float64
	for _, s := range series {
		if len(s.Values) != len(labels) {
			return "", fmt.Errorf("svg: series %q length must match labels", s.Label)
		}
		all = append(all, s.Values...)
	}
	if len(all) == 0 {
		return "", fmt.Errorf("svg: labels required")
	}
	minVal, maxVal := bounds(all)
	f, err := newFrame(width, height, opts.Padding, minVal, maxVal)
	if err != nil {
		return "", err
	}
	axisColor := fallback(opts.AxisColor, axisDefault)
	gridColor := fallback(opts.GridColor, gridDefault)

	var b strings.Builder
	f.open(&b, opts.Title, opts.Description, "line", "Line chart", "Trend data")
	f.grid(&b, opts.TickCount, axisColor, gridColor)

	xs := make([]float64, len(labels))
	for i := range labels {
		xs[i] = f.padding + f.chartWidth/2
		if len(labels) > 1 {
			xs[i] = f.padding + float64(i)*f.chartWidth/float64(len(labels)-1)
		}
	}

	legendX := f.padding
	for _, s := range series {
		stroke := fallback(s.Stroke, "#06B6D4")
		pts := make([]point, len(s.Values))
		for i, v := range s.Values {
			pts[i] = point{x: xs[i], y: f.y(v)}
		}
		path := smoothPath(pts, opts.Tension)
		if s.Fill != "" {
			area := fmt.Sprintf("%s L%.2f %.2f L%.2f %.2f Z", path, pts[len(pts)-1].x, f.bottom(), pts[0].x, f.bottom())
			fmt.Fprintf(&b, "<path d=\"%s\" fill=\"%s\" stroke=\"none\" aria-hidden=\"true\"></path>", area, s.Fill)
		}
		fmt.Fprintf(&b, "<path d=\"%s\" fill=\"none\" stroke=\"%s\" stroke-width=\"2\" stroke-linejoin=\"round\" stroke-linecap=\"round\"></path>", path, stroke)
		if opts.ShowDots {
			for _, p := range pts {
				fmt.Fprintf(&b, "<circle cx=\"%.2f\" cy=\"%.2f\" r=\"3\" fill=\"%s\"></circle>", p.x, p.y, stroke)
			}
		}
		legendX = legend(&b, legendX, f.padding-14, stroke, fallback(s.Label, "Series"), textDefault)
	}

	for i, label := range labels {
		f.xLabel(&b, xs[i], label, axisColor)
	}

	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}

// smoothPath draws a Catmull-Rom style curve through pts.
func smoothPath(pts []point, tension float64) string {
	var path strings.Builder
	fmt.Fprintf(&path, "M%.2f %.2f", pts[0].x, pts[0].y)
	for i := 1; i < len(pts); i++ {
		if tension <= 0 {
			fmt.Fprintf(&path, " L%.2f %.2f", pts[i].x, pts[i].y)
			continue
		}
		prev := pts[max(i-2, 0)]
		from := pts[i-1]
		to := pts[i]
		next := pts[min(i+1, len(pts)-1)]
		c1 := point{x: from.x + (to.x-prev.x)*tension/2, y: from.y + (to.y-prev.y)*tension/2}
		c2 := point{x: to.x - (next.x-from.x)*tension/2, y: to.y - (next.y-from.y)*tension/2}
		fmt.Fprintf(&path, " C%.2f %.2f %.2f %.2f %.2f %.2f", c1.x, c1.y, c2.x, c2.y, to.x, to.y)
	}
	return path.String()
}
