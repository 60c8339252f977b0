package svg

import (
	"fmt"
	"html/template"
	"strings"
)

// Bars renders a single-series bar chart with rounded tops.
func Bars(width, height int, values []float64, labels []string, opts BarOpts) (template.HTML, error) {
	if len(values) == 0 {
		return "", fmt.Errorf("svg: values required")
	}
	if len(values) != len(labels) {
		return "", fmt.Errorf("svg: labels length must match values")
	}
	minVal, maxVal := bounds(values)
	f, err := newFrame(width, height, opts.Padding, minVal, maxVal)
	if err != nil {
		return "", err
	}
	axisColor := fallback(opts.AxisColor, axisDefault)
	gridColor := fallback(opts.GridColor, gridDefault)
	color := fallback(opts.Color, "rgba(139,92,246,0.8)")
	label := fallback(opts.SeriesLabel, "Value")
	radius := opts.Radius
	if radius <= 0 {
		radius = 4
	}

	var b strings.Builder
	f.open(&b, opts.Title, opts.Description, "bar", "Bar chart", "Bar comparison")
	f.grid(&b, opts.TickCount, axisColor, gridColor)

	slot := f.chartWidth / float64(len(values))
	barWidth := slot * 0.6
	zeroY := f.y(0)
	for i, v := range values {
		x := f.padding + float64(i)*slot + (slot-barWidth)/2
		top := f.y(v)
		y, h := top, zeroY-top
		if h < 0 {
			y, h = zeroY, -h
		}
		fmt.Fprintf(&b, "<rect x=\"%.2f\" y=\"%.2f\" width=\"%.2f\" height=\"%.2f\" rx=\"%.1f\" fill=\"%s\"><title>%s: %s</title></rect>",
			x, y, barWidth, h, radius, color, template.HTMLEscapeString(labels[i]), template.HTMLEscapeString(formatTick(v)))
		f.xLabel(&b, x+barWidth/2, labels[i], axisColor)
	}

	legend(&b, f.padding, f.padding-14, color, label, textDefault)
	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}
