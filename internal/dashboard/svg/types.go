// Package svg renders the small inline charts used on the analytics tab.
package svg

// Series is one named line of a line chart.
type Series struct {
	Label  string
	Values []float64
	Stroke string
	Fill   string
}

// LineOpts customises the line chart renderer.
type LineOpts struct {
	Title       string
	Description string
	AxisColor   string
	GridColor   string
	Padding     float64
	ShowDots    bool
	TickCount   int
	// Tension smooths the path; 0 draws straight segments.
	Tension float64
}

// BarOpts customises the bar chart renderer.
type BarOpts struct {
	Title       string
	Description string
	SeriesLabel string
	Color       string
	AxisColor   string
	GridColor   string
	Padding     float64
	TickCount   int
	Radius      float64
}

// Slice is one pie segment.
type Slice struct {
	Label string
	Value float64
	Color string
}

// PieOpts customises the pie chart renderer.
type PieOpts struct {
	Title       string
	Description string
	StrokeColor string
	TextColor   string
}

// Defaults for the analytics charts.
const (
	DefaultWidth   = 720
	DefaultHeight  = 256
	DefaultPadding = 36.0
	DefaultTicks   = 5
)

// Dark theme palette.
const (
	axisDefault = "#9CA3AF"
	gridDefault = "rgba(255,255,255,0.1)"
	textDefault = "#E5E7EB"
)
