package svg

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBarsProducesSVG(t *testing.T) {
	html, err := Bars(420, 220, []float64{4200, 5100, 4800}, []string{"Jan", "Feb", "Mar"}, BarOpts{
		Title:       "Monthly Revenue",
		SeriesLabel: "Monthly Revenue ($)",
	})
	require.NoError(t, err)
	output := string(html)
	assert.True(t, strings.HasPrefix(output, "<svg"))
	assert.Equal(t, 3+1, strings.Count(output, "<rect"), "three bars plus the legend swatch")
	assert.Contains(t, output, "Monthly Revenue ($)")
	assert.Contains(t, output, `rx="4.0"`)
}

func TestBarsRejectsMismatchedLabels(t *testing.T) {
	_, err := Bars(0, 0, []float64{1, 2}, []string{"a"}, BarOpts{})
	assert.Error(t, err)
	_, err = Bars(0, 0, nil, nil, BarOpts{})
	assert.Error(t, err)
}

func TestLinesDrawsEverySeries(t *testing.T) {
	html, err := Lines(400, 200, []Series{
		{Label: "Usage %", Values: []float64{80, 65, 90}, Stroke: "#06B6D4", Fill: "rgba(6,182,212,0.1)"},
		{Label: "Satisfaction (1-5)", Values: []float64{90, 84, 96}, Stroke: "#10B981"},
	}, []string{"Reports", "Exports", "Alerts"}, LineOpts{Title: "Feature Engagement", Tension: 0.4, ShowDots: true})
	require.NoError(t, err)
	output := string(html)
	assert.Contains(t, output, "aria-labelledby")
	assert.Equal(t, 3, strings.Count(output, "<path"), "two lines plus one filled area")
	assert.Equal(t, 6, strings.Count(output, "<circle"))
	assert.Contains(t, output, " C")
	assert.Contains(t, output, "Satisfaction (1-5)")
}

func TestLinesStraightWithoutTension(t *testing.T) {
	html, err := Lines(400, 200, []Series{{Label: "a", Values: []float64{1, 2}}}, []string{"x", "y"}, LineOpts{})
	require.NoError(t, err)
	assert.Contains(t, string(html), " L")
	assert.NotContains(t, string(html), " C")
}

func TestPieSlices(t *testing.T) {
	html, err := Pie(360, 240, []Slice{
		{Label: "Basic", Value: 30, Color: "#3B82F6"},
		{Label: "Pro", Value: 50, Color: "#8B5CF6"},
		{Label: "Enterprise", Value: 20, Color: "#10B981"},
	}, PieOpts{Title: "Subscription Plans"})
	require.NoError(t, err)
	output := string(html)
	assert.Equal(t, 3, strings.Count(output, "<path"))
	assert.Contains(t, output, "Pro: 50.0%")
}

func TestPieSingleSliceIsCircle(t *testing.T) {
	html, err := Pie(0, 0, []Slice{{Label: "All", Value: 5}}, PieOpts{})
	require.NoError(t, err)
	assert.Contains(t, string(html), "<circle")

	_, err = Pie(0, 0, []Slice{{Label: "None", Value: 0}}, PieOpts{})
	assert.Error(t, err)
}
