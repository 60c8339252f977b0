// Package dashboard builds the overview and analytics screens from embedded
// fixture data.
package dashboard

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"
	"math"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/stellarsaas/stellar/internal/dashboard/svg"
)

//go:embed fixtures.json
var fixtureJSON []byte

type fixtures struct {
	Account struct {
		Plan     string `json:"plan"`
		JoinDate string `json:"joinDate"`
	} `json:"account"`
	Stats struct {
		TotalUsers          int     `json:"totalUsers"`
		MonthlyRevenue      int     `json:"monthlyRevenue"`
		ActiveSubscriptions int     `json:"activeSubscriptions"`
		ConversionRate      float64 `json:"conversionRate"`
	} `json:"stats"`
	RecentActivity []struct {
		ID     int    `json:"id"`
		Action string `json:"action"`
		Time   string `json:"time"`
		Type   string `json:"type"`
	} `json:"recentActivity"`
	Analytics analyticsFixture `json:"analytics"`
}

type analyticsFixture struct {
	Revenue struct {
		Monthly []struct {
			Month string  `json:"month"`
			Value float64 `json:"value"`
		} `json:"monthly"`
	} `json:"revenue"`
	SubscriptionBreakdown []struct {
		Plan  string  `json:"plan"`
		Users float64 `json:"users"`
		Color string  `json:"color"`
	} `json:"subscriptionBreakdown"`
	UserEngagement struct {
		ByFeature []struct {
			Feature      string  `json:"feature"`
			Usage        float64 `json:"usage"`
			Satisfaction float64 `json:"satisfaction"`
		} `json:"byFeature"`
		HeatmapData []struct {
			Day      string `json:"day"`
			Hour     int    `json:"hour"`
			Activity int    `json:"activity"`
		} `json:"heatmapData"`
	} `json:"userEngagement"`
	GeographicData []struct {
		Region  string  `json:"region"`
		Users   int     `json:"users"`
		Revenue float64 `json:"revenue"`
		Size    float64 `json:"size"`
	} `json:"geographicData"`
	PerformanceMetrics struct {
		ConversionRates []struct {
			Source      string  `json:"source"`
			Visitors    int     `json:"visitors"`
			Conversions int     `json:"conversions"`
			Rate        float64 `json:"rate"`
		} `json:"conversionRates"`
	} `json:"performanceMetrics"`
}

// Heatmap axes.
var (
	HeatmapDays  = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}
	HeatmapHours = []int{9, 10, 11, 14, 15}
)

// StatCard is one headline metric.
type StatCard struct {
	Title  string
	Value  string
	Change string
	Icon   string
}

// Activity is one recent event.
type Activity struct {
	Action string
	Time   string
	Icon   string
}

// Overview is the overview tab model.
type Overview struct {
	Stats    []StatCard
	Activity []Activity
	Plan     string
	JoinDate time.Time
	Status   string
}

// RegionTile is one cell of the geographic treemap.
type RegionTile struct {
	Region       string
	Users        int
	RevenueLabel string
	Tooltip      string
	Opacity      float64
	SpanClass    string
}

// HeatCell is one hour slot of the activity heatmap.
type HeatCell struct {
	Activity int
	Level    string
	Tooltip  string
}

// HeatRow is one weekday of the activity heatmap.
type HeatRow struct {
	Day   string
	Cells []HeatCell
}

// ConversionRow is one traffic source of the conversion table.
type ConversionRow struct {
	Source      string
	Visitors    string
	Conversions int
	Rate        float64
	BarWidth    float64
}

// Analytics is the analytics tab model.
type Analytics struct {
	RevenueChart    template.HTML
	PlansChart      template.HTML
	EngagementChart template.HTML
	Regions         []RegionTile
	HeatmapHours    []string
	Heatmap         []HeatRow
	Conversions     []ConversionRow
}

// Service serves dashboard models.
type Service struct {
	data    fixtures
	printer *message.Printer
}

// NewService parses the embedded fixtures.
func NewService() (*Service, error) {
	var data fixtures
	if err := json.Unmarshal(fixtureJSON, &data); err != nil {
		return nil, fmt.Errorf("dashboard: parse fixtures: %w", err)
	}
	return &Service{data: data, printer: message.NewPrinter(language.English)}, nil
}

// Overview returns the overview tab model.
func (s *Service) Overview() Overview {
	p := s.printer
	st := s.data.Stats
	out := Overview{
		Stats: []StatCard{
			{Title: "Total Users", Value: p.Sprintf("%d", st.TotalUsers), Change: "+12%", Icon: "👥"},
			{Title: "Monthly Revenue", Value: p.Sprintf("$%d", st.MonthlyRevenue), Change: "+8%", Icon: "💰"},
			{Title: "Active Subscriptions", Value: p.Sprintf("%d", st.ActiveSubscriptions), Change: "+5%", Icon: "📊"},
			{Title: "Conversion Rate", Value: p.Sprintf("%v%%", st.ConversionRate), Change: "+0.3%", Icon: "📈"},
		},
		Plan:   s.data.Account.Plan,
		Status: "Active",
	}
	if t, err := time.Parse("2006-01-02", s.data.Account.JoinDate); err == nil {
		out.JoinDate = t
	}
	for _, a := range s.data.RecentActivity {
		out.Activity = append(out.Activity, Activity{Action: a.Action, Time: a.Time, Icon: ActivityIcon(a.Type)})
	}
	return out
}

// ActivityIcon maps an activity type to its icon.
func ActivityIcon(kind string) string {
	switch kind {
	case "user":
		return "👤"
	case "payment":
		return "💰"
	case "feature":
		return "✨"
	case "support":
		return "🎧"
	default:
		return "📝"
	}
}

// Analytics renders the charts concurrently and assembles the analytics tab.
func (s *Service) Analytics(ctx context.Context) (Analytics, error) {
	a := s.data.Analytics
	var out Analytics
	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		values := make([]float64, len(a.Revenue.Monthly))
		labels := make([]string, len(a.Revenue.Monthly))
		for i, m := range a.Revenue.Monthly {
			values[i], labels[i] = m.Value, m.Month
		}
		html, err := svg.Bars(720, 256, values, labels, svg.BarOpts{
			Title:       "Monthly Revenue Trends",
			SeriesLabel: "Monthly Revenue ($)",
			Color:       "rgba(139,92,246,0.8)",
		})
		out.RevenueChart = html
		return err
	})
	g.Go(func() error {
		slices := make([]svg.Slice, len(a.SubscriptionBreakdown))
		for i, b := range a.SubscriptionBreakdown {
			slices[i] = svg.Slice{Label: b.Plan, Value: b.Users, Color: b.Color}
		}
		html, err := svg.Pie(360, 256, slices, svg.PieOpts{Title: "Subscription Plans"})
		out.PlansChart = html
		return err
	})
	g.Go(func() error {
		features := a.UserEngagement.ByFeature
		labels := make([]string, len(features))
		usage := make([]float64, len(features))
		satisfaction := make([]float64, len(features))
		for i, f := range features {
			labels[i] = f.Feature
			usage[i] = f.Usage
			satisfaction[i] = SatisfactionScale(f.Satisfaction)
		}
		html, err := svg.Lines(360, 256, []svg.Series{
			{Label: "Usage %", Values: usage, Stroke: "rgba(6,182,212,1)", Fill: "rgba(6,182,212,0.1)"},
			{Label: "Satisfaction (1-5)", Values: satisfaction, Stroke: "rgba(16,185,129,1)", Fill: "rgba(16,185,129,0.1)"},
		}, labels, svg.LineOpts{Title: "Feature Engagement", Tension: 0.4})
		out.EngagementChart = html
		return err
	})

	if err := g.Wait(); err != nil {
		return Analytics{}, fmt.Errorf("dashboard: render charts: %w", err)
	}

	out.Regions = s.regions()
	out.HeatmapHours, out.Heatmap = s.heatmap()
	out.Conversions = s.conversions()
	return out, nil
}

// SatisfactionScale puts a 1-5 rating on the 0-100 usage axis.
func SatisfactionScale(rating float64) float64 {
	return rating * 20
}

// RegionOpacity maps revenue to tile opacity between 0.3 and 1.
func RegionOpacity(revenue, maxRevenue float64) float64 {
	if maxRevenue <= 0 {
		return 0.3
	}
	return 0.3 + (revenue/maxRevenue)*0.7
}

// RegionSpan sizes a treemap tile from the region's user share.
func RegionSpan(size float64) string {
	switch {
	case size > 20:
		return "span-wide span-tall"
	case size > 15:
		return "span-wide"
	case size > 10:
		return "span-tall"
	default:
		return ""
	}
}

// HeatLevel buckets an activity percentage.
func HeatLevel(activity int) string {
	switch {
	case activity >= 90:
		return "heat-5"
	case activity >= 80:
		return "heat-4"
	case activity >= 70:
		return "heat-3"
	case activity >= 60:
		return "heat-2"
	default:
		return "heat-1"
	}
}

// ConversionBarWidth scales a rate so 5% fills the bar.
func ConversionBarWidth(rate float64) float64 {
	width := math.Min(math.Max(rate/5*100, 0), 100)
	return math.Round(width*10) / 10
}

func (s *Service) regions() []RegionTile {
	geo := s.data.Analytics.GeographicData
	maxRevenue := 0.0
	for _, g := range geo {
		maxRevenue = math.Max(maxRevenue, g.Revenue)
	}
	tiles := make([]RegionTile, len(geo))
	for i, g := range geo {
		tiles[i] = RegionTile{
			Region:       g.Region,
			Users:        g.Users,
			RevenueLabel: fmt.Sprintf("$%.1fk", g.Revenue/1000),
			Tooltip:      s.printer.Sprintf("%s: %d users, $%.0f", g.Region, g.Users, g.Revenue),
			Opacity:      math.Round(RegionOpacity(g.Revenue, maxRevenue)*1000) / 1000,
			SpanClass:    RegionSpan(g.Size),
		}
	}
	return tiles
}

func (s *Service) heatmap() ([]string, []HeatRow) {
	type slot struct {
		day  string
		hour int
	}
	activity := make(map[slot]int)
	for _, h := range s.data.Analytics.UserEngagement.HeatmapData {
		activity[slot{h.Day, h.Hour}] = h.Activity
	}
	hours := make([]string, len(HeatmapHours))
	for i, h := range HeatmapHours {
		hours[i] = fmt.Sprintf("%d:00", h)
	}
	rows := make([]HeatRow, len(HeatmapDays))
	for i, day := range HeatmapDays {
		row := HeatRow{Day: day[:3]}
		for _, hour := range HeatmapHours {
			v := activity[slot{day, hour}]
			row.Cells = append(row.Cells, HeatCell{
				Activity: v,
				Level:    HeatLevel(v),
				Tooltip:  fmt.Sprintf("%s %d:00 - %d%% activity", day, hour, v),
			})
		}
		rows[i] = row
	}
	return hours, rows
}

func (s *Service) conversions() []ConversionRow {
	rates := s.data.Analytics.PerformanceMetrics.ConversionRates
	rows := make([]ConversionRow, len(rates))
	for i, r := range rates {
		rows[i] = ConversionRow{
			Source:      r.Source,
			Visitors:    s.printer.Sprintf("%d", r.Visitors),
			Conversions: r.Conversions,
			Rate:        r.Rate,
			BarWidth:    ConversionBarWidth(r.Rate),
		}
	}
	return rows
}
