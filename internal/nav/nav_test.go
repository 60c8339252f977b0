package nav

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stellarsaas/stellar/internal/session"
)

func labels(links []Link) []string {
	out := make([]string, 0, len(links))
	for _, l := range links {
		out = append(out, l.Label)
	}
	return out
}

func TestLandingVariantFollowsAuthentication(t *testing.T) {
	anon := Build(Params{Page: PageLanding})
	assert.Equal(t, VariantLanding, anon.Variant)
	assert.Equal(t, []string{"Sign In", "Get Started"}, labels(anon.Actions))
	assert.Equal(t, "/auth", anon.Actions[1].Href)
	assert.False(t, anon.ShowLogout)

	authed := Build(Params{Page: PageLanding, Authenticated: true})
	assert.Equal(t, []string{"Dashboard", "Profile"}, labels(authed.Actions))
	assert.Empty(t, authed.Links)
}

func TestDashboardShowsTabs(t *testing.T) {
	user := &session.User{ID: "u1", Name: "John Doe"}
	v := Build(Params{
		Page:          PageDashboard,
		Authenticated: true,
		User:          user,
		Tabs:          []Tab{{ID: "overview", Label: "Overview"}, {ID: "analytics", Label: "Analytics"}},
		ActiveTab:     "analytics",
	})
	assert.Equal(t, VariantApp, v.Variant)
	assert.Equal(t, []string{"Overview", "Analytics"}, labels(v.Links))
	assert.Equal(t, "/dashboard?tab=analytics", v.Links[1].Href)
	assert.True(t, v.Links[1].Active)
	assert.False(t, v.Links[0].Active)
	assert.Equal(t, []string{"Profile"}, labels(v.Actions))
	assert.True(t, v.ShowLogout)
	assert.Equal(t, "JD", v.Initials)
}

func TestProfileHidesProfileLink(t *testing.T) {
	v := Build(Params{Page: PageProfile, Authenticated: true})
	assert.Equal(t, []string{"Dashboard"}, labels(v.Links))
	assert.Empty(t, v.Actions)
	assert.Empty(t, v.Initials)
}

func TestGetStartedHref(t *testing.T) {
	assert.Equal(t, "/dashboard", GetStartedHref(true))
	assert.Equal(t, "/auth", GetStartedHref(false))
}
