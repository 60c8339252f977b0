// Package nav builds the navigation chrome shared by every page.
package nav

import "github.com/stellarsaas/stellar/internal/session"

// Page identifies the screen a navigation bar is rendered for.
type Page string

// Pages with their own chrome.
const (
	PageLanding   Page = "landing"
	PageAuth      Page = "auth"
	PageDashboard Page = "dashboard"
	PageProfile   Page = "profile"
)

// Variant is the chrome style.
type Variant string

// Chrome variants.
const (
	VariantLanding Variant = "landing"
	VariantApp     Variant = "app"
)

// Brand is the product name shown in the navigation bar.
const Brand = "StellarSaaS"

// Tab is a switchable section of the current page.
type Tab struct {
	ID    string
	Label string
}

// Link is one navigation entry.
type Link struct {
	Label   string
	Href    string
	Active  bool
	Primary bool
}

// Params describes the request the navigation is rendered for.
type Params struct {
	Page          Page
	Authenticated bool
	User          *session.User
	Tabs          []Tab
	ActiveTab     string
	TabPath       string
}

// View is the rendered navigation model consumed by the nav partial.
type View struct {
	Variant    Variant
	Brand      string
	BrandHref  string
	Links      []Link
	Actions    []Link
	ShowLogout bool
	Initials   string
	// Watch enables the session change listener.
	Watch bool
}

// Build selects the chrome variant from the page tag and fills in the links
// allowed for the authentication state.
func Build(p Params) View {
	v := View{Brand: Brand, BrandHref: "/", Watch: true}
	if p.Page == PageLanding {
		v.Variant = VariantLanding
		if p.Authenticated {
			v.Actions = []Link{
				{Label: "Dashboard", Href: "/dashboard"},
				{Label: "Profile", Href: "/profile"},
			}
		} else {
			v.Actions = []Link{
				{Label: "Sign In", Href: "/auth"},
				{Label: "Get Started", Href: GetStartedHref(false), Primary: true},
			}
		}
		return v
	}

	v.Variant = VariantApp
	if p.Page == PageDashboard {
		path := p.TabPath
		if path == "" {
			path = "/dashboard"
		}
		for _, tab := range p.Tabs {
			v.Links = append(v.Links, Link{
				Label:  tab.Label,
				Href:   path + "?tab=" + tab.ID,
				Active: tab.ID == p.ActiveTab,
			})
		}
	} else {
		v.Links = []Link{{Label: "Dashboard", Href: "/dashboard"}}
	}
	if p.Page != PageProfile {
		v.Actions = append(v.Actions, Link{Label: "Profile", Href: "/profile"})
	}
	v.ShowLogout = true
	if p.User != nil {
		v.Initials = p.User.Initials()
	}
	return v
}

// GetStartedHref is the target of the landing call to action.
func GetStartedHref(authenticated bool) string {
	if authenticated {
		return "/dashboard"
	}
	return "/auth"
}
