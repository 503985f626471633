package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"ghost-newsletter/internal/ghost"

	"github.com/spf13/cobra"
)

// brandingGroup is a named set of Ghost settings reported together.
type brandingGroup struct {
	Name string
	Keys []string
}

var brandingGroups = []brandingGroup{
	{"Identity", []string{"title", "description", "logo", "icon", "cover_image"}},
	{"Visual design", []string{"accent_color", "brand_color"}},
	{"Navigation", []string{"navigation", "secondary_navigation", "portal_button_style", "portal_button_signup_text"}},
	{"Social", []string{"facebook", "twitter", "instagram", "linkedin"}},
	{"SEO and sharing", []string{"meta_title", "meta_description", "og_image", "twitter_image"}},
	{"Customization", []string{"codeinjection_head", "codeinjection_foot"}},
}

var analyzeBrandingCmd = &cobra.Command{
	Use:   "analyze-branding",
	Short: "Report which branding settings are configured and suggest improvements",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		gc, err := newGhostClient(cfg, true)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()
		settings, err := gc.Settings(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		report := analyzeBranding(settings)
		for _, g := range report.Groups {
			fmt.Fprintf(out, "\n%s:\n", g.Name)
			printSettings(out, settings, g.Keys)
			fmt.Fprintf(out, "    %d/%d configured\n", g.Configured, len(g.Keys))
		}
		fmt.Fprintf(out, "\nSummary:\n  settings: %d, configured: %d (%.1f%%)\n", report.Total, report.Configured, report.Percent())
		if len(report.Recommendations) > 0 {
			fmt.Fprintln(out, "\nRecommendations:")
			for _, r := range report.Recommendations {
				fmt.Fprintf(out, "  - %s\n", r)
			}
		}
		fmt.Fprintln(out)
		if err := printThemes(ctx, out, gc); err != nil {
			fmt.Fprintf(out, "theme information unavailable: %v\n", err)
		}
		return nil
	},
}

type groupReport struct {
	brandingGroup
	Configured int
}

type brandingReport struct {
	Groups          []groupReport
	Total           int
	Configured      int
	Recommendations []string
}

func (r brandingReport) Percent() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Configured) / float64(r.Total) * 100
}

func configured(m map[string]any, key string) bool {
	switch v := m[key].(type) {
	case nil:
		return false
	case string:
		return v != ""
	case bool:
		return v
	case []any:
		return len(v) > 0
	default:
		return true
	}
}

func analyzeBranding(settings map[string]any) brandingReport {
	var r brandingReport
	for _, g := range brandingGroups {
		gr := groupReport{brandingGroup: g}
		for _, k := range g.Keys {
			if configured(settings, k) {
				gr.Configured++
			}
		}
		r.Groups = append(r.Groups, gr)
	}
	r.Total = len(settings)
	for k := range settings {
		if configured(settings, k) {
			r.Configured++
		}
	}
	if !configured(settings, "accent_color") {
		r.Recommendations = append(r.Recommendations, "set an accent color so the newsletter matches the site")
	}
	if !configured(settings, "logo") && !configured(settings, "icon") {
		r.Recommendations = append(r.Recommendations, "upload a logo or icon for the email header")
	}
	if !configured(settings, "meta_title") {
		r.Recommendations = append(r.Recommendations, "add a meta title and description")
	}
	if !configured(settings, "facebook") && !configured(settings, "twitter") {
		r.Recommendations = append(r.Recommendations, "add social media links")
	}
	return r
}

func printThemes(ctx context.Context, w io.Writer, gc *ghost.Client) error {
	themes, err := gc.Themes(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Themes (%d):\n", len(themes))
	for _, t := range themes {
		status := "inactive"
		if t.Active {
			status = "active"
		}
		fmt.Fprintf(w, "  %s v%s (%s)\n", t.Name, t.Package.Version, status)
		if t.Active && len(t.Templates) > 0 {
			names := make([]string, 0, 5)
			for i, tpl := range t.Templates {
				if i == 5 {
					names = append(names, "...")
					break
				}
				names = append(names, string(tpl))
			}
			fmt.Fprintf(w, "    templates: %s\n", joinOrNone(names))
		}
	}
	site, err := gc.Site(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Site: %s (%s), Ghost %s\n", site.Title, site.URL, site.Version)
	return nil
}

func init() {
	rootCmd.AddCommand(analyzeBrandingCmd)
}
