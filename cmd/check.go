package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"ghost-newsletter/internal/newsletter"

	"github.com/spf13/cobra"
)

// checkCmd groups read-only inspection commands. None of them send mail.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Inspect Ghost settings and email templates",
}

// brandingKeys are the Ghost settings that affect newsletter styling.
var brandingKeys = []string{
	"title", "description", "logo", "icon", "cover_image", "url",
	"accent_color", "brand_color", "text_color", "light_text_color", "background_color", "border_color",
	"members_support_address", "support_email_address",
}

var checkBrandingCmd = &cobra.Command{
	Use:   "branding",
	Short: "Show branding settings and the colors the newsletter will use",
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
		fmt.Fprintln(out, "Ghost branding settings:")
		printSettings(out, settings, brandingKeys)

		vars := newsletter.Resolver{Site: siteFromConfig(cfg)}.Resolve(settings, nil)
		fmt.Fprintln(out, "\nResolved colors:")
		for _, k := range []string{"accent_color", "brand_color", "primary_color", "secondary_color", "text_color", "light_text_color", "background_color", "border_color"} {
			fmt.Fprintf(out, "  %-18s %s\n", k, vars[k])
		}
		return nil
	},
}

// newsletterKeys are the Ghost newsletter fields that affect the email.
var newsletterKeys = []string{
	"name", "slug", "status", "sender_name", "sender_email", "sender_reply_to",
	"header_image", "show_header_icon", "show_header_title", "show_feature_image", "show_excerpt",
	"title_font_category", "body_font_category", "title_alignment", "background_color", "footer_content",
}

var checkNewsletterCmd = &cobra.Command{
	Use:   "newsletter",
	Short: "Show the active newsletter's design settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		gc, err := newGhostClient(cfg, true)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()
		nl, err := gc.Newsletter(ctx, cfg.Ghost.Newsletter)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if nl == nil {
			fmt.Fprintln(out, "No active newsletter; defaults will be used.")
			return nil
		}
		fmt.Fprintln(out, "Active newsletter:")
		printSettings(out, nl, newsletterKeys)
		return nil
	},
}

var checkThemeCmd = &cobra.Command{
	Use:   "theme",
	Short: "Show installed themes and site information",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		gc, err := newGhostClient(cfg, true)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()
		return printThemes(ctx, cmd.OutOrStdout(), gc)
	},
}

var checkTemplateCmd = &cobra.Command{
	Use:   "template [path]",
	Short: "Parse an email template and list variables it never uses",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := GetConfig().Newsletter.TemplatePath
		if len(args) == 1 {
			path = args[0]
		}
		tpl, err := loadTemplate(path)
		if err != nil {
			return err
		}
		name := path
		if name == "" {
			name = "embedded template"
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s: ok\n", name)
		fmt.Fprintf(out, "unused variables: %s\n", joinOrNone(tpl.Unreferenced()))

		// Render with defaults to catch execution errors early.
		vars := newsletter.Resolve(nil, nil).WithPost(newsletter.Post{Title: "Sample post", HTML: "<p>Sample</p>"}, time.Now())
		email, err := tpl.Render(vars)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "sample subject: %s\n", email.Subject)
		fmt.Fprintf(out, "sample size: %d bytes\n", len(email.HTML))
		return nil
	},
}

func printSettings(w io.Writer, m map[string]any, keys []string) {
	for _, k := range keys {
		v, ok := m[k]
		s := fmt.Sprint(v)
		mark := "+"
		if !ok || v == nil || s == "" {
			mark = "-"
			s = "(not configured)"
		}
		if len(s) > 60 {
			s = s[:57] + "..."
		}
		fmt.Fprintf(w, "  %s %-24s %s\n", mark, k, strings.ReplaceAll(s, "\n", " "))
	}
}

func init() {
	checkCmd.AddCommand(checkBrandingCmd, checkNewsletterCmd, checkThemeCmd, checkTemplateCmd)
	rootCmd.AddCommand(checkCmd)
}
