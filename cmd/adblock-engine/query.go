package main

import (
	"fmt"
	"strings"

	"github.com/bnema/adblock-engine/internal/engine"
	"github.com/bnema/adblock-engine/internal/filters"
	"github.com/bnema/adblock-engine/internal/request"
	"github.com/spf13/cobra"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Decide whether a request is blocked, redirected or allowed",
	RunE:  runMatch,
}

var cosmeticsCmd = &cobra.Command{
	Use:   "cosmetics",
	Short: "Print the styles and scripts to inject into a page",
	RunE:  runCosmetics,
}

var cspCmd = &cobra.Command{
	Use:   "csp",
	Short: "Print the CSP directives to inject into a page",
	RunE:  runCSP,
}

var htmlCmd = &cobra.Command{
	Use:   "html",
	Short: "Print the HTML filters applying to a page",
	RunE:  runHTML,
}

// queryEngine returns the engine answering the queries of cmd.
func queryEngine(cmd *cobra.Command) (e *engine.Engine, err error) {
	logger, err := newLogger()
	if err != nil {
		return nil, err
	}

	return loadEngine(cmd.Context(), logger)
}

func runMatch(cmd *cobra.Command, args []string) error {
	rawURL, _ := cmd.Flags().GetString("url")
	typ, _ := cmd.Flags().GetString("type")
	source, _ := cmd.Flags().GetString("source")
	withMetadata, _ := cmd.Flags().GetBool("metadata")

	e, err := queryEngine(cmd)
	if err != nil {
		return err
	}

	r := e.NewRequest(request.Details{
		URL:       rawURL,
		SourceURL: source,
		Type:      request.Type(typ),
	})

	res := e.Match(r, withMetadata)
	switch {
	case res.Redirect != nil:
		fmt.Printf("REDIRECT %s\n", res.Redirect.DataURL)
	case res.Match:
		fmt.Println("BLOCK")
	default:
		fmt.Println("ALLOW")
	}

	printFilter("filter", res.Filter)
	printFilter("exception", res.Exception)

	for _, info := range res.Metadata {
		fmt.Printf("  tracker:   %s", info.Pattern.Name)
		if info.Organization != nil {
			fmt.Printf(" (%s)", info.Organization.Name)
		}
		if info.Category != nil {
			fmt.Printf(" [%s]", info.Category.Name)
		}
		fmt.Println()
	}

	return nil
}

// printFilter prints f under label if it is set.
func printFilter(label string, f *filters.NetworkFilter) {
	if f == nil {
		return
	}

	fmt.Printf("  %-10s %s\n", label+":", f)
}

func runCosmetics(cmd *cobra.Command, args []string) error {
	rawURL, _ := cmd.Flags().GetString("url")
	classes, _ := cmd.Flags().GetStringSlice("class")
	ids, _ := cmd.Flags().GetStringSlice("id")
	hrefs, _ := cmd.Flags().GetStringSlice("href")

	e, err := queryEngine(cmd)
	if err != nil {
		return err
	}

	hostname := request.ExtractHostname(rawURL)
	q := engine.NewCosmeticsQuery(rawURL, hostname, request.DomainOf(hostname))
	q.Classes, q.IDs, q.Hrefs = classes, ids, hrefs

	res := e.GetCosmeticsFilters(q)
	if !res.Active {
		fmt.Println("Cosmetic filtering disabled for this page")

		return nil
	}

	if res.Styles != "" {
		fmt.Printf("Styles:\n%s\n", res.Styles)
	}

	for _, s := range res.Scripts {
		fmt.Printf("Script:\n%s\n", s)
	}

	for _, s := range res.Extended {
		action := "style " + s.Attribute
		if s.Remove {
			action = "remove"
		}
		fmt.Printf("Extended: %s (%s)\n", s.Selector, action)
	}

	return nil
}

func runCSP(cmd *cobra.Command, args []string) error {
	rawURL, _ := cmd.Flags().GetString("url")

	e, err := queryEngine(cmd)
	if err != nil {
		return err
	}

	r := e.NewRequest(request.Details{URL: rawURL, Type: request.TypeMainFrame})
	if directives := e.GetCSPDirectives(r); directives != "" {
		fmt.Println(directives)
	}

	return nil
}

func runHTML(cmd *cobra.Command, args []string) error {
	rawURL, _ := cmd.Flags().GetString("url")

	e, err := queryEngine(cmd)
	if err != nil {
		return err
	}

	r := e.NewRequest(request.Details{URL: rawURL, Type: request.TypeMainFrame})
	for _, s := range e.GetHTMLFilters(r) {
		switch s.Kind {
		case filters.HTMLSelectorScript:
			fmt.Printf("%s: %s\n", s.Kind, strings.Join(s.Texts, ", "))
		case filters.HTMLSelectorReplace:
			fmt.Printf("%s: %s -> %q\n", s.Kind, s.Replace.Regex, s.Replace.Replacement)
		}
	}

	return nil
}
