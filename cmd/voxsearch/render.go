package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"voxsearch/internal/orchestration"
	"voxsearch/internal/services"
	"voxsearch/pkg/extraction"
	"voxsearch/pkg/voxtypes"
)

// descriptionWidth caps catalog descriptions in listings.
const descriptionWidth = 72

var (
	bannerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Background(lipgloss.Color("33")).
			Foreground(lipgloss.Color("15"))

	queryStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	badgeStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Background(lipgloss.Color("240")).
			Foreground(lipgloss.Color("15"))
)

// renderOutcome prints the query banner and the rendered search links.
func renderOutcome(w io.Writer, markdown *services.MarkdownService, outcome orchestration.Outcome) error {
	var b strings.Builder

	source := string(outcome.Source)
	if outcome.Provider != "" && outcome.Source != services.SourceLocal {
		source = fmt.Sprintf("%s via %s", outcome.Source, outcome.Provider)
	}
	fmt.Fprintf(&b, "%s %s\n", bannerStyle.Render("keywords"), labelStyle.Render(source))

	if outcome.Query == "" {
		b.WriteString(warnStyle.Render("No keywords extracted."))
		b.WriteString("\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	b.WriteString(queryStyle.Render(outcome.Query))
	b.WriteString("\n")
	if outcome.RemoteErr != nil {
		b.WriteString(warnStyle.Render("provider failed, used local extraction: " + outcome.RemoteErr.Error()))
		b.WriteString("\n")
	}

	links, err := markdown.RenderSearchResults(outcome.Query, outcome.Results)
	if err != nil {
		return err
	}
	b.WriteString(links)

	_, err = io.WriteString(w, b.String())
	return err
}

// renderAnalysis prints the extractor's intermediate results.
func renderAnalysis(w io.Writer, analysis extraction.Analysis) error {
	var b strings.Builder

	intent := string(analysis.Intent.Kind)
	if analysis.Intent.Modifier != "" {
		intent += " (" + analysis.Intent.Modifier + ")"
	}

	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("intent:  "), intent)
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("quotes:  "), strings.Join(analysis.Quotes, ", "))

	terms := make([]string, 0, len(analysis.Terms))
	for _, term := range analysis.Terms {
		terms = append(terms, fmt.Sprintf("%s×%d", term.Term, term.Count))
	}
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("terms:   "), strings.Join(terms, " "))
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("keywords:"), strings.Join(analysis.Keywords, " | "))
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("query:   "), queryStyle.Render(analysis.Query))

	_, err := io.WriteString(w, b.String())
	return err
}

func renderProviders(w io.Writer, providers []voxtypes.ProviderDescriptor, withModels bool) error {
	var b strings.Builder

	for _, provider := range providers {
		key := "no key"
		if provider.RequiresAPIKey {
			key = "API key"
		}
		fmt.Fprintf(&b, "%-11s %s %s\n", provider.ID, provider.DisplayName, badgeStyle.Render(key))
		fmt.Fprintf(&b, "            %s\n", labelStyle.Render(ansi.Truncate(provider.Description, descriptionWidth, "…")))

		if !withModels {
			continue
		}
		if provider.Website != "" {
			fmt.Fprintf(&b, "            %s\n", provider.Website)
		}
		for _, model := range provider.Models {
			fmt.Fprintf(&b, "  - %-32s %s %s\n", model.Value, model.Label, badgeStyle.Render(model.Badge))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func renderEngines(w io.Writer, engines []voxtypes.SearchEngine) error {
	var b strings.Builder

	for _, engine := range engines {
		name := engine.Name
		if engine.IsDefault {
			name += " " + badgeStyle.Render("default")
		}
		fmt.Fprintf(&b, "%-14s %-10s %s\n", engine.ID, engine.Category, name)
		fmt.Fprintf(&b, "%-25s %s\n", "", labelStyle.Render(ansi.Truncate(engine.Description, descriptionWidth, "…")))
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func renderSettings(w io.Writer, path string, rows [][2]string) error {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n", bannerStyle.Render("config"), labelStyle.Render(path))
	for _, row := range rows {
		fmt.Fprintf(&b, "%-18s %s\n", row[0], row[1])
	}

	_, err := io.WriteString(w, b.String())
	return err
}
