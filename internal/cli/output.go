// Package cli renders use-case results for the terminal.
package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"DailyKnowledge/internal/domain"
	"DailyKnowledge/internal/sources"
)

// Printer handles formatted output to the terminal.
type Printer struct {
	out       io.Writer
	err       io.Writer
	useColors bool
}

// NewPrinter writes to stdout/stderr; colors are off when NO_COLOR is set.
func NewPrinter() *Printer {
	_, noColor := os.LookupEnv("NO_COLOR")
	return NewPrinterWithWriters(os.Stdout, os.Stderr, !noColor && os.Getenv("TERM") != "dumb")
}

// NewPrinterWithWriters is NewPrinter with explicit destinations.
func NewPrinterWithWriters(out, errOut io.Writer, useColors bool) *Printer {
	return &Printer{out: out, err: errOut, useColors: useColors}
}

// Success prints a confirmation line.
func (p *Printer) Success(format string, args ...interface{}) {
	if p.useColors {
		color.New(color.FgGreen).Fprintf(p.out, "✓ "+format+"\n", args...)
		return
	}
	fmt.Fprintf(p.out, "✓ "+format+"\n", args...)
}

// Warn prints a warning to stderr.
func (p *Printer) Warn(format string, args ...interface{}) {
	if p.useColors {
		color.New(color.FgYellow).Fprintf(p.err, "⚠ "+format+"\n", args...)
		return
	}
	fmt.Fprintf(p.err, "⚠ "+format+"\n", args...)
}

// Error prints an error to stderr.
func (p *Printer) Error(format string, args ...interface{}) {
	if p.useColors {
		color.New(color.FgRed).Fprintf(p.err, "✗ "+format+"\n", args...)
		return
	}
	fmt.Fprintf(p.err, "✗ "+format+"\n", args...)
}

// Header prints a section title.
func (p *Printer) Header(title string) {
	underline := strings.Repeat("─", len([]rune(title)))
	if p.useColors {
		color.New(color.FgWhite, color.Bold).Fprintf(p.out, "\n%s\n", title)
		color.New(color.FgWhite).Fprintf(p.out, "%s\n", underline)
		return
	}
	fmt.Fprintf(p.out, "\n%s\n%s\n", title, underline)
}

// Run summarizes a finished daily fetch.
func (p *Printer) Run(run domain.DailyRun) {
	p.Success("%s: %d insights", run.Date, run.TotalCount)
	for _, e := range run.Errors {
		p.Warn("%s", e)
	}
}

// Feed prints the dashboard grouped by category.
func (p *Printer) Feed(entries []domain.FeedEntry) {
	if len(entries) == 0 {
		p.Warn("no insights yet, run `dailyknowledge fetch`")
		return
	}

	var current domain.Category
	for _, e := range entries {
		if e.Category != current {
			current = e.Category
			p.Header(string(current))
		}
		mark := " "
		if e.Bookmarked {
			mark = "★"
		}
		title := e.Title
		if p.useColors {
			title = color.New(color.Bold).Sprint(title)
		}
		fmt.Fprintf(p.out, "%s [%3d] %s  (%s)\n", mark, e.Score, title, e.SourceName)
		fmt.Fprintf(p.out, "      %s\n      %s  id=%s\n", e.Summary, e.URL, e.ID)
		if e.Note != "" {
			fmt.Fprintf(p.out, "      note: %s\n", e.Note)
		}
	}
}

// Sources prints the feed registry as a table.
func (p *Printer) Sources(groups []sources.Group) {
	rows := [][]string{}
	for _, g := range groups {
		for _, f := range g.Feeds {
			rows = append(rows, []string{string(g.Category), f.Name, f.EndpointURL})
		}
	}
	p.table([]string{"Category", "Source", "URL"}, rows)
}

// Bookmarks prints collection items as a table.
func (p *Printer) Bookmarks(entries []domain.BookmarkEntry) {
	if len(entries) == 0 {
		p.Warn("no bookmarks")
		return
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.ID,
			e.CreatedAt.Format(domain.DateLayout),
			string(e.Category),
			e.Title,
			e.Note,
		})
	}
	p.table([]string{"ID", "Saved", "Category", "Title", "Note"}, rows)
}

// Review prints one weekly review.
func (p *Printer) Review(r domain.WeeklyReview) {
	p.Header("Weekly Review " + r.WeekRange)
	fmt.Fprintf(p.out, "Themes:\n  %s\n\nInsights:\n  %s\n\nNext week:\n  %s\n", r.Themes, r.Insights, r.NextWeekSuggestions)
}

// Reviews lists stored reviews as a table.
func (p *Printer) Reviews(reviews []domain.WeeklyReview) {
	if len(reviews) == 0 {
		p.Warn("no weekly reviews")
		return
	}
	rows := make([][]string, 0, len(reviews))
	for i, r := range reviews {
		rows = append(rows, []string{strconv.Itoa(i + 1), r.WeekRange, r.CreatedAt.Format("2006-01-02 15:04"), r.ID})
	}
	p.table([]string{"#", "Week", "Created", "ID"}, rows)
}

func (p *Printer) table(header []string, rows [][]string) {
	table := tablewriter.NewTable(p.out,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{ShowHeader: tw.Off},
			},
		}),
	)
	table.Header(header)
	table.Bulk(rows)
	table.Render()
}
