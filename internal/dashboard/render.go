package dashboard

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"git.home.luguber.info/inful/stravadash/internal/stats"
)

//go:embed dashboard.html.tmpl
var dashboardTemplate string

// Data carries everything the dashboard template needs.
type Data struct {
	Title         string
	ActivityTypes []string
	GeneratedAt   time.Time
	Aggregates    stats.Aggregates
	NotesHTML     template.HTML
}

type pageData struct {
	Title            string
	ActivityTypes    string
	GeneratedAt      string
	Summary          string
	NotesHTML        template.HTML
	HistYearMonth    template.JS
	HistLastMonthDay template.JS
	CumulYear        template.JS
	CumulMonth       template.JS
	CumulWeek        template.JS
}

// Render writes the dashboard HTML for the given data.
func Render(w io.Writer, data Data) error {
	tpl, err := template.New("dashboard").Parse(dashboardTemplate)
	if err != nil {
		return fmt.Errorf("parse dashboard template: %w", err)
	}

	page := pageData{
		Title:         data.Title,
		ActivityTypes: strings.Join(data.ActivityTypes, ", "),
		GeneratedAt:   data.GeneratedAt.Format("2006-01-02 15:04:05 MST"),
		Summary:       summaryLine(data.Aggregates),
		NotesHTML:     data.NotesHTML,
	}

	for _, s := range []struct {
		dst    *template.JS
		series stats.Series
	}{
		{&page.HistYearMonth, data.Aggregates.HistYearMonth},
		{&page.HistLastMonthDay, data.Aggregates.HistLastMonthDay},
		{&page.CumulYear, data.Aggregates.CumulYear},
		{&page.CumulMonth, data.Aggregates.CumulMonth},
		{&page.CumulWeek, data.Aggregates.CumulWeek},
	} {
		encoded, err := encodeSeries(s.series)
		if err != nil {
			return err
		}
		*s.dst = encoded
	}

	if err := tpl.Execute(w, page); err != nil {
		return fmt.Errorf("render dashboard: %w", err)
	}
	return nil
}

// summaryLine formats the headline totals with thousands separators.
func summaryLine(agg stats.Aggregates) string {
	p := message.NewPrinter(language.English)
	return p.Sprintf("%d m climbed this year, %d m this month, %d m this week",
		int64(agg.CumulYear.Last()),
		int64(agg.CumulMonth.Last()),
		int64(agg.CumulWeek.Last()))
}

// encodeSeries marshals a series into the {labels, values} object the charts consume.
func encodeSeries(s stats.Series) (template.JS, error) {
	payload := struct {
		Labels []string  `json:"labels"`
		Values []float64 `json:"values"`
	}{
		Labels: s.Labels(),
		Values: s.Values(),
	}
	if payload.Labels == nil {
		payload.Labels = []string{}
	}
	if payload.Values == nil {
		payload.Values = []float64{}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode chart series: %w", err)
	}
	// #nosec G203 - data is json.Marshal output of typed values, not user HTML
	return template.JS(data), nil
}
