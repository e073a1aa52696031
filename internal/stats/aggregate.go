package stats

import (
	"math"
	"time"
)

// Point is a single labelled value in a chart series.
type Point struct {
	Label string
	Value float64
}

// Series is an ordered chart series.
type Series []Point

// Labels returns the series labels in order.
func (s Series) Labels() []string {
	labels := make([]string, len(s))
	for i, p := range s {
		labels[i] = p.Label
	}
	return labels
}

// Values returns the series values in order.
func (s Series) Values() []float64 {
	values := make([]float64, len(s))
	for i, p := range s {
		values[i] = p.Value
	}
	return values
}

// Last returns the final value of the series, or 0 for an empty series.
func (s Series) Last() float64 {
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1].Value
}

// Aggregates holds the five dashboard chart series.
type Aggregates struct {
	HistYearMonth    Series // climbed meters per month, last 12 months
	HistLastMonthDay Series // climbed meters per day, previous month
	CumulYear        Series // running total, Jan 1 through today
	CumulMonth       Series // running total, first of month through today
	CumulWeek        Series // running total, Monday through today
}

// Aggregate computes the dashboard series from per-day elevation totals.
// today anchors all timeframe calculations and is normalized to a calendar day.
func Aggregate(daily map[time.Time]float64, today time.Time) Aggregates {
	today = Day(today)

	return Aggregates{
		HistYearMonth:    monthlyHistogram(daily, today),
		HistLastMonthDay: lastMonthHistogram(daily, today),
		CumulYear:        cumulative(daily, startOfYear(today), today),
		CumulMonth:       cumulative(daily, startOfMonth(today), today),
		CumulWeek:        cumulative(daily, startOfWeek(today), today),
	}
}

// monthlyHistogram sums gains per month for the 12 months ending with the
// current (partial) month. Days after today contribute nothing.
func monthlyHistogram(daily map[time.Time]float64, today time.Time) Series {
	var s Series
	for i := 11; i >= 0; i-- {
		monthStart := startOfMonth(today).AddDate(0, -i, 0)
		monthEnd := monthStart.AddDate(0, 1, -1)

		var total float64
		for day := monthStart; !day.After(monthEnd); day = day.AddDate(0, 0, 1) {
			if day.After(today) {
				break
			}
			total += daily[day]
		}

		s = append(s, Point{Label: monthStart.Format("2006-01"), Value: math.Round(total)})
	}
	return s
}

// lastMonthHistogram emits one point per day of the previous month, zeros
// included, so the chart shows a complete month.
func lastMonthHistogram(daily map[time.Time]float64, today time.Time) Series {
	firstOfLastMonth := startOfMonth(today).AddDate(0, -1, 0)
	lastOfLastMonth := startOfMonth(today).AddDate(0, 0, -1)

	var s Series
	for day := firstOfLastMonth; !day.After(lastOfLastMonth); day = day.AddDate(0, 0, 1) {
		s = append(s, Point{Label: day.Format("2006-01-02"), Value: math.Round(daily[day])})
	}
	return s
}

// cumulative emits a running total for each day in [from, today].
func cumulative(daily map[time.Time]float64, from, today time.Time) Series {
	var s Series
	var running float64
	for day := from; !day.After(today); day = day.AddDate(0, 0, 1) {
		running += daily[day]
		s = append(s, Point{Label: day.Format("2006-01-02"), Value: math.Round(running)})
	}
	return s
}

func startOfYear(t time.Time) time.Time {
	return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// startOfWeek returns the Monday of the week containing t.
func startOfWeek(t time.Time) time.Time {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday belongs to the week started the previous Monday
	}
	return Day(t).AddDate(0, 0, -(weekday - 1))
}
