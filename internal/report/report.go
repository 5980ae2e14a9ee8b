// Package report summarises a forecast for operators.
package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/couchcryptid/stockpile-fire-risk/internal/domain"
	"github.com/couchcryptid/stockpile-fire-risk/internal/predict"
)

// Entry is one row of the top-risk list.
type Entry struct {
	Entity      string
	Grade       string
	Probability float64
}

// GradeCount is the number of rows and high-risk rows for one grade.
type GradeCount struct {
	Grade    string
	Rows     int
	HighRisk int
}

// Summary aggregates a forecast.
type Summary struct {
	GeneratedAt     time.Time
	RunID           string
	Threshold       float64
	Total           int
	HighRisk        int
	HighRiskShare   float64
	MeanProbability float64
	MaxProbability  float64
	ByGrade         []GradeCount
	Top             []Entry
}

// Builder produces summaries stamped with its clock.
type Builder struct {
	clock clockwork.Clock
	topN  int
}

// NewBuilder creates a Builder listing at most topN entries.
func NewBuilder(clock clockwork.Clock, topN int) *Builder {
	return &Builder{clock: clock, topN: topN}
}

// Build summarises f. Entities are taken from the stockpile column when the
// inference table has one, otherwise they are 1-based row numbers.
func (b *Builder) Build(runID string, f *predict.Forecast) Summary {
	s := Summary{
		GeneratedAt: b.clock.Now().UTC(),
		RunID:       runID,
		Threshold:   f.Threshold,
		Total:       len(f.Probabilities),
		HighRisk:    f.HighRisk(),
	}
	if s.Total == 0 {
		return s
	}
	s.HighRiskShare = float64(s.HighRisk) / float64(s.Total)
	s.MeanProbability = stat.Mean(f.Probabilities, nil)
	s.MaxProbability = floats.Max(f.Probabilities)

	gradeIdx := f.Table.Index(domain.ColGrade)
	counts := make(map[string]*GradeCount)
	entries := make([]Entry, s.Total)
	for i := range f.Probabilities {
		grade := strings.TrimSpace(f.Table.Cell(i, gradeIdx))
		gc, ok := counts[grade]
		if !ok {
			gc = &GradeCount{Grade: grade}
			counts[grade] = gc
		}
		gc.Rows++
		gc.HighRisk += f.Labels[i]
		entries[i] = Entry{Entity: Entity(f.Table, i), Grade: grade, Probability: f.Probabilities[i]}
	}

	for _, gc := range counts {
		s.ByGrade = append(s.ByGrade, *gc)
	}
	sort.Slice(s.ByGrade, func(i, j int) bool { return s.ByGrade[i].Grade < s.ByGrade[j].Grade })

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Probability > entries[j].Probability })
	if len(entries) > b.topN {
		entries = entries[:b.topN]
	}
	s.Top = entries
	return s
}

// Entity names row i of t.
func Entity(t domain.Table, i int) string {
	if idx := t.Index(domain.ColStockpile); idx >= 0 {
		if v := domain.CanonicalStockpile(t.Cell(i, idx)); v != "" {
			return v
		}
	}
	return strconv.Itoa(i + 1)
}

// Render writes s as plain text.
func Render(w io.Writer, s Summary) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Stockpile fire-risk forecast\n")
	fmt.Fprintf(&sb, "Generated at: %s\n", s.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&sb, "Run ID:       %s\n", s.RunID)
	fmt.Fprintf(&sb, "Threshold:    %.2f\n\n", s.Threshold)

	fmt.Fprintf(&sb, "Rows scored:       %d\n", s.Total)
	fmt.Fprintf(&sb, "High-risk rows:    %d (%.1f%%)\n", s.HighRisk, s.HighRiskShare*100)
	fmt.Fprintf(&sb, "Mean probability:  %.3f\n", s.MeanProbability)
	fmt.Fprintf(&sb, "Max probability:   %.3f\n", s.MaxProbability)

	if len(s.ByGrade) > 0 {
		fmt.Fprintf(&sb, "\nBy grade:\n")
		for _, g := range s.ByGrade {
			name := g.Grade
			if name == "" {
				name = "(none)"
			}
			fmt.Fprintf(&sb, "  %-20s rows=%d high_risk=%d\n", name, g.Rows, g.HighRisk)
		}
	}

	if len(s.Top) > 0 {
		fmt.Fprintf(&sb, "\nTop %d by probability:\n", len(s.Top))
		for i, e := range s.Top {
			fmt.Fprintf(&sb, "  %2d. %-12s %-20s %.3f\n", i+1, e.Entity, e.Grade, e.Probability)
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}
