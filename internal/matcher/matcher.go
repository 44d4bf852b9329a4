// Package matcher ranks unclaimed items of the opposite kind against a newly
// reported item.
package matcher

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/erazemk/najdeno/internal/model"
)

// Scoring constants.
const (
	CategoryPoints  = 40
	NameWeight      = 30
	LocationWeight  = 20
	DatePoints      = 10
	NameThreshold   = 0.6
	LocationThresh  = 0.5
	MaxDateGapDays  = 7
	MinScore        = 30
	MaxResults      = 5
	eventDateLayout = "2006-01-02"
)

// Match is a candidate item together with its score and the signals that
// contributed to it.
type Match struct {
	Item    model.Item `json:"item"`
	Kind    model.Kind `json:"item_type"`
	Score   int        `json:"score"`
	Reasons []string   `json:"reasons"`
}

// CandidateSource supplies the unclaimed items of a kind, newest first.
type CandidateSource interface {
	ListUnclaimedItems(ctx context.Context, kind model.Kind) ([]model.Item, error)
}

// Suggest fetches the opposite-kind pool for reported and ranks it.
func Suggest(ctx context.Context, src CandidateSource, reported model.Item) ([]Match, error) {
	pool, err := src.ListUnclaimedItems(ctx, reported.Kind.Opposite())
	if err != nil {
		return nil, fmt.Errorf("listing candidates: %w", err)
	}
	return FindSimilar(reported.Kind, reported, pool), nil
}

// FindSimilar scores every item in pool against reported and returns at most
// MaxResults matches scoring at least MinScore, best first. Equal scores keep
// their pool order.
func FindSimilar(kind model.Kind, reported model.Item, pool []model.Item) []Match {
	if len(pool) == 0 {
		return nil
	}

	name := strings.ToLower(reported.Name)
	category := strings.ToLower(reported.Category)
	location := strings.ToLower(reported.Location)
	date, dateOK := parseDate(reported.EventDate)

	var matches []Match
	for _, c := range pool {
		score := 0
		var reasons []string

		// Two blank categories are not a match, unlike two blank strings in Ratio.
		if category != "" && category == strings.ToLower(c.Category) {
			score += CategoryPoints
			reasons = append(reasons, "Same category: "+category)
		}

		if r := fieldRatio(name, strings.ToLower(c.Name)); r > NameThreshold {
			score += int(r * NameWeight)
			reasons = append(reasons, fmt.Sprintf("Similar name (%d%% match)", int(r*100)))
		}

		if r := fieldRatio(location, strings.ToLower(c.Location)); r > LocationThresh {
			score += int(r * LocationWeight)
			reasons = append(reasons, fmt.Sprintf("Similar location (%d%% match)", int(r*100)))
		}

		if dateOK {
			if other, ok := parseDate(c.EventDate); ok {
				if diff := dayDiff(date, other); diff <= MaxDateGapDays {
					score += max(0, DatePoints-diff)
					reasons = append(reasons, fmt.Sprintf("Reported %d days apart", diff))
				}
			}
		}

		if score >= MinScore {
			matches = append(matches, Match{
				Item:    c,
				Kind:    kind.Opposite(),
				Score:   score,
				Reasons: reasons,
			})
		}
	}

	slices.SortStableFunc(matches, func(a, b Match) int {
		return b.Score - a.Score
	})

	if len(matches) > MaxResults {
		matches = matches[:MaxResults]
	}
	return matches
}

// Ratio returns the similarity of a and b in [0, 1], computed as 2*M/T over
// the matching blocks of the two character sequences. Two empty strings are
// identical.
func Ratio(a, b string) float64 {
	return difflib.NewMatcher(splitChars(a), splitChars(b)).Ratio()
}

// fieldRatio is Ratio for optional fields: a missing value never counts as
// similar, not even to another missing value.
func fieldRatio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	return Ratio(a, b)
}

func splitChars(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "")
}

func parseDate(s string) (time.Time, bool) {
	t, err := time.Parse(eventDateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// dayDiff is the absolute number of whole days between two dates.
func dayDiff(a, b time.Time) int {
	d := int(a.Sub(b).Hours() / 24)
	if d < 0 {
		d = -d
	}
	return d
}
