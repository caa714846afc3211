// Package ranking orders the athletes of a group: who lifts next, where
// each athlete sits on the scoreboard, and category ranks.
package ranking

import (
	"cmp"
	"slices"

	"github.com/roach88/liftfop/internal/athlete"
)

// Default is the standard weightlifting ranking.
type Default struct{}

// Rank assigns category ranks in place and returns the lifting and
// display orders. The input slice is not reordered.
func (Default) Rank(athletes []*athlete.Athlete) (lifting, display []*athlete.Athlete) {
	AssignRanks(athletes)
	return LiftingOrder(athletes), DisplayOrder(athletes)
}

// LiftingOrder sorts by the competition calling order: athletes with
// attempts left first; snatch before clean & jerk; lighter bar first;
// lower attempt number first; whoever lifted earlier on the previous
// attempt first; then start number and lot number.
func LiftingOrder(athletes []*athlete.Athlete) []*athlete.Athlete {
	out := slices.Clone(athletes)
	slices.SortStableFunc(out, compareLifting)
	return out
}

func compareLifting(a, b *athlete.Athlete) int {
	if c := cmpBool(a.IsDone(), b.IsDone()); c != 0 {
		return c
	}
	if c := cmpBool(a.InCleanJerk(), b.InCleanJerk()); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Requested, b.Requested); c != 0 {
		return c
	}
	if c := cmp.Compare(a.AttemptsDone, b.AttemptsDone); c != 0 {
		return c
	}
	if c := cmp.Compare(a.PreviousLiftSeq(), b.PreviousLiftSeq()); c != 0 {
		return c
	}
	if c := cmpPositive(a.StartNumber, b.StartNumber); c != 0 {
		return c
	}
	if c := cmpPositive(a.LotNumber, b.LotNumber); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// DisplayOrder groups athletes by category, then start number.
func DisplayOrder(athletes []*athlete.Athlete) []*athlete.Athlete {
	out := slices.Clone(athletes)
	slices.SortStableFunc(out, func(a, b *athlete.Athlete) int {
		if c := cmp.Compare(a.Category, b.Category); c != 0 {
			return c
		}
		if c := cmpPositive(a.StartNumber, b.StartNumber); c != 0 {
			return c
		}
		if c := cmpPositive(a.LotNumber, b.LotNumber); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// AssignRanks computes snatch, clean & jerk and total ranks within each
// category. Athletes without a result get rank 0.
func AssignRanks(athletes []*athlete.Athlete) {
	byCategory := map[string][]*athlete.Athlete{}
	for _, a := range athletes {
		byCategory[a.Category] = append(byCategory[a.Category], a)
	}
	for _, cat := range byCategory {
		rankBy(cat, (*athlete.Athlete).BestSnatch, func(a *athlete.Athlete, r int) { a.Ranks.Snatch = r })
		rankBy(cat, (*athlete.Athlete).BestCleanJerk, func(a *athlete.Athlete, r int) { a.Ranks.CleanJerk = r })
		rankBy(cat, (*athlete.Athlete).Total, func(a *athlete.Athlete, r int) { a.Ranks.Total = r })
	}
}

func rankBy(athletes []*athlete.Athlete, score func(*athlete.Athlete) int, set func(*athlete.Athlete, int)) {
	sorted := slices.Clone(athletes)
	slices.SortStableFunc(sorted, func(a, b *athlete.Athlete) int {
		if c := cmp.Compare(score(b), score(a)); c != 0 {
			return c
		}
		// Ties go to the lower start number.
		return cmpPositive(a.StartNumber, b.StartNumber)
	})
	rank := 0
	for _, a := range sorted {
		if score(a) == 0 {
			set(a, 0)
			continue
		}
		rank++
		set(a, rank)
	}
}

// Leaders returns up to n athletes of category in rank order: by best
// snatch until the clean & jerk has started, by total afterwards.
func Leaders(athletes []*athlete.Athlete, category string, cjStarted bool, n int) []*athlete.Athlete {
	var out []*athlete.Athlete
	for _, a := range athletes {
		r := a.Ranks.Snatch
		if cjStarted {
			r = a.Ranks.Total
		}
		if a.Category == category && r > 0 {
			out = append(out, a)
		}
	}
	slices.SortStableFunc(out, func(a, b *athlete.Athlete) int {
		if cjStarted {
			return cmp.Compare(a.Ranks.Total, b.Ranks.Total)
		}
		return cmp.Compare(a.Ranks.Snatch, b.Ranks.Snatch)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func cmpBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return 1
	default:
		return -1
	}
}

// cmpPositive orders unassigned (zero) numbers last.
func cmpPositive(a, b int) int {
	switch {
	case a == b:
		return 0
	case a == 0:
		return 1
	case b == 0:
		return -1
	default:
		return cmp.Compare(a, b)
	}
}
