// Package rank maps accumulated XP to the named rank tiers shown on profiles.
package rank

import "math"

// Tier is one rank band. A user holds the highest tier whose MinXP they have reached.
type Tier struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	MinXP int    `json:"min_xp"`
}

// Tiers are ordered by MinXP ascending.
var Tiers = []Tier{
	{ID: "hierro", Label: "Hierro", MinXP: 0},
	{ID: "bronce", Label: "Bronce", MinXP: 100},
	{ID: "plata", Label: "Plata", MinXP: 300},
	{ID: "oro", Label: "Oro", MinXP: 600},
	{ID: "platino", Label: "Platino", MinXP: 1200},
	{ID: "diamante", Label: "Diamante", MinXP: 2500},
	{ID: "maestro", Label: "Maestro", MinXP: 5000},
}

// ForXP returns the tier held at xp. Negative xp counts as zero.
func ForXP(xp int) Tier {
	current := Tiers[0]
	for _, t := range Tiers {
		if xp < t.MinXP {
			break
		}
		current = t
	}
	return current
}

// Next returns the first tier above xp, or false at the top tier.
func Next(xp int) (Tier, bool) {
	for _, t := range Tiers {
		if xp < t.MinXP {
			return t, true
		}
	}
	return Tier{}, false
}

// Progress describes how far a user is between their tier and the next one.
type Progress struct {
	Current   Tier  `json:"current"`
	Next      *Tier `json:"next"`
	Percent   int   `json:"percent"`
	Remaining int   `json:"remaining"`
}

// ProgressFor computes the rounded percentage of the current band covered by xp and
// the XP still missing. At the top tier it reports 100% and nothing remaining.
func ProgressFor(xp int) Progress {
	current := ForXP(xp)
	next, ok := Next(xp)
	if !ok {
		return Progress{Current: current, Percent: 100}
	}
	span := float64(next.MinXP - current.MinXP)
	done := float64(max(xp, 0) - current.MinXP)
	return Progress{
		Current:   current,
		Next:      &next,
		Percent:   min(100, int(math.Round(done/span*100))),
		Remaining: max(0, next.MinXP-xp),
	}
}
