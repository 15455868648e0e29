package domain

// Status is the quality tier of a lemma, assigned by the producing
// source. Tiers are strictly ranked; the ranking is the sole tie-breaker
// when sources disagree on which payload should dominate a merge.
type Status string

const (
	StatusGold     Status = "gold"
	StatusSilver   Status = "silver"
	StatusAuto     Status = "auto"
	StatusAutoBrut Status = "auto_brut"
)

// statusRank maps tiers to their precedence. Unknown or empty statuses
// rank below auto_brut.
var statusRank = map[Status]int{
	StatusGold:     4,
	StatusSilver:   3,
	StatusAuto:     2,
	StatusAutoBrut: 1,
}

// Rank returns the numeric precedence of the status (0 for unknown).
func (s Status) Rank() int {
	return statusRank[s]
}

// BestStatus returns the higher-ranked of a and b. Ties keep a, so the
// result is stable under repeated application with the current value
// first.
func BestStatus(a, b Status) Status {
	if a.Rank() >= b.Rank() {
		return a
	}
	return b
}
