package rewards

// Prize is one slot of the daily wheel.
type Prize struct {
	Label  string `json:"label"`
	Points int64  `json:"points"`
	Weight int    `json:"-"`
}

// Wheel is the fixed prize table.
var Wheel = []Prize{
	{Label: "5", Points: 5, Weight: 30},
	{Label: "50", Points: 50, Weight: 25},
	{Label: "100", Points: 100, Weight: 20},
	{Label: "200", Points: 200, Weight: 10},
	{Label: "500", Points: 500, Weight: 5},
	{Label: "1K", Points: 1000, Weight: 10},
}

// RandomSource returns an int in [0, n).
type RandomSource interface {
	Intn(n int) int
}

// Pick selects a prize by weight.
func Pick(prizes []Prize, rng RandomSource) Prize {
	total := 0
	for _, p := range prizes {
		total += p.Weight
	}
	n := rng.Intn(total)
	for _, p := range prizes {
		if n < p.Weight {
			return p
		}
		n -= p.Weight
	}
	return prizes[len(prizes)-1]
}
