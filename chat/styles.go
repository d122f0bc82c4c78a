package chat

import (
	"math/rand"

	"github.com/sneezeparty/soupy/config"
)

// SelectResponseStyle picks a style instruction using the configured
// weights. An empty result means the default behaviour applies.
func SelectResponseStyle(styles []config.ResponseStyleConfig) string {
	var total float64
	for _, style := range styles {
		total += style.Weight
	}
	if total <= 0 {
		return ""
	}
	r := rand.Float64() * total
	var cumulative float64
	for _, style := range styles {
		cumulative += style.Weight
		if r <= cumulative {
			return style.Instruction
		}
	}
	return ""
}
