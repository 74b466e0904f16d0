package master

import (
	"math/rand/v2"

	"defusal-go/types"
	"defusal-go/x/mathx"
)

const serialLength = 8

// Most letters appear twice (E and U once). I, O and 0 never appear.
var serialAlphabet = []byte("ABCDEFGHJKLMNPQRSTUVWXYZ" + "ABCDFGHJKLMNPQRSTVWXYZ" + "123456789")

var labelNames = []string{"SND", "CLR", "CAR", "IND", "FRQ", "SIG", "NSA", "MSA", "TRN", "BOB", "FRK"}

const labelCount = 4

// GenerateConfig builds a session configuration from seed. The same seed
// always yields the same configuration.
func GenerateConfig(seed uint64, lives, seconds int) types.GameConfig {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	cfg := types.GameConfig{
		Serial: generateSerial(r),
		Lives:  lives,
		Time:   seconds,
		Seed:   seed,
		Labels: generateLabels(r),
	}
	cfg.Batteries = generateBatteries(r)
	cfg.Ports = generatePorts(r)
	return cfg
}

// intN draws from [0, n); n <= 0 yields 0.
func intN(r *rand.Rand, n int) int {
	if n <= 0 {
		return 0
	}
	return r.IntN(n)
}

func generateSerial(r *rand.Rand) string {
	b := make([]byte, serialLength)
	for i := range b {
		b[i] = serialAlphabet[r.IntN(len(serialAlphabet))]
	}
	return string(b)
}

func generateLabels(r *rand.Rand) []types.Label {
	idx := r.Perm(len(labelNames))[:labelCount]
	out := make([]types.Label, 0, labelCount)
	for _, i := range idx {
		out = append(out, types.Label{
			Text: labelNames[i],
			Lit:  r.IntN(3) == 0,
		})
	}
	return out
}

func generateBatteries(r *rand.Rand) types.Batteries {
	aa := intN(r, 6)
	d := intN(r, mathx.Min(6-aa, 2))
	return types.Batteries{AA: aa, D: d}
}

func generatePorts(r *rand.Rand) types.Ports {
	var p types.Ports
	draw := func() int { return intN(r, mathx.Min(2, 5-p.Total())) }
	p.VGA = draw()
	p.PS2 = draw()
	p.RJ45 = draw()
	p.RCA = draw()
	return p
}
