package mathx

// Source is a seeded splitmix stream. N is the number of draws taken so far, so
// (Seed, N) fully describes the stream position and can be persisted.
type Source struct {
	Seed int64
	N    uint64
}

func NewSource(seed int64) *Source {
	return &Source{Seed: seed}
}

func (s *Source) Uint64() uint64 {
	s.N++
	return mix64(uint64(s.Seed) ^ (s.N * 0x9e3779b97f4a7c15))
}

// Float64 returns a value in [0,1).
func (s *Source) Float64() float64 {
	return Unit(s.Uint64())
}

// Intn returns a value in [0,n). n <= 0 yields 0.
func (s *Source) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(s.Uint64() % uint64(n))
}

// Unit maps a hash onto [0,1) using its top 53 bits.
func Unit(h uint64) float64 {
	return float64(h>>11) / (1 << 53)
}

// Permille rolls a hash against a probability expressed in thousandths.
func Permille(h uint64, p int) bool {
	if p <= 0 {
		return false
	}
	return h%1000 < uint64(p)
}
