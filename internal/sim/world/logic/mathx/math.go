package mathx

// FloorDiv rounds toward negative infinity. b must be positive.
func FloorDiv(a, b int) int {
	q := a / b
	if a%b < 0 {
		q--
	}
	return q
}

func AbsInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// Hash2 hashes a grid coordinate under seed. Coordinates are truncated to
// 32 bits so negative columns hash stably.
func Hash2(seed int64, col, row int) uint64 {
	uc := uint64(uint32(int32(col)))
	ur := uint64(uint32(int32(row)))
	return mix64(uint64(seed) ^ (uc * 0x9e3779b97f4a7c15) ^ (ur * 0xbf58476d1ce4e5b9))
}

// Hash3 adds a salt lane, used to draw independent values for one cell.
func Hash3(seed int64, col, row, lane int) uint64 {
	uc := uint64(uint32(int32(col)))
	ur := uint64(uint32(int32(row)))
	ul := uint64(uint32(int32(lane)))
	return mix64(uint64(seed) ^ (uc * 0x9e3779b97f4a7c15) ^ (ur * 0xc2b2ae3d27d4eb4f) ^ (ul * 0xbf58476d1ce4e5b9))
}
