package hexgrid

// Ring returns the axial coordinates at exact distance k from center c,
// starting from direction 4 (south-west) and proceeding counter-clockwise.
// If k==0, returns [c].
func Ring(c Axial, k int) []Axial {
	if k <= 0 {
		return []Axial{c}
	}
	res := make([]Axial, 0, 6*k)
	cur := c.Add(Directions[4].Mul(k))
	for side := 0; side < 6; side++ {
		for step := 0; step < k; step++ {
			res = append(res, cur)
			cur = cur.Add(Directions[side])
		}
	}
	return res
}

// Disk returns all axial coordinates at distance <= radius from center c.
// Offsets are filtered with the axial disk test |-dq-dr| <= radius.
func Disk(c Axial, radius int) []Axial {
	if radius < 0 {
		return nil
	}
	res := make([]Axial, 0, 1+3*radius*(radius+1))
	for dq := -radius; dq <= radius; dq++ {
		for dr := -radius; dr <= radius; dr++ {
			if absInt(-dq-dr) > radius {
				continue
			}
			res = append(res, c.Add(Axial{dq, dr}))
		}
	}
	return res
}

// WithinBounds reports whether both |q| and |r| are at most limit.
func WithinBounds(a Axial, limit int) bool {
	return absInt(a.Q) <= limit && absInt(a.R) <= limit
}

// PickOnRing selects a stable cell on the ring of radius k around c.
// Every cell is hashed together with the seed and key; the minimum hash wins,
// so the same key always lands on the same cell.
func PickOnRing(c Axial, k int, seed int64, key string) Axial {
	ring := Ring(c, k)
	best := ring[0]
	bestHash := ^uint64(0)
	salt := uint64(seed) ^ hashString(key)
	for _, a := range ring {
		h := hashCoord(salt, a)
		if h < bestHash {
			bestHash = h
			best = a
		}
	}
	return best
}

func hashCoord(seed uint64, a Axial) uint64 {
	// splitmix-like integer hashing mixed with axial coords
	x := seed
	x ^= uint64(uint32(a.Q)) * 0x9E3779B97F4A7C15
	x ^= uint64(uint32(a.R)) * 0xBF58476D1CE4E5B9
	x = (x ^ (x >> 30)) * 0xBF58476D1CE4E5B9
	x = (x ^ (x >> 27)) * 0x94D049BB133111EB
	x ^= x >> 31
	return x
}

// hashString is FNV-1a.
func hashString(s string) uint64 {
	h := uint64(14695981039346656037)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211
	}
	return h
}
