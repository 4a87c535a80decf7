package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"sort"

	"tilecraft.ai/internal/sim/catalogs"
	"tilecraft.ai/internal/sim/world/feature/work/smelting"
)

// stateDigest hashes every piece of persisted state in a fixed order. Two
// worlds with the same digest at the same tick step identically.
func (w *World) stateDigest(nowTick uint64) string {
	h := sha256.New()
	var tmp [8]byte

	digestWriteU64(h, &tmp, nowTick)
	digestWriteF64(h, &tmp, w.elapsed)
	digestWriteI64(h, &tmp, w.rng.Seed)
	digestWriteU64(h, &tmp, w.rng.N)

	g := w.grid.Digest()
	h.Write(g[:])

	w.digestMobs(h, &tmp)
	w.digestStations(h, &tmp)
	w.digestPlayer(h, &tmp)

	return hex.EncodeToString(h.Sum(nil))
}

// StateDigest exposes the digest for the current tick.
func (w *World) StateDigest() string { return w.stateDigest(w.tick.Load()) }

func (w *World) digestMobs(h hashWriter, tmp *[8]byte) {
	digestWriteU64(h, tmp, w.mobs.NextID())
	digestWriteU64(h, tmp, uint64(w.mobs.Len()))
	for _, m := range w.mobs.Mobs() {
		digestWriteU64(h, tmp, m.ID)
		h.Write([]byte(m.Kind))
		digestWriteF64(h, tmp, m.Pos.X())
		digestWriteF64(h, tmp, m.Pos.Y())
		digestWriteF64(h, tmp, m.Vel.X())
		digestWriteF64(h, tmp, m.Vel.Y())
		digestWriteI64(h, tmp, int64(m.Health))
		h.Write([]byte{boolByte(m.Grounded)})
		digestWriteF64(h, tmp, m.PathTimer)
		digestWriteU64(h, tmp, uint64(len(m.Path)))
		for _, c := range m.Path {
			digestWriteI64(h, tmp, int64(c.Col))
			digestWriteI64(h, tmp, int64(c.Row))
		}
	}
}

func (w *World) digestStations(h hashWriter, tmp *[8]byte) {
	cells := w.stations.Cells()
	digestWriteU64(h, tmp, uint64(len(cells)))
	for _, c := range cells {
		st, _ := w.stations.Get(c)
		digestWriteI64(h, tmp, int64(c.Col))
		digestWriteI64(h, tmp, int64(c.Row))
		for _, s := range []*smelting.Stack{st.Input, st.Fuel, st.Output} {
			if s == nil {
				h.Write([]byte{0})
				continue
			}
			h.Write([]byte{1})
			digestWriteU64(h, tmp, uint64(s.Item))
			digestWriteI64(h, tmp, int64(s.Count))
		}
		digestWriteF64(h, tmp, st.Elapsed)
	}
}

func (w *World) digestPlayer(h hashWriter, tmp *[8]byte) {
	p := w.player
	digestWriteF64(h, tmp, p.Pos.X())
	digestWriteF64(h, tmp, p.Pos.Y())
	digestWriteI64(h, tmp, int64(p.Health))
	digestWriteI64(h, tmp, int64(p.XP))
	digestWriteU64(h, tmp, uint64(p.Armor))
	digestWriteF64(h, tmp, p.HurtTimer)
	writeItemMap(h, tmp, p.Inventory)
	digestWriteI64(h, tmp, int64(p.Selected))
	digestWriteU64(h, tmp, uint64(len(p.Tools)))
	for _, t := range p.Tools {
		digestWriteU64(h, tmp, uint64(t.Item))
		digestWriteI64(h, tmp, int64(t.Durability))
	}
	if w.mineTarget != nil {
		h.Write([]byte{1})
		digestWriteI64(h, tmp, int64(w.mineTarget.Col))
		digestWriteI64(h, tmp, int64(w.mineTarget.Row))
	} else {
		h.Write([]byte{0})
	}
}

func digestWriteU64(h hashWriter, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestWriteI64(h hashWriter, tmp *[8]byte, v int64) {
	digestWriteU64(h, tmp, uint64(v))
}

func digestWriteF64(h hashWriter, tmp *[8]byte, v float64) {
	digestWriteU64(h, tmp, math.Float64bits(v))
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// writeItemMap writes non-zero counts in kind order.
func writeItemMap(h hashWriter, tmp *[8]byte, m map[catalogs.ItemKind]int) {
	keys := make([]catalogs.ItemKind, 0, len(m))
	for k, v := range m {
		if v != 0 {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	digestWriteU64(h, tmp, uint64(len(keys)))
	for _, k := range keys {
		digestWriteU64(h, tmp, uint64(k))
		digestWriteI64(h, tmp, int64(m[k]))
	}
}

type hashWriter interface {
	Write(p []byte) (n int, err error)
}
