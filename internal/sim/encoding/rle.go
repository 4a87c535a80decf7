// Package encoding packs block grids for the observer feed.
package encoding

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"tilecraft.ai/internal/sim/catalogs"
)

// EncodeGrid run-length encodes row-major block kinds as
// base64(uvarint cols, uvarint rows, (kind, run)...). Runs may wrap rows;
// terrain is mostly long horizontal bands, so whole rows of air or stone
// collapse to a single pair.
func EncodeGrid(cols, rows int, cells []catalogs.BlockKind) string {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte
	put := func(v uint64) {
		n := binary.PutUvarint(tmp[:], v)
		buf.Write(tmp[:n])
	}
	put(uint64(cols))
	put(uint64(rows))

	for i := 0; i < len(cells); {
		b := cells[i]
		run := 1
		for i+run < len(cells) && cells[i+run] == b {
			run++
		}
		put(uint64(b))
		put(uint64(run))
		i += run
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// DecodeGrid reverses EncodeGrid. The runs must cover exactly cols*rows cells.
func DecodeGrid(b64 string) (cols, rows int, cells []uint16, err error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return 0, 0, nil, err
	}
	i := 0
	next := func() (uint64, error) {
		v, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return 0, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		return v, nil
	}
	c, err := next()
	if err != nil {
		return 0, 0, nil, err
	}
	r, err := next()
	if err != nil {
		return 0, 0, nil, err
	}
	total := c * r
	if c == 0 || r == 0 || total > 1<<26 {
		return 0, 0, nil, fmt.Errorf("grid dimensions %dx%d", c, r)
	}
	cells = make([]uint16, 0, total)
	for i < len(raw) {
		b, err := next()
		if err != nil {
			return 0, 0, nil, err
		}
		run, err := next()
		if err != nil {
			return 0, 0, nil, err
		}
		if b > 0xFFFF {
			return 0, 0, nil, fmt.Errorf("block kind too large: %d", b)
		}
		if run == 0 || uint64(len(cells))+run > total {
			return 0, 0, nil, fmt.Errorf("run of %d overflows %d cells", run, total)
		}
		for k := uint64(0); k < run; k++ {
			cells = append(cells, uint16(b))
		}
	}
	if uint64(len(cells)) != total {
		return 0, 0, nil, fmt.Errorf("runs cover %d of %d cells", len(cells), total)
	}
	return int(c), int(r), cells, nil
}
