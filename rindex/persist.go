package rindex

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/zeebo/xxh3"

	"github.com/vikshiv/pfp-thresholds/bitvec"
	"github.com/vikshiv/pfp-thresholds/rlbwt"
	"github.com/vikshiv/pfp-thresholds/samples"
)

// ErrChecksumMismatch is returned by Load when the trailing xxh3 checksum
// does not match the serialized payload — short reads and silent bit-rot
// both surface here instead of producing a corrupt in-memory index.
var ErrChecksumMismatch = errors.New("rindex: checksum mismatch")

// Save writes the fixed persisted layout of §6 — terminator_position | F |
// RLBWT | samples_last | thresholds | samples_start — followed by a
// trailing xxh3 checksum over everything written before it. The pred/
// pred_to_run structures named in §6 are omitted: this implementation's LF
// never needs a Φ-based predecessor structure (see SPEC_FULL.md §9).
func (idx *Index) Save(w io.Writer) error {
	var buf []byte

	buf = binary.LittleEndian.AppendUint64(buf, idx.TerminatorPosition)
	for _, v := range idx.F {
		buf = binary.LittleEndian.AppendUint64(buf, v)
	}

	buf = appendRLBWT(buf, idx.BWT)

	buf = appendPacked(buf, idx.Samples.Last)

	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(idx.Samples.Thresholds)))
	for _, v := range idx.Samples.Thresholds {
		buf = binary.LittleEndian.AppendUint64(buf, v)
	}

	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(idx.Samples.Start)))
	for _, v := range idx.Samples.Start {
		buf = binary.LittleEndian.AppendUint64(buf, v)
	}

	checksum := xxh3.Hash(buf)
	buf = binary.LittleEndian.AppendUint64(buf, checksum)

	_, err := w.Write(buf)
	return err
}

func appendRLBWT(buf []byte, b *rlbwt.RLBWT) []byte {
	buf = binary.LittleEndian.AppendUint64(buf, b.Size())
	buf = binary.LittleEndian.AppendUint64(buf, b.Block())
	buf = binary.LittleEndian.AppendUint64(buf, uint64(b.BitvecVariant()))

	heads := b.HeadBytes()
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(heads)))
	buf = append(buf, heads...)

	for _, v := range b.RunStarts() {
		buf = binary.LittleEndian.AppendUint64(buf, v)
	}

	buf = appendOnes(buf, b.RunEnds())
	for c := 0; c < 256; c++ {
		buf = appendOnes(buf, b.RunsPerLetter(byte(c)))
	}
	return buf
}

func appendOnes(buf []byte, s bitvec.Sparse) []byte {
	ones := bitvec.Ones(s)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(ones)))
	for _, p := range ones {
		buf = binary.LittleEndian.AppendUint64(buf, p)
	}
	return buf
}

func appendPacked(buf []byte, p *samples.Packed) []byte {
	buf = binary.LittleEndian.AppendUint64(buf, uint64(p.Len()))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(p.Width()))
	for i := 0; i < p.Len(); i++ {
		buf = binary.LittleEndian.AppendUint64(buf, p.Get(i))
	}
	return buf
}

// Load restores an Index previously written by Save.
func Load(r io.Reader) (*Index, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("rindex: reading index: %w", err)
	}
	if len(data) < 8 {
		return nil, fmt.Errorf("rindex: truncated index (%d bytes)", len(data))
	}

	payload := data[:len(data)-8]
	want := binary.LittleEndian.Uint64(data[len(data)-8:])
	if xxh3.Hash(payload) != want {
		return nil, ErrChecksumMismatch
	}

	br := bytes.NewReader(payload)

	var terminatorPosition uint64
	if err := readUint64(br, &terminatorPosition); err != nil {
		return nil, fmt.Errorf("rindex: reading terminator_position: %w", err)
	}

	var f [257]uint64
	for c := range f {
		if err := readUint64(br, &f[c]); err != nil {
			return nil, fmt.Errorf("rindex: reading F[%d]: %w", c, err)
		}
	}

	bwt, err := readRLBWT(br)
	if err != nil {
		return nil, fmt.Errorf("rindex: reading RLBWT: %w", err)
	}

	last, err := readPacked(br)
	if err != nil {
		return nil, fmt.Errorf("rindex: reading samples_last: %w", err)
	}

	var thrLen uint64
	if err := readUint64(br, &thrLen); err != nil {
		return nil, fmt.Errorf("rindex: reading thresholds length: %w", err)
	}
	thresholds := make([]uint64, thrLen)
	for i := range thresholds {
		if err := readUint64(br, &thresholds[i]); err != nil {
			return nil, fmt.Errorf("rindex: reading thresholds[%d]: %w", i, err)
		}
	}

	var startLen uint64
	if err := readUint64(br, &startLen); err != nil {
		return nil, fmt.Errorf("rindex: reading samples_start length: %w", err)
	}
	start := make([]uint64, startLen)
	for i := range start {
		if err := readUint64(br, &start[i]); err != nil {
			return nil, fmt.Errorf("rindex: reading samples_start[%d]: %w", i, err)
		}
	}

	if br.Len() != 0 {
		return nil, fmt.Errorf("rindex: trailing data after load (%d bytes)", br.Len())
	}

	return &Index{
		BWT:                bwt,
		F:                  f,
		TerminatorPosition: terminatorPosition,
		Samples:            &samples.Samples{Start: start, Last: last, Thresholds: thresholds},
		variant:            bwt.BitvecVariant(),
		block:              bwt.Block(),
	}, nil
}

func readRLBWT(br *bytes.Reader) (*rlbwt.RLBWT, error) {
	var n, block, variantRaw uint64
	if err := readUint64(br, &n); err != nil {
		return nil, err
	}
	if err := readUint64(br, &block); err != nil {
		return nil, err
	}
	if err := readUint64(br, &variantRaw); err != nil {
		return nil, err
	}
	variant := bitvec.Variant(variantRaw)

	var headsLen uint64
	if err := readUint64(br, &headsLen); err != nil {
		return nil, err
	}
	heads := make([]byte, headsLen)
	if _, err := io.ReadFull(br, heads); err != nil {
		return nil, fmt.Errorf("reading run heads: %w", err)
	}

	runStarts := make([]uint64, headsLen)
	for i := range runStarts {
		if err := readUint64(br, &runStarts[i]); err != nil {
			return nil, fmt.Errorf("reading run start %d: %w", i, err)
		}
	}

	runEndsOnes, err := readOnes(br)
	if err != nil {
		return nil, fmt.Errorf("reading run-end markers: %w", err)
	}

	var perLetterOnes [256][]uint64
	for c := 0; c < 256; c++ {
		ones, err := readOnes(br)
		if err != nil {
			return nil, fmt.Errorf("reading per-letter markers for byte %d: %w", c, err)
		}
		perLetterOnes[c] = ones
	}

	return rlbwt.FromComponents(n, block, variant, heads, runStarts, runEndsOnes, perLetterOnes)
}

func readOnes(br *bytes.Reader) ([]uint64, error) {
	var count uint64
	if err := readUint64(br, &count); err != nil {
		return nil, err
	}
	ones := make([]uint64, count)
	for i := range ones {
		if err := readUint64(br, &ones[i]); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return ones, nil
}

func readPacked(br *bytes.Reader) (*samples.Packed, error) {
	var length, width uint64
	if err := readUint64(br, &length); err != nil {
		return nil, err
	}
	if err := readUint64(br, &width); err != nil {
		return nil, err
	}
	packed := samples.NewPacked(int(length), uint(width))
	for i := 0; i < int(length); i++ {
		var v uint64
		if err := readUint64(br, &v); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		packed.Set(i, v)
	}
	return packed, nil
}

func readUint64(br *bytes.Reader, out *uint64) error {
	return binary.Read(br, binary.LittleEndian, out)
}
