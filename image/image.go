// Package image models a sparse, fixed-extent flash image: one or more
// disjoint address regions, gap-filled with the unprogrammed sentinel,
// written to by address, and read back as a stream of fixed-size
// programming blocks that skip all-unprogrammed stretches.
package image

import "fmt"

// Unprogrammed is the byte value an erased flash cell reads as, and the
// sentinel a freshly constructed Image is filled with.
const Unprogrammed = 0xFF

// AddressRange is an inclusive byte range.
type AddressRange struct {
	Lo, Hi uint32
}

// Len returns the number of bytes the range spans.
func (r AddressRange) Len() uint32 { return r.Hi - r.Lo + 1 }

// Contains reports whether addr falls within the range, inclusive.
func (r AddressRange) Contains(addr uint32) bool { return addr >= r.Lo && addr <= r.Hi }

// Region is one disjoint, pre-allocated span of an Image.
type Region struct {
	Range AddressRange
	Bytes []byte
}

// Block is one fixed-size chunk of data ready to hand to the
// programming loop.
type Block struct {
	StartAddress uint32
	Data         []byte
}

// Image is an ordered set of disjoint regions. It never grows or shrinks
// after construction; every byte starts as Unprogrammed.
type Image struct {
	Regions []Region
}

// New allocates an Image spanning ranges, each filled with Unprogrammed.
func New(ranges []AddressRange) *Image {
	regions := make([]Region, len(ranges))
	for i, r := range ranges {
		b := make([]byte, r.Len())
		for j := range b {
			b[j] = Unprogrammed
		}
		regions[i] = Region{Range: r, Bytes: b}
	}
	return &Image{Regions: regions}
}

// AddData copies data into the unique region whose range contains both
// address and address+len(data)-1. Writing across a region boundary or
// outside every region is a usage error.
func (img *Image) AddData(address uint32, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	end := address + uint32(len(data)) - 1
	for i := range img.Regions {
		reg := &img.Regions[i]
		if reg.Range.Contains(address) && reg.Range.Contains(end) {
			offset := address - reg.Range.Lo
			copy(reg.Bytes[offset:], data)
			return nil
		}
	}
	return fmt.Errorf("image: address range [0x%X,0x%X] is not contained in any region", address, end)
}

// ProgrammableBlocks returns, for each region in declaration order, the
// consecutive blockLength-sized blocks that region divides into, in
// order, skipping any block whose data is entirely Unprogrammed. A
// region whose length is not a multiple of blockLength leaves its
// trailing remainder unemitted.
func (img *Image) ProgrammableBlocks(blockLength int) []Block {
	var blocks []Block
	for _, reg := range img.Regions {
		n := len(reg.Bytes) / blockLength
		for i := 0; i < n; i++ {
			data := reg.Bytes[i*blockLength : (i+1)*blockLength]
			if allUnprogrammed(data) {
				continue
			}
			blocks = append(blocks, Block{
				StartAddress: reg.Range.Lo + uint32(i*blockLength),
				Data:         data,
			})
		}
	}
	return blocks
}

func allUnprogrammed(data []byte) bool {
	for _, b := range data {
		if b != Unprogrammed {
			return false
		}
	}
	return true
}
