package memtest

import "fmt"

// Pattern generates the expected byte for a position within a tile.
type Pattern struct {
	Name string
	Gen  func(index int) byte
}

func constant(v byte) Pattern {
	return Pattern{
		Name: fmt.Sprintf("0x%02X", v),
		Gen:  func(int) byte { return v },
	}
}

// Patterns lists the test passes in the order they are run.
//
// The constants find stuck bits, the alternating values find coupled
// neighbouring bit lines and the ramp finds address decoding faults.
var Patterns = []Pattern{
	constant(0x00),
	constant(0xff),
	constant(0xaa),
	constant(0x55),
	{
		Name: "ramp",
		Gen:  func(index int) byte { return byte(index) },
	},
}
