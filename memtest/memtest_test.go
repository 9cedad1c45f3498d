package memtest

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/pkg/errors"

	"github.com/hexaflex/vmt/devices/fffe/vesa"
	"github.com/hexaflex/vmt/machine"
	"github.com/hexaflex/vmt/vbe"
)

// testMemory is plain memory which lets a test observe and corrupt accesses.
type testMemory struct {
	data    []byte
	log     []string
	onRead  func(offset uint32, p []byte) error
	logging bool
}

func newTestMemory(size int) *testMemory {
	return &testMemory{data: make([]byte, size)}
}

func (m *testMemory) Write(offset uint32, p []byte) error {
	if m.logging {
		m.log = append(m.log, fmt.Sprintf("w %d %d", offset, len(p)))
	}
	copy(m.data[offset:], p)
	return nil
}

func (m *testMemory) Read(offset uint32, p []byte) error {
	if m.logging {
		m.log = append(m.log, fmt.Sprintf("r %d %d", offset, len(p)))
	}
	copy(p, m.data[offset:])
	if m.onRead != nil {
		return m.onRead(offset, p)
	}
	return nil
}

func TestNewBus(t *testing.T) {
	tests := []struct {
		width, chips int
		ok           bool
	}{
		{32, 4, true},
		{64, 8, true},
		{0xfff8, 8, true},
		{0x10000, 8, false},
		{8, 1, true},
		{24, 2, true},
		{16, 4, false},
		{12, 1, false},
		{4, 1, false},
		{0, 1, false},
		{32, 0, false},
		{32, -1, false},
	}

	for _, tt := range tests {
		_, err := NewBus(tt.width, tt.chips)
		if tt.ok && err != nil {
			t.Errorf("NewBus(%d, %d): %v", tt.width, tt.chips, err)
		}
		if !tt.ok && errors.Cause(err) != ErrArgument {
			t.Errorf("NewBus(%d, %d): want %v, have %v", tt.width, tt.chips, ErrArgument, err)
		}
	}
}

func TestBusChip(t *testing.T) {
	tests := []struct {
		width, chips int
		want         []int // Chip per offset, starting at 0.
	}{
		{32, 4, []int{0, 1, 2, 3, 0, 1, 2, 3}},
		{64, 4, []int{0, 0, 1, 1, 2, 2, 3, 3, 0}},
		{32, 1, []int{0, 0, 0, 0, 0}},
		{24, 2, []int{0, 1, 1, 0, 1, 1}},
		{40, 2, []int{0, 0, 1, 1, 1, 0}},
	}

	for _, tt := range tests {
		bus, err := NewBus(tt.width, tt.chips)
		if err != nil {
			t.Fatal(err)
		}

		have := make([]int, len(tt.want))
		for i := range have {
			have[i] = bus.Chip(i)
		}

		if !reflect.DeepEqual(have, tt.want) {
			t.Errorf("bus %d/%d: chip mismatch;\nwant %v\nhave %v", tt.width, tt.chips, tt.want, have)
		}
	}
}

func TestPatterns(t *testing.T) {
	want := []string{"0x00", "0xFF", "0xAA", "0x55", "ramp"}

	if len(Patterns) != len(want) {
		t.Fatalf("pattern count mismatch; want %d, have %d", len(want), len(Patterns))
	}

	for i, p := range Patterns {
		if p.Name != want[i] {
			t.Errorf("pattern %d: name mismatch; want %q, have %q", i, want[i], p.Name)
		}
	}

	ramp := Patterns[4]
	for _, i := range []int{0, 1, 255, 256, 4095} {
		if have := ramp.Gen(i); have != byte(i) {
			t.Errorf("ramp(%d) mismatch; want %d, have %d", i, byte(i), have)
		}
	}
}

func TestRunTiling(t *testing.T) {
	bus, _ := NewBus(32, 4)
	stride := bus.Stride()

	tests := []struct {
		name string
		size int
		last int // Length of the final tile.
	}{
		{"remainder", 2*stride + 100, 100},
		{"multiple", 2 * stride, stride},
		{"short", 100, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := newTestMemory(tt.size)
			mem.logging = true

			var passes []string
			result, err := Run(mem, uint32(tt.size), bus, func(i int, p Pattern) {
				passes = append(passes, p.Name)
			})
			if err != nil {
				t.Fatal(err)
			}

			if !result.OK() {
				t.Fatalf("healthy memory reported bad chips %v", result.Bad())
			}

			if len(passes) != len(Patterns) {
				t.Fatalf("pass count mismatch; want %d, have %d", len(Patterns), len(passes))
			}

			var sweep []int
			for addr := 0; addr+tt.last < tt.size; addr += stride {
				sweep = append(sweep, addr)
			}

			var want []string
			for range Patterns {
				for _, op := range []string{"w", "r"} {
					for _, addr := range sweep {
						want = append(want, fmt.Sprintf("%s %d %d", op, addr, stride))
					}
					want = append(want, fmt.Sprintf("%s %d %d", op, tt.size-tt.last, tt.last))
				}
			}

			if !reflect.DeepEqual(mem.log, want) {
				t.Fatalf("access mismatch;\nwant %v\nhave %v", want, mem.log)
			}
		})
	}
}

func TestTilesTopOfAddressSpace(t *testing.T) {
	bus, err := NewBus(4096, 4)
	if err != nil {
		t.Fatal(err)
	}

	const size = 0xffff * 0x10000
	stride := uint32(bus.Stride())
	want := (uint64(size) + uint64(stride) - 1) / uint64(stride)

	var count, end uint64
	err = tiles(size, stride, func(addr, n uint32) error {
		if uint64(addr) != end {
			return errors.Errorf("tile %d starts at %#x; want %#x", count, addr, end)
		}

		count++
		end += uint64(n)

		if count > want {
			return errors.Errorf("more than %d tiles", want)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if count != want || end != size {
		t.Fatalf("tiling mismatch; want %d tiles ending at %#x, have %d ending at %#x", want, uint64(size), count, end)
	}
}

func TestRunSingleFault(t *testing.T) {
	bus, _ := NewBus(32, 4)
	size := 1 << 20
	mem := newTestMemory(size)

	var pass string
	mem.onRead = func(offset uint32, p []byte) error {
		if pass == "0xAA" && offset == 0 {
			p[37] ^= 0x01
		}
		return nil
	}

	result, err := Run(mem, uint32(size), bus, func(i int, p Pattern) {
		pass = p.Name
	})
	if err != nil {
		t.Fatal(err)
	}

	want := Result{true, false, true, true}
	if !reflect.DeepEqual(result, want) {
		t.Fatalf("result mismatch; want %v, have %v", want, result)
	}

	if have := result.Bad(); !reflect.DeepEqual(have, []int{1}) {
		t.Fatalf("bad chips mismatch; want [1], have %v", have)
	}
}

func TestRunReadError(t *testing.T) {
	bus, _ := NewBus(16, 2)
	mem := newTestMemory(64 << 10)

	var pass int
	mem.onRead = func(offset uint32, p []byte) error {
		if pass == 2 {
			return errors.New("bus error")
		}
		return nil
	}

	result, err := Run(mem, uint32(len(mem.data)), bus, func(i int, p Pattern) {
		pass = i
	})

	if err == nil {
		t.Fatalf("expected an error")
	}

	if result != nil {
		t.Fatalf("expected no result; have %v", result)
	}
}

func newAdapter(t *testing.T, faults ...vesa.Fault) (*vbe.BIOS, *vesa.Device, *machine.Machine) {
	t.Helper()

	c := vesa.DefaultConfig()
	c.Memory = 1 << 20
	c.Faults = faults

	adapter := vesa.New(c)
	m := machine.New(machine.Limits{}, adapter)
	if err := m.Startup(); err != nil {
		t.Fatal(err)
	}

	t.Cleanup(func() { m.Shutdown() })
	return vbe.New(m), adapter, m
}

func TestAdapter(t *testing.T) {
	tests := []struct {
		name   string
		faults []vesa.Fault
		want   Result
	}{
		{"healthy", nil, Result{true, true, true, true}},
		{"stuck high", []vesa.Fault{{Lane: 2, BusBytes: 4, Set: 0x01}}, Result{true, true, false, true}},
		{"stuck low", []vesa.Fault{{Lane: 0, BusBytes: 4, Clear: 0x80}}, Result{false, true, true, true}},
		{"two chips", []vesa.Fault{
			{Lane: 1, BusBytes: 4, Set: 0x10},
			{Lane: 3, BusBytes: 4, Clear: 0x02},
		}, Result{true, false, true, false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bios, adapter, m := newAdapter(t, tt.faults...)

			have, err := Test(bios, 0x111, 32, 4, nil)
			if err != nil {
				t.Fatal(err)
			}

			if !reflect.DeepEqual(have, tt.want) {
				t.Fatalf("result mismatch; want %v, have %v", tt.want, have)
			}

			if id, _ := adapter.Mode(); id != vbe.TextMode {
				t.Fatalf("mode not restored; have %#x", id)
			}

			if u := m.Usage(); u != (machine.Usage{}) {
				t.Fatalf("leaked resources: %+v", u)
			}
		})
	}
}

func TestArgumentBeforeFirmware(t *testing.T) {
	bios, adapter, _ := newAdapter(t)

	_, err := Test(bios, 0x111, 16, 4, nil)
	if errors.Cause(err) != ErrArgument {
		t.Fatalf("error mismatch; want %v, have %v", ErrArgument, err)
	}

	for _, fn := range []uint16{vbe.FuncControllerInfo, vbe.FuncModeInfo, vbe.FuncSetMode} {
		if have := adapter.Calls(fn); have != 0 {
			t.Fatalf("function %04x called %d times", fn, have)
		}
	}
}

func TestUnknownMode(t *testing.T) {
	bios, adapter, _ := newAdapter(t)

	if _, err := Test(bios, 0x1ff, 32, 4, nil); err == nil {
		t.Fatalf("expected an error")
	}

	if id, _ := adapter.Mode(); id != vbe.TextMode {
		t.Fatalf("mode changed; have %#x", id)
	}
}
