package dpmi

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/pkg/errors"
)

// fakeHost records every grant and release it receives.
type fakeHost struct {
	calls     []string
	mem       []byte
	nextSel   int
	failAlloc bool
	failMap   bool
	failDesc  bool
	failBase  bool
	failFree  bool
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		mem:     make([]byte, ConventionalLimit),
		nextSel: 0x100,
	}
}

func (h *fakeHost) log(f string, argv ...interface{}) {
	h.calls = append(h.calls, fmt.Sprintf(f, argv...))
}

func (h *fakeHost) AllocDOSMemory(paragraphs int) (uint16, int, error) {
	if h.failAlloc {
		return 0, -1, errors.New("out of memory")
	}
	h.log("alloc %d", paragraphs)
	h.nextSel += 8
	return 0x2000, h.nextSel, nil
}

func (h *fakeHost) FreeDOSMemory(selector int) error {
	h.log("free %#x", selector)
	return nil
}

func (h *fakeHost) MapPhysical(address, size uint32) (uint32, error) {
	if h.failMap {
		return 0, errors.New("refused")
	}
	h.log("map %#x %#x", address, size)
	return 0x80000000, nil
}

func (h *fakeHost) FreePhysicalMapping(linear uint32) error {
	h.log("unmap %#x", linear)
	if h.failFree {
		return errors.New("stale mapping")
	}
	return nil
}

func (h *fakeHost) AllocDescriptors(count int) (int, error) {
	if h.failDesc {
		return -1, errors.New("ldt full")
	}
	h.nextSel += 8
	h.log("desc %#x", h.nextSel)
	return h.nextSel, nil
}

func (h *fakeHost) FreeDescriptor(selector int) error {
	h.log("undesc %#x", selector)
	return nil
}

func (h *fakeHost) SetSegmentBase(selector int, base uint32) error {
	if h.failBase {
		return errors.New("bad base")
	}
	h.log("base %#x %#x", selector, base)
	return nil
}

func (h *fakeHost) SetSegmentLimit(selector int, limit uint32) error {
	h.log("limit %#x %#x", selector, limit)
	return nil
}

func (h *fakeHost) Int(vector int, r *Regs) error { return nil }

func (h *fakeHost) ReadConventional(address uint32, p []byte) error {
	copy(p, h.mem[address:])
	return nil
}

func (h *fakeHost) WriteConventional(address uint32, p []byte) error {
	copy(h.mem[address:], p)
	return nil
}

func (h *fakeHost) ReadSelector(selector int, offset uint32, p []byte) error  { return nil }
func (h *fakeHost) WriteSelector(selector int, offset uint32, p []byte) error { return nil }

func TestRealAddr(t *testing.T) {
	p := FarPtr{Offset: 0x0010, Segment: 0xc000}
	if have, want := p.Linear(), uint32(0xc0010); have != want {
		t.Fatalf("linear address mismatch; have %#x, want %#x", have, want)
	}
	if !(FarPtr{}).IsNil() {
		t.Fatalf("zero pointer is not nil")
	}
}

func TestDOSMemoryParagraphs(t *testing.T) {
	h := newFakeHost()

	m, err := AllocDOSMemory(h, 17)
	if err != nil {
		t.Fatal(err)
	}

	if have, want := h.calls[0], "alloc 2"; have != want {
		t.Fatalf("unexpected call; have %q, want %q", have, want)
	}

	if err := m.Free(); err != nil {
		t.Fatal(err)
	}

	// A released block must never be released twice.
	if err := m.Free(); err != nil {
		t.Fatal(err)
	}

	if len(h.calls) != 2 {
		t.Fatalf("expected 2 host calls; have %v", h.calls)
	}
}

func TestDOSMemoryAllocationError(t *testing.T) {
	h := newFakeHost()
	h.failAlloc = true

	_, err := AllocDOSMemory(h, 512)
	if !errors.Is(err, ErrAllocation) {
		t.Fatalf("expected ErrAllocation; have %v", err)
	}
}

func TestDOSMemoryMove(t *testing.T) {
	h := newFakeHost()

	a, err := AllocDOSMemory(h, 64)
	if err != nil {
		t.Fatal(err)
	}

	sel := a.Selector()
	b := a.Move()

	if a.Valid() || a.Selector() != -1 || a.Size() != 0 {
		t.Fatalf("moved-from block still owns something: %v", a)
	}

	if !b.Valid() || b.Selector() != sel {
		t.Fatalf("moved-to block does not own the allocation: %v", b)
	}

	a.Free()
	b.Free()

	want := []string{"alloc 4", fmt.Sprintf("free %#x", sel)}
	if !reflect.DeepEqual(h.calls, want) {
		t.Fatalf("call mismatch:\nhave: %v\nwant: %v", h.calls, want)
	}
}

func TestDOSMemoryPutGet(t *testing.T) {
	h := newFakeHost()

	m, err := AllocDOSMemory(h, 16)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Free()

	if err := m.Put([]byte("VBE2"), 4); err != nil {
		t.Fatal(err)
	}

	if have := h.mem[0x20004 : 0x20004+4]; !bytes.Equal(have, []byte("VBE2")) {
		t.Fatalf("data mismatch; have %q", have)
	}

	p := make([]byte, 4)
	if err := m.Get(p, 4); err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(p, []byte("VBE2")) {
		t.Fatalf("data mismatch; have %q", p)
	}

	if err := m.Put(make([]byte, 8), 12); err == nil {
		t.Fatalf("expected out of range error")
	}
}

type testRecord struct {
	Signature [4]byte
	Version   uint16
	Ptr       FarPtr
	Reserved  [6]byte
}

func TestRecordPushPull(t *testing.T) {
	h := newFakeHost()

	r, err := NewRecord[testRecord](h)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Free()

	if have, want := h.calls[0], "alloc 1"; have != want {
		t.Fatalf("unexpected call; have %q, want %q", have, want)
	}

	copy(r.Value.Signature[:], "VBE2")
	r.Value.Version = 0x0102
	if err := r.Push(); err != nil {
		t.Fatal(err)
	}

	base := RealAddr(uint32(r.Segment()), 0)
	want := []byte{'V', 'B', 'E', '2', 0x02, 0x01}
	if have := h.mem[base : base+6]; !bytes.Equal(have, want) {
		t.Fatalf("layout mismatch; have % x, want % x", have, want)
	}

	// Simulate the service filling in the record.
	copy(h.mem[base:], []byte{'V', 'E', 'S', 'A', 0x00, 0x03, 0x34, 0x12, 0x00, 0xc0})

	v, err := r.Pull()
	if err != nil {
		t.Fatal(err)
	}

	if string(v.Signature[:]) != "VESA" || v.Version != 0x0300 {
		t.Fatalf("unexpected record: %+v", v)
	}

	if have, want := v.Ptr, (FarPtr{Offset: 0x1234, Segment: 0xc000}); have != want {
		t.Fatalf("pointer mismatch; have %v, want %v", have, want)
	}
}

func TestRecordVariableLayout(t *testing.T) {
	_, err := NewRecord[[]int](newFakeHost())
	if err == nil {
		t.Fatalf("expected error for variable sized record")
	}
}

func TestMapPhysical(t *testing.T) {
	h := newFakeHost()

	m, err := MapPhysical(h, 0xe0000000, 0x100000)
	if err != nil {
		t.Fatal(err)
	}

	if m.Size() != 0x100000 {
		t.Fatalf("size mismatch; have %#x", m.Size())
	}

	sel := m.Selector()
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	m.Close()

	want := []string{
		"map 0xe0000000 0x100000",
		fmt.Sprintf("desc %#x", sel),
		fmt.Sprintf("base %#x 0x80000000", sel),
		fmt.Sprintf("limit %#x 0xfffff", sel),
		fmt.Sprintf("undesc %#x", sel),
		"unmap 0x80000000",
	}

	if !reflect.DeepEqual(h.calls, want) {
		t.Fatalf("call mismatch:\nhave: %v\nwant: %v", h.calls, want)
	}
}

func TestMapPhysicalUnwind(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*fakeHost)
		want  []string
	}{
		{
			name:  "mapping refused",
			setup: func(h *fakeHost) { h.failMap = true },
			want:  nil,
		},
		{
			name:  "descriptor refused",
			setup: func(h *fakeHost) { h.failDesc = true },
			want:  []string{"map 0xe0000000 0x1000", "unmap 0x80000000"},
		},
		{
			name:  "descriptor base refused",
			setup: func(h *fakeHost) { h.failBase = true },
			want:  []string{"map 0xe0000000 0x1000", "desc 0x108", "undesc 0x108", "unmap 0x80000000"},
		},
	}

	for _, tt := range tests {
		h := newFakeHost()
		tt.setup(h)

		_, err := MapPhysical(h, 0xe0000000, 0x1000)
		if !errors.Is(err, ErrMapping) {
			t.Fatalf("%s: expected ErrMapping; have %v", tt.name, err)
		}

		if !reflect.DeepEqual(h.calls, tt.want) {
			t.Fatalf("%s: call mismatch:\nhave: %v\nwant: %v", tt.name, h.calls, tt.want)
		}
	}
}

func TestMapPhysicalUnwindFailure(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*fakeHost)
	}{
		{"descriptor refused", func(h *fakeHost) { h.failDesc = true }},
		{"descriptor base refused", func(h *fakeHost) { h.failBase = true }},
	}

	for _, tt := range tests {
		h := newFakeHost()
		h.failFree = true
		tt.setup(h)

		_, err := MapPhysical(h, 0xe0000000, 0x1000)
		if !errors.Is(err, ErrMapping) {
			t.Fatalf("%s: expected ErrMapping; have %v", tt.name, err)
		}

		if !strings.Contains(err.Error(), "stale mapping") {
			t.Fatalf("%s: release failure not reported: %v", tt.name, err)
		}
	}
}

func TestMapPhysicalEmpty(t *testing.T) {
	h := newFakeHost()
	if _, err := MapPhysical(h, 0xe0000000, 0); !errors.Is(err, ErrMapping) {
		t.Fatalf("expected ErrMapping; have %v", err)
	}
	if len(h.calls) != 0 {
		t.Fatalf("unexpected host calls: %v", h.calls)
	}
}
