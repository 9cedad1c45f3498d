package dpmi

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

var endian = binary.LittleEndian

// Record stages a fixed-layout value of type T in conventional memory.
//
// Push copies Value into the block before a real mode call; Pull copies the
// block back into Value afterwards. The bytes are not interpreted.
// T must have a fixed binary size (see encoding/binary).
type Record[T any] struct {
	Value T
	block *DOSMemory
}

// NewRecord allocates a block large enough to hold a T.
func NewRecord[T any](host Host) (*Record[T], error) {
	var r Record[T]

	size := binary.Size(&r.Value)
	if size <= 0 {
		return nil, errors.Errorf("dpmi: %T has no fixed binary layout", r.Value)
	}

	block, err := AllocDOSMemory(host, uint32(size))
	if err != nil {
		return nil, err
	}

	r.block = block
	return &r, nil
}

// Push copies Value into conventional memory.
func (r *Record[T]) Push() error {
	var buf bytes.Buffer
	buf.Grow(int(r.block.Size()))

	if err := binary.Write(&buf, endian, &r.Value); err != nil {
		return err
	}

	return r.block.Put(buf.Bytes(), 0)
}

// Pull copies the contents of conventional memory back into Value
// and returns it.
func (r *Record[T]) Pull() (*T, error) {
	p := make([]byte, r.block.Size())
	if err := r.block.Get(p, 0); err != nil {
		return nil, err
	}

	if err := binary.Read(bytes.NewReader(p), endian, &r.Value); err != nil {
		return nil, err
	}

	return &r.Value, nil
}

// Segment returns the real mode segment of the staging block.
func (r *Record[T]) Segment() uint16 {
	return r.block.Segment()
}

// Free releases the staging block. Value stays intact.
func (r *Record[T]) Free() error {
	return r.block.Free()
}
