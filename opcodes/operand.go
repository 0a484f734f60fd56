package opcodes

import (
	"encoding/binary"
	"math"
)

// Reader walks a flat instruction buffer, decoding little-endian
// inline operands the way the teacher's vm/operand_helper.go reads
// Zend-style operand arrays, retargeted to EmberVM's fixed-width
// trailing-operand encoding (spec.md §6).
type Reader struct {
	Code []byte
	PC   int
}

func NewReader(code []byte, pc int) *Reader { return &Reader{Code: code, PC: pc} }

func (r *Reader) OpAt(pc int) Op { return Op(r.Code[pc]) }

func (r *Reader) U8() uint8 {
	v := r.Code[r.PC]
	r.PC++
	return v
}

func (r *Reader) U16() uint16 {
	v := binary.LittleEndian.Uint16(r.Code[r.PC:])
	r.PC += 2
	return v
}

func (r *Reader) U32() uint32 {
	v := binary.LittleEndian.Uint32(r.Code[r.PC:])
	r.PC += 4
	return v
}

func (r *Reader) I32() int32 {
	return int32(r.U32())
}

func (r *Reader) U64() uint64 {
	v := binary.LittleEndian.Uint64(r.Code[r.PC:])
	r.PC += 8
	return v
}

func (r *Reader) I64() int64 {
	return int64(r.U64())
}

func (r *Reader) F64() float64 {
	bits := r.U64()
	return math.Float64frombits(bits)
}

// Writer appends little-endian operands to a growable instruction
// buffer, the compiler-side counterpart of Reader.
type Writer struct {
	Code []byte
}

func (w *Writer) Op(op Op) int {
	pos := len(w.Code)
	w.Code = append(w.Code, byte(op))
	return pos
}

func (w *Writer) U8(v uint8) { w.Code = append(w.Code, v) }

func (w *Writer) U16(v uint16) {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	w.Code = append(w.Code, buf[:]...)
}

func (w *Writer) U32(v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	w.Code = append(w.Code, buf[:]...)
}

func (w *Writer) I32(v int32) { w.U32(uint32(v)) }

func (w *Writer) U64(v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	w.Code = append(w.Code, buf[:]...)
}

func (w *Writer) I64(v int64) { w.U64(uint64(v)) }

func (w *Writer) F64(v float64) { w.U64(math.Float64bits(v)) }

// PatchI32 rewrites a previously emitted i32 operand at byte offset
// pos, used by the compiler to back-patch forward jump displacements
// once the jump target is known.
func (w *Writer) PatchI32(pos int, v int32) {
	binary.LittleEndian.PutUint32(w.Code[pos:pos+4], uint32(v))
}
