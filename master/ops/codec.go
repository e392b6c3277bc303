package ops

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/rangedb/htcore/corelib"
)

// writer accumulates a payload using the vstr/u32/u64/bool primitives spec §6
// describes. There is no ecosystem wire-format library in the teacher's stack
// for this narrow concern (see DESIGN.md); encoding/binary is stdlib's
// standard tool for exactly this.
type writer struct{ buf bytes.Buffer }

func (w *writer) u8(v uint8)   { w.buf.WriteByte(v) }
func (w *writer) u32(v uint32) { var b [4]byte; binary.BigEndian.PutUint32(b[:], v); w.buf.Write(b[:]) }
func (w *writer) u64(v uint64) { var b [8]byte; binary.BigEndian.PutUint64(b[:], v); w.buf.Write(b[:]) }
func (w *writer) boolean(v bool) {
	if v {
		w.u8(1)
	} else {
		w.u8(0)
	}
}
func (w *writer) vstr(s string) {
	w.u32(uint32(len(s)))
	w.buf.WriteString(s)
}
func (w *writer) vstrSlice(ss []string) {
	w.u32(uint32(len(ss)))
	for _, s := range ss {
		w.vstr(s)
	}
}
func (w *writer) bytes() []byte { return w.buf.Bytes() }

type reader struct {
	r   *bytes.Reader
	err error
}

func newReader(data []byte) *reader { return &reader{r: bytes.NewReader(data)} }

func (r *reader) u8() uint8 {
	if r.err != nil {
		return 0
	}
	b, err := r.r.ReadByte()
	if err != nil {
		r.err = err
	}
	return b
}

func (r *reader) u32() uint32 {
	if r.err != nil {
		return 0
	}
	var b [4]byte
	if _, err := io.ReadFull(r.r, b[:]); err != nil {
		r.err = err
		return 0
	}
	return binary.BigEndian.Uint32(b[:])
}

func (r *reader) u64() uint64 {
	if r.err != nil {
		return 0
	}
	var b [8]byte
	if _, err := io.ReadFull(r.r, b[:]); err != nil {
		r.err = err
		return 0
	}
	return binary.BigEndian.Uint64(b[:])
}

func (r *reader) boolean() bool { return r.u8() != 0 }

func (r *reader) vstr() string {
	if r.err != nil {
		return ""
	}
	n := r.u32()
	if r.err != nil {
		return ""
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r.r, b); err != nil {
		r.err = err
		return ""
	}
	return string(b)
}

func (r *reader) vstrSlice() []string {
	n := r.u32()
	out := make([]string, 0, n)
	for i := uint32(0); i < n && r.err == nil; i++ {
		out = append(out, r.vstr())
	}
	return out
}

// EncodePayload serializes op's kind-specific payload per the spec §6 table.
// The common prefix (name, state_text) precedes every representative payload.
func EncodePayload(op *Operation) ([]byte, error) {
	w := &writer{}
	switch p := op.Payload.(type) {
	case *CreateTablePayload:
		w.vstr(p.Name)
		w.vstr(op.State)
		w.vstr(p.Name)
		w.vstr(p.Schema)
		w.vstr(p.TableID)
		w.vstr(p.Location)
		w.u8(uint8(p.Parts))
	case *DropTablePayload:
		w.vstr(p.Name)
		w.vstr(op.State)
		w.boolean(p.IfExists)
		w.vstr(p.Name)
		w.vstr(p.TableID)
		w.vstrSlice(p.Completed)
		w.vstrSlice(p.Servers)
		w.u8(uint8(p.Parts))
	case *AlterTablePayload:
		w.vstr(p.Name)
		w.vstr(op.State)
		w.vstr(p.Name)
		w.vstr(p.Schema)
		w.vstr(p.TableID)
		w.vstrSlice(p.Completed)
		w.vstrSlice(p.Servers)
	case *RecreateIndexTablesPayload:
		w.vstr(p.TableName)
		w.vstr(op.State)
		w.vstr(p.TableName)
		w.u8(uint8(p.Parts))
		w.u64(p.SubopHash)
		w.u32(uint32(p.Step))
	case *SuspendMaintenancePayload:
		w.vstr(p.Name)
		w.vstr(op.State)
		w.vstr(p.Name)
		w.vstr(p.TableID)
		w.vstr(p.Label)
		w.vstrSlice(p.Servers)
		w.vstrSlice(p.Completed)
	case *ToggleTableMaintenancePayload:
		w.vstr(p.Name)
		w.vstr(op.State)
		w.boolean(p.Enable)
	case *RecoverPayload:
		w.vstr(p.Location)
		w.vstr(op.State)
		w.u64(uint64(p.BarrierUnixMilli))
	case *RegisterServerPayload:
		w.vstr(p.Location)
		w.vstr(op.State)
	case *RegisterServerBlockerPayload:
		w.vstr(p.Location)
		w.vstr(op.State)
	case *StatusPayload:
		w.vstr("")
		w.vstr(op.State)
	case *TimedBarrierPayload:
		w.vstr(p.Label)
		w.vstr(op.State)
		w.u64(uint64(p.UntilUnixMilli))
	default:
		return nil, corelib.New(corelib.InvalidOperation, "unknown payload type for encode")
	}
	return w.bytes(), nil
}

// DecodePayload reconstructs an Operation of the given kind from a payload
// previously produced by EncodePayload.
func DecodePayload(id uint64, kind Kind, data []byte) (*Operation, error) {
	r := newReader(data)
	op := &Operation{
		ID:            id,
		Kind:          kind,
		HashCode:      id,
		Dependencies:  make(map[string]struct{}),
		Obstructions:  make(map[string]struct{}),
		Exclusivities: make(map[string]struct{}),
	}
	switch kind {
	case CreateTable:
		_ = r.vstr()
		op.State = r.vstr()
		p := &CreateTablePayload{}
		p.Name = r.vstr()
		p.Schema = r.vstr()
		p.TableID = r.vstr()
		p.Location = r.vstr()
		p.Parts = TableParts(r.u8())
		op.Payload = p
	case DropTable:
		_ = r.vstr()
		op.State = r.vstr()
		p := &DropTablePayload{}
		p.IfExists = r.boolean()
		p.Name = r.vstr()
		p.TableID = r.vstr()
		p.Completed = r.vstrSlice()
		p.Servers = r.vstrSlice()
		p.Parts = TableParts(r.u8())
		op.Payload = p
	case AlterTable:
		_ = r.vstr()
		op.State = r.vstr()
		p := &AlterTablePayload{}
		p.Name = r.vstr()
		p.Schema = r.vstr()
		p.TableID = r.vstr()
		p.Completed = r.vstrSlice()
		p.Servers = r.vstrSlice()
		op.Payload = p
	case RecreateIndexTables:
		_ = r.vstr()
		op.State = r.vstr()
		p := &RecreateIndexTablesPayload{}
		p.TableName = r.vstr()
		p.Parts = TableParts(r.u8())
		p.SubopHash = r.u64()
		p.Step = int(r.u32())
		op.Payload = p
	case SuspendMaintenance:
		_ = r.vstr()
		op.State = r.vstr()
		p := &SuspendMaintenancePayload{}
		p.Name = r.vstr()
		p.TableID = r.vstr()
		p.Label = r.vstr()
		p.Servers = r.vstrSlice()
		p.Completed = r.vstrSlice()
		op.Payload = p
	case ToggleTableMaintenance:
		p := &ToggleTableMaintenancePayload{}
		p.Name = r.vstr()
		op.State = r.vstr()
		p.Enable = r.boolean()
		op.Payload = p
	case Recover:
		p := &RecoverPayload{}
		p.Location = r.vstr()
		op.State = r.vstr()
		p.BarrierUnixMilli = int64(r.u64())
		op.Payload = p
	case RegisterServer:
		p := &RegisterServerPayload{}
		p.Location = r.vstr()
		op.State = r.vstr()
		op.Payload = p
	case RegisterServerBlocker:
		p := &RegisterServerBlockerPayload{}
		p.Location = r.vstr()
		op.State = r.vstr()
		op.Payload = p
	case Status:
		_ = r.vstr()
		op.State = r.vstr()
		op.Payload = &StatusPayload{}
	case TimedBarrier:
		p := &TimedBarrierPayload{}
		p.Label = r.vstr()
		op.State = r.vstr()
		p.UntilUnixMilli = int64(r.u64())
		op.Payload = p
	default:
		return nil, corelib.New(corelib.InvalidOperation, "unknown kind for decode")
	}
	if r.err != nil {
		return nil, corelib.Wrap(corelib.External, "decode operation payload", r.err)
	}
	return op, nil
}
