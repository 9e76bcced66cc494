package magician

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/pkg/errors"
)

const (
	headerByte = 0xAA
	// maxPayload is the largest id+ctrl+params length the length byte can carry.
	maxPayload = 0xFF
)

// CommandID identifies a firmware command.
type CommandID uint8

// The firmware commands used by the driver.
const (
	CmdGetPose                   CommandID = 10
	CmdGetAlarmsState            CommandID = 20
	CmdClearAllAlarmsState       CommandID = 21
	CmdSetHOMECmd                CommandID = 31
	CmdSetEndEffectorSuctionCup  CommandID = 62
	CmdSetPTPCoordinateParams    CommandID = 81
	CmdSetPTPCommonParams        CommandID = 83
	CmdSetPTPCmd                 CommandID = 84
	CmdSetQueuedCmdStartExec     CommandID = 240
	CmdSetQueuedCmdStopExec      CommandID = 241
	CmdSetQueuedCmdForceStopExec CommandID = 242
	CmdSetQueuedCmdClear         CommandID = 245
	CmdGetQueuedCmdCurrentIndex  CommandID = 246
)

func (c CommandID) String() string {
	switch c {
	case CmdGetPose:
		return "GetPose"
	case CmdGetAlarmsState:
		return "GetAlarmsState"
	case CmdClearAllAlarmsState:
		return "ClearAllAlarmsState"
	case CmdSetHOMECmd:
		return "SetHOMECmd"
	case CmdSetEndEffectorSuctionCup:
		return "SetEndEffectorSuctionCup"
	case CmdSetPTPCoordinateParams:
		return "SetPTPCoordinateParams"
	case CmdSetPTPCommonParams:
		return "SetPTPCommonParams"
	case CmdSetPTPCmd:
		return "SetPTPCmd"
	case CmdSetQueuedCmdStartExec:
		return "SetQueuedCmdStartExec"
	case CmdSetQueuedCmdStopExec:
		return "SetQueuedCmdStopExec"
	case CmdSetQueuedCmdForceStopExec:
		return "SetQueuedCmdForceStopExec"
	case CmdSetQueuedCmdClear:
		return "SetQueuedCmdClear"
	case CmdGetQueuedCmdCurrentIndex:
		return "GetQueuedCmdCurrentIndex"
	default:
		return fmt.Sprintf("Cmd(%d)", uint8(c))
	}
}

// Control flags of a packet.
const (
	CtrlRead   byte = 0x00
	CtrlWrite  byte = 0x01
	CtrlQueued byte = 0x02
)

// ErrReadTimeout is returned when the arm did not answer before the port's read timeout.
var ErrReadTimeout = errors.New("timed out waiting for a response from the arm")

// Packet is one protocol frame: 0xAA 0xAA len id ctrl params... checksum.
type Packet struct {
	ID     CommandID
	Ctrl   byte
	Params []byte
}

// IsWrite reports whether the packet sets state.
func (p Packet) IsWrite() bool {
	return p.Ctrl&CtrlWrite != 0
}

// IsQueued reports whether the packet is executed through the command queue.
func (p Packet) IsQueued() bool {
	return p.Ctrl&CtrlQueued != 0
}

func (p Packet) checksum() byte {
	sum := byte(p.ID) + p.Ctrl
	for _, b := range p.Params {
		sum += b
	}
	return -sum
}

// MarshalBinary frames the packet.
func (p Packet) MarshalBinary() ([]byte, error) {
	if len(p.Params)+2 > maxPayload {
		return nil, errors.Errorf("packet %v params too long (%d bytes)", p.ID, len(p.Params))
	}
	buf := make([]byte, 0, len(p.Params)+6)
	buf = append(buf, headerByte, headerByte, byte(len(p.Params)+2), byte(p.ID), p.Ctrl)
	buf = append(buf, p.Params...)
	return append(buf, p.checksum()), nil
}

// timeoutReader turns the (0, nil) reads a serial port returns on timeout into ErrReadTimeout.
type timeoutReader struct {
	r io.Reader
}

func (tr timeoutReader) Read(p []byte) (int, error) {
	n, err := tr.r.Read(p)
	if n == 0 && err == nil && len(p) > 0 {
		return 0, ErrReadTimeout
	}
	return n, err
}

// packetReader decodes frames from a byte stream, skipping garbage before a header.
type packetReader struct {
	r *bufio.Reader
}

func newPacketReader(r io.Reader) *packetReader {
	return &packetReader{r: bufio.NewReader(timeoutReader{r: r})}
}

// ReadPacket reads the next well formed frame.
func (pr *packetReader) ReadPacket() (Packet, error) {
	if err := pr.syncHeader(); err != nil {
		return Packet{}, err
	}
	length, err := pr.r.ReadByte()
	if err != nil {
		return Packet{}, err
	}
	if length < 2 {
		return Packet{}, errors.Errorf("invalid packet length %d", length)
	}
	body := make([]byte, int(length)+1)
	if _, err := io.ReadFull(pr.r, body); err != nil {
		return Packet{}, err
	}
	p := Packet{ID: CommandID(body[0]), Ctrl: body[1], Params: body[2:length]}
	if got, want := body[length], p.checksum(); got != want {
		return Packet{}, errors.Errorf("packet %v checksum mismatch: got 0x%02X want 0x%02X", p.ID, got, want)
	}
	return p, nil
}

func (pr *packetReader) syncHeader() error {
	seen := 0
	for seen < 2 {
		b, err := pr.r.ReadByte()
		if err != nil {
			return err
		}
		if b == headerByte {
			seen++
		} else {
			seen = 0
		}
	}
	return nil
}

// Reset drops buffered bytes left from an interrupted exchange.
func (pr *packetReader) Reset(r io.Reader) {
	pr.r.Reset(timeoutReader{r: r})
}

func appendFloat32s(buf []byte, vals ...float64) []byte {
	for _, v := range vals {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(float32(v)))
	}
	return buf
}

func decodeFloat32s(params []byte, n int) ([]float64, error) {
	if len(params) < 4*n {
		return nil, errors.Errorf("expected %d float32 values, got %d bytes", n, len(params))
	}
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(params[4*i:])))
	}
	return vals, nil
}

func decodeQueuedIndex(params []byte) (uint64, error) {
	if len(params) < 8 {
		return 0, errors.Errorf("expected a queued command index, got %d bytes", len(params))
	}
	return binary.LittleEndian.Uint64(params), nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
