package magician

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"sync"

	"github.com/robotcell/dobot/serial"
)

// fakeArm is a scripted Magician on the other end of the serial port. It answers every frame written to it and
// reports a read timeout when it has nothing to say.
type fakeArm struct {
	mu       sync.Mutex
	out      bytes.Buffer
	requests []Packet

	pose   [8]float32
	alarms []byte

	lastQueued uint64
	executed   uint64
	// stepwise executes one queued command per index poll instead of all of them.
	stepwise bool
	// frozen never executes queued commands.
	frozen bool
	// silent never answers.
	silent bool
	closed bool
}

func newFakeArm() *fakeArm {
	return &fakeArm{alarms: make([]byte, 16)}
}

// install makes serial.Open return the fake and returns a function restoring it.
func (f *fakeArm) install() func() {
	old := serial.Open
	serial.Open = func(string, serial.Options) (io.ReadWriteCloser, error) {
		return f, nil
	}
	return func() { serial.Open = old }
}

func (f *fakeArm) Write(p []byte) (int, error) {
	pkt, err := newPacketReader(bytes.NewReader(p)).ReadPacket()
	if err != nil {
		return 0, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, pkt)
	if f.silent {
		return len(p), nil
	}
	resp, err := f.respond(pkt).MarshalBinary()
	if err != nil {
		return 0, err
	}
	f.out.Write(resp)
	return len(p), nil
}

func (f *fakeArm) respond(pkt Packet) Packet {
	resp := Packet{ID: pkt.ID, Ctrl: pkt.Ctrl}
	switch {
	case pkt.IsQueued():
		f.lastQueued++
		resp.Params = binary.LittleEndian.AppendUint64(nil, f.lastQueued)
	case pkt.ID == CmdGetPose:
		for _, v := range f.pose {
			resp.Params = binary.LittleEndian.AppendUint32(resp.Params, math.Float32bits(v))
		}
	case pkt.ID == CmdGetAlarmsState:
		resp.Params = append(resp.Params, f.alarms...)
	case pkt.ID == CmdGetQueuedCmdCurrentIndex:
		switch {
		case f.frozen:
		case f.stepwise && f.executed < f.lastQueued:
			f.executed++
		default:
			f.executed = f.lastQueued
		}
		resp.Params = binary.LittleEndian.AppendUint64(nil, f.executed)
	}
	return resp
}

func (f *fakeArm) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.out.Len() == 0 {
		return 0, nil
	}
	return f.out.Read(p)
}

func (f *fakeArm) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeArm) sent() []Packet {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Packet(nil), f.requests...)
}

func (f *fakeArm) sentIDs() []CommandID {
	var ids []CommandID
	for _, p := range f.sent() {
		ids = append(ids, p.ID)
	}
	return ids
}

func (f *fakeArm) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = nil
}
