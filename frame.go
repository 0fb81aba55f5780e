package wspulse

import "fmt"

// FrameType identifies one discrete unit of transport-level data. The values
// mirror the RFC 6455 opcodes.
type FrameType byte

const (
	FrameData   FrameType = 1
	FrameBinary FrameType = 2
	FrameClose  FrameType = 8
	FramePing   FrameType = 9
	FramePong   FrameType = 10
)

func (t FrameType) Is(other FrameType) bool {
	return t == other
}

func (t FrameType) IsData() bool {
	return t.Is(FrameData) || t.Is(FrameBinary)
}

func (t FrameType) IsPing() bool {
	return t.Is(FramePing)
}

func (t FrameType) IsPong() bool {
	return t.Is(FramePong)
}

func (t FrameType) IsClose() bool {
	return t.Is(FrameClose)
}

func (t FrameType) IsControl() bool {
	return t.IsPing() || t.IsPong() || t.IsClose()
}

type Frame interface {
	Type() FrameType
	Data() []byte
	String() string
}

// ErrorFrame is a frame that also carries a failure, such as a close frame
// with its status code.
type ErrorFrame interface {
	Frame
	Error() string
	Code() int
}

type frame struct {
	FrameType FrameType
	FrameData []byte
}

func (f frame) Type() FrameType {
	return f.FrameType
}

func (f frame) Data() []byte {
	return f.FrameData
}

func (f frame) String() string {
	return fmt.Sprintf("Frame{type=%d,data=%s}",
		f.FrameType, f.FrameData)
}

type closeFrame struct {
	frame
	code int
}

func (f closeFrame) Code() int {
	return f.code
}

func (f closeFrame) String() string {
	return fmt.Sprintf("Frame{type=%d,code=%d,data=%s}",
		f.frame.Type(), f.code, f.frame.Data())
}

func (f closeFrame) Error() string {
	return f.String()
}

func NewFrame(ft FrameType, data []byte) Frame {
	return frame{FrameType: ft, FrameData: data}
}

func NewDataFrame(data []byte) Frame {
	return NewFrame(FrameData, data)
}

func NewBinaryFrame(data []byte) Frame {
	return NewFrame(FrameBinary, data)
}

func NewPingFrame(data []byte) Frame {
	return NewFrame(FramePing, data)
}

func NewPongFrame(data []byte) Frame {
	return NewFrame(FramePong, data)
}

func NewCloseFrame(code int, data []byte) ErrorFrame {
	return closeFrame{
		frame: frame{FrameType: FrameClose, FrameData: data},
		code:  code,
	}
}
