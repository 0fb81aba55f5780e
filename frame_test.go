package wspulse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrameTypePredicates(t *testing.T) {
	assert.True(t, FrameData.IsData())
	assert.True(t, FrameBinary.IsData())
	assert.True(t, FramePing.IsPing())
	assert.True(t, FramePong.IsPong())
	assert.True(t, FrameClose.IsClose())

	for _, ft := range []FrameType{FramePing, FramePong, FrameClose} {
		assert.True(t, ft.IsControl())
		assert.False(t, ft.IsData())
	}
}

func TestCloseFrameCarriesCode(t *testing.T) {
	f := NewCloseFrame(1001, []byte("going away"))

	assert.Equal(t, FrameClose, f.Type())
	assert.Equal(t, 1001, f.Code())
	assert.Equal(t, []byte("going away"), f.Data())
	assert.Contains(t, f.Error(), "1001")
}

func TestFrameConstructors(t *testing.T) {
	cases := map[FrameType]Frame{
		FrameData:   NewDataFrame([]byte("d")),
		FrameBinary: NewBinaryFrame([]byte("b")),
		FramePing:   NewPingFrame([]byte("p")),
		FramePong:   NewPongFrame([]byte("q")),
	}
	for want, f := range cases {
		assert.Equal(t, want, f.Type())
		assert.Len(t, f.Data(), 1)
	}
}
