package ajp

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_NewMessage_Capacity(t *testing.T) {
	assert.Equal(t, DefaultPacketSize, NewMessage(ServerToContainer, 0).Capacity())
	assert.Equal(t, PacketAlign, NewMessage(ServerToContainer, 1).Capacity())
	assert.Equal(t, 2*PacketAlign, NewMessage(ServerToContainer, PacketAlign+1).Capacity())
	assert.Equal(t, MaxPacketSize, NewMessage(ServerToContainer, 1<<20).Capacity())
}

func Test_Message_ResetWritesHeader(t *testing.T) {
	m := NewMessage(ContainerToServer, 0)
	assert.Equal(t, []byte{0x41, 0x42, 0x00, 0x00}, m.Bytes())
	assert.Equal(t, PacketHeaderSize, m.Position())
	assert.Equal(t, PacketHeaderSize, m.Length())
	assert.Equal(t, 0, m.PayloadLength())
	assert.Equal(t, PrefixCode(0), m.Code())

	fr := NewForwardRequest(0)
	assert.Equal(t, []byte{0x12, 0x34, 0x00, 0x00}, fr.buf[:4])
	assert.Equal(t, byte(ForwardRequestCode), fr.buf[SecureOffset])
	assert.Equal(t, SecureOffset+1, fr.Position())
}

func Test_Message_LengthField(t *testing.T) {
	m := NewMessage(ServerToContainer, 0)
	require.NoError(t, m.AddShort(7))
	require.NoError(t, m.AddString("hi"))
	m.End()
	assert.Equal(t, PacketHeaderSize+2+5, m.Length())
	n, err := Uint16(m.Bytes(), 2)
	assert.NoError(t, err)
	assert.Equal(t, m.Length()-PacketHeaderSize, n)
	assert.Equal(t, n, m.PayloadLength())
}

func Test_Message_PrimitivesRoundTrip(t *testing.T) {
	m := NewMessage(ServerToContainer, 0)
	require.NoError(t, m.AddByte(0x7f))
	require.NoError(t, m.AddShort(0xbeef))
	require.NoError(t, m.AddBoolean(true))
	require.NoError(t, m.AddString("hello"))
	require.NoError(t, m.AddBytes([]byte{1, 2, 3}))
	require.NoError(t, m.AddNullString())
	m.End()

	require.NoError(t, m.Seek(PacketHeaderSize))
	b, err := m.GetByte()
	assert.NoError(t, err)
	assert.Equal(t, byte(0x7f), b)
	v, err := m.PeekShort()
	assert.NoError(t, err)
	assert.Equal(t, 0xbeef, v)
	v, err = m.GetShort()
	assert.NoError(t, err)
	assert.Equal(t, 0xbeef, v)
	ok, err := m.GetBoolean()
	assert.NoError(t, err)
	assert.True(t, ok)
	s, err := m.GetString()
	assert.NoError(t, err)
	assert.Equal(t, "hello", s)
	p, err := m.GetBytes()
	assert.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, p)
	s, err = m.GetString()
	assert.NoError(t, err)
	assert.Equal(t, "", s)
	assert.Equal(t, m.Length(), m.Position())

	_, err = m.GetByte()
	assert.True(t, IsMalformed(err))
}

func Test_Message_PeekDoesNotAdvance(t *testing.T) {
	m := NewMessage(ServerToContainer, 0)
	m.AddByte(9)
	m.End()
	m.Rewind()
	for i := 0; i < 3; i++ {
		b, err := m.PeekByte()
		assert.NoError(t, err)
		assert.Equal(t, byte(9), b)
	}
	assert.Equal(t, PacketHeaderSize, m.Position())
}

func Test_Message_OverflowBoundary(t *testing.T) {
	m := NewMessage(ServerToContainer, PacketAlign)
	avail := m.Available()
	assert.Equal(t, PacketAlign-PacketHeaderSize, avail)

	assert.NoError(t, m.AddBytes(make([]byte, avail-3)))
	assert.Equal(t, m.Capacity(), m.Position())

	m.Reset()
	before := append([]byte(nil), m.buf...)
	err := m.AddBytes(bytes.Repeat([]byte{0xaa}, avail-2))
	assert.Equal(t, OverflowError{Size: avail + 1, Available: avail}, errors.Cause(err))
	assert.Equal(t, PacketHeaderSize, m.Position())
	assert.Equal(t, before, m.buf)
}

func Test_Message_OverflowEachPrimitive(t *testing.T) {
	m := NewMessage(ServerToContainer, PacketAlign)
	m.pos = m.Capacity()
	assert.True(t, IsOverflow(m.AddByte(1)))
	assert.True(t, IsOverflow(m.AddBoolean(true)))
	m.pos = m.Capacity() - 1
	assert.True(t, IsOverflow(m.AddShort(1)))
	assert.True(t, IsOverflow(m.AddString("")))
	assert.True(t, IsOverflow(m.Mark()))
	assert.Equal(t, m.Capacity()-1, m.Position())
}

func Test_Message_HasRoom(t *testing.T) {
	m := NewMessage(ServerToContainer, PacketAlign)
	assert.True(t, m.hasRoom(0))
	assert.True(t, m.hasRoom(m.Available()))
	assert.False(t, m.hasRoom(m.Available()+1))
}

func Test_Message_MarkCount(t *testing.T) {
	for _, want := range []int{0, 1, 5, 255} {
		t.Run(fmt.Sprint(want), func(t *testing.T) {
			fr := NewForwardRequest(MaxPacketSize)
			markAt := fr.Position()
			require.NoError(t, fr.Mark())
			for i := 0; i < want; i++ {
				require.NoError(t, fr.AddHeader(fmt.Sprintf("X-H%d", i), "v"))
			}
			assert.Equal(t, want, fr.Count())
			fr.Unmark()
			n, err := Uint16(fr.buf, markAt)
			assert.NoError(t, err)
			assert.Equal(t, want, n)
		})
	}
}

func Test_Message_NestedMark(t *testing.T) {
	m := NewMessage(ServerToContainer, 0)
	assert.NoError(t, m.Mark())
	assert.Equal(t, ErrNestedMark, errors.Cause(m.Mark()))
	m.Unmark()
	assert.NoError(t, m.Mark())
}

func Test_Message_UnmarkWithoutMark(t *testing.T) {
	m := NewMessage(ServerToContainer, 0)
	m.AddShort(0x1111)
	m.Inc()
	m.Unmark()
	v, _ := Uint16(m.buf, PacketHeaderSize)
	assert.Equal(t, 0x1111, v)
}

func Test_Message_EncryptionFlag(t *testing.T) {
	fr := NewForwardRequest(0)
	fr.AddByte(byte(2))
	fr.End()
	assert.False(t, fr.EncryptionFlag())
	assert.NoError(t, fr.SetEncryptionFlag(true))
	assert.Equal(t, byte(0x82), fr.buf[SecureOffset])
	assert.True(t, fr.EncryptionFlag())
	assert.Equal(t, ForwardRequestCode, fr.Code())
	assert.NoError(t, fr.SetEncryptionFlag(false))
	assert.Equal(t, byte(0x02), fr.buf[SecureOffset])

	dm := NewDataMessage(0)
	dm.AddData([]byte("abc"))
	assert.Equal(t, ErrNoPrefixCode, errors.Cause(dm.SetEncryptionFlag(true)))
	assert.False(t, dm.EncryptionFlag())
	assert.Equal(t, PrefixCode(0), dm.Code())
}

func Test_Message_HeaderNames(t *testing.T) {
	m := NewMessage(ServerToContainer, 0)
	m.AddShort(HeaderCodePrefix | 0x0B)
	m.AddString("example.com")
	m.AddString("X-Custom")
	m.AddString("val")
	m.End()
	m.Rewind()

	name, err := m.GetHeaderName()
	assert.NoError(t, err)
	assert.Equal(t, "Host", name)
	m.GetString()
	name, err = m.GetHeaderName()
	assert.NoError(t, err)
	assert.Equal(t, "X-Custom", name)

	m.Rewind()
	m.SetDirection(ContainerToServer)
	name, err = m.GetHeaderName()
	assert.NoError(t, err)
	assert.Equal(t, "WWW-Authenticate", name)
}

func Test_Message_HeaderNameOutOfRange(t *testing.T) {
	m := NewMessage(ServerToContainer, 0)
	m.AddShort(HeaderCodePrefix | 0xfe)
	m.End()
	m.Rewind()
	_, err := m.GetRequestHeaderName()
	assert.IsType(t, OutOfRangeError{}, errors.Cause(err))
	assert.Equal(t, PacketHeaderSize, m.Position())
}

func Test_Message_AddHeaderIsAtomic(t *testing.T) {
	fr := NewForwardRequest(PacketAlign)
	require.NoError(t, fr.Mark())
	require.NoError(t, fr.AddBytes(make([]byte, 1000)))
	pos := fr.Position()
	err := fr.AddHeader("X-Custom", strings.Repeat("v", fr.Available()))
	assert.True(t, IsOverflow(err))
	assert.Equal(t, pos, fr.Position())
	assert.Equal(t, 0, fr.Count())
}

func Test_Message_Clear(t *testing.T) {
	m := NewMessage(ServerToContainer, PacketAlign)
	m.AddString("stale")
	m.End()
	m.Clear()
	assert.Equal(t, []byte{0x12, 0x34, 0, 0}, m.buf[:4])
	assert.Equal(t, make([]byte, PacketAlign-4), m.buf[4:])
	assert.Equal(t, PacketHeaderSize, m.Length())
}

func Test_Message_Seek(t *testing.T) {
	m := NewMessage(ServerToContainer, 0)
	m.AddShort(1)
	m.End()
	assert.NoError(t, m.Seek(m.Length()))
	assert.True(t, IsMalformed(m.Seek(m.Length()+1)))
	assert.True(t, IsMalformed(m.Seek(-1)))
}

func Test_CopyMessage(t *testing.T) {
	src := NewMessage(ContainerToServer, 0)
	src.AddBytes(make([]byte, 2000))
	src.End()

	small := NewMessage(ServerToContainer, PacketAlign)
	assert.True(t, IsOverflow(CopyMessage(small, src)))

	dst := NewMessage(ServerToContainer, 0)
	assert.NoError(t, CopyMessage(dst, src))
	assert.Equal(t, src.Bytes(), dst.Bytes())
	assert.Equal(t, src.Position(), dst.Position())
	assert.Equal(t, ContainerToServer, dst.Direction())
}

func Test_Message_ReadFromWriteTo(t *testing.T) {
	src := NewSendHeaders(0)
	require.NoError(t, src.Encode(&Response{Status: 200, Reason: "OK", Headers: []Header{{Name: "Content-Type", Value: "text/plain"}}}))

	var buf bytes.Buffer
	n, err := src.WriteTo(&buf)
	assert.NoError(t, err)
	assert.Equal(t, int64(src.Length()), n)

	m := NewMessage(ServerToContainer, 0)
	n, err = m.ReadFrom(&buf)
	assert.NoError(t, err)
	assert.Equal(t, int64(src.Length()), n)
	assert.Equal(t, ContainerToServer, m.Direction())
	assert.Equal(t, src.Bytes(), m.Bytes())
	assert.Equal(t, PacketHeaderSize, m.Position())
	assert.Equal(t, SendHeadersCode, m.Code())

	_, err = m.ReadFrom(&buf)
	assert.Equal(t, io.EOF, errors.Cause(err))
}

func Test_Message_ReadFromBadMagic(t *testing.T) {
	m := NewMessage(ServerToContainer, 0)
	_, err := m.ReadFrom(bytes.NewReader([]byte{0x00, 0x01, 0x00, 0x00}))
	assert.Equal(t, MagicError{Magic: 0x0001}, errors.Cause(err))
}

func Test_Message_ReadFromTooLarge(t *testing.T) {
	m := NewMessage(ServerToContainer, PacketAlign)
	_, err := m.ReadFrom(bytes.NewReader([]byte{0x12, 0x34, 0x10, 0x00}))
	assert.True(t, IsMalformed(err))
}

func Test_Message_ReadFromTruncated(t *testing.T) {
	m := NewMessage(ServerToContainer, 0)
	_, err := m.ReadFrom(bytes.NewReader([]byte{0x12, 0x34, 0x00, 0x0a, 1, 2, 3}))
	assert.Equal(t, io.ErrUnexpectedEOF, errors.Cause(err))
	_, err = m.ReadFrom(bytes.NewReader([]byte{0x12, 0x34}))
	assert.Equal(t, io.ErrUnexpectedEOF, errors.Cause(err))
}

func Test_Message_WriteToIncomplete(t *testing.T) {
	m := &Message{buf: make([]byte, PacketAlign)}
	_, err := m.WriteTo(io.Discard)
	assert.True(t, IsMalformed(err))
}

func Test_Message_String(t *testing.T) {
	assert.Equal(t, "[Message 1234 1 (5) 0a]", NewCPing().String())
	assert.Equal(t, "[Message 4142 0 (4) ]", NewMessage(ContainerToServer, 0).String())
	var m *Message
	assert.Equal(t, "[Message nil]", m.String())

	big := NewMessage(ServerToContainer, 0)
	big.AddBytes(make([]byte, 100))
	big.End()
	assert.True(t, strings.HasSuffix(big.String(), "...]"))
}

func Test_Message_LiteralHeaderNameCollidesWithTag(t *testing.T) {
	fr := NewForwardRequest(MaxPacketSize)
	require.NoError(t, fr.Mark())
	pos := fr.Position()
	err := fr.AddHeader(strings.Repeat("x", 0xA00B), "v")
	assert.Equal(t, HeaderNameError{Length: 0xA00B}, errors.Cause(err))
	assert.Equal(t, pos, fr.Position())
	assert.Equal(t, 0, fr.Count())

	sh := NewSendHeaders(MaxPacketSize)
	err = sh.AddHeader(strings.Repeat("y", 0xA000), "v")
	assert.IsType(t, HeaderNameError{}, errors.Cause(err))
}

func Test_Message_LongLiteralHeaderName(t *testing.T) {
	name := strings.Repeat("x", 0x9fff)
	fr := NewForwardRequest(MaxPacketSize)
	require.NoError(t, fr.AddHeader(name, "v"))
	fr.Message.End()
	require.NoError(t, fr.Seek(SecureOffset+1))
	got, err := fr.GetRequestHeaderName()
	assert.NoError(t, err)
	assert.Equal(t, name, got)
}
