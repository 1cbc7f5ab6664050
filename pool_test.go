package ajp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_MessagePool_AllocFree(t *testing.T) {
	m := MessageAlloc(ServerToContainer)
	assert.Equal(t, ServerToContainer, m.Direction())
	assert.Equal(t, DefaultPacketSize, m.Capacity())
	m.AddString("leftover")
	m.End()
	MessageFree(m)

	m = MessageAlloc(ContainerToServer)
	assert.Equal(t, ContainerToServer, m.Direction())
	assert.Equal(t, PacketHeaderSize, m.Length())
	assert.Equal(t, PacketHeaderSize, m.Position())
	assert.Equal(t, []byte{0x41, 0x42, 0, 0}, m.Bytes())
	MessageFree(m)
}

func Test_MessagePool_Overflow(t *testing.T) {
	var msgs []*Message
	for len(messagePool) < cap(messagePool) {
		messagePool <- NewMessage(ServerToContainer, DefaultPacketSize)
	}
	for len(messagePool) > 0 {
		msgs = append(msgs, MessageAlloc(ServerToContainer))
	}
	assert.Equal(t, 0, len(messagePool))
	m := MessageAlloc(ServerToContainer)
	assert.NotNil(t, m)
	for _, msg := range msgs {
		MessageFree(msg)
	}
	assert.Equal(t, cap(messagePool), len(messagePool))
	MessageFree(m)
	assert.Equal(t, cap(messagePool), len(messagePool))
}

func Test_MessagePool_RejectsForeign(t *testing.T) {
	for len(messagePool) > 0 {
		<-messagePool
	}
	MessageFree(nil)
	MessageFree(NewCPing())
	MessageFree(NewMessage(ServerToContainer, PacketAlign))
	MessageFree(&NewDataMessage(0).Message)
	MessageFree(&NewForwardRequest(0).Message)
	assert.Equal(t, 0, len(messagePool))
	MessageFree(NewMessage(ContainerToServer, 0))
	assert.Equal(t, 1, len(messagePool))
}
