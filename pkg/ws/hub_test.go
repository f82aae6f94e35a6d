package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHub_SendToRegisteredClients(t *testing.T) {
	h := NewHub(zap.NewNop())
	a := NewClient("user-1", nil)
	b := NewClient("user-1", nil)
	other := NewClient("user-2", nil)
	h.Register(a)
	h.Register(b)
	h.Register(other)

	assert.Equal(t, 2, h.Online("user-1"))

	delivered, err := h.SendJSON("user-1", map[string]int{"unread_count": 3})
	require.NoError(t, err)
	assert.True(t, delivered)

	assert.JSONEq(t, `{"unread_count":3}`, string(<-a.send))
	assert.JSONEq(t, `{"unread_count":3}`, string(<-b.send))
	assert.Len(t, other.send, 0, "其他用户不应收到消息")
}

func TestHub_SendWithoutClients(t *testing.T) {
	h := NewHub(zap.NewNop())
	assert.False(t, h.Send("nobody", []byte("x")))
	assert.False(t, h.Send("", []byte("x")))
}

func TestHub_FullBufferUnregisters(t *testing.T) {
	h := NewHub(zap.NewNop())
	c := NewClient("user-1", nil)
	h.Register(c)

	for i := 0; i < sendBuffer; i++ {
		require.True(t, h.Send("user-1", []byte("msg")))
	}

	assert.False(t, h.Send("user-1", []byte("overflow")))
	assert.Equal(t, 0, h.Online("user-1"), "缓冲区满的连接应被注销")
}

func TestHub_UnregisterIsIdempotent(t *testing.T) {
	h := NewHub(zap.NewNop())
	c := NewClient("user-1", nil)
	h.Register(c)

	h.Unregister(c)
	h.Unregister(c)

	assert.Equal(t, 0, h.Online("user-1"))
	assert.False(t, h.Send("user-1", []byte("x")))
}
