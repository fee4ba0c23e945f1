package ws

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestClient(buf int) *Client {
	return &Client{send: make(chan []byte, buf)}
}

func recvTimeout(t *testing.T, ch chan []byte) []byte {
	t.Helper()
	select {
	case p := <-ch:
		return p
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for payload")
		return nil
	}
}

func TestHub_BroadcastFIFOToAllSubscribers(t *testing.T) {
	hub := NewHub()
	g := hub.Get(1)

	a := newTestClient(16)
	b := newTestClient(16)
	g.register <- a
	g.register <- b
	require.Eventually(t, func() bool { return hub.Online(1) == 2 }, time.Second, 5*time.Millisecond)

	for i := 1; i <= 5; i++ {
		hub.Publish(1, []byte(fmt.Sprintf("event %d", i)))
	}

	// 每个订阅者都按发布顺序收到全部事件
	for _, c := range []*Client{a, b} {
		for i := 1; i <= 5; i++ {
			require.Equal(t, fmt.Sprintf("event %d", i), string(recvTimeout(t, c.send)))
		}
	}
}

func TestHub_GroupsAreIsolated(t *testing.T) {
	hub := NewHub()
	a := newTestClient(16)
	b := newTestClient(16)
	hub.Get(1).register <- a
	hub.Get(2).register <- b
	require.Eventually(t, func() bool { return hub.Online(1) == 1 && hub.Online(2) == 1 }, time.Second, 5*time.Millisecond)

	hub.Publish(1, []byte("only group 1"))

	require.Equal(t, "only group 1", string(recvTimeout(t, a.send)))
	select {
	case p := <-b.send:
		t.Fatalf("group 2 subscriber received foreign payload %q", p)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_PublishToAbsentGroupIsNoop(t *testing.T) {
	hub := NewHub()
	// 无人订阅的会话直接丢弃，不创建组
	hub.Publish(42, []byte("nobody home"))
	require.Equal(t, 0, hub.Online(42))
}

func TestHub_UnregisterIsIdempotent(t *testing.T) {
	hub := NewHub()
	g := hub.Get(1)

	c := newTestClient(16)
	g.register <- c
	require.Eventually(t, func() bool { return hub.Online(1) == 1 }, time.Second, 5*time.Millisecond)

	g.unregister <- c
	require.Eventually(t, func() bool { return hub.Online(1) == 0 }, time.Second, 5*time.Millisecond)

	// 重复注销与注销从未注册的客户端都不会 panic
	g.unregister <- c
	g.unregister <- newTestClient(16)

	// send 通道恰好被关闭一次
	_, ok := <-c.send
	require.False(t, ok)
}

func TestHub_SlowSubscriberIsDropped(t *testing.T) {
	hub := NewHub()
	g := hub.Get(1)

	slow := newTestClient(1)
	g.register <- slow
	require.Eventually(t, func() bool { return hub.Online(1) == 1 }, time.Second, 5*time.Millisecond)

	// 缓冲为 1，第二条事件打满后订阅者被剔除
	hub.Publish(1, []byte("one"))
	hub.Publish(1, []byte("two"))
	hub.Publish(1, []byte("three"))

	require.Eventually(t, func() bool { return hub.Online(1) == 0 }, time.Second, 5*time.Millisecond)
}
