package hub_test

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.clipscout.dev/clipscout/internal/bundle"
	"go.clipscout.dev/clipscout/internal/hub"
	"go.clipscout.dev/clipscout/internal/message"
	"go.clipscout.dev/clipscout/internal/wire"
)

// dialHub connects a fake monitor to h over a pipe and returns its end.
func dialHub(t *testing.T, h *hub.Hub) *wire.Conn {
	t.Helper()
	client, server := net.Pipe()
	go h.Handle(server, nil)
	c := wire.New(client, nil)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func readMsg(t *testing.T, c *wire.Conn) *message.Message {
	t.Helper()
	c.SetReadDeadline(time.Second)
	payload, err := c.ReadFrame()
	require.NoError(t, err)
	msg, err := message.Decode(payload)
	require.NoError(t, err)
	return msg
}

func sendMsg(t *testing.T, c *wire.Conn, msg *message.Message) {
	t.Helper()
	payload, err := msg.Encode()
	require.NoError(t, err)
	require.NoError(t, c.WriteFrame(payload))
}

func expectNothing(t *testing.T, c *wire.Conn) {
	t.Helper()
	c.SetReadDeadline(100 * time.Millisecond)
	_, err := c.ReadFrame()
	require.Error(t, err, "expected no frame")
}

func TestGreetingCarriesBaseSettings(t *testing.T) {
	h := hub.New(message.Settings{
		Formats:        message.Str("text/plain"),
		CheckClipboard: message.Bool(true),
	})
	c := dialHub(t, h)

	msg := readMsg(t, c)
	require.True(t, msg.IsSettings())
	require.NotNil(t, msg.Settings.Formats)
	assert.Equal(t, "text/plain", *msg.Settings.Formats)
	require.NotNil(t, msg.Settings.CheckClipboard)
	assert.True(t, *msg.Settings.CheckClipboard)
	assert.Nil(t, msg.Settings.LastDigest, "no bundle yet, no seed")
}

func TestGreetingSeedsDigestFromLatest(t *testing.T) {
	h := hub.New(message.Settings{CheckClipboard: message.Bool(true)})

	first := dialHub(t, h)
	readMsg(t, first) // greeting
	items := bundle.NewText("already known")
	sendMsg(t, first, message.NewReport("mon-a", items))

	require.Eventually(t, func() bool {
		return h.Status().LatestSource == "mon-a"
	}, time.Second, 5*time.Millisecond)

	second := dialHub(t, h)
	msg := readMsg(t, second)
	require.True(t, msg.IsSettings())
	require.NotNil(t, msg.Settings.LastDigest)
	assert.Equal(t, bundle.Digest(items, nil), *msg.Settings.LastDigest)
}

func TestFanOutExcludesOrigin(t *testing.T) {
	h := hub.New(message.Settings{})
	a := dialHub(t, h)
	b := dialHub(t, h)
	readMsg(t, a)
	readMsg(t, b)

	report := message.NewReport("mon-a", bundle.NewText("shared"))
	sendMsg(t, a, report)

	got := readMsg(t, b)
	assert.False(t, got.IsSettings())
	assert.Equal(t, report.ID, got.ID)
	data, ok := got.Items.Get("text/plain")
	require.True(t, ok)
	assert.Equal(t, []byte("shared"), data)

	expectNothing(t, a)
}

func TestPublishReachesEverySession(t *testing.T) {
	h := hub.New(message.Settings{})
	a := dialHub(t, h)
	b := dialHub(t, h)
	readMsg(t, a)
	readMsg(t, b)

	require.NoError(t, h.Publish(&message.Message{
		Source: "cli",
		Items:  bundle.NewText("pushed"),
	}))

	for _, c := range []*wire.Conn{a, b} {
		got := readMsg(t, c)
		data, ok := got.Items.Get("text/plain")
		require.True(t, ok)
		assert.Equal(t, []byte("pushed"), data)
	}
}

func TestSettingsFromMonitorIgnored(t *testing.T) {
	h := hub.New(message.Settings{})
	a := dialHub(t, h)
	b := dialHub(t, h)
	readMsg(t, a)
	readMsg(t, b)

	sendMsg(t, a, &message.Message{Settings: &message.Settings{
		CheckClipboard: message.Bool(false),
	}})
	expectNothing(t, b)
}

func TestPublishDuringDisconnect(t *testing.T) {
	h := hub.New(message.Settings{})
	a := dialHub(t, h)
	readMsg(t, a)

	// Keep a's end drained so the hub's writer never backs up.
	a.SetReadDeadline(0)
	go func() {
		for {
			if _, err := a.ReadFrame(); err != nil {
				return
			}
		}
	}()

	// Sessions come and go while publishes race their teardown; the hub
	// must keep fanning out without panicking on a vanished session.
	for i := 0; i < 20; i++ {
		b := dialHub(t, h)
		require.NoError(t, b.Close())
		for j := 0; j < 5; j++ {
			require.NoError(t, h.Publish(&message.Message{
				Source: "cli",
				Items:  bundle.NewText("burst"),
			}))
		}
	}
}

func TestStatusReflectsSessionsAndLatest(t *testing.T) {
	h := hub.New(message.Settings{})
	a := dialHub(t, h)
	b := dialHub(t, h)
	readMsg(t, a)
	readMsg(t, b)

	sendMsg(t, a, message.NewReport("mon-a", bundle.Bundle{
		{MIME: "text/plain", Data: []byte("x")},
		{MIME: "text/html", Data: []byte("<b>x</b>")},
	}))
	readMsg(t, b)

	st := h.Status()
	assert.Len(t, st.Sessions, 2)
	assert.Equal(t, "mon-a", st.LatestSource)
	assert.NotEmpty(t, st.LatestID)
	assert.Equal(t, []string{"text/plain", "text/html"}, st.LatestMIMEs)

	var sources []string
	for _, s := range st.Sessions {
		sources = append(sources, s.Source)
	}
	assert.Contains(t, sources, "mon-a")
}
