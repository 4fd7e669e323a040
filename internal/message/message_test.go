package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.clipscout.dev/clipscout/internal/bundle"
)

func TestRoundTripDataMessage(t *testing.T) {
	in := NewReport("workstation", bundle.Bundle{
		{MIME: "text/plain", Data: []byte("hello")},
		{MIME: "image/png", Data: []byte{0x89, 0x50, 0x4e, 0x47}},
	})

	raw, err := in.Encode()
	require.NoError(t, err)

	out, err := Decode(raw)
	require.NoError(t, err)

	assert.False(t, out.IsSettings())
	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, "workstation", out.Source)
	require.True(t, in.Items.Equal(out.Items), "binary payloads must survive the trip")
}

func TestSettingsMarker(t *testing.T) {
	m, err := Decode([]byte(`{"settings":{}}`))
	require.NoError(t, err)
	assert.True(t, m.IsSettings())

	m, err = Decode([]byte(`{"items":[{"mime":"text/plain","data":"aGk="}]}`))
	require.NoError(t, err)
	assert.False(t, m.IsSettings())
}

func TestSettingsSparseness(t *testing.T) {
	m, err := Decode([]byte(`{"settings":{"formats":"text/plain"}}`))
	require.NoError(t, err)
	require.True(t, m.IsSettings())

	s := m.Settings
	require.NotNil(t, s.Formats)
	assert.Equal(t, "text/plain", *s.Formats)

	assert.Nil(t, s.LastDigest)
	assert.Nil(t, s.CheckClipboard)
	assert.Nil(t, s.CheckSelection)
	assert.Nil(t, s.SyncClipboardToSelection)
	assert.Nil(t, s.SyncSelectionToClipboard)
}

func TestSettingsFalseIsPresent(t *testing.T) {
	m, err := Decode([]byte(`{"settings":{"check_clipboard":false}}`))
	require.NoError(t, err)
	require.NotNil(t, m.Settings.CheckClipboard)
	assert.False(t, *m.Settings.CheckClipboard)
}

func TestDecodeGarbage(t *testing.T) {
	_, err := Decode([]byte(`{"items":`))
	assert.Error(t, err)
}

func TestReportIDsAreUnique(t *testing.T) {
	a := NewReport("x", bundle.NewText("a"))
	b := NewReport("x", bundle.NewText("b"))
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}
