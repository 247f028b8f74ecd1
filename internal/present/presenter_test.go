package present

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mithrel/medchat/pkg/api"
)

func TestParseMode(t *testing.T) {
	for _, s := range Modes {
		_, ok := ParseMode(s)
		assert.True(t, ok, s)
	}
	m, ok := ParseMode(" JSON ")
	assert.True(t, ok)
	assert.Equal(t, ModeJSON, m)
	_, ok = ParseMode("yaml")
	assert.False(t, ok)
}

func TestRenderNodes_EmptyJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderNodes(context.Background(), &buf, nil, Options{Mode: ModeJSON}))
	assert.Equal(t, "[]\n", buf.String())
}

func transcriptFixture() []api.Message {
	at := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)
	return []api.Message{
		{SessionID: "s1", Seq: 1, Sender: api.SenderBot, Content: "Hello\n\n- option _one_", CreatedAt: at},
		{SessionID: "s1", Seq: 2, Sender: api.SenderUser, Content: "I have **fever**", CreatedAt: at.Add(time.Minute)},
	}
}

func TestTranscript_UserMessagesAreLiteral(t *testing.T) {
	items := Transcript(transcriptFixture())
	require.Len(t, items, 2)
	assert.Len(t, items[0].Nodes, 2)
	assert.Equal(t, []api.Node{api.Paragraph{Spans: []api.Span{api.Plain("I have **fever**")}}}, items[1].Nodes)
}

func TestRenderTranscript_Plain(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderTranscript(context.Background(), &buf, transcriptFixture(), Options{Mode: ModePlain}))
	out := buf.String()
	assert.Contains(t, out, "[Assistant · ")
	assert.Contains(t, out, "• option one")
	assert.Contains(t, out, "[Patient · ")
	assert.Contains(t, out, "I have **fever**")
}

func TestRenderTranscript_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderTranscript(context.Background(), &buf, transcriptFixture(), Options{Mode: ModeJSON}))
	var got []struct {
		Sender string            `json:"sender"`
		Nodes  []json.RawMessage `json:"nodes"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "bot", got[0].Sender)
	assert.Len(t, got[0].Nodes, 2)
}

func TestRenderSessions_TUIWithoutSource(t *testing.T) {
	err := RenderSessions(context.Background(), &bytes.Buffer{}, nil, nil, Options{Mode: ModeTUI})
	assert.Error(t, err)
}
