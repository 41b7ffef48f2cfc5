package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/xhad/sowgen/internal/testutil"
	"github.com/xhad/sowgen/internal/types"
	"github.com/xhad/sowgen/pkg/extractor"
	"github.com/xhad/sowgen/pkg/llm"
	"github.com/xhad/sowgen/pkg/sow"
)

type harness struct {
	srv       *httptest.Server
	ws        *WSServer
	model     *testutil.FakeModel
	reference *testutil.StaticSource
}

func newHarness(t *testing.T, replies ...string) *harness {
	t.Helper()

	h := &harness{
		model: testutil.NewFakeModel(replies...),
		reference: &testutil.StaticSource{SourceName: "reference", Result: types.FetchResult{
			URL:    "https://ref.example",
			Status: types.StatusOK,
			Items:  []string{"Ref clause 1", "Ref clause 2"},
		}},
	}

	engine, err := llm.NewWithModel(llm.ChatConfig{}, h.model)
	require.NoError(t, err)

	gen := sow.NewWithConfig(sow.GeneratorConfig{}, extractor.New(), engine, sow.Sources{
		Reference: h.reference,
		Filings: &testutil.StaticSource{SourceName: "filings", Result: types.FetchResult{
			Status: types.StatusFailed,
			Err:    assert.AnError,
		}},
	})

	h.ws = NewWSServer(Config{}, gen)
	h.srv = httptest.NewServer(h.ws.Handler())
	return h
}

func (h *harness) dial(t *testing.T) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(h.srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msgType, content string, data interface{}) {
	t.Helper()

	msg := Message{Type: msgType, Content: content}
	if data != nil {
		raw, err := json.Marshal(data)
		require.NoError(t, err)
		msg.Data = raw
	}
	require.NoError(t, conn.WriteJSON(msg))
}

// readUntil reads messages until one of the given type arrives, returning
// everything read on the way.
func readUntil(t *testing.T, conn *websocket.Conn, msgType string) []Message {
	t.Helper()

	var got []Message
	for {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var msg Message
		require.NoError(t, conn.ReadJSON(&msg))
		got = append(got, msg)
		if msg.Type == msgType {
			return got
		}
	}
}

func ofType(msgs []Message, msgType string) []string {
	var out []string
	for _, m := range msgs {
		if m.Type == msgType {
			out = append(out, m.Content)
		}
	}
	return out
}

func droneData() GenerateData {
	return GenerateData{
		FileName:    "brief.docx",
		File:        testutil.DOCX("Inspect 10 sites monthly"),
		Description: "Provide drone inspection services",
		Role:        "vendor",
	}
}

func TestHealth(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newHarness(t)
	defer h.srv.Close()

	resp, err := h.srv.Client().Get(h.srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))
}

func TestGenerateAndRefine(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newHarness(t, "Cost: $5,000", "Cost: $4,000")
	defer h.srv.Close()

	conn := h.dial(t)
	defer conn.Close()

	send(t, conn, TypeGenerate, "", droneData())
	msgs := readUntil(t, conn, TypeDocument)

	assert.Equal(t, []string{"Cost: [$5,000 – validate independently]"}, ofType(msgs, TypeDocument))
	assert.Equal(t, []string{"filings: " + assert.AnError.Error()}, ofType(msgs, TypeWarning))
	assert.Contains(t, h.model.Calls()[0].User, "Pro-vendor")

	send(t, conn, TypeRefine, "lower the price", nil)
	msgs = readUntil(t, conn, TypeDocument)
	assert.Equal(t, []string{"Cost: [$4,000 – validate independently]"}, ofType(msgs, TypeDocument))

	send(t, conn, TypeCurrent, "", nil)
	msgs = readUntil(t, conn, TypeDocument)
	assert.Equal(t, "Cost: [$4,000 – validate independently]", msgs[len(msgs)-1].Content)
}

func TestGatherThenGenerateWithExclusions(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newHarness(t, "Done")
	defer h.srv.Close()

	conn := h.dial(t)
	defer conn.Close()

	send(t, conn, TypeGather, "", droneData())
	msgs := readUntil(t, conn, TypeExamples)

	var views []ExampleView
	require.NoError(t, json.Unmarshal(msgs[len(msgs)-1].Data, &views))
	require.Len(t, views, 2)
	assert.Equal(t, "reference", views[0].Origin)
	assert.Equal(t, "Ref clause 1", views[0].Text)

	send(t, conn, TypeGenerate, "", GenerateData{Exclude: []int{0}})
	readUntil(t, conn, TypeDocument)

	calls := h.model.Calls()
	require.Len(t, calls, 1)
	assert.NotContains(t, calls[0].User, "Ref clause 1")
	assert.Contains(t, calls[0].User, "Ref clause 2")
	assert.Len(t, h.reference.Queries(), 1)
}

func TestErrorsAreReported(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newHarness(t, "Done")
	defer h.srv.Close()

	conn := h.dial(t)
	defer conn.Close()

	send(t, conn, TypeGenerate, "", GenerateData{Description: "no file"})
	msgs := readUntil(t, conn, TypeError)
	assert.Equal(t, sow.ErrMissingInput.Error(), msgs[len(msgs)-1].Content)
	assert.Empty(t, h.reference.Queries())
	assert.Empty(t, h.model.Calls())

	send(t, conn, TypeRefine, "shorter", nil)
	msgs = readUntil(t, conn, TypeError)
	assert.Equal(t, sow.ErrNoDocument.Error(), msgs[len(msgs)-1].Content)

	send(t, conn, TypeCurrent, "", nil)
	msgs = readUntil(t, conn, TypeError)
	assert.Equal(t, sow.ErrNoDocument.Error(), msgs[len(msgs)-1].Content)

	send(t, conn, "dance", "", nil)
	msgs = readUntil(t, conn, TypeError)
	assert.Contains(t, msgs[len(msgs)-1].Content, "unknown message type")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	msgs = readUntil(t, conn, TypeError)
	assert.Equal(t, "invalid message", msgs[len(msgs)-1].Content)
}

func TestSessionsAreIsolatedAndEnded(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newHarness(t, "Cost: $5,000")
	defer h.srv.Close()

	a := h.dial(t)
	b := h.dial(t)
	defer b.Close()

	send(t, a, TypeGenerate, "", droneData())
	readUntil(t, a, TypeDocument)

	send(t, b, TypeCurrent, "", nil)
	msgs := readUntil(t, b, TypeError)
	assert.Equal(t, sow.ErrNoDocument.Error(), msgs[len(msgs)-1].Content)
	assert.Equal(t, 2, h.ws.Sessions().Len())

	send(t, a, TypeReset, "", nil)
	readUntil(t, a, TypeStatus)
	send(t, a, TypeCurrent, "", nil)
	readUntil(t, a, TypeError)

	require.NoError(t, a.Close())
	assert.Eventually(t, func() bool {
		return h.ws.Sessions().Len() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestGenerateAppliesRoleToGatheredDraft(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := newHarness(t, "Done")
	defer h.srv.Close()

	conn := h.dial(t)
	defer conn.Close()

	data := droneData()
	data.Role = "client"
	send(t, conn, TypeGather, "", data)
	readUntil(t, conn, TypeExamples)

	send(t, conn, TypeGenerate, "", GenerateData{Role: "vendor"})
	readUntil(t, conn, TypeDocument)

	calls := h.model.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].User, "Assume a Pro-vendor stance.")
	assert.Len(t, h.reference.Queries(), 1)
}
