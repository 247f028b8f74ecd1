package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mithrel/medchat/internal/db"
	"github.com/mithrel/medchat/pkg/api"
)

func newTestServer(t *testing.T, token string) *httptest.Server {
	t.Helper()
	store, _, err := db.Open(context.Background(), "mem://")
	require.NoError(t, err)
	cfg := viper.New()
	cfg.Set("auth.token", token)
	cfg.Set("history.page_size", 20)
	s := New(cfg, store, log.New(io.Discard, "", 0))
	s.now = func() time.Time { return time.Date(2025, 7, 1, 9, 30, 0, 0, time.UTC) }
	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, method, url, body string, hdr map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewBufferString(body))
	require.NoError(t, err)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, "secret")
	resp := do(t, http.MethodGet, ts.URL+"/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRender_JSON(t *testing.T) {
	ts := newTestServer(t, "")
	resp := do(t, http.MethodPost, ts.URL+"/v1/render", `{"text":"Take **ORS**\n\n- rest"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Nodes json.RawMessage `json:"nodes"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	nodes, err := api.DecodeNodes(out.Nodes)
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, api.Paragraph{Spans: []api.Span{api.Plain("Take "), api.Bold("ORS")}}, nodes[0])
}

func TestRender_EmptyIsEmptyArray(t *testing.T) {
	ts := newTestServer(t, "")
	resp := do(t, http.MethodPost, ts.URL+"/v1/render", `{"text":"  "}`, nil)
	b, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"nodes":[]}`, string(b))
}

func TestRender_Protobuf(t *testing.T) {
	ts := newTestServer(t, "")
	resp := do(t, http.MethodPost, ts.URL+"/v1/render", `{"text":"✅ **Booked** ✅\nsee you"}`,
		map[string]string{"Accept": contentProtobuf})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, contentProtobuf, resp.Header.Get("Content-Type"))

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var list structpb.ListValue
	require.NoError(t, proto.Unmarshal(b, &list))
	require.Len(t, list.Values, 1)
	fields := list.Values[0].GetStructValue().GetFields()
	assert.Equal(t, "banner", fields["type"].GetStringValue())
	assert.Equal(t, "Booked", fields["title"].GetStringValue())
}

func TestRender_BadBody(t *testing.T) {
	ts := newTestServer(t, "")
	resp := do(t, http.MethodPost, ts.URL+"/v1/render", `{"txt":"x"}`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAuth(t *testing.T) {
	ts := newTestServer(t, "secret")
	resp := do(t, http.MethodPost, ts.URL+"/v1/render", `{"text":"x"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = do(t, http.MethodPost, ts.URL+"/v1/render", `{"text":"x"}`, map[string]string{"Authorization": "Bearer wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = do(t, http.MethodPost, ts.URL+"/v1/render", `{"text":"x"}`, map[string]string{"Authorization": "Bearer secret"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

const botTurn = "Here is your plan:\n\n- rest\n\n```json\n{\"name\": \"Ko Ko\", \"age\": 30, \"payment_status\": \"Pending\",}\n```"

func TestTurnLifecycle(t *testing.T) {
	ts := newTestServer(t, "")

	body, _ := json.Marshal(map[string]any{"sender": "bot", "content": botTurn})
	resp := do(t, http.MethodPost, ts.URL+"/v1/sessions/s1/turns", string(body), nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out struct {
		Message api.Message             `json:"message"`
		Nodes   json.RawMessage         `json:"nodes"`
		Record  *api.ConsultationRecord `json:"record"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, int64(1), out.Message.Seq)
	assert.Equal(t, "Here is your plan:\n\n- rest", out.Message.Content)
	require.NotNil(t, out.Record)
	assert.Equal(t, "Ko Ko", out.Record.Name)
	assert.Equal(t, "30", out.Record.Age)
	assert.Equal(t, "s1", out.Record.SessionID)

	resp = do(t, http.MethodPost, ts.URL+"/v1/sessions/s1/turns", `{"sender":"user","content":"thanks **doc**"}`, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/v1/sessions/s1", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sess struct {
		Messages []struct {
			Sender string            `json:"sender"`
			Nodes  []json.RawMessage `json:"nodes"`
		} `json:"messages"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sess))
	require.Len(t, sess.Messages, 2)
	assert.Len(t, sess.Messages[0].Nodes, 2)
	assert.Equal(t, "user", sess.Messages[1].Sender)

	resp = do(t, http.MethodGet, ts.URL+"/v1/records", "", nil)
	var recs struct {
		Records []api.ConsultationRecord `json:"records"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&recs))
	require.Len(t, recs.Records, 1)

	resp = do(t, http.MethodGet, ts.URL+"/v1/records/"+recs.Records[0].ID, "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/v1/sessions", "", nil)
	var list struct {
		Sessions []api.Session `json:"sessions"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list.Sessions, 1)
	assert.Equal(t, "Here is your plan:", list.Sessions[0].Preview)

	resp = do(t, http.MethodDelete, ts.URL+"/v1/sessions/s1", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = do(t, http.MethodGet, ts.URL+"/v1/sessions/s1", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTurnConflict(t *testing.T) {
	ts := newTestServer(t, "")
	resp := do(t, http.MethodPost, ts.URL+"/v1/sessions/s2/turns", `{"sender":"user","content":"a","seq":1}`, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = do(t, http.MethodPost, ts.URL+"/v1/sessions/s2/turns", `{"sender":"user","content":"a","seq":1}`, nil)
	assert.Equal(t, http.StatusCreated, resp.StatusCode, "identical replay is accepted")

	resp = do(t, http.MethodPost, ts.URL+"/v1/sessions/s2/turns", `{"sender":"user","content":"b","seq":1}`, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestTurnBadPayloadStillStored(t *testing.T) {
	ts := newTestServer(t, "")
	resp := do(t, http.MethodPost, ts.URL+"/v1/sessions/s3/turns", "{\"content\":\"ok\\n```json\\n[1]\\n```\"}", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.NotEmpty(t, out["record_error"])
	assert.Nil(t, out["record"])
}

func TestTurnBadSender(t *testing.T) {
	ts := newTestServer(t, "")
	resp := do(t, http.MethodPost, ts.URL+"/v1/sessions/s4/turns", `{"sender":"nurse","content":"x"}`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTurnBlankSession(t *testing.T) {
	ts := newTestServer(t, "")
	resp := do(t, http.MethodPost, ts.URL+"/v1/sessions/%20/turns", `{"sender":"user","content":"x"}`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
