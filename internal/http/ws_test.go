package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/splax/jserrlog/internal/domain"
)

func TestErrorsWSStreamsAppendedRecords(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/admin/ws/errors"
	header := http.Header{"Authorization": {"Bearer " + env.adminToken(t)}}
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("websocket dial: %v (resp %+v)", err, resp)
	}
	defer conn.Close()

	form := validReportForm(env.submit.Mint())
	if _, err := http.PostForm(srv.URL+"/report", form); err != nil {
		t.Fatalf("post report: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read broadcast: %v", err)
	}
	var record domain.ErrorRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		t.Fatalf("decode broadcast: %v", err)
	}
	if record.Message != "TypeError: x is undefined" {
		t.Fatalf("broadcast message %q", record.Message)
	}
	if record.ID == 0 {
		t.Fatal("broadcast record missing assigned id")
	}
}

func TestErrorsWSRejectsAnonymous(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/admin/ws/errors"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("anonymous websocket dial succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 handshake rejection, got %+v", resp)
	}
}
