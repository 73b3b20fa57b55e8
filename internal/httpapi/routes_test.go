package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DoyleJ11/vulture-market/internal/engine"
	"github.com/DoyleJ11/vulture-market/internal/hub"
	"github.com/DoyleJ11/vulture-market/internal/session"
	"github.com/DoyleJ11/vulture-market/internal/store"
	"github.com/DoyleJ11/vulture-market/internal/ws"
	"github.com/DoyleJ11/vulture-market/pkg/types"
)

type fakeArchive struct {
	pingErr error
	rows    []store.TopScore
	limit   int
}

func (f *fakeArchive) Ping(context.Context) error { return f.pingErr }

func (f *fakeArchive) TopScores(_ context.Context, limit int) ([]store.TopScore, error) {
	f.limit = limit
	return f.rows, nil
}

func newServer(t *testing.T, db Archive, origins ...string) (*httptest.Server, *hub.Hub) {
	t.Helper()
	h := hub.NewHub(context.Background(), hub.Config{Rules: engine.DefaultRules(), IdleGrace: time.Hour})
	srv := httptest.NewServer(SetupRoutes(h, zap.NewNop(), db, origins))
	t.Cleanup(func() {
		srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = h.Shutdown(ctx)
	})
	return srv, h
}

func createSession(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp, err := http.Post(srv.URL+"/sessions", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body struct {
		Code string `json:"code"`
		ID   string `json:"id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Code, 6)
	require.NotEmpty(t, body.ID)
	return body.Code
}

func TestCreateAndGetSession(t *testing.T) {
	srv, _ := newServer(t, nil)
	code := createSession(t, srv)

	resp, err := http.Get(srv.URL + "/sessions/" + code)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap types.SessionSnapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, code, snap.Code)
	assert.Equal(t, "lobby", snap.Phase)
	assert.Equal(t, 15, snap.TotalRounds)
	assert.Empty(t, snap.Seats)
}

func TestGetSession_NotFound(t *testing.T) {
	srv, _ := newServer(t, nil)
	resp, err := http.Get(srv.URL + "/sessions/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	tests := []struct {
		name string
		db   Archive
		want int
	}{
		{"no archive", nil, http.StatusOK},
		{"archive up", &fakeArchive{}, http.StatusOK},
		{"archive down", &fakeArchive{pingErr: errors.New("refused")}, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newServer(t, tt.db)
			resp, err := http.Get(srv.URL + "/healthz")
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestLeaderboard(t *testing.T) {
	db := &fakeArchive{rows: []store.TopScore{{Name: "Suzuki", IsAI: true, Level: 9, Score: 31, Code: "111111"}}}
	srv, _ := newServer(t, db)

	resp, err := http.Get(srv.URL + "/leaderboard?limit=500")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, maxLeaderboard, db.limit)

	var rows []store.TopScore
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rows))
	require.Len(t, rows, 1)
	assert.Equal(t, 31, rows[0].Score)

	bad, err := http.Get(srv.URL + "/leaderboard?limit=zero")
	require.NoError(t, err)
	bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestLeaderboard_AbsentWithoutArchive(t *testing.T) {
	srv, _ := newServer(t, nil)
	resp, err := http.Get(srv.URL + "/leaderboard")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func readFrame(t *testing.T, ctx context.Context, c *websocket.Conn) types.ServerMessage {
	t.Helper()
	_, data, err := c.Read(ctx)
	require.NoError(t, err)
	var msg types.ServerMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

// readUntil skips frames until one of type typ arrives.
func readUntil(t *testing.T, ctx context.Context, c *websocket.Conn, typ string) types.ServerMessage {
	t.Helper()
	for {
		msg := readFrame(t, ctx, c)
		if msg.Type == typ {
			return msg
		}
	}
}

func TestWebsocket_JoinBidAndLeave(t *testing.T) {
	srv, h := newServer(t, nil)
	code := createSession(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?code=" + code
	c, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer c.Close(websocket.StatusNormalClosure, "")

	assert.Equal(t, types.TypeSnapshot, readFrame(t, ctx, c).Type)

	send := func(v string) {
		require.NoError(t, c.Write(ctx, websocket.MessageText, []byte(v)))
	}

	send(`{"type":"submit_bid","value":3}`)
	assert.Equal(t, ws.ErrNotSeated.Error(), readUntil(t, ctx, c, types.TypeError).Error)

	send(`{"type":"join","display_name":"  aki  "}`)
	joined := readUntil(t, ctx, c, types.TypeJoined)
	assert.EqualValues(t, map[string]any{"seat_id": float64(0)}, joined.Payload)

	send(`{"type":"LockPick"}`)
	assert.Contains(t, readUntil(t, ctx, c, types.TypeError).Error, "unknown message type")

	send(`{"type":"add_ai","level":4}`)
	send(`{"type":"add_ai","level":9}`)
	send(`{"type":"start"}`)
	readUntil(t, ctx, c, types.TypeGameStarted)
	readUntil(t, ctx, c, types.TypeRoundOpened)

	send(`{"type":"submit_bid","value":15}`)
	for {
		locked := readUntil(t, ctx, c, types.TypeBidLocked)
		if locked.Payload.(map[string]any)["seat_id"] == float64(0) {
			break
		}
	}

	require.NoError(t, c.Close(websocket.StatusNormalClosure, "bye"))

	s, err := h.Get(ctx, code)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		v, err := s.State(ctx)
		return err == nil && len(v.Seats) == 3 && v.Seats[0].IsAI && v.Humans == 0
	}, 3*time.Second, 20*time.Millisecond, "closed socket hands the seat to autoplay")
}

func dial(t *testing.T, ctx context.Context, srv *httptest.Server, code string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?code=" + code
	c, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close(websocket.StatusNormalClosure, "") })
	require.Equal(t, types.TypeSnapshot, readFrame(t, ctx, c).Type)
	return c
}

func TestWebsocket_OnlyHostControlsTable(t *testing.T) {
	srv, h := newServer(t, nil)
	code := createSession(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	host := dial(t, ctx, srv, code)
	guest := dial(t, ctx, srv, code)
	spectator := dial(t, ctx, srv, code)

	send := func(c *websocket.Conn, v string) {
		require.NoError(t, c.Write(ctx, websocket.MessageText, []byte(v)))
	}
	notHost := session.ErrNotHost.Error()

	send(host, `{"type":"join","display_name":"host"}`)
	readUntil(t, ctx, host, types.TypeJoined)
	send(guest, `{"type":"join","display_name":"guest"}`)
	readUntil(t, ctx, guest, types.TypeJoined)

	send(spectator, `{"type":"add_ai","level":3}`)
	assert.Equal(t, notHost, readUntil(t, ctx, spectator, types.TypeError).Error)
	send(spectator, `{"type":"start"}`)
	assert.Equal(t, notHost, readUntil(t, ctx, spectator, types.TypeError).Error)
	send(guest, `{"type":"add_ai","level":3}`)
	assert.Equal(t, notHost, readUntil(t, ctx, guest, types.TypeError).Error)

	send(host, `{"type":"add_ai","level":3}`)
	for {
		joined := readUntil(t, ctx, host, types.TypeSeatJoined)
		if joined.Payload.(map[string]any)["is_ai"] == true {
			break
		}
	}

	send(guest, `{"type":"start"}`)
	assert.Equal(t, notHost, readUntil(t, ctx, guest, types.TypeError).Error)
	send(spectator, `{"type":"remove_ai","seat_id":2}`)
	assert.Equal(t, notHost, readUntil(t, ctx, spectator, types.TypeError).Error)

	s, err := h.Get(ctx, code)
	require.NoError(t, err)
	v, err := s.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.PhaseLobby, v.Phase)
	assert.Len(t, v.Seats, 3)

	send(host, `{"type":"start"}`)
	readUntil(t, ctx, host, types.TypeGameStarted)
}

func TestWebsocket_OriginPatterns(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	hdr := http.Header{"Origin": []string{"http://play.example.com"}}

	strict, _ := newServer(t, nil)
	url := "ws" + strings.TrimPrefix(strict.URL, "http") + "/ws?code=" + createSession(t, strict)
	_, resp, err := websocket.Dial(ctx, url, &websocket.DialOptions{HTTPHeader: hdr})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	open, _ := newServer(t, nil, "play.example.com")
	url = "ws" + strings.TrimPrefix(open.URL, "http") + "/ws?code=" + createSession(t, open)
	c, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{HTTPHeader: hdr})
	require.NoError(t, err)
	c.Close(websocket.StatusNormalClosure, "")
}
