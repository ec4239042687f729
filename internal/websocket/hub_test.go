package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procurement/internal/events"
)

var testSecret = []byte("hub-secret")

func signedToken(t *testing.T, org uuid.UUID) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  uuid.NewString(),
		"org":  org.String(),
		"role": "approver",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	s, err := token.SignedString(testSecret)
	require.NoError(t, err)
	return s
}

func startServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHub(nil)
	go hub.Run(ctx)

	router := gin.New()
	router.GET("/ws", func(c *gin.Context) { ServeWs(hub, c, testSecret) })
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, token string) (*websocket.Conn, *http.Response, error) {
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	return websocket.DefaultDialer.Dial(url, nil)
}

func TestHubDeliversOnlyToOwnOrganization(t *testing.T) {
	hub, srv := startServer(t)
	orgA, orgB := uuid.New(), uuid.New()

	connA, _, err := dial(t, srv, signedToken(t, orgA))
	require.NoError(t, err)
	defer connA.Close()
	connB, _, err := dial(t, srv, signedToken(t, orgB))
	require.NoError(t, err)
	defer connB.Close()

	require.Eventually(t, func() bool {
		return hub.ClientCount(orgA) == 1 && hub.ClientCount(orgB) == 1
	}, time.Second, 10*time.Millisecond)

	e := events.New(events.RequisitionFinalized, orgA, uuid.New(), "PR-000001", "PENDING")
	require.NoError(t, hub.Publish(context.Background(), e))

	require.NoError(t, connA.SetReadDeadline(time.Now().Add(time.Second)))
	_, raw, err := connA.ReadMessage()
	require.NoError(t, err)
	var got events.Event
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "PR-000001", got.Reference)

	require.NoError(t, connB.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err = connB.ReadMessage()
	assert.Error(t, err, "other organizations must not receive the event")
}

func TestHubShutdownReleasesClients(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(nil)
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	router := gin.New()
	router.GET("/ws", func(c *gin.Context) { ServeWs(hub, c, testSecret) })
	srv := httptest.NewServer(router)
	defer srv.Close()

	org := uuid.New()
	conn, _, err := dial(t, srv, signedToken(t, org))
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount(org) == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	<-stopped

	waited := make(chan struct{})
	go func() {
		hub.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(2 * time.Second):
		t.Fatal("client read loop still running after the hub stopped")
	}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)

	// connections arriving after shutdown are closed instead of blocking the handler
	late, _, err := dial(t, srv, signedToken(t, org))
	require.NoError(t, err)
	defer late.Close()
	require.NoError(t, late.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err = late.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
	assert.Equal(t, 0, hub.ClientCount(org))

	done := make(chan error, 1)
	go func() {
		for i := 0; i < 100; i++ {
			if err := hub.Publish(context.Background(), events.New(events.RequisitionFinalized, org, uuid.New(), "PR-000001", "PENDING")); err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrHubStopped)
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked after the hub stopped")
	}
}

func TestServeWsRejectsMissingToken(t *testing.T) {
	_, srv := startServer(t)
	_, resp, err := dial(t, srv, "")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
