package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"procurement/pkg/apperror"
	"procurement/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type requisitionRef struct {
	ID       string `json:"id"`
	PRNumber string `json:"pr_number"`
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ok", func(c *gin.Context) {
		if c.GetHeader("Authorization") != "Bearer secret-token" {
			c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "missing token"))
			return
		}
		c.JSON(http.StatusOK, response.Success(http.StatusOK, requisitionRef{ID: "r-1", PRNumber: "PR-00001"}))
	})
	r.POST("/echo", func(c *gin.Context) {
		var body map[string]string
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, response.FromError(apperror.Validation("bad body")))
			return
		}
		c.JSON(http.StatusCreated, response.Success(http.StatusCreated, body))
	})
	r.POST("/convert", func(c *gin.Context) {
		err := apperror.New(apperror.KindAlreadyConverted, "requisition PR-00001 already has a purchase order")
		c.JSON(http.StatusConflict, response.FromError(err))
	})
	r.GET("/budget", func(c *gin.Context) {
		err := apperror.New(apperror.KindInsufficientBudget, "insufficient budget")
		c.JSON(http.StatusUnprocessableEntity, response.FromError(err))
	})
	r.GET("/teapot", func(c *gin.Context) {
		c.JSON(http.StatusTeapot, gin.H{"status": "error", "kind": "SOMETHING_ELSE", "error": "odd"})
	})
	r.GET("/html", func(c *gin.Context) {
		c.String(http.StatusBadGateway, "<html>bad gateway</html>")
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestCallDecodesData(t *testing.T) {
	srv := newServer(t)
	c := New(srv.URL+"/", WithToken("secret-token"))

	var ref requisitionRef
	require.NoError(t, c.Call(context.Background(), http.MethodGet, "/ok", nil, &ref))
	assert.Equal(t, "PR-00001", ref.PRNumber)

	var echoed map[string]string
	require.NoError(t, c.Call(context.Background(), http.MethodPost, "/echo", map[string]string{"name": "Paper"}, &echoed))
	assert.Equal(t, "Paper", echoed["name"])

	require.NoError(t, c.Call(context.Background(), http.MethodGet, "/ok", nil, nil))
}

func TestCallMapsKinds(t *testing.T) {
	srv := newServer(t)
	c := New(srv.URL, WithToken("secret-token"))

	tests := []struct {
		name     string
		method   string
		endpoint string
		kind     apperror.Kind
		status   int
	}{
		{"already converted", http.MethodPost, "/convert", apperror.KindAlreadyConverted, http.StatusConflict},
		{"insufficient budget", http.MethodGet, "/budget", apperror.KindInsufficientBudget, http.StatusUnprocessableEntity},
		{"unknown kind", http.MethodGet, "/teapot", apperror.KindUpstream, http.StatusTeapot},
		{"not json", http.MethodGet, "/html", apperror.KindUpstream, http.StatusBadGateway},
		{"no route", http.MethodGet, "/missing", apperror.KindUpstream, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Call(context.Background(), tt.method, tt.endpoint, nil, nil)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperror.KindOf(err))

			var appErr *apperror.Error
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.status, appErr.StatusCode)
		})
	}
}

func TestCallUnauthorizedIsUpstream(t *testing.T) {
	srv := newServer(t)
	c := New(srv.URL)

	err := c.Call(context.Background(), http.MethodGet, "/ok", nil, nil)
	require.Error(t, err)
	assert.Equal(t, apperror.KindUpstream, apperror.KindOf(err))
	assert.Contains(t, err.Error(), "missing token")
}

func TestCallTransportFailure(t *testing.T) {
	srv := newServer(t)
	url := srv.URL
	srv.Close()

	err := New(url).Call(context.Background(), http.MethodGet, "/ok", nil, nil)
	require.Error(t, err)
	assert.Equal(t, apperror.KindUpstream, apperror.KindOf(err))
}

func TestCallCancelledContext(t *testing.T) {
	srv := newServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New(srv.URL, WithHTTPClient(srv.Client())).Call(ctx, http.MethodGet, "/ok", nil, nil)
	require.Error(t, err)
	assert.Equal(t, apperror.KindUpstream, apperror.KindOf(err))
	assert.ErrorIs(t, err, context.Canceled)
}
