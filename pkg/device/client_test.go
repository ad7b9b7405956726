package device

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siriussoftware2024/controlinvernadero/pkg/field"
)

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(Config{Port: 80})
	assert.Error(t, err)

	_, err = NewClient(Config{Host: "192.168.2.14", Port: 70000})
	assert.Error(t, err)

	c, err := NewClient(Config{Host: "192.168.2.14", Port: 80})
	require.NoError(t, err)
	assert.Equal(t, "http://192.168.2.14:80", c.BaseURL())
	assert.Equal(t, DefaultTimeout, c.Timeout())
}

func TestFetchState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, StatePath, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"temperature":24.5,"bulbOn":true,"setpointTemp":80.0}`))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL(srv.URL, time.Second, srv.Client())
	state, err := c.FetchState(context.Background())
	require.NoError(t, err)

	temp, err := field.Normalize(field.Temperature, state["temperature"])
	require.NoError(t, err)
	assert.Equal(t, 24.5, temp)
	assert.Equal(t, true, state["bulbOn"])
}

func TestFetchStateErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		reason Reason
	}{
		{"NotFound", http.StatusNotFound, "", ReasonNotFound},
		{"ServerError", http.StatusInternalServerError, "", ReasonServer},
		{"Teapot", http.StatusTeapot, "", ReasonStatus},
		{"BadJSON", http.StatusOK, "{not json", ReasonDecode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClientWithBaseURL(srv.URL, time.Second, srv.Client())
			_, err := c.FetchState(context.Background())

			var ce *ConnectivityError
			require.True(t, errors.As(err, &ce), "error %v is not a ConnectivityError", err)
			assert.Equal(t, tt.reason, ce.Reason)
			assert.True(t, IsConnectivity(err))
		})
	}
}

func TestFetchStateUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClientWithBaseURL(url, time.Second, nil)
	_, err := c.FetchState(context.Background())

	var ce *ConnectivityError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, ReasonNetwork, ce.Reason)
}

func TestSend(t *testing.T) {
	var gotPath atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath.Store(r.URL.Path)
		_, _ = w.Write([]byte("OK"))
	}))
	defer srv.Close()

	cmd, err := field.BuildCommand(field.BulbOn, true)
	require.NoError(t, err)

	c := NewClientWithBaseURL(srv.URL, time.Second, srv.Client())
	require.NoError(t, c.Send(context.Background(), cmd))
	assert.Equal(t, "/cmd/ON47", gotPath.Load())
}

func TestSendRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad", http.StatusBadRequest)
	}))
	defer srv.Close()

	cmd, err := field.BuildCommand(field.SetpointHum, 70)
	require.NoError(t, err)

	c := NewClientWithBaseURL(srv.URL, time.Second, srv.Client())
	err = c.Send(context.Background(), cmd)
	assert.ErrorIs(t, err, ErrCommandRejected)
}

func TestSendTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	cmd, err := field.BuildCommand(field.Remote1On, true)
	require.NoError(t, err)

	c := NewClientWithBaseURL(srv.URL, 50*time.Millisecond, srv.Client())
	err = c.Send(context.Background(), cmd)
	assert.ErrorIs(t, err, ErrCommandTimeout)
}

func TestSendUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	cmd, err := field.BuildCommand(field.Remote1On, true)
	require.NoError(t, err)

	c := NewClientWithBaseURL(url, time.Second, nil)
	err = c.Send(context.Background(), cmd)
	assert.True(t, IsConnectivity(err))
	assert.NotErrorIs(t, err, ErrCommandRejected)
}
