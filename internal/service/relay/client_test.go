package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(Config{
		SendURL:  srv.URL + "/sms",
		ResetURL: srv.URL + "/reset",
	})
}

func TestSendPostsPayloadAndExtractsEnvelope(t *testing.T) {
	var got outboundMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/sms", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte("<Response><Message>Stay calm</Message></Response>"))
	}))
	defer srv.Close()

	reply, err := newTestClient(srv).Send(context.Background(), "bitten on the ankle", true)
	require.NoError(t, err)

	assert.Equal(t, "Stay calm", reply)
	assert.Equal(t, "bitten on the ankle", got.Body)
	assert.Equal(t, DefaultSenderID, got.From)
	assert.True(t, got.IsFirstMessage)
}

func TestSendPassesPlainTextThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("Stay calm"))
	}))
	defer srv.Close()

	reply, err := newTestClient(srv).Send(context.Background(), "help", false)
	require.NoError(t, err)
	assert.Equal(t, "Stay calm", reply)
}

func TestSendUsesConfiguredSender(t *testing.T) {
	var from string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var msg outboundMessage
		_ = json.NewDecoder(r.Body).Decode(&msg)
		from = msg.From
	}))
	defer srv.Close()

	client := NewClient(Config{SendURL: srv.URL, SenderID: "kiosk-7"})
	_, err := client.Send(context.Background(), "help", false)
	require.NoError(t, err)
	assert.Equal(t, "kiosk-7", from)
}

func TestSendNon2xxIsTransportError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Send(context.Background(), "help", true)

	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, http.StatusBadGateway, transportErr.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "send must not retry")
}

func TestSendNetworkFailureIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := newTestClient(srv)
	srv.Close()

	_, err := client.Send(context.Background(), "help", true)

	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Zero(t, transportErr.StatusCode)
}

func TestSendTimeoutIsTransportError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	client := NewClient(Config{SendURL: srv.URL, Timeout: 50 * time.Millisecond})
	_, err := client.Send(context.Background(), "help", true)

	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
}

func TestResetRemoteAcknowledged(t *testing.T) {
	var path string
	var length int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		length = r.ContentLength
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	result := newTestClient(srv).ResetRemote(context.Background())

	assert.True(t, result.Acknowledged)
	assert.Nil(t, result.Err)
	assert.Equal(t, "/reset", path)
	assert.Zero(t, length)
}

func TestResetRemoteFailureIsReportedNotReturned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	result := newTestClient(srv).ResetRemote(context.Background())

	assert.False(t, result.Acknowledged)
	require.NotNil(t, result.Err)
	assert.Equal(t, http.StatusInternalServerError, result.Err.StatusCode)
}

func TestResetRemoteUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := newTestClient(srv)
	srv.Close()

	result := client.ResetRemote(context.Background())
	assert.False(t, result.Acknowledged)
	require.NotNil(t, result.Err)
	assert.Error(t, result.Err.Err)
}
