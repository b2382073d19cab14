package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondError(t *testing.T) {
	w := httptest.NewRecorder()
	RespondError(w, http.StatusConflict, "busy")

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "busy", body.Error)
}

func TestSendSSEEvent(t *testing.T) {
	w := httptest.NewRecorder()
	SetupSSEHeaders(w)

	require.NoError(t, SendSSEEvent(w, w, "snapshot", map[string]int{"n": 1}))

	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "event: snapshot\ndata: {\"n\":1}\n\n"))
	assert.True(t, w.Flushed)
}
