package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockwatch/internal/config"
	"stockwatch/internal/logbus"
)

func TestPushSendsFormFields(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		got = map[string]string{
			"token":    r.PostFormValue("token"),
			"user":     r.PostFormValue("user"),
			"message":  r.PostFormValue("message"),
			"title":    r.PostFormValue("title"),
			"priority": r.PostFormValue("priority"),
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewPushover(config.PushoverConfig{
		APIToken: "app-token",
		UserKey:  "user-key",
		Endpoint: srv.URL,
	}, logbus.New(10))

	err := c.Push(context.Background(), "Switch is still sold out 😢", PriorityLowest, "Stock Check")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"token":    "app-token",
		"user":     "user-key",
		"message":  "Switch is still sold out 😢",
		"title":    "Stock Check",
		"priority": "-2",
	}, got)
}

func TestPushNon200IsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":["application token is invalid"]}`))
	}))
	defer srv.Close()

	c := NewPushover(config.PushoverConfig{
		APIToken: "bad",
		UserKey:  "user-key",
		Endpoint: srv.URL,
	}, logbus.New(10))

	err := c.Push(context.Background(), "msg", PriorityNormal, "Stock Check")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "application token is invalid")
}

func TestPushMissingTokensSkipsRequest(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	c := NewPushover(config.PushoverConfig{Endpoint: srv.URL}, logbus.New(10))
	err := c.Push(context.Background(), "msg", PriorityLow, "Stock Check")

	require.Error(t, err)
	assert.Zero(t, calls)
}

func TestPriorityValues(t *testing.T) {
	assert.Equal(t, -2, int(PriorityLowest))
	assert.Equal(t, -1, int(PriorityLow))
	assert.Equal(t, 0, int(PriorityNormal))
	assert.Equal(t, 1, int(PriorityHigh))
}
