package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/yaml", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write([]byte("ns: []\n"))
	}))
	defer server.Close()

	client := NewClient(DefaultConfig(), ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}))
	resp, err := client.Get(context.Background(), server.URL, map[string]string{"Accept": "application/yaml"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/yaml", resp.ContentType)
	assert.Equal(t, "ns: []\n", string(resp.Body))
}

func TestClientGet_Unreachable(t *testing.T) {
	client := NewClient(DefaultConfig(), ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}))
	_, err := client.Get(context.Background(), "http://127.0.0.1:1/rules", nil)
	assert.Error(t, err)
}

func TestClientGet_InvalidURL(t *testing.T) {
	client := NewClient(DefaultConfig(), ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}))
	_, err := client.Get(context.Background(), "://bad", nil)
	assert.ErrorContains(t, err, "failed to create request")
}
