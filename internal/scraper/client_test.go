package scraper_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andestraining/sence-sync-server/internal/scraper"
)

// newTestServer creates a new test server with keep-alives disabled.
// This prevents flaky tests when running in parallel, as closing a server
// with keep-alives enabled can affect other tests sharing the HTTP transport.
func newTestServer(handler http.Handler) *httptest.Server {
	server := httptest.NewServer(handler)
	server.Config.SetKeepAlivesEnabled(false)
	return server
}

func testCookies() []scraper.Cookie {
	return []scraper.Cookie{
		{Name: "SESSION", Value: "abc123", Domain: "sence.cl", Path: "/"},
	}
}

func TestFetchDeclarations_Success(t *testing.T) {
	t.Parallel()

	payload := `[{"codigo_curso":"SENCE-001","success":true,"data":[]}]`

	var receivedPath string
	var receivedBody []byte

	mockServer := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedPath = r.URL.Path
		receivedBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(payload))
	}))
	defer mockServer.Close()

	client := scraper.NewDefaultClient(mockServer.URL, 30*time.Second)

	result, err := client.FetchDeclarations(context.Background(), scraper.FetchRequest{
		Cookies:         testCookies(),
		Otec:            "76123456",
		DeclarationType: "inicio",
		InputData:       []string{"SENCE-001"},
	})

	require.NoError(t, err)
	assert.Equal(t, "/declarations", receivedPath)
	assert.JSONEq(t, payload, string(result.Payload))

	var sent map[string]any
	require.NoError(t, json.Unmarshal(receivedBody, &sent))
	assert.Equal(t, "76123456", sent["otec"])
	assert.Equal(t, "inicio", sent["declarationType"])
}

func TestFetchDeclarations_NoCookies(t *testing.T) {
	t.Parallel()

	client := scraper.NewDefaultClient("http://unused.local", 30*time.Second)

	_, err := client.FetchDeclarations(context.Background(), scraper.FetchRequest{
		Otec:      "76123456",
		InputData: []string{"SENCE-001"},
	})

	require.ErrorIs(t, err, scraper.ErrInvalidCredentials)
}

func TestFetchDeclarations_HTTPErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		statusCode int
		wantCreds  bool
	}{
		{
			name:       "401 maps to invalid credentials",
			statusCode: http.StatusUnauthorized,
			wantCreds:  true,
		},
		{
			name:       "403 maps to invalid credentials",
			statusCode: http.StatusForbidden,
			wantCreds:  true,
		},
		{
			name:       "500 is a plain error",
			statusCode: http.StatusInternalServerError,
		},
		{
			name:       "502 is a plain error",
			statusCode: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mockServer := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte("remote failure"))
			}))
			defer mockServer.Close()

			client := scraper.NewDefaultClient(mockServer.URL, 30*time.Second)

			_, err := client.FetchDeclarations(context.Background(), scraper.FetchRequest{
				Cookies:   testCookies(),
				Otec:      "76123456",
				InputData: []string{"SENCE-001"},
			})

			require.Error(t, err)
			if tt.wantCreds {
				assert.ErrorIs(t, err, scraper.ErrInvalidCredentials)
			} else {
				assert.NotErrorIs(t, err, scraper.ErrInvalidCredentials)
			}
		})
	}
}

func TestFetchDeclarations_ContextCancellation(t *testing.T) {
	t.Parallel()

	mockServer := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(2 * time.Second)
		w.WriteHeader(http.StatusOK)
	}))
	defer mockServer.Close()

	client := scraper.NewDefaultClient(mockServer.URL, 30*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := client.FetchDeclarations(ctx, scraper.FetchRequest{
		Cookies:   testCookies(),
		Otec:      "76123456",
		InputData: []string{"SENCE-001"},
	})

	require.Error(t, err)
}

func TestFetchDeclarations_ResponseTooLarge(t *testing.T) {
	t.Parallel()

	mockServer := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		chunk := make([]byte, 1024*1024)
		for i := 0; i < 11; i++ {
			_, _ = w.Write(chunk)
		}
	}))
	defer mockServer.Close()

	client := scraper.NewDefaultClient(mockServer.URL, 30*time.Second)

	_, err := client.FetchDeclarations(context.Background(), scraper.FetchRequest{
		Cookies:   testCookies(),
		Otec:      "76123456",
		InputData: []string{"SENCE-001"},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds maximum allowed size")
}

func TestRegisterCourse_Success(t *testing.T) {
	t.Parallel()

	var receivedPath string

	mockServer := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer mockServer.Close()

	client := scraper.NewDefaultClient(mockServer.URL, 30*time.Second)

	result, err := client.RegisterCourse(context.Background(), scraper.RegisterRequest{
		Cookies:   testCookies(),
		Otec:      "76123456",
		SenceCode: "SENCE-001",
	})

	require.NoError(t, err)
	assert.Equal(t, "/courses/register", receivedPath)
	assert.True(t, result.Success)
	assert.Empty(t, result.RemoteError)
}

func TestRegisterCourse_RemoteFailurePassedThrough(t *testing.T) {
	t.Parallel()

	mockServer := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"success":false,"error":"El curso ya existe en el sistema"}`))
	}))
	defer mockServer.Close()

	client := scraper.NewDefaultClient(mockServer.URL, 30*time.Second)

	result, err := client.RegisterCourse(context.Background(), scraper.RegisterRequest{
		Cookies:   testCookies(),
		Otec:      "76123456",
		SenceCode: "SENCE-001",
	})

	// The remote message is returned verbatim for the caller to classify.
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "El curso ya existe en el sistema", result.RemoteError)
}

func TestRegisterCourse_EmptySenceCode(t *testing.T) {
	t.Parallel()

	client := scraper.NewDefaultClient("http://unused.local", 30*time.Second)

	_, err := client.RegisterCourse(context.Background(), scraper.RegisterRequest{
		Cookies: testCookies(),
		Otec:    "76123456",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "sence code")
}
