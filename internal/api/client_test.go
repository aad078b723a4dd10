package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func newTestClient(t *testing.T, h http.Handler, tok TokenSource) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL+"/", tok)
	require.NoError(t, err)
	return c
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New("ftp://example.org", nil)
	assert.Error(t, err)
	_, err = New("://bad", nil)
	assert.Error(t, err)
}

func TestLeads(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, PathLeads, r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `[{"id":"1","nombre":"Ana","empresa":"ACME","correo":"ana@acme.mx","created_at":"2026-01-01T10:00:00"}]`)
	}), nil)

	leads, err := c.Leads(context.Background())
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, "Ana", leads[0].Name)
	assert.Equal(t, "ACME", leads[0].Company)
	assert.Equal(t, "1", leads[0].Key())
}

func TestNullListBecomesEmpty(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `null`)
	}), nil)

	reports, err := c.Reports(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, reports)
	assert.Empty(t, reports)
}

func TestBearerTokenAttached(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer s3cret", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `[]`)
	}), staticToken("s3cret"))

	_, err := c.Profiles(context.Background())
	require.NoError(t, err)
}

func TestStatusError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"boom"}`, http.StatusInternalServerError)
	}), nil)

	_, err := c.Sessions(context.Background())
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.Code)
	assert.Equal(t, PathSessions, se.Path)
	assert.Contains(t, se.Body, "boom")
}

func TestDecodeError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<html>`)
	}), nil)

	_, err := c.DashboardStats(context.Background())
	assert.Error(t, err)
}

func TestDelete(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, PathRegistrations+"/r 1", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}), nil)

	require.NoError(t, c.Delete(context.Background(), ItemPath(PathRegistrations, "r 1")))
}

func TestSessionHistoryPath(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, PathSessionHistory+"/abc123", r.URL.Path)
		_, _ = io.WriteString(w, `[{"id":"m1","user_input":"hola","bot_response":"hola!","metadata":{"intent":"saludo","score":0.9,"steps":[{"step":"RAG","detail":"x","status":"success"}]}}]`)
	}), nil)

	msgs, err := c.SessionHistory(context.Background(), "abc123")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "saludo", msgs[0].Metadata.Intent)
	require.Len(t, msgs[0].Metadata.Steps, 1)
	assert.Equal(t, "RAG", msgs[0].Metadata.Steps[0].Step)
}

func TestLogin(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, PathLogin, r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.NoError(t, r.ParseForm())
		if r.PostForm.Get("username") != "admin" || r.PostForm.Get("password") != "admin123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "jwt-token", "token_type": "bearer"})
	}), nil)

	tok, err := c.Login(context.Background(), "admin", "admin123")
	require.NoError(t, err)
	assert.Equal(t, "jwt-token", tok)

	_, err = c.Login(context.Background(), "admin", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestChatPostsBody(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var req ChatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, ChatRequest{Message: "hola", SessionID: "sid"}, req)
		_, _ = io.WriteString(w, "respuesta")
	}), nil)

	body, err := c.Chat(context.Background(), ChatRequest{Message: "hola", SessionID: "sid"})
	require.NoError(t, err)
	defer body.Close()
	got, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "respuesta", string(got))
}

func TestGraph(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, PathGraph, r.URL.Path)
		_, _ = io.WriteString(w, `{"nodes":[{"id":"a","group":1,"val":3}],"links":[]}`)
	}), nil)

	g, err := c.Graph(context.Background())
	require.NoError(t, err)
	require.Len(t, g.Nodes, 1)
	assert.Equal(t, 3.0, g.Nodes[0].Val)
}
