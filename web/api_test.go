package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archview/archview/mermaid"
	"github.com/archview/archview/resolve"
	"github.com/archview/archview/services"
	"github.com/archview/archview/services/llm"
)

func newTestApi(t *testing.T, client llm.Client) (*Api, *services.VersionStore) {
	t.Helper()
	store, err := services.NewVersionStore(t.TempDir())
	require.NoError(t, err)
	norm := mermaid.NewNormalizer("TD", nil)
	gen := services.NewGenerationService(client, store, norm, nil)
	return NewApi(gen, store, norm), store
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleNormalize(t *testing.T) {
	api, _ := newTestApi(t, &llm.MockClient{})
	handler := api.Handler()

	rec := postJSON(t, handler, "/api/normalize", map[string]string{
		"rawText": "Intro.\n```mermaid\ngraph LR\nA[Web] --> B\n```",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var res mermaid.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "flowchart TD\nA[\"Web\"] --> B", res.DiagramSource)
	assert.Equal(t, "Intro.", res.Explanation)
}

func TestHandleGenerate(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mock := &llm.MockClient{
			ResponseToReturn: "Overview.\n```mermaid\nflowchart TD\nA[Web] --> B[(DB)]\n```",
		}
		api, _ := newTestApi(t, mock)
		rec := postJSON(t, api.Handler(), "/api/generate", map[string]any{"prompt": "web app"})
		require.Equal(t, http.StatusOK, rec.Code)

		var res struct {
			Version         *services.DiagramVersion `json:"version"`
			NothingToRender bool                     `json:"nothingToRender"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		require.NotNil(t, res.Version)
		assert.False(t, res.NothingToRender)
		assert.Contains(t, res.Version.DiagramSource, `A["Web"]`)
	})

	t.Run("Nothing To Render Is Not An Error Status", func(t *testing.T) {
		mock := &llm.MockClient{ResponseToReturn: "Sorry, no diagram here."}
		api, _ := newTestApi(t, mock)
		rec := postJSON(t, api.Handler(), "/api/generate", map[string]any{"prompt": "???"})
		require.Equal(t, http.StatusOK, rec.Code)

		var res struct {
			Explanation     string `json:"explanation"`
			NothingToRender bool   `json:"nothingToRender"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.True(t, res.NothingToRender)
		assert.Contains(t, res.Explanation, "no diagram")
	})

	t.Run("Invalid Body", func(t *testing.T) {
		api, _ := newTestApi(t, &llm.MockClient{})
		req := httptest.NewRequest(http.MethodPost, "/api/generate", bytes.NewReader([]byte("{nope")))
		rec := httptest.NewRecorder()
		api.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleResolve(t *testing.T) {
	api, store := newTestApi(t, &llm.MockClient{})
	v := &services.DiagramVersion{
		ID:            "v1",
		DiagramSource: "flowchart TD\nA --> B",
		Nodes:         []resolve.NodeRecord{{ID: "svc1", Label: "Auth Service", Description: "handles auth"}},
	}
	require.NoError(t, store.Append(v))
	handler := api.Handler()

	t.Run("Hit", func(t *testing.T) {
		rec := postJSON(t, handler, "/api/resolve", map[string]string{
			"versionId": "v1", "elementId": "flowchart-svc1-3", "visibleLabel": "Auth Service",
		})
		require.Equal(t, http.StatusOK, rec.Code)
		var node resolve.NodeRecord
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &node))
		assert.Equal(t, "svc1", node.ID)
	})

	t.Run("Miss Returns Null", func(t *testing.T) {
		rec := postJSON(t, handler, "/api/resolve", map[string]string{
			"versionId": "v1", "elementId": "zz", "visibleLabel": "Unrelated Thing",
		})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "null\n", rec.Body.String())
	})

	t.Run("Unknown Version", func(t *testing.T) {
		rec := postJSON(t, handler, "/api/resolve", map[string]string{
			"versionId": "missing", "elementId": "a", "visibleLabel": "b",
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHandleVersions(t *testing.T) {
	api, store := newTestApi(t, &llm.MockClient{})
	require.NoError(t, store.Append(&services.DiagramVersion{ID: "v1", DiagramSource: "flowchart TD"}))
	require.NoError(t, store.Append(&services.DiagramVersion{ID: "v2", DiagramSource: "flowchart TD"}))
	handler := api.Handler()

	t.Run("List", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/versions", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		var versions []services.DiagramVersion
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &versions))
		require.Len(t, versions, 2)
		assert.Equal(t, "v1", versions[0].ID)
	})

	t.Run("Get One", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/versions/v2", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		var v services.DiagramVersion
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
		assert.Equal(t, "v2", v.ID)
	})

	t.Run("Get Missing", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/versions/nope", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
