package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/supportmesh"
	"github.com/hupe1980/supportmesh/records"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	mesh, err := supportmesh.New(func(o *supportmesh.Options) {
		o.Records = records.NewInMemoryClient(records.Record{
			Ref:    "cust-1",
			Fields: map[string]string{"name": "Ada Lovelace"},
		})
	})
	require.NoError(t, err)
	return NewServer(mesh).Handler()
}

func postMessage(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/message", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPostMessage(t *testing.T) {
	h := newTestHandler(t)

	rec := postMessage(t, h, `{"message":"I was charged twice and want a refund.","metadata":{"customer_ref":"cust-1"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp struct {
		DiscussionID   string `json:"discussion_id"`
		Response       string `json:"response"`
		WaitingForUser bool   `json:"waiting_for_user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.DiscussionID)
	assert.NotEmpty(t, resp.Response)
	assert.True(t, resp.WaitingForUser)
}

func TestPostMessage_ContinuesDiscussion(t *testing.T) {
	h := newTestHandler(t)

	rec := postMessage(t, h, `{"message":"I want a refund.","metadata":{"customer_ref":"cust-1"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var first struct {
		DiscussionID string `json:"discussion_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))

	rec = postMessage(t, h, `{"discussion_id":"`+first.DiscussionID+`","message":"Yes, please confirm."}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var second struct {
		DiscussionID   string `json:"discussion_id"`
		Response       string `json:"response"`
		WaitingForUser bool   `json:"waiting_for_user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.Equal(t, first.DiscussionID, second.DiscussionID)
	assert.False(t, second.WaitingForUser)
	assert.Contains(t, second.Response, "Refund processed")
}

func TestPostMessage_BadRequest(t *testing.T) {
	h := newTestHandler(t)

	rec := postMessage(t, h, `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postMessage(t, h, `{"message":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetConversation(t *testing.T) {
	h := newTestHandler(t)

	rec := postMessage(t, h, `{"message":"I want a refund.","metadata":{"customer_ref":"cust-1"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		DiscussionID string `json:"discussion_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	req := httptest.NewRequest(http.MethodGet, "/conversation/"+resp.DiscussionID, nil)
	got := httptest.NewRecorder()
	h.ServeHTTP(got, req)
	require.Equal(t, http.StatusOK, got.Code)

	var conv struct {
		DiscussionID    string `json:"discussion_id"`
		CurrentCategory string `json:"current_category"`
	}
	require.NoError(t, json.Unmarshal(got.Body.Bytes(), &conv))
	assert.Equal(t, resp.DiscussionID, conv.DiscussionID)
	assert.Equal(t, "billing", conv.CurrentCategory)
}

func TestGetConversation_NotFound(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/conversation/never-seen", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteConversation(t *testing.T) {
	h := newTestHandler(t)

	rec := postMessage(t, h, `{"message":"I want a refund.","metadata":{"customer_ref":"cust-1"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		DiscussionID string `json:"discussion_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	req := httptest.NewRequest(http.MethodDelete, "/conversation/"+resp.DiscussionID, nil)
	del := httptest.NewRecorder()
	h.ServeHTTP(del, req)
	assert.Equal(t, http.StatusOK, del.Code)

	req = httptest.NewRequest(http.MethodDelete, "/conversation/"+resp.DiscussionID, nil)
	del = httptest.NewRecorder()
	h.ServeHTTP(del, req)
	assert.Equal(t, http.StatusNotFound, del.Code)
}

func TestListConversations(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/conversations", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	postMessage(t, h, `{"message":"I want a refund.","metadata":{"customer_ref":"cust-1"}}`)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/conversations", nil))
	var ids []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ids))
	assert.Len(t, ids, 1)
}

func TestListCategories(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/categories", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var cats []struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cats))
	assert.NotEmpty(t, cats)
}
