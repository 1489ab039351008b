package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

// HTTPTestHelper provides utilities for HTTP testing
type HTTPTestHelper struct {
	t      *testing.T
	router http.Handler
	token  string
}

// NewHTTPTestHelper creates a new HTTP test helper
func NewHTTPTestHelper(t *testing.T) *HTTPTestHelper {
	gin.SetMode(gin.TestMode)
	return &HTTPTestHelper{
		t:      t,
		router: gin.New(),
	}
}

// SetRouter sets the router to use for testing
func (h *HTTPTestHelper) SetRouter(router http.Handler) {
	h.router = router
}

// As returns a helper that sends token as a bearer credential
func (h *HTTPTestHelper) As(token string) *HTTPTestHelper {
	return &HTTPTestHelper{t: h.t, router: h.router, token: token}
}

// Do sends a request with an optional body and content type
func (h *HTTPTestHelper) Do(method, url string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req, err := http.NewRequest(method, url, body)
	require.NoError(h.t, err, "Failed to create HTTP request")

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	recorder := httptest.NewRecorder()
	h.router.ServeHTTP(recorder, req)
	return recorder
}

func (h *HTTPTestHelper) sendJSON(method, url string, payload interface{}) *httptest.ResponseRecorder {
	if payload == nil {
		return h.Do(method, url, nil, "")
	}
	body, err := json.Marshal(payload)
	require.NoError(h.t, err, "Failed to marshal JSON payload")
	return h.Do(method, url, bytes.NewReader(body), "application/json")
}

// GetJSON performs a GET request expecting JSON response
func (h *HTTPTestHelper) GetJSON(url string) *httptest.ResponseRecorder {
	return h.Do(http.MethodGet, url, nil, "")
}

// PostJSON performs a POST request with JSON payload
func (h *HTTPTestHelper) PostJSON(url string, payload interface{}) *httptest.ResponseRecorder {
	return h.sendJSON(http.MethodPost, url, payload)
}

// PutJSON performs a PUT request with JSON payload. A nil payload sends no
// body.
func (h *HTTPTestHelper) PutJSON(url string, payload interface{}) *httptest.ResponseRecorder {
	return h.sendJSON(http.MethodPut, url, payload)
}

// Delete performs a DELETE request
func (h *HTTPTestHelper) Delete(url string) *httptest.ResponseRecorder {
	return h.Do(http.MethodDelete, url, nil, "")
}

// FileUpload is one file part of a multipart request
type FileUpload struct {
	Field    string
	Filename string
	Content  []byte
}

// SendMultipart performs a request with form fields and file parts
func (h *HTTPTestHelper) SendMultipart(method, url string, fields map[string]string, files ...FileUpload) *httptest.ResponseRecorder {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for name, value := range fields {
		require.NoError(h.t, writer.WriteField(name, value))
	}
	for _, file := range files {
		part, err := writer.CreateFormFile(file.Field, file.Filename)
		require.NoError(h.t, err)
		_, err = part.Write(file.Content)
		require.NoError(h.t, err)
	}
	require.NoError(h.t, writer.Close())

	return h.Do(method, url, &body, writer.FormDataContentType())
}

// AssertJSONResponse asserts that the response is valid JSON and unmarshals it
func (h *HTTPTestHelper) AssertJSONResponse(recorder *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	require.Equal(h.t, expectedStatus, recorder.Code, "Unexpected status code: %s", recorder.Body.String())
	require.Equal(h.t, "application/json; charset=utf-8", recorder.Header().Get("Content-Type"), "Expected JSON content type")

	err := json.Unmarshal(recorder.Body.Bytes(), target)
	require.NoError(h.t, err, "Failed to unmarshal JSON response")
}

// AssertErrorResponse asserts that the response carries the error envelope
func (h *HTTPTestHelper) AssertErrorResponse(recorder *httptest.ResponseRecorder, expectedStatus int, expectedErrorSubstring string) {
	require.Equal(h.t, expectedStatus, recorder.Code, "Unexpected status code: %s", recorder.Body.String())

	var errorResponse map[string]interface{}
	err := json.Unmarshal(recorder.Body.Bytes(), &errorResponse)
	require.NoError(h.t, err, "Failed to unmarshal error response")

	errorMessage, exists := errorResponse["error"]
	require.True(h.t, exists, "Expected error field in response")
	require.Contains(h.t, errorMessage, expectedErrorSubstring, "Error message should contain expected substring")
	require.Equal(h.t, "error", errorResponse["status"])
}
