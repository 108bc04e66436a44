package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockUploader struct {
	mock.Mock
}

func (m *MockUploader) Upload(ctx context.Context, path, contentType string, data []byte) (string, error) {
	args := m.Called(ctx, path, contentType, data)
	return args.String(0), args.Error(1)
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func multipartContext(t *testing.T, field string, data []byte) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, "photo.png")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/uploads", &body)
	c.Request.Header.Set("Content-Type", mw.FormDataContentType())
	return c, w
}

func TestUploadHandler_upload(t *testing.T) {
	uploader := &MockUploader{}
	handler := NewUploadHandler(uploader, 1<<20, nil)
	handler.now = func() time.Time { return time.UnixMilli(1716196542000) }

	c, w := multipartContext(t, "file", pngHeader)
	stored := regexp.MustCompile(`^goals/1716196542000-[0-9a-f-]{36}\.png$`)
	uploader.On("Upload", mock.Anything, mock.MatchedBy(stored.MatchString), "image/png", pngHeader).
		Return("https://cdn.example.com/goals/1716196542000-x.png", nil)

	handler.upload(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var response map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "https://cdn.example.com/goals/1716196542000-x.png", response["url"])
	assert.Regexp(t, stored, response["path"])
	uploader.AssertExpectations(t)
}

func TestUploadHandler_notImage(t *testing.T) {
	uploader := &MockUploader{}
	handler := NewUploadHandler(uploader, 1<<20, nil)

	c, w := multipartContext(t, "file", []byte("just some text"))
	handler.upload(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	uploader.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUploadHandler_missingField(t *testing.T) {
	handler := NewUploadHandler(&MockUploader{}, 1<<20, nil)

	c, w := multipartContext(t, "other", pngHeader)
	handler.upload(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadHandler_tooLarge(t *testing.T) {
	handler := NewUploadHandler(&MockUploader{}, 4, nil)

	c, w := multipartContext(t, "file", pngHeader)
	handler.upload(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadHandler_bodyOverLimitIsNotRead(t *testing.T) {
	uploader := &MockUploader{}
	handler := NewUploadHandler(uploader, 4, nil)

	big := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 2*multipartOverhead)...)
	c, w := multipartContext(t, "file", big)
	handler.upload(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "exceeds 4 bytes")
	uploader.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUploadHandler_storageFailure(t *testing.T) {
	uploader := &MockUploader{}
	handler := NewUploadHandler(uploader, 1<<20, nil)

	c, w := multipartContext(t, "file", pngHeader)
	uploader.On("Upload", mock.Anything, mock.Anything, "image/png", pngHeader).
		Return("", errors.New("bucket unreachable"))

	handler.upload(c)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}
