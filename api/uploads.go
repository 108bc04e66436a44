package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iraa22/WHEELWISE-B/internal/domain"
	"github.com/iraa22/WHEELWISE-B/internal/metrics"
	"github.com/iraa22/WHEELWISE-B/internal/service/form"
)

// multipartOverhead leaves room for part headers and boundaries around the file.
const multipartOverhead = 64 << 10

type Uploader interface {
	Upload(ctx context.Context, path, contentType string, data []byte) (string, error)
}

type UploadHandler struct {
	uploader Uploader
	maxBytes int64
	now      func() time.Time
	metrics  *metrics.Metrics
}

func NewUploadHandler(uploader Uploader, maxBytes int64, m *metrics.Metrics) *UploadHandler {
	return &UploadHandler{uploader: uploader, maxBytes: maxBytes, now: time.Now, metrics: m}
}

func (h *UploadHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.upload)
}

func (h *UploadHandler) upload(c *gin.Context) {
	if h.maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+multipartOverhead)
	}
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("file exceeds %d bytes", h.maxBytes)})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field \"file\" is required"})
		return
	}
	if h.maxBytes > 0 && header.Size > h.maxBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("file exceeds %d bytes", h.maxBytes)})
		return
	}

	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contentType := http.DetectContentType(data)
	if !form.IsImage(contentType) {
		h.count(form.ErrNotImage)
		c.JSON(http.StatusBadRequest, gin.H{"error": form.ErrNotImage.Error()})
		return
	}

	path := form.UploadPath(h.now(), contentType)
	url, err := h.uploader.Upload(c.Request.Context(), path, contentType, data)
	h.count(err)
	if err != nil {
		writeError(c, &domain.UploadError{Path: path, Err: err})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": url, "path": path})
}

func (h *UploadHandler) count(err error) {
	if h.metrics != nil {
		h.metrics.Uploads.WithLabelValues(metrics.Outcome(err)).Inc()
	}
}
