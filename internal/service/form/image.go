package form

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/iraa22/WHEELWISE-B/internal/domain"
	"github.com/iraa22/WHEELWISE-B/internal/metrics"
	"go.uber.org/zap"
)

// LocalImage is an image the user picked on their device, not yet uploaded.
type LocalImage struct {
	Name        string
	ContentType string
	Data        []byte
}

// ImagePicker lets the user choose a local image. It returns nil, nil when the
// user cancels.
type ImagePicker interface {
	Pick(ctx context.Context) (*LocalImage, error)
}

type ImagePickerFunc func(ctx context.Context) (*LocalImage, error)

func (f ImagePickerFunc) Pick(ctx context.Context) (*LocalImage, error) { return f(ctx) }

// ErrNotImage rejects picks that are not image files.
var ErrNotImage = errors.New("please select a valid image file")

// ReadImageFile loads a file from disk and sniffs its content type.
func ReadImageFile(path string) (*LocalImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &LocalImage{
		Name:        filepath.Base(path),
		ContentType: http.DetectContentType(data),
		Data:        data,
	}, nil
}

// PickImage runs the picker and uploads the result. The draft image changes
// only when the upload returns a URL; any failure puts the placeholder back and
// returns a *domain.UploadError. A cancelled pick leaves the draft untouched.
func (c *Controller) PickImage(ctx context.Context, picker ImagePicker) error {
	img, err := picker.Pick(ctx)
	if err != nil {
		c.revertImage()
		return &domain.UploadError{Err: err}
	}
	if img == nil {
		return nil
	}
	return c.UploadImage(ctx, *img)
}

func (c *Controller) UploadImage(ctx context.Context, img LocalImage) error {
	if !IsImage(img.ContentType) || len(img.Data) == 0 {
		c.revertImage()
		c.countUpload(ErrNotImage)
		return &domain.UploadError{Path: img.Name, Err: ErrNotImage}
	}

	c.mu.Lock()
	if c.uploading {
		c.mu.Unlock()
		return &domain.UploadError{Path: img.Name, Err: errors.New("another upload is in progress")}
	}
	c.uploading = true
	c.mu.Unlock()

	path := UploadPath(c.now(), img.ContentType)
	url, err := c.uploader.Upload(ctx, path, img.ContentType, img.Data)
	c.countUpload(err)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.uploading = false
	if err != nil {
		c.draft.Image = c.placeholder
		c.log.Warn("image upload failed", zap.String("path", path), zap.Error(err))
		return &domain.UploadError{Path: path, Err: err}
	}
	c.draft.Image = url
	return nil
}

// ImageFailed handles a stored image URL that cannot be displayed.
func (c *Controller) ImageFailed() {
	c.revertImage()
}

func (c *Controller) revertImage() {
	c.mu.Lock()
	c.draft.Image = c.placeholder
	c.mu.Unlock()
}

func (c *Controller) countUpload(err error) {
	if c.metrics != nil {
		c.metrics.Uploads.WithLabelValues(metrics.Outcome(err)).Inc()
	}
}

// UploadPath names a new blob under goals/. The millisecond prefix keeps
// listings in upload order and the random suffix keeps concurrent uploads
// from sharing a key.
func UploadPath(at time.Time, contentType string) string {
	return fmt.Sprintf("goals/%d-%s%s", at.UnixMilli(), uuid.NewString(), extension(contentType))
}

// IsImage reports whether a sniffed content type is an image.
func IsImage(contentType string) bool {
	return strings.HasPrefix(contentType, "image/")
}

func extension(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
