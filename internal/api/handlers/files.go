package handlers

import (
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/your-org/gjmugshots/internal/storage"
)

// FileHandler streams mugshot images and source roster PDFs out of
// object storage.
type FileHandler struct {
	minio *storage.MinIOStore
}

func NewFileHandler(minio *storage.MinIOStore) *FileHandler {
	return &FileHandler{minio: minio}
}

// PDF streams a source roster PDF. Only bare .pdf filenames are
// accepted; path separators and traversal are rejected outright.
func (h *FileHandler) PDF(c *gin.Context) {
	filename := c.Param("filename")
	if !strings.HasSuffix(strings.ToLower(filename), ".pdf") ||
		strings.Contains(filename, "..") || strings.ContainsAny(filename, "/\\") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filename"})
		return
	}

	obj, size, err := h.minio.GetObjectStream(c.Request.Context(), storage.PDFPrefix+filename)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "pdf not found"})
		return
	}
	defer obj.Close()

	c.DataFromReader(http.StatusOK, size, "application/pdf", obj, map[string]string{
		"Content-Disposition": `inline; filename="` + filename + `"`,
	})
}

// Image serves a mugshot by its path under the images/ prefix.
func (h *FileHandler) Image(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("path"), "/")
	if key == "" || strings.Contains(key, "..") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image path"})
		return
	}

	data, err := h.minio.GetObject(c.Request.Context(), storage.ImagePrefix+key)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "image not found"})
		return
	}

	c.Data(http.StatusOK, imageContentType(key), data)
}

func imageContentType(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
