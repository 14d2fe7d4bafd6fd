package handler

import (
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	maxUploadFiles    = 5
	maxUploadBytes    = 5 * 1024 * 1024 // 5MB per file
	uploadedFileField = "images"
)

// UploadHandler stores repair image attachments on local disk. Stored
// names are random UUIDs with the original extension so uploads never
// collide and client-supplied names never touch the filesystem.
type UploadHandler struct {
	Dir string // destination directory, served under /uploads
}

func NewUploadHandler(dir string) *UploadHandler { return &UploadHandler{Dir: dir} }

// Upload handles POST /api/uploads: multipart field "images", at most 5
// files, each at most 5MB and an image MIME type. Returns the stored
// url/filename pairs that clients attach to a repair record.
func (h *UploadHandler) Upload(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid multipart form"})
	}
	files := form.File[uploadedFileField]
	if len(files) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "No files uploaded"})
	}
	if len(files) > maxUploadFiles {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "too many files"})
	}

	if err := os.MkdirAll(h.Dir, 0o755); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Error uploading files"})
	}

	type storedFile struct {
		URL      string `json:"url"`
		Filename string `json:"filename"`
	}
	stored := []storedFile{}
	for _, fh := range files {
		if fh.Size > maxUploadBytes {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "file too large (5MB limit)"})
		}
		if !strings.HasPrefix(fh.Header.Get("Content-Type"), "image/") {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Only image files are allowed!"})
		}
		name, err := h.saveFile(fh)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Error uploading files"})
		}
		stored = append(stored, storedFile{URL: "/uploads/" + name, Filename: name})
	}
	return c.JSON(http.StatusOK, echo.Map{"files": stored})
}

func (h *UploadHandler) saveFile(fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	name := uuid.NewString() + ext
	dst, err := os.Create(filepath.Join(h.Dir, name))
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, io.LimitReader(src, maxUploadBytes)); err != nil {
		return "", err
	}
	return name, nil
}

// Delete handles DELETE /api/uploads/:filename. The filename must be a
// bare name; anything that looks like a path is rejected before touching
// the filesystem.
func (h *UploadHandler) Delete(c echo.Context) error {
	name := c.Param("filename")
	if name == "" || name != filepath.Base(name) || strings.Contains(name, "..") {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid filename"})
	}
	if err := os.Remove(filepath.Join(h.Dir, name)); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Error deleting file"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "File deleted successfully"})
}
