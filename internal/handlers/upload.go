package handlers

import (
	"io"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/skogeo/hear-me-out-cake/internal/services"

	"github.com/gin-gonic/gin"
)

type UploadHandler struct {
	uploadService *services.UploadService
}

func NewUploadHandler(uploadService *services.UploadService) *UploadHandler {
	return &UploadHandler{uploadService: uploadService}
}

// Upload godoc
// @Summary      Upload an image
// @Description  Accepts a whole file, or one chunk of a chunked upload (identifier, chunkNumber, totalChunks, isChunked). The final chunk triggers assembly. Returns the stored image URL.
// @Tags         upload
// @Accept       multipart/form-data
// @Produce      json
// @Param        file formData file true "Image file or chunk"
// @Success      200 {object} map[string]interface{}
// @Failure      400 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /api/upload [post]
func (h *UploadHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "no file uploaded"})
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if err := h.uploadService.Validate(contentType, fileHeader.Size); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to read upload"})
		return
	}
	defer file.Close()

	if c.PostForm("isChunked") == "true" {
		h.uploadChunk(c, file, fileHeader.Filename)
		return
	}

	path, err := h.uploadService.SaveUpload(file, fileHeader.Filename)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to save file"})
		return
	}
	h.finish(c, path)
}

func (h *UploadHandler) uploadChunk(c *gin.Context, file io.Reader, originalName string) {
	identifier := c.PostForm("identifier")
	chunkNumber, err := strconv.Atoi(c.PostForm("chunkNumber"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid chunkNumber"})
		return
	}
	totalChunks, err := strconv.Atoi(c.PostForm("totalChunks"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid totalChunks"})
		return
	}

	if err := h.uploadService.SaveChunk(file, identifier, chunkNumber); err != nil {
		c.JSON(statusFor(err), ErrorResponse{Error: err.Error()})
		return
	}

	if chunkNumber != totalChunks-1 {
		c.JSON(http.StatusOK, SuccessResponse{Success: true})
		return
	}

	path, err := h.uploadService.AssembleChunks(identifier, totalChunks, originalName)
	if err != nil {
		c.JSON(statusFor(err), ErrorResponse{Error: err.Error()})
		return
	}
	h.finish(c, path)
}

func (h *UploadHandler) finish(c *gin.Context, path string) {
	optimized, err := h.uploadService.Optimize(path)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "image optimization failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"url":     "/uploads/" + filepath.Base(optimized),
		"success": true,
	})
}
