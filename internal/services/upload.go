package services

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// UploadService stores participant images on disk. Files arrive either
// whole or as numbered chunks that are assembled once the last one lands.
// Stored images get an optimization pass before their URL is handed back.
type UploadService struct {
	uploadDir string
	chunksDir string
	maxSize   int64
}

func NewUploadService(uploadDir string, maxSize int64) (*UploadService, error) {
	chunksDir := filepath.Join(uploadDir, "chunks")
	for _, dir := range []string{uploadDir, chunksDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create upload dir %s: %w", dir, err)
		}
	}
	return &UploadService{
		uploadDir: uploadDir,
		chunksDir: chunksDir,
		maxSize:   maxSize,
	}, nil
}

func (s *UploadService) MaxSize() int64 {
	return s.maxSize
}

// Validate rejects uploads outside the image allow-list or over the size cap.
func (s *UploadService) Validate(contentType string, size int64) error {
	if !allowedImageTypes[contentType] {
		return fmt.Errorf("%w: unsupported file type %q", ErrValidation, contentType)
	}
	if size > s.maxSize {
		return fmt.Errorf("%w: file too large (max %d bytes)", ErrValidation, s.maxSize)
	}
	return nil
}

// SaveUpload writes a whole file under a unique name and returns its path.
func (s *UploadService) SaveUpload(src io.Reader, originalName string) (string, error) {
	name := fmt.Sprintf("%d-%s%s", time.Now().UnixNano(), uuid.NewString()[:8], safeExt(originalName))
	path := filepath.Join(s.uploadDir, name)
	if err := writeFile(path, src); err != nil {
		return "", err
	}
	return path, nil
}

// SaveChunk stores one numbered piece of a chunked upload.
func (s *UploadService) SaveChunk(src io.Reader, identifier string, chunkNumber int) error {
	if err := validateIdentifier(identifier); err != nil {
		return err
	}
	path := filepath.Join(s.chunksDir, fmt.Sprintf("%s_%d", identifier, chunkNumber))
	return writeFile(path, src)
}

// AssembleChunks concatenates all chunks of an identifier, in order, into a
// single file and removes the chunks. Fails if any chunk is missing.
func (s *UploadService) AssembleChunks(identifier string, totalChunks int, originalName string) (string, error) {
	if err := validateIdentifier(identifier); err != nil {
		return "", err
	}
	if totalChunks < 1 {
		return "", fmt.Errorf("%w: invalid chunk count %d", ErrValidation, totalChunks)
	}

	for i := 0; i < totalChunks; i++ {
		if _, err := os.Stat(s.chunkPath(identifier, i)); err != nil {
			return "", fmt.Errorf("%w: chunk %d of %d missing", ErrValidation, i, totalChunks)
		}
	}

	finalPath := filepath.Join(s.uploadDir, identifier+safeExt(originalName))
	out, err := os.Create(finalPath)
	if err != nil {
		return "", fmt.Errorf("assemble chunks: %w", err)
	}
	defer out.Close()

	for i := 0; i < totalChunks; i++ {
		chunkPath := s.chunkPath(identifier, i)
		chunk, err := os.Open(chunkPath)
		if err != nil {
			return "", fmt.Errorf("assemble chunks: %w", err)
		}
		_, err = io.Copy(out, chunk)
		chunk.Close()
		if err != nil {
			return "", fmt.Errorf("assemble chunks: %w", err)
		}
		os.Remove(chunkPath)
	}

	return finalPath, nil
}

// Optimize re-encodes an image to fit within 1920x1080 (never enlarging)
// and writes it next to the original with an _optimized suffix.
func (s *UploadService) Optimize(path string) (string, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return "", fmt.Errorf("optimize %s: %w", path, err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	optimizedPath := strings.TrimSuffix(path, ext) + "_optimized" + ext

	resized := imaging.Fit(img, 1920, 1080, imaging.Lanczos)
	if err := imaging.Save(resized, optimizedPath, imaging.JPEGQuality(80)); err != nil {
		return "", fmt.Errorf("optimize %s: %w", path, err)
	}

	return optimizedPath, nil
}

func (s *UploadService) chunkPath(identifier string, chunkNumber int) string {
	return filepath.Join(s.chunksDir, fmt.Sprintf("%s_%d", identifier, chunkNumber))
}

func writeFile(path string, src io.Reader) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write upload: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, src); err != nil {
		return fmt.Errorf("write upload: %w", err)
	}
	return nil
}

// validateIdentifier keeps client-supplied identifiers inside the chunks dir.
func validateIdentifier(identifier string) error {
	if identifier == "" || identifier != filepath.Base(identifier) || strings.Contains(identifier, "..") {
		return fmt.Errorf("%w: invalid upload identifier", ErrValidation)
	}
	return nil
}

func safeExt(originalName string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(originalName)))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif":
		return ext
	default:
		return ".jpg"
	}
}
