package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"nhanhsync/internal/models"
	"nhanhsync/internal/sync"
)

// Media downloads remote product images into a local directory and records
// each one as an attachment. The source URL is the dedup key.
type Media struct {
	db     *gorm.DB
	client *http.Client
	dir    string
}

const maxImageSize = 10 << 20 // 10 MiB

func NewMedia(db *gorm.DB, dir string) *Media {
	return &Media{
		db:     db,
		client: &http.Client{Timeout: 30 * time.Second},
		dir:    dir,
	}
}

func (s *Media) AttachmentBySourceURL(ctx context.Context, url string) (string, error) {
	var attachment models.Attachment
	err := s.db.WithContext(ctx).First(&attachment, "source_url = ?", url).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", sync.ErrNotFound
		}
		return "", err
	}
	return attachment.ID, nil
}

// ImportFromURL downloads an image and registers it. A second import of the
// same URL returns the existing attachment instead of downloading again.
func (s *Media) ImportFromURL(ctx context.Context, url string) (string, error) {
	if id, err := s.AttachmentBySourceURL(ctx, url); err == nil {
		return id, nil
	} else if !errors.Is(err, sync.ErrNotFound) {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build image request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download image %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image download %s returned status %d", url, resp.StatusCode)
	}

	fileName := path.Base(req.URL.Path)
	if fileName == "." || fileName == "/" {
		fileName = "image"
	}
	id := uuid.New().String()
	localPath := filepath.Join(s.dir, id+"_"+fileName)

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", err
	}
	out, err := os.Create(localPath)
	if err != nil {
		return "", err
	}
	_, copyErr := io.Copy(out, io.LimitReader(resp.Body, maxImageSize))
	closeErr := out.Close()
	if copyErr != nil {
		os.Remove(localPath)
		return "", fmt.Errorf("failed to store image %s: %w", url, copyErr)
	}
	if closeErr != nil {
		os.Remove(localPath)
		return "", closeErr
	}

	attachment := models.Attachment{
		ID:        id,
		SourceURL: url,
		FileName:  fileName,
		MimeType:  resp.Header.Get("Content-Type"),
		Path:      localPath,
	}
	if err := s.db.WithContext(ctx).Create(&attachment).Error; err != nil {
		os.Remove(localPath)
		return "", err
	}
	return attachment.ID, nil
}
