package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"mime/multipart"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/repository"
)

var ErrUnsupportedMedia = errors.New("unsupported file type")

var allowedMediaTypes = map[string]struct{}{
	"mp4": {}, "mov": {}, "jpeg": {}, "png": {}, "jpg": {},
}

// MediaService stores uploaded images and videos so their public URLs can be
// handed to the platforms as image_url or video_url.
type MediaService interface {
	Upload(ctx context.Context, userID int64, file *multipart.FileHeader) (*models.MediaAsset, error)
	List(ctx context.Context, userID int64) ([]*models.MediaAsset, error)
}

type mediaService struct {
	storage ObjectStorage
	ma      repository.MediaAssetRepository
}

func NewMediaService(storage ObjectStorage, ma repository.MediaAssetRepository) MediaService {
	return &mediaService{storage: storage, ma: ma}
}

func (s *mediaService) Upload(ctx context.Context, userID int64, file *multipart.FileHeader) (*models.MediaAsset, error) {
	if userID == 0 {
		err := errors.New("UserID is not valid")
		slog.Info(err.Error())
		return nil, err
	}

	fileContent, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}
	defer fileContent.Close()

	fileBytes, err := io.ReadAll(fileContent)
	if err != nil {
		return nil, fmt.Errorf("error reading file content: %w", err)
	}

	return s.save(ctx, userID, fileBytes)
}

func (s *mediaService) save(ctx context.Context, userID int64, fileBytes []byte) (*models.MediaAsset, error) {
	fileType, err := filetype.Match(fileBytes)
	if err != nil || fileType == types.Unknown {
		return nil, ErrUnsupportedMedia
	}
	if _, ok := allowedMediaTypes[fileType.Extension]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMedia, fileType.Extension)
	}

	id, err := gonanoid.New()
	if err != nil {
		log.Println(err.Error())
		return nil, err
	}
	key := id + "." + fileType.Extension

	if err := s.storage.Upload(ctx, key, fileBytes, fileType.MIME.Value); err != nil {
		return nil, fmt.Errorf("error uploading file: %w", err)
	}

	asset := &models.MediaAsset{
		UserID:   userID,
		FileName: key,
		FileType: fileType.MIME.Value,
		FileSize: int64(len(fileBytes)),
		FileURL:  s.storage.PublicURL(key),
	}

	asset.ID, err = s.ma.Create(ctx, asset)
	if err != nil {
		return nil, err
	}

	return asset, nil
}

func (s *mediaService) List(ctx context.Context, userID int64) ([]*models.MediaAsset, error) {
	if userID == 0 {
		err := errors.New("UserID is not valid")
		slog.Info(err.Error())
		return nil, err
	}
	return s.ma.ListByUserID(ctx, userID)
}
