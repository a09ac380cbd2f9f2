package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/denysvitali/immich-go-backend/internal/assets"
	"github.com/denysvitali/immich-go-backend/internal/config"
	"github.com/denysvitali/immich-go-backend/internal/storage"
)

// Handlers binds the queue's task types to asset-pipeline work.
type Handlers struct {
	assetService   *assets.Service
	storageService *storage.Service
	logger         *logrus.Logger
}

// NewHandlers creates new job handlers
func NewHandlers(assetService *assets.Service, storageService *storage.Service) *Handlers {
	return &Handlers{
		assetService:   assetService,
		storageService: storageService,
		logger:         logrus.StandardLogger(),
	}
}

func assetIDFromPayload(task *asynq.Task) (uuid.UUID, *JobPayload, error) {
	var payload JobPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return uuid.UUID{}, nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	assetIDStr, ok := payload.Data["asset_id"].(string)
	if !ok {
		return uuid.UUID{}, nil, fmt.Errorf("invalid asset_id in payload")
	}
	assetID, err := uuid.Parse(assetIDStr)
	if err != nil {
		return uuid.UUID{}, nil, fmt.Errorf("invalid asset UUID: %w", err)
	}
	return assetID, &payload, nil
}

// HandleThumbnailGeneration regenerates an asset's derivatives from
// its stored original.
func (h *Handlers) HandleThumbnailGeneration(ctx context.Context, task *asynq.Task) error {
	assetID, payload, err := assetIDFromPayload(task)
	if err != nil {
		return err
	}

	h.logger.WithFields(logrus.Fields{
		"asset_id": assetID,
		"job_id":   payload.ID,
	}).Info("Generating thumbnails")

	return h.assetService.RegenerateDerivatives(ctx, assetID)
}

// HandleMetadataExtraction re-runs metadata extraction for an asset.
// Locked exif fields survive the pass.
func (h *Handlers) HandleMetadataExtraction(ctx context.Context, task *asynq.Task) error {
	assetID, payload, err := assetIDFromPayload(task)
	if err != nil {
		return err
	}

	h.logger.WithFields(logrus.Fields{
		"asset_id": assetID,
		"job_id":   payload.ID,
	}).Info("Extracting metadata")

	return h.assetService.RefreshMetadata(ctx, assetID)
}

// HandleBlobCleanup deletes orphaned object-store keys: blobs left
// behind by lost duplicate races and by trash purges whose delete
// calls failed.
func (h *Handlers) HandleBlobCleanup(ctx context.Context, task *asynq.Task) error {
	var payload JobPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	raw, ok := payload.Data["paths"].([]interface{})
	if !ok {
		return fmt.Errorf("invalid paths in payload")
	}

	for _, entry := range raw {
		path, ok := entry.(string)
		if !ok {
			continue
		}
		if err := h.storageService.DeleteAsset(ctx, path); err != nil {
			h.logger.WithError(err).WithField("path", path).Warn("blob cleanup failed")
		}
	}
	return nil
}

// RegisterAllHandlers registers the job handlers the feature flags
// allow. Blob cleanup is always on: orphans accumulate regardless of
// which derivative pipelines run.
func (h *Handlers) RegisterAllHandlers(service *Service, features config.FeatureConfig) {
	if features.ThumbnailGenerationEnabled {
		service.RegisterHandler(JobTypeThumbnailGeneration, h.HandleThumbnailGeneration)
	}
	if features.EXIFExtractionEnabled {
		service.RegisterHandler(JobTypeMetadataExtraction, h.HandleMetadataExtraction)
	}
	service.RegisterHandler(JobTypeBlobCleanup, h.HandleBlobCleanup)

	h.logger.Info("Job handlers registered")
}
