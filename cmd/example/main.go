// Command example exercises a full blob and attachment flow against a
// configured backend: ingest a file, attach it to a record, list the
// role's attachments and resolve a download URL.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/laserblob/laserblob/pkg/laserblob"
	"github.com/laserblob/laserblob/pkg/laserblob/config"
)

// EnvConfig holds the knobs specific to this binary; database and storage
// selection goes through config.WithEnv.
type EnvConfig struct {
	SamplePath string `env:"SAMPLE_FILE_PATH" env-default:"./sample.jpg"`
}

// slogLogger adapts slog to the laserblob.Logger interface
type slogLogger struct {
	l *slog.Logger
}

func (s slogLogger) Infof(format string, args ...interface{}) {
	s.l.Info(fmt.Sprintf(format, args...))
}

func (s slogLogger) Errorf(format string, args ...interface{}) {
	s.l.Error(fmt.Sprintf(format, args...))
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	var envCfg EnvConfig
	if err := cleanenv.ReadEnv(&envCfg); err != nil {
		logger.Error("Failed to read environment", "err", err)
		os.Exit(1)
	}

	cfg, err := config.Load(config.WithEnv(""))
	if err != nil {
		logger.Error("Failed to load configuration", "err", err)
		os.Exit(1)
	}

	svc, err := cfg.BuildService(slogLogger{l: logger})
	if err != nil {
		logger.Error("Failed to build service", "err", err)
		os.Exit(1)
	}

	if err := run(context.Background(), svc, envCfg, logger); err != nil {
		logger.Error("Flow failed", "err", err)
		os.Exit(1)
	}

	logger.Info("Flow completed successfully")
}

func run(ctx context.Context, svc laserblob.Service, envCfg EnvConfig, logger *slog.Logger) error {
	// 1. Ingest a file as a blob
	blob, err := svc.CreateBlob(ctx, laserblob.CreateBlobRequest{
		FilePath: envCfg.SamplePath,
	})
	if err != nil {
		return fmt.Errorf("failed to create blob: %w", err)
	}
	logger.Info("Blob created",
		"id", blob.ID,
		"variant", blob.Variant,
		"content_type", blob.ContentType,
		"size", blob.Size)

	// 2. Ingesting the same file again returns the same blob
	again, err := svc.CreateBlob(ctx, laserblob.CreateBlobRequest{
		FilePath: envCfg.SamplePath,
	})
	if err != nil {
		return fmt.Errorf("failed to re-create blob: %w", err)
	}
	logger.Info("Second ingest deduplicated", "same_id", blob.ID == again.ID)

	// 3. Attach the blob to a record under a single-valued role
	owner := laserblob.OwnerRef{Type: "Report", ID: "report-1"}
	roleCfg := laserblob.RoleConfig{
		Role:        "cover",
		Cardinality: laserblob.CardinalityOne,
	}

	att, err := svc.SetAttachment(ctx, owner, roleCfg, &laserblob.AttachmentParams{
		BlobID: &blob.ID,
	})
	if err != nil {
		return fmt.Errorf("failed to attach blob: %w", err)
	}
	logger.Info("Attachment saved", "id", att.ID, "filename", att.Filename)

	// 4. List attachments for the role
	atts, err := svc.ListAttachments(ctx, owner, roleCfg.Role)
	if err != nil {
		return fmt.Errorf("failed to list attachments: %w", err)
	}
	logger.Info("Attachments listed", "count", len(atts))

	// 5. Resolve a download URL
	url, err := svc.AttachmentURL(ctx, att.ID, laserblob.URLOptions{
		Disposition: "attachment",
	})
	if err != nil {
		return fmt.Errorf("failed to resolve URL: %w", err)
	}
	logger.Info("Download URL resolved", "url", url)

	return nil
}
