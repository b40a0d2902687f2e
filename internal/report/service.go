package report

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mhan/momo/internal/contracts"
	"github.com/mhan/momo/pkg/logger"
)

// Service runs the full publishing step: compose, render, rebuild the
// site index, and optionally mail the page
// ⭐ SSOT: report publishing entrypoint
type Service struct {
	builder   *Builder
	renderer  *Renderer
	site      *Site
	mailer    *Mailer
	reportDir string
	logger    *logger.Logger
}

// NewService creates a new Service instance
func NewService(
	builder *Builder,
	renderer *Renderer,
	site *Site,
	mailer *Mailer,
	reportDir string,
	log *logger.Logger,
) *Service {
	return &Service{
		builder:   builder,
		renderer:  renderer,
		site:      site,
		mailer:    mailer,
		reportDir: reportDir,
		logger:    log.WithComponent("report"),
	}
}

// Generate builds and publishes the report for one run date. Returns
// the written report path. A mail failure is logged but does not fail
// the run; the page is already published by then.
func (s *Service) Generate(ctx context.Context, runDate time.Time) (string, error) {
	start := time.Now()

	model, err := s.builder.Build(ctx, runDate)
	if err != nil {
		return "", err
	}

	path, err := s.renderer.WriteFile(model, s.reportDir)
	if err != nil {
		return "", err
	}

	if _, err := s.site.RebuildIndex(); err != nil {
		return "", err
	}

	if err := s.mailReport(model, path); err != nil {
		s.logger.WithError(err).Warn("Report mail failed")
	}

	s.logger.WithFields(map[string]interface{}{
		"run_date": contracts.FormatDate(model.RunDate),
		"path":     path,
		"duration": time.Since(start).String(),
	}).Info("Report generated")
	return path, nil
}

func (s *Service) mailReport(model *Model, path string) error {
	if !s.mailer.Enabled() {
		return nil
	}
	html, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read report for mail: %w", err)
	}
	subject := fmt.Sprintf("Momentum Report – %s", model.HumanDate())
	return s.mailer.Send(subject, html)
}
