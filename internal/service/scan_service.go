package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"save-the-fridge/internal/lookup"
	"save-the-fridge/internal/model"
	"save-the-fridge/internal/scan"

	"github.com/rs/zerolog"
)

const (
	msgScannedNotFound = "Product not found in database. Try entering the barcode manually."
	msgManualNotFound  = "Product not found. Check the barcode and try again."
)

// ScanSession is the camera session the service drives.
type ScanSession interface {
	Start(ctx context.Context, handler scan.Handler) error
	Stop() error
	State() scan.State
	Err() *scan.ScanError
	Device() scan.Device
}

// scanService implements ScanService.
type scanService struct {
	session       ScanSession
	lookup        lookup.Lookup
	lookupTimeout time.Duration
	logger        zerolog.Logger

	mu          sync.Mutex
	pending     *model.ProductInfo
	lastBarcode string
	loading     bool
	lastErr     *model.DomainError
	hints       []string
}

// NewScanService creates a new scan service.
func NewScanService(session ScanSession, lookup lookup.Lookup, lookupTimeout time.Duration, logger zerolog.Logger) ScanService {
	if lookupTimeout <= 0 {
		lookupTimeout = 10 * time.Second
	}
	return &scanService{
		session:       session,
		lookup:        lookup,
		lookupTimeout: lookupTimeout,
		logger:        logger.With().Str("service", "scan").Logger(),
	}
}

// Lookup resolves a manually entered barcode.
func (s *scanService) Lookup(ctx context.Context, barcode string) (*model.ProductInfo, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return nil, model.NewDomainError(model.ErrCodeValidationFailed, "barcode is required")
	}

	info, err := s.lookup.Lookup(ctx, barcode)
	if err != nil {
		s.logger.Warn().Err(err).Str("barcode", barcode).Msg("manual lookup failed")
		return nil, err
	}
	if info == nil {
		s.logger.Debug().Str("barcode", barcode).Msg("manual lookup found nothing")
		return nil, model.NewDomainError(model.ErrCodeProductNotFound, msgManualNotFound)
	}

	s.mu.Lock()
	s.pending = info
	s.lastBarcode = barcode
	s.lastErr = nil
	s.hints = nil
	s.mu.Unlock()

	return info, nil
}

// Start begins a scan. A failed session is reset first.
func (s *scanService) Start(ctx context.Context) (*model.ScanStatus, error) {
	if s.session.State() == scan.StateFailed {
		if err := s.session.Stop(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to reset scanner")
		}
	}

	s.mu.Lock()
	s.lastErr = nil
	s.hints = nil
	s.mu.Unlock()

	lookupCtx := context.WithoutCancel(ctx)
	err := s.session.Start(ctx, func(barcode string) {
		s.handleDecoded(lookupCtx, barcode)
	})

	switch {
	case err == nil:
	case errors.Is(err, scan.ErrSessionActive):
		return nil, model.ErrScanInProgress
	default:
		var scanErr *scan.ScanError
		if errors.As(err, &scanErr) {
			domainErr := model.NewDomainError(scanErr.Code(), scanErr.Message())
			s.mu.Lock()
			s.lastErr = domainErr
			s.hints = scanErr.Hints()
			s.mu.Unlock()
			return nil, domainErr
		}
		s.logger.Warn().Err(err).Msg("scanner start did not complete")
		return nil, model.NewDomainError(model.ErrCodeCameraFailure, "Scanner start was interrupted")
	}

	return s.Status(ctx), nil
}

// Stop ends the current scan.
func (s *scanService) Stop(ctx context.Context) (*model.ScanStatus, error) {
	if err := s.session.Stop(); err != nil {
		s.logger.Error().Err(err).Msg("failed to stop scanner")
		return nil, err
	}
	return s.Status(ctx), nil
}

// Status reports the scanner state.
func (s *scanService) Status(ctx context.Context) *model.ScanStatus {
	state := s.session.State()
	device := s.session.Device()
	sessionErr := s.session.Err()

	s.mu.Lock()
	defer s.mu.Unlock()

	status := &model.ScanStatus{
		State:       string(state),
		LastBarcode: s.lastBarcode,
		Loading:     s.loading,
		Hints:       s.hints,
	}
	if state == scan.StateActive {
		status.Device = device.Label
	}
	if s.pending != nil {
		pending := *s.pending
		status.Pending = &pending
	}
	switch {
	case s.lastErr != nil:
		status.Error = s.lastErr.Message
		status.ErrorCode = s.lastErr.Code
	case state == scan.StateFailed && sessionErr != nil:
		status.Error = sessionErr.Message()
		status.ErrorCode = sessionErr.Code()
		status.Hints = sessionErr.Hints()
	}
	return status
}

// TakePending returns and clears the pending product when its barcode matches.
func (s *scanService) TakePending(barcode string) (*model.ProductInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil || s.pending.Barcode != strings.TrimSpace(barcode) {
		return nil, false
	}
	info := s.pending
	s.pending = nil
	return info, true
}

// handleDecoded looks up a decoded barcode. It runs on the decoder's goroutine.
func (s *scanService) handleDecoded(ctx context.Context, barcode string) {
	s.mu.Lock()
	s.loading = true
	s.lastBarcode = barcode
	s.lastErr = nil
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
	defer cancel()

	info, err := s.lookup.Lookup(ctx, barcode)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false

	switch {
	case err != nil:
		s.logger.Warn().Err(err).Str("barcode", barcode).Msg("lookup of scanned barcode failed")
		s.lastErr = model.ErrLookupUnavailable
	case info == nil:
		s.logger.Info().Str("barcode", barcode).Msg("scanned barcode not in database")
		s.lastErr = model.NewDomainError(model.ErrCodeProductNotFound, msgScannedNotFound)
	default:
		s.logger.Info().Str("barcode", barcode).Str("name", info.Name).Msg("scanned product resolved")
		s.pending = info
	}
}
