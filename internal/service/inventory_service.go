package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"save-the-fridge/internal/expiry"
	"save-the-fridge/internal/model"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// ProductStore is the inventory the service operates on.
type ProductStore interface {
	Add(ctx context.Context, info model.ProductInfo, expiryDate string, reminderDays int) (model.Product, error)
	Remove(ctx context.Context, id int64) (bool, error)
	Update(ctx context.Context, id int64, update model.ProductUpdate) (model.Product, bool, error)
	Sorted() []model.Product
	Get(id int64) (model.Product, bool)
	Notifications() []model.Notification
	Policy() expiry.Policy
	Now() time.Time
}

// PendingProducts hands out products resolved by a scan or manual lookup.
type PendingProducts interface {
	TakePending(barcode string) (*model.ProductInfo, bool)
}

// inventoryService implements InventoryService.
type inventoryService struct {
	store    ProductStore
	pending  PendingProducts
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewInventoryService creates a new inventory service. pending may be nil.
func NewInventoryService(store ProductStore, pending PendingProducts, logger zerolog.Logger) InventoryService {
	return &inventoryService{
		store:    store,
		pending:  pending,
		validate: newValidator(),
		logger:   logger.With().Str("service", "inventory").Logger(),
	}
}

// List returns all products ordered by expiry date with their classification.
func (s *inventoryService) List(ctx context.Context) ([]model.ProductView, error) {
	products := s.store.Sorted()
	now := s.store.Now()

	views := make([]model.ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, s.view(p, now))
	}

	s.logger.Debug().Int("count", len(views)).Msg("listed products")
	return views, nil
}

// Get retrieves a single product by ID.
func (s *inventoryService) Get(ctx context.Context, id int64) (*model.ProductView, error) {
	p, ok := s.store.Get(id)
	if !ok {
		s.logger.Debug().Int64("product_id", id).Msg("product not found")
		return nil, model.ErrProductNotFound
	}
	view := s.view(p, s.store.Now())
	return &view, nil
}

// Add creates a product from the request.
func (s *inventoryService) Add(ctx context.Context, req *model.AddProductRequest) (*model.Product, error) {
	if req == nil {
		return nil, model.NewDomainError(model.ErrCodeValidationFailed, "request body is required")
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	info := model.ProductInfo{
		Barcode: strings.TrimSpace(req.Barcode),
		Name:    strings.TrimSpace(req.Name),
		Brand:   strings.TrimSpace(req.Brand),
		Image:   strings.TrimSpace(req.Image),
	}

	if info.Name == "" && info.Barcode != "" && s.pending != nil {
		if scanned, ok := s.pending.TakePending(info.Barcode); ok {
			s.logger.Debug().Str("barcode", info.Barcode).Msg("using pending scanned product")
			info.Name = scanned.Name
			if info.Brand == "" {
				info.Brand = scanned.Brand
			}
			if info.Image == "" {
				info.Image = scanned.Image
			}
		}
	}

	product, err := s.store.Add(ctx, info, req.ExpiryDate, req.ReminderDays)
	if errors.Is(err, model.ErrPersistFailed) {
		s.logger.Error().Err(err).Int64("product_id", product.ID).Msg("product added but not saved")
		return &product, fmt.Errorf("failed to save added product: %w", err)
	}
	if err != nil {
		s.logger.Error().Err(err).Str("barcode", info.Barcode).Msg("failed to add product")
		return nil, fmt.Errorf("failed to add product: %w", err)
	}

	s.logger.Info().
		Int64("product_id", product.ID).
		Str("name", product.Name).
		Str("expiry_date", product.ExpiryDate).
		Msg("product added successfully")

	return &product, nil
}

// Update applies a partial update.
func (s *inventoryService) Update(ctx context.Context, id int64, update *model.ProductUpdate) (*model.Product, error) {
	if update == nil {
		return nil, model.NewDomainError(model.ErrCodeValidationFailed, "request body is required")
	}
	if err := s.validate.Struct(update); err != nil {
		return nil, validationError(err)
	}

	product, found, err := s.store.Update(ctx, id, *update)
	if !found && (err == nil || errors.Is(err, model.ErrPersistFailed)) {
		return nil, model.ErrProductNotFound
	}
	if errors.Is(err, model.ErrPersistFailed) {
		s.logger.Error().Err(err).Int64("product_id", id).Msg("product updated but not saved")
		return &product, fmt.Errorf("failed to save updated product: %w", err)
	}
	if err != nil {
		s.logger.Error().Err(err).Int64("product_id", id).Msg("failed to update product")
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	s.logger.Info().Int64("product_id", id).Msg("product updated successfully")
	return &product, nil
}

// Remove deletes a product after confirmation.
func (s *inventoryService) Remove(ctx context.Context, id int64, confirmed bool) error {
	if !confirmed {
		s.logger.Warn().Int64("product_id", id).Msg("removal not confirmed")
		return model.ErrConfirmationRequired
	}

	removed, err := s.store.Remove(ctx, id)
	if !removed && (err == nil || errors.Is(err, model.ErrPersistFailed)) {
		return model.ErrProductNotFound
	}
	if err != nil {
		s.logger.Error().Err(err).Int64("product_id", id).Msg("failed to remove product")
		return fmt.Errorf("failed to remove product: %w", err)
	}

	s.logger.Info().Int64("product_id", id).Msg("product removed successfully")
	return nil
}

// Notifications returns the current notification set.
func (s *inventoryService) Notifications(ctx context.Context) []model.Notification {
	return s.store.Notifications()
}

func (s *inventoryService) view(p model.Product, now time.Time) model.ProductView {
	view := model.ProductView{Product: p}
	status, err := s.store.Policy().Classify(p.ExpiryDate, now)
	if err != nil {
		s.logger.Warn().Err(err).Int64("product_id", p.ID).Msg("product has an unparsable expiry date")
		return view
	}
	view.DaysLeft = status.DaysLeft
	view.Urgency = string(status.Urgency)
	view.Status = expiry.Label(status)
	return view
}
