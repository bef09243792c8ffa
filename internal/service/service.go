package service

import (
	"context"

	"save-the-fridge/internal/model"
)

// InventoryService defines operations on the tracked products.
type InventoryService interface {
	// List returns all products ordered by expiry date with their classification.
	List(ctx context.Context) ([]model.ProductView, error)

	// Get retrieves a single product by ID.
	Get(ctx context.Context, id int64) (*model.ProductView, error)

	// Add creates a product from the request, using a pending scanned product
	// for missing metadata. When the product is kept but could not be saved,
	// both the product and an ErrPersistFailed error are returned.
	Add(ctx context.Context, req *model.AddProductRequest) (*model.Product, error)

	// Update applies a partial update. Like Add, a change that could not be
	// saved returns the product with an ErrPersistFailed error.
	Update(ctx context.Context, id int64, update *model.ProductUpdate) (*model.Product, error)

	// Remove deletes a product. confirmed must be true. ErrPersistFailed means
	// the product is gone from the inventory but the removal was not saved.
	Remove(ctx context.Context, id int64, confirmed bool) error

	// Notifications returns the current notification set.
	Notifications(ctx context.Context) []model.Notification
}

// ScanService defines the scan-to-lookup flow.
type ScanService interface {
	// Lookup resolves a manually entered barcode and makes it the pending product.
	Lookup(ctx context.Context, barcode string) (*model.ProductInfo, error)

	// Start begins a scan. A decoded barcode is looked up in the background.
	Start(ctx context.Context) (*model.ScanStatus, error)

	// Stop ends the current scan, if any.
	Stop(ctx context.Context) (*model.ScanStatus, error)

	// Status reports the scanner state, pending product and last error.
	Status(ctx context.Context) *model.ScanStatus

	// TakePending returns and clears the pending product when its barcode matches.
	TakePending(barcode string) (*model.ProductInfo, bool)
}
