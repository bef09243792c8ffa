// Package inventory owns the authoritative list of tracked products.
//
// Every mutation runs the same synchronous hook before returning: the whole
// list is written to durable storage and notifications are recomputed from
// scratch under the store lock, then the result is handed to the notifier
// once the lock is released.
package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"save-the-fridge/internal/expiry"
	"save-the-fridge/internal/model"
	"save-the-fridge/internal/storage"

	"github.com/rs/zerolog"
)

// StorageKey is the durable storage key holding the product list.
const StorageKey = "saveTheFridgeProducts"

// Notifier receives the recomputed notification set after every mutation.
type Notifier interface {
	Emit(ctx context.Context, notifications []model.Notification) bool
}

// Options configures a Store.
type Options struct {
	Storage  storage.Store
	Key      string
	Policy   expiry.Policy
	Notifier Notifier
	Now      func() time.Time
	Logger   zerolog.Logger
}

// Store holds the product list. It is safe for concurrent use.
type Store struct {
	mu            sync.Mutex
	products      []model.Product
	notifications []model.Notification
	lastID        int64

	storage  storage.Store
	key      string
	policy   expiry.Policy
	notifier Notifier
	now      func() time.Time
	logger   zerolog.Logger
}

// New creates a store and loads the persisted list once. Absent or malformed
// data starts an empty inventory. A storage read failure is returned.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Storage == nil {
		return nil, fmt.Errorf("inventory storage is required")
	}

	s := &Store{
		storage:  opts.Storage,
		key:      opts.Key,
		policy:   opts.Policy,
		notifier: opts.Notifier,
		now:      opts.Now,
		logger:   opts.Logger.With().Str("store", "inventory").Logger(),
	}
	if s.key == "" {
		s.key = StorageKey
	}
	if s.now == nil {
		s.now = time.Now
	}

	raw, found, err := s.storage.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to load inventory: %w", err)
	}

	if found && strings.TrimSpace(raw) != "" {
		var products []model.Product
		if err := json.Unmarshal([]byte(raw), &products); err != nil {
			s.logger.Error().
				Err(fmt.Errorf("%w: %v", model.ErrMalformedState, err)).
				Str("key", s.key).
				Msg("stored inventory is malformed, starting empty")
		} else {
			s.products = products
		}
	}

	for _, p := range s.products {
		if p.ID > s.lastID {
			s.lastID = p.ID
		}
	}
	s.notifications = expiry.Notifications(s.products, s.now())

	s.logger.Info().Int("products", len(s.products)).Msg("inventory loaded")
	return s, nil
}

// Add validates and appends a new product built from info.
func (s *Store) Add(ctx context.Context, info model.ProductInfo, expiryDate string, reminderDays int) (model.Product, error) {
	expiryDate = strings.TrimSpace(expiryDate)
	if expiryDate == "" {
		return model.Product{}, model.NewDomainError(model.ErrCodeValidationFailed, "Expiry date is required")
	}
	if _, err := expiry.ParseDate(expiryDate); err != nil {
		return model.Product{}, model.NewDomainError(model.ErrCodeValidationFailed, "Expiry date must be YYYY-MM-DD")
	}
	if reminderDays < 0 {
		return model.Product{}, model.NewDomainError(model.ErrCodeValidationFailed, "Reminder days must not be negative")
	}

	s.mu.Lock()

	product := model.Product{
		ID:           s.nextID(),
		Barcode:      info.Barcode,
		Name:         info.Name,
		Brand:        info.Brand,
		Image:        info.Image,
		ExpiryDate:   expiryDate,
		ReminderDays: reminderDays,
	}
	s.products = append(s.products, product)

	s.logger.Info().Int64("product_id", product.ID).Str("name", product.Name).Msg("product added")

	notifications, err := s.afterMutation(ctx)
	s.mu.Unlock()

	s.emit(ctx, notifications)
	return product, err
}

// Remove deletes the product with id. It reports whether a product was removed.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()

	removed := false
	kept := make([]model.Product, 0, len(s.products))
	for _, p := range s.products {
		if p.ID == id {
			removed = true
			continue
		}
		kept = append(kept, p)
	}
	s.products = kept

	if removed {
		s.logger.Info().Int64("product_id", id).Msg("product removed")
	}

	notifications, err := s.afterMutation(ctx)
	s.mu.Unlock()

	s.emit(ctx, notifications)
	return removed, err
}

// Update merges update into the product with id and returns the result.
func (s *Store) Update(ctx context.Context, id int64, update model.ProductUpdate) (model.Product, bool, error) {
	if update.ExpiryDate != nil {
		expiryDate := strings.TrimSpace(*update.ExpiryDate)
		if _, err := expiry.ParseDate(expiryDate); err != nil {
			return model.Product{}, false, model.NewDomainError(model.ErrCodeValidationFailed, "Expiry date must be YYYY-MM-DD")
		}
		update.ExpiryDate = &expiryDate
	}
	if update.ReminderDays != nil && *update.ReminderDays < 0 {
		return model.Product{}, false, model.NewDomainError(model.ErrCodeValidationFailed, "Reminder days must not be negative")
	}

	s.mu.Lock()

	var updated model.Product
	found := false
	for i, p := range s.products {
		if p.ID == id {
			s.products[i] = update.Apply(p)
			updated = s.products[i]
			found = true
			break
		}
	}

	if found {
		s.logger.Info().Int64("product_id", id).Msg("product updated")
	}

	notifications, err := s.afterMutation(ctx)
	s.mu.Unlock()

	s.emit(ctx, notifications)
	return updated, found, err
}

// Products returns a copy of the list in insertion order.
func (s *Store) Products() []model.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Product{}, s.products...)
}

// Sorted returns a copy of the list ordered by expiry date. Products with the
// same date keep their insertion order.
func (s *Store) Sorted() []model.Product {
	products := s.Products()
	sort.SliceStable(products, func(i, j int) bool {
		return products[i].ExpiryDate < products[j].ExpiryDate
	})
	return products
}

// Get returns the product with id.
func (s *Store) Get(id int64) (model.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.products {
		if p.ID == id {
			return p, true
		}
	}
	return model.Product{}, false
}

// Notifications returns the most recently computed notification set.
func (s *Store) Notifications() []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Notification{}, s.notifications...)
}

// Policy returns the expiry policy used for classification.
func (s *Store) Policy() expiry.Policy {
	return s.policy
}

// Now returns the store's current time.
func (s *Store) Now() time.Time {
	return s.now()
}

// Refresh recomputes notifications against the current time and hands them to
// the notifier without changing the list.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	notifications := s.recompute()
	s.mu.Unlock()

	s.emit(ctx, notifications)
	return nil
}

// afterMutation persists the list and recomputes notifications. Callers hold mu
// and emit the returned set after releasing it.
func (s *Store) afterMutation(ctx context.Context) ([]model.Notification, error) {
	err := s.persist(ctx)
	return s.recompute(), err
}

func (s *Store) persist(ctx context.Context) error {
	products := s.products
	if products == nil {
		products = []model.Product{}
	}

	data, err := json.Marshal(products)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrPersistFailed, err)
	}

	if err := s.storage.Set(ctx, s.key, string(data)); err != nil {
		s.logger.Error().Err(err).Str("key", s.key).Msg("failed to persist inventory")
		return fmt.Errorf("%w: %v", model.ErrPersistFailed, err)
	}
	return nil
}

// recompute refreshes the notification set and returns a copy. Callers hold mu.
func (s *Store) recompute() []model.Notification {
	s.notifications = expiry.Notifications(s.products, s.now())
	return append([]model.Notification{}, s.notifications...)
}

// emit hands notifications to the notifier. It must not be called with mu held,
// so a slow alert channel never stalls readers.
func (s *Store) emit(ctx context.Context, notifications []model.Notification) {
	if s.notifier != nil {
		s.notifier.Emit(ctx, notifications)
	}
}

// nextID returns a millisecond timestamp, bumped past the last id when the
// clock has not advanced. Callers hold mu.
func (s *Store) nextID() int64 {
	id := s.now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}
