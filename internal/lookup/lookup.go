// Package lookup resolves barcodes to product metadata through Open Food Facts.
package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"save-the-fridge/internal/config"
	"save-the-fridge/internal/model"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// maxBodyBytes bounds the response body read from the remote database.
const maxBodyBytes = 4 << 20

// Lookup resolves a barcode. A nil ProductInfo with a nil error means the
// barcode is not in the remote database.
type Lookup interface {
	Lookup(ctx context.Context, barcode string) (*model.ProductInfo, error)
}

// offResponse is the subset of the Open Food Facts v0 product payload we read.
type offResponse struct {
	Status  int `json:"status"`
	Product struct {
		ProductName   string `json:"product_name"`
		ProductNameEN string `json:"product_name_en"`
		GenericName   string `json:"generic_name"`
		Brands        string `json:"brands"`
		ImageFrontURL string `json:"image_front_url"`
		ImageURL      string `json:"image_url"`
	} `json:"product"`
}

type client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
	logger    zerolog.Logger
}

// NewClient creates an Open Food Facts client.
func NewClient(cfg config.LookupConfig, logger zerolog.Logger) Lookup {
	return newClient(cfg, &http.Client{Timeout: cfg.Timeout}, logger)
}

func newClient(cfg config.LookupConfig, httpClient *http.Client, logger zerolog.Logger) *client {
	perMinute := cfg.RatePerMinute
	if perMinute <= 0 {
		perMinute = 1
	}
	return &client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		http:      httpClient,
		limiter:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
		logger:    logger.With().Str("component", "product-lookup").Logger(),
	}
}

func (c *client) Lookup(ctx context.Context, barcode string) (*model.ProductInfo, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return nil, model.NewDomainError(model.ErrCodeValidationFailed, "Barcode is required")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %v", model.ErrLookupUnavailable, err)
	}

	endpoint := fmt.Sprintf("%s/api/v0/product/%s.json", c.baseURL, url.PathEscape(barcode))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrLookupUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("barcode", barcode).Msg("product lookup request failed")
		return nil, fmt.Errorf("%w: %v", model.ErrLookupUnavailable, err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("barcode", barcode).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("product lookup completed")

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: unexpected status %d", model.ErrLookupUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", model.ErrLookupUnavailable, err)
	}

	var payload offResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: decoding body: %v", model.ErrLookupUnavailable, err)
	}

	if payload.Status != 1 {
		return nil, nil
	}

	return normalise(barcode, payload), nil
}

func normalise(barcode string, payload offResponse) *model.ProductInfo {
	p := payload.Product
	return &model.ProductInfo{
		Barcode: barcode,
		Name:    firstNonEmpty(p.ProductName, p.ProductNameEN, p.GenericName),
		Brand:   strings.TrimSpace(p.Brands),
		Image:   firstNonEmpty(p.ImageFrontURL, p.ImageURL),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
