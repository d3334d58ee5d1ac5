package agrion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/agrion/agrion/internal/cache"
	"github.com/agrion/agrion/internal/request"
	"github.com/sirupsen/logrus"
)

// HTTPPriceSource reads crop prices from an external feed and caches each quote. When the feed
// is unreachable or returns an unusable quote, the fallback source answers instead.
type HTTPPriceSource struct {
	feedURL  string
	cache    cache.Cache
	ttl      time.Duration
	fallback PriceSource
}

type priceQuote struct {
	CropType   string  `json:"crop_type"`
	PricePerKg float64 `json:"price_per_kg"`
}

func NewHTTPPriceSource(feedURL string, c cache.Cache, ttl time.Duration, fallback PriceSource) *HTTPPriceSource {
	return &HTTPPriceSource{feedURL: feedURL, cache: c, ttl: ttl, fallback: fallback}
}

func priceCacheKey(cropType string) string {
	return fmt.Sprintf("agrion:price:%s", cropType)
}

func (s *HTTPPriceSource) PricePerKg(ctx context.Context, cropType string) (float64, error) {
	var cached float64
	err := s.cache.Get(ctx, priceCacheKey(cropType), &cached)
	switch {
	case err == nil && cached > 0:
		return cached, nil
	case err == nil:
		if err := s.cache.Delete(ctx, priceCacheKey(cropType)); err != nil {
			logrus.WithError(err).Warn("failed to evict invalid cached price")
		}
	case !errors.Is(err, cache.ErrMiss):
		logrus.WithError(err).Warn("price cache read failed")
	}

	price, err := s.fetch(ctx, cropType)
	if err != nil {
		logrus.WithError(err).WithField("crop_type", cropType).Warn("price feed unavailable, using fallback quote")
		return s.fallback.PricePerKg(ctx, cropType)
	}

	if err := s.cache.Set(ctx, priceCacheKey(cropType), price, s.ttl); err != nil {
		logrus.WithError(err).Warn("price cache write failed")
	}
	return price, nil
}

func (s *HTTPPriceSource) fetch(ctx context.Context, cropType string) (float64, error) {
	feed, err := url.Parse(s.feedURL)
	if err != nil {
		return 0, err
	}
	query := feed.Query()
	query.Set("crop", cropType)
	feed.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.String(), nil)
	if err != nil {
		return 0, err
	}

	var quote priceQuote
	if _, err := request.Call(req, &quote); err != nil {
		return 0, err
	}
	if quote.PricePerKg <= 0 {
		return 0, fmt.Errorf("feed returned non-positive price %.4f for %s", quote.PricePerKg, cropType)
	}
	return quote.PricePerKg, nil
}
