// Package catalog loads the manifest of bookable profiles and caches it for
// a short TTL, serving stale data when the upstream is unreachable.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// Profile is one bookable subject from the manifest.
type Profile struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	PricePerHour float64  `json:"price_per_hour"`
	Currency     string   `json:"currency"`
	Images       []string `json:"images"`
	URL          string   `json:"url"`
	Deeplink     string   `json:"deeplink"`
	ProductID    int64    `json:"product_id"`
	WorkerID     int64    `json:"worker_id"`
	Tags         []string `json:"tags"`
	Description  string   `json:"description"`
}

type manifest struct {
	Profiles []Profile `json:"profiles"`
}

// Service fetches and caches the profile manifest.
type Service struct {
	manifestURL string
	ttl         time.Duration
	client      *http.Client

	mu        sync.RWMutex
	cached    []Profile
	lastFetch time.Time
}

func NewService(manifestURL string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Service{
		manifestURL: manifestURL,
		ttl:         ttl,
		client:      &http.Client{Timeout: 15 * time.Second},
	}
}

// Profiles returns the manifest, refetching when the cache is older than the
// TTL. On fetch failure the last good copy is served; the error is returned
// only when there is nothing cached at all.
func (s *Service) Profiles(ctx context.Context) ([]Profile, error) {
	s.mu.RLock()
	if time.Since(s.lastFetch) < s.ttl && s.cached != nil {
		profiles := s.cached
		s.mu.RUnlock()
		return profiles, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock.
	if time.Since(s.lastFetch) < s.ttl && s.cached != nil {
		return s.cached, nil
	}

	profiles, err := s.fetch(ctx)
	if err != nil {
		if s.cached != nil {
			return s.cached, nil
		}
		return nil, err
	}

	s.cached = profiles
	s.lastFetch = time.Now()
	return s.cached, nil
}

// ByID resolves one profile. A nil result means the id is not in the
// manifest.
func (s *Service) ByID(ctx context.Context, id int64) (*Profile, error) {
	profiles, err := s.Profiles(ctx)
	if err != nil {
		return nil, err
	}
	for i := range profiles {
		if profiles[i].ID == id {
			return &profiles[i], nil
		}
	}
	return nil, nil
}

func (s *Service) fetch(ctx context.Context) ([]Profile, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", s.manifestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch manifest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch manifest: status %d", resp.StatusCode)
	}

	var m manifest
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return m.Profiles, nil
}
