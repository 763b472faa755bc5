package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/sellis/critterdex/internal/apperr"
	"github.com/sellis/critterdex/internal/models"
)

// recordCacheSize bounds the in-memory LRU of decoded records.
const recordCacheSize = 512

// Client talks to the remote creature API. Responses flow through the SQLite
// body cache, and decoded single records additionally sit in an in-memory LRU
// keyed by ID.
type Client struct {
	base     string
	httpc    *http.Client
	cache    *Cache
	records  *lru.Cache[int, models.CreatureRecord]
	pageSize int
	logger   *slog.Logger
}

// NewClient creates a Client. cache may be nil to disable the persistent
// response cache (used in tests).
func NewClient(baseURL string, cache *Cache, pageSize int, logger *slog.Logger) (*Client, error) {
	if pageSize <= 0 {
		pageSize = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	records, err := lru.New[int, models.CreatureRecord](recordCacheSize)
	if err != nil {
		return nil, fmt.Errorf("catalog: record cache: %w", err)
	}
	return &Client{
		base:     baseURL,
		httpc:    &http.Client{Timeout: 15 * time.Second},
		cache:    cache,
		records:  records,
		pageSize: pageSize,
		logger:   logger,
	}, nil
}

// List returns one page of the catalog plus the total count and whether more
// pages follow.
func (c *Client) List(ctx context.Context, offset, limit int) ([]models.CreatureRecord, int, bool, error) {
	u := fmt.Sprintf("%s/creatures?offset=%d&limit=%d", c.base, offset, limit)
	raw, err := c.fetch(ctx, u)
	if err != nil {
		return nil, 0, false, err
	}
	records, total, next, err := decodeList(raw)
	if err != nil {
		return nil, 0, false, err
	}
	for _, r := range records {
		c.records.Add(r.ID, r)
	}
	return records, total, next, nil
}

// All pages through the entire catalog and returns the full working set.
func (c *Client) All(ctx context.Context) ([]models.CreatureRecord, error) {
	var out []models.CreatureRecord
	offset := 0
	for {
		page, _, next, err := c.List(ctx, offset, c.pageSize)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if !next || len(page) == 0 {
			return out, nil
		}
		offset += len(page)
	}
}

// GetByID fetches a single record. Misses surface as apperr.ErrNotFound.
func (c *Client) GetByID(ctx context.Context, id int) (models.CreatureRecord, error) {
	if r, ok := c.records.Get(id); ok {
		return r, nil
	}
	raw, err := c.fetch(ctx, fmt.Sprintf("%s/creatures/%d", c.base, id))
	if err != nil {
		return models.CreatureRecord{}, err
	}
	r, err := decodeCreature(raw)
	if err != nil {
		return models.CreatureRecord{}, err
	}
	c.records.Add(r.ID, r)
	return r, nil
}

// GetByName fetches a single record by its unique name.
func (c *Client) GetByName(ctx context.Context, name string) (models.CreatureRecord, error) {
	raw, err := c.fetch(ctx, fmt.Sprintf("%s/creatures/%s", c.base, url.PathEscape(name)))
	if err != nil {
		return models.CreatureRecord{}, err
	}
	r, err := decodeCreature(raw)
	if err != nil {
		return models.CreatureRecord{}, err
	}
	c.records.Add(r.ID, r)
	return r, nil
}

// fetch returns the response body for u, served from the persistent cache
// when fresh. Cache write failures are logged, not propagated.
func (c *Client) fetch(ctx context.Context, u string) ([]byte, error) {
	if c.cache != nil {
		if body, ok := c.cache.Get(u); ok {
			return body, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("catalog: build request: %w", err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog: fetch %s: %w", u, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, apperr.ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("catalog: fetch %s: unexpected status %d", u, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("catalog: read body: %w", err)
	}
	if c.cache != nil {
		if err := c.cache.Put(u, body); err != nil {
			c.logger.Warn("catalog: cache write failed", slog.String("error", err.Error()))
		}
	}
	return body, nil
}
