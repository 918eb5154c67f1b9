package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"checkout-service/internal/domain"
)

// CatalogClient resolves menu items from a remote catalog service.
type CatalogClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewCatalogClient(baseURL string, timeout time.Duration) *CatalogClient {
	return &CatalogClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *CatalogClient) FindAvailableByIDs(ctx context.Context, ids []uint64) ([]domain.MenuItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(id, 10)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/menu-items?ids=%s", c.baseURL, strings.Join(parts, ",")), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: catalog: %v", domain.ErrStorageUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: catalog service returned status %d", domain.ErrStorageUnavailable, resp.StatusCode)
	}

	var items []domain.MenuItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("%w: decode catalog response: %v", domain.ErrStorageUnavailable, err)
	}

	requested := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		requested[id] = struct{}{}
	}

	out := items[:0]
	for _, it := range items {
		if _, ok := requested[it.ID]; ok && it.Available {
			out = append(out, it)
		}
	}
	return out, nil
}
