package possync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type posClient struct {
	baseURL   string
	apiKey    string
	apiKeyHdr string
	http      *http.Client
	limiter   <-chan time.Time
}

func newPosClient() (*posClient, error) {
	baseURL := strings.TrimSpace(os.Getenv("POS_API_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://api.posplatform.example"
	}
	apiKeyHeader := strings.TrimSpace(os.Getenv("POS_API_KEY_HEADER"))
	if apiKeyHeader == "" {
		apiKeyHeader = "X-API-Key"
	}
	apiKey := strings.TrimSpace(os.Getenv("POS_API_KEY"))
	if apiKey == "" {
		return nil, errors.New("pos api key is empty")
	}
	rateLimitPerMin := int64(30)
	if v := strings.TrimSpace(os.Getenv("POS_RATE_LIMIT_PER_MIN")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			rateLimitPerMin = n
		}
	}
	interval := time.Minute / time.Duration(rateLimitPerMin)

	return &posClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		apiKeyHdr: apiKeyHeader,
		http:      &http.Client{Timeout: 30 * time.Second},
		limiter:   time.Tick(interval),
	}, nil
}

type posListResponse struct {
	Data       []json.RawMessage `json:"data"`
	Items      []json.RawMessage `json:"items"`
	NextCursor string            `json:"next_cursor"`
	HasMore    *bool             `json:"has_more"`
}

func (c *posClient) getList(ctx context.Context, path string, params url.Values) (posListResponse, error) {
	<-c.limiter
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint = endpoint + "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return posListResponse{}, err
	}
	req.Header.Set(c.apiKeyHdr, c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return posListResponse{}, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return posListResponse{}, fmt.Errorf("pos api error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed posListResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return posListResponse{}, err
	}
	return parsed, nil
}

// fetchAll follows the cursor until the platform reports no more pages.
// Any transport failure aborts the whole pass; a half-fetched batch must
// never be reconciled as if it were complete.
func (c *posClient) fetchAll(ctx context.Context, path string) ([]json.RawMessage, error) {
	var all []json.RawMessage
	cursor := ""
	for {
		params := url.Values{}
		params.Set("limit", "200")
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		resp, err := c.getList(ctx, path, params)
		if err != nil {
			return nil, err
		}

		page := resp.Data
		if len(page) == 0 {
			page = resp.Items
		}
		all = append(all, page...)

		if resp.NextCursor == "" || (resp.HasMore != nil && !*resp.HasMore) {
			return all, nil
		}
		cursor = resp.NextCursor
	}
}

// updateTicketGroupPrice writes the new price to the platform. Local state
// must only change after this returns nil.
func (c *posClient) updateTicketGroupPrice(ctx context.Context, ticketGroupId int64, newPrice decimal.Decimal) error {
	<-c.limiter
	endpoint := fmt.Sprintf("%s/v1/ticket-groups/%d/price", c.baseURL, ticketGroupId)

	payload, _ := json.Marshal(map[string]string{"price": newPrice.String()})
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set(c.apiKeyHdr, c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("pos api error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

func listingsPath() string {
	if v := strings.TrimSpace(os.Getenv("POS_LISTINGS_PATH")); v != "" {
		return v
	}
	return "/v1/ticket-groups"
}

func salesPath() string {
	if v := strings.TrimSpace(os.Getenv("POS_SALES_PATH")); v != "" {
		return v
	}
	return "/v1/sales"
}

func invoicesPath() string {
	if v := strings.TrimSpace(os.Getenv("POS_INVOICES_PATH")); v != "" {
		return v
	}
	return "/v1/invoices"
}

func accountsPath() string {
	if v := strings.TrimSpace(os.Getenv("POS_ACCOUNTS_PATH")); v != "" {
		return v
	}
	return "/v1/season-sites"
}
