// Package socrata pulls raw citation rows from the DataSF open data portal
// through the SODA API.
package socrata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	defaultBaseURL = "https://data.sfgov.org"
	// CitationsDataset is the SFMTA parking citations dataset.
	CitationsDataset = "ab4h-6ztd"
	// DefaultPageSize is the number of rows requested per page.
	DefaultPageSize = 1000
)

// Query selects rows from a dataset. A Limit of 0 fetches every row.
type Query struct {
	Dataset  string
	Limit    int
	PageSize int
	Where    string
	Order    string
}

// Client reads datasets from a Socrata portal.
type Client struct {
	http    *resty.Client
	baseURL string
	logger  *slog.Logger
}

// NewClient creates a SODA client. An empty appToken makes unauthenticated
// requests, which Socrata throttles more aggressively.
func NewClient(appToken string, timeout time.Duration, logger *slog.Logger) *Client {
	rc := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(3).
		SetRetryWaitTime(time.Second).
		SetRetryMaxWaitTime(10 * time.Second).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			return err == nil && resp != nil && (resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= http.StatusInternalServerError)
		})
	if appToken != "" {
		rc.SetHeader("X-App-Token", appToken)
	}
	return &Client{http: rc, baseURL: defaultBaseURL, logger: logger}
}

// Fetch pages through q.Dataset and returns the rows as flat string maps.
// Nested values are kept as their JSON encoding.
func (c *Client) Fetch(ctx context.Context, q Query) ([]map[string]string, error) {
	if q.Dataset == "" {
		q.Dataset = CitationsDataset
	}
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	if q.Order == "" {
		q.Order = ":id"
	}

	var rows []map[string]string
	for offset := 0; ; {
		size := q.PageSize
		if q.Limit > 0 {
			size = min(size, q.Limit-len(rows))
		}
		if size <= 0 {
			break
		}

		page, err := c.fetchPage(ctx, q, offset, size)
		if err != nil {
			return rows, err
		}
		rows = append(rows, page...)
		offset += len(page)

		c.logger.Info("fetched citation page",
			"dataset", q.Dataset,
			"offset", offset-len(page),
			"rows", len(page),
			"total", len(rows),
		)
		if len(page) < size {
			break
		}
	}
	return rows, nil
}

func (c *Client) fetchPage(ctx context.Context, q Query, offset, limit int) ([]map[string]string, error) {
	params := map[string]string{
		"$limit":  strconv.Itoa(limit),
		"$offset": strconv.Itoa(offset),
		"$order":  q.Order,
	}
	if q.Where != "" {
		params["$where"] = q.Where
	}

	var page []map[string]any
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&page).
		ForceContentType("application/json").
		Get(fmt.Sprintf("%s/resource/%s.json", c.baseURL, q.Dataset))
	if err != nil {
		return nil, fmt.Errorf("socrata request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("socrata API error: status %d: %s", resp.StatusCode(), resp.String())
	}

	rows := make([]map[string]string, 0, len(page))
	for _, raw := range page {
		row := make(map[string]string, len(raw))
		for k, v := range raw {
			row[k] = flatten(v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func flatten(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}
