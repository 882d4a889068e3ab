// Package civiapi reaches a CiviCRM host through its APIv3 REST endpoint.
package civiapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"
	jsoniter "github.com/json-iterator/go"

	"github.com/ManuelReschke/contracts/internal/pkg/entity"
	"github.com/ManuelReschke/contracts/internal/pkg/env"
)

const restPath = "/civicrm/ajax/rest"

var wire = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	UseNumber:              true,
}.Froze()

// Client is an entity.Gateway over APIv3. It has no transactions.
type Client struct {
	BaseURL string
	APIKey  string
	SiteKey string

	HTTPClient *http.Client
}

// NewClientFromEnv reads CIVICRM_URL, CIVICRM_API_KEY and CIVICRM_SITE_KEY.
func NewClientFromEnv() *Client {
	return &Client{
		BaseURL: strings.TrimRight(strings.TrimSpace(env.GetEnv("CIVICRM_URL", "")), "/"),
		APIKey:  strings.TrimSpace(env.GetEnv("CIVICRM_API_KEY", "")),
		SiteKey: strings.TrimSpace(env.GetEnv("CIVICRM_SITE_KEY", "")),
		HTTPClient: &http.Client{
			Timeout: env.GetDuration("CIVICRM_TIMEOUT", 30*time.Second),
		},
	}
}

// APIError is an is_error=1 answer of the host.
type APIError struct {
	Entity  entity.Type
	Action  string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("civicrm %s.%s failed: %s", e.Entity, e.Action, e.Message)
}

type response struct {
	IsError      int                 `json:"is_error"`
	ErrorMessage string              `json:"error_message"`
	ID           json.Number         `json:"id"`
	Count        int64               `json:"count"`
	Result       json.Number         `json:"result"`
	Values       jsoniter.RawMessage `json:"values"`
}

func (c *Client) call(ctx context.Context, typ entity.Type, action string, params map[string]any) (*response, error) {
	if c.BaseURL == "" {
		return nil, errors.New("CIVICRM_URL is not configured")
	}
	payload, err := wire.Marshal(params)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("entity", string(typ))
	form.Set("action", action)
	form.Set("json", string(payload))
	form.Set("api_key", c.APIKey)
	form.Set("key", c.SiteKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+restPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("civicrm %s.%s: %w", typ, action, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("civicrm %s.%s: failed to read response: %w", typ, action, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		fiberlog.Warnf("[CiviAPI] %s.%s answered status %d", typ, action, resp.StatusCode)
		return nil, fmt.Errorf("civicrm %s.%s failed: status=%d body=%s", typ, action, resp.StatusCode, truncate(body, 256))
	}

	out := &response{}
	if n, err := strconv.ParseInt(strings.TrimSpace(string(body)), 10, 64); err == nil {
		// getcount may answer with a bare number.
		out.Result = json.Number(strconv.FormatInt(n, 10))
		return out, nil
	}
	if err := wire.Unmarshal(body, out); err != nil {
		return nil, fmt.Errorf("civicrm %s.%s: invalid response: %w", typ, action, err)
	}
	if out.IsError != 0 {
		fiberlog.Warnf("[CiviAPI] %s.%s: %s", typ, action, out.ErrorMessage)
		return nil, &APIError{Entity: typ, Action: action, Message: out.ErrorMessage}
	}
	return out, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// params converts a filter into APIv3 get parameters.
func params(filter entity.Filter) map[string]any {
	p := map[string]any{
		"sequential":   1,
		"option.limit": filter.Limit,
	}
	if filter.Sort != "" {
		p["option.sort"] = filter.Sort
	}
	for _, cond := range filter.Conditions {
		switch cond.Op {
		case entity.OpEq:
			p[cond.Field] = cond.Value
		case entity.OpNotEq:
			p[cond.Field] = map[string]any{"!=": cond.Value}
		case entity.OpIn:
			p[cond.Field] = map[string]any{"IN": cond.Values()}
		}
	}
	return p
}

func emptyIn(filter entity.Filter) bool {
	for _, cond := range filter.Conditions {
		if cond.Op == entity.OpIn && len(cond.Values()) == 0 {
			return true
		}
	}
	return false
}

func (c *Client) Get(ctx context.Context, typ entity.Type, id int64) (entity.Record, error) {
	recs, err := c.Find(ctx, typ, entity.Where("id", id).WithLimit(1))
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, entity.NotFound(typ, id)
	}
	return recs[0], nil
}

func (c *Client) Find(ctx context.Context, typ entity.Type, filter entity.Filter) ([]entity.Record, error) {
	if emptyIn(filter) {
		return nil, nil
	}
	resp, err := c.call(ctx, typ, "get", params(filter))
	if err != nil {
		return nil, err
	}
	return decodeValues(resp.Values)
}

// decodeValues accepts the sequential list form and the keyed object form.
func decodeValues(raw jsoniter.RawMessage) ([]entity.Record, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var list []map[string]any
	if err := wire.Unmarshal(raw, &list); err == nil {
		return toRecords(list), nil
	}
	var keyed map[string]map[string]any
	if err := wire.Unmarshal(raw, &keyed); err != nil {
		return nil, fmt.Errorf("civicrm: invalid values: %w", err)
	}
	list = make([]map[string]any, 0, len(keyed))
	for _, v := range keyed {
		list = append(list, v)
	}
	recs := toRecords(list)
	sortByID(recs)
	return recs, nil
}

func toRecords(list []map[string]any) []entity.Record {
	out := make([]entity.Record, len(list))
	for i, m := range list {
		out[i] = entity.Record(m)
	}
	return out
}

func sortByID(recs []entity.Record) {
	sort.Slice(recs, func(i, j int) bool { return recs[i].ID() < recs[j].ID() })
}

func (c *Client) Create(ctx context.Context, typ entity.Type, fields entity.Record) (int64, error) {
	p := map[string]any{"sequential": 1}
	for k, v := range fields {
		if k != "id" {
			p[k] = v
		}
	}
	resp, err := c.call(ctx, typ, "create", p)
	if err != nil {
		return 0, err
	}
	if id, err := resp.ID.Int64(); err == nil && id > 0 {
		return id, nil
	}
	recs, err := decodeValues(resp.Values)
	if err != nil {
		return 0, err
	}
	if len(recs) == 0 || recs[0].ID() == 0 {
		return 0, fmt.Errorf("civicrm %s.create returned no id", typ)
	}
	return recs[0].ID(), nil
}

func (c *Client) Update(ctx context.Context, typ entity.Type, id int64, fields entity.Record) error {
	n, err := c.Count(ctx, typ, entity.Where("id", id))
	if err != nil {
		return err
	}
	if n == 0 {
		return entity.NotFound(typ, id)
	}
	p := map[string]any{"id": id}
	for k, v := range fields {
		if k != "id" {
			p[k] = v
		}
	}
	_, err = c.call(ctx, typ, "create", p)
	return err
}

func (c *Client) Count(ctx context.Context, typ entity.Type, filter entity.Filter) (int64, error) {
	if emptyIn(filter) {
		return 0, nil
	}
	p := params(entity.Filter{Conditions: filter.Conditions})
	delete(p, "option.limit")
	delete(p, "sequential")
	resp, err := c.call(ctx, typ, "getcount", p)
	if err != nil {
		return 0, err
	}
	if n, err := resp.Result.Int64(); err == nil {
		return n, nil
	}
	return resp.Count, nil
}
