package sui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/suibid/internal/domain"
)

// Client talks JSON-RPC to a Sui fullnode. The HTTP client carries a bounded
// timeout so a hung fullnode can never stall the indexer's tick scheduler.
type Client struct {
	rpcURL     string
	packageID  string
	httpClient *http.Client
}

// NewClient creates a fullnode client for the given RPC endpoint and the
// deployed marketplace package id.
func NewClient(rpcURL, packageID string) *Client {
	return &Client{
		rpcURL:    strings.TrimRight(rpcURL, "/"),
		packageID: packageID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// PackageID returns the marketplace package this client watches.
func (c *Client) PackageID() string {
	return c.packageID
}

// QueryModuleEvents fetches up to limit events emitted by the given module of
// the marketplace package, in ascending order, strictly after the cursor.
// A nil cursor starts from the beginning of the retained stream.
func (c *Client) QueryModuleEvents(ctx context.Context, module string, cursor *EventID, limit int) (EventPage, error) {
	filter := map[string]any{
		"MoveModule": map[string]any{
			"package": c.packageID,
			"module":  module,
		},
	}

	// Params: filter, cursor, limit, descending_order.
	var cur any
	if cursor != nil {
		cur = cursor
	}
	result, err := c.call(ctx, "suix_queryEvents", []any{filter, cur, limit, false})
	if err != nil {
		return EventPage{}, fmt.Errorf("sui: query %s events: %w", module, err)
	}

	var page EventPage
	if err := json.Unmarshal(result, &page); err != nil {
		return EventPage{}, fmt.Errorf("sui: decode event page: %w", err)
	}
	return page, nil
}

// GetObject fetches an on-chain object with its content shown. Returns
// domain.ErrNotFound for deleted or nonexistent objects.
func (c *Client) GetObject(ctx context.Context, id string) (ObjectData, error) {
	result, err := c.call(ctx, "sui_getObject", []any{
		id,
		map[string]any{"showContent": true},
	})
	if err != nil {
		return ObjectData{}, fmt.Errorf("sui: get object %s: %w", id, err)
	}

	var resp struct {
		Data *struct {
			ObjectID string `json:"objectId"`
			Version  string `json:"version"`
			Content  *struct {
				DataType string          `json:"dataType"`
				Type     string          `json:"type"`
				Fields   json.RawMessage `json:"fields"`
			} `json:"content"`
		} `json:"data"`
		Error *struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(result, &resp); err != nil {
		return ObjectData{}, fmt.Errorf("sui: decode object %s: %w", id, err)
	}
	if resp.Data == nil || resp.Data.Content == nil || resp.Data.Content.DataType != "moveObject" {
		return ObjectData{}, domain.ErrNotFound
	}

	return ObjectData{
		ObjectID: resp.Data.ObjectID,
		Version:  resp.Data.Version,
		Type:     resp.Data.Content.Type,
		Fields:   resp.Data.Content.Fields,
	}, nil
}

// GetAuction fetches and parses an auction object into a projection. Used to
// hydrate metadata the event stream does not carry (seller, minBid, endTime).
func (c *Client) GetAuction(ctx context.Context, id string) (domain.AuctionProjection, error) {
	obj, err := c.GetObject(ctx, id)
	if err != nil {
		return domain.AuctionProjection{}, err
	}

	var fields struct {
		Seller        string   `json:"seller"`
		MinBid        string   `json:"min_bid"`
		HighestBid    string   `json:"highest_bid"`
		HighestBidder *optAddr `json:"highest_bidder"`
		EndTime       string   `json:"end_time"`
		Active        bool     `json:"active"`
		Item          *objRef  `json:"item"`
	}
	if err := json.Unmarshal(obj.Fields, &fields); err != nil {
		return domain.AuctionProjection{}, fmt.Errorf("sui: parse auction %s: %w", id, err)
	}

	a := domain.AuctionProjection{
		ID:         obj.ObjectID,
		Seller:     fields.Seller,
		MinBid:     parseU64(fields.MinBid),
		HighestBid: parseU64(fields.HighestBid),
		EndTime:    msToTime(fields.EndTime),
		Active:     fields.Active,
		UpdatedAt:  time.Now().UTC(),
	}
	if fields.HighestBidder != nil {
		a.HighestBidder = fields.HighestBidder.Value()
	}
	if fields.Item != nil {
		a.ItemRef = fields.Item.ID()
	}
	return a, nil
}

// GetTrade fetches and parses a trade object into a projection skeleton.
// Offers live in dynamic fields on chain; the event stream fills them in.
func (c *Client) GetTrade(ctx context.Context, id string) (domain.TradeProjection, error) {
	obj, err := c.GetObject(ctx, id)
	if err != nil {
		return domain.TradeProjection{}, err
	}

	var fields struct {
		Seller     string `json:"seller"`
		EndTime    string `json:"end_time"`
		Active     bool   `json:"active"`
		OfferCount string `json:"offer_count"`
	}
	if err := json.Unmarshal(obj.Fields, &fields); err != nil {
		return domain.TradeProjection{}, fmt.Errorf("sui: parse trade %s: %w", id, err)
	}

	return domain.TradeProjection{
		ID:         obj.ObjectID,
		Seller:     fields.Seller,
		EndTime:    msToTime(fields.EndTime),
		Active:     fields.Active,
		OfferCount: parseU64(fields.OfferCount),
		UpdatedAt:  time.Now().UTC(),
	}, nil
}

// call executes one JSON-RPC request and returns the raw result.
func (c *Client) call(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}
	return rpcResp.Result, nil
}

// optAddr is Move's Option<address>, serialized as a struct holding a vector
// with zero or one element.
type optAddr struct {
	Fields struct {
		Vec []string `json:"vec"`
	} `json:"fields"`
}

// Value returns the contained address or "".
func (o *optAddr) Value() string {
	if len(o.Fields.Vec) == 0 {
		return ""
	}
	return o.Fields.Vec[0]
}

// objRef is a nested object field carrying its UID.
type objRef struct {
	Fields struct {
		ID struct {
			ID string `json:"id"`
		} `json:"id"`
	} `json:"fields"`
}

// ID returns the nested object id.
func (r *objRef) ID() string {
	return r.Fields.ID.ID
}

// parseU64 parses Sui's string-encoded u64 values, returning 0 on malformed
// input rather than failing the whole object parse.
func parseU64(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// msToTime converts a string millisecond timestamp to time.Time.
func msToTime(s string) time.Time {
	ms := parseU64(s)
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
