// Package master talks to the external product master (the pharmacy sales
// system) through its XML-RPC bridge. The ledger and catalog never query the
// master's stock tables directly; everything goes through this client.
package master

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kolo/xmlrpc"
)

var (
	// ErrNotFound means the master answered but has no matching product.
	ErrNotFound = errors.New("product not found in master")
	// ErrUnavailable means the master could not be reached. Callers fall
	// back to local-only data where one exists.
	ErrUnavailable = errors.New("product master unavailable")
)

// Product is one stock row of the master, as returned by the bridge.
type Product struct {
	Code        string  `json:"code" xmlrpc:"code"`
	Designation string  `json:"designation" xmlrpc:"designation"`
	UnitBarcode string  `json:"unit_barcode" xmlrpc:"unit_barcode"`
	Quantity    float64 `json:"quantity" xmlrpc:"quantity"`
	Expiry      string  `json:"expiry" xmlrpc:"expiry"`         // YYYY-MM-DD, may be empty
	CreatedOn   string  `json:"created_on" xmlrpc:"created_on"` // when the lot became available upstream
}

// ExpiryDate parses the expiry field, returning nil when absent.
func (p *Product) ExpiryDate() *time.Time {
	if p.Expiry == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", p.Expiry)
	if err != nil {
		return nil
	}
	return &t
}

// AvailableSince parses the upstream creation timestamp, nil when absent.
func (p *Product) AvailableSince() *time.Time {
	if p.CreatedOn == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, p.CreatedOn); err == nil {
			return &t
		}
	}
	return nil
}

// Client is an XML-RPC client for the product master bridge
type Client struct {
	URL        string
	Database   string
	Username   string
	Password   string
	Uid        int
	HttpClient *http.Client
}

// NewClient creates a new master bridge client
func NewClient(url, db, username, password string) *Client {
	return &Client{
		URL:        url,
		Database:   db,
		Username:   username,
		Password:   password,
		HttpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Authenticate authenticates with the bridge and returns the session uid
func (c *Client) Authenticate() (int, error) {
	client, err := xmlrpc.NewClient(c.URL+"/rpc/common", nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer client.Close()

	args := []interface{}{c.Database, c.Username, c.Password}
	var uid int
	if err := client.Call("authenticate", args, &uid); err != nil {
		return 0, fmt.Errorf("%w: authentication failed: %v", ErrUnavailable, err)
	}

	c.Uid = uid
	return uid, nil
}

// call performs one bridge method call and decodes the raw result into target
// via JSON re-marshaling (the bridge returns loosely typed maps).
func (c *Client) call(method string, params interface{}, target interface{}) error {
	client, err := xmlrpc.NewClient(c.URL+"/rpc/stock", nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer client.Close()

	args := []interface{}{c.Database, c.Uid, c.Password, method, params}

	var raw []map[string]interface{}
	if err := client.Call("execute", args, &raw); err != nil {
		return fmt.Errorf("%w: %s failed: %v", ErrUnavailable, method, err)
	}

	jsonData, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to marshal raw result: %w", err)
	}
	if err := json.Unmarshal(jsonData, target); err != nil {
		return fmt.Errorf("failed to unmarshal into target: %w", err)
	}
	return nil
}

// LookupUnit finds the stock row carrying the given lot/unit barcode
func (c *Client) LookupUnit(unitBarcode string) (*Product, error) {
	var products []Product
	if err := c.call("lookup_unit", map[string]interface{}{"barcode": unitBarcode}, &products); err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, ErrNotFound
	}
	return &products[0], nil
}

// LookupCode finds the master product with the given catalog code
func (c *Client) LookupCode(code string) (*Product, error) {
	var products []Product
	if err := c.call("lookup_code", map[string]interface{}{"code": code}, &products); err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, ErrNotFound
	}
	return &products[0], nil
}

// SearchName performs a contains-match on the display name
func (c *Client) SearchName(query string, limit int) ([]Product, error) {
	var products []Product
	params := map[string]interface{}{"query": query, "limit": limit}
	if err := c.call("search_name", params, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// FetchAll pulls the whole product list, used to refresh the name cache
func (c *Client) FetchAll() ([]Product, error) {
	var products []Product
	if err := c.call("fetch_all", map[string]interface{}{}, &products); err != nil {
		return nil, err
	}
	return products, nil
}
