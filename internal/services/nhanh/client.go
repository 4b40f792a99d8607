package nhanh

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"nhanhsync/internal/config"
	"nhanhsync/internal/logger"
)

// Setting keys persisted through the settings store.
const (
	SettingAppID        = "nhanh_app_id"
	SettingSecretKey    = "nhanh_secret_key"
	SettingBusinessID   = "nhanh_business_id"
	SettingAccessToken  = "nhanh_access_token"
	SettingTokenExpired = "nhanh_token_expired"
	SettingPermissions  = "nhanh_permissions"
	SettingDepotIDs     = "nhanh_depot_ids"
)

const expiryLayout = "2006-01-02 15:04:05"

// rateLimitFallback is used when a 429 response does not advertise a retry
// time.
const rateLimitFallback = time.Minute

// Settings persists credentials and tokens between calls.
type Settings interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Client talks to the Nhanh.vn open API. Every call is a form-encoded POST
// carrying the app id, business id and access token; the payload travels
// JSON-encoded in the data field. The client never retries: failure semantics
// stay explicit at the call site.
type Client struct {
	baseURL    string
	oauthURL   string
	version    string
	settings   Settings
	httpClient *http.Client
	logger     *logger.Logger
}

func NewClient(cfg *config.Config, settings Settings, logger *logger.Logger) *Client {
	return &Client{
		baseURL:  strings.TrimRight(cfg.NhanhAPIURL, "/"),
		oauthURL: "https://nhanh.vn/oauth",
		version:  cfg.NhanhAPIVersion,
		settings: settings,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
		},
		logger: logger,
	}
}

type envelope struct {
	Code       int             `json:"code"`
	Messages   messages        `json:"messages"`
	Data       json.RawMessage `json:"data"`
	ErrorCode  int             `json:"errorCode"`
	UnlockedAt string          `json:"unlockedAt"`
}

// messages tolerates both a single string and a list of strings.
type messages []string

func (m *messages) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*m = messages{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	*m = messages(many)
	return nil
}

// Send posts a payload to an API endpoint and returns the data portion of the
// response envelope.
func (c *Client) Send(ctx context.Context, endpoint string, payload interface{}) (json.RawMessage, error) {
	appID, err := c.settings.Get(ctx, SettingAppID)
	if err != nil {
		return nil, fmt.Errorf("failed to read app id: %w", err)
	}
	businessID, err := c.settings.Get(ctx, SettingBusinessID)
	if err != nil {
		return nil, fmt.Errorf("failed to read business id: %w", err)
	}
	token, err := c.settings.Get(ctx, SettingAccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to read access token: %w", err)
	}
	if token == "" {
		return nil, &AuthError{Reason: "no access token stored"}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	form := url.Values{}
	form.Set("version", c.version)
	form.Set("appId", appID)
	form.Set("businessId", businessID)
	form.Set("accessToken", token)
	form.Set("data", string(data))

	env, err := c.postForm(ctx, endpoint, form)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

func (c *Client) postForm(ctx context.Context, endpoint string, form url.Values) (*envelope, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	if env.ErrorCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusTooManyRequests {
		unlockedAt := time.Now().Add(rateLimitFallback)
		if env.UnlockedAt != "" {
			if t, perr := time.Parse(expiryLayout, env.UnlockedAt); perr == nil {
				unlockedAt = t
			}
		}
		return nil, &RateLimitError{UnlockedAt: unlockedAt}
	}
	if env.Code != 1 {
		return nil, &APIError{Endpoint: endpoint, Messages: env.Messages}
	}
	return &env, nil
}

// LoginURL builds the authorization redirect for the OAuth flow.
func (c *Client) LoginURL(ctx context.Context, returnLink string) (string, error) {
	appID, err := c.settings.Get(ctx, SettingAppID)
	if err != nil {
		return "", fmt.Errorf("failed to read app id: %w", err)
	}
	if appID == "" {
		return "", &AuthError{Reason: "no app id configured"}
	}
	return fmt.Sprintf("%s?version=%s&appId=%s&returnLink=%s",
		c.oauthURL, c.version, url.QueryEscape(appID), url.QueryEscape(returnLink)), nil
}

type authEnvelope struct {
	Code        int         `json:"code"`
	Messages    messages    `json:"messages"`
	AccessToken string      `json:"accessToken"`
	BusinessID  json.Number `json:"businessId"`
	ExpiredAt   string      `json:"expiredDateTime"`
	Permissions []string    `json:"permissions"`
	DepotIDs    []int64     `json:"depotIds"`
}

// ExchangeAuthCode trades the accessCode from the OAuth callback for an
// access token and persists token, business id, expiry and permissions.
func (c *Client) ExchangeAuthCode(ctx context.Context, accessCode string) (*AuthResult, error) {
	if accessCode == "" {
		return nil, &AuthError{Reason: "empty access code"}
	}

	appID, err := c.settings.Get(ctx, SettingAppID)
	if err != nil {
		return nil, fmt.Errorf("failed to read app id: %w", err)
	}
	secret, err := c.settings.Get(ctx, SettingSecretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret key: %w", err)
	}

	form := url.Values{}
	form.Set("version", c.version)
	form.Set("appId", appID)
	form.Set("accessCode", accessCode)
	form.Set("secretKey", secret)

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/oauth/access_token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Endpoint: "/api/oauth/access_token", Err: err}
	}
	defer resp.Body.Close()

	var env authEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, &TransportError{Endpoint: "/api/oauth/access_token", Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	if env.Code != 1 {
		return nil, &AuthError{Reason: strings.Join(env.Messages, ", ")}
	}

	result := &AuthResult{
		AccessToken: env.AccessToken,
		BusinessID:  env.BusinessID.String(),
		ExpiredAt:   env.ExpiredAt,
		Permissions: env.Permissions,
		DepotIDs:    env.DepotIDs,
	}

	if err := c.settings.Set(ctx, SettingAccessToken, result.AccessToken); err != nil {
		return nil, fmt.Errorf("failed to store access token: %w", err)
	}
	if err := c.settings.Set(ctx, SettingBusinessID, result.BusinessID); err != nil {
		return nil, fmt.Errorf("failed to store business id: %w", err)
	}
	if err := c.settings.Set(ctx, SettingTokenExpired, result.ExpiredAt); err != nil {
		return nil, fmt.Errorf("failed to store token expiry: %w", err)
	}
	if perms, err := json.Marshal(result.Permissions); err == nil {
		c.settings.Set(ctx, SettingPermissions, string(perms))
	}
	if len(result.DepotIDs) > 0 {
		if depots, err := json.Marshal(result.DepotIDs); err == nil {
			c.settings.Set(ctx, SettingDepotIDs, string(depots))
		}
	}

	c.logger.Info("Exchanged access code for token, business %s", result.BusinessID)
	return result, nil
}

// IsTokenExpired reports true when no expiry is stored or the stored expiry
// is in the past.
func (c *Client) IsTokenExpired(ctx context.Context) bool {
	expired, err := c.settings.Get(ctx, SettingTokenExpired)
	if err != nil || expired == "" {
		return true
	}
	t, err := time.Parse(expiryLayout, expired)
	if err != nil {
		return true
	}
	return !t.After(time.Now())
}

// ProductPage fetches one page of products. When updatedFrom is set, only
// products changed since then are returned.
func (c *Client) ProductPage(ctx context.Context, page, limit int, updatedFrom *time.Time) (*ProductPage, error) {
	payload := map[string]interface{}{
		"page":  page,
		"limit": limit,
	}
	if updatedFrom != nil {
		payload["updatedAtFrom"] = updatedFrom.Format(expiryLayout)
	}

	data, err := c.Send(ctx, "/api/product/search", payload)
	if err != nil {
		return nil, err
	}
	var result ProductPage
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode product page: %w", err)
	}
	return &result, nil
}

// ProductDetail fetches a single product by remote id.
func (c *Client) ProductDetail(ctx context.Context, remoteID string) (*ProductRecord, error) {
	data, err := c.Send(ctx, "/api/product/detail", map[string]string{"id": remoteID})
	if err != nil {
		return nil, err
	}
	var record ProductRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to decode product detail: %w", err)
	}
	if record.ID == 0 {
		return nil, &NotFoundError{Kind: "product", ID: remoteID}
	}
	return &record, nil
}

// SearchProductBySKU looks a product up by its code. Used as the fallback
// join key before an external link exists.
func (c *Client) SearchProductBySKU(ctx context.Context, sku string) (*ProductRecord, error) {
	data, err := c.Send(ctx, "/api/product/search", map[string]string{"sku": sku})
	if err != nil {
		return nil, err
	}
	var result ProductPage
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode product search: %w", err)
	}
	if len(result.Products) == 0 {
		return nil, &NotFoundError{Kind: "product", ID: sku}
	}
	return &result.Products[0], nil
}

// InventoryPage fetches one page of stock quantities, optionally scoped to a
// warehouse.
func (c *Client) InventoryPage(ctx context.Context, page, limit int, warehouseID string) (*InventoryPage, error) {
	payload := map[string]interface{}{
		"page":  page,
		"limit": limit,
	}
	if warehouseID != "" {
		payload["warehouseId"] = warehouseID
	}

	data, err := c.Send(ctx, "/api/product/inventory", payload)
	if err != nil {
		return nil, err
	}
	var result InventoryPage
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode inventory page: %w", err)
	}
	return &result, nil
}

// UpdateInventory pushes a local stock change outward.
func (c *Client) UpdateInventory(ctx context.Context, remoteProductID string, quantity int, warehouseID string) error {
	payload := map[string]interface{}{
		"productId": remoteProductID,
		"quantity":  quantity,
	}
	if warehouseID != "" {
		payload["warehouseId"] = warehouseID
	}
	_, err := c.Send(ctx, "/api/product/inventory", payload)
	return err
}

// AddOrder submits a new order and returns the remote-assigned order id.
func (c *Client) AddOrder(ctx context.Context, push *OrderPush) (string, error) {
	data, err := c.Send(ctx, "/api/order/add", push)
	if err != nil {
		return "", err
	}
	var created struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(data, &created); err != nil {
		return "", fmt.Errorf("failed to decode order add response: %w", err)
	}
	if created.ID == 0 {
		return "", &APIError{Endpoint: "/api/order/add", Messages: []string{"response carried no order id"}}
	}
	return strconv.FormatInt(created.ID, 10), nil
}

// UpdateOrderStatus propagates a status change to the remote order.
func (c *Client) UpdateOrderStatus(ctx context.Context, remoteID, status string) error {
	_, err := c.Send(ctx, "/api/order/update-status", map[string]string{
		"id":     remoteID,
		"status": status,
	})
	return err
}

// OrderDetail fetches a remote order by id.
func (c *Client) OrderDetail(ctx context.Context, remoteID string) (*OrderDetail, error) {
	data, err := c.Send(ctx, "/api/order/detail", map[string]string{"id": remoteID})
	if err != nil {
		return nil, err
	}
	var detail OrderDetail
	if err := json.Unmarshal(data, &detail); err != nil {
		return nil, fmt.Errorf("failed to decode order detail: %w", err)
	}
	if detail.ID == 0 {
		return nil, &NotFoundError{Kind: "order", ID: remoteID}
	}
	return &detail, nil
}

// ShippingFee quotes a delivery fee. Plain pass-through; no sync bookkeeping.
func (c *Client) ShippingFee(ctx context.Context, req *ShippingFeeRequest) (float64, error) {
	data, err := c.Send(ctx, "/api/shipping/fee", req)
	if err != nil {
		return 0, err
	}
	var result struct {
		Fee float64 `json:"fee"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return 0, fmt.Errorf("failed to decode shipping fee: %w", err)
	}
	return result.Fee, nil
}
