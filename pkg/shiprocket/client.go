package shiprocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/rohanmehta-dev/vastrakart/pkg/errors"
)

const defaultBaseURL = "https://apiv2.shiprocket.in/v1/external"

var errTokenRequired = errors.New("shiprocket api token is required")

// Client wraps the Shiprocket serviceability API used for delivery quotes.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiToken   string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewClient builds the Shiprocket client given an API token.
func NewClient(apiToken string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(apiToken)
	if trimmed == "" {
		return nil, errTokenRequired
	}

	client := &Client{
		apiToken:   trimmed,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 12 * time.Second},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// ServiceabilityRequest describes a single rate lookup.
type ServiceabilityRequest struct {
	PickupPostcode   string
	DeliveryPostcode string
	WeightKG         float64
	CashOnDelivery   bool
}

// CourierQuote is one courier option returned by the serviceability API.
type CourierQuote struct {
	CourierCompanyID int     `json:"courier_company_id"`
	CourierName      string  `json:"courier_name"`
	Rate             float64 `json:"rate"`
	EstimatedDays    string  `json:"etd"`
}

// ServiceabilityResult carries every available courier plus Shiprocket's
// recommended pick.
type ServiceabilityResult struct {
	Couriers           []CourierQuote
	RecommendedCourier int
}

type serviceabilityResponse struct {
	Status int `json:"status"`
	Data   struct {
		AvailableCourierCompanies []CourierQuote `json:"available_courier_companies"`
		RecommendedCourierID      int            `json:"recommended_courier_company_id"`
	} `json:"data"`
	Message string `json:"message"`
}

// Serviceability looks up courier availability and rates for a shipment.
func (c *Client) Serviceability(ctx context.Context, req ServiceabilityRequest) (*ServiceabilityResult, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "shiprocket client not configured")
	}
	if strings.TrimSpace(req.PickupPostcode) == "" || strings.TrimSpace(req.DeliveryPostcode) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pickup and delivery postcodes are required")
	}
	if req.WeightKG <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipment weight must be positive")
	}

	query := url.Values{}
	query.Set("pickup_postcode", req.PickupPostcode)
	query.Set("delivery_postcode", req.DeliveryPostcode)
	query.Set("weight", strconv.FormatFloat(req.WeightKG, 'f', 2, 64))
	if req.CashOnDelivery {
		query.Set("cod", "1")
	} else {
		query.Set("cod", "0")
	}

	endpoint := fmt.Sprintf("%s/courier/serviceability/?%s", strings.TrimRight(c.baseURL, "/"), query.Encode())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build serviceability request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute serviceability request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("serviceability request failed with status %d", resp.StatusCode))
	}

	var payload serviceabilityResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode serviceability response")
	}

	return &ServiceabilityResult{
		Couriers:           payload.Data.AvailableCourierCompanies,
		RecommendedCourier: payload.Data.RecommendedCourierID,
	}, nil
}
