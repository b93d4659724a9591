package model

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

// Field length limits for submitted festival records. These bound what
// flows into the enrichment step and Postgres TEXT columns.
const (
	MaxNameLen        = 300
	MaxVenueLen       = 300
	MaxCityLen        = 120
	MaxStateLen       = 60
	MaxDescriptionLen = 10 * 1024 // 10 KB; normalization truncates further
	MaxURLLen         = 2048
)

// privateIPRanges is the set of CIDR blocks considered non-public.
// Populated once at package init; used by ValidateListingURL.
var privateIPRanges []*net.IPNet

func init() {
	for _, cidr := range []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"127.0.0.0/8",
		"169.254.0.0/16", // link-local
		"::1/128",
		"fc00::/7",  // unique-local IPv6
		"fe80::/10", // link-local IPv6
	} {
		_, network, err := net.ParseCIDR(cidr)
		if err == nil {
			privateIPRanges = append(privateIPRanges, network)
		}
	}
}

// FestivalInput is the caller-supplied portion of a festival record,
// shared by the create and update endpoints.
type FestivalInput struct {
	Name        string     `json:"name"`
	Venue       *string    `json:"venue,omitempty"`
	City        *string    `json:"city,omitempty"`
	State       *string    `json:"state,omitempty"`
	Date        *time.Time `json:"date,omitempty"`
	Price       *float64   `json:"price,omitempty"`
	URL         *string    `json:"url,omitempty"`
	Description *string    `json:"description,omitempty"`
}

// Validate checks required fields, per-field length limits, and the
// listing URL. Runs before normalization and enrichment.
func (in FestivalInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if len(in.Name) > MaxNameLen {
		return fmt.Errorf("name exceeds maximum length of %d characters", MaxNameLen)
	}
	if in.Venue != nil && len(*in.Venue) > MaxVenueLen {
		return fmt.Errorf("venue exceeds maximum length of %d characters", MaxVenueLen)
	}
	if in.City != nil && len(*in.City) > MaxCityLen {
		return fmt.Errorf("city exceeds maximum length of %d characters", MaxCityLen)
	}
	if in.State != nil && len(*in.State) > MaxStateLen {
		return fmt.Errorf("state exceeds maximum length of %d characters", MaxStateLen)
	}
	if in.Description != nil && len(*in.Description) > MaxDescriptionLen {
		return fmt.Errorf("description exceeds maximum length of %d bytes", MaxDescriptionLen)
	}
	if in.Price != nil && *in.Price < 0 {
		return fmt.Errorf("price must not be negative")
	}
	if in.URL != nil && *in.URL != "" {
		if len(*in.URL) > MaxURLLen {
			return fmt.Errorf("url exceeds maximum length of %d characters", MaxURLLen)
		}
		if err := ValidateListingURL(*in.URL); err != nil {
			return fmt.Errorf("url: %w", err)
		}
	}
	return nil
}

// ValidateListingURL ensures a listing url is a safe, publicly-routable
// http/https URL. Rejects javascript: and file: schemes, credentials
// embedded in the URL, and private/loopback addresses.
func ValidateListingURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("url must use http or https scheme (got %q)", u.Scheme)
	}
	if u.User != nil {
		return fmt.Errorf("url must not include credentials")
	}
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("url must include a host")
	}
	if strings.EqualFold(host, "localhost") {
		return fmt.Errorf("url must not point to localhost")
	}
	if ip := net.ParseIP(host); ip != nil {
		for _, r := range privateIPRanges {
			if r.Contains(ip) {
				return fmt.Errorf("url must not point to a private or loopback address")
			}
		}
	}
	return nil
}

// APIResponse is the standard response envelope for all HTTP API responses.
type APIResponse struct {
	Data any          `json:"data,omitempty"`
	Meta ResponseMeta `json:"meta"`
}

// ListResponse is the standard envelope for paginated list endpoints.
type ListResponse struct {
	Data   any          `json:"data"`
	Total  int          `json:"total"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
	Meta   ResponseMeta `json:"meta"`
}

// APIError is the standard error response envelope.
type APIError struct {
	Error ErrorDetail  `json:"error"`
	Meta  ResponseMeta `json:"meta"`
}

// ResponseMeta contains request metadata included in every response.
type ResponseMeta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorDetail describes an API error.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorCode constants for standard API error codes.
const (
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeForbidden     = "FORBIDDEN"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeInternalError = "INTERNAL_ERROR"
	ErrCodeRateLimited   = "RATE_LIMITED"
)

// SearchResponse is the response body for GET /api/search.
type SearchResponse struct {
	Festivals []SearchResult `json:"festivals"`
	Query     string         `json:"query"`
	Total     int            `json:"total"`
}

// CategoriesResponse is the response body for GET /api/categories.
type CategoriesResponse struct {
	Categories []string `json:"categories"`
}

// AuthTokenRequest is the request body for POST /auth/token.
type AuthTokenRequest struct {
	APIKey string `json:"api_key"`
}

// AuthTokenResponse is the response for POST /auth/token.
type AuthTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ReenrichResponse is the response for POST /api/admin/reenrich.
type ReenrichResponse struct {
	Updated int `json:"updated"`
}

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Postgres      string `json:"postgres"`
	Sentiment     string `json:"sentiment_provider"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}
