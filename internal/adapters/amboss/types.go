package amboss

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// DTOs raw de la API GraphQL. La conversión a domain se hace en mapping.go.

type gqlRequest struct {
	OperationName string         `json:"operationName,omitempty"`
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
}

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlError      `json:"errors"`
}

type gqlError struct {
	Message string `json:"message"`
}

// flexInt acepta números JSON, strings numéricos ("1000", "1000.0") y null.
// Amboss serializa los importes en sats como string en algunos campos.
type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		b = []byte(s)
	}
	if n, err := strconv.ParseInt(string(b), 10, 64); err == nil {
		*f = flexInt(n)
		return nil
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("flexInt: %q: %w", string(b), err)
	}
	*f = flexInt(int64(v))
	return nil
}

// flexFloat es como flexInt pero conserva decimales.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		b = []byte(s)
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("flexFloat: %q: %w", string(b), err)
	}
	*f = flexFloat(v)
	return nil
}

// --- listMarketOffers ---

type listMarketOffersData struct {
	ListMarketOffers struct {
		NextToken string        `json:"next_token"`
		Offers    []marketOffer `json:"offers"`
	} `json:"listMarketOffers"`
}

type marketOffer struct {
	OfferID            string    `json:"offer_id"`
	Status             string    `json:"status"`
	Side               string    `json:"side"`
	Type               string    `json:"type"`
	BaseFee            flexInt   `json:"base_fee"`
	FeeRate            flexInt   `json:"fee_rate"`
	MinChannelSize     flexInt   `json:"min_channel_size"`
	MaxChannelSize     flexInt   `json:"max_channel_size"`
	MinChannelDuration flexInt   `json:"min_channel_duration"`
	SellerScore        flexFloat `json:"seller_score"`
	NodeDetails        struct {
		Pubkey string `json:"pubkey"`
		Alias  string `json:"alias"`
	} `json:"node_details"`
}

// --- getUserOffers ---

type getUserOffersData struct {
	GetUserOffers struct {
		List []userOffer `json:"list"`
	} `json:"getUserOffers"`
}

type userOffer struct {
	ID           string        `json:"id"`
	Status       string        `json:"status"`
	Side         string        `json:"side"`
	Type         string        `json:"type"`
	LockedSize   flexInt       `json:"locked_size"`
	OfferDetails *offerDetails `json:"offer_details"`
}

type offerDetails struct {
	BaseFee        flexInt `json:"base_fee"`
	FeeRate        flexInt `json:"fee_rate"`
	MinSize        flexInt `json:"min_size"`
	MaxSize        flexInt `json:"max_size"`
	MinBlockLength flexInt `json:"min_block_length"`
	TotalSize      flexInt `json:"total_size"`
}

// --- mutations ---

// offerInput es el input de createOffer y updateOfferDetails.
type offerInput struct {
	BaseFee        int64 `json:"base_fee"`
	BaseFeeCap     int64 `json:"base_fee_cap"`
	FeeRate        int64 `json:"fee_rate"`
	FeeRateCap     int64 `json:"fee_rate_cap"`
	MinSize        int64 `json:"min_size"`
	MaxSize        int64 `json:"max_size"`
	MinBlockLength int64 `json:"min_block_length"`
	TotalSize      int64 `json:"total_size"`
}

type createOfferData struct {
	CreateOffer string `json:"createOffer"`
}

type updateOfferData struct {
	UpdateOfferDetails *offerDetails `json:"updateOfferDetails"`
}

type toggleOfferData struct {
	ToggleOffer bool `json:"toggleOffer"`
}
