// Package dto holds the REST API's response shapes and their mapping from
// storage rows. Identities always serialize in their composite string form;
// clients never see the raw (id, version) pair.
package dto

import (
	"encoding/json"
	"time"

	"github.com/gen-art/marketplace-api/internal/domain"
	"github.com/gen-art/marketplace-api/internal/store/schema"
)

// PricingResponse is the resolved pricing strategy of a collection
type PricingResponse struct {
	Method domain.PricingMethod `json:"method"`
	// Price is the fixed price, or the Dutch auction's current price
	Price int64 `json:"price"`
	// Levels are the Dutch auction's successive prices, absent for fixed
	Levels []int64 `json:"levels,omitempty"`
	// DecrementSeconds is the Dutch auction's per-level duration
	DecrementSeconds int64      `json:"decrement_seconds,omitempty"`
	OpensAt          *time.Time `json:"opens_at,omitempty"`
}

// CollectionResponse represents a collection with optional expansions
type CollectionResponse struct {
	ID              string                 `json:"id"`
	Slug            string                 `json:"slug"`
	Name            string                 `json:"name"`
	AuthorID        string                 `json:"author_id"`
	Supply          int64                  `json:"supply"`
	Balance         int64                  `json:"balance"`
	Enabled         bool                   `json:"enabled"`
	ModerationState domain.ModerationState `json:"moderation_state"`
	Metadata        json.RawMessage        `json:"metadata,omitempty"`
	MintOpensAt     *time.Time             `json:"mint_opens_at,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`

	Pricing *PricingResponse `json:"pricing,omitempty"`

	// Expansions
	Author      *UserResponse        `json:"author,omitempty"`
	MarketStats *MarketStatsResponse `json:"market_stats,omitempty"`
	Iterations  *PaginatedIterations `json:"iterations,omitempty"`
	Actions     []ActionResponse     `json:"actions,omitempty"`
}

// IterationResponse represents an iteration with optional expansions
type IterationResponse struct {
	ID           string           `json:"id"`
	CollectionID string           `json:"collection_id"`
	Iteration    int64            `json:"iteration"`
	OwnerID      string           `json:"owner_id"`
	Name         string           `json:"name"`
	Assigned     bool             `json:"assigned"`
	Features     []schema.Feature `json:"features,omitempty"`
	Rarity       *float64         `json:"rarity,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`

	// Expansions
	Owner      *UserResponse       `json:"owner,omitempty"`
	Collection *CollectionResponse `json:"collection,omitempty"`
	Listings   []ListingResponse   `json:"listings,omitempty"`
	Offers     []OfferResponse     `json:"offers,omitempty"`
}

// UserResponse represents a marketplace account
type UserResponse struct {
	ID              string                 `json:"id"`
	Name            string                 `json:"name,omitempty"`
	Description     string                 `json:"description,omitempty"`
	ModerationState domain.ModerationState `json:"moderation_state"`
	Metadata        json.RawMessage        `json:"metadata,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
}

// ArticleResponse represents a published article
type ArticleResponse struct {
	ID              int64                  `json:"id"`
	Slug            string                 `json:"slug"`
	AuthorID        string                 `json:"author_id"`
	Title           string                 `json:"title"`
	Description     string                 `json:"description,omitempty"`
	Body            string                 `json:"body"`
	ModerationState domain.ModerationState `json:"moderation_state"`
	CreatedAt       time.Time              `json:"created_at"`

	// Expansions
	Author *UserResponse `json:"author,omitempty"`
}

// ListingResponse represents an asking price on an iteration
type ListingResponse struct {
	ID          int64      `json:"id"`
	IterationID string     `json:"iteration_id"`
	SellerID    string     `json:"seller_id"`
	Price       int64      `json:"price"`
	Active      bool       `json:"active"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
	CanceledAt  *time.Time `json:"canceled_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// OfferResponse represents a buy offer on an iteration
type OfferResponse struct {
	ID          int64      `json:"id"`
	IterationID string     `json:"iteration_id"`
	BuyerID     string     `json:"buyer_id"`
	Price       int64      `json:"price"`
	Active      bool       `json:"active"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
	CanceledAt  *time.Time `json:"canceled_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// MintTicketResponse represents a pre-paid mint right
type MintTicketResponse struct {
	ID                  int64      `json:"id"`
	CollectionID        string     `json:"collection_id"`
	OwnerID             string     `json:"owner_id"`
	Price               int64      `json:"price"`
	TaxationLockedUntil time.Time  `json:"taxation_locked_until"`
	ConsumedAt          *time.Time `json:"consumed_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
}

// ActionResponse represents one entry of the domain event log
type ActionResponse struct {
	ID           int64             `json:"id"`
	Type         domain.ActionType `json:"type"`
	CollectionID *string           `json:"collection_id,omitempty"`
	IterationID  *string           `json:"iteration_id,omitempty"`
	IssuerID     *string           `json:"issuer_id,omitempty"`
	TargetID     *string           `json:"target_id,omitempty"`
	NumericValue *int64            `json:"numeric_value,omitempty"`
	Data         json.RawMessage   `json:"data,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// MarketStatsResponse represents a collection's derived market snapshot
type MarketStatsResponse struct {
	Floor               *int64    `json:"floor"`
	Median              *int64    `json:"median"`
	TotalListing        int64     `json:"total_listing"`
	HighestSold         *int64    `json:"highest_sold"`
	LowestSold          *int64    `json:"lowest_sold"`
	PrimaryTotal        *int64    `json:"primary_total"`
	SecondaryVolumeTz   *int64    `json:"secondary_volume_tz"`
	SecondaryVolumeNb   *int64    `json:"secondary_volume_nb"`
	SecondaryVolumeTz24 *int64    `json:"secondary_volume_tz24"`
	SecondaryVolumeNb24 *int64    `json:"secondary_volume_nb24"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// MarketStatsHistoryResponse represents one history bucket
type MarketStatsHistoryResponse struct {
	From              time.Time `json:"from"`
	To                time.Time `json:"to"`
	Floor             *int64    `json:"floor"`
	Median            *int64    `json:"median"`
	TotalListing      int64     `json:"total_listing"`
	SecondaryVolumeTz *int64    `json:"secondary_volume_tz"`
	SecondaryVolumeNb *int64    `json:"secondary_volume_nb"`
}

// PaginatedIterations represents a paginated iterations expansion
type PaginatedIterations struct {
	Items  []IterationResponse `json:"items"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
}

// ListResponse wraps a filtered page with its unpaginated total
type ListResponse[T any] struct {
	Items  []T   `json:"items"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

// NewCollectionResponse maps a collection row
func NewCollectionResponse(c *schema.Collection, now time.Time) CollectionResponse {
	resp := CollectionResponse{
		ID:              c.EntityID().String(),
		Slug:            c.Slug,
		Name:            c.Name,
		AuthorID:        c.AuthorID,
		Supply:          c.Supply,
		Balance:         c.Balance,
		Enabled:         c.Enabled,
		ModerationState: c.ModerationState,
		Metadata:        json.RawMessage(c.Metadata),
		MintOpensAt:     c.MintOpensAt,
		CreatedAt:       c.CreatedAt,
	}

	switch pricing := c.Pricing().(type) {
	case domain.FixedPricing:
		resp.Pricing = &PricingResponse{
			Method:  domain.PricingMethodFixed,
			Price:   pricing.Price,
			OpensAt: pricing.OpensAt,
		}
	case domain.DutchAuctionPricing:
		opensAt := pricing.OpensAt
		resp.Pricing = &PricingResponse{
			Method:           domain.PricingMethodDutchAuction,
			Price:            pricing.PriceAt(now),
			Levels:           pricing.Levels,
			DecrementSeconds: int64(pricing.DecrementDuration.Seconds()),
			OpensAt:          &opensAt,
		}
	}

	return resp
}

// NewIterationResponse maps an iteration row
func NewIterationResponse(i *schema.Iteration) IterationResponse {
	return IterationResponse{
		ID:           i.EntityID().String(),
		CollectionID: domain.NewEntityID(i.CollectionID, i.CollectionVersion).String(),
		Iteration:    i.Iteration,
		OwnerID:      i.OwnerID,
		Name:         i.Name,
		Assigned:     i.Assigned,
		Features:     i.Features,
		Rarity:       i.Rarity,
		CreatedAt:    i.CreatedAt,
	}
}

// NewUserResponse maps a user row
func NewUserResponse(u *schema.User) UserResponse {
	return UserResponse{
		ID:              u.ID,
		Name:            u.Name,
		Description:     u.Description,
		ModerationState: u.ModerationState,
		Metadata:        json.RawMessage(u.Metadata),
		CreatedAt:       u.CreatedAt,
	}
}

// NewArticleResponse maps an article row
func NewArticleResponse(a *schema.Article) ArticleResponse {
	return ArticleResponse{
		ID:              a.ID,
		Slug:            a.Slug,
		AuthorID:        a.AuthorID,
		Title:           a.Title,
		Description:     a.Description,
		Body:            a.Body,
		ModerationState: a.ModerationState,
		CreatedAt:       a.CreatedAt,
	}
}

// NewListingResponse maps a listing row
func NewListingResponse(l *schema.Listing) ListingResponse {
	return ListingResponse{
		ID:          l.ID,
		IterationID: domain.NewEntityID(l.IterationID, l.IterationVersion).String(),
		SellerID:    l.SellerID,
		Price:       l.Price,
		Active:      l.Active(),
		AcceptedAt:  l.AcceptedAt,
		CanceledAt:  l.CanceledAt,
		CreatedAt:   l.CreatedAt,
	}
}

// NewOfferResponse maps an offer row
func NewOfferResponse(o *schema.Offer) OfferResponse {
	return OfferResponse{
		ID:          o.ID,
		IterationID: domain.NewEntityID(o.IterationID, o.IterationVersion).String(),
		BuyerID:     o.BuyerID,
		Price:       o.Price,
		Active:      o.Active(),
		AcceptedAt:  o.AcceptedAt,
		CanceledAt:  o.CanceledAt,
		CreatedAt:   o.CreatedAt,
	}
}

// NewMintTicketResponse maps a mint ticket row
func NewMintTicketResponse(m *schema.MintTicket) MintTicketResponse {
	return MintTicketResponse{
		ID:                  m.ID,
		CollectionID:        domain.NewEntityID(m.CollectionID, m.CollectionVersion).String(),
		OwnerID:             m.OwnerID,
		Price:               m.Price,
		TaxationLockedUntil: m.TaxationLockedUntil,
		ConsumedAt:          m.ConsumedAt,
		CreatedAt:           m.CreatedAt,
	}
}

// NewActionResponse maps an action row
func NewActionResponse(a *schema.Action) ActionResponse {
	resp := ActionResponse{
		ID:           a.ID,
		Type:         a.Type,
		IssuerID:     a.IssuerID,
		TargetID:     a.TargetID,
		NumericValue: a.NumericValue,
		Data:         json.RawMessage(a.Data),
		CreatedAt:    a.CreatedAt,
	}
	if a.CollectionID != nil && a.CollectionVersion != nil {
		id := domain.NewEntityID(*a.CollectionID, *a.CollectionVersion).String()
		resp.CollectionID = &id
	}
	if a.IterationID != nil && a.IterationVersion != nil {
		id := domain.NewEntityID(*a.IterationID, *a.IterationVersion).String()
		resp.IterationID = &id
	}
	return resp
}

// NewMarketStatsResponse maps a market stats row
func NewMarketStatsResponse(m *schema.MarketStats) MarketStatsResponse {
	return MarketStatsResponse{
		Floor:               m.Floor,
		Median:              m.Median,
		TotalListing:        m.TotalListing,
		HighestSold:         m.HighestSold,
		LowestSold:          m.LowestSold,
		PrimaryTotal:        m.PrimaryTotal,
		SecondaryVolumeTz:   m.SecondaryVolumeTz,
		SecondaryVolumeNb:   m.SecondaryVolumeNb,
		SecondaryVolumeTz24: m.SecondaryVolumeTz24,
		SecondaryVolumeNb24: m.SecondaryVolumeNb24,
		UpdatedAt:           m.UpdatedAt,
	}
}

// NewMarketStatsHistoryResponse maps a history bucket row
func NewMarketStatsHistoryResponse(h *schema.MarketStatsHistory) MarketStatsHistoryResponse {
	return MarketStatsHistoryResponse{
		From:              h.From,
		To:                h.To,
		Floor:             h.Floor,
		Median:            h.Median,
		TotalListing:      h.TotalListing,
		SecondaryVolumeTz: h.SecondaryVolumeTz,
		SecondaryVolumeNb: h.SecondaryVolumeNb,
	}
}
