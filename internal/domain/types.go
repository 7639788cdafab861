package domain

// ActionType represents the type of a domain event recorded by the indexer
type ActionType string

const (
	ActionTypeMinted          ActionType = "minted"
	ActionTypeMintedFrom      ActionType = "minted_from"
	ActionTypeTransferred     ActionType = "transferred"
	ActionTypeListed          ActionType = "listed"
	ActionTypeListingAccepted ActionType = "listing_accepted"
	ActionTypeListingCanceled ActionType = "listing_canceled"
	ActionTypeOffered         ActionType = "offered"
	ActionTypeOfferAccepted   ActionType = "offer_accepted"
	ActionTypeOfferCanceled   ActionType = "offer_canceled"
	ActionTypeTicketMinted    ActionType = "ticket_minted"
	ActionTypeRedeemed        ActionType = "redeemed"
	ActionTypeCompleted       ActionType = "completed"
)

// SaleActionTypes are the action types that settle a secondary sale
var SaleActionTypes = []ActionType{ActionTypeListingAccepted, ActionTypeOfferAccepted}

// ModerationState represents the moderation flag carried by a collection
type ModerationState int16

const (
	ModerationStateNone ModerationState = iota
	ModerationStateClean
	ModerationStateReported
	ModerationStateAutoFlagged
	ModerationStateMalicious
	ModerationStateHidden
)

// PricingMethod identifies which of the two mutually exclusive pricing
// records is attached to a collection
type PricingMethod string

const (
	PricingMethodFixed        PricingMethod = "fixed"
	PricingMethodDutchAuction PricingMethod = "dutch_auction"
)

// IsValidPricingMethod checks if a pricing method is one of the two strategies
func IsValidPricingMethod(m PricingMethod) bool {
	return m == PricingMethodFixed || m == PricingMethodDutchAuction
}

// ReserveMethod identifies how a reserve allotment is distributed
type ReserveMethod string

const (
	ReserveMethodWhitelist ReserveMethod = "whitelist"
	ReserveMethodMintPass  ReserveMethod = "mint_pass"
	ReserveMethodAirdrop   ReserveMethod = "airdrop"
)

// MintProgress classifies how far along a collection's mint is.
// The thresholds are evaluated net of active reserve allotments.
type MintProgress string

const (
	// MintProgressCompleted means the remaining balance is zero
	MintProgressCompleted MintProgress = "completed"
	// MintProgressOngoing means balance net of reserves is still positive
	MintProgressOngoing MintProgress = "ongoing"
	// MintProgressAlmost means net remaining is positive but under 10% of supply
	MintProgressAlmost MintProgress = "almost"
)

// IsValidMintProgress checks if a mint progress value is known
func IsValidMintProgress(p MintProgress) bool {
	return p == MintProgressCompleted || p == MintProgressOngoing || p == MintProgressAlmost
}

// FeatureFilter selects iterations whose feature set contains the named
// trait with any of the given values. Values of one filter combine with OR,
// several filters combine with AND.
type FeatureFilter struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}
