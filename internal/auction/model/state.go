package model

import "github.com/jmerrifield20/AuctionLedger/pkg/ledgerstate"

// State is the lifecycle state of a commodity.
type State string

const (
	StateSubmitted State = "SUBMITTED"
	StateAuctioned State = "AUCTIONED"
	StateTrading   State = "TRADING"
	StateDelivered State = "DELIVERED"
)

// Lifecycle is the single declaration of commodity states. Order matters:
// SUBMITTED is initial, DELIVERED is terminal.
var Lifecycle = ledgerstate.NewLifecycle(
	StateSubmitted,
	StateAuctioned,
	StateTrading,
	StateDelivered,
)
