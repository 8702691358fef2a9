package model

// IssueRequest is the payload for issuing a new commodity.
type IssueRequest struct {
	Issuer           string `json:"issuer"             binding:"required"`
	ItemNumber       string `json:"item_number"        binding:"required"`
	IssueDateTime    string `json:"issue_date_time"`
	MaturityDateTime string `json:"maturity_date_time"`
	FaceValue        int64  `json:"face_value"`
}

// BuyRequest is the payload for buying an auctioned or trading commodity.
// CurrentOwner must match the ledger's view of the owner, which guards
// against acting on a stale read.
type BuyRequest struct {
	CurrentOwner     string `json:"current_owner"      binding:"required"`
	NewOwner         string `json:"new_owner"          binding:"required"`
	Price            int64  `json:"price"`
	PurchaseDateTime string `json:"purchase_date_time"`
}

// DeliverRequest is the payload for marking a commodity delivered.
type DeliverRequest struct {
	DeliveryDateTime string `json:"delivery_date_time"`
}
