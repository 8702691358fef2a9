package model

import (
	"fmt"

	"github.com/jmerrifield20/AuctionLedger/pkg/ledgerstate"
)

// CommodityClass is the type tag stored with every serialized commodity.
const CommodityClass = "org.auctionnet.commodity"

func init() {
	ledgerstate.Register(CommodityClass, func(env *ledgerstate.Envelope) (ledgerstate.State, error) {
		var rec Record
		if err := env.DecodeFields(&rec); err != nil {
			return nil, err
		}
		return fromRecord(rec)
	})
}

// Commodity is an auction item addressed on the ledger by issuer and item
// number. It holds no reference to the ledger; callers persist it through
// ToBuffer and the key returned by Key.
//
// Transition methods do not check the current state. Transaction logic must
// test the matching predicate first, or use Advance.
type Commodity struct {
	issuer     string
	itemNumber string
	key        string

	issueDateTime    string
	maturityDateTime string
	faceValue        int64

	owner    string
	ownerOrg string

	state State
}

// Record is the serialized field set of a Commodity. It doubles as the JSON
// view returned by the API.
type Record struct {
	Issuer           string `json:"issuer"`
	ItemNumber       string `json:"item_number"`
	IssueDateTime    string `json:"issue_date_time"`
	MaturityDateTime string `json:"maturity_date_time"`
	FaceValue        int64  `json:"face_value"`
	Owner            string `json:"owner"`
	OwnerOrg         string `json:"owner_org"`
	CurrentState     State  `json:"current_state"`
}

// NewCommodity creates a commodity in the initial state. issuer and
// itemNumber form the key and must be non-empty and free of the key separator.
func NewCommodity(issuer, itemNumber, issueDateTime, maturityDateTime string, faceValue int64) (*Commodity, error) {
	key, err := commodityKey(issuer, itemNumber)
	if err != nil {
		return nil, err
	}
	return &Commodity{
		issuer:           issuer,
		itemNumber:       itemNumber,
		key:              key,
		issueDateTime:    issueDateTime,
		maturityDateTime: maturityDateTime,
		faceValue:        faceValue,
		state:            Lifecycle.Initial(),
	}, nil
}

// CommodityKey returns the ledger key for issuer and itemNumber.
func CommodityKey(issuer, itemNumber string) (string, error) {
	return commodityKey(issuer, itemNumber)
}

func commodityKey(issuer, itemNumber string) (string, error) {
	switch {
	case issuer == "":
		return "", &ledgerstate.ValidationError{Field: "issuer", Msg: "must not be empty"}
	case itemNumber == "":
		return "", &ledgerstate.ValidationError{Field: "item_number", Msg: "must not be empty"}
	}
	return ledgerstate.MakeKey(issuer, itemNumber)
}

// FromBuffer reconstructs a commodity serialized by ToBuffer.
func FromBuffer(buf []byte) (*Commodity, error) {
	return ledgerstate.Unmarshal[*Commodity](ledgerstate.DefaultRegistry, buf, CommodityClass)
}

func fromRecord(rec Record) (*Commodity, error) {
	key, err := commodityKey(rec.Issuer, rec.ItemNumber)
	if err != nil {
		return nil, &ledgerstate.DeserializationError{Msg: "invalid commodity identity", Err: err}
	}
	if !Lifecycle.Has(rec.CurrentState) {
		return nil, &ledgerstate.DeserializationError{Msg: fmt.Sprintf("undeclared commodity state %q", rec.CurrentState)}
	}
	return &Commodity{
		issuer:           rec.Issuer,
		itemNumber:       rec.ItemNumber,
		key:              key,
		issueDateTime:    rec.IssueDateTime,
		maturityDateTime: rec.MaturityDateTime,
		faceValue:        rec.FaceValue,
		owner:            rec.Owner,
		ownerOrg:         rec.OwnerOrg,
		state:            rec.CurrentState,
	}, nil
}

// Class implements ledgerstate.State.
func (c *Commodity) Class() string { return CommodityClass }

// Key implements ledgerstate.State.
func (c *Commodity) Key() string { return c.key }

// ToBuffer implements ledgerstate.State.
func (c *Commodity) ToBuffer() ([]byte, error) {
	return ledgerstate.Encode(CommodityClass, c.Record())
}

// Record returns a copy of the commodity's fields.
func (c *Commodity) Record() Record {
	return Record{
		Issuer:           c.issuer,
		ItemNumber:       c.itemNumber,
		IssueDateTime:    c.issueDateTime,
		MaturityDateTime: c.maturityDateTime,
		FaceValue:        c.faceValue,
		Owner:            c.owner,
		OwnerOrg:         c.ownerOrg,
		CurrentState:     c.state,
	}
}

func (c *Commodity) Issuer() string           { return c.issuer }
func (c *Commodity) ItemNumber() string       { return c.itemNumber }
func (c *Commodity) IssueDateTime() string    { return c.issueDateTime }
func (c *Commodity) MaturityDateTime() string { return c.maturityDateTime }
func (c *Commodity) FaceValue() int64         { return c.faceValue }
func (c *Commodity) State() State             { return c.state }

func (c *Commodity) Owner() string          { return c.owner }
func (c *Commodity) SetOwner(owner string)  { c.owner = owner }
func (c *Commodity) OwnerOrg() string       { return c.ownerOrg }
func (c *Commodity) SetOwnerOrg(org string) { c.ownerOrg = org }

// Transitions and predicates address states by their position in Lifecycle.
const (
	ordSubmitted = iota
	ordAuctioned
	ordTrading
	ordDelivered
)

func (c *Commodity) MarkAuctioned() { c.state = Lifecycle.At(ordAuctioned) }
func (c *Commodity) MarkTrading()   { c.state = Lifecycle.At(ordTrading) }
func (c *Commodity) MarkDelivered() { c.state = Lifecycle.At(ordDelivered) }

func (c *Commodity) IsSubmitted() bool { return c.state == Lifecycle.At(ordSubmitted) }
func (c *Commodity) IsAuctioned() bool { return c.state == Lifecycle.At(ordAuctioned) }
func (c *Commodity) IsTrading() bool   { return c.state == Lifecycle.At(ordTrading) }
func (c *Commodity) IsDelivered() bool { return c.state == Lifecycle.At(ordDelivered) }

// Advance moves the commodity to its declared successor state. It returns a
// *ledgerstate.IllegalTransitionError, leaving the commodity unchanged, when
// the commodity is terminal or to is not the next declared state.
func (c *Commodity) Advance(to State) error {
	if err := Lifecycle.Check(c.state, to); err != nil {
		return err
	}
	c.state = to
	return nil
}
