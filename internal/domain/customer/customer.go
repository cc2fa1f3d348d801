// Package customer holds loyalty member records and the directory keyed by
// member id.
package customer

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
)

// Sentinel errors for customer operations.
var (
	ErrEmptyMemberID     = errors.New("member id required")
	ErrEmptyName         = errors.New("name required")
	ErrDuplicateMember   = errors.New("member already exists")
	ErrNegativePoints    = errors.New("points must not be negative")
	ErrInsufficientPoint = errors.New("not enough points to redeem")
)

// NotFoundError indicates an unknown member id.
type NotFoundError struct {
	MemberID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("member %s not found", e.MemberID)
}

// Tier is a customer's loyalty rank. Unknown values are carried as-is and
// earn no discount and base rewards.
type Tier string

const (
	TierBronze   Tier = "BRONZE"
	TierSilver   Tier = "SILVER"
	TierGold     Tier = "GOLD"
	TierPlatinum Tier = "PLATINUM"
)

// tierOrder defines the one-way upgrade path.
var tierOrder = []Tier{TierBronze, TierSilver, TierGold, TierPlatinum}

// ParseTier normalizes a tier string. It accepts any case and maps the
// empty string and "NONE" to Bronze, the zero-benefit tier.
func ParseTier(s string) Tier {
	t := Tier(strings.ToUpper(strings.TrimSpace(s)))
	if t == "" || t == "NONE" {
		return TierBronze
	}
	return t
}

// Next returns the tier one step up, or the same tier at the top of the
// ladder. Unknown tiers do not move.
func (t Tier) Next() Tier {
	for i, tier := range tierOrder {
		if tier == t && i < len(tierOrder)-1 {
			return tierOrder[i+1]
		}
	}
	return t
}

// Customer is a loyalty program member. Points never go negative and tier
// changes only move forward.
type Customer struct {
	MemberID string `json:"member_id"`
	Name     string `json:"name"`
	Tier     Tier   `json:"tier"`
	Points   int64  `json:"points"`
}

// AddPoints credits n points to the customer.
func (c *Customer) AddPoints(n int64) error {
	if n < 0 {
		return ErrNegativePoints
	}
	c.Points += n
	return nil
}

// RedeemPoints debits n points; the balance must cover the redemption.
func (c *Customer) RedeemPoints(n int64) error {
	if n < 0 {
		return ErrNegativePoints
	}
	if n > c.Points {
		return ErrInsufficientPoint
	}
	c.Points -= n
	return nil
}

// UpgradeTier moves the customer one tier forward. Upgrades never move back.
func (c *Customer) UpgradeTier() {
	c.Tier = c.Tier.Next()
}

// ResetPoints zeroes the points balance.
func (c *Customer) ResetPoints() {
	c.Points = 0
}

// Directory is the customer store keyed by member id.
type Directory struct {
	byID map[string]*Customer
}

// NewDirectory creates an empty customer directory.
func NewDirectory() *Directory {
	return &Directory{byID: make(map[string]*Customer)}
}

// Add registers a new member.
func (d *Directory) Add(memberID, name string, tier Tier, points int64) error {
	if memberID == "" {
		return ErrEmptyMemberID
	}
	if name == "" {
		return ErrEmptyName
	}
	if points < 0 {
		return ErrNegativePoints
	}
	if _, ok := d.byID[memberID]; ok {
		return errors.Wrap(ErrDuplicateMember, memberID)
	}
	d.byID[memberID] = &Customer{MemberID: memberID, Name: name, Tier: tier, Points: points}
	return nil
}

// Get returns the customer with the given member id.
func (d *Directory) Get(memberID string) (*Customer, error) {
	c, ok := d.byID[memberID]
	if !ok {
		return nil, &NotFoundError{MemberID: memberID}
	}
	return c, nil
}

// Validate reports whether a customer with the given member id exists.
func (d *Directory) Validate(memberID string) bool {
	_, ok := d.byID[memberID]
	return ok
}

// Award credits points to the member. It fails when the member is unknown.
func (d *Directory) Award(memberID string, points int64) error {
	c, ok := d.byID[memberID]
	if !ok {
		return &NotFoundError{MemberID: memberID}
	}
	return c.AddPoints(points)
}

// All returns a snapshot copy of every customer record, keyed by member id.
func (d *Directory) All() map[string]Customer {
	out := make(map[string]Customer, len(d.byID))
	for id, c := range d.byID {
		out[id] = *c
	}
	return out
}

// Restore replaces the directory contents, used when loading persisted state.
func (d *Directory) Restore(customers map[string]Customer) {
	d.byID = make(map[string]*Customer, len(customers))
	for id, c := range customers {
		rec := c
		d.byID[id] = &rec
	}
}
