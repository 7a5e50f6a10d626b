// internal/models/ticket_test.go
package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestUserTicketIsApproved(t *testing.T) {
	cases := map[TicketApprovalStatus]bool{
		TicketApprovalStatusApproved:    true,
		TicketApprovalStatusNotRequired: true,
		TicketApprovalStatusPending:     false,
		TicketApprovalStatusGifted:      false,
		TicketApprovalStatusRejected:    false,
		TicketApprovalStatusCancelled:   false,
	}

	for status, expected := range cases {
		ticket := UserTicket{ApprovalStatus: status}
		assert.Equal(t, expected, ticket.IsApproved(), "status %s", status)
	}
}

func TestUserTicketHoldsStock(t *testing.T) {
	cases := map[TicketApprovalStatus]bool{
		TicketApprovalStatusPending:     true,
		TicketApprovalStatusApproved:    true,
		TicketApprovalStatusGifted:      true,
		TicketApprovalStatusNotRequired: true,
		TicketApprovalStatusRejected:    false,
		TicketApprovalStatusCancelled:   false,
	}

	for status, expected := range cases {
		ticket := UserTicket{ApprovalStatus: status}
		assert.Equal(t, expected, ticket.HoldsStock(), "status %s", status)
	}
}

func TestTicketTemplateIsUnlimited(t *testing.T) {
	quantity := 100

	assert.True(t, (&TicketTemplate{}).IsUnlimited())
	assert.False(t, (&TicketTemplate{Quantity: &quantity}).IsUnlimited())
}

func TestAddonHasUnlimitedStock(t *testing.T) {
	stock := 50

	assert.True(t, (&Addon{}).HasUnlimitedStock())
	assert.True(t, (&Addon{IsUnlimited: true, TotalStock: &stock}).HasUnlimitedStock())
	assert.False(t, (&Addon{TotalStock: &stock}).HasUnlimitedStock())
}

func TestUserTicketAddonIsPaid(t *testing.T) {
	assert.False(t, (&UserTicketAddon{}).IsPaid())
	assert.True(t, (&UserTicketAddon{UnitPriceInCents: 500}).IsPaid())
}

func TestAddonPriceForCurrency(t *testing.T) {
	usd := uuid.New()
	clp := uuid.New()

	addon := Addon{
		Prices: []AddonPrice{
			{CurrencyID: usd, PriceInCents: 1500},
		},
	}

	price, ok := addon.PriceForCurrency(usd)
	assert.True(t, ok)
	assert.Equal(t, int64(1500), price)

	_, ok = addon.PriceForCurrency(clp)
	assert.False(t, ok)
}
