package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSumLineItems(t *testing.T) {
	items := []LineItem{
		{ItemName: "Toner", UnitPrice: decimal.RequireFromString("1250.50"), PRQuantity: 2},
		{ItemName: "Paper", UnitPrice: decimal.NewFromInt(300), PRQuantity: 5},
		{ItemName: "Stapler", UnitPrice: decimal.NewFromInt(999), PRQuantity: 0},
	}

	totals := SumLineItems(items)
	assert.Equal(t, int64(7), totals.TotalQuantity)
	assert.True(t, decimal.RequireFromString("4001").Equal(totals.TotalEstimatedCost), totals.TotalEstimatedCost.String())
}

func TestSumLineItemsEmpty(t *testing.T) {
	totals := SumLineItems(nil)
	assert.Zero(t, totals.TotalQuantity)
	assert.True(t, totals.TotalEstimatedCost.IsZero())
}

func TestOptionLabels(t *testing.T) {
	assert.Equal(t, "Acme Ltd", Supplier{Name: "acme", CompanyName: "Acme Ltd"}.Option().Label)
	assert.Equal(t, "acme", Supplier{Name: "acme"}.Option().Label)
	assert.Equal(t, "FIN - Finance", Department{Name: "Finance", Code: "FIN"}.Option().Label)
	assert.Equal(t, OptionBranch, Branch{Name: "Lagos"}.Option().Kind)
	assert.True(t, OptionCategory.Valid())
	assert.False(t, OptionKind("vendor").Valid())
}
