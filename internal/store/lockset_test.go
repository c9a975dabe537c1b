package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLockSet_Normalize(t *testing.T) {
	set := LockSet{
		Warehouses: []uint{7, 2, 0, 7},
		Racks:      []uint{3, 1, 3},
		Supplies: []SuppliesKey{
			{PartID: 5, SupplierID: 2},
			{PartID: 1, SupplierID: 9},
			{PartID: 5, SupplierID: 1},
			{PartID: 5, SupplierID: 2},
			{PartID: 0, SupplierID: 4},
		},
	}

	got := set.Normalize()

	assert.Equal(t, []uint{2, 7}, got.Warehouses)
	assert.Equal(t, []uint{1, 3}, got.Racks)
	assert.Equal(t, []SuppliesKey{
		{PartID: 1, SupplierID: 9},
		{PartID: 5, SupplierID: 1},
		{PartID: 5, SupplierID: 2},
	}, got.Supplies)

	// the input is left untouched
	assert.Equal(t, []uint{7, 2, 0, 7}, set.Warehouses)
}

func TestBudgetDirection_String(t *testing.T) {
	assert.Equal(t, "increase", BudgetIncrease.String())
	assert.Equal(t, "decrease", BudgetDecrease.String())
	assert.Equal(t, "unknown", BudgetDirection(0).String())
}
