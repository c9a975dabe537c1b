package store

import (
	"cmp"
	"slices"
)

// Normalize returns a copy of the set with zero ids dropped, duplicates removed
// and every group sorted into lock order.
func (s LockSet) Normalize() LockSet {
	out := LockSet{
		Warehouses: sortedIDs(s.Warehouses),
		Racks:      sortedIDs(s.Racks),
	}

	for _, k := range s.Supplies {
		if k.PartID == 0 || k.SupplierID == 0 {
			continue
		}
		out.Supplies = append(out.Supplies, k)
	}
	slices.SortFunc(out.Supplies, func(a, b SuppliesKey) int {
		if c := cmp.Compare(a.PartID, b.PartID); c != 0 {
			return c
		}
		return cmp.Compare(a.SupplierID, b.SupplierID)
	})
	out.Supplies = slices.Compact(out.Supplies)

	return out
}

func sortedIDs(ids []uint) []uint {
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id != 0 {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
