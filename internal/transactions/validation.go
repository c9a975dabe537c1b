package transactions

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"warehouse-backend/internal/models"
	"warehouse-backend/internal/store"
)

// The checks below only read from the store. Each returns the value it
// validated so later steps do not read it twice.

func CheckSupplierStock(ctx context.Context, s store.Supplies, partID, supplierID uint, amount int) (int, error) {
	stock, err := s.SupplierStock(ctx, partID, supplierID)
	if errors.Is(err, store.ErrNotFound) {
		return 0, validationError(fiber.StatusBadRequest,
			map[string]any{"partID": partID, "supplierID": supplierID},
			"Supplier (%d) does not supply part (%d)", supplierID, partID)
	}
	if err != nil {
		return 0, internalError("supplier stock lookup", err)
	}

	if stock < amount {
		return stock, validationError(fiber.StatusBadRequest,
			map[string]any{"available": stock, "requested": amount},
			"Not enough stock (%d) for requested amount (%d)", stock, amount)
	}
	return stock, nil
}

// CheckWarehouseBudget returns the cost unitPrice * amount.
func CheckWarehouseBudget(ctx context.Context, s store.Warehouses, unitPrice decimal.Decimal, amount int, warehouseID uint) (decimal.Decimal, error) {
	budget, err := s.WarehouseBudget(ctx, warehouseID)
	if errors.Is(err, store.ErrNotFound) {
		return decimal.Zero, validationError(fiber.StatusNotFound,
			map[string]any{"warehouseID": warehouseID},
			"Warehouse (%d) not found", warehouseID)
	}
	if err != nil {
		return decimal.Zero, internalError("warehouse budget lookup", err)
	}

	cost := unitPrice.Mul(decimal.NewFromInt(int64(amount)))
	if budget.LessThan(cost) {
		return cost, validationError(fiber.StatusBadRequest,
			map[string]any{"budget": budget.StringFixed(2), "cost": cost.StringFixed(2)},
			"Not enough budget (%s) for transaction cost (%s)", budget.StringFixed(2), cost.StringFixed(2))
	}
	return cost, nil
}

func CheckUserInWarehouse(ctx context.Context, s store.Warehouses, userID, warehouseID uint) error {
	home, err := s.HomeWarehouseOf(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return validationError(fiber.StatusNotFound,
			map[string]any{"userID": userID},
			"User (%d) not found", userID)
	}
	if err != nil {
		return internalError("user lookup", err)
	}

	if home != warehouseID {
		return validationError(fiber.StatusBadRequest,
			map[string]any{"userID": userID, "warehouseID": warehouseID, "homeWarehouseID": home},
			"User (%d) does not work in warehouse (%d)", userID, warehouseID)
	}
	return nil
}

// CheckRackExists returns the rack capacity.
func CheckRackExists(ctx context.Context, s store.Racks, rackID uint) (int, error) {
	capacity, err := s.RackCapacity(ctx, rackID)
	if errors.Is(err, store.ErrNotFound) {
		return 0, validationError(fiber.StatusNotFound,
			map[string]any{"rackID": rackID},
			"Rack (%d) not found", rackID)
	}
	if err != nil {
		return 0, internalError("rack lookup", err)
	}
	return capacity, nil
}

func CheckRackExclusivity(ctx context.Context, s store.Racks, rackID, warehouseID, partID uint) error {
	a, err := s.RackAssignment(ctx, rackID)
	if err != nil {
		return internalError("rack assignment lookup", err)
	}
	if a == nil || (a.WarehouseID == warehouseID && a.PartID == partID) {
		return nil
	}
	return validationError(fiber.StatusConflict,
		map[string]any{"rackID": rackID, "assignedWarehouseID": a.WarehouseID, "assignedPartID": a.PartID},
		"Rack (%d) is already in use by warehouse (%d) and part (%d)", rackID, a.WarehouseID, a.PartID)
}

// CheckBudgetHeadroom returns the revenue unitPrice * amount and rejects a
// sale that would push the budget past models.MaxBudget.
func CheckBudgetHeadroom(ctx context.Context, s store.Warehouses, unitPrice decimal.Decimal, amount int, warehouseID uint) (decimal.Decimal, error) {
	budget, err := s.WarehouseBudget(ctx, warehouseID)
	if errors.Is(err, store.ErrNotFound) {
		return decimal.Zero, validationError(fiber.StatusNotFound,
			map[string]any{"warehouseID": warehouseID},
			"Warehouse (%d) not found", warehouseID)
	}
	if err != nil {
		return decimal.Zero, internalError("warehouse budget lookup", err)
	}

	revenue := unitPrice.Mul(decimal.NewFromInt(int64(amount)))
	if budget.Add(revenue).GreaterThanOrEqual(models.MaxBudget) {
		return revenue, validationError(fiber.StatusBadRequest,
			map[string]any{"budget": budget.StringFixed(2), "revenue": revenue.StringFixed(2)},
			"Revenue (%s) would exceed the budget limit of warehouse (%d)", revenue.StringFixed(2), warehouseID)
	}
	return revenue, nil
}

// CheckRackCapacity returns the quantity currently on the rack.
func CheckRackCapacity(ctx context.Context, s store.StoredIn, warehouseID, partID, rackID uint, capacity, amount int) (int, error) {
	current, err := s.StoredQuantity(ctx, warehouseID, partID, rackID)
	if err != nil {
		return 0, internalError("stored quantity lookup", err)
	}

	remaining := max(capacity-current, 0)
	if amount > remaining {
		return current, validationError(fiber.StatusBadRequest,
			map[string]any{"requested": amount, "capacity": capacity, "current": current, "remaining_capacity": remaining},
			"Too many parts (%d). Rack (%d) can hold %d more parts.", amount, rackID, remaining)
	}
	return current, nil
}

// CheckWarehouseQuantity returns the quantity currently on the rack.
func CheckWarehouseQuantity(ctx context.Context, s store.StoredIn, warehouseID, partID, rackID uint, amount int) (int, error) {
	current, err := s.StoredQuantity(ctx, warehouseID, partID, rackID)
	if err != nil {
		return 0, internalError("stored quantity lookup", err)
	}

	if current < amount {
		return current, validationError(fiber.StatusBadRequest,
			map[string]any{"available": current, "requested": amount, "rackID": rackID},
			"Not enough parts (%d) in warehouse (%d) for requested amount (%d)", current, warehouseID, amount)
	}
	return current, nil
}

// ResolveRack finds the rack holding (warehouse, part).
func ResolveRack(ctx context.Context, s store.StoredIn, warehouseID, partID uint) (uint, error) {
	rackID, err := s.RackFor(ctx, warehouseID, partID)
	if errors.Is(err, store.ErrNotFound) {
		return 0, validationError(fiber.StatusBadRequest,
			map[string]any{"warehouseID": warehouseID, "partID": partID},
			"No rack assigned to warehouse (%d) and part (%d)", warehouseID, partID)
	}
	if err != nil {
		return 0, internalError("rack lookup", err)
	}
	return rackID, nil
}

func CheckWarehouseExists(ctx context.Context, s store.Warehouses, warehouseID uint) error {
	ok, err := s.WarehouseExists(ctx, warehouseID)
	if err != nil {
		return internalError("warehouse lookup", err)
	}
	if !ok {
		return validationError(fiber.StatusNotFound,
			map[string]any{"warehouseID": warehouseID},
			"Warehouse (%d) not found", warehouseID)
	}
	return nil
}

func CheckPartExists(ctx context.Context, s store.Parts, partID uint) error {
	ok, err := s.PartExists(ctx, partID)
	if err != nil {
		return internalError("part lookup", err)
	}
	if !ok {
		return validationError(fiber.StatusNotFound,
			map[string]any{"partID": partID},
			"Part (%d) not found", partID)
	}
	return nil
}

// CheckDestinationRack rejects a transfer whose part already sits on another
// rack in the destination warehouse.
func CheckDestinationRack(ctx context.Context, s store.StoredIn, warehouseID, partID, rackID uint) error {
	assigned, err := s.RackFor(ctx, warehouseID, partID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return internalError("rack lookup", err)
	}
	if assigned != rackID {
		return validationError(fiber.StatusConflict,
			map[string]any{"assignedRackID": assigned, "requestedRackID": rackID},
			"Warehouse (%d) and part (%d) assigned to rack %d, not %d", warehouseID, partID, assigned, rackID)
	}
	return nil
}
