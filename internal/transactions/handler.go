package transactions

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"warehouse-backend/internal/auth"
)

// withActingUser fills a missing user id from the bearer token and rejects
// one that names somebody else.
func withActingUser(c *fiber.Ctx, userID **uint) error {
	uid, ok := auth.ActingUser(c)
	if !ok {
		return nil
	}
	if *userID == nil {
		*userID = &uid
		return nil
	}
	if **userID != uid {
		return fiber.NewError(fiber.StatusForbidden, "userID does not match the authenticated user")
	}
	return nil
}

func paramID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, structuralError(map[string]any{"id": c.Params("id")}, "id must be a positive integer")
	}
	return uint(id), nil
}

// POST /api/incoming
func CreateIncomingHandler(svc *IncomingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req, err := DecodeIncoming(c.Body())
		if err != nil {
			return err
		}
		if err := withActingUser(c, &req.UserID); err != nil {
			return err
		}
		in, err := req.Validate()
		if err != nil {
			return err
		}

		it, err := svc.Create(c.UserContext(), in)
		if err != nil {
			return err
		}
		return Success(c, fiber.StatusCreated, NewIncomingView(*it))
	}
}

// GET /api/incoming
func ListIncomingHandler(svc *IncomingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rows, err := svc.List(c.UserContext())
		if err != nil {
			return err
		}
		return Success(c, fiber.StatusOK, mapViews(rows, NewIncomingView))
	}
}

// GET /api/incoming/:id
func GetIncomingHandler(svc *IncomingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		it, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return err
		}
		return Success(c, fiber.StatusOK, NewIncomingView(*it))
	}
}

// PUT /api/incoming/:id
func ModifyIncomingHandler(svc *IncomingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		req, err := DecodeIncoming(c.Body())
		if err != nil {
			return err
		}
		if err := withActingUser(c, &req.UserID); err != nil {
			return err
		}
		in, err := req.Validate()
		if err != nil {
			return err
		}

		it, err := svc.Modify(c.UserContext(), id, in)
		if err != nil {
			return err
		}
		return Success(c, fiber.StatusOK, NewIncomingView(*it))
	}
}

// POST /api/outgoing
func CreateOutgoingHandler(svc *OutgoingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req, err := DecodeOutgoing(c.Body())
		if err != nil {
			return err
		}
		if err := withActingUser(c, &req.UserID); err != nil {
			return err
		}
		in, err := req.Validate()
		if err != nil {
			return err
		}

		ot, err := svc.Create(c.UserContext(), in)
		if err != nil {
			return err
		}
		return Success(c, fiber.StatusCreated, NewOutgoingView(*ot))
	}
}

// GET /api/outgoing
func ListOutgoingHandler(svc *OutgoingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rows, err := svc.List(c.UserContext())
		if err != nil {
			return err
		}
		return Success(c, fiber.StatusOK, mapViews(rows, NewOutgoingView))
	}
}

// GET /api/outgoing/:id
func GetOutgoingHandler(svc *OutgoingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		ot, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return err
		}
		return Success(c, fiber.StatusOK, NewOutgoingView(*ot))
	}
}

// PUT /api/outgoing/:id
func ModifyOutgoingHandler(svc *OutgoingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		req, err := DecodeOutgoing(c.Body())
		if err != nil {
			return err
		}
		if err := withActingUser(c, &req.UserID); err != nil {
			return err
		}
		in, err := req.Validate()
		if err != nil {
			return err
		}

		ot, err := svc.Modify(c.UserContext(), id, in)
		if err != nil {
			return err
		}
		return Success(c, fiber.StatusOK, NewOutgoingView(*ot))
	}
}

// POST /api/transfers
func CreateTransferHandler(svc *TransferService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req, err := DecodeTransfer(c.Body())
		if err != nil {
			return err
		}
		if err := withActingUser(c, &req.UserID); err != nil {
			return err
		}
		in, err := req.Validate()
		if err != nil {
			return err
		}

		tt, err := svc.Create(c.UserContext(), in)
		if err != nil {
			return err
		}
		return Success(c, fiber.StatusCreated, NewTransferView(*tt))
	}
}

// GET /api/transfers
func ListTransfersHandler(svc *TransferService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rows, err := svc.List(c.UserContext())
		if err != nil {
			return err
		}
		return Success(c, fiber.StatusOK, mapViews(rows, NewTransferView))
	}
}

// GET /api/transfers/:id
func GetTransferHandler(svc *TransferService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		tt, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return err
		}
		return Success(c, fiber.StatusOK, NewTransferView(*tt))
	}
}

// PUT /api/transfers/:id
func ModifyTransferHandler(svc *TransferService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		req, err := DecodeTransfer(c.Body())
		if err != nil {
			return err
		}
		if err := withActingUser(c, &req.UserID); err != nil {
			return err
		}
		in, err := req.Validate()
		if err != nil {
			return err
		}

		tt, err := svc.Modify(c.UserContext(), id, in)
		if err != nil {
			return err
		}
		return Success(c, fiber.StatusOK, NewTransferView(*tt))
	}
}

// GET /api/transactions?warehouse_id=1
func ListTransactionsHandler(svc *LedgerService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var warehouseID *uint
		if v := c.Query("warehouse_id"); v != "" {
			id, err := strconv.ParseUint(v, 10, 64)
			if err != nil || id == 0 {
				return structuralError(map[string]any{"warehouse_id": v}, "warehouse_id must be a positive integer")
			}
			wid := uint(id)
			warehouseID = &wid
		}

		rows, err := svc.List(c.UserContext(), warehouseID)
		if err != nil {
			return err
		}
		return Success(c, fiber.StatusOK, mapViews(rows, NewLedgerEntry))
	}
}

// GET /api/transactions/:id
func GetTransactionHandler(svc *LedgerService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		t, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return err
		}
		return Success(c, fiber.StatusOK, NewLedgerEntry(*t))
	}
}
