package wallet

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/lamont703/XRWebsites-sub000/internal/middleware"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Create provisions a wallet for the authenticated user.
func (h *Handler) Create(c *fiber.Ctx) error {
	caller := middleware.CallerFrom(c)
	w, err := h.service.Create(c.UserContext(), caller.UserID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(w)
}

// Me returns the authenticated user's wallet.
func (h *Handler) Me(c *fiber.Ctx) error {
	caller := middleware.CallerFrom(c)
	w, err := h.service.FindByUser(c.UserContext(), caller.UserID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(w)
}

// Get returns a wallet by id, owner or admin only.
func (h *Handler) Get(c *fiber.Ctx) error {
	caller := middleware.CallerFrom(c)
	w, err := h.service.FindByID(c.UserContext(), c.Params("walletId"))
	if err != nil {
		return err
	}
	if !caller.CanAct(w.UserID) {
		return fiber.NewError(http.StatusForbidden, "unauthorized to access this wallet")
	}
	return c.Status(http.StatusOK).JSON(w)
}

type connectAccountRequest struct {
	ExternalWalletAddress string `json:"external_wallet_address"`
	WalletType            string `json:"wallet_type"`
}

// ConnectAccount links an external address to the wallet.
func (h *Handler) ConnectAccount(c *fiber.Ctx) error {
	var req connectAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	caller := middleware.CallerFrom(c)
	w, err := h.service.ConnectExternalAccount(c.UserContext(), c.Params("walletId"), req.ExternalWalletAddress, req.WalletType, caller)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(w)
}
