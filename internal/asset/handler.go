package asset

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/lamont703/XRWebsites-sub000/internal/middleware"
)

// Handler exposes read and maintenance endpoints on assets. Mint, transfer
// and listing go through the payments orchestrator.
type Handler struct {
	registry *Registry
}

// NewHandler builds an asset HTTP handler.
func NewHandler(registry *Registry) *Handler {
	return &Handler{registry: registry}
}

// Get returns one asset by id.
func (h *Handler) Get(c *fiber.Ctx) error {
	a, err := h.registry.FindByID(c.UserContext(), c.Params("nftId"))
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(a)
}

// ByCreator lists assets created by the given user.
func (h *Handler) ByCreator(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 10)
	assets, total, err := h.registry.FindByCreator(c.UserContext(), c.Params("creatorId"), page, limit)
	if err != nil {
		return err
	}
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"nfts": assets,
		"pagination": fiber.Map{
			"total": total,
			"page":  page,
			"limit": limit,
			"pages": pages,
		},
	})
}

type tokenizeRequest struct {
	TokenSupply int             `json:"token_supply"`
	TokenPrice  decimal.Decimal `json:"token_price"`
}

// Tokenize fractionalizes the asset in the path.
func (h *Handler) Tokenize(c *fiber.Ctx) error {
	var req tokenizeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	a, err := h.registry.Tokenize(c.UserContext(), c.Params("nftId"), req.TokenSupply, req.TokenPrice, middleware.CallerFrom(c))
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(a)
}

type metadataRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	ImageURL    *string          `json:"image_url"`
	Value       *decimal.Decimal `json:"value"`
	Attributes  []Attribute      `json:"attributes"`
	Royalties   *int             `json:"royalties"`
}

// UpdateMetadata merges the supplied fields into the asset's metadata.
func (h *Handler) UpdateMetadata(c *fiber.Ctx) error {
	var req metadataRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	a, err := h.registry.UpdateMetadata(c.UserContext(), c.Params("nftId"), MetadataPatch{
		Name:        req.Name,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Value:       req.Value,
		Attributes:  req.Attributes,
		Royalties:   req.Royalties,
	}, middleware.CallerFrom(c))
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(a)
}

// Delete soft-deletes the asset in the path.
func (h *Handler) Delete(c *fiber.Ctx) error {
	a, err := h.registry.SoftDelete(c.UserContext(), c.Params("nftId"), middleware.CallerFrom(c))
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(a)
}
