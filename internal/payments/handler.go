package payments

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/lamont703/XRWebsites-sub000/internal/asset"
	"github.com/lamont703/XRWebsites-sub000/internal/middleware"
)

// Handler exposes the orchestrated wallet and asset operations.
type Handler struct {
	service     *Service
	listingDays int
}

// NewHandler constructs a payments handler. listingDays is the listing
// duration applied when a request omits one.
func NewHandler(service *Service, listingDays int) *Handler {
	return &Handler{service: service, listingDays: listingDays}
}

type depositRequest struct {
	Amount          decimal.Decimal `json:"amount"`
	Source          string          `json:"source"`
	TransactionHash string          `json:"transaction_hash"`
	ClientTxID      string          `json:"client_tx_id"`
}

// Deposit credits the wallet in the path.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	var req depositRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	w, err := h.service.Deposit(c.UserContext(), DepositInput{
		WalletID:        c.Params("walletId"),
		Amount:          req.Amount,
		Source:          req.Source,
		TransactionHash: req.TransactionHash,
		ClientTxID:      req.ClientTxID,
	}, middleware.CallerFrom(c))
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(w)
}

type withdrawRequest struct {
	Amount             decimal.Decimal `json:"amount"`
	DestinationAddress string          `json:"destination_address"`
}

// Withdraw debits the wallet in the path.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	var req withdrawRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	w, err := h.service.Withdraw(c.UserContext(), WithdrawInput{
		WalletID:           c.Params("walletId"),
		Amount:             req.Amount,
		DestinationAddress: req.DestinationAddress,
	}, middleware.CallerFrom(c))
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(w)
}

type transferRequest struct {
	Amount            decimal.Decimal `json:"amount"`
	RecipientWalletID string          `json:"recipient_wallet_id"`
}

// Transfer moves funds from the wallet in the path to another wallet.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	w, err := h.service.Transfer(c.UserContext(), TransferInput{
		FromWalletID: c.Params("walletId"),
		ToWalletID:   req.RecipientWalletID,
		Amount:       req.Amount,
	}, middleware.CallerFrom(c))
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(w)
}

type mintRequest struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	ImageURL    string            `json:"image_url"`
	Value       decimal.Decimal   `json:"value"`
	Attributes  []asset.Attribute `json:"attributes"`
	Royalties   int               `json:"royalties"`
	Supply      int               `json:"supply"`
}

// MintNFT mints a new asset into the wallet in the path.
func (h *Handler) MintNFT(c *fiber.Ctx) error {
	var req mintRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	created, err := h.service.MintNFT(c.UserContext(), MintInput{
		WalletID:    c.Params("walletId"),
		Name:        req.Name,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Value:       req.Value,
		Attributes:  req.Attributes,
		Royalties:   req.Royalties,
		Supply:      req.Supply,
	}, middleware.CallerFrom(c))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(created)
}

type nftTransferRequest struct {
	NFTID             string `json:"nft_id"`
	RecipientWalletID string `json:"recipient_wallet_id"`
}

// TransferNFT moves an asset from the wallet in the path to another wallet.
func (h *Handler) TransferNFT(c *fiber.Ctx) error {
	var req nftTransferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	transferred, err := h.service.TransferNFT(c.UserContext(), NFTTransferInput{
		WalletID:          c.Params("walletId"),
		NFTID:             req.NFTID,
		RecipientWalletID: req.RecipientWalletID,
	}, middleware.CallerFrom(c))
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(transferred)
}

type listRequest struct {
	WalletID     string          `json:"wallet_id"`
	Price        decimal.Decimal `json:"price"`
	DurationDays int             `json:"duration_days"`
}

// ListNFT puts the asset in the path up for sale.
func (h *Handler) ListNFT(c *fiber.Ctx) error {
	var req listRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.DurationDays == 0 {
		req.DurationDays = h.listingDays
	}
	listing, err := h.service.ListNFT(c.UserContext(), ListInput{
		WalletID:     req.WalletID,
		NFTID:        c.Params("nftId"),
		Price:        req.Price,
		DurationDays: req.DurationDays,
	}, middleware.CallerFrom(c))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(listing)
}

// History returns the wallet's paginated transaction history.
func (h *Handler) History(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 10)
	entries, total, err := h.service.History(c.UserContext(), c.Params("walletId"), page, limit, middleware.CallerFrom(c))
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"transactions": entries,
		"pagination":   pagination(total, page, limit),
	})
}

// Stats returns transaction counts by type for the wallet in the path,
// over the last N days (default 30).
func (h *Handler) Stats(c *fiber.Ctx) error {
	days := c.QueryInt("days", 30)
	if days < 1 {
		days = 30
	}
	since := time.Now().UTC().AddDate(0, 0, -days)
	stats, err := h.service.Stats(c.UserContext(), c.Params("walletId"), since, middleware.CallerFrom(c))
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"window_days": days,
		"stats":       stats,
	})
}

// WalletNFTs returns the assets held by the wallet in the path.
func (h *Handler) WalletNFTs(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 10)
	assets, total, err := h.service.WalletAssets(c.UserContext(), c.Params("walletId"), page, limit, middleware.CallerFrom(c))
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"nfts":       assets,
		"pagination": pagination(total, page, limit),
	})
}

func pagination(total, page, limit int) fiber.Map {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return fiber.Map{
		"total": total,
		"page":  page,
		"limit": limit,
		"pages": pages,
	}
}
