package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/lamont703/XRWebsites-sub000/internal/payments"
	"github.com/lamont703/XRWebsites-sub000/internal/wallet"
)

// RegisterWalletRoutes wires wallet and wallet-scoped operation endpoints.
func RegisterWalletRoutes(r fiber.Router, wh *wallet.Handler, ph *payments.Handler) {
	r.Post("/wallets", wh.Create)
	r.Get("/wallets/me", wh.Me)
	r.Get("/wallets/:walletId", wh.Get)
	r.Post("/wallets/:walletId/accounts", wh.ConnectAccount)

	r.Post("/wallets/:walletId/deposit", ph.Deposit)
	r.Post("/wallets/:walletId/withdraw", ph.Withdraw)
	r.Post("/wallets/:walletId/transfer", ph.Transfer)
	r.Get("/wallets/:walletId/transactions", ph.History)
	r.Get("/wallets/:walletId/transactions/stats", ph.Stats)

	r.Post("/wallets/:walletId/nfts", ph.MintNFT)
	r.Get("/wallets/:walletId/nfts", ph.WalletNFTs)
	r.Post("/wallets/:walletId/nfts/transfer", ph.TransferNFT)
}
