package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/lamont703/XRWebsites-sub000/internal/asset"
	"github.com/lamont703/XRWebsites-sub000/internal/payments"
)

// RegisterAssetRoutes wires NFT endpoints.
func RegisterAssetRoutes(r fiber.Router, ah *asset.Handler, ph *payments.Handler) {
	r.Get("/nfts/:nftId", ah.Get)
	r.Patch("/nfts/:nftId/metadata", ah.UpdateMetadata)
	r.Delete("/nfts/:nftId", ah.Delete)
	r.Post("/nfts/:nftId/tokenize", ah.Tokenize)
	r.Post("/nfts/:nftId/listings", ph.ListNFT)
	r.Get("/creators/:creatorId/nfts", ah.ByCreator)
}
