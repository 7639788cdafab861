// Package rest wires the marketplace read API onto gin. Every endpoint is a
// read; writes happen in the indexer and the stats worker, never here.
package rest

import (
	"github.com/gin-gonic/gin"
)

// SetupRoutes registers the API routes on the router
func SetupRoutes(r *gin.Engine, h *Handler) {
	r.GET("/healthz", h.Health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/collections", h.ListCollections)
		v1.GET("/collections/:id", h.GetCollection)
		v1.GET("/collections/:id/iterations", h.ListCollectionIterations)
		v1.GET("/collections/:id/stats", h.GetCollectionStats)
		v1.GET("/collections/:id/stats/history", h.GetCollectionStatsHistory)

		v1.GET("/iterations", h.ListIterations)
		v1.GET("/iterations/:id", h.GetIteration)

		v1.GET("/listings", h.ListListings)
		v1.GET("/offers", h.ListOffers)

		v1.GET("/users", h.ListUsers)
		v1.GET("/users/:id", h.GetUser)

		v1.GET("/articles", h.ListArticles)
		v1.GET("/articles/:id", h.GetArticle)

		v1.GET("/mint-tickets", h.ListMintTickets)
	}
}
