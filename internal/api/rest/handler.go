package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gen-art/marketplace-api/internal/adapter"
	"github.com/gen-art/marketplace-api/internal/api/rest/dto"
	apierrors "github.com/gen-art/marketplace-api/internal/api/shared/errors"
	"github.com/gen-art/marketplace-api/internal/domain"
	"github.com/gen-art/marketplace-api/internal/loader"
	"github.com/gen-art/marketplace-api/internal/store"
	"github.com/gen-art/marketplace-api/internal/store/schema"
)

const (
	// expandIterationsLimit is the page size of the iterations expansion on
	// a single collection. Clients wanting more page through /iterations.
	expandIterationsLimit = 20
	// expandActionsLimit is how many recent actions the actions expansion
	// returns
	expandActionsLimit = 50
)

// Handler serves the read API
type Handler struct {
	store store.Store
	clock adapter.Clock
}

// NewHandler creates a REST handler on top of the store
func NewHandler(s store.Store, clock adapter.Clock) *Handler {
	return &Handler{store: s, clock: clock}
}

// Health reports process liveness
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListCollections handles GET /collections
func (h *Handler) ListCollections(c *gin.Context) {
	params, err := parseListParams(c)
	if err != nil {
		abortWithBadRequest(c, err)
		return
	}

	collections, total, err := h.store.GetCollections(c.Request.Context(), params)
	if err != nil {
		abortWithError(c, err)
		return
	}

	now := h.clock.Now()
	items := make([]dto.CollectionResponse, 0, len(collections))
	for i := range collections {
		items = append(items, dto.NewCollectionResponse(&collections[i], now))
	}
	c.JSON(http.StatusOK, dto.ListResponse[dto.CollectionResponse]{
		Items:  items,
		Total:  total,
		Limit:  params.Limit,
		Offset: params.Offset,
	})
}

// GetCollection handles GET /collections/:id with optional expansions
func (h *Handler) GetCollection(c *gin.Context) {
	id, err := domain.ParseEntityID(c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	expand, err := parseExpand(c, "author", "market_stats", "iterations", "actions")
	if err != nil {
		abortWithBadRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	loaders := loader.For(ctx)

	collection, err := loaders.CollectionByID.Load(id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if collection == nil {
		abortWithError(c, domain.ErrCollectionNotFound)
		return
	}

	resp := dto.NewCollectionResponse(collection, h.clock.Now())

	// Kick every requested expansion off as a thunk first so their batch
	// windows overlap, then resolve.
	var (
		authorThunk     func() (*schema.User, error)
		statsThunk      func() (*schema.MarketStats, error)
		iterationsThunk func() ([]schema.Iteration, error)
		actionsThunk    func() ([]schema.Action, error)
	)
	if expand["author"] {
		authorThunk = loaders.UserByID.LoadThunk(collection.AuthorID)
	}
	if expand["market_stats"] {
		statsThunk = loaders.MarketStatsByCollection.LoadThunk(id)
	}
	if expand["iterations"] {
		iterationsThunk = loaders.IterationsOfCollection.LoadThunk(store.IterationsOfCollectionParams{
			Collection: id,
			Limit:      expandIterationsLimit,
		})
	}
	if expand["actions"] {
		actionsThunk = loaders.ActionsOfCollection.LoadThunk(store.ActionsOfCollectionParams{
			Collection: id,
			Limit:      expandActionsLimit,
		})
	}

	if authorThunk != nil {
		author, err := authorThunk()
		if err != nil {
			abortWithError(c, err)
			return
		}
		if author != nil {
			a := dto.NewUserResponse(author)
			resp.Author = &a
		}
	}
	if statsThunk != nil {
		stats, err := statsThunk()
		if err != nil {
			abortWithError(c, err)
			return
		}
		if stats != nil {
			s := dto.NewMarketStatsResponse(stats)
			resp.MarketStats = &s
		}
	}
	if iterationsThunk != nil {
		iterations, err := iterationsThunk()
		if err != nil {
			abortWithError(c, err)
			return
		}
		page := &dto.PaginatedIterations{
			Items: make([]dto.IterationResponse, 0, len(iterations)),
			Limit: expandIterationsLimit,
		}
		for i := range iterations {
			page.Items = append(page.Items, dto.NewIterationResponse(&iterations[i]))
		}
		resp.Iterations = page
	}
	if actionsThunk != nil {
		actions, err := actionsThunk()
		if err != nil {
			abortWithError(c, err)
			return
		}
		resp.Actions = make([]dto.ActionResponse, 0, len(actions))
		for i := range actions {
			resp.Actions = append(resp.Actions, dto.NewActionResponse(&actions[i]))
		}
	}

	c.JSON(http.StatusOK, resp)
}

// GetCollectionStats handles GET /collections/:id/stats
func (h *Handler) GetCollectionStats(c *gin.Context) {
	id, err := domain.ParseEntityID(c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	loaders := loader.For(c.Request.Context())

	// The snapshot is derived for any id, so existence comes from the
	// collection itself. Kick both loads before resolving either.
	collectionThunk := loaders.CollectionByID.LoadThunk(id)
	statsThunk := loaders.MarketStatsByCollection.LoadThunk(id)

	collection, err := collectionThunk()
	if err != nil {
		abortWithError(c, err)
		return
	}
	if collection == nil {
		abortWithError(c, domain.ErrCollectionNotFound)
		return
	}

	stats, err := statsThunk()
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewMarketStatsResponse(stats))
}

// GetCollectionStatsHistory handles GET /collections/:id/stats/history
func (h *Handler) GetCollectionStatsHistory(c *gin.Context) {
	id, err := domain.ParseEntityID(c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	from, to, err := parseTimeRange(c)
	if err != nil {
		abortWithBadRequest(c, err)
		return
	}

	history, err := h.store.GetMarketStatsHistory(c.Request.Context(), id, from, to)
	if err != nil {
		abortWithError(c, err)
		return
	}

	items := make([]dto.MarketStatsHistoryResponse, 0, len(history))
	for i := range history {
		items = append(items, dto.NewMarketStatsHistoryResponse(&history[i]))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// ListCollectionIterations handles GET /collections/:id/iterations, the
// paged view of one collection's iterations
func (h *Handler) ListCollectionIterations(c *gin.Context) {
	id, err := domain.ParseEntityID(c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	params, err := parseListParams(c)
	if err != nil {
		abortWithBadRequest(c, err)
		return
	}
	if params.Filters == nil {
		params.Filters = store.Filters{}
	}
	params.Filters["collection_eq"] = id.String()

	iterations, total, err := h.store.GetIterations(c.Request.Context(), params)
	if err != nil {
		abortWithError(c, err)
		return
	}

	items := make([]dto.IterationResponse, 0, len(iterations))
	for i := range iterations {
		items = append(items, dto.NewIterationResponse(&iterations[i]))
	}
	c.JSON(http.StatusOK, dto.ListResponse[dto.IterationResponse]{
		Items:  items,
		Total:  total,
		Limit:  params.Limit,
		Offset: params.Offset,
	})
}

// ListIterations handles GET /iterations
func (h *Handler) ListIterations(c *gin.Context) {
	params, err := parseListParams(c)
	if err != nil {
		abortWithBadRequest(c, err)
		return
	}

	iterations, total, err := h.store.GetIterations(c.Request.Context(), params)
	if err != nil {
		abortWithError(c, err)
		return
	}

	items := make([]dto.IterationResponse, 0, len(iterations))
	for i := range iterations {
		items = append(items, dto.NewIterationResponse(&iterations[i]))
	}
	c.JSON(http.StatusOK, dto.ListResponse[dto.IterationResponse]{
		Items:  items,
		Total:  total,
		Limit:  params.Limit,
		Offset: params.Offset,
	})
}

// GetIteration handles GET /iterations/:id with optional expansions
func (h *Handler) GetIteration(c *gin.Context) {
	id, err := domain.ParseEntityID(c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	expand, err := parseExpand(c, "owner", "collection", "listings", "offers")
	if err != nil {
		abortWithBadRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	loaders := loader.For(ctx)

	iteration, err := loaders.IterationByID.Load(id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if iteration == nil {
		abortWithError(c, domain.ErrIterationNotFound)
		return
	}

	resp := dto.NewIterationResponse(iteration)

	var (
		ownerThunk      func() (*schema.User, error)
		collectionThunk func() (*schema.Collection, error)
		listingsThunk   func() ([]schema.Listing, error)
		offersThunk     func() ([]schema.Offer, error)
	)
	if expand["owner"] {
		ownerThunk = loaders.UserByID.LoadThunk(iteration.OwnerID)
	}
	if expand["collection"] {
		collectionThunk = loaders.CollectionByID.LoadThunk(
			domain.NewEntityID(iteration.CollectionID, iteration.CollectionVersion))
	}
	if expand["listings"] {
		listingsThunk = loaders.ActiveListingsOfIteration.LoadThunk(id)
	}
	if expand["offers"] {
		offersThunk = loaders.ActiveOffersOfIteration.LoadThunk(id)
	}

	if ownerThunk != nil {
		owner, err := ownerThunk()
		if err != nil {
			abortWithError(c, err)
			return
		}
		if owner != nil {
			o := dto.NewUserResponse(owner)
			resp.Owner = &o
		}
	}
	if collectionThunk != nil {
		collection, err := collectionThunk()
		if err != nil {
			abortWithError(c, err)
			return
		}
		if collection != nil {
			cr := dto.NewCollectionResponse(collection, h.clock.Now())
			resp.Collection = &cr
		}
	}
	if listingsThunk != nil {
		listings, err := listingsThunk()
		if err != nil {
			abortWithError(c, err)
			return
		}
		resp.Listings = make([]dto.ListingResponse, 0, len(listings))
		for i := range listings {
			resp.Listings = append(resp.Listings, dto.NewListingResponse(&listings[i]))
		}
	}
	if offersThunk != nil {
		offers, err := offersThunk()
		if err != nil {
			abortWithError(c, err)
			return
		}
		resp.Offers = make([]dto.OfferResponse, 0, len(offers))
		for i := range offers {
			resp.Offers = append(resp.Offers, dto.NewOfferResponse(&offers[i]))
		}
	}

	c.JSON(http.StatusOK, resp)
}

// ListListings handles GET /listings
func (h *Handler) ListListings(c *gin.Context) {
	params, err := parseListParams(c)
	if err != nil {
		abortWithBadRequest(c, err)
		return
	}

	listings, total, err := h.store.GetListings(c.Request.Context(), params)
	if err != nil {
		abortWithError(c, err)
		return
	}

	items := make([]dto.ListingResponse, 0, len(listings))
	for i := range listings {
		items = append(items, dto.NewListingResponse(&listings[i]))
	}
	c.JSON(http.StatusOK, dto.ListResponse[dto.ListingResponse]{
		Items:  items,
		Total:  total,
		Limit:  params.Limit,
		Offset: params.Offset,
	})
}

// ListOffers handles GET /offers
func (h *Handler) ListOffers(c *gin.Context) {
	params, err := parseListParams(c)
	if err != nil {
		abortWithBadRequest(c, err)
		return
	}

	offers, total, err := h.store.GetOffers(c.Request.Context(), params)
	if err != nil {
		abortWithError(c, err)
		return
	}

	items := make([]dto.OfferResponse, 0, len(offers))
	for i := range offers {
		items = append(items, dto.NewOfferResponse(&offers[i]))
	}
	c.JSON(http.StatusOK, dto.ListResponse[dto.OfferResponse]{
		Items:  items,
		Total:  total,
		Limit:  params.Limit,
		Offset: params.Offset,
	})
}

// ListUsers handles GET /users
func (h *Handler) ListUsers(c *gin.Context) {
	params, err := parseListParams(c)
	if err != nil {
		abortWithBadRequest(c, err)
		return
	}

	users, total, err := h.store.GetUsers(c.Request.Context(), params)
	if err != nil {
		abortWithError(c, err)
		return
	}

	items := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, dto.NewUserResponse(&users[i]))
	}
	c.JSON(http.StatusOK, dto.ListResponse[dto.UserResponse]{
		Items:  items,
		Total:  total,
		Limit:  params.Limit,
		Offset: params.Offset,
	})
}

// GetUser handles GET /users/:id
func (h *Handler) GetUser(c *gin.Context) {
	user, err := loader.For(c.Request.Context()).UserByID.Load(c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	if user == nil {
		abortWithError(c, domain.ErrUserNotFound)
		return
	}
	c.JSON(http.StatusOK, dto.NewUserResponse(user))
}

// ListArticles handles GET /articles
func (h *Handler) ListArticles(c *gin.Context) {
	params, err := parseListParams(c)
	if err != nil {
		abortWithBadRequest(c, err)
		return
	}

	articles, total, err := h.store.GetArticles(c.Request.Context(), params)
	if err != nil {
		abortWithError(c, err)
		return
	}

	items := make([]dto.ArticleResponse, 0, len(articles))
	for i := range articles {
		items = append(items, dto.NewArticleResponse(&articles[i]))
	}
	c.JSON(http.StatusOK, dto.ListResponse[dto.ArticleResponse]{
		Items:  items,
		Total:  total,
		Limit:  params.Limit,
		Offset: params.Offset,
	})
}

// GetArticle handles GET /articles/:id with the optional author expansion
func (h *Handler) GetArticle(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		abortWithError(c, domain.ErrInvalidEntityID)
		return
	}

	expand, err := parseExpand(c, "author")
	if err != nil {
		abortWithBadRequest(c, err)
		return
	}

	loaders := loader.For(c.Request.Context())
	article, err := loaders.ArticleByID.Load(id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if article == nil {
		abortWithError(c, apierrors.NewNotFoundError("article not found"))
		return
	}

	resp := dto.NewArticleResponse(article)
	if expand["author"] {
		author, err := loaders.UserByID.Load(article.AuthorID)
		if err != nil {
			abortWithError(c, err)
			return
		}
		if author != nil {
			a := dto.NewUserResponse(author)
			resp.Author = &a
		}
	}
	c.JSON(http.StatusOK, resp)
}

// ListMintTickets handles GET /mint-tickets
func (h *Handler) ListMintTickets(c *gin.Context) {
	params, err := parseListParams(c)
	if err != nil {
		abortWithBadRequest(c, err)
		return
	}

	tickets, total, err := h.store.GetMintTickets(c.Request.Context(), params)
	if err != nil {
		abortWithError(c, err)
		return
	}

	items := make([]dto.MintTicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.NewMintTicketResponse(&tickets[i]))
	}
	c.JSON(http.StatusOK, dto.ListResponse[dto.MintTicketResponse]{
		Items:  items,
		Total:  total,
		Limit:  params.Limit,
		Offset: params.Offset,
	})
}
