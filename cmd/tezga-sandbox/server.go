package main

import (
	"math/rand"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tezga/tezga_sdk_go/pkg/products"
	"github.com/tezga/tezga_sdk_go/pkg/search"
)

type serverOptions struct {
	latency  time.Duration
	failRate float64
	failCode int
	rng      *rand.Rand
}

type account struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	password string
}

// store is the sandbox state: everything lives in memory and resets on
// restart.
type store struct {
	mu        sync.Mutex
	products  map[string]products.Product
	accounts  map[string]account  // by email
	sessions  map[string]string   // token -> user ID
	favorites map[string][]string // user ID -> product IDs
	rng       *rand.Rand
}

func newServer(opts serverOptions) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Logger(), gin.Recovery())

	st := &store{
		products:  make(map[string]products.Product),
		accounts:  make(map[string]account),
		sessions:  make(map[string]string),
		favorites: make(map[string][]string),
		rng:       opts.rng,
	}

	engine.Use(func(c *gin.Context) {
		if opts.latency > 0 {
			time.Sleep(opts.latency)
		}
		if opts.failRate > 0 && st.chance(opts.failRate) {
			c.AbortWithStatusJSON(opts.failCode, gin.H{"message": "injected failure"})
			return
		}
		c.Next()
	})

	api := engine.Group("/api")
	{
		api.POST("/auth/register", st.register)
		api.POST("/auth/login", st.login)

		api.GET("/products", st.listProducts)
		api.GET("/products/:id", st.getProduct)
		api.GET("/products/:id/similar", st.similarProducts)
		api.POST("/products", st.authed(st.createProduct))
		api.PUT("/products/:id", st.authed(st.updateProduct))
		api.DELETE("/products/:id", st.authed(st.deleteProduct))
		api.PATCH("/products/:id/status", st.authed(st.updateProductStatus))

		api.GET("/me", st.authed(st.me))
		api.PUT("/me", st.authed(st.updateMe))
		api.GET("/users/:id", st.publicProfile)
		api.GET("/users/:id/products", st.userProducts)

		api.GET("/search", st.listProducts)
		api.GET("/search/suggestions", st.suggestions)
		api.GET("/categories", st.categories)
		api.GET("/brands", st.brands)
		api.GET("/cities/serbia", st.cities)

		api.GET("/favorites", st.authed(st.listFavorites))
		api.POST("/favorites", st.authed(st.addFavorite))
		api.DELETE("/favorites/:id", st.authed(st.removeFavorite))

		api.POST("/upload/image", st.authed(st.uploadImage))
	}

	return engine
}

func (s *store) chance(rate float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64() < rate
}

// authed resolves the bearer token into a user ID before running the
// handler.
func (s *store) authed(next func(*gin.Context, string)) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if token == "" || token == header {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "missing bearer token"})
			return
		}
		s.mu.Lock()
		userID, ok := s.sessions[token]
		s.mu.Unlock()
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid session"})
			return
		}
		next(c, userID)
	}
}

func (s *store) register(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[req.Email]; exists {
		c.JSON(http.StatusConflict, gin.H{"message": "email already registered"})
		return
	}
	acc := account{ID: uuid.NewString(), Username: req.Username, Email: req.Email, password: req.Password}
	s.accounts[req.Email] = acc
	token := uuid.NewString()
	s.sessions[token] = acc.ID
	c.JSON(http.StatusCreated, gin.H{"token": token, "userId": acc.ID})
}

func (s *store) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[req.Email]
	if !ok || acc.password != req.Password {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid credentials"})
		return
	}
	token := uuid.NewString()
	s.sessions[token] = acc.ID
	c.JSON(http.StatusOK, gin.H{"token": token, "userId": acc.ID})
}

func (s *store) listProducts(c *gin.Context) {
	s.pagedProducts(c, func(p products.Product) bool { return true })
}

func (s *store) userProducts(c *gin.Context) {
	sellerID := c.Param("id")
	s.pagedProducts(c, func(p products.Product) bool { return p.SellerID == sellerID })
}

// pagedProducts applies the common filter query schema and the pagination
// envelope used by every list endpoint.
func (s *store) pagedProducts(c *gin.Context, keep func(products.Product) bool) {
	status := c.Query("status")
	categoryID := c.Query("categoryId")
	query := strings.ToLower(c.Query("query"))
	minPrice, _ := strconv.Atoi(c.DefaultQuery("minPrice", "0"))
	maxPrice, _ := strconv.Atoi(c.DefaultQuery("maxPrice", "0"))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	s.mu.Lock()
	matched := make([]products.Product, 0, len(s.products))
	for _, p := range s.products {
		if !keep(p) {
			continue
		}
		if status != "" && string(p.Status) != status {
			continue
		}
		if categoryID != "" && p.CategoryID != categoryID {
			continue
		}
		if minPrice > 0 && p.Price < minPrice {
			continue
		}
		if maxPrice > 0 && p.Price > maxPrice {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(p.Title), query) {
			continue
		}
		matched = append(matched, p)
	}
	s.mu.Unlock()

	switch c.Query("sortBy") {
	case "price_asc":
		sort.Slice(matched, func(i, j int) bool { return matched[i].Price < matched[j].Price })
	case "price_desc":
		sort.Slice(matched, func(i, j int) bool { return matched[i].Price > matched[j].Price })
	default: // newest
		sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	}

	total := len(matched)
	totalPages := (total + limit - 1) / limit
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	c.JSON(http.StatusOK, gin.H{
		"data": matched[start:end],
		"pagination": gin.H{
			"page":       page,
			"limit":      limit,
			"total":      total,
			"totalPages": totalPages,
		},
	})
}

func (s *store) getProduct(c *gin.Context) {
	s.mu.Lock()
	p, ok := s.products[c.Param("id")]
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "product not found"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *store) similarProducts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "8"))
	s.mu.Lock()
	base, ok := s.products[c.Param("id")]
	var similar []products.Product
	if ok {
		for _, p := range s.products {
			if p.ID != base.ID && p.CategoryID == base.CategoryID {
				similar = append(similar, p)
			}
			if len(similar) >= limit {
				break
			}
		}
	}
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "product not found"})
		return
	}
	if similar == nil {
		similar = []products.Product{}
	}
	c.JSON(http.StatusOK, similar)
}

func (s *store) createProduct(c *gin.Context, userID string) {
	var in products.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	if in.Title == "" || len(in.Images) == 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "title and images are required"})
		return
	}
	p := products.Product{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		Price:       in.Price,
		CategoryID:  in.CategoryID,
		Condition:   in.Condition,
		Size:        in.Size,
		Brand:       in.Brand,
		Color:       in.Color,
		City:        in.City,
		SellerID:    userID,
		Status:      products.StatusActive,
		Images:      in.Images,
		CreatedAt:   time.Now().UTC(),
	}
	s.mu.Lock()
	s.products[p.ID] = p
	s.mu.Unlock()
	c.JSON(http.StatusCreated, p)
}

func (s *store) updateProduct(c *gin.Context, userID string) {
	var in products.UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "product not found"})
		return
	}
	if p.SellerID != userID {
		c.JSON(http.StatusForbidden, gin.H{"message": "not the seller"})
		return
	}
	if in.Title != "" {
		p.Title = in.Title
	}
	if in.Description != "" {
		p.Description = in.Description
	}
	if in.Price != 0 {
		p.Price = in.Price
	}
	if in.CategoryID != "" {
		p.CategoryID = in.CategoryID
	}
	if in.Condition != "" {
		p.Condition = in.Condition
	}
	if in.Size != "" {
		p.Size = in.Size
	}
	if in.Brand != "" {
		p.Brand = in.Brand
	}
	if in.Color != "" {
		p.Color = in.Color
	}
	if in.City != "" {
		p.City = in.City
	}
	if len(in.Images) > 0 {
		p.Images = in.Images
	}
	s.products[p.ID] = p
	c.JSON(http.StatusOK, p)
}

func (s *store) deleteProduct(c *gin.Context, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "product not found"})
		return
	}
	if p.SellerID != userID {
		c.JSON(http.StatusForbidden, gin.H{"message": "not the seller"})
		return
	}
	delete(s.products, p.ID)
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (s *store) updateProductStatus(c *gin.Context, userID string) {
	var req struct {
		Status products.Status `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "product not found"})
		return
	}
	if p.SellerID != userID {
		c.JSON(http.StatusForbidden, gin.H{"message": "not the seller"})
		return
	}
	p.Status = req.Status
	s.products[p.ID] = p
	c.JSON(http.StatusOK, p)
}

func (s *store) me(c *gin.Context, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acc := range s.accounts {
		if acc.ID == userID {
			c.JSON(http.StatusOK, gin.H{"id": acc.ID, "username": acc.Username, "email": acc.Email})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"message": "account not found"})
}

func (s *store) updateMe(c *gin.Context, userID string) {
	var req struct {
		Username string `json:"username"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for email, acc := range s.accounts {
		if acc.ID == userID {
			if req.Username != "" {
				acc.Username = req.Username
				s.accounts[email] = acc
			}
			c.JSON(http.StatusOK, gin.H{"id": acc.ID, "username": acc.Username, "email": acc.Email})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"message": "account not found"})
}

func (s *store) publicProfile(c *gin.Context) {
	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acc := range s.accounts {
		if acc.ID == id {
			listings := 0
			for _, p := range s.products {
				if p.SellerID == id {
					listings++
				}
			}
			c.JSON(http.StatusOK, gin.H{"id": acc.ID, "username": acc.Username, "listings": listings})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"message": "user not found"})
}

func (s *store) suggestions(c *gin.Context) {
	q := strings.ToLower(c.Query("q"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "5"))
	seen := map[string]int{}
	s.mu.Lock()
	for _, p := range s.products {
		title := strings.ToLower(p.Title)
		if q != "" && strings.Contains(title, q) {
			seen[p.Title]++
		}
	}
	s.mu.Unlock()

	out := make([]search.Suggestion, 0, len(seen))
	for text, count := range seen {
		out = append(out, search.Suggestion{Text: text, Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if len(out) > limit {
		out = out[:limit]
	}
	c.JSON(http.StatusOK, out)
}

var referenceCategories = []search.Category{
	{ID: "cat-clothing", Name: "Clothing"},
	{ID: "cat-shoes", Name: "Shoes"},
	{ID: "cat-accessories", Name: "Accessories"},
	{ID: "cat-electronics", Name: "Electronics"},
	{ID: "cat-home", Name: "Home"},
}

var referenceBrands = []search.Brand{
	{ID: "brand-nike", Name: "Nike"},
	{ID: "brand-adidas", Name: "Adidas"},
	{ID: "brand-zara", Name: "Zara"},
}

var referenceCities = []search.City{
	{ID: "city-bg", Name: "Beograd"},
	{ID: "city-ns", Name: "Novi Sad"},
	{ID: "city-ni", Name: "Niš"},
}

func (s *store) categories(c *gin.Context) { c.JSON(http.StatusOK, referenceCategories) }
func (s *store) brands(c *gin.Context)     { c.JSON(http.StatusOK, referenceBrands) }
func (s *store) cities(c *gin.Context)     { c.JSON(http.StatusOK, referenceCities) }

func (s *store) listFavorites(c *gin.Context, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []products.Product{}
	for _, id := range s.favorites[userID] {
		if p, ok := s.products[id]; ok {
			out = append(out, p)
		}
	}
	c.JSON(http.StatusOK, out)
}

func (s *store) addFavorite(c *gin.Context, userID string) {
	var req struct {
		ProductID string `json:"productId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[req.ProductID]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "product not found"})
		return
	}
	for _, id := range s.favorites[userID] {
		if id == req.ProductID {
			c.JSON(http.StatusOK, gin.H{"added": false})
			return
		}
	}
	s.favorites[userID] = append(s.favorites[userID], req.ProductID)
	c.JSON(http.StatusCreated, gin.H{"added": true})
}

func (s *store) removeFavorite(c *gin.Context, userID string) {
	productID := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.favorites[userID][:0]
	for _, id := range s.favorites[userID] {
		if id != productID {
			kept = append(kept, id)
		}
	}
	s.favorites[userID] = kept
	c.JSON(http.StatusOK, gin.H{"removed": true})
}

func (s *store) uploadImage(c *gin.Context, userID string) {
	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "image file is required"})
		return
	}
	if file.Size == 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "image is empty"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": "https://cdn.tezga.rs/images/" + uuid.NewString() + ".jpg"})
}
