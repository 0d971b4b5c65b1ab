package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/catalog"
)

type productRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	MainImage   *string          `json:"mainImage"`
	Images      []string         `json:"images"`
	Category    *string          `json:"category"`
	Materials   []string         `json:"materials"`
	Stock       *int             `json:"stock"`
	Types       []string         `json:"types"`
	IsFeatured  *bool            `json:"isFeatured"`
	IsBest      *bool            `json:"isBest"`
}

func (r productRequest) input() catalog.ProductInput {
	return catalog.ProductInput{
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		MainImage:   r.MainImage,
		Images:      r.Images,
		CategoryID:  r.Category,
		Materials:   r.Materials,
		Stock:       r.Stock,
		Types:       r.Types,
		IsFeatured:  r.IsFeatured,
		IsBest:      r.IsBest,
	}
}

type categoryRequest struct {
	Name string `json:"name"`
}

type reviewRequest struct {
	ProductID string `json:"productId"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
}

type featureRequest struct {
	Images []string `json:"images"`
}

type featureImageRequest struct {
	Image string `json:"image"`
}

// parseProductQuery читает фильтры каталога из query string.
func parseProductQuery(c *gin.Context) (domain.ProductQuery, error) {
	q := domain.ProductQuery{
		CategoryID:   c.Query("category"),
		Keyword:      strings.TrimSpace(c.Query("keyword")),
		Sort:         domain.ParseProductSort(c.Query("sort")),
		FeaturedOnly: queryFlag(c, "isFeatured"),
		BestOnly:     queryFlag(c, "isBest"),
	}
	if raw := c.Query("types"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				q.Types = append(q.Types, t)
			}
		}
	}
	for name, dst := range map[string]**decimal.Decimal{"minPrice": &q.MinPrice, "maxPrice": &q.MaxPrice} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return domain.ProductQuery{}, domain.NewValidationError("invalid %s", name)
		}
		*dst = &v
	}
	q.Page, _ = strconv.Atoi(c.Query("page"))
	q.Limit, _ = strconv.Atoi(c.Query("limit"))
	q.Normalize()
	return q, nil
}

func queryFlag(c *gin.Context, name string) bool {
	v, err := strconv.ParseBool(c.Query(name))
	return err == nil && v
}

func (a *api) listProducts(c *gin.Context) {
	q, err := parseProductQuery(c)
	if err != nil {
		a.writeError(c, err)
		return
	}
	page, err := a.svc.Catalog.ListProducts(c.Request.Context(), q)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Products fetched successfully",
		"data":    toProducts(page.Items),
		"pagination": gin.H{
			"totalProducts": page.TotalProducts,
			"currentPage":   page.CurrentPage,
			"totalPages":    page.TotalPages,
		},
	})
}

func (a *api) product(c *gin.Context) {
	detail, err := a.svc.Catalog.Product(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProductDetail(detail))
}

func (a *api) createProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, invalidBodyMessage)
		return
	}
	if len(req.Images) == 0 {
		badRequest(c, "No images provided")
		return
	}

	product, err := a.svc.Catalog.CreateProduct(c.Request.Context(), req.input())
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Product added successfully", "product": toProduct(product)})
}

func (a *api) updateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, invalidBodyMessage)
		return
	}

	product, err := a.svc.Catalog.UpdateProduct(c.Request.Context(), c.Param("id"), req.input())
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product updated successfully", "product": toProduct(product)})
}

func (a *api) deleteProduct(c *gin.Context) {
	if err := a.svc.Catalog.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}

func (a *api) listCategories(c *gin.Context) {
	categories, err := a.svc.Catalog.Categories(c.Request.Context())
	if err != nil {
		a.writeError(c, err)
		return
	}
	out := make([]categoryJSON, 0, len(categories))
	for _, cat := range categories {
		out = append(out, toCategory(cat))
	}
	c.JSON(http.StatusOK, out)
}

func (a *api) createCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, invalidBodyMessage)
		return
	}
	category, err := a.svc.Catalog.CreateCategory(c.Request.Context(), req.Name)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Category added successfully", "category": toCategory(category)})
}

func (a *api) renameCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, invalidBodyMessage)
		return
	}
	category, err := a.svc.Catalog.RenameCategory(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Category updated successfully", "category": toCategory(category)})
}

func (a *api) deleteCategory(c *gin.Context) {
	if err := a.svc.Catalog.DeleteCategory(c.Request.Context(), c.Param("id")); err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Category deleted successfully"})
}

func (a *api) addReview(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, invalidBodyMessage)
		return
	}
	review, err := a.svc.Catalog.AddReview(c.Request.Context(), identityFrom(c), req.ProductID, req.Rating, req.Comment)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Review added successfully", "review": toReview(review)})
}

func (a *api) deleteReview(c *gin.Context) {
	if err := a.svc.Catalog.DeleteReview(c.Request.Context(), identityFrom(c), c.Param("id")); err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Review deleted successfully"})
}

func (a *api) productReviews(c *gin.Context) {
	reviews, err := a.svc.Catalog.Reviews(c.Request.Context(), c.Param("productId"))
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toReviews(reviews))
}

func (a *api) listFeatures(c *gin.Context) {
	features, err := a.svc.Catalog.Features(c.Request.Context())
	if err != nil {
		a.writeError(c, err)
		return
	}
	out := make([]featureJSON, 0, len(features))
	for _, f := range features {
		out = append(out, toFeature(f))
	}
	c.JSON(http.StatusOK, out)
}

func (a *api) addFeature(c *gin.Context) {
	var req featureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, invalidBodyMessage)
		return
	}
	feature, err := a.svc.Catalog.AddFeature(c.Request.Context(), req.Images)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toFeature(feature))
}

func (a *api) appendFeatureImage(c *gin.Context) {
	var req featureImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, invalidBodyMessage)
		return
	}
	feature, err := a.svc.Catalog.AppendFeatureImage(c.Request.Context(), c.Param("featureId"), req.Image)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toFeature(feature))
}

func (a *api) deleteFeature(c *gin.Context) {
	if err := a.svc.Catalog.DeleteFeature(c.Request.Context(), c.Param("featureId")); err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Feature deleted successfully"})
}
