package productcontroller

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BrunoLenon/veipecas2025/cache"
	"github.com/BrunoLenon/veipecas2025/models"
	"github.com/BrunoLenon/veipecas2025/store"
)

const (
	productKeyPrefix = "product:"
	allProductsKey   = "products:all"
)

// GetProductByID returns a single product, read-through cached when a cache
// is configured. Stock shown here is informational; checkout re-validates
// against live stock.
func GetProductByID(st store.Store, rc *cache.RedisCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if id == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Product ID is required"})
			return
		}
		ctx := c.Request.Context()

		if rc != nil {
			var cached models.Product
			if err := rc.Get(ctx, productKeyPrefix+id, &cached); err == nil {
				c.JSON(http.StatusOK, cached)
				return
			} else if !errors.Is(err, cache.ErrMiss) {
				log.Printf("⚠️ Cache error: %v", err)
			}
		}

		product, err := st.Products().GetProduct(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrProductNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve product"})
			}
			return
		}

		if rc != nil {
			if err := rc.Set(ctx, productKeyPrefix+id, product); err != nil {
				log.Printf("⚠️ Failed to cache product: %v", err)
			}
		}
		c.JSON(http.StatusOK, product)
	}
}

// GetProducts returns the catalog, read-through cached.
func GetProducts(st store.Store, rc *cache.RedisCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if rc != nil {
			var cached []models.Product
			if err := rc.Get(ctx, allProductsKey, &cached); err == nil {
				c.JSON(http.StatusOK, cached)
				return
			} else if !errors.Is(err, cache.ErrMiss) {
				log.Printf("⚠️ Cache error: %v", err)
			}
		}

		products, err := st.Products().ListProducts(ctx)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch products"})
			return
		}

		if rc != nil {
			if err := rc.Set(ctx, allProductsKey, products); err != nil {
				log.Printf("⚠️ Failed to cache products: %v", err)
			}
		}
		c.JSON(http.StatusOK, products)
	}
}
