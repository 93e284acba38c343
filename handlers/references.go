package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"bitbucket.org/mmdatafocus/purchases_backend/models"
	"github.com/gin-gonic/gin"
)

func CreateVendorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.NewVendor
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBindError(c, err)
			return
		}
		vendor, err := models.CreateVendor(c.Request.Context(), &req)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, vendor)
	}
}

func UpdateVendorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vendor id"})
			return
		}
		var req models.NewVendor
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBindError(c, err)
			return
		}
		vendor, err := models.UpdateVendor(c.Request.Context(), id, &req)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, vendor)
	}
}

func DeleteVendorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vendor id"})
			return
		}
		vendor, err := models.DeleteVendor(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, vendor)
	}
}

func ListVendorsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var name *string
		if v := strings.TrimSpace(c.Query("name")); v != "" {
			name = &v
		}
		vendors, err := models.GetVendors(c.Request.Context(), name)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"vendors": vendors})
	}
}

func CreateItemHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.NewItem
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBindError(c, err)
			return
		}
		item, err := models.CreateItem(c.Request.Context(), &req)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, item)
	}
}

func UpdateItemHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
			return
		}
		var req models.NewItem
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBindError(c, err)
			return
		}
		item, err := models.UpdateItem(c.Request.Context(), id, &req)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, item)
	}
}

func DeleteItemHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
			return
		}
		item, err := models.DeleteItem(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, item)
	}
}

func ListItemsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var name *string
		if v := strings.TrimSpace(c.Query("name")); v != "" {
			name = &v
		}
		var categoryId *int
		if v := strings.TrimSpace(c.Query("category_id")); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category_id filter"})
				return
			}
			categoryId = &n
		}
		items, err := models.GetItems(c.Request.Context(), name, categoryId)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": items})
	}
}

func CreateCategoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.NewCategory
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBindError(c, err)
			return
		}
		category, err := models.CreateCategory(c.Request.Context(), &req)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, category)
	}
}

func DeleteCategoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category id"})
			return
		}
		category, err := models.DeleteCategory(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, category)
	}
}

func ListCategoriesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		categories, err := models.GetCategories(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"categories": categories})
	}
}

func CreateSubcategoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.NewSubcategory
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBindError(c, err)
			return
		}
		subcategory, err := models.CreateSubcategory(c.Request.Context(), &req)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, subcategory)
	}
}

func ListSubcategoriesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var categoryId *int
		if v := strings.TrimSpace(c.Query("category_id")); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category_id filter"})
				return
			}
			categoryId = &n
		}
		subcategories, err := models.GetSubcategories(c.Request.Context(), categoryId)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"subcategories": subcategories})
	}
}
