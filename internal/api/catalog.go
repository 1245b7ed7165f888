package api

import (
	"context"  // Store method signatures
	"net/http" // HTTP status codes

	"rewards_system/internal/catalog" // Catalog store
	"rewards_system/internal/rewards" // Spin wheel

	"github.com/gin-gonic/gin" // Gin web framework
)

// listHandler serves one of the cached catalog listings under key
func listHandler[T any](key string, list func(context.Context) ([]T, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := list(c.Request.Context())
		if err != nil {
			respondError(c, err, nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{key: items})
	}
}

// PackagesHandler lists active investment packages
func PackagesHandler(cat *catalog.Store) gin.HandlerFunc {
	return listHandler("packages", cat.Packages)
}

// ProductsHandler lists active shop products
func ProductsHandler(cat *catalog.Store) gin.HandlerFunc {
	return listHandler("products", cat.Products)
}

// GiftsHandler lists active gifts
func GiftsHandler(cat *catalog.Store) gin.HandlerFunc {
	return listHandler("gifts", cat.Gifts)
}

// TasksHandler lists active tasks, optionally only one kind (?kind=daily or ?kind=intern)
func TasksHandler(cat *catalog.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		tasks, err := cat.Tasks(c.Request.Context(), c.Query("kind"))
		if err != nil {
			respondError(c, err, nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"tasks": tasks})
	}
}

// SpinWheelHandler returns the wheel segments so clients can draw it; the outcome is drawn server side
func SpinWheelHandler(svc *rewards.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		wheel := svc.Wheel()
		c.JSON(http.StatusOK, gin.H{"segments": wheel, "total_weight": wheel.TotalWeight()})
	}
}

// createHandler binds a catalog entry and stores it
func createHandler[T any](create func(context.Context, *T) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		entry := new(T) // Bind JSON request to the model
		if err := c.ShouldBindJSON(entry); err != nil {
			badRequest(c)
			return
		}
		if err := create(c.Request.Context(), entry); err != nil {
			respondError(c, err, nil)
			return
		}
		c.JSON(http.StatusCreated, entry)
	}
}

// updateHandler replaces the editable fields of the entry named by :id
func updateHandler[T any](update func(context.Context, uint, *T) (*T, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id") // Entry from the path
		if !ok {
			return
		}
		entry := new(T) // Bind JSON request to the model
		if err := c.ShouldBindJSON(entry); err != nil {
			badRequest(c)
			return
		}
		saved, err := update(c.Request.Context(), id, entry)
		if err != nil {
			respondError(c, err, nil)
			return
		}
		c.JSON(http.StatusOK, saved)
	}
}

// deleteHandler removes the entry named by :id
func deleteHandler(remove func(context.Context, uint) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id") // Entry from the path
		if !ok {
			return
		}
		if err := remove(c.Request.Context(), id); err != nil {
			respondError(c, err, nil)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// registerCatalogAdmin mounts create, update and delete routes for every catalog kind
func registerCatalogAdmin(g *gin.RouterGroup, cat *catalog.Store) {
	g.POST("/packages", createHandler(cat.CreatePackage))
	g.PUT("/packages/:id", updateHandler(cat.UpdatePackage))
	g.DELETE("/packages/:id", deleteHandler(cat.DeletePackage))

	g.POST("/products", createHandler(cat.CreateProduct))
	g.PUT("/products/:id", updateHandler(cat.UpdateProduct))
	g.DELETE("/products/:id", deleteHandler(cat.DeleteProduct))

	g.POST("/tasks", createHandler(cat.CreateTask))
	g.PUT("/tasks/:id", updateHandler(cat.UpdateTask))
	g.DELETE("/tasks/:id", deleteHandler(cat.DeleteTask))

	g.POST("/gifts", createHandler(cat.CreateGift))
	g.PUT("/gifts/:id", updateHandler(cat.UpdateGift))
	g.DELETE("/gifts/:id", deleteHandler(cat.DeleteGift))
}
