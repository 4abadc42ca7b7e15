package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ashendes/order-fulfillment/internal/config"
	"github.com/ashendes/order-fulfillment/internal/inventory"
	"github.com/ashendes/order-fulfillment/internal/metrics"
	"github.com/ashendes/order-fulfillment/internal/models"
	"github.com/ashendes/order-fulfillment/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

var inventoryService *inventory.Service

func init() {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetLevel(log.InfoLevel)
}

func main() {
	_ = godotenv.Load()

	cfg := config.Load("inventory-service", ":8081")
	endpoints := cfg.Endpoints()

	store, err := buildStore(endpoints)
	if err != nil {
		log.Fatal("Failed to initialize product store: ", err)
	}
	inventoryService = inventory.NewService(store)

	if endpoints.PostgresDSN == "" {
		seedSampleStock()
	}

	router := gin.Default()
	router.Use(metrics.PrometheusMiddleware(cfg.ServiceName))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	router.POST("/inventory/search", searchInventory)
	router.POST("/inventory/update", updateInventory)
	router.GET("/inventory/check/:productId", checkInventory)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	log.WithFields(log.Fields{
		"addr": cfg.HTTPAddr,
		"mode": cfg.Mode,
	}).Info("Inventory Service starting")

	if err := router.Run(cfg.HTTPAddr); err != nil {
		log.Fatal("Failed to start server: ", err)
	}
}

func buildStore(endpoints config.Endpoints) (inventory.ProductStore, error) {
	if endpoints.PostgresDSN == "" {
		return storage.NewMemoryProductStore(), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := storage.Connect(ctx, endpoints.PostgresDSN)
	if err != nil {
		return nil, err
	}
	return storage.NewPostgresProductStore(pool), nil
}

// seedSampleStock stocks the in-memory store through the regular restock
// operation so seeding goes through the same code path as any mutation.
func seedSampleStock() {
	items := []models.ItemStatus{
		{ProductID: "laptop", RequestedQuantity: 100},
		{ProductID: "mouse", RequestedQuantity: 500},
		{ProductID: "keyboard", RequestedQuantity: 300},
		{ProductID: "monitor", RequestedQuantity: 150},
		{ProductID: "headphones", RequestedQuantity: 20},
	}

	_, err := inventoryService.Update(context.Background(), models.UpdateInventoryRequest{
		OrderID:   "seed-initial",
		Items:     items,
		Operation: models.OperationRestock,
	})
	if err != nil {
		log.Fatal("Failed to seed inventory: ", err)
	}

	log.WithField("products", len(items)).Info("Sample stock seeded")
}

func searchInventory(c *gin.Context) {
	var req models.InventorySearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	result, err := inventoryService.Search(c.Request.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, inventory.ErrValidation) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

func updateInventory(c *gin.Context) {
	var req models.UpdateInventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	result, err := inventoryService.Update(c.Request.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, inventory.ErrValidation) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

func checkInventory(c *gin.Context) {
	productID := c.Param("productId")

	result, err := inventoryService.Search(c.Request.Context(), models.InventorySearchRequest{
		OrderID: "check-" + productID,
		Items:   []models.ItemStatus{{ProductID: productID}},
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	quantity := result.Statuses[0].AvailableQuantity
	c.JSON(http.StatusOK, models.CheckInventoryResponse{
		Available: quantity > 0,
		Quantity:  quantity,
	})
}
