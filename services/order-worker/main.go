package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/ashendes/order-fulfillment/internal/activity"
	"github.com/ashendes/order-fulfillment/internal/config"
	"github.com/ashendes/order-fulfillment/internal/metrics"
	"github.com/ashendes/order-fulfillment/internal/models"
	"github.com/ashendes/order-fulfillment/internal/notification"
	"github.com/ashendes/order-fulfillment/internal/storage"
	"github.com/ashendes/order-fulfillment/internal/workflow"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

var (
	engine       *workflow.Engine
	historyStore workflow.HistoryStore
)

func init() {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetLevel(log.InfoLevel)
}

func main() {
	_ = godotenv.Load()

	cfg := config.Load("order-worker", ":8080")
	endpoints := cfg.Endpoints()

	historyStore = buildHistoryStore(endpoints)

	var publisher notification.Publisher = notification.NewMemoryPublisher()
	if len(endpoints.KafkaBrokers) > 0 {
		kafkaPublisher := notification.NewKafkaPublisher(endpoints.KafkaBrokers, cfg.OrderStatusTopic)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	}

	inventoryClient := activity.NewHTTPInventoryClient(endpoints.InventoryURL, cfg.ServiceName)
	engine = workflow.NewEngine(historyStore, inventoryClient, publisher)

	router := gin.Default()
	router.Use(metrics.PrometheusMiddleware(cfg.ServiceName))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	router.POST("/orders", fulfillOrder)
	router.GET("/orders/:orderId", getOrder)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	log.WithFields(log.Fields{
		"addr":          cfg.HTTPAddr,
		"mode":          cfg.Mode,
		"inventory_url": endpoints.InventoryURL,
		"topic":         cfg.OrderStatusTopic,
	}).Info("Order Worker starting")

	if err := router.Run(cfg.HTTPAddr); err != nil {
		log.Fatal("Failed to start server: ", err)
	}
}

// buildHistoryStore prefers the durable Redis log; an empty address means a
// single-process run where in-memory history is acceptable.
func buildHistoryStore(endpoints config.Endpoints) workflow.HistoryStore {
	if endpoints.RedisAddr == "" {
		log.Warn("No Redis address configured, workflow history will not survive restarts")
		return storage.NewMemoryHistoryStore()
	}
	client := redis.NewClient(&redis.Options{Addr: endpoints.RedisAddr})
	return storage.NewRedisHistoryStore(client)
}

// fulfillOrder triggers the fulfillment workflow and reports its terminal
// state. Duplicate starts for an active order are rejected with 409.
func fulfillOrder(c *gin.Context) {
	var req models.FulfillOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.FulfillOrderResponse{
			Status:  models.OrderStatusFailed,
			Message: "Invalid request: " + err.Error(),
		})
		return
	}

	orderID := req.OrderID
	if orderID == "" {
		orderID = uuid.New().String()
	}

	order := models.Order{
		ID:        orderID,
		Items:     req.Items,
		Status:    models.OrderStatusPending,
		Timestamp: time.Now(),
	}

	log.WithFields(log.Fields{
		"order_id": orderID,
		"items":    len(order.Items),
	}).Info("Processing new order")

	inst, err := engine.Fulfill(c.Request.Context(), order)
	if err != nil {
		switch {
		case errors.Is(err, workflow.ErrValidation):
			c.JSON(http.StatusBadRequest, models.FulfillOrderResponse{
				OrderID: orderID,
				Status:  models.OrderStatusFailed,
				Message: err.Error(),
			})
		case errors.Is(err, workflow.ErrInstanceConflict):
			c.JSON(http.StatusConflict, models.FulfillOrderResponse{
				OrderID: orderID,
				Status:  models.OrderStatusPending,
				Message: "fulfillment already in progress for this order",
			})
		default:
			c.JSON(http.StatusInternalServerError, models.FulfillOrderResponse{
				OrderID: orderID,
				Status:  models.OrderStatusFailed,
				Message: err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusOK, models.FulfillOrderResponse{
		OrderID: inst.OrderID,
		Status:  string(inst.State),
		Message: inst.Message,
	})
}

// getOrder returns the instance's current state and history for audit
func getOrder(c *gin.Context) {
	orderID := c.Param("orderId")

	inst, found, err := historyStore.GetInstance(c.Request.Context(), orderID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{
			"error":    "Order not found",
			"order_id": orderID,
		})
		return
	}

	c.JSON(http.StatusOK, inst)
}
