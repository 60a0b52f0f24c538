package routes

import (
	"log"
	"strconv"

	_ "realtypay/docs" // This will be auto-generated
	"realtypay/internal/adapter/http/handlers"
	"realtypay/internal/adapter/persistence/repository"
	"realtypay/internal/config"
	"realtypay/internal/infrastructure/database"
	"realtypay/internal/infrastructure/payments"
	"realtypay/internal/usecase"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

var router = gin.Default()

// Run will start the server
func Run() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	setMiddlewares()

	// Swagger documentation endpoint
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	getRoutes(cfg)

	if err := router.Run(":" + strconv.Itoa(cfg.Port)); err != nil {
		log.Fatalf("Failed to startup the application: %v", err.Error())
	}
}

func getRoutes(cfg config.Config) {
	ddb := database.ConnectDynamoDB(cfg)
	transactionRepo := repository.NewTransactionDynamoRepository(ddb, cfg.TransactionsTable)

	registry := buildGatewayRegistry(cfg)

	paymentUseCase := usecase.NewPaymentUseCase(transactionRepo, registry)
	paymentHandler := handlers.NewPaymentHandler(paymentUseCase)

	v1 := router.Group("/v1")
	addPingRoutes(v1)
	addPaymentRoutes(v1, paymentHandler)
}

// buildGatewayRegistry registers every configured provider. The set is fixed
// at startup: an unconfigured or unknown gateway name resolves to a
// client-facing "not supported" error, never to a runtime lookup miss.
func buildGatewayRegistry(cfg config.Config) *payments.Registry {
	registry := payments.NewRegistry()

	paystack, err := payments.NewPaystackGateway(payments.PaystackConfig{
		SecretKey: cfg.PaystackSecretKey,
		BaseURL:   cfg.PaystackBaseURL,
		Timeout:   cfg.GatewayTimeout,
	})
	if err != nil {
		log.Printf("Paystack gateway not configured: %v", err)
	} else {
		registry.Register("paystack", paystack)
	}

	flutterwave, err := payments.NewFlutterwaveGateway(payments.FlutterwaveConfig{
		SecretKey:     cfg.FlutterwaveSecretKey,
		WebhookSecret: cfg.FlutterwaveWebhookSecret,
		BaseURL:       cfg.FlutterwaveBaseURL,
		Timeout:       cfg.GatewayTimeout,
	})
	if err != nil {
		log.Printf("Flutterwave gateway not configured: %v", err)
	} else {
		registry.Register("flutterwave", flutterwave)
	}

	return registry
}

func setMiddlewares() {
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.Printf("Recovered from panic: %v", recovered)
		c.AbortWithStatus(500)
	}))
}
