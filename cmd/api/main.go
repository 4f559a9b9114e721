package main

import (
	"context"
	"log"
	"os"

	_ "orghub/api/swagger" // swagger docs
	"orghub/internal/database"
	"orghub/internal/handler"
	"orghub/internal/middleware"
	"orghub/internal/repository"
	"orghub/internal/service"
	"orghub/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Organization Authorization API
// @version         1.0
// @description     Organization role/permission authorization engine with invitation lifecycle.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	dbSslMode := os.Getenv("DB_SSLMODE")

	if dbHost == "" {
		dbHost = "localhost"
	}
	if dbPort == "" {
		dbPort = "5432"
	}
	if dbUser == "" {
		dbUser = "postgres"
	}
	if dbPassword == "" {
		dbPassword = "postgres"
	}
	if dbName == "" {
		dbName = "postgres"
	}
	if dbSslMode == "" {
		dbSslMode = "disable"
	}

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	// Set up WebSocket Hub for org event streams
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	orgRepo := repository.NewOrganizationRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	memberRepo := repository.NewMemberRepository(db)
	invRepo := repository.NewInvitationRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	authService := service.NewAuthService(userRepo)
	permService := service.NewPermissionService(roleRepo, memberRepo)
	roleService := service.NewRoleService(roleRepo, memberRepo, auditRepo, txManager, wsHub)
	memberService := service.NewMemberService(memberRepo, roleRepo, auditRepo, txManager, wsHub)
	orgService := service.NewOrganizationService(orgRepo, userRepo, roleService, memberService, auditRepo, txManager)
	invService := service.NewInvitationService(invRepo, roleRepo, memberRepo, userRepo, auditRepo, txManager, wsHub)
	auditService := service.NewAuditService(auditRepo)

	// Seed the permission catalog once at startup
	if err := permService.SeedCatalog(context.Background()); err != nil {
		log.Fatalf("Failed to seed permission catalog: %v", err)
	}

	auth := middleware.NewAuth(permService)

	// Initialize Handlers
	authHandler := handler.NewAuthHandler(authService)
	orgHandler := handler.NewOrgHandler(orgService)
	roleHandler := handler.NewRoleHandler(roleService, permService)
	memberHandler := handler.NewMemberHandler(memberService, permService)
	invHandler := handler.NewInvitationHandler(invService)
	auditHandler := handler.NewAuditHandler(auditService)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173"} // Frontend URL
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint: org event stream, members only
	router.GET("/ws/orgs/:orgID", auth.RequireAuth(), auth.RequireMembership(), func(c *gin.Context) {
		orgID, _ := middleware.OrgID(c)
		websocket.ServeWs(wsHub, c, orgID)
	})

	// Register API Routes
	root := router.Group("")
	authHandler.RegisterRoutes(root, auth)
	orgHandler.RegisterRoutes(root, auth)
	roleHandler.RegisterRoutes(root, auth)
	memberHandler.RegisterRoutes(root, auth)
	invHandler.RegisterRoutes(root, auth)
	auditHandler.RegisterRoutes(root, auth)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
