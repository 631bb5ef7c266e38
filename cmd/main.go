package main

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"siteboard/internal/api/auth_api"
	"siteboard/internal/api/kanban_api"
	"siteboard/internal/config"
	"siteboard/internal/database"
	"siteboard/internal/repository/auth_repository"
	"siteboard/internal/repository/kanban_repository"
	"siteboard/internal/repository/project_repository"
	"siteboard/internal/services/auth_services"
	"siteboard/internal/services/kanban_services"
)

func setupCORS(router http.Handler) http.Handler {
	cfg := config.Load()

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.CorsOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	return c.Handler(router)
}

func main() {
	cfg := config.Load()

	db, err := database.NewConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("FATAL: database connection failed: %v", err)
	}
	defer db.Close()
	log.Println("INFO: Database connection successful")

	// AUTH
	userRepo := auth_repository.NewUserRepo(db)
	refreshRepo := auth_repository.NewRefreshRepo(db)
	authSvc := auth_services.NewAuthService(userRepo, refreshRepo)
	authHandler := auth_api.NewAuthHandler(authSvc)

	// PROJECT ACCESS + ACTIVITY
	projectRepo := project_repository.NewProjectRepo(db)

	// KANBAN WORKFLOW
	boardRepo := kanban_repository.NewBoardRepo(db)
	itemRepo := kanban_repository.NewItemRepo(db)
	commentRepo := kanban_repository.NewCommentRepo(db)
	historyRepo := kanban_repository.NewHistoryRepo(db)
	categoryRepo := kanban_repository.NewCategoryRepo(db)

	boardService := kanban_services.NewBoardService(boardRepo, projectRepo)
	itemService := kanban_services.NewItemService(itemRepo, boardRepo, commentRepo, historyRepo, categoryRepo, projectRepo, projectRepo)

	boardHandler := kanban_api.NewBoardHandler(boardService, itemService, authSvc)
	itemHandler := kanban_api.NewItemHandler(itemService, authSvc)

	r := mux.NewRouter()

	authHandler.RegisterRoutes(r)
	boardHandler.BoardRoutes(r)
	itemHandler.ItemRoutes(r)

	handlerWithCORS := setupCORS(r)

	log.Printf("INFO: Starting HTTP server on port %s", cfg.HTTPPort)
	if err := http.ListenAndServe(":"+cfg.HTTPPort, handlerWithCORS); err != nil {
		log.Fatalf("FATAL: failed to start HTTP server: %v", err)
	}
}
