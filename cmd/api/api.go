package api

import (
	"log"
	"net/http"

	"github.com/clinicore/hmis-server/service/appointment"
	"github.com/clinicore/hmis-server/service/dashboard"
	notification "github.com/clinicore/hmis-server/service/notifications"
	"github.com/clinicore/hmis-server/service/user"
	"github.com/clinicore/hmis-server/service/ws"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type APIServer struct {
	address string
	db      *gorm.DB
}

func NewApiServer(address string, db *gorm.DB) *APIServer {
	return &APIServer{
		address: address,
		db:      db,
	}
}

func (s *APIServer) Run() error {
	router := mux.NewRouter()

	hub := ws.NewHub()
	go hub.Run()

	wsHandler := ws.NewHandler(hub)
	wsHandler.RegisterRoutes(router)

	directory := user.NewGormDirectory(s.db)
	userHandler := user.NewHandler(directory)
	userHandler.RegisterRoutes(router)

	notificationHandler := notification.NewNotificationHandler(s.db)
	notificationHandler.RegisterRoutes(router)

	appointmentHandler := appointment.NewHandler(
		appointment.NewGormStore(s.db), directory, hub, notificationHandler)
	appointmentHandler.RegisterRoutes(router)

	dashboardHandler := dashboard.NewDashboardHandler(s.db)
	dashboardHandler.RegisterRoutes(router)

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)

	log.Println("Server running at", s.address)
	return http.ListenAndServe(s.address, cors(router))
}
