package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/clinicore/hmis-server/cmd/api"
	"github.com/clinicore/hmis-server/cmd/models"
	"github.com/clinicore/hmis-server/db"
	"gorm.io/gorm"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "migrate":
			runMigrations()
			return
		case "seed":
			runSeed()
			return
		case "clear-db":
			runDatabaseClear()
			return
		default:
			log.Fatalf("Unknown command: %s", os.Args[1])
		}
	}

	startServer()
}

func openDB() *gorm.DB {
	DB, err := db.NewPSQLStorage()
	if err != nil {
		log.Fatalf("Database initialization error: %v", err)
	}
	return DB
}

func closeDB(DB *gorm.DB) {
	sqlDB, _ := DB.DB()
	sqlDB.Close()
	log.Println("Database connection closed")
}

func runMigrations() {
	DB := openDB()
	defer closeDB(DB)
	log.Println("Connected to the database for migrations")

	if err := performMigrations(DB); err != nil {
		log.Fatalf("Migration error: %v", err)
	}
	log.Println("Migrations completed successfully")
}

func performMigrations(DB *gorm.DB) error {
	migrations := []struct {
		model interface{}
		name  string
	}{
		{&models.User{}, "User"},
		{&models.Slot{}, "Slot"},
		{&models.Appointment{}, "Appointment"},
		{&models.Prescription{}, "Prescription"},
		{&models.Lab{}, "Lab"},
		{&models.Device{}, "Device"},
		{&models.NotificationHistory{}, "NotificationHistory"},
	}

	log.Println("Starting database migrations...")
	for _, migration := range migrations {
		log.Printf("Migrating %s table...", migration.name)
		if err := DB.AutoMigrate(migration.model); err != nil {
			return fmt.Errorf("error migrating %s table: %w", migration.name, err)
		}
	}
	log.Println("All migrations completed successfully")
	return nil
}

func runSeed() {
	DB := openDB()
	defer closeDB(DB)

	if err := performMigrations(DB); err != nil {
		log.Fatalf("Migration error: %v", err)
	}
	if err := db.Seed(DB); err != nil {
		log.Fatalf("Seeding error: %v", err)
	}
	log.Println("Seeding completed successfully")
}

func startServer() {
	DB := openDB()
	defer closeDB(DB)
	log.Println("Connected to the database")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}
	server := api.NewApiServer(":"+port, DB)

	go func() {
		if err := server.Run(); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()
	log.Printf("Server running on port %s", port)

	<-quit
	log.Println("Shutting down server...")
}

func runDatabaseClear() {
	DB := openDB()
	defer closeDB(DB)

	log.Println("Preparing to clear database...")

	var confirmation string
	fmt.Print("Are you sure you want to clear the database? (yes/no): ")
	fmt.Scanln(&confirmation)

	if confirmation != "yes" {
		log.Println("Database clearing cancelled.")
		return
	}

	tables := []interface{}{
		&models.NotificationHistory{},
		&models.Device{},
		&models.Lab{},
		&models.Prescription{},
		&models.Appointment{},
		&models.Slot{},
		&models.User{},
	}

	log.Println("Dropping tables...")
	for _, table := range tables {
		if err := DB.Migrator().DropTable(table); err != nil {
			log.Printf("Warning dropping table %T: %v", table, err)
		} else {
			log.Printf("Table %T dropped", table)
		}
	}

	log.Println("Database cleared successfully")
}
