package boot

import (
	"carpool/src/db"
	"carpool/src/lib"
	"carpool/src/models"
	"carpool/src/utils"
	"log"
	"time"

	"gorm.io/gorm"
)

func InitDb() *gorm.DB {
	db := db.GetDb()

	err := db.AutoMigrate(
		&models.User{},
		&models.Ride{},
		&models.Booking{},
		&models.RideRequest{},
		&models.RideRequestOffer{},
		&models.Payment{},
		&models.RoutePrice{},
	)
	if err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}

	return db
}

// InitScheduler registers the request-expiry sweep and starts the scheduler.
func InitScheduler() {
	id, err := lib.CreateCronJob(utils.ExpireStaleRequests, 5*time.Minute)
	if err != nil {
		log.Printf("Error registering expiry job: %s\n", err.Error())
		return
	}
	log.Printf("Registered expiry job %s\n", *id)
	lib.StartScheduler()
}
