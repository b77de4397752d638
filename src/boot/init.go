package boot

import (
	"etix/src/booking"
	"etix/src/db"
	"etix/src/lib"
	"etix/src/models"
	"etix/src/workers"
	"log"
	"time"

	"gorm.io/gorm"
)

func InitDb() *gorm.DB {
	db := db.GetDb()

	err := db.AutoMigrate(
		&models.User{},
		&models.Event{},
		&models.TicketType{},
		&models.DynamicPricingRule{},
		&models.Booking{},
		&models.Ticket{},
		&models.Payment{},
		&models.GatePerson{},
		&models.TicketScanLog{},
	)
	if err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}

	return db
}

func InitWorkers() *workers.Queue {
	return workers.GetQueue()
}

// InitScheduler starts the background sweep that expires pending bookings
// whose hold window has lapsed and returns their slots to inventory.
func InitScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("An error has occurred. Check logs for info")
		return
	}
	jobId, err := lib.CreateCronJob(func() {
		expired, err := booking.ExpirePendingBookings(time.Now())
		if err != nil {
			log.Printf("Error expiring pending bookings: %s\n", err.Error())
			return
		}
		if expired > 0 {
			log.Printf("Expired %d pending bookings\n", expired)
		}
	}, time.Minute)
	if err != nil {
		log.Printf("Error running job: %s\n", err.Error())
		return
	}
	log.Printf("Job ID: %s\n", *jobId)
	sched.Start()
}
