package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/NickArm/Invoice-System-sub000/config"
	"github.com/NickArm/Invoice-System-sub000/controllers"
	"github.com/NickArm/Invoice-System-sub000/models"
	"github.com/NickArm/Invoice-System-sub000/routes"
	"github.com/NickArm/Invoice-System-sub000/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func init() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	config.ConnectDB()

	config.DB.AutoMigrate(
		&models.User{},
		&models.BusinessEntity{},
		&models.Invoice{},
		&models.InvoiceItem{},
		&models.Attachment{},
	)
}

func main() {
	workers := 4
	if v, err := strconv.Atoi(os.Getenv("EXTRACTION_WORKERS")); err == nil && v > 0 {
		workers = v
	}

	queue := services.NewQueue(workers, 64)
	notifier := services.NewNotifier()
	extractor := services.NewExtractionService(config.DB)
	mailbox := services.NewMailboxService(config.DB, queue, extractor, notifier)
	scheduler := services.NewScheduler(config.DB, queue, mailbox)

	queue.OnFailure = func(job services.Job, err error) {
		log.Printf("[QUEUE] Job %s failed permanently: %v", job.Name(), err)
		if ej, ok := job.(services.ExtractionJob); ok {
			var attachment models.Attachment
			if dbErr := config.DB.First(&attachment, "id = ?", ej.AttachmentID).Error; dbErr != nil {
				return
			}
			var user models.User
			if dbErr := config.DB.First(&user, "id = ?", attachment.UserID).Error; dbErr != nil {
				return
			}
			notifier.ExtractionFailed(&user, attachment.OriginalFilename)
		}
	}

	controllers.Jobs = queue
	controllers.Extractor = extractor
	controllers.MyData = services.NewMyDataService(config.DB)
	controllers.VatRegistry = services.NewVatRegistryClient()
	controllers.Mailbox = mailbox

	scheduler.Start()
	defer scheduler.Stop()
	defer queue.Close()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	r := routes.SetupRouter()
	printRoutes(r)
	r.Run(":" + port)
}

func printRoutes(r *gin.Engine) {
	routes := r.Routes()
	for _, route := range routes {
		fmt.Printf("%-6s %s\n", route.Method, route.Path)
	}
}
