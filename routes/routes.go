package routes

import (
	"github.com/NickArm/Invoice-System-sub000/config"
	"github.com/NickArm/Invoice-System-sub000/controllers"
	"github.com/NickArm/Invoice-System-sub000/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func SetupRouter() *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:3000",
			"http://localhost:5173",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.Use(config.PerformanceLogger())

	auth := r.Group("/auth")
	{
		auth.POST("/register", controllers.Register)
		auth.POST("/login", controllers.Login)

		auth.Use(utils.AuthMiddleware())
		auth.GET("/me", controllers.Me)
	}

	api := r.Group("/api")
	api.Use(utils.AuthMiddleware())
	{
		// Profile and integration settings
		profile := api.Group("/profile")
		{
			profile.GET("", controllers.GetProfile)
			profile.PUT("", controllers.UpdateProfile)
			profile.PUT("/integrations", controllers.UpdateIntegrations)
			profile.POST("/test-imap", controllers.TestImapConnection)
		}

		// Business entity routes
		entities := api.Group("/entities")
		{
			entities.POST("", controllers.CreateEntity)
			entities.GET("", controllers.GetEntities)
			entities.GET("/:id", controllers.GetEntity)
			entities.PUT("/:id", controllers.UpdateEntity)
			entities.DELETE("/:id", controllers.DeleteEntity)
		}

		// Invoice routes
		invoices := api.Group("/invoices")
		{
			invoices.POST("", controllers.CreateInvoice)
			invoices.GET("", controllers.GetInvoices)
			invoices.GET("/:id", controllers.GetInvoice)
			invoices.PUT("/:id", controllers.UpdateInvoice)
			invoices.DELETE("/:id", controllers.DeleteInvoice)
		}

		// Attachment routes
		attachments := api.Group("/attachments")
		{
			attachments.POST("", controllers.UploadAttachment)
			attachments.GET("", controllers.GetAttachments)
			attachments.GET("/:id", controllers.GetAttachment)
			attachments.GET("/:id/download", controllers.DownloadAttachment)
			attachments.POST("/:id/extract", controllers.ReprocessAttachment)
			attachments.DELETE("/:id", controllers.DeleteAttachment)
		}

		// Tax platform routes
		api.GET("/mydata", controllers.FetchMyData)

		// VAT registry lookup
		api.GET("/vat/:taxid", controllers.LookupVat)
	}

	return r
}
