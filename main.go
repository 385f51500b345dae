package main

import (
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"

	"github.com/prabhashwara07/IntelliStay-sub001/routes"
	"github.com/prabhashwara07/IntelliStay-sub001/services"
	"github.com/prabhashwara07/IntelliStay-sub001/storage"
	"github.com/prabhashwara07/IntelliStay-sub001/utils"
)

func main() {
	// Only load .env in development
	if os.Getenv("RENDER") == "" {
		godotenv.Load()
	}

	// Initialize services
	db := storage.InitializeDB()
	storage.InitializeRedis()

	// Payment gateway credentials are required before the server accepts
	// any traffic; signing and verification cannot run without them.
	gatewayCfg, cfgErr := services.LoadGatewayConfig()
	if cfgErr != nil {
		log.Fatalf("refusing to start: %v", cfgErr)
	}

	signer := services.NewSigner(gatewayCfg)
	bookingRepo := storage.NewBookingRepository(db)
	ledgerRepo := storage.NewPaymentLedgerRepository(db)
	auditRepo := storage.NewPaymentAuditRepository(db)

	// The event broker is optional in development; the reconciler treats a
	// nil publisher as a no-op sink.
	var publisher services.EventPublisher
	if amqpURL := os.Getenv("AMQP_URL"); amqpURL != "" {
		rabbit, rabbitErr := services.NewRabbitPublisher(amqpURL)
		if rabbitErr != nil {
			log.Fatalf("failed to connect event broker: %v", rabbitErr)
		}
		defer rabbit.Close()
		publisher = rabbit
	} else {
		log.Println("AMQP_URL not set, booking events will not be published")
	}

	reconciler := services.NewReconciliationService(signer, bookingRepo, ledgerRepo, publisher, auditRepo)
	routes.InitPayments(signer, reconciler, bookingRepo)

	app := iris.New()
	app.Validator = validator.New()

	// CORS configuration
	app.AllowMethods(iris.MethodOptions)
	app.UseRouter(func(ctx iris.Context) {
		ctx.Header("Access-Control-Allow-Origin", ctx.GetHeader("Origin"))
		ctx.Header("Vary", "Origin")
		ctx.Header("Access-Control-Allow-Credentials", "true")
		ctx.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Requested-With")
		ctx.Header("Access-Control-Allow-Methods", "GET,POST,PATCH,PUT,DELETE,OPTIONS")
		if ctx.Method() == iris.MethodOptions {
			ctx.StatusCode(iris.StatusNoContent)
			return
		}
		ctx.Next()
	})

	app.Use(iris.Compression)

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifier.WithDefaultBlocklist()
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} {
		return new(utils.AccessToken)
	})

	refreshTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("REFRESH_TOKEN_SECRET")))
	refreshTokenVerifier.WithDefaultBlocklist()
	refreshTokenVerifierMiddleware := refreshTokenVerifier.Verify(func() interface{} {
		return new(jwt.Claims)
	})

	refreshTokenVerifier.Extractors = append(refreshTokenVerifier.Extractors, func(ctx iris.Context) string {
		var tokenInput utils.RefreshTokenInput
		err := ctx.ReadJSON(&tokenInput)
		if err != nil {
			return ""
		}
		return tokenInput.RefreshToken
	})

	app.Get("/health", func(ctx iris.Context) {
		ctx.JSON(iris.Map{"status": "ok"})
	})

	user := app.Party("/api/user")
	{
		user.Post("/register", routes.Register)
		user.Post("/login", routes.Login)
		user.Get("/{id}", accessTokenVerifierMiddleware, utils.UserIDFromTokenMiddleware, routes.GetUser)
	}

	hotel := app.Party("/api/hotel")
	{
		hotel.Get("/", routes.ListHotels)
		hotel.Get("/{id}", routes.GetHotel)
		hotel.Post("/", accessTokenVerifierMiddleware, utils.HostOnlyMiddleware, routes.CreateHotel)
		hotel.Patch("/{id}", accessTokenVerifierMiddleware, routes.UpdateHotel)
		hotel.Delete("/{id}", accessTokenVerifierMiddleware, routes.DeleteHotel)
		hotel.Get("/{id}/rooms", routes.ListHotelRooms)
		hotel.Post("/{id}/rooms", accessTokenVerifierMiddleware, utils.HostOnlyMiddleware, routes.CreateRoom)
	}

	room := app.Party("/api/room")
	{
		room.Delete("/{id}", accessTokenVerifierMiddleware, routes.DeleteRoom)
	}

	booking := app.Party("/api/booking")
	{
		booking.Post("/hotel/{id}", accessTokenVerifierMiddleware, routes.CreateBooking)
		booking.Get("/checkout/{orderRef}", accessTokenVerifierMiddleware, routes.GetBookingCheckout)
		booking.Get("/user/{id}", accessTokenVerifierMiddleware, utils.UserIDMiddleware, routes.GetUserBookings)
		booking.Get("/host", accessTokenVerifierMiddleware, utils.HostOnlyMiddleware, routes.GetHostBookings)
		booking.Delete("/{id}", accessTokenVerifierMiddleware, routes.CancelBooking)
	}

	payment := app.Party("/api/payment")
	{
		// Gateway callback: authenticity is established by signature
		// verification, not by a session.
		payment.Post("/notify", routes.PaymentNotify)
	}

	review := app.Party("/api/review")
	{
		review.Get("/hotel/{id}", routes.ListHotelReviews)
		review.Post("/hotel/{id}", accessTokenVerifierMiddleware, routes.CreateHotelReview)
	}

	app.Post("/api/refresh", refreshTokenVerifierMiddleware, utils.RefreshToken)

	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}
	addr := "0.0.0.0:" + port

	fmt.Printf("Server starting on %s\n", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
