package main

import (
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/rossostudios/maidconnect-sub005/api"
	"github.com/rossostudios/maidconnect-sub005/res/geo"
	"github.com/rossostudios/maidconnect-sub005/res/notification"
	"github.com/rossostudios/maidconnect-sub005/res/notification/dispatch"
	"github.com/rossostudios/maidconnect-sub005/res/payment/stripe"
	"github.com/rossostudios/maidconnect-sub005/res/store/postgresql"
	"github.com/rossostudios/maidconnect-sub005/sys/booking"
	"github.com/rossostudios/maidconnect-sub005/sys/jobs"
)

var logger = log.New(os.Stdout, "(cmd/main.go)", log.LstdFlags|log.LUTC|log.Llongfile)

func main() {
	// Load .env file in development
	if err := godotenv.Load(); err != nil {
		logger.Printf("Note: .env file not found, using system environment variables")
	}

	port := readRequiredEnvVar("PORT")

	storeInstance, err := postgresql.Connect(readRequiredEnvVar("DATABASE_POSTGRES_URL"))
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	gateway := stripe.New(readRequiredEnvVar("STRIPE_API_KEY"), logger)

	machine := booking.NewStateMachine(&booking.Config{
		Logger:     logger,
		Store:      storeInstance,
		Gateway:    gateway,
		Dispatcher: buildDispatcher(),
		Verifier:   geo.NewRadiusVerifier(readOptionalFloatEnvVar("CHECKIN_RADIUS_METERS", 250)),
	})

	reconciler := jobs.NewReleaseReconciler(logger, storeInstance.Transactions(), gateway)
	schedule := readOptionalEnvVar("RELEASE_RECONCILER_SCHEDULE", "@every 5m")
	if err := reconciler.Start(schedule); err != nil {
		logger.Fatalf("Failed to schedule release reconciler: %v", err)
	}
	logger.Printf("Release reconciler scheduled (%s)", schedule)

	server := api.NewServer(&api.Config{
		Logger:         logger,
		Store:          storeInstance,
		Machine:        machine,
		JWTSecret:      readRequiredEnvVar("JWT_SECRET"),
		Redis:          buildRedisClient(),
		ThrottleLimit:  readOptionalIntEnvVar("THROTTLE_LIMIT", 30),
		ThrottleWindow: readOptionalDurationEnvVar("THROTTLE_WINDOW", time.Minute),
	})

	go func() {
		logger.Printf("Starting server on :%s", port)
		if err := server.Listen(":" + port); err != nil {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Printf("Shutting down")
	reconciler.Stop()
	if err := server.Shutdown(); err != nil {
		logger.Printf("Server shutdown error: %v", err)
	}
}

// buildDispatcher assembles the notification channels; either may be disabled
// when its credentials are absent
func buildDispatcher() notification.Dispatcher {
	var mailer dispatch.Mailer
	if apiKey := os.Getenv("MAIL_API_KEY"); apiKey != "" {
		mailer = dispatch.NewMailer(
			apiKey,
			readOptionalEnvVar("MAIL_API_URL", "https://api.sidemail.io/v1"),
			readRequiredEnvVar("MAIL_SENDER_EMAIL"),
			readOptionalEnvVar("MAIL_SENDER_NAME", "MaidConnect"),
			10*time.Second,
			logger,
		)
	} else {
		logger.Printf("MAIL_API_KEY not set, email notifications disabled")
	}

	var pusher dispatch.Pusher
	if publishKey := os.Getenv("PUBNUB_PUBLISH_KEY"); publishKey != "" {
		pusher = dispatch.NewPusher(publishKey, readRequiredEnvVar("PUBNUB_SUBSCRIBE_KEY"), logger)
	} else {
		logger.Printf("PUBNUB_PUBLISH_KEY not set, push notifications disabled")
	}

	if mailer == nil && pusher == nil {
		return nil
	}
	return dispatch.New(mailer, pusher, logger)
}

func buildRedisClient() *redis.Client {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		logger.Printf("REDIS_URL not set, request throttling disabled")
		return nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		opts = &redis.Options{Addr: url}
	}
	return redis.NewClient(opts)
}

func readRequiredEnvVar(name string) string {
	val, ok := os.LookupEnv(name)
	if !ok {
		logger.Fatalf("Env variable not set: %s", name)
	}
	return val
}

func readOptionalEnvVar(name, fallback string) string {
	if val, ok := os.LookupEnv(name); ok {
		return val
	}
	return fallback
}

func readOptionalIntEnvVar(name string, fallback int64) int64 {
	val, ok := os.LookupEnv(name)
	if !ok {
		return fallback
	}
	parsed, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		logger.Fatalf("Env variable %s is not an integer: %v", name, err)
	}
	return parsed
}

func readOptionalFloatEnvVar(name string, fallback float64) float64 {
	val, ok := os.LookupEnv(name)
	if !ok {
		return fallback
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		logger.Fatalf("Env variable %s is not a number: %v", name, err)
	}
	return parsed
}

func readOptionalDurationEnvVar(name string, fallback time.Duration) time.Duration {
	val, ok := os.LookupEnv(name)
	if !ok {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		logger.Fatalf("Env variable %s is not a duration: %v", name, err)
	}
	return parsed
}
