package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"janata/internal/app"
	"janata/internal/config"
	"janata/internal/mailer"
	"janata/internal/queue"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}
	cmd := os.Args[1]
	cfgPath := os.Getenv("JP_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch cmd {
	case "serve":
		runServe(ctx, cfg)
	case "worker":
		runWorker(ctx, cfg)
	default:
		usage()
	}
}

func runServe(ctx context.Context, cfg config.Config) {
	appInstance, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("app init error: %v", err)
	}
	defer appInstance.Close()

	log.Printf("janatad serving on %s", cfg.HTTP.Addr)
	if err := appInstance.Serve(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runWorker(ctx context.Context, cfg config.Config) {
	queueInstance, err := queue.New(cfg.Redis.URL)
	if err != nil {
		log.Fatalf("queue error: %v", err)
	}
	defer queueInstance.Close()

	sender := mailer.New(cfg.SMTP)
	if !sender.Configured() {
		log.Println("smtp not configured, notifications will be dropped")
	}

	log.Println("notification worker started")
	for {
		select {
		case <-ctx.Done():
			return
		default:
			job, err := queueInstance.PopNotification(ctx, 5*time.Second)
			if err != nil {
				continue
			}
			if err := sender.Send(job.To, job.Subject, job.Body); err != nil {
				log.Printf("notification send to %s failed: %v", job.To, err)
				continue
			}
			log.Printf("notified %s about grievance %s", job.To, job.GrievanceID)
		}
	}
}

func usage() {
	fmt.Println("Usage: janatad <serve|worker>")
}
