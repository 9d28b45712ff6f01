package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/sahelcraft/marketplace/internal/checkout"
	"github.com/sahelcraft/marketplace/internal/config"
	"github.com/sahelcraft/marketplace/internal/httpx"
	kafkax "github.com/sahelcraft/marketplace/internal/kafka"
	"github.com/sahelcraft/marketplace/internal/lifecycle"
	"github.com/sahelcraft/marketplace/internal/metrics"
	"github.com/sahelcraft/marketplace/internal/orders"
	"github.com/sahelcraft/marketplace/internal/payment"
	"github.com/sahelcraft/marketplace/internal/redisx"
	"github.com/sahelcraft/marketplace/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var st store.Store
	switch cfg.Store {
	case "memory":
		mem := store.NewMem()
		seedDemo(mem)
		st = mem
		log.Println("using in-memory store (demo mode)")
	default:
		pg, err := store.ConnectPG(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("db connect: %v", err)
		}
		defer pg.Close()
		st = pg
	}

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024)
	prod.Start(ctx)

	engine := &checkout.Engine{
		Store:    st,
		Shipping: orders.FlatRateShipping{Fee: cfg.ShippingFee, FreeAbove: cfg.FreeShippingAbove},
		Tax:      orders.MethodFeeTax{},
	}
	manager := &lifecycle.Manager{
		Store:          st,
		Gateway:        payment.NewSimulator(cfg.PaymentLatency, cfg.PaymentSuccessRate),
		Hooks:          lifecycle.NopHooks{},
		PaymentTimeout: cfg.PaymentTimeout,
	}

	router := httpx.NewRouter()
	oh := &httpx.OrdersHandler{
		Store:    st,
		Engine:   engine,
		Manager:  manager,
		Producer: prod,
		Redis:    rdb,
		Metrics:  metrics.NewCore(cfg.ServiceName, nil),
		Service:  cfg.ServiceName,
	}
	oh.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close()
	prod.WaitClosed()
}

// seedDemo gives the in-memory mode a small catalog to play with.
func seedDemo(mem *store.Mem) {
	now := time.Now().UTC()
	mem.PutProduct(orders.Product{
		ID: "p-bogolan", ArtisanID: "a-awa", Name: "Bogolan throw", Price: 18000, Stock: 12,
		CreatedAt: now, UpdatedAt: now,
	})
	mem.PutProduct(orders.Product{
		ID: "p-calabash", ArtisanID: "a-moussa", Name: "Carved calabash bowl", Price: 6500, Stock: 30,
		CreatedAt: now, UpdatedAt: now,
	})
	mem.PutProduct(orders.Product{
		ID: "p-kente", ArtisanID: "a-awa", Name: "Kente scarf", Price: 9500, Stock: 8,
		CreatedAt: now, UpdatedAt: now,
	})
}
