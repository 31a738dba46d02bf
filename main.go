package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/cetran-sg/ViSTA-Simulation-Format-Validator/batch"
	"github.com/cetran-sg/ViSTA-Simulation-Format-Validator/catalog"
)

var staticDir string

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	catalogPath := flag.String("catalog", filepath.Join("config", "actor_types.yaml"), "actor type catalog file")
	flag.StringVar(&staticDir, "static", "static", "frontend asset directory")
	flag.Parse()

	cat, err := catalog.Load(*catalogPath)
	if err != nil {
		log.Printf("Using built-in actor type catalog: %v", err)
		cat = catalog.Default()
	}

	service, err := batch.NewService(cat)
	if err != nil {
		log.Fatalf("Failed to initialize batch service: %v", err)
	}

	// Set up graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		log.Println("Shutting down gracefully...")
		if err := service.Close(); err != nil {
			log.Printf("Error closing batch service: %v", err)
		}
		os.Exit(0)
	}()

	service.SetupHandlers(http.DefaultServeMux)

	// Serve the SPA and its assets
	http.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	http.HandleFunc("/", serveFrontend)

	log.Printf("ViSTA Simulation Format Validator started at http://127.0.0.1%s", *addr)
	http.ListenAndServe(*addr, nil)
}

func serveFrontend(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
}
