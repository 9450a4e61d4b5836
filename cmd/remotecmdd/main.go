// Command remotecmdd runs a reference command server: it loads the YAML
// configuration, wires logging and metrics, and exposes a few demonstration
// commands alongside a simulated pump instrument.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"remotecmd/command"
	"remotecmd/config"
	"remotecmd/logging"
	"remotecmd/middleware"
	"remotecmd/server"
)

// Pump simulates a ranged instrument. Its methods and fields are exposed
// remotely under the "pump_" prefix.
type Pump struct {
	Range  int
	Serial string `cmd:"readonly"`

	running bool
}

func (p *Pump) Start() {
	p.running = true
}

func (p *Pump) Stop() {
	p.running = false
}

func (p *Pump) Status() string {
	if p.running {
		return fmt.Sprintf("running (range %d)", p.Range)
	}
	return "stopped"
}

func (p *Pump) CommandDocs() map[string]string {
	return map[string]string{
		"start":  "Starts the pump.",
		"stop":   "Stops the pump.",
		"status": "Reports the pump's running state.",
		"range":  "Measurement range selector.",
		"serial": "Factory serial number (read-only).",
	}
}

func hello(name any) string {
	return fmt.Sprintf("Hello %v!", name)
}

func main() {
	configPath := flag.String("config", "", "path to a YAML configuration file")
	flag.Parse()

	log := logging.New("[remotecmdd]")

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("load config: %v", err)
		}
	}
	if err := log.Configure(logging.Options{
		Level:         cfg.Logging.Level,
		FilePath:      cfg.Logging.FilePath,
		FileMaxSizeMB: cfg.Logging.FileMaxSizeMB,
	}); err != nil {
		log.Fatalf("configure logging: %v", err)
	}

	srv, err := server.New(server.Config{
		Address: cfg.Server.Address,
		Port:    cfg.Server.Port,
		Secret:  cfg.Server.Secret,
	}, server.WithLogger(log))
	if err != nil {
		log.Fatalf("create server: %v", err)
	}

	srv.Use(middleware.Recovery(log))
	srv.Use(middleware.Logging(log))
	if cfg.Limits.RequestsPerSecond > 0 {
		srv.Use(middleware.RateLimit(cfg.Limits.RequestsPerSecond, cfg.Limits.Burst))
	}
	if cfg.Metrics.Enabled {
		srv.Use(middleware.Metrics(prometheus.DefaultRegisterer))
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cfg.Metrics.Listen, mux); err != nil {
				log.Printf("metrics endpoint: %v", err)
			}
		}()
	}

	start := time.Now()
	registrations := []error{
		srv.RegisterFunc(hello,
			command.WithParams(command.Optional("name", "world")),
			command.WithDoc("Greets the named caller.")),
		srv.RegisterFunc(func() string { return time.Since(start).Round(time.Second).String() },
			command.WithName("uptime"),
			command.WithDoc("Reports how long the server has been up.")),
		srv.RegisterInstance(&Pump{Range: 1, Serial: "PMP-0001"}, "pump_"),
	}
	for _, err := range registrations {
		if err != nil {
			log.Fatalf("register: %v", err)
		}
	}

	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		<-ch
		log.Printf("shutting down")
		if err := srv.Shutdown(5 * time.Second); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	if err := srv.Run(); err != nil {
		log.Fatalf("serve: %v", err)
	}
}
