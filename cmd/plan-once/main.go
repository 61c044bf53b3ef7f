package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/ILLUVRSE/trip-planner/internal/budget"
	"github.com/ILLUVRSE/trip-planner/internal/config"
	"github.com/ILLUVRSE/trip-planner/internal/engine"
	"github.com/ILLUVRSE/trip-planner/internal/models"
	"github.com/ILLUVRSE/trip-planner/internal/pipeline"
	"github.com/ILLUVRSE/trip-planner/internal/providers"
)

func sampleRequest() models.TripRequest {
	return models.TripRequest{
		Source:        "New Delhi",
		Destination:   "Mumbai",
		StartDate:     "2025-12-01",
		EndDate:       "2025-12-04",
		NumTravelers:  2,
		Budget:        budget.Units(1500),
		Interests:     models.Interests{"food", "forts"},
		GroupCategory: models.GroupCouple,
		Currency:      "USD",
	}
}

func loadRequest(path string) (models.TripRequest, error) {
	if path == "" {
		return sampleRequest(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return models.TripRequest{}, err
	}
	var req models.TripRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return models.TripRequest{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return req, nil
}

func main() {
	timeout := flag.Duration("timeout", 2*time.Minute, "overall planning timeout")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: plan-once [flags] [request.json]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load: %v", err)
	}
	req, err := loadRequest(flag.Arg(0))
	if err != nil {
		log.Fatalf("load request: %v", err)
	}
	req = req.Normalize()
	if err := models.Validate(req); err != nil {
		log.Fatalf("invalid request: %v", err)
	}

	set, _, err := providers.NewSet(
		providers.Keys{RapidAPI: cfg.RapidAPIKey, Geoapify: cfg.GeoapifyKey},
		providers.ClientConfig{Timeout: cfg.ProviderTimeout, Retries: cfg.ProviderRetries, RatePerSecond: cfg.ProviderRPS},
	)
	if err != nil {
		log.Fatalf("providers init: %v", err)
	}
	pcfg := pipeline.Config{Split: cfg.Split, Providers: set, Logger: log.New(os.Stderr, "[pipeline] ", log.LstdFlags)}
	if cfg.EngineURL != "" {
		e, err := engine.NewHTTPEngine(engine.HTTPEngineConfig{BaseURL: cfg.EngineURL, Timeout: cfg.ProviderTimeout, Retries: cfg.ProviderRetries})
		if err != nil {
			log.Fatalf("engine init: %v", err)
		}
		pcfg.Engine = e
	}
	o, err := pipeline.New(pcfg)
	if err != nil {
		log.Fatalf("pipeline init: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	out, err := o.Run(ctx, uuid.NewString(), req)
	if err != nil {
		log.Fatalf("plan failed: %v", err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatalf("encode plan: %v", err)
	}
}
