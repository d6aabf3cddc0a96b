package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"mat-kinh-affiliate/internal/config"
	pg "mat-kinh-affiliate/internal/infra/db/postgres"
	"mat-kinh-affiliate/internal/infra/logging"
	"mat-kinh-affiliate/internal/usecase"
)

func main() {
	// ---- Config ----
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)

	// Connect Postgres
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	campaignRepo := pg.NewPostgresCampaignRepo(pool)
	assignmentRepo := pg.NewPostgresAssignmentRepo(pool)
	campaignUC := usecase.NewCampaignUseCase(campaignRepo, assignmentRepo, logger)

	// If campaigns already exist, do nothing
	existing, err := campaignUC.List(ctx)
	if err != nil {
		log.Fatalf("list campaigns: %v", err)
	}
	if len(existing) > 0 {
		fmt.Printf("%d campaigns already present. No changes.\n", len(existing))
		for _, c := range existing {
			fmt.Printf("  - %s %s (value=%d VND, validity=%d days, status=%s)\n", c.Code, c.Name, c.ValueVND, c.ValidityDays, c.Status)
		}
		return
	}

	// Seed a few sample campaigns for testing the issuance flow
	seed := []struct {
		Code  string
		Name  string
		Value int64
		Days  int
	}{
		{"TET2026", "Khuyen mai Tet 2026", 200_000, 30},
		{"KHAITRUONG", "Khai truong chi nhanh moi", 100_000, 15},
		{"BANMOI", "Uu dai khach hang moi", 50_000, 45},
	}

	for _, s := range seed {
		c, err := campaignUC.Create(ctx, s.Code, s.Name, s.Value, s.Days)
		if err != nil {
			log.Fatalf("create campaign %q: %v", s.Code, err)
		}
		fmt.Printf("seeded: %s (id=%s, value=%d VND, validity=%d days)\n", c.Code, c.ID, c.ValueVND, c.ValidityDays)
	}

	fmt.Println("✅ Seeding complete.")
}
