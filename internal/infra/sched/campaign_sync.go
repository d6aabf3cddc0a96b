package sched

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"mat-kinh-affiliate/internal/domain"
	"mat-kinh-affiliate/internal/domain/model"
	"mat-kinh-affiliate/internal/domain/ports/adapter"
	"mat-kinh-affiliate/internal/domain/ports/repository"
	"mat-kinh-affiliate/internal/infra/metrics"
)

// CampaignSyncWorker periodically pulls the active campaigns from the POS and
// upserts their external bindings. Matching is by campaign code; a remote
// campaign with no local counterpart is registered as inactive so an operator
// can review it before any grants exist.
type CampaignSyncWorker struct {
	interval  time.Duration
	pos       adapter.POSGateway
	campaigns repository.CampaignRepository
	tm        repository.TransactionManager
	log       *zerolog.Logger
}

func NewCampaignSyncWorker(interval time.Duration, pos adapter.POSGateway, campaigns repository.CampaignRepository, tm repository.TransactionManager, logger *zerolog.Logger) *CampaignSyncWorker {
	syncLog := logger.With().Str("component", "CampaignSyncWorker").Logger()
	return &CampaignSyncWorker{
		interval:  interval,
		pos:       pos,
		campaigns: campaigns,
		tm:        tm,
		log:       &syncLog,
	}
}

func (w *CampaignSyncWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting campaign sync worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// One pass up front so bindings exist before the first tick.
	if n, err := w.SyncOnce(ctx); err != nil {
		w.log.Error().Err(err).Msg("campaign sync error")
	} else if n > 0 {
		w.log.Info().Int("count", n).Msg("campaigns synced")
	}

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping campaign sync worker")
			return ctx.Err()
		case <-ticker.C:
			n, err := w.SyncOnce(ctx)
			if err != nil {
				w.log.Error().Err(err).Msg("campaign sync error")
				continue
			}
			if n > 0 {
				w.log.Info().Int("count", n).Msg("campaigns synced")
			}
		}
	}
}

// SyncOnce reconciles the remote campaign list against the local registry and
// returns how many campaigns were touched.
func (w *CampaignSyncWorker) SyncOnce(ctx context.Context) (int, error) {
	remote, err := w.pos.ListCampaigns(ctx)
	if err != nil {
		return 0, err
	}

	synced := 0
	for _, rc := range remote {
		touched, err := w.upsert(ctx, rc)
		if err != nil {
			w.log.Error().Err(err).Str("code", rc.Code).Msg("campaign upsert failed")
			continue
		}
		if touched {
			synced++
		}
	}
	if synced > 0 {
		metrics.AddCampaignsSynced(synced)
	}
	return synced, nil
}

// upsert reconciles one remote campaign inside a transaction. The campaigns
// upsert conflicts on id, not code, so the advisory lock on the code is what
// keeps two replicas from inserting the same code twice.
func (w *CampaignSyncWorker) upsert(ctx context.Context, rc adapter.RemoteCampaign) (bool, error) {
	touched := false
	err := w.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := w.tm.AdvisoryXactLock(ctx, tx, "campaign_sync:"+rc.Code); err != nil {
			return err
		}
		c, err := w.campaigns.FindByCodeTx(ctx, tx, rc.Code)
		switch {
		case err == nil:
			if c.ExternalID == rc.ID {
				return nil
			}
			c.ExternalID = rc.ID
			c.UpdatedAt = time.Now()
			touched = true
			return w.campaigns.SaveTx(ctx, tx, c)
		case errors.Is(err, domain.ErrNotFound):
			nc, err := model.NewCampaign(uuid.NewString(), rc.Code, rc.Name, rc.ValueVND, rc.ValidityDays)
			if err != nil {
				return err
			}
			nc.ExternalID = rc.ID
			nc.Status = model.CampaignStatusInactive
			touched = true
			return w.campaigns.SaveTx(ctx, tx, nc)
		default:
			return err
		}
	})
	if err != nil {
		return false, err
	}
	return touched, nil
}
