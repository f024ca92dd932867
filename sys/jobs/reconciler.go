package jobs

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rossostudios/maidconnect-sub005/monitoring"
	"github.com/rossostudios/maidconnect-sub005/res/payment"
	"github.com/rossostudios/maidconnect-sub005/res/store"
)

const (
	// releaseBatchSize bounds how many failed releases one run picks up
	releaseBatchSize = 50

	// maxReleaseRetries stops retrying releases that keep failing; past this
	// the row stays failed and needs manual review
	maxReleaseRetries = 10
)

// ReleaseReconciler retries payment releases that failed during decline.
// Declines commit even when the gateway call fails, so these holds must be
// cleaned up out of band.
type ReleaseReconciler struct {
	logger       *log.Logger
	transactions store.TransactionStore
	gateway      payment.Gateway
	cron         *cron.Cron
}

// NewReleaseReconciler creates the reconciler; call Start to schedule it
func NewReleaseReconciler(logger *log.Logger, transactions store.TransactionStore, gateway payment.Gateway) *ReleaseReconciler {
	return &ReleaseReconciler{
		logger:       logger,
		transactions: transactions,
		gateway:      gateway,
	}
}

// Start schedules the reconciler on the given cron spec (e.g. "@every 5m")
func (r *ReleaseReconciler) Start(schedule string) error {
	r.cron = cron.New()
	if _, err := r.cron.AddFunc(schedule, r.Run); err != nil {
		return err
	}
	r.cron.Start()
	return nil
}

// Stop waits for a running pass to finish
func (r *ReleaseReconciler) Stop() {
	if r.cron != nil {
		<-r.cron.Stop().Done()
	}
}

// Run performs one reconciliation pass. Exported so operators can trigger it
// directly.
func (r *ReleaseReconciler) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pending, err := r.transactions.GetFailedReleases(ctx, releaseBatchSize)
	if err != nil {
		r.logger.Printf("Release reconciler could not list failed releases: %v", err)
		return
	}
	if len(pending) == 0 {
		return
	}
	r.logger.Printf("Release reconciler retrying %d failed releases", len(pending))

	for _, transaction := range pending {
		r.retry(ctx, transaction)
	}
}

func (r *ReleaseReconciler) retry(ctx context.Context, transaction *store.Transaction) {
	if transaction.RetryCount >= maxReleaseRetries {
		r.logger.Printf("Release %s for booking %s exhausted %d retries, leaving for manual review",
			transaction.ID, transaction.BookingID, transaction.RetryCount)
		return
	}

	monitoring.RecordReleaseRetry()

	err := r.gateway.Cancel(ctx, transaction.PaymentIntentRef)
	if err == nil {
		if markErr := r.transactions.MarkCompleted(ctx, transaction.ID); markErr != nil {
			r.logger.Printf("Released %s but could not mark transaction %s completed: %v",
				transaction.PaymentIntentRef, transaction.ID, markErr)
		}
		return
	}

	// An intent that was already canceled (or meanwhile captured) gateway-side
	// is settled as far as we are concerned
	if alreadySettled(ctx, r.gateway, transaction.PaymentIntentRef) {
		if markErr := r.transactions.MarkCompleted(ctx, transaction.ID); markErr != nil {
			r.logger.Printf("Could not mark settled transaction %s completed: %v", transaction.ID, markErr)
		}
		return
	}

	r.logger.Printf("Release retry for booking %s failed again: %v", transaction.BookingID, err)
	if recordErr := r.transactions.RecordRetryFailure(ctx, transaction.ID, err.Error()); recordErr != nil {
		r.logger.Printf("Could not record retry failure for transaction %s: %v", transaction.ID, recordErr)
	}
}

func alreadySettled(ctx context.Context, gateway payment.Gateway, ref string) bool {
	intent, err := gateway.Retrieve(ctx, ref)
	if err != nil {
		return false
	}
	return intent.Status == payment.IntentStatusCanceled || intent.Status == payment.IntentStatusSucceeded
}
