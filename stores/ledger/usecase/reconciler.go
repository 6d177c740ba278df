package usecase

import (
	"time"

	"github.com/viney-shih/goroutines"

	"github.com/openmint/goapi/base/backoff"
	"github.com/openmint/goapi/base/ctx"
	"github.com/openmint/goapi/base/goroutine"
	"github.com/openmint/goapi/base/log"
	"github.com/openmint/goapi/base/metrics"
	"github.com/openmint/goapi/base/ptr"
	"github.com/openmint/goapi/domain/ledger"
	"github.com/openmint/goapi/domain/market"
	"github.com/openmint/goapi/service/alert"
)

const (
	defaultPollInterval = 15 * time.Second
	defaultMaxRetries   = 10
	defaultBatchSize    = int32(100)
	defaultWorkers      = 8
)

var timeNow = time.Now

type ReconcilerCfg struct {
	PendingWriteRepo ledger.PendingWriteRepo
	LedgerClient     ledger.Client
	MarketUC         market.UseCase
	Alert            alert.Service
	Metrics          metrics.Service
	PollInterval     time.Duration
	MaxRetries       int
	BatchSize        int32
	Workers          int
}

// Reconciler drives every pending ledger write to a terminal state. It polls
// the ledger for each outstanding write, applies confirmations through the
// market usecase and fails writes that exhaust their retry budget. Restarting
// the process loses nothing: the scan picks pending writes straight from the
// store.
type Reconciler struct {
	pendingWriteRepo ledger.PendingWriteRepo
	ledgerClient     ledger.Client
	marketUC         market.UseCase
	alert            alert.Service
	met              metrics.Service
	pollInterval     time.Duration
	maxRetries       int
	batchSize        int32
	workers          int
}

func New(cfg *ReconcilerCfg) *Reconciler {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	met := cfg.Metrics
	if met == nil {
		met = metrics.New("reconciler")
	}
	al := cfg.Alert
	if al == nil {
		al = alert.NewNop()
	}
	return &Reconciler{
		pendingWriteRepo: cfg.PendingWriteRepo,
		ledgerClient:     cfg.LedgerClient,
		marketUC:         cfg.MarketUC,
		alert:            al,
		met:              met,
		pollInterval:     pollInterval,
		maxRetries:       maxRetries,
		batchSize:        batchSize,
		workers:          workers,
	}
}

func (r *Reconciler) Run(c ctx.Ctx) {
	goroutine.RecoverableGo(func() {
		bo := backoff.NewLinear(r.pollInterval, r.pollInterval)
		for {
			if err := bo.Backoff(c); err != nil {
				return
			}
			r.ReconcileOnce(c)
		}
	})
}

// ReconcileOnce scans outstanding writes and polls the ledger for each
func (r *Reconciler) ReconcileOnce(c ctx.Ctx) {
	defer r.met.BumpTime("reconcile.time").End()

	writes, err := r.pendingWriteRepo.FindAll(c,
		ledger.PendingWriteWithStatus(ledger.WriteStatusPending),
		ledger.PendingWriteWithLimit(r.batchSize),
	)
	if err != nil {
		r.met.BumpSum("scan.err", 1)
		c.WithField("err", err).Error("pendingWriteRepo.FindAll failed")
		return
	}
	if len(writes) == 0 {
		return
	}

	r.met.BumpAvg("pending.count", float64(len(writes)))

	b := goroutines.NewBatch(r.workers, goroutines.WithBatchSize(len(writes)))
	defer b.Close()
	for i := 0; i < len(writes); i++ {
		write := writes[i]
		b.Queue(func() (interface{}, error) {
			r.reconcile(c, write)
			return nil, nil
		})
	}
	b.QueueComplete()
	for range b.Results() {
	}
}

func (r *Reconciler) reconcile(c ctx.Ctx, write *ledger.PendingWrite) {
	c = ctx.WithValues(c, map[string]interface{}{
		"ref":    write.Ref,
		"intent": write.Intent.Type,
	})

	status, err := r.ledgerClient.PollStatus(c, write.Ref)
	if err != nil {
		c.WithField("err", err).Warn("ledgerClient.PollStatus failed")
		r.bumpRetry(c, write)
		return
	}

	switch status.State {
	case ledger.WriteStatusConfirmed:
		if err := r.marketUC.ApplyConfirmation(c, write.Ref, status.TxHash); err != nil {
			r.met.BumpSum("confirm.err", 1)
			c.WithField("err", err).Error("ApplyConfirmation failed")
			return
		}
		r.met.BumpSum("confirmed", 1)
	case ledger.WriteStatusFailed:
		if err := r.marketUC.FailPendingWrite(c, write.Ref, status.Reason); err != nil {
			c.WithField("err", err).Error("FailPendingWrite failed")
			return
		}
		r.met.BumpSum("failed", 1)
	case ledger.WriteStatusPending:
		r.bumpRetry(c, write)
	default:
		c.WithField("state", status.State).Error("unknown ledger state")
	}
}

// bumpRetry counts one more fruitless poll and gives up once the budget is
// exhausted, reverting the locked entity and paging the operators
func (r *Reconciler) bumpRetry(c ctx.Ctx, write *ledger.PendingWrite) {
	retries := write.RetryCount + 1
	if retries < r.maxRetries {
		now := timeNow()
		err := r.pendingWriteRepo.Update(c, write.Ref, ledger.PendingWritePatchable{
			RetryCount: ptr.Int(retries),
			UpdatedAt:  &now,
		})
		if err != nil {
			c.WithField("err", err).Error("pendingWriteRepo.Update failed")
		}
		return
	}

	reason := "retry budget exhausted"
	if err := r.marketUC.FailPendingWrite(c, write.Ref, reason); err != nil {
		c.WithField("err", err).Error("FailPendingWrite failed")
		return
	}

	r.met.BumpSum("exhausted", 1)
	c.WithFields(log.Fields{
		"ref":        write.Ref,
		"retryCount": retries,
	}).Error("pending write abandoned")

	r.alert.Notify(c, "Settlement failure",
		"a ledger write never reached a terminal state and was reverted",
		map[string]string{
			"ref":    write.Ref.String(),
			"intent": string(write.Intent.Type),
			"asset":  write.Intent.AssetId().String(),
		})
}
