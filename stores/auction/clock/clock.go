package clock

import (
	"container/heap"
	"sync"
	"time"

	"github.com/openmint/goapi/base/ctx"
	"github.com/openmint/goapi/base/goroutine"
	"github.com/openmint/goapi/base/log"
	"github.com/openmint/goapi/base/metrics"
	"github.com/openmint/goapi/domain"
	"github.com/openmint/goapi/domain/auction"
	"github.com/openmint/goapi/domain/market"
)

const (
	defaultScanInterval = 30 * time.Second
	defaultScanBatch    = int32(500)
)

var timeNow = time.Now

type entry struct {
	id      auction.Id
	endTime time.Time
}

type deadlineHeap []entry

func (h deadlineHeap) Len() int            { return len(h) }
func (h deadlineHeap) Less(i, j int) bool  { return h[i].endTime.Before(h[j].endTime) }
func (h deadlineHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *deadlineHeap) Push(x interface{}) { *h = append(*h, x.(entry)) }
func (h *deadlineHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

type ClockCfg struct {
	AuctionRepo  auction.Repo
	MarketUC     market.UseCase
	ScanInterval time.Duration
	ScanBatch    int32
	Metrics      metrics.Service
}

// Clock triggers settlement of expired auctions. It keeps the deadlines of
// known open auctions in a heap for timely firing and rescans the store
// periodically, so a restarted or lagging instance still converges. Firing is
// safe to duplicate because settlement is idempotent.
type Clock struct {
	auctionRepo  auction.Repo
	marketUC     market.UseCase
	scanInterval time.Duration
	scanBatch    int32
	met          metrics.Service

	mu      sync.Mutex
	heap    deadlineHeap
	tracked map[auction.Id]struct{}
	wake    chan struct{}
}

func New(cfg *ClockCfg) *Clock {
	interval := cfg.ScanInterval
	if interval <= 0 {
		interval = defaultScanInterval
	}
	batch := cfg.ScanBatch
	if batch <= 0 {
		batch = defaultScanBatch
	}
	met := cfg.Metrics
	if met == nil {
		met = metrics.New("auction_clock")
	}
	return &Clock{
		auctionRepo:  cfg.AuctionRepo,
		marketUC:     cfg.MarketUC,
		scanInterval: interval,
		scanBatch:    batch,
		met:          met,
		tracked:      map[auction.Id]struct{}{},
		wake:         make(chan struct{}, 1),
	}
}

// Track registers an auction deadline. Tracking an already known auction is a
// no-op.
func (cl *Clock) Track(id auction.Id, endTime time.Time) {
	cl.mu.Lock()
	if _, ok := cl.tracked[id]; ok {
		cl.mu.Unlock()
		return
	}
	cl.tracked[id] = struct{}{}
	heap.Push(&cl.heap, entry{id: id, endTime: endTime})
	cl.mu.Unlock()

	select {
	case cl.wake <- struct{}{}:
	default:
	}
}

func (cl *Clock) Run(c ctx.Ctx) {
	goroutine.RecoverableGo(func() {
		cl.scan(c)
		cl.loop(c)
	})
}

func (cl *Clock) loop(c ctx.Ctx) {
	rescan := time.NewTicker(cl.scanInterval)
	defer rescan.Stop()

	for {
		timer := time.NewTimer(cl.untilNext(timeNow()))
		select {
		case <-c.Done():
			timer.Stop()
			return
		case <-cl.wake:
		case <-rescan.C:
			cl.scan(c)
		case <-timer.C:
		}
		timer.Stop()

		cl.fireDue(c, timeNow())
	}
}

// untilNext returns how long to sleep before the earliest known deadline,
// capped by the rescan interval
func (cl *Clock) untilNext(now time.Time) time.Duration {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	if len(cl.heap) == 0 {
		return cl.scanInterval
	}
	d := cl.heap[0].endTime.Sub(now)
	if d < 0 {
		return 0
	}
	if d > cl.scanInterval {
		return cl.scanInterval
	}
	return d
}

// scan loads open auctions and tracks their deadlines
func (cl *Clock) scan(c ctx.Ctx) {
	defer cl.met.BumpTime("scan.time").End()

	auctions, err := cl.auctionRepo.FindAll(c,
		auction.WithStatuses(auction.StatusOpen),
		auction.WithSortByEndTime(),
		auction.WithPagination(0, cl.scanBatch),
	)
	if err != nil {
		cl.met.BumpSum("scan.err", 1)
		c.WithField("err", err).Error("auctionRepo.FindAll failed")
		return
	}

	for _, au := range auctions {
		cl.Track(au.AuctionId, au.EndTime)
	}
}

// fireDue settles every tracked auction whose deadline has passed
func (cl *Clock) fireDue(c ctx.Ctx, now time.Time) {
	for {
		cl.mu.Lock()
		if len(cl.heap) == 0 || cl.heap[0].endTime.After(now) {
			cl.mu.Unlock()
			return
		}
		e := heap.Pop(&cl.heap).(entry)
		delete(cl.tracked, e.id)
		cl.mu.Unlock()

		if _, err := cl.marketUC.SettleAuction(c, e.id); err != nil {
			// conflicts mean another instance won the settlement race
			if err != domain.ErrConflict && err != domain.ErrStaleWrite {
				cl.met.BumpSum("settle.err", 1)
				c.WithFields(log.Fields{
					"err":       err,
					"auctionId": e.id,
				}).Error("SettleAuction failed")
			}
		}
	}
}
