// Package pipeline contains the background workers that keep the read side
// of the marketplace current: the ledger event indexer and the cold-storage
// journal archiver.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/suibid/internal/auction"
	cacheredis "github.com/alanyoungcy/suibid/internal/cache/redis"
	"github.com/alanyoungcy/suibid/internal/domain"
	"github.com/alanyoungcy/suibid/internal/notify"
	"github.com/alanyoungcy/suibid/internal/platform/sui"
	"github.com/alanyoungcy/suibid/internal/trade"
)

// indexerLockKey is the distributed lock held by the running indexer so that
// an accidental double deployment cannot produce two writers.
const indexerLockKey = "indexer"

// EventSource fetches pages of ledger events for one watched module.
type EventSource interface {
	QueryModuleEvents(ctx context.Context, module string, cursor *sui.EventID, limit int) (sui.EventPage, error)
}

// ObjectSource reads current on-chain object state. The indexer uses it to
// hydrate projection metadata the event stream does not carry.
type ObjectSource interface {
	GetAuction(ctx context.Context, id string) (domain.AuctionProjection, error)
	GetTrade(ctx context.Context, id string) (domain.TradeProjection, error)
}

// IndexerConfig controls the polling behaviour of the indexer.
type IndexerConfig struct {
	PollInterval time.Duration
	PageSize     int
	LockTTL      time.Duration
}

// IndexerDeps bundles the stores and services the indexer writes to.
type IndexerDeps struct {
	Source   EventSource
	Objects  ObjectSource
	Store    domain.ProjectionStore
	Cursors  domain.CursorStore
	Journal  domain.EventJournal
	Bus      domain.UpdateBus
	Registry domain.EntityRegistry
	Board    domain.Leaderboard
	Locks    domain.LockManager
	Notifier *notify.Notifier
}

// Indexer is the sole writer of projections. It polls the ledger for new
// events per watched module, journals each one for replay detection, folds it
// into the Redis projections, and publishes the resulting delta on the update
// bus. The cursor is persisted only after a page has been fully processed, so
// a crash mid-page replays the page and the journal makes the replay a no-op.
type Indexer struct {
	deps   IndexerDeps
	cfg    IndexerConfig
	logger *slog.Logger
}

// NewIndexer creates a new Indexer.
func NewIndexer(deps IndexerDeps, cfg IndexerConfig, logger *slog.Logger) *Indexer {
	return &Indexer{
		deps:   deps,
		cfg:    cfg,
		logger: logger,
	}
}

// RunLoop acquires the indexer lock, drains once immediately, and then drains
// on every tick until the context is cancelled.
func (ix *Indexer) RunLoop(ctx context.Context) error {
	unlock, err := ix.deps.Locks.Acquire(ctx, indexerLockKey, ix.cfg.LockTTL)
	if err != nil {
		return fmt.Errorf("pipeline: acquire indexer lock: %w", err)
	}
	defer unlock()

	if err := ix.RunOnce(ctx); err != nil {
		ix.logger.Error("index run failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(ix.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			ix.logger.Info("indexer loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := ix.RunOnce(ctx); err != nil {
				ix.logger.Error("index run failed", slog.String("error", err.Error()))
			}
		}
	}
}

// RunOnce drains all watched modules to the head of their event streams.
func (ix *Indexer) RunOnce(ctx context.Context) error {
	for _, module := range sui.WatchedModules {
		if err := ix.drainModule(ctx, module); err != nil {
			return fmt.Errorf("pipeline: drain %s events: %w", module, err)
		}
	}
	return nil
}

// cursorSource names the cursor row for one watched module.
func cursorSource(module string) string {
	return "sui:" + module
}

// drainModule pages through new events for one module starting at the
// persisted cursor. A fetch or store failure returns before the cursor is
// advanced, leaving the next run to retry the same page.
func (ix *Indexer) drainModule(ctx context.Context, module string) error {
	raw, err := ix.deps.Cursors.Get(ctx, cursorSource(module))
	if err != nil {
		return fmt.Errorf("loading cursor: %w", err)
	}

	var cursor *sui.EventID
	if raw != "" {
		id, err := sui.ParseEventID(raw)
		if err != nil {
			return fmt.Errorf("parsing stored cursor %q: %w", raw, err)
		}
		cursor = &id
	}

	for {
		page, err := ix.deps.Source.QueryModuleEvents(ctx, module, cursor, ix.cfg.PageSize)
		if err != nil {
			return fmt.Errorf("querying events after %v: %w", cursor, err)
		}

		applied := 0
		for _, rawEv := range page.Data {
			ok, err := ix.handleEvent(ctx, rawEv)
			if err != nil {
				return err
			}
			if ok {
				applied++
			}
		}

		if page.NextCursor != nil {
			cursor = page.NextCursor
			if err := ix.deps.Cursors.Set(ctx, cursorSource(module), cursor.String()); err != nil {
				return fmt.Errorf("persisting cursor: %w", err)
			}
		}

		if applied > 0 {
			ix.logger.Info("events applied",
				slog.String("module", module),
				slog.Int("count", applied),
			)
		}

		// A page that claims more data but carries no cursor cannot be
		// advanced past; refetching it would spin on the same events.
		if !page.HasNextPage || page.NextCursor == nil {
			return nil
		}
	}
}

// handleEvent decodes, applies, publishes, and journals a single raw event.
// Undecodable events and invariant violations are logged and skipped; they
// must not stall the stream. Infrastructure failures are returned so the
// page is retried. The bool result reports whether the event was applied.
func (ix *Indexer) handleEvent(ctx context.Context, raw sui.RawEvent) (bool, error) {
	ev, err := sui.DecodeEvent(raw)
	if err != nil {
		ix.logger.Warn("skipping undecodable event",
			slog.String("tx", raw.ID.TxDigest),
			slog.String("type", raw.Type),
			slog.String("error", err.Error()),
		)
		return false, nil
	}

	seen, err := ix.deps.Journal.Applied(ctx, ev.Tx(), ev.Kind(), ev.Entity())
	if err != nil {
		return false, fmt.Errorf("checking journal for %s: %w", ev.Tx(), err)
	}
	if seen {
		ix.logger.Debug("event already applied",
			slog.String("tx", ev.Tx()),
			slog.String("kind", string(ev.Kind())),
		)
		return false, nil
	}

	delta, err := ix.apply(ctx, ev)
	if err != nil {
		if errors.Is(err, domain.ErrInvariantViolation) {
			ix.logger.Warn("skipping event that violates projection invariants",
				slog.String("tx", ev.Tx()),
				slog.String("kind", string(ev.Kind())),
				slog.String("entity", ev.Entity()),
			)
			return false, nil
		}
		return false, fmt.Errorf("applying event %s: %w", ev.Tx(), err)
	}

	buf, err := json.Marshal(delta)
	if err != nil {
		return false, fmt.Errorf("marshalling delta for %s: %w", ev.Entity(), err)
	}
	if err := ix.deps.Bus.Publish(ctx, cacheredis.EntityChannel(ev.Entity()), buf); err != nil {
		return false, fmt.Errorf("publishing delta for %s: %w", ev.Entity(), err)
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return false, fmt.Errorf("marshalling event %s: %w", ev.Tx(), err)
	}

	// The journal row is the commit marker. It lands only after apply and
	// publish succeeded, so a transient failure leaves the event un-journaled
	// and the page retry re-applies it. Event folds tolerate a re-apply after
	// a crash in this window: totals are absolute and terminal transitions
	// surface as invariant violations, which are skipped.
	if _, err := ix.deps.Journal.MarkApplied(ctx, domain.AppliedEvent{
		TxDigest:  ev.Tx(),
		Kind:      ev.Kind(),
		EntityID:  ev.Entity(),
		Payload:   payload,
		Timestamp: ev.At(),
	}); err != nil {
		return false, fmt.Errorf("journaling event %s: %w", ev.Tx(), err)
	}

	return true, nil
}

// apply dispatches the event to the matching fold and persists the result.
func (ix *Indexer) apply(ctx context.Context, ev domain.Event) (domain.Delta, error) {
	switch e := ev.(type) {
	case domain.BidPlaced:
		return ix.applyBidPlaced(ctx, e)
	case domain.AuctionEnded:
		return ix.applyAuctionEnded(ctx, e)
	default:
		return ix.applyTradeEvent(ctx, ev)
	}
}

func (ix *Indexer) applyBidPlaced(ctx context.Context, ev domain.BidPlaced) (domain.Delta, error) {
	a, err := ix.deps.Store.GetAuction(ctx, ev.EntityID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return domain.Delta{}, fmt.Errorf("loading auction %s: %w", ev.EntityID, err)
	}
	created := a.ID == ""

	pos, err := ix.deps.Store.GetPosition(ctx, ev.EntityID, ev.Bidder)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return domain.Delta{}, fmt.Errorf("loading position %s/%s: %w", ev.EntityID, ev.Bidder, err)
	}

	next, nextPos, delta, err := auction.ApplyBidPlaced(a, pos, ev)
	if err != nil {
		return domain.Delta{}, err
	}

	if created {
		next = ix.hydrateAuction(ctx, next)
		if err := ix.deps.Registry.Add(ctx, cacheredis.AuctionsSet, next.ID); err != nil {
			return domain.Delta{}, fmt.Errorf("registering auction %s: %w", next.ID, err)
		}
	}

	if err := ix.deps.Store.PutAuction(ctx, next); err != nil {
		return domain.Delta{}, fmt.Errorf("storing auction %s: %w", next.ID, err)
	}
	if err := ix.deps.Store.PutPosition(ctx, nextPos); err != nil {
		return domain.Delta{}, fmt.Errorf("storing position %s/%s: %w", next.ID, nextPos.Bidder, err)
	}
	return delta, nil
}

func (ix *Indexer) applyAuctionEnded(ctx context.Context, ev domain.AuctionEnded) (domain.Delta, error) {
	a, err := ix.deps.Store.GetAuction(ctx, ev.EntityID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return domain.Delta{}, fmt.Errorf("loading auction %s: %w", ev.EntityID, err)
	}

	next, delta, err := auction.ApplyAuctionEnded(a, ev)
	if err != nil {
		return domain.Delta{}, err
	}

	if err := ix.deps.Store.PutAuction(ctx, next); err != nil {
		return domain.Delta{}, fmt.Errorf("storing auction %s: %w", next.ID, err)
	}

	if next.HighestBidder != "" {
		if _, err := ix.deps.Board.AwardPoints(ctx, next.HighestBidder, next.HighestBid); err != nil {
			ix.logger.Warn("awarding settlement points failed",
				slog.String("auction_id", next.ID),
				slog.String("error", err.Error()),
			)
		}
		if err := ix.deps.Board.IncrementItems(ctx, next.HighestBidder, next.HighestBid); err != nil {
			ix.logger.Warn("updating winner stats failed",
				slog.String("auction_id", next.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	ix.notifyEvent(ctx, "auction_settled", "Auction settled",
		fmt.Sprintf("Auction %s settled at %d (winner %s)", next.ID, next.HighestBid, winnerLabel(next.HighestBidder)))

	return delta, nil
}

func (ix *Indexer) applyTradeEvent(ctx context.Context, ev domain.Event) (domain.Delta, error) {
	t, err := ix.deps.Store.GetTrade(ctx, ev.Entity())
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return domain.Delta{}, fmt.Errorf("loading trade %s: %w", ev.Entity(), err)
	}

	next, delta, err := trade.ApplyEvent(t, ev)
	if err != nil {
		return domain.Delta{}, err
	}

	if ev.Kind() == domain.EventTradeCreated {
		next = ix.hydrateTrade(ctx, next)
		if err := ix.deps.Registry.Add(ctx, cacheredis.TradesSet, next.ID); err != nil {
			return domain.Delta{}, fmt.Errorf("registering trade %s: %w", next.ID, err)
		}
	}

	if err := ix.deps.Store.PutTrade(ctx, next); err != nil {
		return domain.Delta{}, fmt.Errorf("storing trade %s: %w", next.ID, err)
	}

	if acc, ok := ev.(domain.OfferAccepted); ok {
		if offer := next.OfferAt(acc.OfferIndex); offer != nil {
			if err := ix.deps.Board.IncrementItems(ctx, offer.Buyer, 0); err != nil {
				ix.logger.Warn("updating buyer stats failed",
					slog.String("trade_id", next.ID),
					slog.String("error", err.Error()),
				)
			}
		}
		ix.notifyEvent(ctx, "offer_accepted", "Offer accepted",
			fmt.Sprintf("Trade %s resolved: offer %d accepted", next.ID, acc.OfferIndex))
	}

	return delta, nil
}

// hydrateAuction fills projection metadata from the on-chain object. The
// event stream has no auction creation event, so seller, minBid, and endTime
// only exist on chain. Hydration failure keeps the skeleton; the bid fields
// from the event stream are still correct.
func (ix *Indexer) hydrateAuction(ctx context.Context, a domain.AuctionProjection) domain.AuctionProjection {
	full, err := ix.deps.Objects.GetAuction(ctx, a.ID)
	if err != nil {
		ix.logger.Warn("auction hydration failed",
			slog.String("auction_id", a.ID),
			slog.String("error", err.Error()),
		)
		return a
	}
	a.ItemRef = full.ItemRef
	a.Seller = full.Seller
	a.MinBid = full.MinBid
	a.EndTime = full.EndTime
	return a
}

// hydrateTrade fills the seller item list from the on-chain object.
func (ix *Indexer) hydrateTrade(ctx context.Context, t domain.TradeProjection) domain.TradeProjection {
	full, err := ix.deps.Objects.GetTrade(ctx, t.ID)
	if err != nil {
		ix.logger.Warn("trade hydration failed",
			slog.String("trade_id", t.ID),
			slog.String("error", err.Error()),
		)
		return t
	}
	t.SellerItems = full.SellerItems
	return t
}

// notifyEvent forwards a settlement-class event to the notifier, if one is
// configured. Notification failure never fails the run.
func (ix *Indexer) notifyEvent(ctx context.Context, event, title, message string) {
	if ix.deps.Notifier == nil {
		return
	}
	if err := ix.deps.Notifier.Notify(ctx, event, title, message); err != nil {
		ix.logger.Warn("notification failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

func winnerLabel(addr string) string {
	if addr == "" {
		return "none"
	}
	return addr
}
