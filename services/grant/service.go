package grant

import (
	"context"
	"errors"
	"sort"
	"time"

	"campaign-rewards/pkg/config"
	"campaign-rewards/pkg/db"
	"campaign-rewards/pkg/db/option"
	"campaign-rewards/pkg/errutil"
	"campaign-rewards/pkg/logger"
	"campaign-rewards/pkg/metrics"
	"campaign-rewards/pkg/money"
	"campaign-rewards/pkg/period"
	"campaign-rewards/pkg/repository"
	"campaign-rewards/pkg/sequence"
	"campaign-rewards/services/contribution"
	"campaign-rewards/services/leaderboard"

	"github.com/bwmarrin/snowflake"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("campaign-rewards/services/grant")

func defaultPeriods() map[period.Type]config.PeriodConfig {
	return map[period.Type]config.PeriodConfig{
		period.Daily:  {Winners: 10, BasePool: 2_000_000},
		period.Weekly: {Winners: 5, BasePool: 10_000_000},
	}
}

type Service struct {
	db           *gorm.DB
	node         *snowflake.Node
	seq          sequence.Generator
	leaderboard  *leaderboard.Service
	contribution *contribution.Service
	lock         *periodLock
	currency     string
	periods      map[period.Type]config.PeriodConfig
	now          func() time.Time

	grant  repository.Repository[Grant]
	closes repository.Repository[PeriodClose]
}

type ServiceParams struct {
	fx.In

	DB           *gorm.DB
	Node         *snowflake.Node
	Leaderboard  *leaderboard.Service
	Contribution *contribution.Service
	Config       *config.Config     `optional:"true"`
	Redis        *redis.Client      `optional:"true"`
	Seq          sequence.Generator `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	periods := defaultPeriods()
	currency := "NGN"
	lockTTL := 2 * time.Minute

	if p.Config != nil {
		e := p.Config.Engine
		if e.CurrencyCode != "" {
			currency = e.CurrencyCode
		}
		if e.PeriodCloseLockTTL > 0 {
			lockTTL = e.PeriodCloseLockTTL
		}
		merge := func(t period.Type, c config.PeriodConfig) {
			cur := periods[t]
			if c.Winners > 0 {
				cur.Winners = c.Winners
			}
			if c.BasePool > 0 {
				cur.BasePool = c.BasePool
			}
			cur.CloseCron = c.CloseCron
			periods[t] = cur
		}
		merge(period.Daily, e.Daily)
		merge(period.Weekly, e.Weekly)
	}

	return &Service{
		db:           p.DB,
		node:         p.Node,
		seq:          p.Seq,
		leaderboard:  p.Leaderboard,
		contribution: p.Contribution,
		lock:         &periodLock{rdb: p.Redis, ttl: lockTTL},
		currency:     currency,
		periods:      periods,
		now:          func() time.Time { return time.Now().UTC() },
		grant:        repository.ProvideStore[Grant](p.DB),
		closes:       repository.ProvideStore[PeriodClose](p.DB),
	}
}

type IssueRequest struct {
	UserID string
	Window period.Window
	Rank   int
	Amount int64
}

// Issue creates a grant inside tx. A second grant for the same user and
// period fails with DuplicateGrant, checked by the unique index on insert.
func (s *Service) Issue(ctx context.Context, tx *gorm.DB, req IssueRequest) (*Grant, error) {
	ctx, span := tracer.Start(ctx, "grant.Issue")
	defer span.End()

	if req.Amount <= 0 {
		return nil, errutil.InvalidAmount("grant amount must be greater than zero")
	}
	if !req.Window.Type.Valid() {
		return nil, errutil.InvalidPeriod("unknown period type " + string(req.Window.Type))
	}
	if tx == nil {
		tx = s.db
	}

	id := s.node.Generate()
	reference := "GRT-" + id.String()
	if s.seq != nil {
		if code, err := s.seq.NextGrantCode(ctx); err == nil {
			reference = code
		}
	}

	g := &Grant{
		ID:           id.String(),
		Reference:    reference,
		UserID:       req.UserID,
		PeriodType:   req.Window.Type,
		PeriodStart:  req.Window.Start.UTC(),
		PeriodEnd:    req.Window.End.UTC(),
		Rank:         req.Rank,
		Amount:       req.Amount,
		CurrencyCode: s.currency,
		Status:       StatusIssued,
		IssuedAt:     s.now(),
	}

	if err := s.grant.WithTrx(tx).Create(ctx, g); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, errutil.DuplicateGrant(err)
		}
		return nil, errutil.StoreUnavailable(err)
	}

	metrics.GrantsIssued.WithLabelValues(string(g.PeriodType)).Inc()
	return g, nil
}

// Claim moves a grant from issued to claimed with a compare-and-set, so of
// any number of concurrent or retried calls exactly one succeeds.
func (s *Service) Claim(ctx context.Context, grantID, requestingUserID string) (*Grant, error) {
	ctx, span := tracer.Start(ctx, "grant.Claim")
	defer span.End()

	zapLog := logger.FromContext(ctx).With(zap.String("grant_id", grantID), zap.String("user_id", requestingUserID))

	g, err := s.get(ctx, grantID)
	if err != nil {
		return nil, err
	}

	if g.UserID != requestingUserID {
		metrics.GrantsClaimed.WithLabelValues("forbidden").Inc()
		zapLog.Warn("claim by non-owner rejected")
		return nil, errutil.NotOwner("grant belongs to another user")
	}

	now := s.now()
	res := s.db.WithContext(ctx).
		Model(&Grant{}).
		Where("id = ? AND status = ?", grantID, StatusIssued).
		Updates(map[string]any{"status": StatusClaimed, "claimed_at": now})
	if res.Error != nil {
		zapLog.Error("failed to claim grant", zap.Error(res.Error))
		return nil, errutil.StoreUnavailable(res.Error)
	}

	if res.RowsAffected == 0 {
		metrics.GrantsClaimed.WithLabelValues("already_claimed").Inc()
		return nil, errutil.AlreadyClaimed(grantID)
	}

	metrics.GrantsClaimed.WithLabelValues("claimed").Inc()
	zapLog.Info("grant claimed", zap.Int64("amount", g.Amount))

	return s.get(ctx, grantID)
}

func (s *Service) get(ctx context.Context, grantID string) (*Grant, error) {
	if grantID == "" {
		return nil, errutil.GrantNotFound(grantID)
	}

	g, err := s.grant.FindOne(ctx, &Grant{ID: grantID})
	if err != nil {
		return nil, errutil.StoreUnavailable(err)
	}
	if g == nil {
		return nil, errutil.GrantNotFound(grantID)
	}
	return g, nil
}

// Get returns a grant owned by requestingUserID.
func (s *Service) Get(ctx context.Context, grantID, requestingUserID string) (*Grant, error) {
	g, err := s.get(ctx, grantID)
	if err != nil {
		return nil, err
	}
	if g.UserID != requestingUserID {
		return nil, errutil.NotOwner("grant belongs to another user")
	}
	return g, nil
}

// ClosePeriod ranks an ended period and issues grants to its winners. It runs
// at most once per period: a repeated call returns the grants already issued.
func (s *Service) ClosePeriod(ctx context.Context, periodType string, periodStart time.Time) ([]*Grant, error) {
	ctx, span := tracer.Start(ctx, "grant.ClosePeriod")
	defer span.End()

	w, err := s.leaderboard.Window(periodType, periodStart)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("period.type", string(w.Type)), attribute.String("period.start", w.Start.Format(time.RFC3339)))
	zapLog := logger.FromContext(ctx).With(zap.String("period_type", string(w.Type)), zap.Time("period_start", w.Start))

	if !w.Ended(s.now()) {
		metrics.PeriodCloses.WithLabelValues(string(w.Type), "open").Inc()
		return nil, errutil.PeriodOpen(string(w.Type))
	}

	token := s.node.Generate().String()
	ok, err := s.lock.acquire(ctx, w, token)
	if err != nil {
		zapLog.Warn("period lock unavailable, relying on unique index", zap.Error(err))
	} else if !ok {
		metrics.PeriodCloses.WithLabelValues(string(w.Type), "locked").Inc()
		return nil, errutil.PeriodClosing(string(w.Type))
	} else {
		defer func() {
			if err := s.lock.release(context.WithoutCancel(ctx), w, token); err != nil {
				zapLog.Warn("failed to release period lock", zap.Error(err))
			}
		}()
	}

	existing, err := s.closes.FindOne(ctx, &PeriodClose{PeriodType: w.Type, PeriodStart: w.Start})
	if err != nil {
		return nil, errutil.StoreUnavailable(err)
	}
	if existing != nil {
		metrics.PeriodCloses.WithLabelValues(string(w.Type), "already_closed").Inc()
		zapLog.Info("period already closed")
		return s.GrantsForPeriod(ctx, w)
	}

	lb, err := s.leaderboard.Compute(ctx, w)
	if err != nil {
		return nil, err
	}

	cfg := s.periods[w.Type]
	winners := lb.Top(cfg.Winners)

	totals, err := s.contribution.SumAllocations(ctx, w.Start, w.End)
	if err != nil {
		return nil, err
	}
	contributed := totals.Daily
	if w.Type == period.Weekly {
		contributed = totals.Weekly
	}
	budget := cfg.BasePool + contributed

	weights := make([]int64, len(winners))
	for i, e := range winners {
		weights[i] = int64(cfg.Winners - e.Rank + 1)
	}
	amounts := money.Distribute(budget, weights)

	closeRow := &PeriodClose{
		ID:              s.node.Generate().String(),
		PeriodType:      w.Type,
		PeriodStart:     w.Start,
		PeriodEnd:       w.End,
		BasePool:        cfg.BasePool,
		ContributedPool: contributed,
		Budget:          budget,
		Winners:         len(winners),
		CurrencyCode:    s.currency,
		ClosedAt:        s.now(),
	}

	var grants []*Grant
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.closes.WithTrx(tx).Create(ctx, closeRow); err != nil {
			if db.IsUniqueViolation(err) {
				return errutil.DuplicateGrant(err)
			}
			return errutil.StoreUnavailable(err)
		}

		for i, e := range winners {
			if amounts[i] <= 0 {
				continue
			}
			g, err := s.Issue(ctx, tx, IssueRequest{UserID: e.UserID, Window: w, Rank: e.Rank, Amount: amounts[i]})
			if err != nil {
				return err
			}
			grants = append(grants, g)
		}
		return nil
	})
	if errors.Is(err, errutil.ErrDuplicateGrant) {
		metrics.PeriodCloses.WithLabelValues(string(w.Type), "already_closed").Inc()
		zapLog.Info("period closed concurrently, returning issued grants")
		return s.GrantsForPeriod(ctx, w)
	}
	if err != nil {
		metrics.PeriodCloses.WithLabelValues(string(w.Type), "failed").Inc()
		zapLog.Error("failed to close period", zap.Error(err))
		return nil, err
	}

	metrics.PeriodCloses.WithLabelValues(string(w.Type), "closed").Inc()
	zapLog.Info("period closed",
		zap.Int64("budget", budget),
		zap.Int64("contributed_pool", contributed),
		zap.Int("grants", len(grants)),
	)

	return grants, nil
}

// GrantsForPeriod returns the grants of a period ordered by rank.
func (s *Service) GrantsForPeriod(ctx context.Context, w period.Window) ([]*Grant, error) {
	grants, err := s.grant.Find(ctx, &Grant{PeriodType: w.Type, PeriodStart: w.Start.UTC()})
	if err != nil {
		return nil, errutil.StoreUnavailable(err)
	}
	sort.Slice(grants, func(i, j int) bool { return grants[i].Rank < grants[j].Rank })
	return grants, nil
}

// ListForUser returns the user's grants, newest period first.
func (s *Service) ListForUser(ctx context.Context, userID, status string) ([]*Grant, error) {
	ctx, span := tracer.Start(ctx, "grant.ListForUser")
	defer span.End()

	query := &Grant{UserID: userID}
	if status != "" {
		st, ok := ParseStatus(status)
		if !ok {
			return nil, errutil.BadRequest("unknown grant status "+status, nil)
		}
		query.Status = st
	}

	grants, err := s.grant.Find(ctx, query, option.WithSortBy(option.QuerySortBy{
		SortBy:  "period_start",
		OrderBy: "desc",
		Allow:   map[string]bool{"period_start": true},
	}))
	if err != nil {
		logger.FromContext(ctx).Error("failed to list grants", zap.String("user_id", userID), zap.Error(err))
		return nil, errutil.StoreUnavailable(err)
	}

	return grants, nil
}
