package report

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"backend-lanewatch/internal/shared/geo"
	"backend-lanewatch/pkg/e"
)

const defaultRollbackTimeout = 5 * time.Second

var (
	errReportNotCreated  = errors.New("report could not be created")
	errWarningNotCreated = errors.New("warning could not be created")
)

// Publisher fans a committed report out to the owner's live clients.
type Publisher interface {
	Broadcast(ctx context.Context, key string, payload []byte)
}

type Service struct {
	store           Store
	logger          *slog.Logger
	cache           Cache
	orphans         OrphanRecorder
	feed            Publisher
	now             func() time.Time
	rollbackTimeout time.Duration
}

type Option func(*Service)

func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

func WithOrphanRecorder(r OrphanRecorder) Option {
	return func(s *Service) { s.orphans = r }
}

func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.feed = p }
}

func WithRollbackTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.rollbackTimeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		store:           store,
		logger:          logger,
		now:             time.Now,
		rollbackTimeout: defaultRollbackTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateReport validates in and stores it with its warnings for userID.
// Each insert commits separately; if one fails, the inserts already made
// by this call are deleted again, newest first, and the insert error is
// returned as a data access fault.
func (s *Service) CreateReport(ctx context.Context, userID int64, in Report) (Report, error) {
	const op = "report.Service.CreateReport"

	if userID <= 0 {
		return Report{}, e.ErrUnauthorized
	}

	in.ID = 0
	in.UserID = userID
	now := s.now().UnixMilli()
	if in.CreatedAt == 0 {
		in.CreatedAt = now
	}
	if in.Warnings != nil {
		warnings := make([]Warning, len(in.Warnings))
		copy(warnings, in.Warnings)
		for i := range warnings {
			warnings[i].ID = 0
			warnings[i].ReportID = 0
			if warnings[i].CreatedAt == 0 {
				warnings[i].CreatedAt = now
			}
		}
		in.Warnings = warnings
	}

	if problems := ValidateReport(in); len(problems) > 0 {
		return Report{}, e.NewValidationError(problems...)
	}
	for _, w := range in.Warnings {
		if problems := ValidateWarning(w); len(problems) > 0 {
			return Report{}, e.NewValidationError(problems...)
		}
	}

	var j journal

	saved, err := s.store.InsertReport(ctx, in)
	if err == nil && saved.ID == 0 {
		err = errReportNotCreated
	}
	if err != nil {
		return Report{}, s.abort(ctx, op, userID, &j, err)
	}
	j.inserted(EntityReport, saved.ID)

	saved.Warnings = make([]Warning, 0, len(in.Warnings))
	for _, w := range in.Warnings {
		w.ReportID = saved.ID
		stored, err := s.store.InsertWarning(ctx, w)
		if err == nil && stored.ID == 0 {
			err = errWarningNotCreated
		}
		if err != nil {
			return Report{}, s.abort(ctx, op, userID, &j, err)
		}
		j.inserted(EntityWarning, stored.ID)
		saved.Warnings = append(saved.Warnings, stored)
	}

	saved.DistanceKm = distanceKm(saved)
	s.committed(ctx, saved)
	return saved, nil
}

// ListReports returns userID's reports, newest first.
func (s *Service) ListReports(ctx context.Context, userID int64) ([]Report, error) {
	const op = "report.Service.ListReports"

	if userID <= 0 {
		return nil, e.ErrUnauthorized
	}

	// the version is read before the store so a write that lands in between
	// makes the Set below a no-op
	var version int64
	cacheable := s.cache != nil
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, userID)
		if err != nil {
			s.logger.Warn("report cache read failed", slog.String("op", op), slog.Any("error", err))
		} else if ok {
			return cached, nil
		}
		if version, err = s.cache.Version(ctx, userID); err != nil {
			s.logger.Warn("report cache version read failed", slog.String("op", op), slog.Any("error", err))
			cacheable = false
		}
	}

	stored, err := s.store.ListReportsByOwner(ctx, userID)
	if err != nil {
		return nil, e.DataAccess(op, err)
	}

	reports := make([]Report, 0, len(stored))
	for _, r := range stored {
		if r.UserID != userID {
			continue
		}
		if r.Warnings == nil {
			r.Warnings = []Warning{}
		}
		r.DistanceKm = distanceKm(r)
		reports = append(reports, r)
	}
	sort.SliceStable(reports, func(a, b int) bool {
		return reports[a].CreatedAt > reports[b].CreatedAt
	})

	if cacheable {
		if err := s.cache.Set(ctx, userID, version, reports); err != nil {
			s.logger.Warn("report cache write failed", slog.String("op", op), slog.Any("error", err))
		}
	}
	return reports, nil
}

// abort undoes what j recorded and returns cause as a data access fault.
// Rollback failures are reported to operators, never to the caller.
// A list read while the inserts were visible may have been cached, so the
// owner's cache is dropped once anything was written.
func (s *Service) abort(ctx context.Context, op string, userID int64, j *journal, cause error) error {
	wrote := len(j.entries) > 0
	faults := s.rollback(ctx, j)
	if wrote {
		s.invalidate(context.WithoutCancel(ctx), userID)
	}
	s.logger.Warn("report create rolled back",
		slog.String("op", op),
		slog.Any("error", cause),
		slog.Int("orphaned", len(faults)),
	)
	return e.DataAccess(op, cause)
}

// rollback runs every compensation even when some fail. It detaches from
// ctx's cancellation so a caller timeout does not also block the cleanup.
func (s *Service) rollback(ctx context.Context, j *journal) []RollbackFault {
	pending := j.compensations()
	if len(pending) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.rollbackTimeout)
	defer cancel()

	var faults []RollbackFault
	for _, c := range pending {
		var err error
		switch c.Entity {
		case EntityWarning:
			err = s.store.DeleteWarning(ctx, c.ID)
		case EntityReport:
			err = s.store.DeleteReport(ctx, c.ID)
		}
		j.compensated(c)
		if err == nil {
			continue
		}

		fault := RollbackFault{Entity: c.Entity, ID: c.ID, Err: err}
		faults = append(faults, fault)
		s.logger.Error("CRITICAL: rollback action failed, orphaned record needs manual cleanup",
			slog.String("entity", string(c.Entity)),
			slog.Int64("id", c.ID),
			slog.Any("error", err),
		)
		if s.orphans != nil {
			if rerr := s.orphans.Record(ctx, fault); rerr != nil {
				s.logger.Error("orphan record failed", slog.Any("error", rerr), slog.String("fault", fault.Error()))
			}
		}
	}
	return faults
}

func (s *Service) committed(ctx context.Context, r Report) {
	s.invalidate(ctx, r.UserID)
	if s.feed != nil {
		payload, err := json.Marshal(r)
		if err != nil {
			s.logger.Warn("report feed encode failed", slog.Any("error", err))
			return
		}
		s.feed.Broadcast(ctx, strconv.FormatInt(r.UserID, 10), payload)
	}
}

func (s *Service) invalidate(ctx context.Context, userID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.logger.Warn("report cache invalidate failed", slog.Int64("user_id", userID), slog.Any("error", err))
	}
}

func distanceKm(r Report) float64 {
	if r.StartLat == nil || r.StartLng == nil || r.EndLat == nil || r.EndLng == nil {
		return 0
	}
	return geo.HaversineKm(*r.StartLat, *r.StartLng, *r.EndLat, *r.EndLng)
}
