package changehistory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

const (
	defaultListPageSize = 100
	maxListPageSize     = 500
)

// UseCase は変更履歴ユースケースの公開インターフェースです。
type UseCase interface {
	Record(ctx context.Context, in RecordInput) ([]Event, error)
	List(ctx context.Context, in ListInput) ([]Event, error)
}

// Service は変更検知と履歴の追記をまとめます。
type Service struct {
	repo   Repository
	clock  Clock
	tx     TransactionManager
	newID  func() string
	logger *zap.Logger
}

// Option は Service の任意設定です。
type Option func(*Service)

// WithLogger はロガーを設定します。
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithIDGenerator は履歴 ID の採番方法を差し替えます。
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// NewService は Service を生成します。
func NewService(repo Repository, clock Clock, tx TransactionManager, opts ...Option) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	s := &Service{
		repo:   repo,
		clock:  clock,
		tx:     tx,
		newID:  uuid.NewString,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordInput は変更検知の入力です。
type RecordInput struct {
	EmployeeID    string
	Previous      Snapshot
	Current       Snapshot
	EffectiveDate time.Time
}

// ListInput は履歴一覧取得の入力です。
type ListInput struct {
	EmployeeID string
	ChangeType *ChangeType
	PageSize   int
}

// Record は新旧スナップショットの差分から変更履歴を生成し追記します。
func (s *Service) Record(ctx context.Context, in RecordInput) ([]Event, error) {
	employeeID := strings.TrimSpace(in.EmployeeID)
	if employeeID == "" {
		return nil, ErrInvalidEmployeeID
	}
	if in.EffectiveDate.IsZero() {
		return nil, ErrInvalidEffectiveAt
	}

	events := Detect(in.Previous, in.Current, in.EffectiveDate)
	if len(events) == 0 {
		return events, nil
	}

	now := s.clock.Now()
	for i := range events {
		events[i].ID = s.newID()
		events[i].EmployeeID = employeeID
		events[i].CreatedAt = now
	}

	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		return s.repo.Append(txCtx, events)
	}); err != nil {
		return nil, fmt.Errorf("changehistory: append: %w", err)
	}

	for _, e := range events {
		s.logger.Info("employee change recorded",
			zap.String("employee_id", employeeID),
			zap.String("change_type", string(e.ChangeType)),
			zap.Strings("notification_forms", e.NotificationForms),
		)
	}

	return events, nil
}

// List は従業員の変更履歴を新しい順に返します。
func (s *Service) List(ctx context.Context, in ListInput) ([]Event, error) {
	employeeID := strings.TrimSpace(in.EmployeeID)
	if employeeID == "" {
		return nil, ErrInvalidEmployeeID
	}
	if in.ChangeType != nil && !IsValidChangeType(*in.ChangeType) {
		return nil, ErrInvalidChangeType
	}

	limit := in.PageSize
	switch {
	case limit <= 0:
		limit = defaultListPageSize
	case limit > maxListPageSize:
		return nil, ErrInvalidPageSize
	}

	var events []Event
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.repo.ListByEmployee(txCtx, ListFilter{
			EmployeeID: employeeID,
			ChangeType: in.ChangeType,
			Limit:      limit,
		})
		if err != nil {
			return err
		}
		events = found
		return nil
	}); err != nil {
		return nil, err
	}

	return events, nil
}
