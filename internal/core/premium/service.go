package premium

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReasonResolved は不足が解消された際に記録する理由です。
const ReasonResolved = "給与総額が本人負担保険料以上となったため解消"

// ShortfallReason は不足発生時に記録する理由を組み立てます。
func ShortfallReason(totalSalary, employeeBornePremium int64) string {
	return fmt.Sprintf("給与総額（%d）が本人負担保険料（%d）に満たないため未徴収額が発生", totalSalary, employeeBornePremium)
}

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

// UseCase は未徴収保険料ユースケースの公開インターフェースです。
type UseCase interface {
	Reconcile(ctx context.Context, in ReconcileInput) (Outcome, error)
	List(ctx context.Context, in ListInput) ([]*Record, error)
	ObserveUnresolved(ctx context.Context, year *int) (<-chan Update, error)
	MarkResolved(ctx context.Context, ids []string) (int64, error)
	DeleteAllForEmployee(ctx context.Context, employeeID string) (int64, error)
}

// Service は給与計算ごとの未徴収保険料アラートを管理します。
type Service struct {
	repo     Repository
	clock    Clock
	tx       TransactionManager
	notifier Notifier
	newID    func() string
	logger   *zap.Logger
}

// Option は Service の任意設定です。
type Option func(*Service)

// WithNotifier は変更通知の配信先を設定します。
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithLogger はロガーを設定します。
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithIDGenerator はレコード ID の採番方法を差し替えます。
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// NewService は Service を生成します。Notifier 未指定時はプロセス内通知を用います。
func NewService(repo Repository, clock Clock, tx TransactionManager, opts ...Option) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	s := &Service{
		repo:     repo,
		clock:    clock,
		tx:       tx,
		notifier: NewLocalNotifier(),
		newID:    uuid.NewString,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ReconcileInput は一回の給与計算における従業員・年月の集計値です。
type ReconcileInput struct {
	EmployeeID           string
	Year                 int
	Month                int
	TotalSalary          int64
	EmployeeBornePremium int64
}

// ListInput は一覧取得の任意フィルタです。指定したものは AND で結合されます。
type ListInput struct {
	EmployeeID *string
	Year       *int
	Resolved   *bool
}

// Update は ObserveUnresolved が配信する未解消レコードの全量です。
type Update struct {
	Records []*Record
	Err     error
}

// Reconcile は給与総額と本人負担保険料を比較し、未徴収アラートを作成・更新・解消します。
// 同じ入力で何度呼んでも最終的なストアの状態は変わりません。
func (s *Service) Reconcile(ctx context.Context, in ReconcileInput) (Outcome, error) {
	key, err := normalizeKey(in.EmployeeID, in.Year, in.Month)
	if err != nil {
		return "", err
	}
	if in.TotalSalary < 0 || in.EmployeeBornePremium < 0 {
		return "", ErrInvalidAmount
	}

	outcome := OutcomeUnchanged
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByKey(txCtx, key)
		if err != nil && !errors.Is(err, ErrRecordNotFound) {
			return err
		}

		now := s.clock.Now()

		if in.TotalSalary < in.EmployeeBornePremium {
			record := &Record{
				EmployeeID: key.EmployeeID,
				Year:       key.Year,
				Month:      key.Month,
				Amount:     in.EmployeeBornePremium - in.TotalSalary,
				Reason:     ShortfallReason(in.TotalSalary, in.EmployeeBornePremium),
				Resolved:   false,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if existing != nil {
				record.ID = existing.ID
			} else {
				record.ID = s.newID()
			}
			if _, err := s.repo.Upsert(txCtx, record); err != nil {
				return err
			}
			outcome = OutcomeRecorded
			return nil
		}

		if existing == nil {
			return nil
		}

		existing.Amount = 0
		existing.Resolved = true
		existing.Reason = ReasonResolved
		existing.UpdatedAt = now
		if _, err := s.repo.Upsert(txCtx, existing); err != nil {
			return err
		}
		outcome = OutcomeResolved
		return nil
	}); err != nil {
		return "", err
	}

	if outcome != OutcomeUnchanged {
		s.logger.Info("uncollected premium reconciled",
			zap.String("employee_id", key.EmployeeID),
			zap.Int("year", key.Year),
			zap.Int("month", key.Month),
			zap.String("outcome", string(outcome)),
		)
		s.publish(ctx, key)
	}

	return outcome, nil
}

// List は全件を取得したうえで指定されたフィルタを適用します。
func (s *Service) List(ctx context.Context, in ListInput) ([]*Record, error) {
	var employeeID *string
	if in.EmployeeID != nil {
		trimmed := strings.TrimSpace(*in.EmployeeID)
		if trimmed == "" {
			return nil, ErrInvalidEmployeeID
		}
		employeeID = &trimmed
	}

	var records []*Record
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.repo.List(txCtx, ListFilter{EmployeeID: employeeID})
		if err != nil {
			return err
		}
		records = found
		return nil
	}); err != nil {
		return nil, err
	}

	filtered := make([]*Record, 0, len(records))
	for _, r := range records {
		if employeeID != nil && r.EmployeeID != *employeeID {
			continue
		}
		if in.Year != nil && r.Year != *in.Year {
			continue
		}
		if in.Resolved != nil && r.Resolved != *in.Resolved {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered, nil
}

// ObserveUnresolved は未解消かつ不足額のあるレコードの全量を、初回と変更のたびに配信します。
// year を指定するとその年のレコードに絞り込みます。ctx の終了でチャネルは閉じられます。
func (s *Service) ObserveUnresolved(ctx context.Context, year *int) (<-chan Update, error) {
	keys, err := s.notifier.Subscribe(ctx)
	if err != nil {
		return nil, fmt.Errorf("premium: subscribe: %w", err)
	}

	out := make(chan Update, 1)
	go func() {
		defer close(out)

		emit := func() bool {
			records, err := s.unresolved(ctx, year)
			select {
			case out <- Update{Records: records, Err: err}:
			case <-ctx.Done():
				return false
			}
			if err != nil {
				s.logger.Warn("uncollected premium feed stopped", zap.Error(err))
				return false
			}
			return true
		}

		if !emit() {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case key, ok := <-keys:
				if !ok {
					return
				}
				if year != nil && key.Year != 0 && key.Year != *year {
					continue
				}
				if !emit() {
					return
				}
			}
		}
	}()

	return out, nil
}

func (s *Service) unresolved(ctx context.Context, year *int) ([]*Record, error) {
	var records []*Record
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.repo.ListUnresolved(txCtx)
		if err != nil {
			return err
		}
		records = found
		return nil
	}); err != nil {
		return nil, err
	}

	filtered := make([]*Record, 0, len(records))
	for _, r := range records {
		if !r.IsOutstanding() {
			continue
		}
		if year != nil && r.Year != *year {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered, nil
}

// MarkResolved は指定レコードを手動で解消済みにします。金額は変更しません。
func (s *Service) MarkResolved(ctx context.Context, ids []string) (int64, error) {
	normalized := normalizeIDs(ids)
	if len(normalized) == 0 {
		return 0, ErrInvalidIDs
	}

	var affected int64
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		n, err := s.repo.MarkResolved(txCtx, normalized)
		if err != nil {
			return err
		}
		affected = n
		return nil
	}); err != nil {
		return 0, err
	}

	if affected > 0 {
		s.publish(ctx, Key{})
	}
	return affected, nil
}

// DeleteAllForEmployee は従業員の全レコードを物理削除し、削除があれば購読者へ通知します。
// 従業員の完全削除時にのみ使用します。
func (s *Service) DeleteAllForEmployee(ctx context.Context, employeeID string) (int64, error) {
	deleted, err := s.PurgeForEmployee(ctx, employeeID)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.NotifyPurged(ctx, employeeID)
	}
	return deleted, nil
}

// PurgeForEmployee は通知を行わずに従業員の全レコードを物理削除します。
// 呼び出し側のトランザクションに参加させる場合はコミット後に NotifyPurged を呼びます。
func (s *Service) PurgeForEmployee(ctx context.Context, employeeID string) (int64, error) {
	trimmed := strings.TrimSpace(employeeID)
	if trimmed == "" {
		return 0, ErrInvalidEmployeeID
	}

	var deleted int64
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		n, err := s.repo.DeleteByEmployee(txCtx, trimmed)
		if err != nil {
			return err
		}
		deleted = n
		return nil
	}); err != nil {
		return 0, err
	}

	if deleted > 0 {
		s.logger.Info("uncollected premiums purged", zap.String("employee_id", trimmed), zap.Int64("deleted", deleted))
	}
	return deleted, nil
}

// NotifyPurged は従業員のレコードが削除されたことを購読者へ通知します。
func (s *Service) NotifyPurged(ctx context.Context, employeeID string) {
	s.publish(ctx, Key{EmployeeID: strings.TrimSpace(employeeID)})
}

// 通知の失敗は永続化済みの結果を覆さないため、警告ログに留めます。
func (s *Service) publish(ctx context.Context, key Key) {
	if err := s.notifier.Publish(ctx, key); err != nil {
		s.logger.Warn("failed to publish uncollected premium change",
			zap.String("employee_id", key.EmployeeID),
			zap.Int("year", key.Year),
			zap.Int("month", key.Month),
			zap.Error(err),
		)
	}
}

func normalizeKey(employeeID string, year, month int) (Key, error) {
	trimmed := strings.TrimSpace(employeeID)
	if trimmed == "" {
		return Key{}, ErrInvalidEmployeeID
	}
	if year <= 0 {
		return Key{}, ErrInvalidYear
	}
	if month < 1 || month > 12 {
		return Key{}, ErrInvalidMonth
	}
	return Key{EmployeeID: trimmed, Year: year, Month: month}, nil
}

func normalizeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		trimmed := strings.TrimSpace(id)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}
