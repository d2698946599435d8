package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ogurasousui/shaho-compliance/internal/core/premium"
	"github.com/ogurasousui/shaho-compliance/internal/platform/config"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const subscriberBuffer = 16

type keyPayload struct {
	EmployeeID string `json:"employee_id,omitempty"`
	Year       int    `json:"year,omitempty"`
	Month      int    `json:"month,omitempty"`
}

// Notifier は Redis Pub/Sub を利用して未徴収保険料の変更をプロセス間で共有します。
type Notifier struct {
	rdb     *goredis.Client
	channel string
	logger  *zap.Logger
}

// NewClient は Redis クライアントを生成し、Ping で疎通を確認します。
func NewClient(ctx context.Context, cfg config.RedisConfig) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}

// NewNotifier は Notifier を生成します。
func NewNotifier(rdb *goredis.Client, channel string, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{rdb: rdb, channel: channel, logger: logger}
}

// Publish は変更キーをチャネルへ送信します。
func (n *Notifier) Publish(ctx context.Context, key premium.Key) error {
	payload, err := encodeKey(key)
	if err != nil {
		return err
	}
	if err := n.rdb.Publish(ctx, n.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", n.channel, err)
	}
	return nil
}

// Subscribe は ctx が終了するまで変更キーを受け取るチャネルを返します。
// 解釈できないメッセージは警告ログを出して読み捨てます。
func (n *Notifier) Subscribe(ctx context.Context) (<-chan premium.Key, error) {
	pubsub := n.rdb.Subscribe(ctx, n.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", n.channel, err)
	}

	out := make(chan premium.Key, subscriberBuffer)
	go func() {
		defer close(out)
		defer pubsub.Close()

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				key, err := decodeKey(msg.Payload)
				if err != nil {
					n.logger.Warn("discarding malformed premium notification",
						zap.String("channel", msg.Channel),
						zap.Error(err),
					)
					continue
				}
				select {
				case out <- key:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func encodeKey(key premium.Key) (string, error) {
	b, err := json.Marshal(keyPayload{EmployeeID: key.EmployeeID, Year: key.Year, Month: key.Month})
	if err != nil {
		return "", fmt.Errorf("redis: encode key: %w", err)
	}
	return string(b), nil
}

func decodeKey(payload string) (premium.Key, error) {
	var p keyPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return premium.Key{}, fmt.Errorf("redis: decode key: %w", err)
	}
	return premium.Key{EmployeeID: p.EmployeeID, Year: p.Year, Month: p.Month}, nil
}
