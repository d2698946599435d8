package premium

import (
	"context"
	"sync"
)

// Notifier は未徴収保険料レコードの変更を購読者へ伝えます。
// 空の Key は対象を特定しない一括変更を表します。
type Notifier interface {
	Publish(ctx context.Context, key Key) error
	Subscribe(ctx context.Context) (<-chan Key, error)
}

const subscriberBuffer = 16

// LocalNotifier はプロセス内で完結する Notifier です。
type LocalNotifier struct {
	mu   sync.Mutex
	subs map[chan Key]struct{}
}

// NewLocalNotifier は LocalNotifier を生成します。
func NewLocalNotifier() *LocalNotifier {
	return &LocalNotifier{subs: make(map[chan Key]struct{})}
}

// Publish は全購読者へ通知します。
// 購読者のバッファが埋まっている場合は滞留中のキーを捨て、一括変更の空の Key に畳み込みます。
func (n *LocalNotifier) Publish(_ context.Context, key Key) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	for ch := range n.subs {
		select {
		case ch <- key:
		default:
			collapse(ch)
		}
	}
	return nil
}

// collapse はバッファを空にして一括変更を一件だけ積みます。送信側は mu で直列化されているため、
// 空にした後の送信はブロックしません。
func collapse(ch chan Key) {
drain:
	for {
		select {
		case <-ch:
		default:
			break drain
		}
	}
	ch <- Key{}
}

// Subscribe は ctx が終了するまで通知を受け取るチャネルを返します。
func (n *LocalNotifier) Subscribe(ctx context.Context) (<-chan Key, error) {
	ch := make(chan Key, subscriberBuffer)

	n.mu.Lock()
	n.subs[ch] = struct{}{}
	n.mu.Unlock()

	go func() {
		<-ctx.Done()
		n.mu.Lock()
		delete(n.subs, ch)
		close(ch)
		n.mu.Unlock()
	}()

	return ch, nil
}
