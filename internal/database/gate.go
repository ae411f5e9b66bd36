package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// establishTimeout は1回の接続確立試行の上限時間。
const establishTimeout = 10 * time.Second

// attempt は進行中の接続確立試行を表す。
// doneがcloseされた時点でconnまたはerrのどちらかが確定している。
type attempt struct {
	done chan struct{}
	conn *sql.DB
	err  error
}

// Gate はプロセス全体で共有する単一のデータベース接続を遅延確立し、
// 同時リクエストからの確立要求を1つの試行に合流させる。
//
// 状態は「未確立」「確立中（pending）」「確立済み（conn）」の3つのみ。
// 確立中の試行は必ずロック内でpendingに記録してから開始するため、
// 同時に複数の確立試行が走ることはない。試行が失敗した場合は
// pendingをクリアして未確立に戻し、次のAcquireで再試行できるようにする。
type Gate struct {
	databaseURL string

	// openFn は接続確立処理。テストで差し替え可能にするためフィールド化する。
	openFn func(ctx context.Context) (*sql.DB, error)

	mu             sync.Mutex
	conn           *sql.DB
	pending        *attempt
	establishCount int
}

// NewGate は指定された接続URLに対するGateを生成する。
// この時点では接続は確立されない。
func NewGate(databaseURL string) *Gate {
	g := &Gate{databaseURL: databaseURL}
	g.openFn = g.openAndPing
	return g
}

// newGateWithOpener は接続確立処理を差し替えたGateを生成する。
// テスト専用。
func newGateWithOpener(openFn func(ctx context.Context) (*sql.DB, error)) *Gate {
	return &Gate{openFn: openFn}
}

// Acquire は共有接続を返す。任意の数のゴルーチンから同時に呼び出せる。
//
// 確立済みの接続があれば即座に返す。なければ確立試行を1つだけ開始し、
// 同時に到着した呼び出しはすべて同じ試行の完了を待つ。試行が成功すれば
// 全員が同じ接続を受け取り、失敗すれば全員が同じエラーを受け取る。
// 失敗後はゲートが未確立に戻るため、後続のAcquireは再試行できる。
func (g *Gate) Acquire(ctx context.Context) (*sql.DB, error) {
	g.mu.Lock()

	if g.conn != nil {
		conn := g.conn
		g.mu.Unlock()
		return conn, nil
	}

	if g.pending == nil {
		// 確立中マーカーを先に記録してから非同期処理を開始する。
		// この順序が逆だと、2つの呼び出しが共に「未確立・試行なし」を
		// 観測して二重に接続を張る競合窓が開く。
		at := &attempt{done: make(chan struct{})}
		g.pending = at
		g.establishCount++
		go g.establish(at)
	}

	at := g.pending
	g.mu.Unlock()

	select {
	case <-at.done:
	case <-ctx.Done():
		// 呼び出し側の待機のみを打ち切る。確立試行自体は完了まで走り、
		// 成功すれば後続のAcquireがその接続を利用する。
		return nil, ctx.Err()
	}

	if at.err != nil {
		return nil, at.err
	}
	return at.conn, nil
}

// establish は接続確立試行を実行し、結果をGateの状態に反映する。
func (g *Gate) establish(at *attempt) {
	ctx, cancel := context.WithTimeout(context.Background(), establishTimeout)
	defer cancel()

	conn, err := g.openFn(ctx)

	g.mu.Lock()
	if err != nil {
		at.err = fmt.Errorf("failed to establish database connection: %w", err)
		g.pending = nil
		g.mu.Unlock()
		slog.Error("database connection failed",
			slog.String("error", err.Error()),
		)
		close(at.done)
		return
	}

	at.conn = conn
	g.conn = conn
	g.pending = nil
	g.mu.Unlock()

	slog.Info("database connection established")
	close(at.done)
}

// openAndPing は接続を開き、Pingで到達性を確認する。
func (g *Gate) openAndPing(ctx context.Context) (*sql.DB, error) {
	db, err := Open(g.databaseURL)
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// CheckHealth はゲート経由で接続を取得し、PINGで疎通を確認する。
// 未確立の場合はこの呼び出しが接続確立を兼ねる。
func (g *Gate) CheckHealth(ctx context.Context) error {
	db, err := g.Acquire(ctx)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// EstablishCount はこれまでに開始された接続確立試行の回数を返す。
// テストで「同時Acquireが1回の試行に合流する」ことを観測するために使用する。
func (g *Gate) EstablishCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.establishCount
}

// Disconnect は確立済みの接続を明示的に切断し、ゲートを未確立に戻す。
// 進行中の確立試行がある場合はその完了を待ってから切断する。待たずに
// 切断すると、試行完了時の接続公開で切断済みハンドルが復活してしまう。
// テストやメンテナンスツール専用であり、リクエストハンドラーからは呼ばないこと。
func (g *Gate) Disconnect() error {
	g.mu.Lock()

	for g.pending != nil {
		at := g.pending
		g.mu.Unlock()
		<-at.done
		g.mu.Lock()
	}

	if g.conn == nil {
		g.mu.Unlock()
		return nil
	}

	conn := g.conn
	g.conn = nil
	g.mu.Unlock()

	if err := conn.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}
	return nil
}
