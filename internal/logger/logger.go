// Package logger はslogベースのJSON構造化ログを設定する。
package logger

import (
	"io"
	"log/slog"
	"os"
)

// Setup はINFOレベル以上をwに書き出すJSON形式のロガーを返す。
func Setup(w io.Writer) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	return slog.New(handler)
}

// SetupDefault はSetupのロガーをプロセス全体のデフォルトに設定する。
// wがnilの場合はos.Stdoutへ出力する。本番ではコンテナのログ収集に
// 乗せるため標準出力に書く。
func SetupDefault(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	slog.SetDefault(Setup(w))
}
