// Package security は画像取り込みとユーザー入力まわりの防御機能を提供する。
package security

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// SSRFGuardService は外部URLからのイベント画像取り込みを内部ネットワークへの
// 踏み台にさせないためのインターフェース。ユーザーが指定した画像URLは
// ValidateURLによる静的検証を通過した上で、NewSafeClientが返すクライアント
// 経由でのみ取得する。
type SSRFGuardService interface {
	// NewSafeClient は内部アドレスへの到達を遮断したHTTPクライアントを返す。
	// 遮断判定はsafeurlがダイヤル時（DNS解決後）に行うため、
	// DNS再バインディングで検証をすり抜けることはできない。
	NewSafeClient(timeout time.Duration) *http.Client

	// ValidateURL は画像URLをリクエスト送信前に静的検証する。
	// 許可されないスキーム、空ホスト、内部向きのIP・ホスト名を弾く。
	ValidateURL(rawURL string) error
}

// fetchableSchemes は画像URLとして受け付けるスキーム。
var fetchableSchemes = []string{"http", "https"}

// internalNetworks は画像取得先として拒否するアドレス範囲。
// パッケージ初期化時にパースしておき、ValidateURLのIP照合に使う。
// ここでの照合はURL文字列に直接IPが書かれた場合の早期拒否であり、
// ホスト名解決後の最終判定はsafeurl側のDialerが担う。
var internalNetworks []net.IPNet

func init() {
	cidrs := []string{
		// RFC 1918 プライベート範囲
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		// ループバック
		"127.0.0.0/8",
		// リンクローカル。クラウドメタデータ (169.254.169.254) を含む
		"169.254.0.0/16",
		// カレントネットワーク
		"0.0.0.0/8",
		// IPv6: ループバック、リンクローカル、ユニークローカル
		"::1/128",
		"fe80::/10",
		"fc00::/7",
	}
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid CIDR in internalNetworks: %s: %v", cidr, err))
		}
		internalNetworks = append(internalNetworks, *network)
	}
}

// rejectedHostnames はIPでないホスト名のうち取得先として拒否するもの。
var rejectedHostnames = []string{
	"localhost",
}

// ssrfGuard はSSRFGuardServiceの実装。
type ssrfGuard struct{}

// NewSSRFGuard はSSRFGuardServiceの新しいインスタンスを生成する。
func NewSSRFGuard() *ssrfGuard {
	return &ssrfGuard{}
}

// NewSafeClient は画像取得専用のHTTPクライアントを生成する。
// safeurlの標準設定で、プライベートIP・ループバック・リンクローカル・
// メタデータIPへの接続が拒否される。検証はnet.DialerのControlフックで
// DNS解決後のIPアドレスに対して行われる。
// ポートは80と443のみ許可し、内部サービスの非標準ポートへの到達を防ぐ。
func (g *ssrfGuard) NewSafeClient(timeout time.Duration) *http.Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(fetchableSchemes...).
		SetAllowedPorts(80, 443).
		Build()

	wrappedClient := safeurl.Client(config)
	return wrappedClient.Client
}

// ValidateURL は画像URLをリクエスト送信前に静的検証する。
// DNS解決は行わないため、ここを通過してもホスト名が内部IPに解決される
// 可能性は残る。その場合はNewSafeClientのクライアントが接続を拒否する。
func (g *ssrfGuard) ValidateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("empty URL")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if !schemeFetchable(scheme) {
		return fmt.Errorf("disallowed scheme: %s (allowed: %v)", scheme, fetchableSchemes)
	}

	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("empty host in URL: %s", rawURL)
	}

	// URLにIPが直接書かれている場合はここで拒否できる
	if ip := net.ParseIP(host); ip != nil {
		if ipInternal(ip) {
			return fmt.Errorf("blocked IP address: %s", ip.String())
		}
		return nil
	}

	if hostnameRejected(host) {
		return fmt.Errorf("blocked host: %s", host)
	}

	return nil
}

// schemeFetchable はスキームが画像取得に使えるかを返す。
func schemeFetchable(scheme string) bool {
	for _, allowed := range fetchableSchemes {
		if strings.EqualFold(scheme, allowed) {
			return true
		}
	}
	return false
}

// ipInternal はIPアドレスが拒否対象の範囲に含まれるかを返す。
func ipInternal(ip net.IP) bool {
	for _, network := range internalNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// hostnameRejected はホスト名が拒否対象かを返す。
func hostnameRejected(host string) bool {
	lower := strings.ToLower(host)
	for _, rejected := range rejectedHostnames {
		if lower == rejected {
			return true
		}
	}
	return false
}
