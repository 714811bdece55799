// Package security はアプリケーションのセキュリティ機能を提供する。
package security

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// SSRFGuardService はSSRF防止機能のインターフェースを定義する。
// URL指定での画像取り込み（メディアインポート）時に使用される。
type SSRFGuardService interface {
	// NewSafeClient はSSRF防止機能付きのHTTPクライアントを生成する。
	// safeurlにより、プライベートIP・ループバック・リンクローカル・
	// クラウドメタデータIPへのリクエストが自動的にブロックされる。
	NewSafeClient(timeout time.Duration) *http.Client

	// ValidateURL はインポート対象URLの安全性を事前に検証する。
	// スキーム・ホスト・IPアドレスの静的チェックを行い、
	// 危険なURLの場合はエラーを返す。
	ValidateURL(rawURL string) error
}

// 画像の取得元として許可するのはWeb上の公開URLのみ。
var allowedSchemes = []string{"http", "https"}

// 取り込みを拒否するホスト名。IPアドレス形式はblockedNetworksで判定する。
var blockedHostnames = []string{"localhost"}

// blockedNetworks はインポート先として拒否するネットワーク範囲。
// safeurlはDialer層でDNS解決後のIPも検証するため、ここでの照合は
// リクエスト送信前の早期リジェクトを担う。
var blockedNetworks = mustParseCIDRs(
	// プライベートアドレス (RFC 1918)
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	// ループバック
	"127.0.0.0/8",
	"::1/128",
	// リンクローカル。クラウドメタデータIP (169.254.169.254) を含む
	"169.254.0.0/16",
	"fe80::/10",
	// カレントネットワークとIPv6ユニークローカル
	"0.0.0.0/8",
	"fc00::/7",
)

func mustParseCIDRs(cidrs ...string) []net.IPNet {
	networks := make([]net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid blocked CIDR %s: %v", cidr, err))
		}
		networks = append(networks, *network)
	}
	return networks
}

// ssrfGuard はSSRFGuardServiceの実装。
type ssrfGuard struct{}

// NewSSRFGuard はSSRFGuardServiceの新しいインスタンスを生成する。
func NewSSRFGuard() *ssrfGuard {
	return &ssrfGuard{}
}

// NewSafeClient はSSRF防止機能付きのHTTPクライアントを生成する。
// safeurlはnet.DialerのControlフックでDNS解決後の接続先IPを検証するため、
// DNS再バインディング攻撃でもプライベート帯へ到達できない。
// 画像配信は標準ポートのみを想定し、80/443以外への接続は拒否する。
func (g *ssrfGuard) NewSafeClient(timeout time.Duration) *http.Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(allowedSchemes...).
		SetAllowedPorts(80, 443).
		Build()

	return safeurl.Client(config).Client
}

// ValidateURL はインポート対象URLをDNS解決なしで静的に検証する。
// ここを通過してもDialer側の検証が残るため、ホスト名が後から
// プライベートIPに解決されるケースはNewSafeClientの層で防がれる。
func (g *ssrfGuard) ValidateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("empty URL")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if !slices.Contains(allowedSchemes, scheme) {
		return fmt.Errorf("disallowed scheme: %s (allowed: %v)", scheme, allowedSchemes)
	}

	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("empty host in URL: %s", rawURL)
	}

	if ip := net.ParseIP(host); ip != nil {
		if isBlockedIP(ip) {
			return fmt.Errorf("blocked IP address: %s", ip.String())
		}
		return nil
	}

	if slices.Contains(blockedHostnames, strings.ToLower(host)) {
		return fmt.Errorf("blocked host: %s", host)
	}

	return nil
}

func isBlockedIP(ip net.IP) bool {
	for _, network := range blockedNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
