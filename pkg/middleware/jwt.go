package middleware

import (
	"context"
	"errors"
	"fmt"
	"log"
	"maps"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL はトークンの既定の有効期間（7日間）。
const DefaultTokenTTL = 7 * 24 * time.Hour

// UnauthorizedMessage は認可失敗時にクライアントへ返す固定メッセージ。
// 失敗理由にかかわらず常に同じ値を返す。
const UnauthorizedMessage = "unauthorized access"

var (
	// ErrMissingSecret は署名用シークレットが空の場合に返される。
	// プロセス起動時の設定不備であり、リクエスト単位のエラーではない。
	ErrMissingSecret = errors.New("JWT署名用のシークレットが設定されていません")
	// ErrReservedClaim はペイロードに exp / iat / nbf が含まれている場合に返される。
	ErrReservedClaim = errors.New("ペイロードに予約済みクレームが含まれています")
)

// 予約済みクレーム名。exp と iat はIssuerが付与し、nbf はGateが検証するため
// 呼び出し側からは指定できない。
const (
	claimExpiresAt = "exp"
	claimIssuedAt  = "iat"
	claimNotBefore = "nbf"
)

// isReservedClaim はペイロードに含めてはいけないクレーム名かを返す。
func isReservedClaim(name string) bool {
	switch name {
	case claimExpiresAt, claimIssuedAt, claimNotBefore:
		return true
	}
	return false
}

// contextKeyIdentity はGinコンテキストにIdentityを格納するためのキー。
const contextKeyIdentity = "identity"

// identityContextKey はリクエストのcontext.ContextにIdentityを格納するためのキー。
type identityContextKey struct{}

// TokenConfig はIssuerとGateが共有する不変の設定。
// プロセス起動時に一度だけ構築し、両方のコンストラクタに渡す。
type TokenConfig struct {
	// Secret はHS256署名用の秘密鍵。空の場合はErrMissingSecret。
	Secret []byte
	// TTL はトークンの有効期間。0以下の場合はDefaultTokenTTL。
	TTL time.Duration
	// Clock は現在時刻を返す関数。nilの場合はtime.Now。
	Clock func() time.Time
}

// normalize は既定値を補い、シークレットを複製した設定を返す。
func (cfg TokenConfig) normalize() (TokenConfig, error) {
	if len(cfg.Secret) == 0 {
		return TokenConfig{}, ErrMissingSecret
	}
	out := TokenConfig{
		Secret: append([]byte(nil), cfg.Secret...),
		TTL:    cfg.TTL,
		Clock:  cfg.Clock,
	}
	if out.TTL <= 0 {
		out.TTL = DefaultTokenTTL
	}
	if out.Clock == nil {
		out.Clock = time.Now
	}
	return out, nil
}

// Identity は検証済みトークンから復元した利用者の識別情報。
// 1リクエストの間だけコンテキストに保持される。
type Identity struct {
	// Claims は発行時に渡されたペイロード。exp / iat は含まない。
	Claims map[string]any
	// IssuedAt はトークンの発行日時。
	IssuedAt time.Time
	// ExpiresAt はトークンの有効期限。
	ExpiresAt time.Time
}

// Email はクレームの "email" を返す。存在しない、または文字列でない場合は空文字列。
func (i Identity) Email() string {
	email, _ := i.Claims["email"].(string)
	return email
}

// RejectReason はGateがリクエストを拒否した内部的な理由。
// ログとテストのためだけに使い、クライアントには公開しない。
type RejectReason int

const (
	// ReasonNone は拒否されていないことを表す。
	ReasonNone RejectReason = iota
	// ReasonMissingCredential はAuthorizationヘッダーが無いことを表す。
	ReasonMissingCredential
	// ReasonMalformedCredential はヘッダーまたはトークンの形式が不正なことを表す。
	ReasonMalformedCredential
	// ReasonExpiredCredential はトークンの有効期限切れを表す。
	ReasonExpiredCredential
	// ReasonInvalidSignature は署名の検証失敗を表す。
	ReasonInvalidSignature
)

// String はログ出力用の理由コードを返す。
func (r RejectReason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonMissingCredential:
		return "missing_credential"
	case ReasonMalformedCredential:
		return "malformed_credential"
	case ReasonExpiredCredential:
		return "expired_credential"
	case ReasonInvalidSignature:
		return "invalid_signature"
	default:
		return fmt.Sprintf("unknown(%d)", int(r))
	}
}

// Issuer は任意のペイロードに署名し、有効期限付きのトークンを発行する。
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer は新しいIssuerを生成する。
func NewIssuer(cfg TokenConfig) (*Issuer, error) {
	n, err := cfg.normalize()
	if err != nil {
		return nil, err
	}
	return &Issuer{secret: n.Secret, ttl: n.TTL, now: n.Clock}, nil
}

// Issue はペイロードにiatとexpを付与してHS256で署名する。
// ペイロードの内容は検証しない。空のペイロードにも署名する。
func (i *Issuer) Issue(payload map[string]any) (string, error) {
	claims := make(jwt.MapClaims, len(payload)+2)
	for k, v := range payload {
		if isReservedClaim(k) {
			return "", fmt.Errorf("%w: %s", ErrReservedClaim, k)
		}
		claims[k] = v
	}

	now := i.now()
	claims[claimIssuedAt] = jwt.NewNumericDate(now)
	claims[claimExpiresAt] = jwt.NewNumericDate(now.Add(i.ttl))

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("JWTトークンの署名に失敗: %w", err)
	}
	return signed, nil
}

// Gate は保護されたハンドラの前段でトークンを検証する。
// 状態を持たないため、複数のゴルーチンから同時に使用できる。
type Gate struct {
	secret []byte
	now    func() time.Time
}

// NewGate は新しいGateを生成する。
func NewGate(cfg TokenConfig) (*Gate, error) {
	n, err := cfg.normalize()
	if err != nil {
		return nil, err
	}
	return &Gate{secret: n.Secret, now: n.Clock}, nil
}

// Verify はAuthorizationヘッダーの値を検証する。
// 受理した場合はReasonNoneとIdentityを返す。
func (g *Gate) Verify(authHeader string) (Identity, RejectReason) {
	if authHeader == "" {
		return Identity{}, ReasonMissingCredential
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(bearerToken(authHeader), claims, g.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(g.now),
	)
	if err != nil || !token.Valid {
		return Identity{}, rejectReasonOf(err)
	}

	identity, err := identityFromClaims(claims)
	if err != nil {
		return Identity{}, ReasonMalformedCredential
	}
	return identity, ReasonNone
}

// Handler はGateをGinミドルウェアとして返す。
// 検証に成功した場合のみ後続のハンドラを実行する。
func (g *Gate) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, reason := g.Verify(c.GetHeader("Authorization"))
		if reason != ReasonNone {
			log.Printf("[Auth] 認可を拒否しました: reason=%s method=%s path=%s", reason, c.Request.Method, c.Request.URL.Path)
			AbortUnauthorized(c)
			return
		}

		c.Set(contextKeyIdentity, identity)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), identityContextKey{}, identity))
		c.Next()
	}
}

func (g *Gate) keyFunc(_ *jwt.Token) (any, error) {
	return g.secret, nil
}

// AbortUnauthorized は認可失敗の統一レスポンスを返して処理を中断する。
func AbortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   true,
		"message": UnauthorizedMessage,
	})
}

// GetIdentity はGinコンテキストからIdentityを取得する。
// Gate.Handlerが事前に適用されている必要がある。
func GetIdentity(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(contextKeyIdentity)
	if !ok {
		return Identity{}, false
	}
	identity, ok := v.(Identity)
	return identity, ok
}

// IdentityFromContext はリクエストのcontext.ContextからIdentityを取得する。
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityContextKey{}).(Identity)
	return identity, ok
}

// bearerToken はヘッダーを空白で分割し、2番目の要素を返す。
// スキームが Bearer でない場合や2番目の要素が無い場合は空文字列を返し、
// 後続の検証で失敗させる。
func bearerToken(authHeader string) string {
	fields := strings.Fields(authHeader)
	if len(fields) < 2 || fields[0] != "Bearer" {
		return ""
	}
	return fields[1]
}

// rejectReasonOf はjwtライブラリのエラーを拒否理由に変換する。
func rejectReasonOf(err error) RejectReason {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ReasonExpiredCredential
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ReasonInvalidSignature
	default:
		return ReasonMalformedCredential
	}
}

// identityFromClaims は検証済みクレームからexp / iatを取り除いてIdentityを組み立てる。
func identityFromClaims(claims jwt.MapClaims) (Identity, error) {
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return Identity{}, err
	}
	iat, err := claims.GetIssuedAt()
	if err != nil {
		return Identity{}, err
	}

	payload := maps.Clone(map[string]any(claims))
	delete(payload, claimExpiresAt)
	delete(payload, claimIssuedAt)

	identity := Identity{Claims: payload}
	if exp != nil {
		identity.ExpiresAt = exp.Time
	}
	if iat != nil {
		identity.IssuedAt = iat.Time
	}
	return identity, nil
}
