package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"aidanwoods.dev/go-paseto"
	"github.com/golang-jwt/jwt/v5"

	"github.com/bughive/bughive-server/internal/id"
)

const (
	tokenIssuer   = "bughive-server"
	tokenAudience = "bughive-client"

	// Token formats accepted by NewTokenIssuer.
	FormatJWT    = "jwt"
	FormatPaseto = "paseto"
)

// Token verification failures.
var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// TokenIssuer issues and verifies access tokens.
type TokenIssuer interface {
	Issue(userID, email string) (string, error)
	Verify(token string) (*AccessClaims, error)
	Duration() time.Duration
}

// NewTokenIssuer returns the issuer for format using key.
func NewTokenIssuer(format string, key []byte, duration time.Duration) (TokenIssuer, error) {
	switch format {
	case FormatJWT, "":
		return NewJWTIssuer(key, duration)
	case FormatPaseto:
		return NewPasetoIssuer(key, duration)
	default:
		return nil, fmt.Errorf("unknown token format %q", format)
	}
}

// ExtractBearer returns the token from an Authorization header value.
// The scheme is matched case-insensitively.
func ExtractBearer(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// JWTIssuer signs HS256 JSON Web Tokens.
type JWTIssuer struct {
	secret   []byte
	duration time.Duration
}

// NewJWTIssuer creates a JWT issuer signing with secret.
func NewJWTIssuer(secret []byte, duration time.Duration) (*JWTIssuer, error) {
	if len(secret) == 0 {
		return nil, errors.New("JWT secret key cannot be empty")
	}
	return &JWTIssuer{secret: secret, duration: duration}, nil
}

// Issue signs a token for the user.
func (j *JWTIssuer) Issue(userID, email string) (string, error) {
	tokenID, err := id.Generate("token")
	if err != nil {
		return "", fmt.Errorf("generate token ID: %w", err)
	}

	now := time.Now()
	claims := jwtClaims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.duration)),
			ID:        tokenID,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of a token.
func (j *JWTIssuer) Verify(tokenString string) (*AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwtClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secret, nil
	})
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, ErrTokenExpired
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*jwtClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrTokenInvalid
	}

	out := &AccessClaims{
		UserID:  claims.UserID,
		Email:   claims.Email,
		TokenID: claims.ID,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

// Duration returns the access token lifetime.
func (j *JWTIssuer) Duration() time.Duration { return j.duration }

// PasetoIssuer issues encrypted PASETO v4.local tokens.
type PasetoIssuer struct {
	key      paseto.V4SymmetricKey
	duration time.Duration
}

// NewPasetoIssuer creates a PASETO issuer from a 32-byte key.
func NewPasetoIssuer(key []byte, duration time.Duration) (*PasetoIssuer, error) {
	if len(key) != keyLength {
		return nil, fmt.Errorf("PASETO v4 key must be exactly %d bytes, got %d", keyLength, len(key))
	}
	symmetric, err := paseto.V4SymmetricKeyFromBytes(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create PASETO symmetric key: %w", err)
	}
	return &PasetoIssuer{key: symmetric, duration: duration}, nil
}

// Issue encrypts a token for the user.
func (p *PasetoIssuer) Issue(userID, email string) (string, error) {
	now := time.Now()

	token := paseto.NewToken()
	token.SetIssuer(tokenIssuer)
	token.SetSubject(userID)
	token.SetAudience(tokenAudience)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(now.Add(p.duration))

	tokenID, err := id.Generate("token")
	if err != nil {
		return "", fmt.Errorf("generate token ID: %w", err)
	}
	token.SetJti(tokenID)

	//nolint:errcheck // Set only fails for unmarshalable values
	_ = token.Set("id", userID)
	//nolint:errcheck // Set only fails for unmarshalable values
	_ = token.Set("email", email)

	return token.V4Encrypt(p.key, nil), nil
}

// Verify decrypts a token and checks its claims. Expiry is checked separately
// from the parser rules so that an expired token is reported as such.
func (p *PasetoIssuer) Verify(tokenString string) (*AccessClaims, error) {
	parser := paseto.NewParserWithoutExpiryCheck()
	parser.AddRule(paseto.ForAudience(tokenAudience))
	parser.AddRule(paseto.IssuedBy(tokenIssuer))

	token, err := parser.ParseV4Local(p.key, tokenString, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	exp, err := token.GetExpiration()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	if !time.Now().Before(exp) {
		return nil, ErrTokenExpired
	}

	userID, err := token.GetString("id")
	if err != nil || userID == "" {
		return nil, ErrTokenInvalid
	}
	email, _ := token.GetString("email")
	jti, _ := token.GetJti()
	iat, _ := token.GetIssuedAt()

	return &AccessClaims{
		UserID:    userID,
		Email:     email,
		TokenID:   jti,
		IssuedAt:  iat,
		ExpiresAt: exp,
	}, nil
}

// Duration returns the access token lifetime.
func (p *PasetoIssuer) Duration() time.Duration { return p.duration }
