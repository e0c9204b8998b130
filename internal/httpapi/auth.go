package httpapi

import (
	"context"
	"errors"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/codingrush01/murlidhar-mobiles/internal/domain"
)

var errInvalidCredentials = errors.New("invalid credentials")

// AccountDirectory is the slice of the service the auth layer needs.
type AccountDirectory interface {
	FindAccount(ctx context.Context, email string) (domain.UserAccount, error)
	ResolveIdentity(ctx context.Context, email string) (domain.Identity, error)
}

type AuthManager struct {
	secret   []byte
	tokenTTL time.Duration
	accounts AccountDirectory
	now      func() time.Time
}

type sessionClaims struct {
	jwtlib.RegisteredClaims
	Role string `json:"role"`
}

func NewAuthManager(secret string, tokenTTL time.Duration, accounts AccountDirectory) *AuthManager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}
	return &AuthManager{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		accounts: accounts,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Login checks the password against the stored bcrypt hash and signs a
// token whose subject is the account email. Unknown emails and wrong
// passwords fail the same way.
func (a *AuthManager) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	account, err := a.accounts.FindAccount(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrPermission) || errors.Is(err, domain.ErrValidation) {
			return domain.LoginResponse{}, errInvalidCredentials
		}
		return domain.LoginResponse{}, err
	}
	if !verifyPassword(account.PasswordHash, req.Password) {
		return domain.LoginResponse{}, errInvalidCredentials
	}

	identity, err := a.accounts.ResolveIdentity(ctx, account.Email)
	if err != nil {
		return domain.LoginResponse{}, err
	}

	expiresAt := a.now().Add(a.tokenTTL)
	token, err := a.sign(identity.Email, identity.Role, expiresAt)
	if err != nil {
		return domain.LoginResponse{}, err
	}

	return domain.LoginResponse{
		AccessToken: token,
		Role:        identity.Role,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
		Identity:    identity,
	}, nil
}

// ParseToken returns the email the token was issued to.
func (a *AuthManager) ParseToken(tokenStr string) (string, error) {
	claims := &sessionClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}), jwtlib.WithTimeFunc(a.now))
	if err != nil || !token.Valid {
		return "", errors.New("invalid or expired token")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", errors.New("invalid token subject")
	}
	return sub, nil
}

// Authenticate parses the token and resolves the current identity. Role and
// shop come from the users collection, never from the token claims, so a
// role change or removal takes effect on the next request.
func (a *AuthManager) Authenticate(ctx context.Context, tokenStr string) (domain.Identity, error) {
	email, err := a.ParseToken(tokenStr)
	if err != nil {
		return domain.Identity{}, err
	}
	return a.accounts.ResolveIdentity(ctx, email)
}

func (a *AuthManager) sign(email, role string, expiresAt time.Time) (string, error) {
	claims := sessionClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwtlib.NewNumericDate(a.now()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    "murlidhar-mobiles",
		},
		Role: role,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func verifyPassword(stored string, input string) bool {
	if stored == "" || strings.TrimSpace(input) == "" || !isPasswordHash(stored) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(input)) == nil
}

func isPasswordHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}
