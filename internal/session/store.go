package session

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/mileusna/useragent"
	"github.com/nward/askbox/internal/config"
	"github.com/nward/askbox/internal/domain"
	"github.com/nward/askbox/internal/repository"
	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "askbox:revoked:"

// Principal is the authenticated identity bound to a request.
type Principal struct {
	UserID    uuid.UUID
	SessionID uuid.UUID
}

// cookiePayload is the JSON carried inside the askbox_session cookie,
// base64url-encoded. The userId field is convenience for clients; the
// server only ever trusts the verified token's claims.
type cookiePayload struct {
	UserID  string `json:"userId"`
	IDToken string `json:"idToken"`
}

// Store owns the session lifecycle: issuing the identity token, the
// http-only cookie, the server-side session record, and revocation.
type Store struct {
	cfg      *config.Config
	sessions repository.SessionRepository
	redis    *redis.Client
}

func NewStore(cfg *config.Config, sessions repository.SessionRepository, redisClient *redis.Client) *Store {
	return &Store{
		cfg:      cfg,
		sessions: sessions,
		redis:    redisClient,
	}
}

// NewRedisClient connects and pings the revocation store.
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

// Create issues a session for user: signs an identity token, records the
// session row with device metadata from the request's User-Agent, and sets
// the cookie. Transitions the request from anonymous to authenticated.
func (s *Store) Create(ctx context.Context, w http.ResponseWriter, r *http.Request, user *domain.User) error {
	sessionID := uuid.New()
	expiresAt := time.Now().Add(s.cfg.SessionTTL)

	claims := jwt.MapClaims{
		"sub": user.ID.String(),
		"sid": sessionID.String(),
		"exp": expiresAt.Unix(),
		"iat": time.Now().Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.SessionSecret))
	if err != nil {
		return err
	}

	ua := useragent.Parse(r.UserAgent())
	record := &domain.UserSession{
		ID:        sessionID,
		UserID:    user.ID,
		TokenHash: hashToken(token),
		Device:    ua.Device,
		Browser:   ua.Name,
		OS:        ua.OS,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	if err := s.sessions.Create(ctx, record); err != nil {
		return err
	}

	payload, err := json.Marshal(cookiePayload{
		UserID:  user.ID.String(),
		IDToken: token,
	})
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    base64.RawURLEncoding.EncodeToString(payload),
		Path:     "/",
		MaxAge:   int(s.cfg.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})

	return nil
}

// Clear revokes the current token, deletes the session record and drops the
// cookie. Safe to call on an already-anonymous request; calling it twice
// leaves the same anonymous state behind.
func (s *Store) Clear(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	if payload, ok := s.readCookie(r); ok {
		if claims, err := s.verifyToken(payload.IDToken); err == nil {
			s.revoke(ctx, payload.IDToken, claims)
			if sid, err := claimUUID(claims, "sid"); err == nil {
				if err := s.sessions.Delete(ctx, sid); err != nil {
					log.Printf("ERROR [session.Clear] failed to delete session record: %v", err)
				}
			}
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
}

// Authenticate resolves the request's principal. A missing, malformed,
// expired or revoked cookie is not an error: it logs and degrades to
// anonymous. The embedded token is always cryptographically verified before
// the userId is trusted.
func (s *Store) Authenticate(ctx context.Context, r *http.Request) (*Principal, bool) {
	payload, ok := s.readCookie(r)
	if !ok {
		return nil, false
	}

	claims, err := s.verifyToken(payload.IDToken)
	if err != nil {
		log.Printf("WARN [session.Authenticate] token rejected: %v", err)
		return nil, false
	}

	if s.isRevoked(ctx, payload.IDToken) {
		log.Printf("WARN [session.Authenticate] revoked token presented")
		return nil, false
	}

	userID, err := claimUUID(claims, "sub")
	if err != nil {
		log.Printf("WARN [session.Authenticate] bad sub claim: %v", err)
		return nil, false
	}
	sessionID, err := claimUUID(claims, "sid")
	if err != nil {
		log.Printf("WARN [session.Authenticate] bad sid claim: %v", err)
		return nil, false
	}

	// The cookie's userId is advisory only; it must match the token.
	if payload.UserID != userID.String() {
		log.Printf("WARN [session.Authenticate] cookie userId does not match token subject")
		return nil, false
	}

	// The session row is authoritative: a token whose row was deleted, by
	// logout on another device or the expiry sweep, no longer authenticates.
	if _, err := s.sessions.GetByID(ctx, sessionID); err != nil {
		log.Printf("WARN [session.Authenticate] session record rejected: %v", err)
		return nil, false
	}

	return &Principal{UserID: userID, SessionID: sessionID}, true
}

// ClearAll ends every session userID holds, on this device and all others,
// then drops the cookie. Other devices' tokens die because Authenticate
// requires a live session row.
func (s *Store) ClearAll(ctx context.Context, w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	if payload, ok := s.readCookie(r); ok {
		if claims, err := s.verifyToken(payload.IDToken); err == nil {
			s.revoke(ctx, payload.IDToken, claims)
		}
	}

	if err := s.sessions.DeleteByUserID(ctx, userID); err != nil {
		log.Printf("ERROR [session.ClearAll] failed to delete session records: %v", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
}

// SweepExpired deletes session rows whose expiry has passed. The token's
// own exp claim already locks expired sessions out; this keeps the table
// from accumulating dead rows.
func (s *Store) SweepExpired(ctx context.Context) error {
	return s.sessions.DeleteExpired(ctx)
}

func (s *Store) readCookie(r *http.Request) (*cookiePayload, bool) {
	cookie, err := r.Cookie(s.cfg.CookieName)
	if err != nil || cookie.Value == "" {
		return nil, false
	}

	raw, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		log.Printf("WARN [session] malformed cookie encoding: %v", err)
		return nil, false
	}

	var payload cookiePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Printf("WARN [session] malformed cookie payload: %v", err)
		return nil, false
	}
	if payload.IDToken == "" {
		log.Printf("WARN [session] cookie missing idToken")
		return nil, false
	}

	return &payload, true
}

func (s *Store) verifyToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.cfg.SessionSecret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("unexpected claims type")
	}
	return claims, nil
}

func (s *Store) revoke(ctx context.Context, tokenString string, claims jwt.MapClaims) {
	if s.redis == nil {
		return
	}

	ttl := time.Hour
	if exp, ok := claims["exp"].(float64); ok {
		if until := time.Until(time.Unix(int64(exp), 0)); until > 0 {
			ttl = until
		}
	}

	key := revokedKeyPrefix + hashToken(tokenString)
	if err := s.redis.Set(ctx, key, "1", ttl).Err(); err != nil {
		log.Printf("ERROR [session] failed to revoke token: %v", err)
	}
}

// isRevoked fails open: if the revocation store is unreachable the token's
// own expiry is still enforced by verifyToken.
func (s *Store) isRevoked(ctx context.Context, tokenString string) bool {
	if s.redis == nil {
		return false
	}

	key := revokedKeyPrefix + hashToken(tokenString)
	n, err := s.redis.Exists(ctx, key).Result()
	if err != nil {
		log.Printf("ERROR [session] revocation check failed: %v", err)
		return false
	}
	return n > 0
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func claimUUID(claims jwt.MapClaims, key string) (uuid.UUID, error) {
	raw, ok := claims[key].(string)
	if !ok {
		return uuid.Nil, fmt.Errorf("missing %s claim", key)
	}
	return uuid.Parse(raw)
}
