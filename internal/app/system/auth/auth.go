// Package auth carries the identity of whoever is calling the matching API.
//
// Callers present a bearer token minted by Tokens.Issue. The token is a
// gorilla/securecookie value (HMAC signed, optionally AES encrypted) so it
// can be checked without a database round trip. Middleware decodes it into a
// CallerContext and stores that on the request context; handlers pass the
// CallerContext explicitly into the service layer.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"go.uber.org/zap"
)

// tokenName binds the encoded value to its purpose; a value encoded under
// another name will not decode here.
const tokenName = "drivehub-caller"

var (
	ErrNoToken  = errors.New("no caller token")
	ErrBadToken = errors.New("invalid or expired caller token")
)

// CallerContext identifies the actor behind a request. It is passed
// explicitly to every service and collaborator call.
type CallerContext struct {
	ActorID   string
	ActorName string
	Role      string
	AuthToken string
}

// IsZero reports whether no caller is set.
func (c CallerContext) IsZero() bool { return c.ActorID == "" }

type tokenClaims struct {
	ActorID string    `json:"actor_id"`
	Name    string    `json:"name"`
	Role    string    `json:"role"`
	Issued  time.Time `json:"issued"`
}

// Tokens mints and verifies caller tokens.
type Tokens struct {
	sc  *securecookie.SecureCookie
	ttl time.Duration
	log *zap.Logger
}

// NewTokens builds a token codec. hashKey signs tokens and must be at least
// 32 bytes. blockKey encrypts them and may be empty, otherwise it must be
// 16, 24 or 32 bytes.
func NewTokens(hashKey, blockKey string, ttl time.Duration, logger *zap.Logger) (*Tokens, error) {
	if len(hashKey) < 32 {
		return nil, fmt.Errorf("caller token hash key must be at least 32 bytes, got %d", len(hashKey))
	}
	var block []byte
	switch len(blockKey) {
	case 0:
	case 16, 24, 32:
		block = []byte(blockKey)
	default:
		return nil, fmt.Errorf("caller token block key must be 16, 24 or 32 bytes, got %d", len(blockKey))
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	sc := securecookie.New([]byte(hashKey), block)
	sc.SetSerializer(securecookie.JSONEncoder{})
	sc.MaxAge(int(ttl / time.Second))
	// tokens travel in a header, not a cookie jar, so lift the 4KB cookie cap
	sc.MaxLength(0)

	return &Tokens{sc: sc, ttl: ttl, log: logger}, nil
}

// Issue encodes a token for the given actor.
func (t *Tokens) Issue(actorID, name, role string) (string, error) {
	if strings.TrimSpace(actorID) == "" {
		return "", errors.New("actor id is required")
	}
	return t.sc.Encode(tokenName, tokenClaims{
		ActorID: actorID,
		Name:    name,
		Role:    role,
		Issued:  time.Now().UTC(),
	})
}

// Parse verifies a token and returns the caller it names.
func (t *Tokens) Parse(token string) (CallerContext, error) {
	if token == "" {
		return CallerContext{}, ErrNoToken
	}
	var claims tokenClaims
	if err := t.sc.Decode(tokenName, token, &claims); err != nil {
		var scErr securecookie.Error
		if errors.As(err, &scErr) && scErr.IsDecode() {
			return CallerContext{}, ErrBadToken
		}
		return CallerContext{}, fmt.Errorf("%w: %v", ErrBadToken, err)
	}
	if claims.ActorID == "" {
		return CallerContext{}, ErrBadToken
	}
	return CallerContext{
		ActorID:   claims.ActorID,
		ActorName: claims.Name,
		Role:      claims.Role,
		AuthToken: token,
	}, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Context helpers                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

type ctxKey string

const callerKey ctxKey = "caller"

// WithCaller returns a copy of ctx carrying c.
func WithCaller(ctx context.Context, c CallerContext) context.Context {
	return context.WithValue(ctx, callerKey, c)
}

// CallerFrom returns the caller stored on ctx, if any.
func CallerFrom(ctx context.Context) (CallerContext, bool) {
	c, ok := ctx.Value(callerKey).(CallerContext)
	if !ok || c.IsZero() {
		return CallerContext{}, false
	}
	return c, true
}

// WithTestCaller injects c into the request, bypassing token checks.
func WithTestCaller(r *http.Request, c CallerContext) *http.Request {
	return r.WithContext(WithCaller(r.Context(), c))
}

/*─────────────────────────────────────────────────────────────────────────────*
| Middleware                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

// LoadCaller decodes the bearer token, if present, and stores the caller on
// the request context. Bad tokens are logged and otherwise ignored here;
// RequireCaller rejects the request.
func (t *Tokens) LoadCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		c, err := t.Parse(token)
		if err != nil {
			t.log.Debug("caller token rejected",
				zap.Error(err),
				zap.String("path", r.URL.Path))
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), c)))
	})
}

// RequireCaller answers 401 unless LoadCaller found a valid caller.
func RequireCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CallerFrom(r.Context()); !ok {
			w.Header().Set("WWW-Authenticate", `Bearer realm="drivehub"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// RequireRole answers 403 unless the caller has one of roles. It expects
// RequireCaller (or an equivalent) to run first; without a caller it
// answers 401.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[strings.ToLower(r)] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, ok := CallerFrom(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if _, ok := allowed[strings.ToLower(c.Role)]; !ok {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
