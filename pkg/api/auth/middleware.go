package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/f1plots/f1dash-service-manager-go/log"
	"github.com/f1plots/f1dash-service-manager-go/pkg/utils"
)

type (
	// AuthenticationProvider resolves the request headers into an
	// Authentication. Returning nil (without error) passes the request on
	// to the next provider in the chain.
	AuthenticationProvider interface {
		Authenticate(ctx context.Context, h http.Header) (Authentication, error)
	}

	Middleware struct {
		adminHash    string
		providerHash string
		authProvider []AuthenticationProvider
		l            *log.Logger
	}
	Option func(*Middleware)
)

func NewMiddleware(opts ...Option) *Middleware {
	ret := &Middleware{
		l: log.Default().Named("api.auth"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	ret.authProvider = []AuthenticationProvider{
		&apiKeyAuthenticator{adminHash: ret.adminHash, providerHash: ret.providerHash},
		&anonymousAuthenticator{},
	}
	return ret
}

// WithAdminToken registers the admin token. Only the hash is kept.
func WithAdminToken(token string) Option {
	return func(m *Middleware) {
		if token != "" {
			m.adminHash = utils.HashAPIKey(token)
		}
	}
}

// WithProviderToken registers the provider token. Only the hash is kept.
func WithProviderToken(token string) Option {
	return func(m *Middleware) {
		if token != "" {
			m.providerHash = utils.HashAPIKey(token)
		}
	}
}

type AuthHolder struct {
	auth Authentication
}

type SimpleAuth struct {
	Authentication
	principal Principal
	roles     []Role
}
type SimplePrincipal struct {
	Principal
	name string
}

func (s *SimplePrincipal) Name() string {
	return s.name
}

func (s *SimpleAuth) Principal() Principal {
	return s.principal
}

func (s *SimpleAuth) Roles() []Role {
	return s.roles
}

var anon = &SimpleAuth{principal: &SimplePrincipal{name: "anon"}, roles: []Role{}}

type myCtxTypeKey int

func FromContext(ctx *context.Context) Authentication {
	if ctx == nil {
		return nil
	}
	if val, ok := (*ctx).Value(myCtxTypeKey(0)).(*AuthHolder); ok {
		return val.auth
	}
	return nil
}

// Wrap resolves the authentication for each request and stores it in the
// request context before calling the next handler.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(m.handleAuth(r.Context(), r.Header)))
	})
}

//nolint:lll // better readability
func (m *Middleware) handleAuth(ctx context.Context, h http.Header) context.Context {
	for _, p := range m.authProvider {
		a, err := p.Authenticate(ctx, h)
		if a != nil {
			return context.WithValue(ctx, myCtxTypeKey(0), &AuthHolder{auth: a})
		}
		if err != nil {
			m.l.Error("error authenticating", log.ErrorField(err))
		}
	}
	// if no auth found, continue with current context
	return ctx
}

// bearerToken extracts the token of an "Authorization: Bearer <token>"
// header. Empty string when the header is absent or not a bearer scheme.
func bearerToken(h http.Header) string {
	val := h.Get("Authorization")
	if token, ok := strings.CutPrefix(val, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

type (
	anonymousAuthenticator struct{}
	apiKeyAuthenticator    struct {
		adminHash    string
		providerHash string
	}
)

//nolint:whitespace // editor/linter issue
func (a *anonymousAuthenticator) Authenticate(
	ctx context.Context,
	h http.Header,
) (Authentication, error) {
	return anon, nil
}

//nolint:whitespace // editor/linter issue
func (a *apiKeyAuthenticator) Authenticate(
	ctx context.Context,
	h http.Header,
) (Authentication, error) {
	token := bearerToken(h)
	if token == "" {
		return nil, nil
	}
	hashed := utils.HashAPIKey(token)
	if a.adminHash != "" && hashed == a.adminHash {
		return &SimpleAuth{
			principal: &SimplePrincipal{name: "admin"},
			roles:     []Role{RoleAdmin},
		}, nil
	}
	if a.providerHash != "" && hashed == a.providerHash {
		return &SimpleAuth{
			principal: &SimplePrincipal{name: "provider"},
			roles:     []Role{RoleProvider},
		}, nil
	}
	return nil, nil
}
