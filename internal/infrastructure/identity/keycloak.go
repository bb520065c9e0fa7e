// Package identity implements the identity provider gateway against the
// Keycloak Admin REST API.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clubhub/user-service/internal/api/metrics"
	"github.com/clubhub/user-service/internal/core/domain"
	"github.com/clubhub/user-service/internal/core/ports"
)

const defaultTimeout = 10 * time.Second

// tokenLeeway is subtracted from the advertised token lifetime so a token is
// never used right at its expiry edge.
const tokenLeeway = 30 * time.Second

// Config captures the settings for the Keycloak admin connection.
type Config struct {
	BaseURL      string
	Realm        string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// KeycloakGateway talks to the Keycloak Admin API using a client_credentials
// service account. The admin token is cached behind a mutex until shortly
// before its expiry.
type KeycloakGateway struct {
	cfg        Config
	httpClient *http.Client
	log        zerolog.Logger

	mu          sync.Mutex
	adminToken  string
	tokenExpiry time.Time
}

// NewKeycloakGateway returns a gateway implementing ports.IdentityProvider.
func NewKeycloakGateway(cfg Config, log zerolog.Logger) *KeycloakGateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &KeycloakGateway{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

var _ ports.IdentityProvider = (*KeycloakGateway)(nil)

type credentialRepresentation struct {
	Type      string `json:"type"`
	Value     string `json:"value"`
	Temporary bool   `json:"temporary"`
}

type userRepresentation struct {
	Username      string                     `json:"username"`
	Email         string                     `json:"email"`
	FirstName     string                     `json:"firstName"`
	LastName      string                     `json:"lastName"`
	Enabled       bool                       `json:"enabled"`
	EmailVerified bool                       `json:"emailVerified"`
	Credentials   []credentialRepresentation `json:"credentials"`
}

type roleRepresentation struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CreateIdentity provisions a Keycloak user with a generated temporary
// password and assigns the requested realm role. The provider-issued id is
// taken from the trailing segment of the Location header and must be a UUID.
func (g *KeycloakGateway) CreateIdentity(ctx context.Context, in ports.NewIdentity) (string, string, error) {
	password, err := GeneratePassword()
	if err != nil {
		return "", "", g.failure("create_user", fmt.Errorf("generate password: %w", err))
	}

	rep := userRepresentation{
		Username:      in.Username,
		Email:         in.Email,
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		Enabled:       true,
		EmailVerified: true,
		Credentials: []credentialRepresentation{
			{Type: "password", Value: password, Temporary: true},
		},
	}

	resp, err := g.do(ctx, http.MethodPost, g.adminURL("/users"), rep)
	if err != nil {
		return "", "", g.failure("create_user", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", "", g.failure("create_user", statusError(resp))
	}

	location := resp.Header.Get("Location")
	id := location[strings.LastIndex(location, "/")+1:]
	if _, err := uuid.Parse(id); err != nil {
		return "", "", g.failure("create_user", fmt.Errorf("unparseable Location header %q", location))
	}

	if err := g.assignRealmRole(ctx, id, in.Role); err != nil {
		return "", "", err
	}

	g.log.Info().Str("identity_id", id).Str("username", in.Username).Msg("remote identity created")
	return id, password, nil
}

// UpdateIdentity round-trips the full remote representation so fields this
// service does not model are preserved, applying only the non-nil inputs.
func (g *KeycloakGateway) UpdateIdentity(ctx context.Context, id string, in ports.IdentityUpdate) error {
	resp, err := g.do(ctx, http.MethodGet, g.adminURL("/users/"+id), nil)
	if err != nil {
		return g.failure("update_user", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return g.failure("update_user", statusError(resp))
	}

	var rep map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&rep); err != nil {
		return g.failure("update_user", fmt.Errorf("decode representation: %w", err))
	}

	if in.Email != nil {
		rep["email"] = *in.Email
	}
	if in.FirstName != nil {
		rep["firstName"] = *in.FirstName
	}
	if in.LastName != nil {
		rep["lastName"] = *in.LastName
	}

	putResp, err := g.do(ctx, http.MethodPut, g.adminURL("/users/"+id), rep)
	if err != nil {
		return g.failure("update_user", err)
	}
	defer putResp.Body.Close()
	if putResp.StatusCode < 200 || putResp.StatusCode >= 300 {
		return g.failure("update_user", statusError(putResp))
	}
	return nil
}

// ResetCredential sets a permanent (non-temporary) password.
func (g *KeycloakGateway) ResetCredential(ctx context.Context, id string, newSecret string) error {
	cred := credentialRepresentation{Type: "password", Value: newSecret, Temporary: false}
	resp, err := g.do(ctx, http.MethodPut, g.adminURL("/users/"+id+"/reset-password"), cred)
	if err != nil {
		return g.failure("reset_password", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return g.failure("reset_password", statusError(resp))
	}
	return nil
}

// DeleteIdentity removes the remote identity. A 404 counts as success: the
// identity is already gone. The returned error is informational; callers
// swallow it.
func (g *KeycloakGateway) DeleteIdentity(ctx context.Context, id string) error {
	resp, err := g.do(ctx, http.MethodDelete, g.adminURL("/users/"+id), nil)
	if err != nil {
		return g.failure("delete_user", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return g.failure("delete_user", statusError(resp))
	}
	return nil
}

func (g *KeycloakGateway) assignRealmRole(ctx context.Context, id string, role domain.Role) error {
	roleName := strings.ToLower(string(role))

	resp, err := g.do(ctx, http.MethodGet, g.adminURL("/roles/"+roleName), nil)
	if err != nil {
		return g.failure("assign_role", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return g.failure("assign_role", statusError(resp))
	}

	var rep roleRepresentation
	if err := json.NewDecoder(resp.Body).Decode(&rep); err != nil {
		return g.failure("assign_role", fmt.Errorf("decode role: %w", err))
	}

	mapResp, err := g.do(ctx, http.MethodPost, g.adminURL("/users/"+id+"/role-mappings/realm"), []roleRepresentation{rep})
	if err != nil {
		return g.failure("assign_role", err)
	}
	defer mapResp.Body.Close()
	if mapResp.StatusCode < 200 || mapResp.StatusCode >= 300 {
		return g.failure("assign_role", statusError(mapResp))
	}
	return nil
}

// do issues an authenticated JSON request against the admin API.
func (g *KeycloakGateway) do(ctx context.Context, method, rawURL string, body any) (*http.Response, error) {
	token, err := g.token(ctx)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return g.httpClient.Do(req)
}

// token returns a cached admin token, fetching a fresh one via the
// client_credentials grant when the cache is empty or near expiry.
func (g *KeycloakGateway) token(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.adminToken != "" && time.Now().Before(g.tokenExpiry) {
		return g.adminToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", g.cfg.ClientID)
	form.Set("client_secret", g.cfg.ClientSecret)

	tokenURL := g.cfg.BaseURL + "/realms/" + g.cfg.Realm + "/protocol/openid-connect/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		metrics.IdentityProviderErrorsTotal.WithLabelValues("token").Inc()
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		metrics.IdentityProviderErrorsTotal.WithLabelValues("token").Inc()
		return "", fmt.Errorf("token request: %w", statusError(resp))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("token request: decode: %w", err)
	}

	g.adminToken = payload.AccessToken
	g.tokenExpiry = time.Now().Add(time.Duration(payload.ExpiresIn)*time.Second - tokenLeeway)
	return g.adminToken, nil
}

func (g *KeycloakGateway) adminURL(path string) string {
	return g.cfg.BaseURL + "/admin/realms/" + g.cfg.Realm + path
}

func (g *KeycloakGateway) failure(op string, err error) error {
	metrics.IdentityProviderErrorsTotal.WithLabelValues(op).Inc()
	return &domain.IdentityProviderError{Op: strings.ReplaceAll(op, "_", " "), Err: err}
}

// statusError renders a non-success HTTP response as an error, keeping the
// response body as detail.
func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	detail := strings.TrimSpace(string(body))
	if detail == "" {
		detail = "no body"
	}
	return fmt.Errorf("status %d: %s", resp.StatusCode, detail)
}
