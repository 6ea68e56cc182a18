// Package auth emite e valida credenciais de conta: registro e login com
// senha, e o login externo via OAuth da plataforma, com state de uso único
// guardado em um store com TTL.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/open-pageflow/pageflow/internal/pkg/statestore"
	"github.com/open-pageflow/pageflow/internal/storage"
	"github.com/open-pageflow/pageflow/internal/storage/model"
)

var (
	ErrEmailTaken         = errors.New("email já cadastrado")
	ErrInvalidCredentials = errors.New("credenciais inválidas")
	ErrInvalidState       = errors.New("state de login inválido ou expirado")
)

const stateTTL = 10 * time.Minute

// FacebookOAuth reúne as credenciais do login externo.
type FacebookOAuth struct {
	AppID        string
	AppSecret    string
	RedirectURL  string
	GraphBaseURL string
}

type Service struct {
	accounts storage.AccountRepository
	states   statestore.Store
	secret   string
	expHours int
	oauth    FacebookOAuth
	http     *http.Client
	log      *zap.Logger
}

func NewService(accounts storage.AccountRepository, states statestore.Store, secret string, expHours int, oauth FacebookOAuth, log *zap.Logger) *Service {
	if expHours <= 0 {
		expHours = 720
	}
	return &Service{
		accounts: accounts,
		states:   states,
		secret:   secret,
		expHours: expHours,
		oauth:    oauth,
		http:     &http.Client{Timeout: 10 * time.Second},
		log:      log,
	}
}

func (s *Service) Register(ctx context.Context, email, password, name string) (model.Account, string, error) {
	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return model.Account{}, "", ErrEmailTaken
	} else if !errors.Is(err, storage.ErrNotFound) {
		return model.Account{}, "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return model.Account{}, "", fmt.Errorf("auth: hash de senha: %w", err)
	}

	account, err := s.accounts.Create(ctx, model.Account{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
	})
	if err != nil {
		return model.Account{}, "", err
	}

	token, err := s.issueToken(account.ID)
	if err != nil {
		return model.Account{}, "", err
	}
	return account, token, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (model.Account, string, error) {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.Account{}, "", ErrInvalidCredentials
		}
		return model.Account{}, "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return model.Account{}, "", ErrInvalidCredentials
	}

	token, err := s.issueToken(account.ID)
	if err != nil {
		return model.Account{}, "", err
	}
	return account, token, nil
}

func (s *Service) Me(ctx context.Context, accountID string) (model.Account, error) {
	return s.accounts.GetByID(ctx, accountID)
}

func (s *Service) issueToken(accountID string) (string, error) {
	claims := jwt.MapClaims{
		"sub": accountID,
		"exp": time.Now().Add(time.Duration(s.expHours) * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.secret))
	if err != nil {
		return "", fmt.Errorf("auth: assinar token: %w", err)
	}
	return signed, nil
}

// FacebookLoginURL registra um state de uso único e monta a URL do diálogo
// de login da plataforma.
func (s *Service) FacebookLoginURL(ctx context.Context) (string, error) {
	state := uuid.NewString()
	if err := s.states.Put(ctx, state, stateTTL); err != nil {
		return "", fmt.Errorf("auth: registrar state: %w", err)
	}

	params := url.Values{}
	params.Set("client_id", s.oauth.AppID)
	params.Set("redirect_uri", s.oauth.RedirectURL)
	params.Set("state", state)
	params.Set("scope", "email,public_profile")

	return "https://www.facebook.com/v19.0/dialog/oauth?" + params.Encode(), nil
}

// FacebookCallback consome o state, troca o code por uma identidade da
// plataforma e resolve (ou cria) a conta correspondente.
func (s *Service) FacebookCallback(ctx context.Context, state, code string) (model.Account, string, error) {
	valid, err := s.states.Consume(ctx, state)
	if err != nil {
		return model.Account{}, "", fmt.Errorf("auth: consumir state: %w", err)
	}
	if !valid {
		return model.Account{}, "", ErrInvalidState
	}

	accessToken, err := s.exchangeCode(ctx, code)
	if err != nil {
		return model.Account{}, "", err
	}

	identity, err := s.fetchIdentity(ctx, accessToken)
	if err != nil {
		return model.Account{}, "", err
	}

	account, err := s.accounts.GetByFacebookID(ctx, identity.ID)
	if errors.Is(err, storage.ErrNotFound) {
		account, err = s.accounts.Create(ctx, model.Account{
			ID:         uuid.NewString(),
			Email:      identity.Email,
			Name:       identity.Name,
			FacebookID: identity.ID,
		})
	}
	if err != nil {
		return model.Account{}, "", err
	}

	token, err := s.issueToken(account.ID)
	if err != nil {
		return model.Account{}, "", err
	}
	return account, token, nil
}

func (s *Service) exchangeCode(ctx context.Context, code string) (string, error) {
	params := url.Values{}
	params.Set("client_id", s.oauth.AppID)
	params.Set("client_secret", s.oauth.AppSecret)
	params.Set("redirect_uri", s.oauth.RedirectURL)
	params.Set("code", code)

	endpoint := s.oauth.GraphBaseURL + "/oauth/access_token?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("auth: oauth request: %w", err)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("auth: troca de code: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("auth: troca de code: status %d: %s", resp.StatusCode, string(detail))
	}

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("auth: troca de code: decode: %w", err)
	}
	return out.AccessToken, nil
}

type facebookIdentity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (s *Service) fetchIdentity(ctx context.Context, accessToken string) (facebookIdentity, error) {
	endpoint := fmt.Sprintf("%s/me?fields=id,name,email&access_token=%s", s.oauth.GraphBaseURL, url.QueryEscape(accessToken))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return facebookIdentity{}, fmt.Errorf("auth: identity request: %w", err)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return facebookIdentity{}, fmt.Errorf("auth: buscar identidade: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return facebookIdentity{}, fmt.Errorf("auth: buscar identidade: status %d: %s", resp.StatusCode, string(detail))
	}

	var identity facebookIdentity
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		return facebookIdentity{}, fmt.Errorf("auth: buscar identidade: decode: %w", err)
	}
	return identity, nil
}
