package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/wolfman30/medcare-assistant/internal/identity"
	"github.com/wolfman30/medcare-assistant/internal/users"
	"github.com/wolfman30/medcare-assistant/pkg/logging"
)

const minPasswordLength = 8

// RegisterRequest is the registration body shared by all roles.
type RegisterRequest struct {
	Username       string `json:"username"`
	Password       string `json:"password"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	PhoneNumber    string `json:"phone_number,omitempty"`
	DOB            string `json:"dob,omitempty"`
	Specialization string `json:"specialization,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Service registers accounts and exchanges credentials for tokens.
type Service struct {
	repo   users.Repository
	hasher BcryptHasher
	tokens *TokenIssuer
	logger *logging.Logger
}

func NewService(repo users.Repository, hasher BcryptHasher, tokens *TokenIssuer, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, hasher: hasher, tokens: tokens, logger: logger}
}

func (s *Service) Register(ctx context.Context, role identity.Role, req RegisterRequest) (*users.Account, error) {
	if len(req.Password) < minPasswordLength {
		return nil, ErrWeakPassword
	}
	hashed, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}
	n := users.NewAccount{
		Role:           role,
		Username:       strings.TrimSpace(req.Username),
		HashedPassword: hashed,
		FirstName:      strings.TrimSpace(req.FirstName),
		LastName:       strings.TrimSpace(req.LastName),
		PhoneNumber:    strings.TrimSpace(req.PhoneNumber),
		Specialization: strings.TrimSpace(req.Specialization),
	}
	if req.DOB != "" {
		dob, err := time.Parse(time.DateOnly, req.DOB)
		if err != nil {
			return nil, errors.New("auth: dob must use the YYYY-MM-DD format")
		}
		n.DOB = &dob
	}

	acct, err := s.repo.CreateAccount(ctx, n)
	if err != nil {
		return nil, err
	}
	s.logger.Info("account registered", "role", role, "user_id", acct.ID)
	return acct, nil
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (Token, error) {
	role, err := identity.ParseRole(req.Role)
	if err != nil {
		return Token{}, ErrInvalidRole
	}
	acct, err := s.repo.FindAccount(ctx, role, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, users.ErrAccountNotFound) {
			s.logger.Warn("login failed: unknown user", "role", role)
			return Token{}, ErrInvalidCredentials
		}
		return Token{}, err
	}
	if err := s.hasher.Compare(acct.HashedPassword, req.Password); err != nil {
		s.logger.Warn("login failed: bad password", "role", role, "user_id", acct.ID)
		return Token{}, ErrInvalidCredentials
	}

	signed, expires, err := s.tokens.Issue(identity.Principal{UserID: acct.ID, Role: role})
	if err != nil {
		return Token{}, err
	}
	return Token{AccessToken: signed, TokenType: "bearer", ExpiresAt: expires}, nil
}
