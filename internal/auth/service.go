package auth

import (
	"context"
	"errors"
	"time"

	"backend-lanewatch/internal/db"
	"backend-lanewatch/pkg/e"
	pkgvalidator "backend-lanewatch/pkg/validator"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

const defaultTokenTTL = 6 * time.Hour

var (
	ErrInvalidCredentials = e.Kind(e.ErrUnauthorized, "login failed! incorrect username or password")
	ErrUserExists         = e.Kind(e.ErrConflict, "username already exists")
	ErrUserNotFound       = e.Kind(e.ErrNotFound, "user not found")
	ErrMissingCredentials = e.Kind(e.ErrInvalidInput, "missing username or password")
	ErrTokenInvalid       = e.Kind(e.ErrUnauthorized, "invalid or expired token")
)

var registerMessages = map[string]string{
	"Name":     "name must be capitalized and must contain only letters",
	"Username": "username must be alphanumeric and start with a letter",
	"Password": "password cannot be null",
}

var (
	hashPasswordFn    = bcrypt.GenerateFromPassword
	parseWithClaimsFn = jwt.ParseWithClaims
	signTokenFn       = (*Service).signToken
)

type Service struct {
	secret   []byte
	ttl      time.Duration
	db       db.Querier
	validate *validator.Validate
}

type Claims struct {
	UserID int64 `json:"userId"`
	jwt.RegisteredClaims
}

func NewService(secret string, ttl time.Duration, db db.Querier) *Service {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &Service{
		secret:   []byte(secret),
		ttl:      ttl,
		db:       db,
		validate: pkgvalidator.New(),
	}
}

// Register creates an account. The returned user never carries the password hash.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (User, error) {
	const op = "auth.Service.Register"

	if err := s.validateRegister(req); err != nil {
		return User{}, err
	}

	if _, err := s.findByUsername(ctx, req.Username); err == nil {
		return User{}, ErrUserExists
	} else if !errors.Is(err, e.ErrNotFound) {
		return User{}, e.DataAccess(op, err)
	}

	hash, err := hashPasswordFn([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	user := User{Username: req.Username, Name: req.Name}
	row := s.db.QueryRow(ctx, `
		INSERT INTO users (username, password, name)
		VALUES ($1,$2,$3)
		RETURNING id
	`, user.Username, string(hash), user.Name)
	if err := row.Scan(&user.ID); err != nil {
		err = e.WrapError(ctx, op, err)
		if errors.Is(err, e.ErrUniqueViolation) {
			return User{}, ErrUserExists
		}
		return User{}, e.DataAccess(op, err)
	}
	return user, nil
}

// Login checks the credentials and issues an access token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (TokenResponse, error) {
	const op = "auth.Service.Login"

	if req.Username == "" || req.Password == "" {
		return TokenResponse{}, ErrMissingCredentials
	}

	user, err := s.findByUsername(ctx, req.Username)
	if errors.Is(err, e.ErrNotFound) {
		return TokenResponse{}, ErrInvalidCredentials
	}
	if err != nil {
		return TokenResponse{}, e.DataAccess(op, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return TokenResponse{}, ErrInvalidCredentials
	}

	token, err := signTokenFn(s, user, s.ttl)
	if err != nil {
		return TokenResponse{}, err
	}
	return TokenResponse{Token: token}, nil
}

// CurrentUser resolves the username carried by a verified token.
func (s *Service) CurrentUser(ctx context.Context, username string) (User, error) {
	const op = "auth.Service.CurrentUser"

	if username == "" {
		return User{}, e.ErrUnauthorized
	}
	user, err := s.findByUsername(ctx, username)
	if errors.Is(err, e.ErrNotFound) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, e.DataAccess(op, err)
	}
	user.Password = ""
	return user, nil
}

func (s *Service) ValidateAccessToken(token string) (*Claims, error) {
	return s.parseToken(token)
}

func (s *Service) validateRegister(req RegisterRequest) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, registerMessages[fe.Field()])
	}
	return e.NewValidationError(problems...)
}

func (s *Service) findByUsername(ctx context.Context, username string) (User, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, username, password, name
		FROM users WHERE username = $1
	`, username)

	var user User
	if err := row.Scan(&user.ID, &user.Username, &user.Password, &user.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, e.ErrNotFound
		}
		return User{}, err
	}
	return user, nil
}

func (s *Service) signToken(user User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: user.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.Username,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *Service) parseToken(token string) (*Claims, error) {
	parsed, err := parseWithClaimsFn(token, &Claims{}, func(_ *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, ErrTokenInvalid
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.UserID <= 0 {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
