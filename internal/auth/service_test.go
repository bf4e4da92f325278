package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"backend-lanewatch/pkg/e"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"golang.org/x/crypto/bcrypt"
)

var pgErr = &pgconn.PgError{Code: "XX000", Message: "internal"}

var userColumns = []string{"id", "username", "password", "name"}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func TestRegisterAndLogin(t *testing.T) {
	mock := newMock(t)

	mock.ExpectQuery(`SELECT id, username, password, name`).
		WithArgs("alice").
		WillReturnRows(pgxmock.NewRows(userColumns))
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("alice", pgxmock.AnyArg(), "Alice").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))

	svc := NewService("test-secret", time.Hour, mock)
	user, err := svc.Register(context.Background(), RegisterRequest{Name: "Alice", Username: "alice", Password: "pw"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.ID != 7 || user.Password != "" {
		t.Fatalf("unexpected user %+v", user)
	}

	hash, _ := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	mock.ExpectQuery(`SELECT id, username, password, name`).
		WithArgs("alice").
		WillReturnRows(pgxmock.NewRows(userColumns).AddRow(int64(7), "alice", string(hash), "Alice"))

	resp, err := svc.Login(context.Background(), LoginRequest{Username: "alice", Password: "pw"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := svc.ValidateAccessToken(resp.Token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != 7 || claims.Subject != "alice" || claims.ID == "" {
		t.Fatalf("unexpected claims %+v", claims)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRegisterValidationMessages(t *testing.T) {
	svc := NewService("secret", time.Hour, nil)

	_, err := svc.Register(context.Background(), RegisterRequest{Name: "alice", Username: "1bad", Password: ""})
	var ve *e.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	want := []string{
		"name must be capitalized and must contain only letters",
		"username must be alphanumeric and start with a letter",
		"password cannot be null",
	}
	if len(ve.Problems) != len(want) {
		t.Fatalf("unexpected problems %v", ve.Problems)
	}
	for i := range want {
		if ve.Problems[i] != want[i] {
			t.Fatalf("problem %d: expected %q, got %q", i, want[i], ve.Problems[i])
		}
	}
}

func TestRegisterExistingUsername(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT id, username, password, name`).
		WithArgs("alice").
		WillReturnRows(pgxmock.NewRows(userColumns).AddRow(int64(1), "alice", "x", "Alice"))

	svc := NewService("secret", time.Hour, mock)
	_, err := svc.Register(context.Background(), RegisterRequest{Name: "Alice", Username: "alice", Password: "pw"})
	if !errors.Is(err, e.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRegisterUniqueViolationIsConflict(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT id, username, password, name`).
		WithArgs("alice").
		WillReturnRows(pgxmock.NewRows(userColumns))
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("alice", pgxmock.AnyArg(), "Alice").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	svc := NewService("secret", time.Hour, mock)
	_, err := svc.Register(context.Background(), RegisterRequest{Name: "Alice", Username: "alice", Password: "pw"})
	if !errors.Is(err, e.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRegisterHashError(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT id, username, password, name`).
		WithArgs("alice").
		WillReturnRows(pgxmock.NewRows(userColumns))

	orig := hashPasswordFn
	hashPasswordFn = func([]byte, int) ([]byte, error) { return nil, errors.New("hash fail") }
	defer func() { hashPasswordFn = orig }()

	svc := NewService("secret", time.Hour, mock)
	if _, err := svc.Register(context.Background(), RegisterRequest{Name: "Alice", Username: "alice", Password: "pw"}); err == nil {
		t.Fatalf("expected hash error")
	}
}

func TestRegisterLookupError(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT id, username, password, name`).
		WithArgs("alice").
		WillReturnError(pgErr)

	svc := NewService("secret", time.Hour, mock)
	_, err := svc.Register(context.Background(), RegisterRequest{Name: "Alice", Username: "alice", Password: "pw"})
	if !errors.Is(err, e.ErrDataAccess) {
		t.Fatalf("expected data access error, got %v", err)
	}
}

func TestLoginFailures(t *testing.T) {
	mock := newMock(t)
	svc := NewService("secret", time.Hour, mock)

	if _, err := svc.Login(context.Background(), LoginRequest{Username: "alice"}); !errors.Is(err, e.ErrInvalidInput) {
		t.Fatalf("expected missing credentials, got %v", err)
	}

	mock.ExpectQuery(`SELECT id, username, password, name`).
		WithArgs("ghost").
		WillReturnRows(pgxmock.NewRows(userColumns))
	if _, err := svc.Login(context.Background(), LoginRequest{Username: "ghost", Password: "pw"}); !errors.Is(err, e.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for unknown user, got %v", err)
	}

	hash, _ := bcrypt.GenerateFromPassword([]byte("correct"), bcrypt.MinCost)
	mock.ExpectQuery(`SELECT id, username, password, name`).
		WithArgs("alice").
		WillReturnRows(pgxmock.NewRows(userColumns).AddRow(int64(1), "alice", string(hash), "Alice"))
	_, err := svc.Login(context.Background(), LoginRequest{Username: "alice", Password: "wrong"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if err.Error() != "login failed! incorrect username or password" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestLoginSignError(t *testing.T) {
	mock := newMock(t)
	hash, _ := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	mock.ExpectQuery(`SELECT id, username, password, name`).
		WithArgs("alice").
		WillReturnRows(pgxmock.NewRows(userColumns).AddRow(int64(1), "alice", string(hash), "Alice"))

	orig := signTokenFn
	signTokenFn = func(*Service, User, time.Duration) (string, error) { return "", errors.New("sign fail") }
	defer func() { signTokenFn = orig }()

	svc := NewService("secret", time.Hour, mock)
	if _, err := svc.Login(context.Background(), LoginRequest{Username: "alice", Password: "pw"}); err == nil {
		t.Fatalf("expected sign error")
	}
}

func TestCurrentUser(t *testing.T) {
	mock := newMock(t)
	svc := NewService("secret", time.Hour, mock)

	if _, err := svc.CurrentUser(context.Background(), ""); !errors.Is(err, e.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}

	mock.ExpectQuery(`SELECT id, username, password, name`).
		WithArgs("alice").
		WillReturnRows(pgxmock.NewRows(userColumns).AddRow(int64(3), "alice", "hash", "Alice"))
	user, err := svc.CurrentUser(context.Background(), "alice")
	if err != nil {
		t.Fatalf("current user: %v", err)
	}
	if user.ID != 3 || user.Password != "" {
		t.Fatalf("unexpected user %+v", user)
	}

	mock.ExpectQuery(`SELECT id, username, password, name`).
		WithArgs("ghost").
		WillReturnRows(pgxmock.NewRows(userColumns))
	if _, err := svc.CurrentUser(context.Background(), "ghost"); !errors.Is(err, e.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestValidateAccessTokenRejects(t *testing.T) {
	svc := NewService("secret", time.Hour, nil)

	if _, err := svc.ValidateAccessToken("bad"); !errors.Is(err, e.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}

	expired, _ := svc.signToken(User{ID: 1, Username: "alice"}, -time.Minute)
	if _, err := svc.ValidateAccessToken(expired); err == nil {
		t.Fatalf("expected expired token to fail")
	}

	other := NewService("other", time.Hour, nil)
	foreign, _ := other.signToken(User{ID: 1, Username: "alice"}, time.Hour)
	if _, err := svc.ValidateAccessToken(foreign); err == nil {
		t.Fatalf("expected foreign signature to fail")
	}

	noUser, _ := svc.signToken(User{Username: "alice"}, time.Hour)
	if _, err := svc.ValidateAccessToken(noUser); err == nil {
		t.Fatalf("expected token without user id to fail")
	}
}

func TestValidateAccessTokenParseError(t *testing.T) {
	orig := parseWithClaimsFn
	parseWithClaimsFn = func(string, jwt.Claims, jwt.Keyfunc, ...jwt.ParserOption) (*jwt.Token, error) {
		return nil, errors.New("parse fail")
	}
	defer func() { parseWithClaimsFn = orig }()

	svc := NewService("secret", time.Hour, nil)
	if _, err := svc.ValidateAccessToken("anything"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected invalid token, got %v", err)
	}
}

func TestNewServiceDefaultTTL(t *testing.T) {
	svc := NewService("secret", 0, nil)
	if svc.ttl != defaultTokenTTL {
		t.Fatalf("expected default ttl, got %v", svc.ttl)
	}
}
