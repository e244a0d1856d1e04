package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"taskman/internal/taskapi/domain"
)

type fakeUserRepo struct {
	byID    map[string]domain.User
	byEmail map[string]domain.User
	err     error
}

func newFakeUserRepo(users ...domain.User) *fakeUserRepo {
	r := &fakeUserRepo{byID: make(map[string]domain.User), byEmail: make(map[string]domain.User)}
	for _, u := range users {
		r.byID[u.ID] = u
		r.byEmail[u.Email] = u
	}
	return r
}

func (r *fakeUserRepo) Create(_ context.Context, user domain.User) error {
	if r.err != nil {
		return r.err
	}
	r.byID[user.ID] = user
	r.byEmail[user.Email] = user
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	if r.err != nil {
		return nil, r.err
	}
	u, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	if r.err != nil {
		return nil, r.err
	}
	u, ok := r.byEmail[email]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func testUserService(repo *fakeUserRepo) *UserService {
	return NewUserService(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func hashOf(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(h)
}

func TestRegisterStoresHashedPassword(t *testing.T) {
	repo := newFakeUserRepo()
	svc := testUserService(repo)

	user, err := svc.Register(context.Background(), RegisterInput{
		Name:     "John Doe",
		Email:    "John@Example.com",
		Password: "password",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Email != "john@example.com" {
		t.Fatalf("email = %q, want lowercased", user.Email)
	}
	if user.PasswordHash == "password" || user.PasswordHash == "" {
		t.Fatalf("password stored without hashing")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("password")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	repo := newFakeUserRepo(domain.User{ID: "U1", Email: "john@example.com", Active: true})
	svc := testUserService(repo)

	_, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Other John",
		Email:    "john@example.com",
		Password: "password",
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	svc := testUserService(newFakeUserRepo())

	_, err := svc.Register(context.Background(), RegisterInput{Name: "a", Email: "a@b.com", Password: "abc"})
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestGetMissingUserIsNotFound(t *testing.T) {
	svc := testUserService(newFakeUserRepo())

	if _, err := svc.Get(context.Background(), "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestValidateCredentialsAccepted(t *testing.T) {
	repo := newFakeUserRepo(domain.User{
		ID:           "U1",
		Name:         "John Doe",
		Email:        "john@example.com",
		PasswordHash: hashOf(t, "password"),
		Active:       true,
	})
	svc := testUserService(repo)

	res := svc.ValidateCredentials(context.Background(), "John@Example.com", "password")
	if !res.IsValid {
		t.Fatalf("expected valid result, got %+v", res)
	}
	if res.UserID != "U1" || res.Name != "John Doe" || res.Email != "john@example.com" {
		t.Fatalf("unexpected identity payload: %+v", res)
	}
	if res.ErrorMessage != "" {
		t.Fatalf("valid result must not carry an error message")
	}
}

func TestValidateCredentialsRejectionsAreUniform(t *testing.T) {
	repo := newFakeUserRepo(
		domain.User{ID: "U1", Email: "john@example.com", PasswordHash: hashOf(t, "password"), Active: true},
		domain.User{ID: "U2", Email: "gone@example.com", PasswordHash: hashOf(t, "password"), Active: false},
	)
	svc := testUserService(repo)

	cases := []struct {
		name       string
		identifier string
		password   string
	}{
		{"unknown user", "nobody@example.com", "password"},
		{"wrong password", "john@example.com", "wrong"},
		{"inactive user", "gone@example.com", "password"},
		{"empty password", "john@example.com", ""},
	}

	var messages []string
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := svc.ValidateCredentials(context.Background(), tc.identifier, tc.password)
			if res.IsValid {
				t.Fatalf("expected rejection")
			}
			if res.UserID != "" || res.Name != "" || res.Email != "" {
				t.Fatalf("rejection leaked identity: %+v", res)
			}
			if res.ErrorMessage == "" {
				t.Fatalf("rejection missing message")
			}
			messages = append(messages, res.ErrorMessage)
		})
	}
	for _, m := range messages {
		if m != messages[0] {
			t.Fatalf("rejection messages differ: %q vs %q", messages[0], m)
		}
	}
}

func TestValidateCredentialsLookupFailureRejects(t *testing.T) {
	repo := newFakeUserRepo()
	repo.err = errors.New("connection refused")
	svc := testUserService(repo)

	res := svc.ValidateCredentials(context.Background(), "john@example.com", "password")
	if res.IsValid {
		t.Fatalf("store failure must not validate")
	}
}
