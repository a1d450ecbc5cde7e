package mockapi

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/cmp-client/users"
	"golang.org/x/crypto/bcrypt"
)

var (
	errUserExists   = errors.New("user already registered")
	errUserNotFound = errors.New("not found")
)

type account struct {
	profile      users.Profile
	passwordHash string
}

// userRepo is an in-memory account table keyed by email.
type userRepo struct {
	lock     sync.RWMutex
	accounts map[string]*account // email to account
}

func newUserRepo() *userRepo {
	return &userRepo{accounts: make(map[string]*account)}
}

func hashPassword(password string) (string, error) {
	// MinCost keeps tests fast; this server never holds real credentials
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return string(bytes), err
}

func (ur *userRepo) create(email, password string, role users.RoleType, now time.Time) (*users.Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	ur.lock.Lock()
	defer ur.lock.Unlock()

	if _, ok := ur.accounts[email]; ok {
		return nil, errUserExists
	}
	acc := &account{
		profile: users.Profile{
			ID:        uuid.New(),
			Email:     email,
			RoleID:    role,
			CreatedAt: now.UTC(),
		},
		passwordHash: hash,
	}
	ur.accounts[email] = acc
	p := acc.profile
	return &p, nil
}

// authenticate returns the profile when password matches.
func (ur *userRepo) authenticate(email, password string) (*users.Profile, bool) {
	ur.lock.RLock()
	acc, ok := ur.accounts[strings.ToLower(strings.TrimSpace(email))]
	ur.lock.RUnlock()
	if !ok {
		return nil, false
	}
	if bcrypt.CompareHashAndPassword([]byte(acc.passwordHash), []byte(password)) != nil {
		return nil, false
	}
	p := acc.profile
	return &p, true
}

func (ur *userRepo) getByID(id string) (*users.Profile, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	for _, acc := range ur.accounts {
		if acc.profile.ID.String() == id {
			p := acc.profile
			return &p, nil
		}
	}
	return nil, errUserNotFound
}

func (ur *userRepo) setRole(email string, role users.RoleType) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	acc, ok := ur.accounts[strings.ToLower(email)]
	if !ok {
		return errUserNotFound
	}
	acc.profile.RoleID = role
	return nil
}

func (ur *userRepo) list() []users.Profile {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	out := make([]users.Profile, 0, len(ur.accounts))
	for _, acc := range ur.accounts {
		out = append(out, acc.profile)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Email < out[j].Email
	})
	return out
}
