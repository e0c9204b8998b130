package service

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"slices"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/codingrush01/murlidhar-mobiles/internal/access"
	"github.com/codingrush01/murlidhar-mobiles/internal/domain"
	"github.com/codingrush01/murlidhar-mobiles/internal/store"
	"github.com/codingrush01/murlidhar-mobiles/internal/xid"
)

const (
	maxOwners       = 3
	maxStaff        = 3
	tempPasswordLen = 8
	passwordChars   = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789"
)

func (s *Service) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if err := access.RequireManageUsers(actor); err != nil {
		return nil, err
	}
	users, err := listAll[domain.UserAccount](ctx, s.docs, domain.CollectionUsers, store.Query{})
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i] = users[i].Public()
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int { return strings.Compare(a.Email, b.Email) })
	return users, nil
}

// CreateUser adds an account with a generated temporary password that is
// returned once.
func (s *Service) CreateUser(ctx context.Context, req domain.UserCreateRequest) (domain.UserCreateResponse, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return domain.UserCreateResponse{}, err
	}
	if err := access.RequireManageUsers(actor); err != nil {
		return domain.UserCreateResponse{}, err
	}

	user := domain.UserAccount{
		Name:   strings.TrimSpace(req.Name),
		Email:  normalizeEmail(req.Email),
		Role:   defaultString(strings.ToLower(strings.TrimSpace(req.Role)), domain.RoleStaff),
		ShopID: strings.TrimSpace(req.ShopID),
		Status: "active",
	}
	if user.Name == "" {
		return domain.UserCreateResponse{}, domain.Validation("name is required")
	}

	switch user.Role {
	case domain.RoleAdmin:
		user.ShopID = ""
	case domain.RoleOwner, domain.RoleStaff:
		if user.ShopID == "" {
			return domain.UserCreateResponse{}, domain.Validation("shop is required for owner and staff")
		}
		var shop domain.Shop
		if err := s.getDoc(ctx, domain.CollectionShops, user.ShopID, "shop", &shop); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.UserCreateResponse{}, domain.Validation("unknown shop")
			}
			return domain.UserCreateResponse{}, err
		}
		if user.Role == domain.RoleOwner && user.Email == "" {
			user.Email = normalizeEmail(shop.Email)
		}
	default:
		return domain.UserCreateResponse{}, domain.Validation("role must be admin, owner or staff")
	}
	if user.Email == "" {
		return domain.UserCreateResponse{}, domain.Validation("email is required")
	}

	if err := s.checkUserLimits(ctx, user); err != nil {
		return domain.UserCreateResponse{}, err
	}

	password, err := tempPassword()
	if err != nil {
		return domain.UserCreateResponse{}, domain.StoreFailure(err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.UserCreateResponse{}, domain.StoreFailure(err)
	}
	user.PasswordHash = string(hash)
	user.ID = xid.New("user")
	user.CreatedAt = s.now()

	fields, err := store.Encode(user)
	if err != nil {
		return domain.UserCreateResponse{}, domain.StoreFailure(err)
	}
	if err := s.docs.Upsert(ctx, domain.CollectionUsers, user.ID, fields, false); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return domain.UserCreateResponse{}, domain.Conflict("email already exists")
		}
		return domain.UserCreateResponse{}, domain.StoreFailure(err)
	}

	s.logAudit(ctx, user.ShopID, "user_create", "user", user.ID, "email="+user.Email+",role="+user.Role)
	return domain.UserCreateResponse{User: user.Public(), TempPassword: password}, nil
}

// checkUserLimits is a read-before-write check; two concurrent creates can
// both pass it.
func (s *Service) checkUserLimits(ctx context.Context, user domain.UserAccount) error {
	existing, err := listAll[domain.UserAccount](ctx, s.docs, domain.CollectionUsers, store.Query{
		Filters: []store.Filter{store.Where("email", store.OpEqual, user.Email)},
		Limit:   1,
	})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return domain.Conflict("email already exists")
	}

	limit, msg := 0, ""
	switch user.Role {
	case domain.RoleOwner:
		limit, msg = maxOwners, "max 3 owners allowed"
	case domain.RoleStaff:
		limit, msg = maxStaff, "max 3 staff allowed"
	default:
		return nil
	}
	sameRole, err := listAll[domain.UserAccount](ctx, s.docs, domain.CollectionUsers, store.Query{
		Filters: []store.Filter{store.Where("role", store.OpEqual, user.Role)},
	})
	if err != nil {
		return err
	}
	if len(sameRole) >= limit {
		return domain.Conflict(msg)
	}
	return nil
}

func (s *Service) RemoveUser(ctx context.Context, id string) error {
	actor, err := requireActor(ctx)
	if err != nil {
		return err
	}
	if err := access.RequireManageUsers(actor); err != nil {
		return err
	}
	if id == actor.UserID {
		return domain.Validation("you cannot remove yourself")
	}
	var user domain.UserAccount
	if err := s.getDoc(ctx, domain.CollectionUsers, id, "user", &user); err != nil {
		return err
	}
	if normalizeEmail(user.Email) == normalizeEmail(actor.Email) {
		return domain.Validation("you cannot remove yourself")
	}
	if err := s.docs.Delete(ctx, domain.CollectionUsers, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.NotFound("user not found")
		}
		return domain.StoreFailure(err)
	}
	s.logAudit(ctx, user.ShopID, "user_remove", "user", id, "email="+user.Email)
	return nil
}

// EnsureAdmin creates the bootstrap admin and the global settings document
// when they are missing. It is safe to call on every start.
func (s *Service) EnsureAdmin(ctx context.Context, email string, password string) (bool, error) {
	if _, err := s.docs.Get(ctx, domain.CollectionSettings, domain.SettingsGlobalID); errors.Is(err, store.ErrNotFound) {
		if err := s.settings.Update(ctx, s.settings.Current()); err != nil {
			return false, err
		}
	} else if err != nil {
		return false, domain.StoreFailure(err)
	}

	email = normalizeEmail(email)
	if email == "" || password == "" {
		return false, domain.Validation("bootstrap admin email and password are required")
	}
	if _, err := s.FindAccount(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, domain.ErrPermission) {
		return false, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, domain.StoreFailure(err)
	}
	admin := domain.UserAccount{
		Name:         "Admin",
		Email:        email,
		Role:         domain.RoleAdmin,
		Status:       "active",
		PasswordHash: string(hash),
		CreatedAt:    s.now(),
	}
	if err := s.docs.Upsert(ctx, domain.CollectionUsers, xid.New("user"), store.MustEncode(admin), false); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return false, nil
		}
		return false, domain.StoreFailure(err)
	}
	s.log.Info("bootstrap admin created")
	return true, nil
}

func tempPassword() (string, error) {
	var sb strings.Builder
	max := big.NewInt(int64(len(passwordChars)))
	for range tempPasswordLen {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		sb.WriteByte(passwordChars[n.Int64()])
	}
	return sb.String(), nil
}
