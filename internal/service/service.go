package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/codingrush01/murlidhar-mobiles/internal/access"
	"github.com/codingrush01/murlidhar-mobiles/internal/cache"
	"github.com/codingrush01/murlidhar-mobiles/internal/domain"
	"github.com/codingrush01/murlidhar-mobiles/internal/liveview"
	"github.com/codingrush01/murlidhar-mobiles/internal/logger"
	"github.com/codingrush01/murlidhar-mobiles/internal/settings"
	"github.com/codingrush01/murlidhar-mobiles/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Identity) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Identity, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Identity)
	return actor, ok
}

type Options struct {
	// View serves reads from a live snapshot when started.
	View     *liveview.View
	Cache    cache.DashboardCache
	CacheTTL time.Duration
	Logger   *zap.Logger
	Now      func() time.Time
}

type Service struct {
	docs     store.DocumentStore
	settings *settings.Store
	view     *liveview.View
	cache    cache.DashboardCache
	cacheTTL time.Duration
	log      *zap.Logger
	now      func() time.Time
}

func New(docs store.DocumentStore, cfg *settings.Store, opts Options) *Service {
	log := logger.OrNop(opts.Logger).Named("service")
	if cfg == nil {
		cfg = settings.New(docs, domain.DefaultSettings(), log)
	}
	if opts.Cache == nil {
		opts.Cache = cache.NoopDashboardCache{}
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 30 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Service{
		docs:     docs,
		settings: cfg,
		view:     opts.View,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		log:      log,
		now:      func() time.Time { return opts.Now().UTC() },
	}
}

// ResolveIdentity looks the role and shop up by email. The users collection
// is the only source of truth for roles.
func (s *Service) ResolveIdentity(ctx context.Context, email string) (domain.Identity, error) {
	account, err := s.FindAccount(ctx, email)
	if err != nil {
		return domain.Identity{}, err
	}
	return checkAccount(account)
}

// FindAccount returns the user document for email, password hash included.
func (s *Service) FindAccount(ctx context.Context, email string) (domain.UserAccount, error) {
	email = normalizeEmail(email)
	if email == "" {
		return domain.UserAccount{}, domain.Validation("email is required")
	}
	docs, err := s.docs.Query(ctx, domain.CollectionUsers, store.Query{
		Filters: []store.Filter{store.Where("email", store.OpEqual, email)},
		Limit:   1,
	})
	if err != nil {
		return domain.UserAccount{}, domain.StoreFailure(err)
	}
	if len(docs) == 0 {
		return domain.UserAccount{}, domain.Permission("no account for this email")
	}
	var account domain.UserAccount
	if err := store.Decode(docs[0], &account); err != nil {
		return domain.UserAccount{}, domain.StoreFailure(err)
	}
	return account, nil
}

func checkAccount(account domain.UserAccount) (domain.Identity, error) {
	if account.Status != "" && account.Status != "active" {
		return domain.Identity{}, domain.Permission("account is disabled")
	}
	id := account.Identity()
	switch id.Role {
	case domain.RoleAdmin:
		id.ShopID = ""
	case domain.RoleOwner, domain.RoleStaff:
		if id.ShopID == "" {
			return domain.Identity{}, domain.Permission("account is not linked to a shop")
		}
	default:
		return domain.Identity{}, domain.Permission("account has no role")
	}
	return id, nil
}

func (s *Service) Me(ctx context.Context) (domain.MeResponse, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return domain.MeResponse{}, err
	}
	return domain.MeResponse{Identity: actor, Capabilities: access.Capabilities(actor)}, nil
}

func requireActor(ctx context.Context) (domain.Identity, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Email == "" {
		return domain.Identity{}, domain.Permission("sign in required")
	}
	return actor, nil
}

func requireCapability(ctx context.Context, capability string) (domain.Identity, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return domain.Identity{}, err
	}
	if err := access.Require(actor, capability); err != nil {
		return domain.Identity{}, err
	}
	return actor, nil
}

// scopeShop returns the shop a read is limited to. Shop-scoped users are
// always pinned to their own shop.
func scopeShop(actor domain.Identity, requested string) (string, error) {
	if access.HasCapability(actor, access.CapViewAllShops) {
		return strings.TrimSpace(requested), nil
	}
	requested = strings.TrimSpace(requested)
	if requested != "" && requested != actor.ShopID {
		return "", domain.Permission("you cannot view another shop's data")
	}
	return actor.ShopID, nil
}

func (s *Service) getDoc(ctx context.Context, collection string, id string, what string, v any) error {
	doc, err := s.docs.Get(ctx, collection, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.NotFound(what + " not found")
	}
	if err != nil {
		return domain.StoreFailure(err)
	}
	if err := store.Decode(doc, v); err != nil {
		return domain.StoreFailure(err)
	}
	return nil
}

func listAll[T any](ctx context.Context, docs store.DocumentStore, collection string, q store.Query) ([]T, error) {
	found, err := docs.Query(ctx, collection, q)
	if err != nil {
		return nil, domain.StoreFailure(err)
	}
	out, err := store.DecodeAll[T](found)
	if err != nil {
		return nil, domain.StoreFailure(err)
	}
	return out, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func defaultString(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
