package memory

import (
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/codingrush01/murlidhar-mobiles/internal/domain"
	"github.com/codingrush01/murlidhar-mobiles/internal/feed"
	"github.com/codingrush01/murlidhar-mobiles/internal/logger"
	"github.com/codingrush01/murlidhar-mobiles/internal/store"
)

// Seeded fixture ids.
const (
	SeedShopMain     = "shop-main"
	SeedShopStation  = "shop-station"
	SeedBrandApple   = "brand-apple"
	SeedBrandSamsung = "brand-samsung"
	SeedBrandGoogle  = "brand-google"
	SeedTypeSilicone = "type-silicone"
	SeedTypeFlip     = "type-flip"
	SeedTypeClear    = "type-clear"
	SeedAdminID      = "user-admin"
	SeedOwnerID      = "user-owner-main"
)

// NewSeeded returns a store with demo shops, catalog, settings and two
// accounts. Passwords come from SEED_ADMIN_PASSWORD and SEED_OWNER_PASSWORD;
// dev defaults are used with a warning when unset.
func NewSeeded(hub *feed.Hub, log *zap.Logger) *Store {
	log = logger.OrNop(log).Named("memory-store")
	s := New(hub)
	now := time.Now().UTC()

	s.seed(domain.CollectionSettings, domain.SettingsGlobalID, domain.DefaultSettings())

	for _, shop := range []domain.Shop{
		{ID: SeedShopMain, ShopName: "Murlidhar Mobiles Main", Address: "12 Market Road", Number: "9800000001", Email: "owner.main@murlidhar.local", CreatedAt: now},
		{ID: SeedShopStation, ShopName: "Murlidhar Station Road", Address: "4 Station Road", Number: "9800000002", Email: "owner.station@murlidhar.local", CreatedAt: now},
	} {
		s.seed(domain.CollectionShops, shop.ID, shop)
	}

	for _, brand := range []domain.Brand{
		{ID: SeedBrandApple, Name: "Apple", NormalizedName: "apple", CreatedAt: now},
		{ID: SeedBrandSamsung, Name: "Samsung", NormalizedName: "samsung", CreatedAt: now},
		{ID: SeedBrandGoogle, Name: "Google", NormalizedName: "google", CreatedAt: now},
	} {
		s.seed(domain.CollectionBrands, brand.ID, brand)
	}

	for _, coverType := range []domain.CoverType{
		{ID: SeedTypeSilicone, Name: "Silicone", NormalizedName: "silicone", CreatedAt: now},
		{ID: SeedTypeFlip, Name: "Flip", NormalizedName: "flip", CreatedAt: now},
		{ID: SeedTypeClear, Name: "Transparent", NormalizedName: "transparent", CreatedAt: now},
	} {
		s.seed(domain.CollectionCoverTypes, coverType.ID, coverType)
	}

	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_OWNER_PASSWORD") == "" {
		log.Warn("using default dev credentials; set SEED_ADMIN_PASSWORD and SEED_OWNER_PASSWORD to override")
	}
	for _, u := range []struct {
		id, name, email, password, role, shopID string
	}{
		{SeedAdminID, "Admin", envOr("SEED_ADMIN_EMAIL", "admin@murlidhar.local"), envOr("SEED_ADMIN_PASSWORD", "admin123"), domain.RoleAdmin, ""},
		{SeedOwnerID, "Main Owner", "owner.main@murlidhar.local", envOr("SEED_OWNER_PASSWORD", "owner123"), domain.RoleOwner, SeedShopMain},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatal("failed to hash seed password", zap.String("email", u.email), zap.Error(err))
		}
		s.seed(domain.CollectionUsers, u.id, domain.UserAccount{
			Name:         u.name,
			Email:        u.email,
			Role:         u.role,
			ShopID:       u.shopID,
			Status:       "active",
			PasswordHash: string(hash),
			CreatedAt:    now,
		})
	}

	return s
}

func (s *Store) seed(collection string, id string, v any) {
	fields, err := store.NormalizeFields(store.MustEncode(v))
	if err != nil {
		panic(err)
	}
	s.put(collection, id, fields, false)
}
