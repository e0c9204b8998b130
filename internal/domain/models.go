package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoleAdmin = "admin"
	RoleOwner = "owner"
	RoleStaff = "staff"
)

const (
	CollectionShops      = "shops"
	CollectionBrands     = "phone_brands"
	CollectionCoverTypes = "phone_cover_types"
	CollectionModels     = "phone_models"
	CollectionInventory  = "inventory"
	CollectionSettings   = "settings"
	CollectionUsers      = "users"
	CollectionAuditLogs  = "audit_logs"

	SettingsGlobalID = "global"
)

type Shop struct {
	ID        string    `json:"id,omitempty"`
	ShopName  string    `json:"shopName"`
	Address   string    `json:"address"`
	Number    string    `json:"number"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// CatalogItem is the shared shape of brands and cover types.
type CatalogItem struct {
	ID             string    `json:"id,omitempty"`
	Name           string    `json:"name"`
	NormalizedName string    `json:"normalizedName"`
	CreatedAt      time.Time `json:"createdAt"`
}

type (
	Brand     = CatalogItem
	CoverType = CatalogItem
)

type PhoneModel struct {
	ID             string    `json:"id,omitempty"`
	Name           string    `json:"name"`
	NormalizedName string    `json:"normalizedName"`
	BrandID        string    `json:"brandId"`
	CreatedAt      time.Time `json:"createdAt"`
}

// AuditStamp records who last touched an inventory line.
type AuditStamp struct {
	ActorRole  string `json:"actorRole"`
	ActorEmail string `json:"actorEmail"`
	ShopName   string `json:"shopName,omitempty"`
}

// String renders the stamp the way the inventory list shows it.
func (a AuditStamp) String() string {
	switch {
	case a.ActorEmail == "":
		return ""
	case a.ActorRole == RoleAdmin:
		return fmt.Sprintf("Admin (%s)", a.ActorEmail)
	case a.ShopName == "":
		return fmt.Sprintf("Owner (%s)", a.ActorEmail)
	default:
		return fmt.Sprintf("Owner (%s) - %s", a.ActorEmail, a.ShopName)
	}
}

type InventoryLine struct {
	ID        string          `json:"id,omitempty"`
	ShopID    string          `json:"shop_id"`
	BrandID   string          `json:"brand_id"`
	ModelID   string          `json:"model_id"`
	TypeID    string          `json:"type_id"`
	BatchNo   string          `json:"batch_no"`
	Price     decimal.Decimal `json:"price"`
	Qty       int             `json:"qty"`
	OldQty    int             `json:"old_qty"`
	SearchKey string          `json:"searchKey"`
	UpdatedAt time.Time       `json:"updatedAt"`
	UpdatedBy AuditStamp      `json:"updatedBy"`
}

// Value is qty * price.
func (l InventoryLine) Value() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Qty)))
}

type Settings struct {
	LowStockQty   int             `json:"low_stock_qty"`
	LowStockValue decimal.Decimal `json:"low_stock_value"`
}

func DefaultSettings() Settings {
	return Settings{
		LowStockQty:   5,
		LowStockValue: decimal.NewFromInt(1000),
	}
}

// Identity is the acting user as resolved from the users collection.
type Identity struct {
	UserID string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	ShopID string `json:"shop_id,omitempty"`
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

func (i Identity) IsShopScoped() bool {
	return i.Role == RoleOwner || i.Role == RoleStaff
}

type UserAccount struct {
	ID           string    `json:"id,omitempty"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	ShopID       string    `json:"shopId,omitempty"`
	Status       string    `json:"status"`
	PasswordHash string    `json:"passwordHash,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (u UserAccount) Identity() Identity {
	return Identity{UserID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, ShopID: u.ShopID}
}

// Public strips the password hash.
func (u UserAccount) Public() UserAccount {
	u.PasswordHash = ""
	return u
}

type AuditLog struct {
	ID         string    `json:"id,omitempty"`
	ShopID     string    `json:"shopId"`
	ActorEmail string    `json:"actorEmail"`
	ActorRole  string    `json:"actorRole"`
	Action     string    `json:"action"`
	EntityType string    `json:"entityType"`
	EntityID   string    `json:"entityId"`
	Detail     string    `json:"detail"`
	CreatedAt  time.Time `json:"createdAt"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	AccessToken string   `json:"access_token"`
	Role        string   `json:"role"`
	ExpiresAt   string   `json:"expires_at"`
	Identity    Identity `json:"identity"`
}

type MeResponse struct {
	Identity     Identity        `json:"identity"`
	Capabilities map[string]bool `json:"capabilities"`
}

type StockEntryRequest struct {
	ShopID    string          `json:"shop_id"`
	BrandID   string          `json:"brand_id"`
	BrandName string          `json:"brand_name"`
	ModelName string          `json:"model_name" validate:"required"`
	TypeID    string          `json:"type_id"`
	TypeName  string          `json:"type_name"`
	BatchNo   string          `json:"batch_no" validate:"required"`
	Price     decimal.Decimal `json:"price"`
	Qty       int             `json:"qty"`
}

type StockEntryResponse struct {
	Line         InventoryLine `json:"line"`
	Created      bool          `json:"created"`
	ModelCreated bool          `json:"model_created"`
	UpdatedBy    string        `json:"updated_by"`
}

type LineUpdateRequest struct {
	Price *decimal.Decimal `json:"price,omitempty"`
	Qty   *int             `json:"qty,omitempty" validate:"omitempty,gte=0"`
}

type AdjustQtyRequest struct {
	By int `json:"by" validate:"oneof=1 -1"`
}

type RestockRequest struct {
	Price  decimal.Decimal `json:"price"`
	AddQty int             `json:"add_qty"`
}

type InventoryListResponse struct {
	Lines      []InventoryLine `json:"lines"`
	NextCursor string          `json:"next_cursor,omitempty"`
	HasMore    bool            `json:"has_more"`
}

type ShopRequest struct {
	ShopName string `json:"shopName" validate:"required"`
	Address  string `json:"address"`
	Number   string `json:"number"`
	Email    string `json:"email" validate:"omitempty,email"`
}

type CatalogRequest struct {
	Name string `json:"name" validate:"required"`
}

type UserCreateRequest struct {
	Name   string `json:"name" validate:"required"`
	Email  string `json:"email" validate:"omitempty,email"`
	Role   string `json:"role" validate:"omitempty,oneof=admin owner staff"`
	ShopID string `json:"shop_id"`
}

type UserCreateResponse struct {
	User         UserAccount `json:"user"`
	TempPassword string      `json:"temp_password"`
}

type SettingsUpdateRequest struct {
	LowStockQty   *int             `json:"low_stock_qty,omitempty" validate:"omitempty,gte=0"`
	LowStockValue *decimal.Decimal `json:"low_stock_value,omitempty"`
}

// SummaryRow is one shop / model / cover type group of the stock summary.
type SummaryRow struct {
	ShopID     string   `json:"shopId"`
	ShopName   string   `json:"shopName"`
	BrandName  string   `json:"brandName"`
	ModelID    string   `json:"modelId"`
	ModelName  string   `json:"modelName"`
	TypeID     string   `json:"typeId"`
	TypeName   string   `json:"typeName"`
	Qty        int      `json:"qty"`
	PriceLabel string   `json:"priceLabel"`
	Batches    []string `json:"batches"`
	IsLow      bool     `json:"isLow"`
}

// ActivityEntry is an inventory line with its display names resolved.
type ActivityEntry struct {
	Line      InventoryLine `json:"line"`
	BrandName string        `json:"brandName"`
	ModelName string        `json:"modelName"`
	TypeName  string        `json:"typeName"`
	ShopName  string        `json:"shopName"`
	UpdatedBy string        `json:"updatedBy"`
}
