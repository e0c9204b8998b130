package inventory

import (
	"strings"

	"github.com/codingrush01/murlidhar-mobiles/internal/domain"
)

const keySeparator = "_"

// Key is the composite identity of an inventory line. Its string form is the
// storage id and the merge discriminator.
type Key struct {
	ShopID  string
	ModelID string
	TypeID  string
	BatchNo string
}

// NewKey validates the components. BatchNo is kept verbatim; the id
// components must not contain the separator so the key stays parseable.
func NewKey(shopID, modelID, typeID, batchNo string) (Key, error) {
	if shopID == "" || modelID == "" || typeID == "" || batchNo == "" {
		return Key{}, domain.Validation("complete all fields")
	}
	for _, id := range []string{shopID, modelID, typeID} {
		if strings.Contains(id, keySeparator) {
			return Key{}, domain.Validationf("id %q must not contain %q", id, keySeparator)
		}
	}
	return Key{ShopID: shopID, ModelID: modelID, TypeID: typeID, BatchNo: batchNo}, nil
}

// BuildKey returns the string key for the components.
func BuildKey(shopID, modelID, typeID, batchNo string) (string, error) {
	k, err := NewKey(shopID, modelID, typeID, batchNo)
	if err != nil {
		return "", err
	}
	return k.String(), nil
}

func (k Key) String() string {
	return k.ShopID + keySeparator + k.ModelID + keySeparator + k.TypeID + keySeparator + k.BatchNo
}

// ParseKey is the inverse of Key.String. Everything after the third
// separator belongs to the batch number.
func ParseKey(s string) (Key, error) {
	parts := strings.SplitN(s, keySeparator, 4)
	if len(parts) != 4 {
		return Key{}, domain.Validationf("malformed inventory key %q", s)
	}
	return NewKey(parts[0], parts[1], parts[2], parts[3])
}

// KeyOf rederives the key of a stored line.
func KeyOf(line domain.InventoryLine) (Key, error) {
	return NewKey(line.ShopID, line.ModelID, line.TypeID, line.BatchNo)
}
