package types

import (
	"fmt"

	"github.com/oklog/ulid/v2"
)

// GenerateUUID returns a k-sortable unique identifier
func GenerateUUID() string {
	return ulid.Make().String()
}

// GenerateUUIDWithPrefix returns a k-sortable unique identifier
// with a prefix ex app_0ujsswThIGTUYm2K8FjOOfXtY1K
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return fmt.Sprintf("%s_%s", prefix, GenerateUUID())
}

const (
	// Prefixes for all domains and entities

	UUID_PREFIX_DISCOUNT_RULE = "drule"
	UUID_PREFIX_LATE_FEE_RULE = "frule"
	UUID_PREFIX_APPLICATION   = "app"
	UUID_PREFIX_EXPERIMENT    = "exp"
	UUID_PREFIX_VARIANT       = "var"
	UUID_PREFIX_INVOICE       = "inv"
	UUID_PREFIX_CUSTOMER      = "cust"
	UUID_PREFIX_TRANSACTION   = "txn"
	UUID_PREFIX_WEBHOOK_EVENT = "webhook"
)
