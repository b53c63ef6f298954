package tool

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

func GenerateUUIDV7() string {
	return uuid.Must(uuid.NewV7()).String()
}

// GenerateTransactionID builds a locally-assigned transaction identifier for
// payments that have no provider-assigned one (manual settlement, plan-change
// rows). The prefix keeps ledger rows greppable by kind and provider.
func GenerateTransactionID(kind, provider string) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
	return fmt.Sprintf("%s_%s_%d_%s", kind, provider, time.Now().UnixMilli(), suffix)
}

// GenerateReferenceID builds the secondary correlation id stored next to the
// transaction id on every ledger row.
func GenerateReferenceID(provider string) string {
	return GenerateTransactionID("ref", provider)
}
