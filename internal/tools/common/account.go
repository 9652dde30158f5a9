package common

import (
	"github.com/teemow/calslot/internal/google"
)

// GetAccountFromArgs extracts the account name from request arguments,
// defaulting to "default".
func GetAccountFromArgs(args map[string]interface{}) string {
	if accountVal, ok := args["account"].(string); ok && accountVal != "" {
		return accountVal
	}
	return google.DefaultAccount
}
