// Package google_tools provides MCP tools for authorizing Google accounts:
// google_get_auth_url prints the consent URL and google_save_auth_code
// stores the token obtained from it.
package google_tools
