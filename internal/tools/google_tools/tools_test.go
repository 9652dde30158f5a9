package google_tools

import (
	"context"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSaver struct {
	account, code string
	err           error
}

func (r *recordingSaver) SaveToken(_ context.Context, account, authCode string) error {
	r.account, r.code = account, authCode
	return r.err
}

func request(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	tc, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestHandleGetAuthURL(t *testing.T) {
	t.Setenv("GOOGLE_CLIENT_ID", "client-123")

	result, err := handleGetAuthURL(context.Background(), request(map[string]interface{}{"account": "work"}))
	require.NoError(t, err)
	out := text(t, result)
	assert.Contains(t, out, `account "work"`)
	assert.Contains(t, out, "https://accounts.google.com/")
	assert.Contains(t, out, "client_id=client-123")
}

func TestHandleSaveAuthCode(t *testing.T) {
	tests := []struct {
		name     string
		args     map[string]interface{}
		saveErr  error
		wantErr  bool
		want     string
		wantSave string
	}{
		{
			name:     "saves for default account",
			args:     map[string]interface{}{"authCode": " 4/abc "},
			want:     "Authorization successful for account 'default'",
			wantSave: "4/abc",
		},
		{name: "missing code", args: map[string]interface{}{}, wantErr: true, want: "authCode is required"},
		{
			name:    "exchange fails",
			args:    map[string]interface{}{"account": "work", "authCode": "bad"},
			saveErr: errors.New("invalid_grant"),
			wantErr: true,
			want:    "Failed to save authorization code for account work: invalid_grant",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			saver := &recordingSaver{err: tt.saveErr}
			result, err := handleSaveAuthCode(context.Background(), request(tt.args), saver)
			require.NoError(t, err)
			assert.Equal(t, tt.wantErr, result.IsError)
			assert.Contains(t, text(t, result), tt.want)
			if tt.wantSave != "" {
				assert.Equal(t, tt.wantSave, saver.code)
				assert.Equal(t, "default", saver.account)
			}
		})
	}
}
