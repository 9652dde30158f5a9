package cmd

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/calslot/internal/calendar"
	"github.com/teemow/calslot/internal/google"
)

const feed = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//feed//EN
BEGIN:VEVENT
UID:standup@test
DTSTAMP:20250101T000000Z
DTSTART:20250106T090000Z
DTEND:20250106T093000Z
SUMMARY:Standup
END:VEVENT
BEGIN:VEVENT
UID:review@test
DTSTAMP:20250101T000000Z
DTSTART:20250106T100000Z
DTEND:20250106T170000Z
SUMMARY:Review
END:VEVENT
BEGIN:VEVENT
UID:invite@test
DTSTAMP:20250101T000000Z
DTSTART:20250108T140000Z
DTEND:20250108T150000Z
SUMMARY:Planning
ORGANIZER:mailto:boss@example.com
ATTENDEE;PARTSTAT=NEEDS-ACTION:mailto:me@example.com
END:VEVENT
END:VCALENDAR
`

// monday is 2025-01-06 08:00 UTC.
var monday = time.Date(2025, time.January, 6, 8, 0, 0, 0, time.UTC)

func feedServer(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/calendar")
		_, _ = w.Write([]byte(strings.ReplaceAll(feed, "\n", "\r\n")))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func icsConfig(t *testing.T) Config {
	t.Helper()
	cfg, err := decodeConfig(newViper())
	require.NoError(t, err)
	cfg.Source = calendar.SourceICS
	cfg.ICSURL = feedServer(t)
	cfg.OwnerEmail = "me@example.com"
	cfg.Timezone = "UTC"
	require.NoError(t, cfg.Validate())
	return cfg
}

func newTestRunner(cfg Config) (*queryRunner, *bytes.Buffer) {
	var out bytes.Buffer
	return &queryRunner{
		cfg:     cfg,
		account: google.DefaultAccount,
		out:     &out,
		now:     func() time.Time { return monday },
	}, &out
}

func TestQueryRunner_Slots(t *testing.T) {
	cfg := icsConfig(t)
	cfg.SearchDays = 2
	q, out := newTestRunner(cfg)

	require.NoError(t, q.slots(context.Background(), "text"))
	assert.Equal(t, "Found 2 available slot(s) of 30 minutes:\n\n"+
		"1. Mon 2025-01-06 09:30-10:00 (UTC)\n"+
		"2. Tue 2025-01-07 09:00-09:30 (UTC)\n", out.String())
}

func TestQueryRunner_SlotsICS(t *testing.T) {
	cfg := icsConfig(t)
	cfg.SearchDays = 1
	q, out := newTestRunner(cfg)

	require.NoError(t, q.slots(context.Background(), "ics"))
	assert.True(t, strings.HasPrefix(out.String(), "BEGIN:VCALENDAR"))
	assert.Contains(t, out.String(), "DTSTART:20250106T093000Z")
}

func TestQueryRunner_SlotsRejectsFormat(t *testing.T) {
	q, _ := newTestRunner(icsConfig(t))
	err := q.slots(context.Background(), "pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "format must be")
}

func TestQueryRunner_Views(t *testing.T) {
	q, out := newTestRunner(icsConfig(t))

	require.NoError(t, q.today(context.Background()))
	assert.Contains(t, out.String(), "Today (Mon 2025-01-06): 2 event(s)")

	out.Reset()
	require.NoError(t, q.week(context.Background()))
	assert.Contains(t, out.String(), "Week of (Mon 2025-01-06): 3 event(s)")

	out.Reset()
	require.NoError(t, q.invitations(context.Background(), 14))
	assert.Contains(t, out.String(), "Pending invitations in the next 14 day(s): 1 event(s)")
	assert.Contains(t, out.String(), "Planning")
}

func TestQueryRunner_MissingToken(t *testing.T) {
	cfg, err := decodeConfig(newViper())
	require.NoError(t, err)
	cfg.Google.TokenDir = t.TempDir()
	cfg.Timezone = "UTC"

	q, _ := newTestRunner(cfg)
	q.account = "work"
	err = q.today(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "calslot auth save --account work")
}

func TestNewSourceBuilder(t *testing.T) {
	cfg := icsConfig(t)
	cfg.Cache.Type = CacheMemory

	sources, err := newSourceBuilder(context.Background(), cfg, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, sources.close()) })
	assert.Empty(t, sources.checks)

	src, err := sources.build(context.Background(), google.DefaultAccount)
	require.NoError(t, err)
	assert.Equal(t, calendar.SourceICS, src.Name())
	assert.Equal(t, time.UTC, src.Location())

	cached, ok := src.(*calendar.CachedSource)
	require.True(t, ok, "expected a cached source, got %T", src)
	_, ok = cached.Unwrap().(*calendar.InstrumentedSource)
	assert.True(t, ok)

	_, err = sources.build(context.Background(), "work")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only serves the default account")
}

func TestNewSourceBuilder_GoogleWithoutToken(t *testing.T) {
	cfg, err := decodeConfig(newViper())
	require.NoError(t, err)
	cfg.Google.TokenDir = t.TempDir()

	sources, err := newSourceBuilder(context.Background(), cfg, nil, nil)
	require.NoError(t, err)
	defer func() { _ = sources.close() }()

	_, err = sources.build(context.Background(), google.DefaultAccount)
	require.Error(t, err)
	assert.True(t, errors.Is(err, google.ErrNoToken))
}

func TestRedisKeyPrefix(t *testing.T) {
	assert.Equal(t, "calslot", redisKeyPrefix)
	assert.False(t, strings.HasSuffix(redisKeyPrefix, ":"))
}

func TestNewSourceBuilder_RedisUnavailable(t *testing.T) {
	cfg, err := decodeConfig(newViper())
	require.NoError(t, err)
	cfg.Cache.Type = CacheRedis
	cfg.Cache.RedisURL = "not a url"

	_, err = newSourceBuilder(context.Background(), cfg, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid redis URL")
}
