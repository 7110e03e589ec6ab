package shortcode

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestParseConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		config, err := ParseConfig([]byte(""))
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), *config)
	})

	t.Run("values", func(t *testing.T) {
		config, err := ParseConfig([]byte(`
locale: de-DE
currency: EUR
timeout: 5s
concurrency: 4
empty_list_text: Keine Einträge
cache:
  max_entries: 50
  list_ttl: 30s
source:
  driver: sqlite
  dsn: file:content.db
  auto_migrate: false
  table_prefix: cms_
`))
		require.NoError(t, err)

		assert.Equal(t, "de-DE", config.Locale)
		assert.Equal(t, "EUR", config.Currency)
		assert.Equal(t, 5*time.Second, config.Timeout)
		assert.Equal(t, 4, config.Concurrency)
		assert.Equal(t, "Keine Einträge", config.EmptyListText)
		assert.Equal(t, 50, config.Cache.MaxEntries)
		assert.Equal(t, 30*time.Second, config.Cache.ListTTL)
		assert.Equal(t, DefaultFieldTTL, config.Cache.FieldTTL)
		assert.Equal(t, SourceDriverSQLite, config.Source.Driver)
		require.NotNil(t, config.Source.AutoMigrate)
		assert.False(t, *config.Source.AutoMigrate)
		assert.Equal(t, "cms_", config.Source.TablePrefix)
	})

	t.Run("environment expansion", func(t *testing.T) {
		t.Setenv("SHORTCODE_TEST_TOKEN", "t0ken")
		config, err := ParseConfig([]byte("source:\n  driver: http\n  dsn: http://cms.local\n  token: ${SHORTCODE_TEST_TOKEN}\n"))
		require.NoError(t, err)
		assert.Equal(t, "t0ken", config.Source.Token)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, err := ParseConfig([]byte("locale: [unclosed"))
		assert.Error(t, err)
	})
}

func TestLoadConfig(t *testing.T) {
	path := writeFile(t, "shortcode.yaml", "locale: en-GB\n")

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "en-GB", config.Locale)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := writeFile(t, "bad.yaml", "timeout: [1")
	_, err = LoadConfig(bad)
	assert.Error(t, err)
}

func TestConfig_Options(t *testing.T) {
	t.Run("memory fixture", func(t *testing.T) {
		fixture := writeFile(t, "content.yaml", testFixture)
		config := DefaultConfig()
		config.Locale = "en-GB"
		config.Currency = "GBP"
		config.Source = SourceConfig{Driver: SourceDriverMemory, DSN: fixture}

		opts, err := config.Options(zaptest.NewLogger(t))
		require.NoError(t, err)
		engine := MustNew(opts...)
		defer engine.Close()

		out, err := engine.RenderString(context.Background(),
			`[field field="title"] on [field field="date"]: [typed_field name="ticket_price"]`, &Context{PostID: 7})
		require.NoError(t, err)
		assert.Equal(t, "Launch party on 1 June 2024: £25.00", out)
	})

	t.Run("http source with token", func(t *testing.T) {
		svc := newFakeContentService(t)
		config := DefaultConfig()
		config.Source = SourceConfig{Driver: SourceDriverHTTP, DSN: svc.server.URL, Token: "abc"}

		opts, err := config.Options(nil)
		require.NoError(t, err)
		engine := MustNew(opts...)
		defer engine.Close()

		out, err := engine.RenderString(context.Background(), `[field field="title"]`, &Context{PostID: 1})
		require.NoError(t, err)
		assert.Equal(t, "Anvil", out)
		assert.Equal(t, "Bearer abc", svc.lastAuth.Load())
	})

	t.Run("http source without dsn", func(t *testing.T) {
		config := DefaultConfig()
		config.Source = SourceConfig{Driver: SourceDriverHTTP}
		_, err := config.Options(nil)
		assert.Error(t, err)
	})

	t.Run("unknown driver", func(t *testing.T) {
		config := DefaultConfig()
		config.Source = SourceConfig{Driver: "mongodb", DSN: "x"}
		_, err := config.Options(nil)
		assert.Error(t, err)
	})

	t.Run("no source", func(t *testing.T) {
		opts, err := DefaultConfig().Options(nil)
		require.NoError(t, err)
		engine := MustNew(opts...)
		assert.Nil(t, engine.Source())
	})
}

func TestNewFromConfig(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "content.db")
	path := writeFile(t, "shortcode.yaml", "empty_list_text: Nothing here\nsource:\n  driver: sqlite\n  dsn: "+dsn+"\n")

	engine, err := NewFromConfig(path, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NotNil(t, engine.Source())

	out, err := engine.RenderString(context.Background(), `[list type="product"]`, nil)
	require.NoError(t, err)
	assert.Equal(t, `<p class="shortcode-list-empty">Nothing here</p>`, out)

	require.NoError(t, engine.Close())
	_, err = engine.Source().GetItem(context.Background(), "", 1)
	assert.ErrorIs(t, err, ErrSourceClosed)

	_, err = NewFromConfig(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}
