package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allKeys = []string{
	"APP_PORT", "STORAGE_DRIVER", "MONGODB_URI", "MONGODB_DB_NAME",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
	"BILLING_WORKERS", "BILLING_LOCK_TTL", "BILLING_CRON", "RECONCILE_CRON", "TIMEZONE",
	"WHATSAPP_TOKEN", "WHATSAPP_PHONE_NUMBER_ID", "WHATSAPP_BASE_URL", "WHATSAPP_API_VERSION",
	"GOOGLE_SHEETS_CREDENTIALS_PATH", "GOOGLE_SHEET_DATABASE_ID",
	"LOG_LEVEL", "LOG_FORMAT",
}

// clearEnv blanks every key so the test does not depend on the host environment.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allKeys {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, StorageMongoDB, cfg.Storage.Driver)
	assert.Equal(t, "dairy", cfg.MongoDB.DBName)
	assert.Equal(t, 4, cfg.Billing.Workers)
	assert.Equal(t, 30*time.Second, cfg.Billing.LockTTL)
	assert.Equal(t, "Asia/Kolkata", cfg.Scheduler.Timezone)
	assert.Empty(t, cfg.Scheduler.BillingCron)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.WhatsApp.Enabled())
	assert.False(t, cfg.Sheets.Enabled())
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFromEnvFile(t *testing.T) {
	clearEnv(t)
	// godotenv never overrides variables that are already set, even to "".
	for _, key := range []string{"STORAGE_DRIVER", "BILLING_WORKERS", "REDIS_ADDR", "BILLING_CRON"} {
		require.NoError(t, os.Unsetenv(key))
	}
	t.Cleanup(func() {
		for _, key := range []string{"STORAGE_DRIVER", "BILLING_WORKERS", "REDIS_ADDR", "BILLING_CRON"} {
			_ = os.Unsetenv(key)
		}
	})

	path := filepath.Join(t.TempDir(), ".env")
	content := "STORAGE_DRIVER=memory\nBILLING_WORKERS=8\nREDIS_ADDR=localhost:6379\nBILLING_CRON=0 2 1 * *\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, StorageMemory, cfg.Storage.Driver)
	assert.Equal(t, 8, cfg.Billing.Workers)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, "0 2 1 * *", cfg.Scheduler.BillingCron)
}

func TestLoadRejectsMalformedNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("BILLING_WORKERS", "many")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BILLING_WORKERS")

	t.Setenv("BILLING_WORKERS", "")
	t.Setenv("BILLING_LOCK_TTL", "soon")
	_, err = Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BILLING_LOCK_TTL")
}

func validConfig() Config {
	return Config{
		Server:    ServerConfig{Port: "8080"},
		Storage:   StorageConfig{Driver: StorageMemory},
		Billing:   BillingConfig{Workers: 2, LockTTL: time.Second},
		Scheduler: SchedulerConfig{Timezone: "UTC"},
		WhatsApp:  WhatsAppConfig{BaseURL: "https://graph.facebook.com", APIVersion: "v20.0"},
		Log:       LogConfig{Level: "info", Format: "json"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "unknown driver", mutate: func(c *Config) { c.Storage.Driver = "postgres" }, wantErr: "STORAGE_DRIVER"},
		{name: "mongodb without uri", mutate: func(c *Config) {
			c.Storage.Driver = StorageMongoDB
			c.MongoDB = MongoDBConfig{DBName: "dairy"}
		}, wantErr: "MONGODB_URI"},
		{name: "zero workers", mutate: func(c *Config) { c.Billing.Workers = 0 }, wantErr: "BILLING_WORKERS"},
		{name: "no lock ttl", mutate: func(c *Config) { c.Billing.LockTTL = 0 }, wantErr: "BILLING_LOCK_TTL"},
		{name: "bad timezone", mutate: func(c *Config) { c.Scheduler.Timezone = "Mars/Olympus" }, wantErr: "TIMEZONE"},
		{name: "whatsapp token only", mutate: func(c *Config) { c.WhatsApp.AccessToken = "token" }, wantErr: "WHATSAPP_PHONE_NUMBER_ID"},
		{name: "whatsapp phone only", mutate: func(c *Config) { c.WhatsApp.PhoneNumberID = "123" }, wantErr: "WHATSAPP_TOKEN"},
		{name: "sheets credentials only", mutate: func(c *Config) { c.Sheets.CredentialsPath = "creds.json" }, wantErr: "GOOGLE_SHEET_DATABASE_ID"},
		{name: "sheets id only", mutate: func(c *Config) { c.Sheets.SpreadsheetID = "sheet" }, wantErr: "GOOGLE_SHEETS_CREDENTIALS_PATH"},
		{name: "bad log level", mutate: func(c *Config) { c.Log.Level = "verbose" }, wantErr: "LOG_LEVEL"},
		{name: "whatsapp fully configured", mutate: func(c *Config) {
			c.WhatsApp.AccessToken = "token"
			c.WhatsApp.PhoneNumberID = "123"
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)

			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}

	var nilCfg *Config
	assert.Error(t, nilCfg.Validate())
}
