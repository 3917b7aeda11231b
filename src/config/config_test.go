package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"market-stream/src/helpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
name: market-stream
host: 127.0.0.1
port: 8086
storage:
  db_type: sqlite
  db_path: test.db
`

func TestParse_AppliesStreamDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "Asia/Shanghai", cfg.Stream.Timezone)
	assert.Equal(t, 3, cfg.Stream.PollIntervalSeconds)
	assert.Equal(t, 3, cfg.Stream.PushThresholdSeconds)
	assert.Equal(t, 4, cfg.Stream.Workers)
	assert.Equal(t, 256, cfg.Stream.QueueSize)
	assert.Equal(t, "xshg", cfg.Calendar.Exchange)
	assert.Equal(t, 30, cfg.Storage.RetentionDays)
	assert.Equal(t, "Asia/Shanghai", cfg.Location().String())
}

func TestParse_RejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"missing name": `
host: 127.0.0.1
port: 8086
storage: {db_type: sqlite, db_path: x.db}
`,
		"low port": `
name: s
host: 127.0.0.1
port: 80
storage: {db_type: sqlite, db_path: x.db}
`,
		"postgres without dsn": `
name: s
host: 127.0.0.1
port: 8086
storage: {db_type: postgres}
`,
		"kafka without topic": `
name: s
host: 127.0.0.1
port: 8086
storage: {db_type: sqlite, db_path: x.db}
kafka: {enabled: true, brokers: [localhost:9092]}
`,
		"bad timezone": `
name: s
host: 127.0.0.1
port: 8086
storage: {db_type: sqlite, db_path: x.db}
stream: {timezone: Mars/Olympus}
`,
	}

	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			var cfgErr *helpers.ConfigurationError
			assert.True(t, errors.As(err, &cfgErr), "got %v", err)
		})
	}
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv(EnvPostgresDSN, "postgres://u:p@localhost/db?sslmode=disable")
	t.Setenv(EnvKafkaBrokers, "k1:9092,k2:9092")

	cfg, err := Parse([]byte(`
name: s
host: 127.0.0.1
port: 8086
storage: {db_type: postgres}
kafka: {enabled: true, topic: ticks}
`))
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@localhost/db?sslmode=disable", cfg.Storage.DBConnectionString)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestSaveAndReload(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "saved.yaml")
	cfg.Stream.Workers = 8
	require.NoError(t, cfg.Save(path))

	_, err = os.Stat(path)
	require.NoError(t, err)

	reloaded, err := NewConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 8, reloaded.Stream.Workers)
	assert.Equal(t, "market-stream", reloaded.Name)
}
