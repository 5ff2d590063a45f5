package logger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"clinic-faq-assistant/internal/config"
)

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")

	log, err := New(config.LogConfig{Level: "info", File: path, Production: true, MaxSizeMB: 1})
	require.NoError(t, err)
	log.Info("ingestion finished", zap.Int("chunks", 3))
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"ingestion finished"`)
	assert.Contains(t, string(data), `"chunks":3`)
}

func TestNew_RejectsUnknownLevel(t *testing.T) {
	_, err := New(config.LogConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestGORM_Trace(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	g := NewGORM(zap.New(core), gormlogger.Warn)
	sql := func() (string, int64) { return "SELECT 1", 1 }

	g.Trace(context.Background(), time.Now(), sql, gorm.ErrRecordNotFound)
	assert.Zero(t, logs.Len(), "record not found is not an error")

	g.Trace(context.Background(), time.Now(), sql, errors.New("syntax error"))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.ErrorLevel, logs.All()[0].Level)
	assert.Equal(t, "SELECT 1", logs.All()[0].ContextMap()["sql"])

	g.Trace(context.Background(), time.Now().Add(-time.Second), sql, nil)
	require.Equal(t, 2, logs.Len())
	assert.Equal(t, zapcore.WarnLevel, logs.All()[1].Level)

	g.Trace(context.Background(), time.Now(), sql, nil)
	assert.Equal(t, 2, logs.Len(), "fast queries are not logged at warn")
}

func TestGORM_LogModeKeepsFilter(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	g := NewGORM(zap.New(core), gormlogger.Warn).LogMode(gormlogger.Info)

	filter, ok := g.(gorm.ParamsFilter)
	require.True(t, ok)
	sql, vars := filter.ParamsFilter(context.Background(), "SELECT * FROM faq_chunks WHERE embedding <=> $1 AND embedding_model = $2",
		pgvector.NewVector([]float32{0.1, 0.2, 0.3}), "m@3")
	assert.Equal(t, "SELECT * FROM faq_chunks WHERE embedding <=> $1 AND embedding_model = $2", sql)
	assert.Equal(t, []interface{}{"<vector dims=3>", "m@3"}, vars)

	g.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 1 }, nil)
	assert.Equal(t, 1, logs.Len(), "info level traces every query")
}
