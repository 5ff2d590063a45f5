package logger

import (
	"context"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
	"moul.io/zapgorm2"
)

const slowQueryThreshold = 500 * time.Millisecond

// GORM routes gorm's logger through zap. Record-not-found stays quiet and
// vector parameters are logged as their dimension only.
type GORM struct {
	zapgorm2.Logger
}

func NewGORM(log *zap.Logger, level gormlogger.LogLevel) *GORM {
	l := zapgorm2.New(log.Named("gorm"))
	l.LogLevel = level
	l.SlowThreshold = slowQueryThreshold
	l.SkipCallerLookup = true
	l.IgnoreRecordNotFoundError = true
	return &GORM{Logger: l}
}

func (g *GORM) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *g
	clone.Logger.LogLevel = level
	return &clone
}

// ParamsFilter runs before gorm renders the SQL for logging.
func (g *GORM) ParamsFilter(_ context.Context, sql string, params ...interface{}) (string, []interface{}) {
	out := make([]interface{}, len(params))
	for i, p := range params {
		if v, ok := p.(pgvector.Vector); ok {
			p = fmt.Sprintf("<vector dims=%d>", len(v.Slice()))
		}
		out[i] = p
	}
	return sql, out
}
