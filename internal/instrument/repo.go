package instrument

import (
	"context"
	"fmt"
	"strings"

	"github.com/yanun0323/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tickflow/internal/model"
	"tickflow/internal/ops"
)

// Instrument is one row of the instrument master: the durable mapping
// between a broker token and the tradable symbol it stands for. The
// pipeline itself never consults this; it exists so operators can
// configure subscriptions by symbol instead of raw token.
type Instrument struct {
	Token       string `gorm:"primaryKey;column:token"`
	Exchange    string `gorm:"column:exchange;uniqueIndex:idx_exchange_symbol"`
	Symbol      string `gorm:"column:symbol;uniqueIndex:idx_exchange_symbol"`
	DisplayName string `gorm:"column:display_name"`
}

func (Instrument) TableName() string {
	return "instruments"
}

// Repository reads and writes the instrument master.
type Repository struct {
	db *gorm.DB
}

// Open connects to Postgres and migrates the instrument table.
func Open(cfg ops.PostgresConfig) (*Repository, error) {
	db, err := gorm.Open(postgres.Open(dsn(cfg)), &gorm.Config{})
	if err != nil {
		return nil, errors.Wrap(err, "open instrument master")
	}
	if err := db.AutoMigrate(&Instrument{}); err != nil {
		return nil, errors.Wrap(err, "migrate instrument master")
	}
	return &Repository{db: db}, nil
}

// NewRepository wraps an existing gorm handle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Close releases the underlying connection pool.
func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ResolveToken maps an exchange and trading symbol to its token.
func (r *Repository) ResolveToken(ctx context.Context, exchange, symbol string) (model.Token, error) {
	var inst Instrument
	err := r.db.WithContext(ctx).
		Where("exchange = ? AND symbol = ?", exchange, symbol).
		First(&inst).Error
	if err != nil {
		return "", errors.Wrapf(err, "resolve token for %s|%s", exchange, symbol)
	}
	return model.Token(inst.Token), nil
}

// Get returns the instrument row for a token.
func (r *Repository) Get(ctx context.Context, token model.Token) (Instrument, error) {
	var inst Instrument
	err := r.db.WithContext(ctx).First(&inst, "token = ?", string(token)).Error
	if err != nil {
		return Instrument{}, errors.Wrapf(err, "get instrument %s", token)
	}
	return inst, nil
}

// Upsert inserts or refreshes an instrument row.
func (r *Repository) Upsert(ctx context.Context, inst Instrument) error {
	if inst.Token == "" {
		return errors.New("instrument token is empty")
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "token"}},
			UpdateAll: true,
		}).
		Create(&inst).Error
	if err != nil {
		return errors.Wrapf(err, "upsert instrument %s", inst.Token)
	}
	return nil
}

func dsn(cfg ops.PostgresConfig) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	parts := []string{
		fmt.Sprintf("host=%s", host),
		fmt.Sprintf("port=%d", port),
		fmt.Sprintf("sslmode=%s", sslMode),
	}
	if cfg.User != "" {
		parts = append(parts, fmt.Sprintf("user=%s", cfg.User))
	}
	if cfg.Password != "" {
		parts = append(parts, fmt.Sprintf("password=%s", cfg.Password))
	}
	if cfg.Database != "" {
		parts = append(parts, fmt.Sprintf("dbname=%s", cfg.Database))
	}
	return strings.Join(parts, " ")
}
