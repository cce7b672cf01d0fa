package database

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StoredRecord is the single table backing every collection.
type StoredRecord struct {
	Seq        uint64         `gorm:"primaryKey;autoIncrement"`
	Collection string         `gorm:"size:64;not null;uniqueIndex:idx_records_collection_record"`
	RecordID   string         `gorm:"size:191;not null;uniqueIndex:idx_records_collection_record"`
	Payload    datatypes.JSON `gorm:"type:json;not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (StoredRecord) TableName() string { return "records" }

// GormStore persists collections as JSON rows in MySQL.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (g *GormStore) GetAll(ctx context.Context, c Collection) ([]Entry, error) {
	var rows []StoredRecord
	if err := g.db.WithContext(ctx).
		Where("collection = ?", string(c)).
		Order("seq ASC").
		Find(&rows).Error; err != nil {
		return nil, newStorageError("get_all", c, "", err)
	}
	out := make([]Entry, 0, len(rows))
	for _, r := range rows {
		out = append(out, Entry{ID: r.RecordID, Data: []byte(r.Payload)})
	}
	return out, nil
}

func (g *GormStore) SaveOne(ctx context.Context, c Collection, id string, data []byte) error {
	row := StoredRecord{
		Collection: string(c),
		RecordID:   id,
		Payload:    datatypes.JSON(data),
	}
	err := g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "collection"}, {Name: "record_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return newStorageError("save", c, id, err)
	}
	return nil
}

func (g *GormStore) DeleteOne(ctx context.Context, c Collection, id string) error {
	err := g.db.WithContext(ctx).
		Where("collection = ? AND record_id = ?", string(c), id).
		Delete(&StoredRecord{}).Error
	if err != nil {
		return newStorageError("delete", c, id, err)
	}
	return nil
}

// Tx runs fn against a store bound to a database transaction.
func (g *GormStore) Tx(ctx context.Context, fn func(Store) error) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func (g *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// DB exposes the underlying handle for pool statistics.
func (g *GormStore) DB() *gorm.DB { return g.db }
