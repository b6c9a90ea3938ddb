package example

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TXRecordPO 参与方本地事务记录, 一个事务一行
type TXRecordPO struct {
	ID          uint      `gorm:"primaryKey"`
	ComponentID string    `gorm:"column:component_id;size:64;uniqueIndex:uk_component_tx"`
	TXID        string    `gorm:"column:tx_id;size:32;uniqueIndex:uk_component_tx"`
	BizID       string    `gorm:"column:biz_id;size:128"`
	State       string    `gorm:"column:state;size:16"`
	DataStatus  string    `gorm:"column:data_status;size:16"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (TXRecordPO) TableName() string {
	return "saga_participant_tx"
}

func NewDB(dsn string) (*gorm.DB, error) {
	return gorm.Open(mysql.Open(dsn), &gorm.Config{})
}

// GormStateStore 用 mysql 表记录事务状态, 同一 txID 的状态扭转在行锁内完成
type GormStateStore struct {
	id string
	db *gorm.DB
}

func NewGormStateStore(id string, db *gorm.DB) *GormStateStore {
	return &GormStateStore{
		id: id,
		db: db,
	}
}

// AutoMigrate 建表
func (g *GormStateStore) AutoMigrate(ctx context.Context) error {
	return g.db.WithContext(ctx).AutoMigrate(&TXRecordPO{})
}

func (g *GormStateStore) Begin(ctx context.Context, txID, bizID string) (bool, error) {
	po := TXRecordPO{
		ComponentID: g.id,
		TXID:        txID,
		BizID:       bizID,
		State:       TXReceived.String(),
		DataStatus:  DataFrozen.String(),
	}
	res := g.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&po)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (g *GormStateStore) Finish(ctx context.Context, txID string, state TXState) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var po TXRecordPO
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("component_id = ? AND tx_id = ?", g.id, txID).
			First(&po).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("unknown txid: %s", txID)
		}
		if err != nil {
			return err
		}
		if po.State == state.String() {
			return nil
		}
		if po.State != TXReceived.String() {
			return fmt.Errorf("%w: %s -> %s, txid: %s", ErrInvalidTransition, po.State, state, txID)
		}

		// 回滚时释放冻结的数据
		data := ""
		if state == TXConfirmed {
			data = DataSuccessful.String()
		}
		return tx.Model(&po).Updates(map[string]interface{}{
			"state":       state.String(),
			"data_status": data,
		}).Error
	})
}

func (g *GormStateStore) Get(ctx context.Context, txID string) (TXState, error) {
	var po TXRecordPO
	err := g.db.WithContext(ctx).
		Where("component_id = ? AND tx_id = ?", g.id, txID).
		First(&po).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return TXState(po.State), nil
}
