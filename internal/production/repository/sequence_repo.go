package repository

import (
	"time"

	"github.com/bitfantasy/nimo-mes/internal/production/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SequenceRepository 序号计数器仓库
//
// 计数器以（客户，年，季度）为桶。自增通过单条 UPDATE … RETURNING 完成，
// 行级写锁保证同桶并发分配严格串行化，不会出现重复序号；
// 调用方必须在同一事务内完成自增与报价写入，失败时一并回滚。
type SequenceRepository struct {
	db *gorm.DB
}

func NewSequenceRepository(db *gorm.DB) *SequenceRepository {
	return &SequenceRepository{db: db}
}

// NextCount 返回桶内自增后的序号（≥1）
//
// tx 必须是外层业务事务：报价插入失败时计数器自增随之回滚，
// 序号不会被白白消耗。
func (r *SequenceRepository) NextCount(tx *gorm.DB, customerID string, year, quarter int) (int, error) {
	// 桶首次使用时建行，已存在则跳过
	counter := &entity.SequenceCounter{
		ID:         uuid.New().String()[:32],
		CustomerID: customerID,
		Year:       year,
		Quarter:    quarter,
		Count:      0,
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "customer_id"}, {Name: "year"}, {Name: "quarter"}},
		DoNothing: true,
	}).Create(counter).Error
	if err != nil {
		return 0, err
	}

	var count int
	err = tx.Raw(
		`UPDATE mes_sequence_counters
		 SET count = count + 1, updated_at = ?
		 WHERE customer_id = ? AND year = ? AND quarter = ?
		 RETURNING count`,
		time.Now(), customerID, year, quarter,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Get 读取桶计数器，不存在时返回 ErrNotFound
func (r *SequenceRepository) Get(customerID string, year, quarter int) (*entity.SequenceCounter, error) {
	var counter entity.SequenceCounter
	err := r.db.
		Where("customer_id = ? AND year = ? AND quarter = ?", customerID, year, quarter).
		First(&counter).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &counter, nil
}
