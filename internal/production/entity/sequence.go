package entity

import "time"

// SequenceCounter 报价序号计数器，按（客户，年，季度）分桶
//
// 同一桶内的分配必须串行：计数器行的原子自增保证并发请求
// 不会拿到相同的序号。自增与报价写入在同一事务中，回滚时序号一并回收。
type SequenceCounter struct {
	ID         string `json:"id" gorm:"primaryKey;size:32"`
	CustomerID string `json:"customer_id" gorm:"size:32;not null;uniqueIndex:idx_mes_seq_bucket"`

	// 两位年份（24 表示 2024）与季度 1-4
	Year    int `json:"year" gorm:"not null;uniqueIndex:idx_mes_seq_bucket"`
	Quarter int `json:"quarter" gorm:"not null;uniqueIndex:idx_mes_seq_bucket"`

	Count int `json:"count" gorm:"not null;default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (SequenceCounter) TableName() string {
	return "mes_sequence_counters"
}

// QuarterOf 返回日期所在季度 1-4
func QuarterOf(t time.Time) int {
	return (int(t.Month())-1)/3 + 1
}
