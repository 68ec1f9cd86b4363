package dashboard

import (
	"context"
	"encoding/json"
	"time"

	productionEntity "github.com/bitfantasy/nimo-mes/internal/production/entity"
	qualityEntity "github.com/bitfantasy/nimo-mes/internal/quality/entity"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	summaryCacheKey = "mes:dashboard:summary"
	summaryCacheTTL = 30 * time.Second
)

// Summary 车间概览
type Summary struct {
	JobsByStatus            map[string]int64 `json:"jobs_by_status"`
	OverdueJobs             int64            `json:"overdue_jobs"`
	OpenQuotes              int64            `json:"open_quotes"`
	QuotesByStatus          map[string]int64 `json:"quotes_by_status"`
	CalibrationDueEquipment int64            `json:"calibration_due_equipment"`
	CharacteristicsByResult map[string]int64 `json:"characteristics_by_result"`
	GeneratedAt             time.Time        `json:"generated_at"`
}

// Service 概览统计服务
//
// 结果缓存 30 秒，redis 未配置时每次直查数据库。
type Service struct {
	db     *gorm.DB
	rdb    *redis.Client
	logger *zap.Logger
}

func NewService(db *gorm.DB, rdb *redis.Client, logger *zap.Logger) *Service {
	return &Service{db: db, rdb: rdb, logger: logger}
}

// GetSummary 获取车间概览
func (s *Service) GetSummary(ctx context.Context) (*Summary, error) {
	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, summaryCacheKey).Result(); err == nil {
			var summary Summary
			if err := json.Unmarshal([]byte(cached), &summary); err == nil {
				return &summary, nil
			}
		}
	}

	summary, err := s.buildSummary(ctx)
	if err != nil {
		return nil, err
	}

	if s.rdb != nil {
		if data, err := json.Marshal(summary); err == nil {
			if err := s.rdb.Set(ctx, summaryCacheKey, data, summaryCacheTTL).Err(); err != nil {
				s.logger.Warn("Dashboard cache write failed", zap.Error(err))
			}
		}
	}
	return summary, nil
}

func (s *Service) buildSummary(ctx context.Context) (*Summary, error) {
	summary := &Summary{
		JobsByStatus:            make(map[string]int64),
		QuotesByStatus:          make(map[string]int64),
		CharacteristicsByResult: make(map[string]int64),
		GeneratedAt:             time.Now(),
	}

	if err := s.countByGroup(ctx, &productionEntity.Job{}, "status", summary.JobsByStatus); err != nil {
		return nil, err
	}
	if err := s.countByGroup(ctx, &productionEntity.Quote{}, "status", summary.QuotesByStatus); err != nil {
		return nil, err
	}
	if err := s.countByGroup(ctx, &qualityEntity.InspectionCharacteristic{}, "result", summary.CharacteristicsByResult); err != nil {
		return nil, err
	}

	summary.OpenQuotes = summary.QuotesByStatus[productionEntity.QuoteStatusPending] +
		summary.QuotesByStatus[productionEntity.QuoteStatusSent]

	// 交期按日比较，当天到期不算逾期
	now := time.Now()
	today := productionEntity.StartOfDay(now)
	err := s.db.WithContext(ctx).Model(&productionEntity.Job{}).
		Where("due_date < ? AND status <> ?", today, productionEntity.JobStatusComplete).
		Count(&summary.OverdueJobs).Error
	if err != nil {
		return nil, err
	}

	// 校准周期按设备各异，到期判断在内存中完成
	var equipment []qualityEntity.Equipment
	if err := s.db.WithContext(ctx).Find(&equipment).Error; err != nil {
		return nil, err
	}
	for i := range equipment {
		if equipment[i].IsCalibrationDue(now) {
			summary.CalibrationDueEquipment++
		}
	}

	return summary, nil
}

func (s *Service) countByGroup(ctx context.Context, model interface{}, column string, out map[string]int64) error {
	type row struct {
		Key   string
		Count int64
	}
	var rows []row
	err := s.db.WithContext(ctx).Model(model).
		Select(column + " as key, COUNT(*) as count").
		Group(column).Scan(&rows).Error
	if err != nil {
		return err
	}
	for _, r := range rows {
		out[r.Key] = r.Count
	}
	return nil
}
