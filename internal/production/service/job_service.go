package service

import (
	"context"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/production/entity"
	"github.com/bitfantasy/nimo-mes/internal/production/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// JobService 工单与工序服务
type JobService struct {
	repo   *repository.JobRepository
	opRepo *repository.OperationRepository
}

func NewJobService(repo *repository.JobRepository, opRepo *repository.OperationRepository) *JobService {
	return &JobService{repo: repo, opRepo: opRepo}
}

// CreateJobRequest 创建工单请求
type CreateJobRequest struct {
	CustomerID string    `json:"customer_id" binding:"required"`
	JobNumber  string    `json:"job_number" binding:"required"`
	PartNumber string    `json:"part_number" binding:"required"`
	Quantity   int       `json:"quantity" binding:"required"`
	DueDate    time.Time `json:"due_date" binding:"required"`
	Status     string    `json:"status"`
	Priority   string    `json:"priority"`
}

// CreateJob 创建工单
func (s *JobService) CreateJob(ctx context.Context, req *CreateJobRequest) (*entity.Job, error) {
	status := req.Status
	if status == "" {
		status = entity.JobStatusQuote
	}
	priority := req.Priority
	if priority == "" {
		priority = entity.JobPriorityNormal
	}

	job := &entity.Job{
		ID:         uuid.New().String()[:32],
		CustomerID: req.CustomerID,
		JobNumber:  req.JobNumber,
		PartNumber: req.PartNumber,
		Quantity:   req.Quantity,
		DueDate:    req.DueDate,
		Status:     status,
		Priority:   priority,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// GetJob 获取工单详情（含工序）
func (s *JobService) GetJob(ctx context.Context, id string) (*entity.Job, error) {
	return s.repo.FindByID(ctx, id)
}

// ListJobs 获取工单列表
func (s *JobService) ListJobs(ctx context.Context, params repository.JobListParams) ([]entity.Job, int64, error) {
	return s.repo.FindAll(ctx, params)
}

// ListOverdueJobs 逾期工单：已过交期且未完工
func (s *JobService) ListOverdueJobs(ctx context.Context, today time.Time) ([]entity.Job, error) {
	return s.repo.FindOverdue(ctx, today)
}

// ListJobsByStatus 按状态检索工单
func (s *JobService) ListJobsByStatus(ctx context.Context, status string) ([]entity.Job, error) {
	return s.repo.FindByStatus(ctx, status)
}

// UpdateJobRequest 更新工单请求，工单号与客户不可变更
type UpdateJobRequest struct {
	PartNumber *string    `json:"part_number"`
	Quantity   *int       `json:"quantity"`
	DueDate    *time.Time `json:"due_date"`
	Status     *string    `json:"status"`
	Priority   *string    `json:"priority"`
}

// UpdateJob 更新工单
func (s *JobService) UpdateJob(ctx context.Context, id string, req *UpdateJobRequest) (*entity.Job, error) {
	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.PartNumber != nil {
		job.PartNumber = *req.PartNumber
	}
	if req.Quantity != nil {
		job.Quantity = *req.Quantity
	}
	if req.DueDate != nil {
		job.DueDate = *req.DueDate
	}
	if req.Status != nil {
		job.Status = *req.Status
	}
	if req.Priority != nil {
		job.Priority = *req.Priority
	}
	job.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// DeleteJob 删除工单及其工序
func (s *JobService) DeleteJob(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// CreateOperationRequest 创建工序请求
type CreateOperationRequest struct {
	JobID          string          `json:"job_id" binding:"required"`
	Name           string          `json:"name" binding:"required"`
	EstimatedHours decimal.Decimal `json:"estimated_hours"`
	StartDate      *time.Time      `json:"start_date"`
	EndDate        *time.Time      `json:"end_date"`
}

// CreateOperation 创建工序
func (s *JobService) CreateOperation(ctx context.Context, req *CreateOperationRequest) (*entity.Operation, error) {
	if _, err := s.repo.FindByID(ctx, req.JobID); err != nil {
		return nil, err
	}

	op := &entity.Operation{
		ID:             uuid.New().String()[:32],
		JobID:          req.JobID,
		Name:           req.Name,
		EstimatedHours: req.EstimatedHours,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
	}
	if err := s.opRepo.Create(ctx, op); err != nil {
		return nil, err
	}
	return op, nil
}

// ListOperations 获取工单工序列表，按开始日期排序
func (s *JobService) ListOperations(ctx context.Context, jobID string) ([]entity.Operation, error) {
	return s.opRepo.FindByJob(ctx, jobID)
}

// UpdateOperationRequest 更新工序请求
type UpdateOperationRequest struct {
	Name           *string          `json:"name"`
	EstimatedHours *decimal.Decimal `json:"estimated_hours"`
	StartDate      *time.Time       `json:"start_date"`
	EndDate        *time.Time       `json:"end_date"`
}

// UpdateOperation 更新工序
func (s *JobService) UpdateOperation(ctx context.Context, id string, req *UpdateOperationRequest) (*entity.Operation, error) {
	op, err := s.opRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		op.Name = *req.Name
	}
	if req.EstimatedHours != nil {
		op.EstimatedHours = *req.EstimatedHours
	}
	if req.StartDate != nil {
		op.StartDate = req.StartDate
	}
	if req.EndDate != nil {
		op.EndDate = req.EndDate
	}
	op.UpdatedAt = time.Now()

	if err := s.opRepo.Update(ctx, op); err != nil {
		return nil, err
	}
	return op, nil
}

// DeleteOperation 删除工序
func (s *JobService) DeleteOperation(ctx context.Context, id string) error {
	return s.opRepo.Delete(ctx, id)
}
