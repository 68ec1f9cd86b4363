package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/url"
	"path/filepath"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/quality/entity"
	"github.com/bitfantasy/nimo-mes/internal/quality/repository"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

var (
	// ErrStorageNotConfigured 对象存储未配置，附件功能不可用
	ErrStorageNotConfigured = errors.New("object storage not configured")
	// ErrInvalidTolerance 公差不能为负
	ErrInvalidTolerance = errors.New("tolerance must not be negative")
)

// Evaluate 公差判定
//
// 未测量返回 UNMEASURED；实测值落在 [nominal-lowerTol, nominal+upperTol]
// 闭区间内（含边界）返回 PASS，否则 FAIL。全程定点十进制比较，
// 0.5005 对上限 0.5050 这类边界不会因浮点误差误判。
func Evaluate(nominal, upperTol, lowerTol decimal.Decimal, actual decimal.NullDecimal) string {
	if !actual.Valid {
		return entity.ResultUnmeasured
	}
	upper := nominal.Add(upperTol)
	lower := nominal.Sub(lowerTol)
	if actual.Decimal.Cmp(lower) >= 0 && actual.Decimal.Cmp(upper) <= 0 {
		return entity.ResultPass
	}
	return entity.ResultFail
}

// InspectionService 检验报告服务
type InspectionService struct {
	db            *gorm.DB
	repo          *repository.InspectionRepository
	equipmentRepo *repository.EquipmentRepository
	minioClient   *minio.Client
	bucketName    string
}

func NewInspectionService(
	db *gorm.DB,
	repo *repository.InspectionRepository,
	equipmentRepo *repository.EquipmentRepository,
	minioClient *minio.Client,
	bucketName string,
) *InspectionService {
	return &InspectionService{
		db:            db,
		repo:          repo,
		equipmentRepo: equipmentRepo,
		minioClient:   minioClient,
		bucketName:    bucketName,
	}
}

// CreateReportRequest 创建检验报告请求
type CreateReportRequest struct {
	JobID           *string    `json:"job_id"`
	InspectionType  string     `json:"inspection_type"`
	PartNumber      string     `json:"part_number" binding:"required"`
	PartName        string     `json:"part_name"`
	SerialNumber    string     `json:"serial_number"`
	FAIReportNumber string     `json:"fai_report_number" binding:"required"`
	InspectionDate  *time.Time `json:"inspection_date"`
}

// CreateReport 创建检验报告
func (s *InspectionService) CreateReport(ctx context.Context, req *CreateReportRequest) (*entity.InspectionReport, error) {
	inspectionType := req.InspectionType
	if inspectionType == "" {
		inspectionType = entity.InspectionTypeFAI
	}

	report := &entity.InspectionReport{
		ID:              uuid.New().String()[:32],
		JobID:           req.JobID,
		InspectionType:  inspectionType,
		PartNumber:      req.PartNumber,
		PartName:        req.PartName,
		SerialNumber:    req.SerialNumber,
		FAIReportNumber: req.FAIReportNumber,
		Status:          entity.ReportStatusPending,
		InspectionDate:  req.InspectionDate,
	}
	if err := s.repo.CreateReport(ctx, report); err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}
	return report, nil
}

// GetReport 获取报告详情
func (s *InspectionService) GetReport(ctx context.Context, id string) (*entity.InspectionReport, error) {
	return s.repo.FindReportByID(ctx, id)
}

// ListReports 获取报告列表
func (s *InspectionService) ListReports(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.InspectionReport, int64, error) {
	return s.repo.FindReports(ctx, page, pageSize, filters)
}

// UpdateReportRequest 更新检验报告请求，报告编号不可变更
type UpdateReportRequest struct {
	InspectionType *string    `json:"inspection_type"`
	PartName       *string    `json:"part_name"`
	SerialNumber   *string    `json:"serial_number"`
	InspectionDate *time.Time `json:"inspection_date"`
}

// UpdateReport 更新检验报告
func (s *InspectionService) UpdateReport(ctx context.Context, id string, req *UpdateReportRequest) (*entity.InspectionReport, error) {
	report, err := s.repo.FindReportByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.InspectionType != nil {
		report.InspectionType = *req.InspectionType
	}
	if req.PartName != nil {
		report.PartName = *req.PartName
	}
	if req.SerialNumber != nil {
		report.SerialNumber = *req.SerialNumber
	}
	if req.InspectionDate != nil {
		report.InspectionDate = req.InspectionDate
	}
	report.UpdatedAt = time.Now()

	if err := s.repo.UpdateReport(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

// DeleteReport 删除报告及其特性、附件记录
func (s *InspectionService) DeleteReport(ctx context.Context, id string) error {
	return s.repo.DeleteReport(ctx, id)
}

// CreateCharacteristicRequest 创建检测特性请求
type CreateCharacteristicRequest struct {
	ReportID       string              `json:"report_id" binding:"required"`
	CharNumber     int                 `json:"char_number" binding:"required"`
	Description    string              `json:"description"`
	Requirement    string              `json:"requirement"`
	NominalValue   decimal.Decimal     `json:"nominal_value"`
	UpperTolerance decimal.Decimal     `json:"upper_tolerance"`
	LowerTolerance decimal.Decimal     `json:"lower_tolerance"`
	ActualValue    decimal.NullDecimal `json:"actual_value"`
	EquipmentID    *string             `json:"equipment_id"`
}

// CreateCharacteristic 创建检测特性
//
// Result 在写入前由当前公差与实测值算出，判定与实测值同一事务落盘，
// 随后刷新报告汇总状态。
func (s *InspectionService) CreateCharacteristic(ctx context.Context, req *CreateCharacteristicRequest) (*entity.InspectionCharacteristic, error) {
	if req.UpperTolerance.IsNegative() || req.LowerTolerance.IsNegative() {
		return nil, ErrInvalidTolerance
	}

	item := &entity.InspectionCharacteristic{
		ID:             uuid.New().String()[:32],
		ReportID:       req.ReportID,
		CharNumber:     req.CharNumber,
		Description:    req.Description,
		Requirement:    req.Requirement,
		NominalValue:   req.NominalValue,
		UpperTolerance: req.UpperTolerance,
		LowerTolerance: req.LowerTolerance,
		ActualValue:    req.ActualValue,
		EquipmentID:    req.EquipmentID,
		Result:         Evaluate(req.NominalValue, req.UpperTolerance, req.LowerTolerance, req.ActualValue),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var report entity.InspectionReport
		if err := tx.Where("id = ?", req.ReportID).First(&report).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repository.ErrNotFound
			}
			return err
		}
		if err := tx.Create(item).Error; err != nil {
			return err
		}
		return s.refreshReportStatus(tx, req.ReportID)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// GetCharacteristic 获取特性详情
func (s *InspectionService) GetCharacteristic(ctx context.Context, id string) (*entity.InspectionCharacteristic, error) {
	return s.repo.FindCharacteristicByID(ctx, id)
}

// ListCharacteristics 获取报告特性列表，可按判定结果过滤
func (s *InspectionService) ListCharacteristics(ctx context.Context, reportID, result string) ([]entity.InspectionCharacteristic, error) {
	return s.repo.FindCharacteristics(ctx, reportID, result)
}

// UpdateCharacteristicRequest 更新检测特性请求
//
// ClearActual 为 true 时清除实测值，判定回到 UNMEASURED。
type UpdateCharacteristicRequest struct {
	CharNumber     *int                 `json:"char_number"`
	Description    *string              `json:"description"`
	Requirement    *string              `json:"requirement"`
	NominalValue   *decimal.Decimal     `json:"nominal_value"`
	UpperTolerance *decimal.Decimal     `json:"upper_tolerance"`
	LowerTolerance *decimal.Decimal     `json:"lower_tolerance"`
	ActualValue    *decimal.NullDecimal `json:"actual_value"`
	ClearActual    bool                 `json:"clear_actual"`
	EquipmentID    *string              `json:"equipment_id"`
}

// UpdateCharacteristic 更新检测特性并重新判定
//
// 公差或实测值任一变动都按更新后的字段整体重判，不存在单独改公差
// 而保留旧判定的路径。
func (s *InspectionService) UpdateCharacteristic(ctx context.Context, id string, req *UpdateCharacteristicRequest) (*entity.InspectionCharacteristic, error) {
	if req.UpperTolerance != nil && req.UpperTolerance.IsNegative() {
		return nil, ErrInvalidTolerance
	}
	if req.LowerTolerance != nil && req.LowerTolerance.IsNegative() {
		return nil, ErrInvalidTolerance
	}

	var item *entity.InspectionCharacteristic
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing entity.InspectionCharacteristic
		if err := tx.Where("id = ?", id).First(&existing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repository.ErrNotFound
			}
			return err
		}

		if req.CharNumber != nil {
			existing.CharNumber = *req.CharNumber
		}
		if req.Description != nil {
			existing.Description = *req.Description
		}
		if req.Requirement != nil {
			existing.Requirement = *req.Requirement
		}
		if req.NominalValue != nil {
			existing.NominalValue = *req.NominalValue
		}
		if req.UpperTolerance != nil {
			existing.UpperTolerance = *req.UpperTolerance
		}
		if req.LowerTolerance != nil {
			existing.LowerTolerance = *req.LowerTolerance
		}
		if req.ActualValue != nil {
			existing.ActualValue = *req.ActualValue
		}
		if req.ClearActual {
			existing.ActualValue = decimal.NullDecimal{}
		}
		if req.EquipmentID != nil {
			existing.EquipmentID = req.EquipmentID
		}
		existing.Result = Evaluate(existing.NominalValue, existing.UpperTolerance, existing.LowerTolerance, existing.ActualValue)
		existing.UpdatedAt = time.Now()

		if err := tx.Save(&existing).Error; err != nil {
			return err
		}
		item = &existing
		return s.refreshReportStatus(tx, existing.ReportID)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteCharacteristic 删除检测特性并刷新报告状态
func (s *InspectionService) DeleteCharacteristic(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing entity.InspectionCharacteristic
		if err := tx.Where("id = ?", id).First(&existing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repository.ErrNotFound
			}
			return err
		}
		if err := tx.Where("id = ?", id).Delete(&entity.InspectionCharacteristic{}).Error; err != nil {
			return err
		}
		return s.refreshReportStatus(tx, existing.ReportID)
	})
}

// refreshReportStatus 从特性判定汇总报告状态
//
// 任一 FAIL 即 FAIL；全部测量且全部 PASS 才 PASS；其余保持 PENDING。
func (s *InspectionService) refreshReportStatus(tx *gorm.DB, reportID string) error {
	var items []entity.InspectionCharacteristic
	if err := tx.Where("report_id = ?", reportID).Find(&items).Error; err != nil {
		return err
	}

	status := entity.ReportStatusPending
	if len(items) > 0 {
		status = entity.ReportStatusPass
		for _, item := range items {
			if item.Result == entity.ResultFail {
				status = entity.ReportStatusFail
				break
			}
			if item.Result == entity.ResultUnmeasured {
				status = entity.ReportStatusPending
			}
		}
	}

	return tx.Model(&entity.InspectionReport{}).Where("id = ?", reportID).Updates(map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}).Error
}

// ExportForm3 导出 AS9102 Form 3 特性验收表
func (s *InspectionService) ExportForm3(ctx context.Context, reportID string) (*excelize.File, error) {
	report, err := s.repo.FindReportByID(ctx, reportID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	sheet := "Form 3"
	f.SetSheetName("Sheet1", sheet)

	f.SetCellValue(sheet, "A1", "FAI Report Number")
	f.SetCellValue(sheet, "B1", report.FAIReportNumber)
	f.SetCellValue(sheet, "A2", "Part Number")
	f.SetCellValue(sheet, "B2", report.PartNumber)
	f.SetCellValue(sheet, "A3", "Part Name")
	f.SetCellValue(sheet, "B3", report.PartName)
	f.SetCellValue(sheet, "A4", "Serial Number")
	f.SetCellValue(sheet, "B4", report.SerialNumber)
	f.SetCellValue(sheet, "A5", "Status")
	f.SetCellValue(sheet, "B5", report.Status)

	headers := []string{"Char No.", "Description", "Requirement", "Nominal", "Upper Tol", "Lower Tol", "Actual", "Result", "Equipment"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 7)
		f.SetCellValue(sheet, cell, h)
	}

	for i, ch := range report.Characteristics {
		row := i + 8
		actual := ""
		if ch.ActualValue.Valid {
			actual = ch.ActualValue.Decimal.String()
		}
		equipmentName := ""
		if ch.Equipment != nil {
			equipmentName = ch.Equipment.Name
		}
		values := []interface{}{
			ch.CharNumber,
			ch.Description,
			ch.Requirement,
			ch.NominalValue.String(),
			ch.UpperTolerance.String(),
			ch.LowerTolerance.String(),
			actual,
			ch.Result,
			equipmentName,
		}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, row)
			f.SetCellValue(sheet, cell, v)
		}
	}

	f.SetColWidth(sheet, "A", "C", 24)
	f.SetColWidth(sheet, "D", "I", 14)
	return f, nil
}

// UploadAttachment 上传报告附件到对象存储并登记
func (s *InspectionService) UploadAttachment(ctx context.Context, reportID string, file *multipart.FileHeader) (*entity.ReportAttachment, error) {
	if s.minioClient == nil {
		return nil, ErrStorageNotConfigured
	}
	if _, err := s.repo.FindReportByID(ctx, reportID); err != nil {
		return nil, err
	}

	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	ext := filepath.Ext(file.Filename)
	objectKey := fmt.Sprintf("fai/%s/%s%s", time.Now().Format("2006-01-02"), uuid.New().String(), ext)

	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err = s.minioClient.PutObject(ctx, s.bucketName, objectKey, src, file.Size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("upload attachment: %w", err)
	}

	attachment := &entity.ReportAttachment{
		ID:          uuid.New().String()[:32],
		ReportID:    reportID,
		FileName:    file.Filename,
		ObjectKey:   objectKey,
		FileSize:    file.Size,
		ContentType: contentType,
	}
	if err := s.repo.CreateAttachment(ctx, attachment); err != nil {
		return nil, err
	}
	return attachment, nil
}

// ListAttachments 获取报告附件列表
func (s *InspectionService) ListAttachments(ctx context.Context, reportID string) ([]entity.ReportAttachment, error) {
	return s.repo.FindAttachments(ctx, reportID)
}

// AttachmentDownloadURL 生成附件的预签名下载链接，15 分钟有效
func (s *InspectionService) AttachmentDownloadURL(ctx context.Context, id string) (string, error) {
	if s.minioClient == nil {
		return "", ErrStorageNotConfigured
	}
	attachment, err := s.repo.FindAttachmentByID(ctx, id)
	if err != nil {
		return "", err
	}

	reqParams := make(url.Values)
	reqParams.Set("response-content-disposition", fmt.Sprintf(`attachment; filename="%s"`, attachment.FileName))
	presigned, err := s.minioClient.PresignedGetObject(ctx, s.bucketName, attachment.ObjectKey, 15*time.Minute, reqParams)
	if err != nil {
		return "", fmt.Errorf("presign attachment: %w", err)
	}
	return presigned.String(), nil
}

// DeleteAttachment 删除附件记录并移除对象
func (s *InspectionService) DeleteAttachment(ctx context.Context, id string) error {
	attachment, err := s.repo.FindAttachmentByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteAttachment(ctx, id); err != nil {
		return err
	}
	if s.minioClient != nil {
		// 对象删除失败不回滚数据库记录，残留对象由存储端生命周期清理
		_ = s.minioClient.RemoveObject(ctx, s.bucketName, attachment.ObjectKey, minio.RemoveObjectOptions{})
	}
	return nil
}
