package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"slot-swapper/backend/internal/model"
	"slot-swapper/backend/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoSlots      = errors.New("日历为空，无可导出内容")
	ErrExportGenerateFail = errors.New("生成导出文件失败")
)

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportSlotsXLSX 导出用户日历为 Excel
	ExportSlotsXLSX(ctx context.Context, userID string) (*bytes.Buffer, string, error)
	// ExportSlotsICS 导出用户日历为标准 iCalendar (RFC 5545)
	ExportSlotsICS(ctx context.Context, userID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

// 状态的导出展示文案
var slotStatusLabels = map[string]string{
	model.SlotStatusBusy:      "占用",
	model.SlotStatusSwappable: "可交换",
	model.SlotStatusLocked:    "交换中",
}

// ────────────────────── ExportSlotsXLSX ──────────────────────

func (s *exportService) ExportSlotsXLSX(ctx context.Context, userID string) (*bytes.Buffer, string, error) {
	slots, err := s.loadSlots(ctx, userID)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "我的日历"
	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, "", ErrExportGenerateFail
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	// 列宽
	f.SetColWidth(sheetName, "A", "A", 30)
	f.SetColWidth(sheetName, "B", "C", 20)
	f.SetColWidth(sheetName, "D", "D", 10)

	// 表头样式
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	headers := []string{"标题", "开始时间", "结束时间", "状态"}
	for i, h := range headers {
		cellName, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cellName, h)
		f.SetCellStyle(sheetName, cellName, cellName, headerStyle)
	}

	// 数据行（仓储已按 start_time 升序返回）
	for i, slot := range slots {
		row := i + 2
		values := []interface{}{
			slot.Title,
			slot.StartTime.Format("2006-01-02 15:04"),
			slot.EndTime.Format("2006-01-02 15:04"),
			slotStatusLabels[slot.Status],
		}
		for j, v := range values {
			cellName, _ := excelize.CoordinatesToCellName(j+1, row)
			f.SetCellValue(sheetName, cellName, v)
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("calendar_%s.xlsx", time.Now().Format("20060102"))
	return buf, filename, nil
}

// ────────────────────── ExportSlotsICS ──────────────────────

func (s *exportService) ExportSlotsICS(ctx context.Context, userID string) (*bytes.Buffer, string, error) {
	slots, err := s.loadSlots(ctx, userID)
	if err != nil {
		return nil, "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//slot-swapper//calendar//ZH")

	for i := range slots {
		slot := &slots[i]
		evt := cal.AddEvent(slot.SlotID + "@slot-swapper")
		evt.SetSummary(slot.Title)
		evt.SetStartAt(slot.StartTime.UTC())
		evt.SetEndAt(slot.EndTime.UTC())
		evt.SetDtStampTime(time.Now().UTC())
		evt.SetDescription("状态: " + slotStatusLabels[slot.Status])
	}

	buf := bytes.NewBufferString(cal.Serialize())

	filename := fmt.Sprintf("calendar_%s.ics", time.Now().Format("20060102"))
	return buf, filename, nil
}

// ── 内部辅助方法 ──

func (s *exportService) loadSlots(ctx context.Context, userID string) ([]model.Slot, error) {
	slots, err := s.repo.Slot.ListByOwner(ctx, userID)
	if err != nil {
		s.logger.Error("查询时段失败", zap.Error(err))
		return nil, err
	}
	if len(slots) == 0 {
		return nil, ErrExportNoSlots
	}
	return slots, nil
}
