package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bitfantasy/nimo-pcf/internal/pcf"
	"github.com/minio/minio-go/v7"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ErrStorageNotConfigured 未配置对象存储
var ErrStorageNotConfigured = errors.New("storage not configured")

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportService 碳足迹追溯树导出
type ExportService struct {
	products    *ProductService
	minioClient *minio.Client
	bucketName  string
	urlExpiry   time.Duration
	logger      *zap.Logger
}

func NewExportService(products *ProductService, minioClient *minio.Client, bucketName string, urlExpiry time.Duration, logger *zap.Logger) *ExportService {
	if urlExpiry <= 0 {
		urlExpiry = 15 * time.Minute
	}
	return &ExportService{
		products:    products,
		minioClient: minioClient,
		bucketName:  bucketName,
		urlExpiry:   urlExpiry,
		logger:      logger.Named("export"),
	}
}

// PublishedExport 上传后的导出文件
type PublishedExport struct {
	ObjectName string    `json:"object_name"`
	URL        string    `json:"url"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// TraceXLSX 导出追溯树为xlsx，每个节点一行，按层级缩进
func (s *ExportService) TraceXLSX(ctx context.Context, caller Caller, productID string) (*excelize.File, string, error) {
	t, err := s.products.EmissionTrace(ctx, caller, productID)
	if err != nil {
		return nil, "", err
	}
	f, err := buildTraceWorkbook(t)
	if err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("PCF_%s_%s.xlsx", sanitizeFilename(t.Label), time.Now().Format("20060102"))
	return f, filename, nil
}

// PublishTraceXLSX 导出并上传到对象存储，返回限时下载链接
func (s *ExportService) PublishTraceXLSX(ctx context.Context, caller Caller, productID string) (*PublishedExport, error) {
	if s.minioClient == nil {
		return nil, ErrStorageNotConfigured
	}
	f, filename, err := s.TraceXLSX(ctx, caller, productID)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	objectName := fmt.Sprintf("traces/%s/%s/%s", caller.SupplierID, productID, filename)
	_, err = s.minioClient.PutObject(ctx, s.bucketName, objectName, bytes.NewReader(buf.Bytes()), int64(buf.Len()), minio.PutObjectOptions{
		ContentType: xlsxContentType,
	})
	if err != nil {
		return nil, fmt.Errorf("upload file: %w", err)
	}

	params := url.Values{}
	params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", filename))
	u, err := s.minioClient.PresignedGetObject(ctx, s.bucketName, objectName, s.urlExpiry, params)
	if err != nil {
		return nil, fmt.Errorf("presign: %w", err)
	}

	s.logger.Info("trace export published",
		zap.String("product_id", productID),
		zap.String("object", objectName),
		zap.Int("bytes", buf.Len()),
	)
	return &PublishedExport{
		ObjectName: objectName,
		URL:        u.String(),
		ExpiresAt:  time.Now().Add(s.urlExpiry),
	}, nil
}

func traceExportHeaders() []string {
	headers := []string{"层级", "名称", "数量", "单位", "方法", "核算标准"}
	for _, stage := range pcf.LifecycleStages() {
		headers = append(headers, string(stage))
	}
	return append(headers, "生物源", "非生物源", "合计", "提示")
}

func buildTraceWorkbook(t *pcf.EmissionTrace) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := "PCF"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	// 表头样式: 加粗
	boldStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return nil, err
	}

	headers := traceExportHeaders()
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(sheet, cell, cell, boldStyle); err != nil {
			return nil, err
		}
	}

	stages := pcf.LifecycleStages()
	row := 2
	var writeErr error
	t.Walk(func(depth int, quantity float64, node *pcf.EmissionTrace) {
		if writeErr != nil {
			return
		}
		values := []interface{}{
			depth,
			strings.Repeat("  ", depth) + node.Label,
			quantity,
			string(node.ReferenceImpactUnit),
			node.Methodology,
			string(node.PcfCalculationMethod),
		}
		for _, stage := range stages {
			if factor, ok := node.EmissionsSubtotal[stage]; ok {
				values = append(values, pcf.Round2(factor.Total()))
			} else {
				values = append(values, nil)
			}
		}
		// 合计值已取两位小数
		values = append(values,
			node.TotalBiogenic(),
			node.TotalNonBiogenic(),
			node.Total(),
			joinMentions(node.Mentions),
		)
		for i, v := range values {
			if v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(i+1, row)
			if err == nil {
				err = f.SetCellValue(sheet, cell, v)
			}
			if err != nil {
				writeErr = fmt.Errorf("write row %d: %w", row, err)
				return
			}
		}
		row++
	})
	if writeErr != nil {
		return nil, writeErr
	}

	// 列宽
	widths := map[int]float64{1: 6, 2: 36, 3: 10, 4: 8, 5: 28, 6: 14}
	for i := range headers {
		w, ok := widths[i+1]
		if !ok {
			w = 10
		}
		if i == len(headers)-1 {
			w = 60
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(sheet, col, col, w); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func joinMentions(mentions []pcf.Mention) string {
	parts := make([]string, 0, len(mentions))
	for _, m := range mentions {
		parts = append(parts, fmt.Sprintf("[%s] %s", m.Severity, m.Message))
	}
	return strings.Join(parts, "\n")
}

func sanitizeFilename(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if name == "" {
		return "trace"
	}
	return name
}
