package service

import (
	"errors"

	"github.com/bitfantasy/nimo-pcf/internal/config"
	"github.com/bitfantasy/nimo-pcf/internal/repository"
	"github.com/bitfantasy/nimo-pcf/internal/sse"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	// ErrForbidden the caller's supplier may not read or change the resource.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidTransition the sharing request is not in a state that allows the action.
	ErrInvalidTransition = errors.New("invalid sharing request transition")
	// ErrUnnecessaryRequest sharing is requested for a product of the caller's own supplier.
	ErrUnnecessaryRequest = errors.New("sharing request is unnecessary for own products")
	// ErrInvalidInput malformed enumeration values and the like.
	ErrInvalidInput = errors.New("invalid input")
)

// Caller 调用方身份，来自JWT
type Caller struct {
	UserID     string
	SupplierID string
}

// Services 服务集合
type Services struct {
	Product   *ProductService
	BOM       *BOMService
	Emission  *EmissionService
	Reference *ReferenceService
	Sharing   *SharingService
	Export    *ExportService
}

// NewServices 创建服务集合
func NewServices(repos *repository.Repositories, rdb *redis.Client, hub *sse.Hub, logger *zap.Logger, cfg *config.Config) *Services {
	// 初始化MinIO客户端
	var minioClient *minio.Client
	if cfg.MinIO.Endpoint != "" {
		var err error
		minioClient, err = minio.New(cfg.MinIO.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
			Secure: cfg.MinIO.UseSSL,
		})
		if err != nil {
			logger.Warn("MinIO unavailable, trace exports are streamed only", zap.Error(err))
			minioClient = nil
		}
	}

	bucket := cfg.PCF.ExportBucket
	if bucket == "" {
		bucket = cfg.MinIO.Bucket
	}

	product := NewProductService(repos.Product, repos.Supplier, repos.Catalog, cfg.PCF, logger)
	return &Services{
		Product:   product,
		BOM:       NewBOMService(repos.BOM, repos.Product, logger),
		Emission:  NewEmissionService(repos.Emission, repos.Product, repos.Reference, repos.Catalog, logger),
		Reference: NewReferenceService(repos.Reference, rdb, cfg.PCF.ReferenceCacheTTL, logger),
		Sharing:   NewSharingService(repos.Sharing, repos.Product, hub, logger),
		Export:    NewExportService(product, minioClient, bucket, cfg.PCF.ExportURLExpiry, logger),
	}
}
