// Command seed loads the bootstrap supplier and curated reference tables
// from a YAML file. Running it twice leaves the database unchanged.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/bitfantasy/nimo-pcf/internal/config"
	"github.com/bitfantasy/nimo-pcf/internal/model/entity"
	"github.com/bitfantasy/nimo-pcf/internal/repository"
	"github.com/bitfantasy/nimo-pcf/internal/service"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SeedFile 种子文件结构
type SeedFile struct {
	References []SeedReference `yaml:"references"`
}

// SeedReference 参考表种子
type SeedReference struct {
	Kind        string                `yaml:"kind"`
	Name        string                `yaml:"name"`
	Unit        string                `yaml:"unit"`
	Description string                `yaml:"description"`
	Source      string                `yaml:"source"`
	Factors     map[string][2]float64 `yaml:"factors"` // stage: [biogenic, non_biogenic]
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, _ := zap.NewDevelopment()
	defer zapLogger.Sync()

	path := config.GetEnvOrDefault("SEED_FILE", "configs/seed.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		zapLogger.Fatal("Failed to read seed file", zap.String("path", path), zap.Error(err))
	}
	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		zapLogger.Fatal("Failed to parse seed file", zap.String("path", path), zap.Error(err))
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := db.AutoMigrate(entity.AllModels()...); err != nil {
		zapLogger.Fatal("AutoMigrate failed", zap.Error(err))
	}

	repos := repository.NewRepositories(db, cfg.PCF.BootstrapSupplierID)
	// 服务端缓存的参考表列表需要失效
	var rdb *redis.Client
	if cfg.Redis.Host != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
	}
	references := service.NewReferenceService(repos.Reference, rdb, cfg.PCF.ReferenceCacheTTL, zapLogger)
	ctx := context.Background()

	if err := repos.Supplier.Upsert(ctx, &entity.Supplier{
		ID:   cfg.PCF.BootstrapSupplierID,
		Name: cfg.PCF.BootstrapSupplierName,
		Code: "BOOTSTRAP",
	}); err != nil {
		zapLogger.Fatal("Failed to seed bootstrap supplier", zap.Error(err))
	}

	for _, ref := range seed.References {
		if err := seedReference(ctx, repos.Reference, references, ref); err != nil {
			zapLogger.Fatal("Failed to seed reference table",
				zap.String("kind", ref.Kind), zap.String("name", ref.Name), zap.Error(err))
		}
		zapLogger.Info("Reference table seeded",
			zap.String("kind", ref.Kind), zap.String("name", ref.Name), zap.Int("factors", len(ref.Factors)))
	}
	zapLogger.Info("Seed finished", zap.Int("references", len(seed.References)))
}

func seedReference(ctx context.Context, repo *repository.ReferenceRepository, svc *service.ReferenceService, ref SeedReference) error {
	rows := make([]service.FactorRow, 0, len(ref.Factors))
	for stage, f := range ref.Factors {
		rows = append(rows, service.FactorRow{LifecycleStage: stage, Biogenic: f[0], NonBiogenic: f[1]})
	}

	table, err := repo.FindByKindAndName(ctx, ref.Kind, ref.Name)
	if errors.Is(err, repository.ErrNotFound) {
		_, err = svc.CreateTable(ctx, &service.CreateReferenceTableRequest{
			Name:        ref.Name,
			Kind:        ref.Kind,
			Unit:        ref.Unit,
			Description: ref.Description,
			Source:      ref.Source,
			Factors:     rows,
		})
		return err
	}
	if err != nil {
		return fmt.Errorf("find reference table: %w", err)
	}
	_, err = svc.SetFactors(ctx, table.ID, rows)
	return err
}
