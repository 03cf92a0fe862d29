package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bitfantasy/nimo-pcf/internal/middleware"
	"github.com/bitfantasy/nimo-pcf/internal/model/entity"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	JWTSecret = "nimo-pcf-test-secret"
	// BootstrapSupplierID owns the curated reference data in tests.
	BootstrapSupplierID = "bootstrap"
)

var dbCounter int64

// TestEnv holds test environment resources
type TestEnv struct {
	DB     *gorm.DB
	Router *gin.Engine
	T      *testing.T
}

// projectRoot returns the project root directory by looking for go.mod
func projectRoot() string {
	_, filename, _, _ := runtime.Caller(0)
	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// loadEnv loads .env from the project root
func loadEnv() {
	root := projectRoot()
	if root != "" {
		godotenv.Load(filepath.Join(root, ".env"))
	}
}

// SetupTestDB opens an in-memory SQLite database private to the test and
// migrates every entity. It is closed when the test finishes.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	loadEnv()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, atomic.AddInt64(&dbCounter, 1))

	level := logger.Silent
	if os.Getenv("TEST_SQL_LOG") != "" {
		level = logger.Info
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(level),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	// one connection keeps the in-memory database alive and serialises writers
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(entity.AllModels()...); err != nil {
		t.Fatalf("Failed to migrate test tables: %v", err)
	}

	t.Cleanup(func() {
		sqlDB.Close()
	})
	return db
}

// SetupRouter creates a gin test router
func SetupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())
	return r
}

// AuthGroup creates an API group with the same auth chain as the server
func AuthGroup(r *gin.Engine, path string) *gin.RouterGroup {
	return r.Group(path, middleware.JWTAuth(JWTSecret), middleware.RequireSupplier())
}

// GenerateTestToken creates a valid JWT token for a user of supplierID
func GenerateTestToken(userID, supplierID string, permissions []string) string {
	if permissions == nil {
		permissions = []string{}
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":         userID,
		"uid":         userID,
		"name":        "Test " + userID,
		"email":       userID + "@test.com",
		"supplier_id": supplierID,
		"roles":       []string{},
		"perms":       permissions,
		"iss":         "nimo-pcf",
		"iat":         now.Unix(),
		"exp":         now.Add(24 * time.Hour).Unix(),
		"jti":         fmt.Sprintf("test-jti-%d", now.UnixNano()),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString([]byte(JWTSecret))
	return tokenString
}

// DefaultTestToken returns a token for a user of supplier "acme" with all
// permissions.
func DefaultTestToken() string {
	return GenerateTestToken("test-user-001", "acme", []string{"*"})
}

// DoRequest executes an HTTP request against the test router
func DoRequest(r *gin.Engine, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ParseResponse parses the JSON response body into a handler.Response-like map
func ParseResponse(w *httptest.ResponseRecorder) map[string]interface{} {
	var result map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &result)
	return result
}

// SeedSupplier creates a supplier
func SeedSupplier(t *testing.T, db *gorm.DB, id, name string) *entity.Supplier {
	t.Helper()
	s := &entity.Supplier{ID: id, Name: name, Code: strings.ToUpper(id)}
	if err := db.Create(s).Error; err != nil {
		t.Fatalf("Failed to seed supplier: %v", err)
	}
	return s
}

// SeedProduct creates a product of supplierID measured per piece
func SeedProduct(t *testing.T, db *gorm.DB, id, name, supplierID string, public bool) *entity.Product {
	t.Helper()
	p := &entity.Product{
		ID:                  id,
		Name:                name,
		SupplierID:          supplierID,
		IsPublic:            public,
		ReferenceImpactUnit: "piece",
	}
	if err := db.Omit("Supplier", "Overrides").Create(p).Error; err != nil {
		t.Fatalf("Failed to seed product: %v", err)
	}
	return p
}

// SeedLineItem creates a BOM edge without running the graph guard
func SeedLineItem(t *testing.T, db *gorm.DB, id, parentID, childID string, quantity float64) *entity.ProductBOMLineItem {
	t.Helper()
	li := &entity.ProductBOMLineItem{
		ID:                id,
		ParentProductID:   parentID,
		LineItemProductID: childID,
		Quantity:          quantity,
	}
	if err := db.Omit("LineItemProduct").Create(li).Error; err != nil {
		t.Fatalf("Failed to seed line item: %v", err)
	}
	return li
}

// SeedReference creates a reference table with factors given as
// stage -> [biogenic, non_biogenic].
func SeedReference(t *testing.T, db *gorm.DB, id, name, kind string, factors map[string][2]float64) *entity.ReferenceTable {
	t.Helper()
	table := &entity.ReferenceTable{ID: id, Name: name, Kind: kind}
	if err := db.Create(table).Error; err != nil {
		t.Fatalf("Failed to seed reference table: %v", err)
	}
	i := 0
	for stage, f := range factors {
		i++
		row := &entity.ReferenceFactor{
			ID:               fmt.Sprintf("%s-f%d", id, i),
			ReferenceTableID: id,
			LifecycleStage:   stage,
			Biogenic:         f[0],
			NonBiogenic:      f[1],
		}
		if err := db.Create(row).Error; err != nil {
			t.Fatalf("Failed to seed reference factor: %v", err)
		}
	}
	return table
}

// SeedMaterialEmission creates a material emission of weight kg against refID
func SeedMaterialEmission(t *testing.T, db *gorm.DB, id, productID, refID string, weight float64) *entity.Emission {
	t.Helper()
	e := &entity.Emission{
		ID:               id,
		ProductID:        productID,
		Kind:             entity.EmissionKindMaterial,
		Weight:           weight,
		ReferenceTableID: &refID,
	}
	if err := db.Omit("Overrides", "LineItems").Create(e).Error; err != nil {
		t.Fatalf("Failed to seed emission: %v", err)
	}
	return e
}

// SeedSharingRequest stores a sharing request in the given status
func SeedSharingRequest(t *testing.T, db *gorm.DB, id, productID, requesterID, status string) *entity.ProductSharingRequest {
	t.Helper()
	r := &entity.ProductSharingRequest{
		ID:                   id,
		ProductID:            productID,
		RequestingSupplierID: requesterID,
		Status:               status,
	}
	if err := db.Omit("Product").Create(r).Error; err != nil {
		t.Fatalf("Failed to seed sharing request: %v", err)
	}
	return r
}

// SeedRoundTrip builds the two-supplier phone example:
//
//	supplier y: processor (0.5 kg of material "aluminium", A1 = 0.2/kg)
//	supplier x: phone with 2 processors
//
// No sharing request is stored.
func SeedRoundTrip(t *testing.T, db *gorm.DB) {
	t.Helper()
	SeedSupplier(t, db, BootstrapSupplierID, "Reference data")
	SeedSupplier(t, db, "x", "Supplier X")
	SeedSupplier(t, db, "y", "Supplier Y")
	SeedReference(t, db, "ref-alu", "aluminium", "material", map[string][2]float64{"A1": {0, 0.2}})
	SeedProduct(t, db, "processor", "Processor", "y", false)
	SeedProduct(t, db, "phone", "Phone", "x", false)
	SeedMaterialEmission(t, db, "em-alu", "processor", "ref-alu", 0.5)
	SeedLineItem(t, db, "li-phone-processor", "phone", "processor", 2)
}
