package main

import (
	"context"
	"net/http"

	"atlas/bizerror"
	"atlas/common"
	"atlas/domain"
	"atlas/infra/tracing"
	"atlas/persistence"
	"atlas/servehttp"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	common.Log.Info("service start")

	dbConfig, err := persistence.ParseDatabaseConfigFromEnv()
	if err != nil {
		common.Log.Fatalf("parse database config failed %v", err)
	}

	// create database (no conflict)
	if dbConfig.DriverType == "postgres" {
		if err := persistence.PreparePostgresDatabase(dbConfig.DriverArgs); err != nil {
			common.Log.Fatalf("failed to prepare database %v", err)
		}
	}

	// connect database
	ds := &persistence.DataSourceManager{DatabaseConfig: dbConfig}
	if err := ds.Start(); err != nil {
		common.Log.Fatalf("database connection failed %v", err)
	}
	defer ds.Stop()
	persistence.ActiveDataSourceManager = ds

	// database migration (race condition)
	db := ds.GormDB(context.Background())
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS postgis").Error; err != nil {
		common.Log.Fatalf("failed to enable postgis %v", err)
	}
	if err := db.AutoMigrate(&domain.Project{}, &domain.AOIFragment{}).Error; err != nil {
		common.Log.Fatalf("database migration failed %v", err)
	}
	if err := db.Model(&domain.AOIFragment{}).
		AddForeignKey("project_id", "projects(id)", "CASCADE", "CASCADE").Error; err != nil {
		common.Log.Fatalf("failed to add fragment foreign key %v", err)
	}

	engine := gin.Default()
	engine.Use(tracing.TracingIngress(), bizerror.ErrorHandling())
	engine.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, common.ServiceName)
	})
	servehttp.RegisterProjectsRestApis(engine)

	servehttp.StartHTTPServer(engine)
}
