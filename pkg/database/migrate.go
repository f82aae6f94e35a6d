package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SchemaVersion users / reminders / notifications / activities 表结构的目标版本
// 新增迁移文件时同步调整
const SchemaVersion uint = 1

// RunMigrations 将数据库迁移到 SchemaVersion
// 迁移后处于 dirty 状态或版本与 SchemaVersion 不一致时返回错误
func RunMigrations(db *sql.DB, logger *zap.Logger) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("加载迁移文件失败: %w", err)
	}
	if latest, err := latestMigration(src); err != nil {
		return fmt.Errorf("读取迁移文件版本失败: %w", err)
	} else if latest != SchemaVersion {
		return fmt.Errorf("迁移文件最新版本 %d 与 SchemaVersion %d 不一致", latest, SchemaVersion)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("创建迁移驱动失败: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("初始化迁移实例失败: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("执行迁移失败: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("读取迁移版本失败: %w", err)
	}
	if err := checkSchemaVersion(version, dirty); err != nil {
		return err
	}

	logger.Info("数据库迁移完成",
		zap.Uint("version", version),
		zap.Uint("schema_version", SchemaVersion),
	)
	return nil
}

func checkSchemaVersion(version uint, dirty bool) error {
	if dirty {
		return fmt.Errorf("数据库迁移处于 dirty 状态: version=%d", version)
	}
	if version != SchemaVersion {
		return fmt.Errorf("数据库结构版本不一致: 期望 %d，实际 %d", SchemaVersion, version)
	}
	return nil
}

// latestMigration 内嵌迁移文件中的最新版本
func latestMigration(src source.Driver) (uint, error) {
	v, err := src.First()
	if err != nil {
		return 0, err
	}
	for {
		next, err := src.Next(v)
		if errors.Is(err, fs.ErrNotExist) {
			return v, nil
		}
		if err != nil {
			return 0, err
		}
		v = next
	}
}
