// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 migration 管理 run_data 表在 PostgreSQL 与 MySQL 上的 Schema 版本，
基于 golang-migrate 实现。

# 概述

SQL 迁移文件通过 embed.FS 内嵌，按方言分目录存放，经 iofs 源驱动交给
golang-migrate 执行。SQLite 的表结构由 gorm AutoMigrate 维护，不经过本包。

# 核心类型

  - Migrator：封装 golang-migrate 实例与数据库连接，提供 Up/Down/Version/Close。
  - Config：数据库类型、连接串、迁移表名与锁超时。
  - DatabaseType：数据库类型枚举（postgres/mysql）。

# 辅助函数

  - ParseDatabaseType：解析类型字符串（支持 pg、mariadb 等别名）。
  - Versions：列出内嵌迁移的版本号，不需要数据库连接。
*/
package migration
