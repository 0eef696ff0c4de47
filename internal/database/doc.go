// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 database 提供基于 GORM 的数据库连接池管理，供 SQL 运行数据存储使用。

# 核心类型

  - PoolManager：持有 GORM DB 与底层 sql.DB，提供 DB()、SQLDB()、Ping()、
    Stats()、Close() 等生命周期方法，后台定时探活。
  - PoolConfig：最大空闲/打开连接数、连接生命周期、空闲超时与健康检查间隔。

# 驱动

Dialector 按驱动名选择 GORM 方言：sqlite（纯 Go，glebarez/sqlite）、
postgres、mysql。
*/
package database
