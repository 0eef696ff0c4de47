// Package config 提供 lmgateway 的配置管理：默认值、YAML 文件与
// LMGATEWAY_ 前缀环境变量三层合并，加载后统一校验。
package config
