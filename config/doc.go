// Package config 提供 RAGFlow 的配置管理功能。
//
// 聚合检索管线、分块、嵌入、重排序和评估各子系统的配置，
// 支持从 YAML 文件和环境变量加载，优先级为
// 默认值 → 文件 → 环境变量。
package config
