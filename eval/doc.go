// Package eval 提供检索增强生成质量的自动化评估框架.
//
// 评估以样本为单位并发执行，单个样本或指标的失败被隔离记录，
// 不会中止整批评估。
package eval
