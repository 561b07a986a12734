// Package store 提供块存储与向量索引.
//
// ChunkStore 持有已索引的文档块，查询期间只读；索引重建在离线阶段完成，
// 不与查询交错。VectorIndex 提供最近邻搜索，Flat 实现是精确且确定性的
// （分数相同按块 ID 升序），HNSW 实现面向大规模数据的近似搜索。
package store
