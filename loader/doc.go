// Package loader 从本地文件加载文档并产出可索引的文本块。
//
// 支持纯文本、Markdown、PDF 和问答对 JSON。问答对不再切分，
// 每对独立成块并携带规范化问题元数据供 FAQ 直查使用。
package loader
