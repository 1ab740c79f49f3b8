package builder

import "OpinionMatch/internal/model"

// Flatten 展开嵌套的市场树（父节点与子节点都保留，保持源接口的遍历顺序）。
// 用显式栈而不是递归，嵌套层级异常深的响应也不会打爆调用栈。
func Flatten(roots []model.RawMarket) []model.RawMarket {
	out := make([]model.RawMarket, 0, len(roots))
	stack := make([]model.RawMarket, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, roots[i])
	}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		children := node.ChildMarkets
		node.ChildMarkets = nil
		out = append(out, node)

		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
	return out
}
