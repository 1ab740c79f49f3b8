package builder

import "OpinionMatch/internal/model"

// DecisionState 单个事件的增强路径
type DecisionState int

const (
	StateSeeded         DecisionState = iota // 增量模式下已有完整旧记录，原样保留
	StateSignatureMatch                      // 内容签名未变，复用旧的关键词/实体组
	StateLegacyMatch                         // 旧记录无签名但标题一致，按标题复用
	StateRegenerate                          // 调用生成器重新生成
	StateFallback                            // 无生成器或被禁用，走确定性降级
)

func (s DecisionState) String() string {
	switch s {
	case StateSeeded:
		return "seeded"
	case StateSignatureMatch:
		return "signature_match"
	case StateLegacyMatch:
		return "legacy_match"
	case StateRegenerate:
		return "regenerate"
	case StateFallback:
		return "fallback"
	}
	return "unknown"
}

// Policy 单次构建的复用策略开关，构建开始时确定后不再变化
type Policy struct {
	OnlyNew     bool // 增量模式：仅对新事件生成
	FullRefresh bool // 全量重算：完全忽略旧数据
	SkipAI      bool // 禁用生成器，全部走降级
	HasProvider bool // 生成器可用（密钥已配置）
	AllowLegacy bool // 允许无签名的旧记录按标题复用
}

// Decide 决定单个事件的增强路径。纯函数，便于穷举测试。
// 旧记录的实体组为空时永远不复用（即使增量模式），强制重新生成。
func Decide(title, sigCore, sigFull string, prev *model.Event, policy Policy) DecisionState {
	if policy.FullRefresh {
		prev = nil
	}
	if prev != nil && len(prev.EntityGroups) > 0 {
		if policy.OnlyNew {
			return StateSeeded
		}
		if (sigCore != "" && prev.SigCore == sigCore) || (sigFull != "" && prev.SigFull == sigFull) {
			return StateSignatureMatch
		}
		if policy.AllowLegacy && prev.SigCore == "" && prev.SigFull == "" && prev.Title == title {
			return StateLegacyMatch
		}
	}
	if policy.SkipAI || !policy.HasProvider {
		return StateFallback
	}
	return StateRegenerate
}
