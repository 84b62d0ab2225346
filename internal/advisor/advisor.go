package advisor

import (
	"context"
	"errors"
	"log"
	"strings"

	"totcare/backend/internal/gemini"
)

// Provider is the slice of the Gemini client the advisory flows consume.
// Injecting it keeps the flows free of process-wide state and lets tests
// substitute a stub.
type Provider interface {
	GenerateText(ctx context.Context, prompt string, opts gemini.Options) (*gemini.GenerateContentResponse, error)
	GenerateGroundedText(ctx context.Context, prompt string, opts gemini.Options) (*gemini.GenerateContentResponse, error)
	GenerateImage(ctx context.Context, prompt string, cfg gemini.ImageConfig) (*gemini.GenerateContentResponse, error)
}

// ErrEmptyQuery is returned when a grounded use case is invoked with a blank
// query. Callers are expected to guard before invoking; this is the fail-fast
// backstop.
var ErrEmptyQuery = errors.New("query must not be empty")

const (
	noLogsMessage         = "暂无记录可供分析。"
	summaryEmptyMessage   = "无法生成分析报告。"
	summaryFailureMessage = "生成摘要时出错，请重试。"
	knowledgeEmptyMessage = "未找到相关建议。"
	knowledgeFailureText  = "抱歉，暂时无法获取该信息。"
	illnessEmptyMessage   = "未找到相关指导信息。"
	illnessFailureText    = "获取医疗信息失败。如果情况紧急，请立即就医。"
	emergencyEmptyMessage = "请遵循标准的急救流程。"
	emergencyFailureText  = "急救服务出错。请立即拨打120或当地急救电话。"
	illnessDisclaimer     = "我是一个AI助手，不是医生。具体的医疗建议请务必咨询专业儿科医生。"
	emergencyImageAspect  = "16:9"
	emergencyImageSize    = "1K"
	summarySystemPrompt   = "你是一位乐于助人、充满关爱的儿科助手。请提供安全、通用的建议。所有回答必须使用简体中文。"
	logEntryTimeFormat    = "15:04:05"
)

// Service bundles the four advisory use cases around one injected provider.
// It is stateless; concurrent invocations are independent.
type Service struct {
	provider Provider
}

func NewService(provider Provider) *Service {
	return &Service{provider: provider}
}

// SummarizeDailyLogs turns a day's activity entries into a short health
// summary. It never returns an error: provider failures collapse into a fixed
// retry message, and an empty entry list short-circuits without a provider
// call. The entries are rendered in the order supplied by the caller.
func (s *Service) SummarizeDailyLogs(ctx context.Context, entries []LogEntry) string {
	if len(entries) == 0 {
		return noLogsMessage
	}

	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		line := "- [" + entry.Timestamp.Format(logEntryTimeFormat) + "] " +
			string(entry.Category) + ": " + strings.TrimSpace(entry.Detail)
		if note := strings.TrimSpace(entry.Note); note != "" {
			line += " (" + note + ")"
		}
		lines = append(lines, line)
	}

	prompt := strings.Join([]string{
		"你是一位专业的儿科健康助手。请分析以下1-3岁幼儿的日常活动记录。",
		"总结当天的饮食（营养）、饮水（补水）和排泄情况。",
		"指出任何潜在的健康关注点（例如喝水太少、大便不规律等）或表扬良好的习惯。",
		"请用简体中文回答，语气亲切鼓励，言简意赅（不超过200字）。",
		"",
		"记录日志:",
		strings.Join(lines, "\n"),
	}, "\n")

	resp, err := s.provider.GenerateText(ctx, prompt, gemini.Options{
		SystemInstruction: summarySystemPrompt,
	})
	if err != nil {
		log.Printf("daily log summary failed: %v", err)
		return summaryFailureMessage
	}
	return gemini.TextOrDefault(resp, summaryEmptyMessage)
}

// KnowledgeAdvice answers a free-text parenting question with search
// grounding. Provider failures are absorbed into a fixed apology; the only
// error path is a blank query, which never reaches the provider.
func (s *Service) KnowledgeAdvice(ctx context.Context, query string) (Advice, error) {
	question := strings.TrimSpace(query)
	if question == "" {
		return Advice{}, ErrEmptyQuery
	}

	prompt := strings.Join([]string{
		"针对1-3岁幼儿的父母，请提供关于以下问题的权威建议：" + question + "。",
		"请优先引用知名育儿网站或医疗机构（如CDC、AAP、丁香医生、育学园等）的内容。",
		"请用简体中文回答。",
	}, "\n")

	resp, err := s.provider.GenerateGroundedText(ctx, prompt, gemini.Options{})
	if err != nil {
		log.Printf("knowledge advice failed: %v", err)
		return Advice{Text: knowledgeFailureText, Sources: []gemini.Source{}}, nil
	}
	return Advice{
		Text:    gemini.TextOrDefault(resp, knowledgeEmptyMessage),
		Sources: gemini.Sources(resp),
	}, nil
}

// IllnessGuidance answers a symptom description with search grounding and a
// system instruction requiring the response to open with the AI-is-not-a-doctor
// disclaimer. The instruction is trusted, not verified against the returned
// text.
func (s *Service) IllnessGuidance(ctx context.Context, symptoms string) (Advice, error) {
	description := strings.TrimSpace(symptoms)
	if description == "" {
		return Advice{}, ErrEmptyQuery
	}

	prompt := strings.Join([]string{
		"我家里1-3岁的宝宝出现了以下症状：" + description + "。",
		"有哪些标准的家庭护理建议？出现什么情况需要立即去医院？",
		"请用简体中文回答。",
	}, "\n")
	instruction := "你是一位医疗信息助手。你必须以免责声明开头：'" + illnessDisclaimer +
		"' 然后基于搜索结果提供通用的护理建议。请用简体中文回答。"

	resp, err := s.provider.GenerateGroundedText(ctx, prompt, gemini.Options{
		SystemInstruction: instruction,
	})
	if err != nil {
		log.Printf("illness guidance failed: %v", err)
		return Advice{Text: illnessFailureText, Sources: []gemini.Source{}}, nil
	}
	return Advice{
		Text:    gemini.TextOrDefault(resp, illnessEmptyMessage),
		Sources: gemini.Sources(resp),
	}, nil
}

// EmergencyGuide composes a first-aid guide in two sequential stages. Stage A
// (text) is required: when it fails the whole operation returns the terminal
// safety message and the image stage is never attempted. Stage B (image) is
// best-effort only: it starts after Stage A succeeded and any failure there is
// logged and discarded, leaving Stage A's text untouched.
func (s *Service) EmergencyGuide(ctx context.Context, situation string) Guide {
	scenario := strings.TrimSpace(situation)

	textPrompt := strings.Join([]string{
		"针对1-3岁幼儿发生的紧急情况：【" + scenario + "】，请提供立即、分步骤的急救指南。",
		"内容必须极其清晰、可操作性强。使用项目符号列出。",
		"请用简体中文回答。",
	}, "\n")

	textResp, err := s.provider.GenerateText(ctx, textPrompt, gemini.Options{})
	if err != nil {
		log.Printf("emergency guide text failed situation=%q: %v", scenario, err)
		return Guide{Text: emergencyFailureText}
	}
	guideText := gemini.TextOrDefault(textResp, emergencyEmptyMessage)

	imagePrompt := "Educational medical illustration showing the correct first aid position " +
		"for a toddler regarding: " + scenario + ". Simple, clear line art or soft color style. " +
		"Safe for viewing. No text in image."

	imageResp, err := s.provider.GenerateImage(ctx, imagePrompt, gemini.ImageConfig{
		AspectRatio: emergencyImageAspect,
		ImageSize:   emergencyImageSize,
	})
	if err != nil {
		log.Printf("emergency guide image failed situation=%q: %v", scenario, err)
		return Guide{Text: guideText}
	}

	return Guide{
		Text:     guideText,
		ImageURL: gemini.InlineImage(imageResp),
	}
}
