package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/voicemint/api/internal/client"
	"github.com/voicemint/api/internal/model"
)

// ScriptService drafts reading scripts with the Groq chat API so users
// have something natural to record and, later, to synthesize.
type ScriptService struct {
	groqClient *client.GroqClient
}

func NewScriptService(groqClient *client.GroqClient) *ScriptService {
	return &ScriptService{groqClient: groqClient}
}

// Suggest produces a short script for the given topic. Falls back to a
// canned paragraph when no API key is configured so development works
// offline.
func (s *ScriptService) Suggest(ctx context.Context, req *model.ScriptSuggestRequest) (*model.ScriptSuggestResponse, error) {
	if s.groqClient == nil || !s.groqClient.IsConfigured() {
		return s.suggestMock(req), nil
	}

	system := "You write short spoken-word scripts for voice recordings. " +
		"Return plain text only, no headings or markdown, 80 to 150 words, " +
		"phrased naturally for reading aloud."

	var sb strings.Builder
	fmt.Fprintf(&sb, "Write a script about: %s.", req.Topic)
	if req.Tone != "" {
		fmt.Fprintf(&sb, " Tone: %s.", req.Tone)
	}
	if req.Language != "" && req.Language != "en" {
		fmt.Fprintf(&sb, " Language: %s.", req.Language)
	}

	text, err := s.groqClient.ChatCompletion(ctx, system, sb.String())
	if err != nil {
		return nil, fmt.Errorf("script suggestion failed: %w", err)
	}

	return &model.ScriptSuggestResponse{ScriptText: strings.TrimSpace(text)}, nil
}

func (s *ScriptService) suggestMock(req *model.ScriptSuggestRequest) *model.ScriptSuggestResponse {
	return &model.ScriptSuggestResponse{
		ScriptText: fmt.Sprintf(
			"Let me tell you a little about %s. It is one of those subjects that "+
				"rewards a closer look: the more time you spend with it, the more "+
				"detail you notice. Take a breath, slow down, and read this out "+
				"loud at your own pace.", req.Topic),
	}
}
