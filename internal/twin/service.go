package twin

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Vovarama1992/moodtwin-bridge/internal/ai"
)

type service struct {
	repo     Repo
	ai       ai.AI
	outbound Outbound
	echoRaw  bool
	now      func() time.Time
}

// NewService wires the gateway. A nil aiClient switches chat to the local fallback reply.
func NewService(repo Repo, aiClient ai.AI, outbound Outbound, echoRaw bool) Service {
	return &service{
		repo:     repo,
		ai:       aiClient,
		outbound: outbound,
		echoRaw:  echoRaw,
		now:      time.Now,
	}
}

func (s *service) Train(ctx context.Context, twinName *string, texts []string) (*Profile, error) {
	if len(texts) == 0 {
		return nil, invalid("Provide a non-empty `texts` array")
	}

	name := DefaultTwinName
	if twinName != nil {
		name = *twinName
	}

	id, err := newProfileID()
	if err != nil {
		return nil, fmt.Errorf("generate profile id: %w", err)
	}

	p := &Profile{
		ID:        id,
		TwinName:  name,
		Texts:     append([]string(nil), texts...),
		CreatedAt: s.now().UTC(),
	}

	if err := s.repo.Append(ctx, p); err != nil {
		return nil, fmt.Errorf("append profile: %w", err)
	}

	log.Printf("[twin] trained id=%s name=%q texts=%d", p.ID, p.TwinName, len(p.Texts))
	return p, nil
}

func (s *service) Find(ctx context.Context, id string) (*Profile, error) {
	if strings.TrimSpace(id) == "" {
		return nil, invalid("twinId required")
	}
	return s.repo.Get(ctx, id)
}

func (s *service) Chat(ctx context.Context, twinID string, message string, mood Mood) (*ChatResult, error) {
	if twinID == "" || message == "" {
		return nil, invalid("twinId and message required")
	}

	profile, err := s.repo.Get(ctx, twinID)
	if err != nil {
		return nil, err
	}

	systemPrompt := BuildSystemPrompt(profile, mood)

	if s.ai == nil {
		log.Printf("[twin] chat twin=%s mood=%s fallback", twinID, mood)
		return &ChatResult{Reply: fallbackReply(message, mood)}, nil
	}

	reply, err := s.ai.GetReply(ctx, systemPrompt, message)
	if err != nil {
		return nil, err
	}

	log.Printf("[twin] chat twin=%s mood=%s reply=%q", twinID, mood, short(reply.Text))

	out := &ChatResult{Reply: reply.Text}
	if s.echoRaw {
		out.Raw = reply.Raw
	}
	return out, nil
}

func (s *service) SendDM(ctx context.Context, to string, text string) (string, error) {
	return s.outbound.SendDM(ctx, to, text)
}

func newProfileID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func short(s string) string {
	r := []rune(s)
	if len(r) > 180 {
		return string(r[:180]) + "..."
	}
	return s
}
