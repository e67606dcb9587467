package twin

import (
	"context"
	"encoding/json"
	"time"
)

const DefaultTwinName = "Me (MoodTwin)"

type Mood string

const (
	MoodNeutral Mood = "neutral"
	MoodFlirty  Mood = "flirty"
	MoodPro     Mood = "pro"
	MoodDark    Mood = "dark"
	MoodCrazy   Mood = "crazy"
)

// Profile is a trained twin. Records are never updated after creation.
type Profile struct {
	ID        string    `json:"id"`
	TwinName  string    `json:"twinName"`
	Texts     []string  `json:"texts"`
	CreatedAt time.Time `json:"createdAt"`
}

type ChatResult struct {
	Reply string
	Raw   json.RawMessage
}

// Repo is append-only persistence for profiles.
type Repo interface {
	Get(ctx context.Context, id string) (*Profile, error)
	Append(ctx context.Context, p *Profile) error
}

// Outbound delivers direct messages.
type Outbound interface {
	SendDM(ctx context.Context, to string, text string) (string, error)
}

type Service interface {
	Train(ctx context.Context, twinName *string, texts []string) (*Profile, error)
	Find(ctx context.Context, id string) (*Profile, error)
	Chat(ctx context.Context, twinID string, message string, mood Mood) (*ChatResult, error)
	SendDM(ctx context.Context, to string, text string) (string, error)
}
