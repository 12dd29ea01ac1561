package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SkillDraft is a user's in-progress selection of a catalog leaf plus
// supplementary fields. It lives only until saved or discarded.
type SkillDraft struct {
	SkillName    string
	Duration     string
	Achievements []string
	CreatedAt    time.Time
}

// NewSkillDraft starts a draft for a selected catalog leaf.
func NewSkillDraft(skillName string) *SkillDraft {
	return &SkillDraft{
		SkillName: skillName,
		CreatedAt: time.Now(),
	}
}

// AddAchievement appends a named achievement. Blank names are ignored.
func (d *SkillDraft) AddAchievement(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	d.Achievements = append(d.Achievements, name)
}

// RemoveAchievement deletes the achievement at index i, preserving order.
// Out-of-range indexes are ignored.
func (d *SkillDraft) RemoveAchievement(i int) {
	if i < 0 || i >= len(d.Achievements) {
		return
	}
	d.Achievements = append(d.Achievements[:i], d.Achievements[i+1:]...)
}

// SetDuration records how long the user has practiced the skill.
func (d *SkillDraft) SetDuration(years string) {
	d.Duration = strings.TrimSpace(years)
}

// SkillSaver persists a finished draft on behalf of the signed-in user.
type SkillSaver interface {
	SaveSkill(ctx context.Context, draft *SkillDraft) (*Skill, error)
}

// NopSkillSaver discards drafts. It stands in where no persistence
// backend is wired.
type NopSkillSaver struct{}

func (NopSkillSaver) SaveSkill(_ context.Context, draft *SkillDraft) (*Skill, error) {
	return NewSkill(uuid.Nil, draft), nil
}

// Skill is a saved skill record owned by a user.
type Skill struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	Name         string
	Duration     string
	Achievements []string
	CreatedAt    time.Time
}

// NewSkill materializes a draft into a persistable skill record.
func NewSkill(userID uuid.UUID, draft *SkillDraft) *Skill {
	return &Skill{
		ID:           uuid.New(),
		UserID:       userID,
		Name:         draft.SkillName,
		Duration:     draft.Duration,
		Achievements: append([]string(nil), draft.Achievements...),
		CreatedAt:    time.Now(),
	}
}
