// Package data loads the static YAML tables: skill animations, food items
// and bank objects. Tables are read once at startup and never mutated.
package data

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// SkillAnimation maps a gathering skill to the player animations it plays
// and how long a depleted node takes to respawn.
type SkillAnimation struct {
	Skill          string
	AnimationIDs   []int
	RespawnTimeout time.Duration
}

// FoodInfo is one edible item.
type FoodInfo struct {
	ItemID int
	Name   string
	Heal   int
}

// BankObject is one interactable banking object.
type BankObject struct {
	ObjectID int
	Name     string
	Action   string
}

// Tables holds all loaded static tables.
type Tables struct {
	animations  map[string]*SkillAnimation
	byAnimation map[int]string // animation id → skill name
	food        map[int]*FoodInfo
	bankObjects map[int]*BankObject
}

// Animation returns the animation table for a skill, or nil.
func (t *Tables) Animation(skill string) *SkillAnimation {
	return t.animations[skill]
}

// IsSkillAnimation reports whether animID belongs to the given skill.
func (t *Tables) IsSkillAnimation(skill string, animID int) bool {
	a := t.animations[skill]
	if a == nil {
		return false
	}
	for _, id := range a.AnimationIDs {
		if id == animID {
			return true
		}
	}
	return false
}

// SkillForAnimation returns the skill a player animation belongs to.
func (t *Tables) SkillForAnimation(animID int) (string, bool) {
	s, ok := t.byAnimation[animID]
	return s, ok
}

// Food returns the food entry for an item id, or nil.
func (t *Tables) Food(itemID int) *FoodInfo {
	return t.food[itemID]
}

// IsFood reports whether the item id is edible.
func (t *Tables) IsFood(itemID int) bool {
	return t.food[itemID] != nil
}

// FoodIDs returns all edible item ids.
func (t *Tables) FoodIDs() []int {
	out := make([]int, 0, len(t.food))
	for id := range t.food {
		out = append(out, id)
	}
	return out
}

// BankObject returns the bank object entry for an object id, or nil.
func (t *Tables) BankObject(objectID int) *BankObject {
	return t.bankObjects[objectID]
}

// BankObjectIDs returns all known bank object ids.
func (t *Tables) BankObjectIDs() []int {
	out := make([]int, 0, len(t.bankObjects))
	for id := range t.bankObjects {
		out = append(out, id)
	}
	return out
}

// --- YAML loading ---

type animationEntry struct {
	Skill          string `yaml:"skill"`
	AnimationIDs   []int  `yaml:"animation_ids"`
	RespawnSeconds int    `yaml:"respawn_seconds"`
}

type foodEntry struct {
	ItemID int    `yaml:"item_id"`
	Name   string `yaml:"name"`
	Heal   int    `yaml:"heal"`
}

type bankObjectEntry struct {
	ObjectID int    `yaml:"object_id"`
	Name     string `yaml:"name"`
	Action   string `yaml:"action"`
}

// LoadTables reads all tables from dir. A missing file leaves its table
// empty; a malformed file is an error.
func LoadTables(dir string) (*Tables, error) {
	t := &Tables{
		animations:  make(map[string]*SkillAnimation),
		byAnimation: make(map[int]string),
		food:        make(map[int]*FoodInfo),
		bankObjects: make(map[int]*BankObject),
	}

	var anims []animationEntry
	if err := loadYAML(filepath.Join(dir, "skill_animations.yaml"), &anims); err != nil {
		return nil, err
	}
	for _, e := range anims {
		t.animations[e.Skill] = &SkillAnimation{
			Skill:          e.Skill,
			AnimationIDs:   e.AnimationIDs,
			RespawnTimeout: time.Duration(e.RespawnSeconds) * time.Second,
		}
		for _, id := range e.AnimationIDs {
			t.byAnimation[id] = e.Skill
		}
	}

	var foods []foodEntry
	if err := loadYAML(filepath.Join(dir, "food.yaml"), &foods); err != nil {
		return nil, err
	}
	for _, e := range foods {
		t.food[e.ItemID] = &FoodInfo{ItemID: e.ItemID, Name: e.Name, Heal: e.Heal}
	}

	var banks []bankObjectEntry
	if err := loadYAML(filepath.Join(dir, "bank_objects.yaml"), &banks); err != nil {
		return nil, err
	}
	for _, e := range banks {
		t.bankObjects[e.ObjectID] = &BankObject{ObjectID: e.ObjectID, Name: e.Name, Action: e.Action}
	}

	return t, nil
}

func loadYAML(path string, out any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
